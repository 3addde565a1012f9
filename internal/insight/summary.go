package insight

import (
	"math"
	"sort"
	"strings"
	"time"

	"cert-dashboard/internal/domain"
)

// Percent 四捨五入到整數，total 為 0 時回傳 0
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// SummarizeCertificates 儀表板卡片用的統計，每次載入都整批重算
func SummarizeCertificates(certs []domain.Certificate, now time.Time) domain.CertificateSummary {
	s := domain.CertificateSummary{Total: len(certs)}

	byType := make(map[string]int)
	byStatus := make(map[string]int)
	byUrgency := make(map[string]int)

	for _, c := range certs {
		_, urgency := ClassifyPtr(c.ExpirationDate, now)
		switch {
		case urgency == domain.UrgencySafe:
			s.Valid++
		case urgency.Expiring():
			s.ExpiringSoon++
		case urgency == domain.UrgencyExpired:
			s.Expired++
		default:
			s.Unknown++
		}

		byType[string(c.Type)]++
		status := strings.TrimSpace(c.Status)
		if status == "" {
			status = "unknown"
		}
		byStatus[status]++
		byUrgency[string(urgency)]++
	}

	s.ValidPercent = Percent(s.Valid, s.Total)
	s.ExpiringSoonPercent = Percent(s.ExpiringSoon, s.Total)
	s.ExpiredPercent = Percent(s.Expired, s.Total)

	// 類型與分級固定順序輸出，沒有資料也列 0
	typeKeys := []string{string(domain.TypeAppMobile), string(domain.TypeWebPage)}
	for k := range byType {
		if k != string(domain.TypeAppMobile) && k != string(domain.TypeWebPage) {
			typeKeys = append(typeKeys, k)
		}
	}
	s.ByType = breakdowns(typeKeys, byType, s.Total)

	urgencyKeys := make([]string, 0, len(domain.Urgencies))
	for _, u := range domain.Urgencies {
		urgencyKeys = append(urgencyKeys, string(u))
	}
	s.ByUrgency = breakdowns(urgencyKeys, byUrgency, s.Total)

	statusKeys := make([]string, 0, len(byStatus))
	for k := range byStatus {
		statusKeys = append(statusKeys, k)
	}
	// 數量多的在前，同數量依名稱
	sort.Slice(statusKeys, func(i, j int) bool {
		if byStatus[statusKeys[i]] != byStatus[statusKeys[j]] {
			return byStatus[statusKeys[i]] > byStatus[statusKeys[j]]
		}
		return statusKeys[i] < statusKeys[j]
	})
	s.ByStatus = breakdowns(statusKeys, byStatus, s.Total)

	return s
}

func breakdowns(keys []string, counts map[string]int, total int) []domain.Breakdown {
	out := make([]domain.Breakdown, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.Breakdown{Key: k, Count: counts[k], Percent: Percent(counts[k], total)})
	}
	return out
}

// SummarizeClients 客戶與設備統計
func SummarizeClients(clients []domain.Client, currentYear int) domain.ClientSummary {
	s := domain.ClientSummary{Total: len(clients)}

	var ramUsageSum, storageUsageSum float64
	var ramUsageN, storageUsageN int

	for _, c := range clients {
		if c.IsActive {
			s.Active++
		} else {
			s.Inactive++
		}

		infra := c.Infrastructure
		if infra == nil {
			continue
		}
		s.WithInfrastructure++

		_, bucket := ResolveFreshness(executableInfo(infra), currentYear)
		switch bucket {
		case domain.FreshnessRecent:
			s.ExecutableRecent++
		case domain.FreshnessOutdated:
			s.ExecutableOutdated++
		case domain.FreshnessUndated:
			s.ExecutableOutdated++
			s.ExecutableUndated++
		case domain.FreshnessFuture:
			s.ExecutableFuture++
		}

		if infra.ComputerCount != nil {
			s.TotalComputers += *infra.ComputerCount
		}
		if infra.ServerCount != nil {
			s.TotalServers += *infra.ServerCount
		}
		if infra.RAMTotalGB != nil {
			s.TotalRAMGB += *infra.RAMTotalGB
		}
		if infra.StorageTotalGB != nil {
			s.TotalStorageGB += *infra.StorageTotalGB
		}
		if p, ok := infra.RAMUsagePercent(); ok {
			ramUsageSum += p
			ramUsageN++
		}
		if p, ok := infra.StorageUsagePercent(); ok {
			storageUsageSum += p
			storageUsageN++
		}
	}

	s.RecentPercent = Percent(s.ExecutableRecent, s.WithInfrastructure)
	s.OutdatedPercent = Percent(s.ExecutableOutdated, s.WithInfrastructure)
	if ramUsageN > 0 {
		s.AvgRAMUsagePercent = int(math.Round(ramUsageSum / float64(ramUsageN)))
	}
	if storageUsageN > 0 {
		s.AvgStorageUsagePerc = int(math.Round(storageUsageSum / float64(storageUsageN)))
	}
	return s
}

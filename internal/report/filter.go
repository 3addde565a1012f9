package report

import (
	"strings"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/insight"
)

// CertificateFilter 空值代表不限制
type CertificateFilter struct {
	ExpirationFrom  *time.Time             `json:"expiration_from,omitempty"`
	ExpirationTo    *time.Time             `json:"expiration_to,omitempty"`
	Type            domain.CertificateType `json:"type,omitempty"`
	Status          string                 `json:"status,omitempty"`
	Domains         string                 `json:"domains,omitempty"` // 逗號分隔，任一關鍵字符合即可
	IncludeExpiring bool                   `json:"include_expiring,omitempty"`
	IncludeExpired  bool                   `json:"include_expired,omitempty"`
}

// ClientFilter 空值代表不限制
type ClientFilter struct {
	Search               string           `json:"search,omitempty"`
	ActiveOnly           bool             `json:"active_only,omitempty"`
	HasInfrastructure    bool             `json:"has_infrastructure,omitempty"`
	MinComputers         *int             `json:"min_computers,omitempty"`
	MaxComputers         *int             `json:"max_computers,omitempty"`
	MinRAMGB             *float64         `json:"min_ram_gb,omitempty"`
	MinStorageGB         *float64         `json:"min_storage_gb,omitempty"`
	MinStorageUsePercent *float64         `json:"min_storage_use_percent,omitempty"`
	Freshness            domain.Freshness `json:"freshness,omitempty"`
}

// DomainTerms 拆解逗號分隔的關鍵字，轉小寫並去掉空白項
func DomainTerms(raw string) []string {
	var terms []string
	for _, part := range strings.Split(raw, ",") {
		if term := strings.ToLower(strings.TrimSpace(part)); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func matchesAnyTerm(value string, terms []string) bool {
	value = strings.ToLower(value)
	for _, term := range terms {
		if strings.Contains(value, term) {
			return true
		}
	}
	return false
}

// FilterCertificates 各條件之間為 AND。
// 「即將到期」與「已過期」兩個勾選是 OR：有勾任一個時結果為兩個子集合的聯集 (以 ID 去重)，
// 都沒勾則完全不依到期狀態篩選。
func FilterCertificates(all []domain.Certificate, f CertificateFilter, now time.Time) []domain.Certificate {
	terms := DomainTerms(f.Domains)

	out := make([]domain.Certificate, 0, len(all))
	for _, c := range all {
		if !matchesCertificate(c, f, terms) {
			continue
		}
		out = append(out, c)
	}

	if !f.IncludeExpiring && !f.IncludeExpired {
		return out
	}

	var expiring, expired []domain.Certificate
	for _, c := range out {
		_, urgency := insight.ClassifyPtr(c.ExpirationDate, now)
		if f.IncludeExpiring && urgency.Expiring() {
			expiring = append(expiring, c)
		}
		if f.IncludeExpired && urgency == domain.UrgencyExpired {
			expired = append(expired, c)
		}
	}
	return unionByID(out, expiring, expired)
}

// unionByID 依 base 的原始順序輸出出現在任一子集合的項目，每個 ID 只出現一次
func unionByID(base []domain.Certificate, subsets ...[]domain.Certificate) []domain.Certificate {
	keep := make(map[string]bool)
	for _, subset := range subsets {
		for _, c := range subset {
			keep[certificateKey(c)] = true
		}
	}

	out := make([]domain.Certificate, 0, len(keep))
	for _, c := range base {
		key := certificateKey(c)
		if keep[key] {
			out = append(out, c)
			delete(keep, key)
		}
	}
	return out
}

// 尚未入庫的資料沒有 ID，退而用域名識別
func certificateKey(c domain.Certificate) string {
	if !c.ID.IsZero() {
		return c.ID.Hex()
	}
	return "domain:" + c.Domain
}

func matchesCertificate(c domain.Certificate, f CertificateFilter, terms []string) bool {
	if f.ExpirationFrom != nil || f.ExpirationTo != nil {
		if c.ExpirationDate == nil {
			return false
		}
		if f.ExpirationFrom != nil && c.ExpirationDate.Before(*f.ExpirationFrom) {
			return false
		}
		if f.ExpirationTo != nil && c.ExpirationDate.After(*f.ExpirationTo) {
			return false
		}
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Status != "" && !strings.EqualFold(strings.TrimSpace(c.Status), strings.TrimSpace(f.Status)) {
		return false
	}
	if len(terms) > 0 && !matchesAnyTerm(c.Domain, terms) {
		return false
	}
	return true
}

// FilterClients 各條件之間為 AND
func FilterClients(all []domain.Client, f ClientFilter, currentYear int) []domain.Client {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.Client, 0, len(all))
	for _, c := range all {
		if f.ActiveOnly && !c.IsActive {
			continue
		}
		if search != "" && !matchesAnyTerm(c.Name+" "+c.ContactName+" "+c.ContactEmail, []string{search}) {
			continue
		}
		if !matchesInfrastructure(c.Infrastructure, f, currentYear) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesInfrastructure(infra *domain.Infrastructure, f ClientFilter, currentYear int) bool {
	needsInfra := f.HasInfrastructure || f.MinComputers != nil || f.MaxComputers != nil ||
		f.MinRAMGB != nil || f.MinStorageGB != nil || f.MinStorageUsePercent != nil
	if infra == nil {
		if needsInfra {
			return false
		}
		// 沒有設備資料的客戶，其執行檔視為 UNDATED
		return f.Freshness == "" || f.Freshness == domain.FreshnessUndated
	}

	if f.MinComputers != nil && (infra.ComputerCount == nil || *infra.ComputerCount < *f.MinComputers) {
		return false
	}
	if f.MaxComputers != nil && (infra.ComputerCount == nil || *infra.ComputerCount > *f.MaxComputers) {
		return false
	}
	if f.MinRAMGB != nil && (infra.RAMTotalGB == nil || *infra.RAMTotalGB < *f.MinRAMGB) {
		return false
	}
	if f.MinStorageGB != nil && (infra.StorageTotalGB == nil || *infra.StorageTotalGB < *f.MinStorageGB) {
		return false
	}
	if f.MinStorageUsePercent != nil {
		p, ok := infra.StorageUsagePercent()
		if !ok || p < *f.MinStorageUsePercent {
			return false
		}
	}
	if f.Freshness != "" {
		_, bucket := insight.ResolveFreshness(insight.ExecutableInfo{
			LastUpdate: infra.ExecutableLastUpdate,
			Version:    infra.ExecutableVersion,
		}, currentYear)
		if bucket != f.Freshness {
			return false
		}
	}
	return true
}

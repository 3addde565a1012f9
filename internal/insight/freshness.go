package insight

import (
	"regexp"
	"sort"
	"time"

	"cert-dashboard/internal/domain"
)

// 版本字串中的 DD/MM/YYYY
var versionDatePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)

const versionDateLayout = "02/01/2006"

// ExecutableInfo 推算執行檔日期所需的兩個來源
type ExecutableInfo struct {
	LastUpdate *time.Time
	Version    string
}

func executableInfo(infra *domain.Infrastructure) ExecutableInfo {
	if infra == nil {
		return ExecutableInfo{}
	}
	return ExecutableInfo{LastUpdate: infra.ExecutableLastUpdate, Version: infra.ExecutableVersion}
}

// VersionDate 取版本字串中第一個 DD/MM/YYYY，日期不合法 (e.g. 31/02) 則視為沒有
func VersionDate(version string) (time.Time, bool) {
	match := versionDatePattern.FindString(version)
	if match == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(versionDateLayout, match)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ResolveFreshness 決定執行檔的「實際最後更新日」並分組。
// 明確的更新時間優先；版本字串內的日期若更晚則覆蓋它。
func ResolveFreshness(info ExecutableInfo, currentYear int) (*time.Time, domain.Freshness) {
	var candidate *time.Time
	if info.LastUpdate != nil && !info.LastUpdate.IsZero() {
		t := *info.LastUpdate
		candidate = &t
	}

	if info.Version != "" {
		if d, ok := VersionDate(info.Version); ok && (candidate == nil || d.After(*candidate)) {
			candidate = &d
		}
	}

	if candidate == nil {
		return nil, domain.FreshnessUndated
	}

	switch year := candidate.Year(); {
	case year > currentYear:
		return candidate, domain.FreshnessFuture
	case year == currentYear:
		return candidate, domain.FreshnessRecent
	default:
		return candidate, domain.FreshnessOutdated
	}
}

// ViewClient 附上推算結果與資源警告
func ViewClient(c domain.Client, currentYear int) domain.ClientView {
	resolved, bucket := ResolveFreshness(executableInfo(c.Infrastructure), currentYear)
	return domain.ClientView{
		Client:                 c,
		ExecutableResolvedDate: resolved,
		ExecutableFreshness:    bucket,
		Warnings:               c.Infrastructure.Warnings(),
	}
}

func ViewClients(clients []domain.Client, currentYear int) []domain.ClientView {
	views := make([]domain.ClientView, 0, len(clients))
	for _, c := range clients {
		views = append(views, ViewClient(c, currentYear))
	}
	return views
}

// Overview 建立「最近更新」與「過期版本」兩個面板。
// 只看有填 Infrastructure 的客戶；FUTURE 不進任何面板，只回報數量。
func Overview(clients []domain.Client, currentYear int) domain.FreshnessOverview {
	overview := domain.FreshnessOverview{
		Recent:   []domain.ClientView{},
		Outdated: []domain.ClientView{},
	}
	for _, c := range clients {
		if c.Infrastructure == nil {
			continue
		}
		v := ViewClient(c, currentYear)
		switch {
		case v.ExecutableFreshness == domain.FreshnessRecent:
			overview.Recent = append(overview.Recent, v)
		case v.ExecutableFreshness.InOutdatedPanel():
			overview.Outdated = append(overview.Outdated, v)
		default:
			overview.FutureCount++
		}
	}

	// 最近更新的排最前面
	sort.SliceStable(overview.Recent, func(i, j int) bool {
		return overview.Recent[i].ExecutableResolvedDate.After(*overview.Recent[j].ExecutableResolvedDate)
	})
	return overview
}

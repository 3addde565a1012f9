package domain

// Breakdown 單一分類的數量與百分比
type Breakdown struct {
	Key     string `json:"key"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

type CertificateSummary struct {
	Total        int `json:"total"`
	Valid        int `json:"valid"`
	ExpiringSoon int `json:"expiring_soon"`
	Expired      int `json:"expired"`
	Unknown      int `json:"unknown"`

	ValidPercent        int `json:"valid_percent"`
	ExpiringSoonPercent int `json:"expiring_soon_percent"`
	ExpiredPercent      int `json:"expired_percent"`

	ByType    []Breakdown `json:"by_type"`
	ByStatus  []Breakdown `json:"by_status"`
	ByUrgency []Breakdown `json:"by_urgency"`
}

type ClientSummary struct {
	Total              int `json:"total"`
	Active             int `json:"active"`
	Inactive           int `json:"inactive"`
	WithInfrastructure int `json:"with_infrastructure"`

	ExecutableRecent   int `json:"executable_recent"`
	ExecutableOutdated int `json:"executable_outdated"` // 包含 UNDATED
	ExecutableUndated  int `json:"executable_undated"`
	ExecutableFuture   int `json:"executable_future"`

	RecentPercent   int `json:"recent_percent"`
	OutdatedPercent int `json:"outdated_percent"`

	TotalComputers      int     `json:"total_computers"`
	TotalServers        int     `json:"total_servers"`
	TotalRAMGB          float64 `json:"total_ram_gb"`
	TotalStorageGB      float64 `json:"total_storage_gb"`
	AvgRAMUsagePercent  int     `json:"avg_ram_usage_percent"`
	AvgStorageUsagePerc int     `json:"avg_storage_usage_percent"`
}

// FreshnessOverview 儀表板的兩個面板
type FreshnessOverview struct {
	Recent      []ClientView `json:"recent"`
	Outdated    []ClientView `json:"outdated"`
	FutureCount int          `json:"future_count"`
}

package domain

// Urgency 憑證到期的緊急程度 (全系統唯一一張分級表)
type Urgency string

const (
	UrgencyExpired  Urgency = "EXPIRED"
	UrgencyCritical Urgency = "CRITICAL"
	UrgencyWarning  Urgency = "WARNING"
	UrgencySafe     Urgency = "SAFE"
	UrgencyUnknown  Urgency = "UNKNOWN" // 缺少過期日
)

// Urgencies 依嚴重程度排列，統計輸出時使用固定順序
var Urgencies = []Urgency{UrgencyExpired, UrgencyCritical, UrgencyWarning, UrgencySafe, UrgencyUnknown}

// Expiring 是否屬於「即將到期」(CRITICAL 或 WARNING)
func (u Urgency) Expiring() bool {
	return u == UrgencyCritical || u == UrgencyWarning
}

// Freshness 客戶端執行檔的更新狀態
type Freshness string

const (
	FreshnessRecent   Freshness = "RECENT"
	FreshnessOutdated Freshness = "OUTDATED"
	FreshnessUndated  Freshness = "UNDATED" // 找不到任何可用日期，畫面上與 OUTDATED 同組
	FreshnessFuture   Freshness = "FUTURE"  // 日期晚於今年，兩個面板都不顯示
)

// InOutdatedPanel 是否歸入「過期版本」面板
func (f Freshness) InOutdatedPanel() bool {
	return f == FreshnessOutdated || f == FreshnessUndated
}

package domain

import "time"

// Settings 全域設定，只存一筆
type Settings struct {
	// Webhook 設定
	WebhookEnabled  bool   `bson:"webhook_enabled" json:"webhook_enabled"`
	WebhookURL      string `bson:"webhook_url" json:"webhook_url"`
	WebhookUser     string `bson:"webhook_user" json:"webhook_user"`
	WebhookPassword string `bson:"webhook_password" json:"webhook_password"`

	// Telegram 設定
	TelegramEnabled  bool   `bson:"telegram_enabled" json:"telegram_enabled"`
	TelegramBotToken string `bson:"telegram_bot_token" json:"telegram_bot_token"`
	TelegramChatID   string `bson:"telegram_chat_id" json:"telegram_chat_id"`

	// 自定義模板，空字串則使用系統預設模板
	ExpiryTemplate string `bson:"expiry_template" json:"expiry_template"`

	// 到期檢查
	AlertWithinDays int    `bson:"alert_within_days" json:"alert_within_days"`
	CheckEnabled    bool   `bson:"check_enabled" json:"check_enabled"`
	CheckSchedule   string `bson:"check_schedule" json:"check_schedule"` // Cron 表達式 (e.g. "0 8 * * *")

	// WEB_PAGE 憑證即時掃描
	ScanEnabled  bool   `bson:"scan_enabled" json:"scan_enabled"`
	ScanSchedule string `bson:"scan_schedule" json:"scan_schedule"`

	// Cloudflare 主機名稱探索
	SyncEnabled  bool   `bson:"sync_enabled" json:"sync_enabled"`
	SyncSchedule string `bson:"sync_schedule" json:"sync_schedule"`

	// 操作通知
	NotifyOnAdd    bool `bson:"notify_on_add" json:"notify_on_add"`
	NotifyOnDelete bool `bson:"notify_on_delete" json:"notify_on_delete"`
	NotifyOnRenew  bool `bson:"notify_on_renew" json:"notify_on_renew"`
	NotifyOnImport bool `bson:"notify_on_import" json:"notify_on_import"`

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	DefaultAlertWithinDays = 30
	DefaultCheckSchedule   = "0 8 * * *"
	DefaultScanSchedule    = "30 2 * * *"
	DefaultSyncSchedule    = "0 2 * * *"
)

// DefaultSettings 資料庫沒有設定時的初始值
func DefaultSettings() Settings {
	return Settings{
		AlertWithinDays: DefaultAlertWithinDays,
		CheckEnabled:    true,
		CheckSchedule:   DefaultCheckSchedule,
		ScanSchedule:    DefaultScanSchedule,
		SyncSchedule:    DefaultSyncSchedule,
		NotifyOnRenew:   true,
	}
}

// Normalize 補上缺漏的預設值
func (s *Settings) Normalize() {
	if s.AlertWithinDays <= 0 {
		s.AlertWithinDays = DefaultAlertWithinDays
	}
	if s.CheckSchedule == "" {
		s.CheckSchedule = DefaultCheckSchedule
	}
	if s.ScanSchedule == "" {
		s.ScanSchedule = DefaultScanSchedule
	}
	if s.SyncSchedule == "" {
		s.SyncSchedule = DefaultSyncSchedule
	}
}

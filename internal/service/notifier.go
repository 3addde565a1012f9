package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"text/template"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/insight"
	"cert-dashboard/internal/repository"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// 同一張憑證 24 小時內只告警一次
const alertCooldown = 24 * time.Hour

const defaultTelegramAPI = "https://api.telegram.org"

// EventType 操作通知類型
type EventType string

const (
	EventAdd    EventType = "ADD"
	EventDelete EventType = "DELETE"
	EventRenew  EventType = "RENEW"
	EventImport EventType = "IMPORT"
)

// 預設模板 (Fallback)
const (
	defaultExpiryTpl = "⚠️ [憑證到期告警]\n域名: {{.Domain}}\n類型: {{.Type}}\n等級: {{.Urgency}}\n剩餘: {{.Days}} 天\n到期: {{.ExpiryDate}}"
	defaultAddTpl    = "✨ [新增憑證]\n對象: {{.Domain}}\n詳情: {{.Details}}"
	defaultDeleteTpl = "🗑 [刪除憑證]\n對象: {{.Domain}}\n詳情: {{.Details}}"
	defaultRenewTpl  = "♻️ <b>[憑證已更新]</b>\n\n🌐 域名: <b>{{.Domain}}</b>\n{{.Details}}"
	defaultImportTpl = "📦 [CSV 匯入完成]\n{{.Details}}"
)

// ExpiryTemplateData 到期告警模板可用的變數，例如 {{.Domain}}
type ExpiryTemplateData struct {
	Domain      string
	Type        string
	Status      string
	Description string
	Urgency     string
	Days        int
	ExpiryDate  string
}

// OperationTemplateData 操作通知模板可用的變數
type OperationTemplateData struct {
	Action  string
	Domain  string
	Details string
	Time    string
}

// htmlEscaped 給 Telegram (parse_mode=HTML) 用，模板本身的標籤保留
func (d ExpiryTemplateData) htmlEscaped() ExpiryTemplateData {
	d.Domain = html.EscapeString(d.Domain)
	d.Type = html.EscapeString(d.Type)
	d.Status = html.EscapeString(d.Status)
	d.Description = html.EscapeString(d.Description)
	d.Urgency = html.EscapeString(d.Urgency)
	d.ExpiryDate = html.EscapeString(d.ExpiryDate)
	return d
}

func (d OperationTemplateData) htmlEscaped() OperationTemplateData {
	d.Action = html.EscapeString(d.Action)
	d.Domain = html.EscapeString(d.Domain)
	d.Details = html.EscapeString(d.Details)
	d.Time = html.EscapeString(d.Time)
	return d
}

type telegramJob struct {
	Token   string
	ChatID  string
	Message string
}

type webhookJob struct {
	URL      string
	Message  string
	User     string
	Password string
}

type NotifierService struct {
	Settings      repository.SettingsRepository
	Certs         repository.CertificateRepository
	Notifications repository.NotificationRepository

	httpClient   *http.Client
	telegramAPI  string
	sendInterval time.Duration
	tgQueue      chan telegramJob
	webhookQueue chan webhookJob
}

func NewNotifierService(settings repository.SettingsRepository, certs repository.CertificateRepository, notifications repository.NotificationRepository) *NotifierService {
	// Telegram 限速約每秒一則
	return newNotifierService(settings, certs, notifications, defaultTelegramAPI, 1100*time.Millisecond)
}

func newNotifierService(settings repository.SettingsRepository, certs repository.CertificateRepository, notifications repository.NotificationRepository, telegramAPI string, interval time.Duration) *NotifierService {
	n := &NotifierService{
		Settings:      settings,
		Certs:         certs,
		Notifications: notifications,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		telegramAPI:   telegramAPI,
		sendInterval:  interval,
		tgQueue:       make(chan telegramJob, 1000),
		webhookQueue:  make(chan webhookJob, 1000),
	}

	// 啟動兩個背景發送 Worker
	go n.startTelegramWorker()
	go n.startWebhookWorker()

	return n
}

func (n *NotifierService) startTelegramWorker() {
	logrus.Info("[Notifier] Telegram Worker 已啟動，準備處理訊息佇列...")

	for job := range n.tgQueue {
		if err := n.sendTelegram(job.Token, job.ChatID, job.Message); err != nil {
			logrus.Errorf("[Notifier] Telegram 發送失敗: %v", err)
		}
		time.Sleep(n.sendInterval)
	}
}

func (n *NotifierService) startWebhookWorker() {
	logrus.Info("[Notifier] Webhook Worker 已啟動...")

	for job := range n.webhookQueue {
		if err := n.sendWebhook(job.URL, job.Message, job.User, job.Password); err != nil {
			logrus.Errorf("[Notifier] Webhook 發送失敗: %v", err)
		}
		time.Sleep(n.sendInterval)
	}
}

// ShouldAlert 判斷這張憑證現在是否需要告警：
// 已過期一定告警；其餘在 alertWithinDays 天內才告警；同一張 24 小時內不重複。
func ShouldAlert(v domain.CertificateView, alertWithinDays int, now time.Time) bool {
	if strings.EqualFold(v.Status, domain.StatusInactive) {
		return false
	}
	switch {
	case v.Urgency == domain.UrgencyUnknown:
		return false
	case v.Urgency == domain.UrgencyExpired:
	case v.DaysRemaining > alertWithinDays:
		return false
	}
	if !v.LastAlertAt.IsZero() && now.Sub(v.LastAlertAt) < alertCooldown {
		return false
	}
	return true
}

// CheckAndNotify 檢查單張憑證，需要時寫入站內通知並推送到外部頻道。
// 回傳是否有發出告警。
func (n *NotifierService) CheckAndNotify(ctx context.Context, cert domain.Certificate, settings *domain.Settings, now time.Time) (bool, error) {
	v := insight.ViewCertificate(cert, now)
	if !ShouldAlert(v, settings.AlertWithinDays, now) {
		return false, nil
	}

	data := ExpiryTemplateData{
		Domain:      cert.Domain,
		Type:        string(cert.Type),
		Status:      cert.Status,
		Description: cert.Description,
		Urgency:     string(v.Urgency),
		Days:        v.DaysRemaining,
		ExpiryDate:  cert.ExpirationDate.Format("2006-01-02"),
	}

	// 優先使用設定值，無設定則用預設
	tmplStr := settings.ExpiryTemplate
	if tmplStr == "" {
		tmplStr = defaultExpiryTpl
	}
	msg, err := renderTemplate(tmplStr, data)
	tgMsg, _ := renderTemplate(tmplStr, data.htmlEscaped())
	if err != nil {
		logrus.Errorf("模板渲染失敗: %v", err)
		msg = fmt.Sprintf("⚠️ 告警: %s %s (剩餘 %d 天，模板錯誤)", cert.Domain, v.Urgency, v.DaysRemaining)
		tgMsg = html.EscapeString(msg)
	}

	err = n.Notifications.Create(ctx, domain.Notification{
		CertificateID: cert.ID,
		Domain:        cert.Domain,
		Urgency:       v.Urgency,
		DaysRemaining: v.DaysRemaining,
		Message:       msg,
		CreatedAt:     now,
	})
	if err != nil {
		return false, fmt.Errorf("save notification: %w", err)
	}

	n.sendToChannels(settings, msg, tgMsg)

	// 更新最後告警時間
	if err := n.Certs.UpdateAlertTime(ctx, cert.ID, now); err != nil {
		logrus.Warnf("[Notifier] 無法更新告警時間 %s: %v", cert.Domain, err)
	}
	return true, nil
}

// NotifyOperation 發送操作類型的通知，未開啟的事件直接略過
func (n *NotifierService) NotifyOperation(ctx context.Context, eventType EventType, domainName, details string) {
	settings, err := n.Settings.Get(ctx)
	if err != nil || (!settings.TelegramEnabled && !settings.WebhookEnabled) {
		return
	}

	var enabled bool
	var tmplStr, actionName string

	switch eventType {
	case EventAdd:
		enabled, tmplStr, actionName = settings.NotifyOnAdd, defaultAddTpl, "新增憑證"
	case EventDelete:
		enabled, tmplStr, actionName = settings.NotifyOnDelete, defaultDeleteTpl, "刪除憑證"
	case EventRenew:
		enabled, tmplStr, actionName = settings.NotifyOnRenew, defaultRenewTpl, "憑證更新"
	case EventImport:
		enabled, tmplStr, actionName = settings.NotifyOnImport, defaultImportTpl, "CSV 匯入"
	default:
		return // 未知事件不處理
	}

	if !enabled {
		return
	}

	data := OperationTemplateData{
		Action:  actionName,
		Domain:  domainName,
		Details: details,
		Time:    time.Now().Format("2006-01-02 15:04:05"),
	}
	msg, err := renderTemplate(tmplStr, data)
	if err != nil {
		logrus.Errorf("操作通知模板錯誤: %v", err)
		return
	}
	tgMsg, err := renderTemplate(tmplStr, data.htmlEscaped())
	if err != nil {
		tgMsg = html.EscapeString(msg)
	}
	n.sendToChannels(settings, msg, tgMsg)
}

// SendTestMessage 直接同步送出 (不走佇列)，讓設定頁可以立即看到錯誤
func (n *NotifierService) SendTestMessage(ctx context.Context, settings domain.Settings) error {
	msg := "🔔 [測試] 這是一條來自 Cert Dashboard 的測試告警訊息！"

	var errs []error
	sent := 0
	if settings.WebhookEnabled && settings.WebhookURL != "" {
		sent++
		if err := n.sendWebhook(settings.WebhookURL, msg, settings.WebhookUser, settings.WebhookPassword); err != nil {
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		}
	}
	if settings.TelegramEnabled && settings.TelegramBotToken != "" && settings.TelegramChatID != "" {
		sent++
		if err := n.sendTelegram(settings.TelegramBotToken, settings.TelegramChatID, msg); err != nil {
			errs = append(errs, fmt.Errorf("telegram: %w", err))
		}
	}

	if sent == 0 {
		return errors.New("no notification channel is enabled")
	}
	return errors.Join(errs...)
}

func renderTemplate(tmplStr string, data any) (string, error) {
	t, err := template.New("notify").Parse(tmplStr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sendToChannels 放入佇列，不阻塞主流程；佇列滿了就丟棄。
// tgMsg 是已做 HTML 跳脫的版本，只給 Telegram。
func (n *NotifierService) sendToChannels(settings *domain.Settings, msg, tgMsg string) {
	if settings.TelegramEnabled && settings.TelegramBotToken != "" && settings.TelegramChatID != "" {
		select {
		case n.tgQueue <- telegramJob{Token: settings.TelegramBotToken, ChatID: settings.TelegramChatID, Message: tgMsg}:
			logrus.Infof("📥 [Queue] Telegram 訊息已入列 (目前堆積: %d)", len(n.tgQueue))
		default:
			logrus.Warn("🔥 [Queue] Telegram 通知佇列已滿，丟棄訊息")
		}
	}

	if settings.WebhookEnabled && settings.WebhookURL != "" {
		select {
		case n.webhookQueue <- webhookJob{URL: settings.WebhookURL, Message: msg, User: settings.WebhookUser, Password: settings.WebhookPassword}:
			logrus.Infof("📥 [Queue] Webhook 訊息已入列 (目前堆積: %d)", len(n.webhookQueue))
		default:
			logrus.Warn("🔥 [Queue] Webhook 通知佇列已滿，丟棄訊息")
		}
	}
}

// sendWebhook 相容 Slack/Teams/Discord 的 {"text": ...} 格式
func (n *NotifierService) sendWebhook(url, message, user, password string) error {
	body, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// 有設定帳密才加 Basic Auth
	if user != "" || password != "" {
		req.SetBasicAuth(user, password)
	}
	return n.do(req)
}

func (n *NotifierService) sendTelegram(token, chatID, message string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       message,
		"parse_mode": "HTML",
	})
	if err != nil {
		return err
	}

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", n.telegramAPI, token)
	req, err := http.NewRequest(http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return n.do(req)
}

func (n *NotifierService) do(req *http.Request) error {
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status code %d", resp.StatusCode)
	}
	return nil
}

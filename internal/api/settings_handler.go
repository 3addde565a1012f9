package api

import (
	"net/http"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/repository"
	"cert-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SettingsHandler struct {
	Repo     repository.SettingsRepository
	Notifier *service.NotifierService
	Cron     *service.CronService
}

func NewSettingsHandler(r repository.SettingsRepository, n *service.NotifierService, cron *service.CronService) *SettingsHandler {
	return &SettingsHandler{Repo: r, Notifier: n, Cron: cron}
}

// GetSettings 設定與目前排程的下次執行時間
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.Repo.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings, "jobs": h.Cron.Jobs()})
}

// SaveSettings 以目前設定為基底合併前端傳來的欄位，沒傳的欄位保留原值
func (h *SettingsHandler) SaveSettings(c *gin.Context) {
	ctx := c.Request.Context()

	current, err := h.Repo.Get(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if !bindJSON(c, current) {
		return
	}
	if current.AlertWithinDays < 0 {
		respondError(c, invalidField("alert_within_days", "gte"))
		return
	}
	current.Normalize()

	schedules := map[string]string{
		"check_schedule": current.CheckSchedule,
		"scan_schedule":  current.ScanSchedule,
		"sync_schedule":  current.SyncSchedule,
	}
	for field, spec := range schedules {
		if err := service.ValidateSchedule(spec); err != nil {
			respondError(c, invalidField(field, "cron"))
			return
		}
	}

	if err := h.Repo.Save(ctx, *current); err != nil {
		respondError(c, err)
		return
	}

	// 通知 Cron 重載排程
	h.Cron.ReloadJobs(ctx)

	logrus.Infof("設定已更新 | Check: %v | Scan: %v | Sync: %v | Telegram: %v | Webhook: %v",
		current.CheckEnabled, current.ScanEnabled, current.SyncEnabled, current.TelegramEnabled, current.WebhookEnabled)
	c.JSON(http.StatusOK, gin.H{"message": "設定已儲存", "data": current, "jobs": h.Cron.Jobs()})
}

// ResetSettings 清除設定，回到預設值
func (h *SettingsHandler) ResetSettings(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.Repo.Clear(ctx); err != nil {
		respondError(c, err)
		return
	}
	h.Cron.ReloadJobs(ctx)

	defaults := domain.DefaultSettings()
	c.JSON(http.StatusOK, gin.H{"message": "設定已重設", "data": defaults})
}

// TestNotification 以傳入的設定 (尚未儲存) 發送測試訊息
func (h *SettingsHandler) TestNotification(c *gin.Context) {
	var settings domain.Settings
	if !bindJSON(c, &settings) {
		return
	}
	if err := h.Notifier.SendTestMessage(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "測試訊息發送成功"})
}

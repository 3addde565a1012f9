package api

import (
	"net/http"
	"testing"

	"cert-dashboard/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("root", domain.RoleAdmin)

	w := env.do(http.MethodGet, "/api/v1/settings", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var settings domain.Settings
	decodeData(t, w, &settings)
	assert.Equal(t, domain.DefaultAlertWithinDays, settings.AlertWithinDays)

	w = env.do(http.MethodPut, "/api/v1/settings", admin, gin.H{"check_schedule": "every day"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cron", decode(t, w).Fields["check_schedule"])

	// 只傳部分欄位，其餘保留
	w = env.do(http.MethodPut, "/api/v1/settings", admin, gin.H{"alert_within_days": 14, "scan_enabled": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := env.settings.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 14, stored.AlertWithinDays)
	assert.True(t, stored.ScanEnabled)
	assert.True(t, stored.CheckEnabled)
	assert.Equal(t, domain.DefaultCheckSchedule, stored.CheckSchedule)

	var saved struct {
		Jobs map[string]any `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Len(t, saved.Jobs, 2)

	w = env.do(http.MethodDelete, "/api/v1/settings", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stored, err = env.settings.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAlertWithinDays, stored.AlertWithinDays)
}

func TestTestNotification_NoChannel(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("root", domain.RoleAdmin)

	w := env.do(http.MethodPost, "/api/v1/settings/test", admin, gin.H{"telegram_enabled": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w).Error)
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("viewer", domain.RoleViewer)
	ctx := t.Context()
	for _, d := range []string{"a.com", "b.com"} {
		require.NoError(t, env.notes.Create(ctx, domain.Notification{Domain: d, Urgency: domain.UrgencyCritical}))
	}

	w := env.do(http.MethodGet, "/api/v1/notifications?unread=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.Notification
	decodeData(t, w, &list)
	require.Len(t, list, 2)

	w = env.do(http.MethodPost, "/api/v1/notifications/"+list[0].ID.Hex()+"/read", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	n, _ := env.notes.UnreadCount(ctx)
	assert.Equal(t, int64(1), n)

	w = env.do(http.MethodPost, "/api/v1/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	n, _ = env.notes.UnreadCount(ctx)
	assert.Zero(t, n)

	w = env.do(http.MethodDelete, "/api/v1/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, env.do(http.MethodGet, "/api/v1/notifications", token, nil), &list)
	assert.Empty(t, list)
}

func TestDiscovery_Disabled(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("manager", domain.RoleManager)

	w := env.do(http.MethodPost, "/api/v1/discovery/cloudflare", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

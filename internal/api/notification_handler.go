package api

import (
	"net/http"
	"strconv"

	"cert-dashboard/internal/repository"

	"github.com/gin-gonic/gin"
)

const defaultNotificationLimit = 50

type NotificationHandler struct {
	Repo repository.NotificationRepository
}

func NewNotificationHandler(r repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{Repo: r}
}

// ListNotifications ?unread=true 只列未讀，limit 預設 50
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultNotificationLimit)), 10, 64)
	if err != nil || limit <= 0 {
		limit = defaultNotificationLimit
	}

	items, err := h.Repo.List(ctx, c.Query("unread") == "true", limit)
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.Repo.UnreadCount(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "unread": unread})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.Repo.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已標記為已讀"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.Repo.MarkAllRead(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "全部已讀", "updated": n})
}

func (h *NotificationHandler) ClearNotifications(c *gin.Context) {
	n, err := h.Repo.Clear(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "通知已清除", "deleted": n})
}

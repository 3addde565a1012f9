package api

import (
	"net/http"

	"cert-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

type DiscoveryHandler struct {
	Cloudflare *service.CloudflareService // 未設定 token 時為 nil
}

func NewDiscoveryHandler(cf *service.CloudflareService) *DiscoveryHandler {
	return &DiscoveryHandler{Cloudflare: cf}
}

// SyncCloudflare 手動觸發 Cloudflare 主機名稱探索
func (h *DiscoveryHandler) SyncCloudflare(c *gin.Context) {
	if h.Cloudflare == nil {
		respondError(c, service.ErrDiscoveryDisabled)
		return
	}

	stats, err := h.Cloudflare.Discover(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Cloudflare 探索失敗: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "同步完成", "data": stats})
}

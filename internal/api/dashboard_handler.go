package api

import (
	"net/http"
	"sort"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/insight"
	"cert-dashboard/internal/repository"

	"github.com/gin-gonic/gin"
)

// 儀表板「需注意」清單最多顯示筆數
const attentionLimit = 10

type DashboardHandler struct {
	Certs   repository.CertificateRepository
	Clients repository.ClientRepository
}

func NewDashboardHandler(certs repository.CertificateRepository, clients repository.ClientRepository) *DashboardHandler {
	return &DashboardHandler{Certs: certs, Clients: clients}
}

// CertificateStats 憑證統計與最需要處理的憑證
func (h *DashboardHandler) CertificateStats(c *gin.Context) {
	certs, err := h.Certs.List(c.Request.Context(), repository.CertificateQuery{})
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	attention := []domain.CertificateView{}
	for _, v := range insight.ViewCertificates(certs, now) {
		if v.Urgency == domain.UrgencyExpired || v.Urgency.Expiring() {
			attention = append(attention, v)
		}
	}
	sort.SliceStable(attention, func(i, j int) bool {
		return attention[i].DaysRemaining < attention[j].DaysRemaining
	})
	if len(attention) > attentionLimit {
		attention = attention[:attentionLimit]
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"summary":   insight.SummarizeCertificates(certs, now),
		"attention": attention,
	}})
}

// ClientStats 啟用中客戶的統計與執行檔新舊面板
func (h *DashboardHandler) ClientStats(c *gin.Context) {
	clients, err := h.Clients.List(c.Request.Context(), repository.ClientQuery{})
	if err != nil {
		respondError(c, err)
		return
	}

	year := time.Now().Year()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"summary":   insight.SummarizeClients(clients, year),
		"freshness": insight.Overview(clients, year),
	}})
}

package api

import (
	"net/http"
	"strings"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/report"
	"cert-dashboard/internal/repository"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	Certs   repository.CertificateRepository
	Clients repository.ClientRepository
}

func NewReportHandler(certs repository.CertificateRepository, clients repository.ClientRepository) *ReportHandler {
	return &ReportHandler{Certs: certs, Clients: clients}
}

type certificateReportQuery struct {
	Format          string `form:"format" binding:"omitempty,oneof=csv json"`
	ExpirationFrom  string `form:"expiration_from"`
	ExpirationTo    string `form:"expiration_to"`
	Type            string `form:"type" binding:"omitempty,oneof=APP_MOBILE WEB_PAGE"`
	Status          string `form:"status"`
	Domains         string `form:"domains"`
	IncludeExpiring bool   `form:"include_expiring"`
	IncludeExpired  bool   `form:"include_expired"`
}

type clientReportQuery struct {
	Format               string   `form:"format" binding:"omitempty,oneof=csv json"`
	Search               string   `form:"search"`
	ActiveOnly           bool     `form:"active_only"`
	HasInfrastructure    bool     `form:"has_infrastructure"`
	MinComputers         *int     `form:"min_computers"`
	MaxComputers         *int     `form:"max_computers"`
	MinRAMGB             *float64 `form:"min_ram_gb"`
	MinStorageGB         *float64 `form:"min_storage_gb"`
	MinStorageUsePercent *float64 `form:"min_storage_use_percent"`
	Freshness            string   `form:"freshness" binding:"omitempty,oneof=RECENT OUTDATED UNDATED FUTURE"`
}

// parseBound 解析日期區間的一端。endOfDay 為 true 且只給日期時，
// 取當天最後一刻，讓上限包含整天。
func parseBound(field, raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := report.ParseDate(raw)
	if err != nil {
		return nil, invalidField(field, "date")
	}
	if _, perr := time.Parse(time.RFC3339, raw); endOfDay && perr != nil {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

func (q certificateReportQuery) filter() (report.CertificateFilter, error) {
	from, err := parseBound("expiration_from", q.ExpirationFrom, false)
	if err != nil {
		return report.CertificateFilter{}, err
	}
	to, err := parseBound("expiration_to", q.ExpirationTo, true)
	if err != nil {
		return report.CertificateFilter{}, err
	}
	return report.CertificateFilter{
		ExpirationFrom:  from,
		ExpirationTo:    to,
		Type:            domain.CertificateType(q.Type),
		Status:          strings.TrimSpace(q.Status),
		Domains:         q.Domains,
		IncludeExpiring: q.IncludeExpiring,
		IncludeExpired:  q.IncludeExpired,
	}, nil
}

func (q clientReportQuery) filter() report.ClientFilter {
	return report.ClientFilter{
		Search:               strings.TrimSpace(q.Search),
		ActiveOnly:           q.ActiveOnly,
		HasInfrastructure:    q.HasInfrastructure,
		MinComputers:         q.MinComputers,
		MaxComputers:         q.MaxComputers,
		MinRAMGB:             q.MinRAMGB,
		MinStorageGB:         q.MinStorageGB,
		MinStorageUsePercent: q.MinStorageUsePercent,
		Freshness:            domain.Freshness(q.Freshness),
	}
}

// canExport 下載檔案需要 export_reports
func canExport(c *gin.Context, format string) bool {
	if format == "" {
		return true
	}
	claims := currentClaims(c)
	if claims == nil || !claims.Role.Has(domain.CapExportReports) {
		c.JSON(http.StatusForbidden, gin.H{"error": "權限不足，無法匯出報表"})
		return false
	}
	return true
}

// CertificateReport 未指定 format 時回傳 JSON 預覽
func (h *ReportHandler) CertificateReport(c *gin.Context) {
	var q certificateReportQuery
	if !bindQuery(c, &q) || !canExport(c, q.Format) {
		return
	}
	f, err := q.filter()
	if err != nil {
		respondError(c, err)
		return
	}

	all, err := h.Certs.List(c.Request.Context(), repository.CertificateQuery{Sort: "expiration_asc"})
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	certs := report.FilterCertificates(all, f, now)
	doc := report.CertificatesDocument(certs, f, now)

	switch q.Format {
	case "csv":
		sendFile(c, report.FileName("certificates-report", "csv", now), "text/csv; charset=utf-8", report.CertificatesCSV(certs, now))
	case "json":
		body, err := report.JSON(doc)
		if err != nil {
			respondError(c, err)
			return
		}
		sendFile(c, report.FileName("certificates-report", "json", now), "application/json; charset=utf-8", body)
	default:
		c.JSON(http.StatusOK, gin.H{"data": doc})
	}
}

func (h *ReportHandler) ClientReport(c *gin.Context) {
	var q clientReportQuery
	if !bindQuery(c, &q) || !canExport(c, q.Format) {
		return
	}
	f := q.filter()

	all, err := h.Clients.List(c.Request.Context(), repository.ClientQuery{IncludeInactive: true})
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	clients := report.FilterClients(all, f, now.Year())
	doc := report.ClientsDocument(clients, f, now)

	switch q.Format {
	case "csv":
		sendFile(c, report.FileName("clients-report", "csv", now), "text/csv; charset=utf-8", report.ClientsCSV(clients, now.Year()))
	case "json":
		body, err := report.JSON(doc)
		if err != nil {
			respondError(c, err)
			return
		}
		sendFile(c, report.FileName("clients-report", "json", now), "application/json; charset=utf-8", body)
	default:
		c.JSON(http.StatusOK, gin.H{"data": doc})
	}
}

func sendFile(c *gin.Context, name, contentType string, body []byte) {
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, contentType, body)
}

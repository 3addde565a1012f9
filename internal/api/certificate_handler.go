package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/insight"
	"cert-dashboard/internal/report"
	"cert-dashboard/internal/repository"
	"cert-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 匯入檔案上限
const maxImportSize = 5 << 20

type CertificateHandler struct {
	Repo     repository.CertificateRepository
	Scanner  *service.ScannerService
	Importer *service.ImportService
	Notifier *service.NotifierService
}

func NewCertificateHandler(r repository.CertificateRepository, s *service.ScannerService, i *service.ImportService, n *service.NotifierService) *CertificateHandler {
	return &CertificateHandler{Repo: r, Scanner: s, Importer: i, Notifier: n}
}

type createCertificateRequest struct {
	Domain         string                 `json:"domain" binding:"required"`
	Type           domain.CertificateType `json:"type" binding:"required,oneof=APP_MOBILE WEB_PAGE"`
	Status         string                 `json:"status"`
	Description    string                 `json:"description"`
	ExpirationDate string                 `json:"expiration_date" binding:"required"` // YYYY-MM-DD、RFC3339 或 DD/MM/YYYY
}

type updateCertificateRequest struct {
	Domain         *string                 `json:"domain" binding:"omitempty,min=1"`
	Type           *domain.CertificateType `json:"type" binding:"omitempty,oneof=APP_MOBILE WEB_PAGE"`
	Status         *string                 `json:"status"`
	Description    *string                 `json:"description"`
	ExpirationDate *string                 `json:"expiration_date"`
}

func parseExpiration(raw string) (time.Time, error) {
	t, err := report.ParseDate(raw)
	if err != nil {
		return time.Time{}, invalidField("expiration_date", "date")
	}
	return t, nil
}

// ListCertificates 列表 (search, type, status, sort)
func (h *CertificateHandler) ListCertificates(c *gin.Context) {
	certs, err := h.Repo.List(c.Request.Context(), repository.CertificateQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Type:   domain.CertificateType(c.Query("type")),
		Status: c.Query("status"),
		Sort:   c.Query("sort"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  insight.ViewCertificates(certs, time.Now()),
		"total": len(certs),
	})
}

func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	cert, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": insight.ViewCertificate(*cert, time.Now())})
}

// CreateCertificate 手動新增
func (h *CertificateHandler) CreateCertificate(c *gin.Context) {
	var req createCertificateRequest
	if !bindJSON(c, &req) {
		return
	}
	exp, err := parseExpiration(req.ExpirationDate)
	if err != nil {
		respondError(c, err)
		return
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = domain.StatusActive
	}
	cert, err := h.Repo.Create(c.Request.Context(), domain.Certificate{
		Domain:         strings.ToLower(strings.TrimSpace(req.Domain)),
		Type:           req.Type,
		Status:         status,
		Description:    req.Description,
		ExpirationDate: &exp,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.Notifier.NotifyOperation(c.Request.Context(), service.EventAdd, cert.Domain, fmt.Sprintf("手動新增 (操作者: %s)", actor(c)))
	c.JSON(http.StatusCreated, gin.H{"data": insight.ViewCertificate(*cert, time.Now())})
}

// UpdateCertificate 部分更新，只改有傳的欄位
func (h *CertificateHandler) UpdateCertificate(c *gin.Context) {
	var req updateCertificateRequest
	if !bindJSON(c, &req) {
		return
	}

	patch := domain.CertificatePatch{
		Type:        req.Type,
		Status:      req.Status,
		Description: req.Description,
	}
	if req.Domain != nil {
		d := strings.ToLower(strings.TrimSpace(*req.Domain))
		patch.Domain = &d
	}
	if req.ExpirationDate != nil {
		exp, err := parseExpiration(*req.ExpirationDate)
		if err != nil {
			respondError(c, err)
			return
		}
		patch.ExpirationDate = &exp
	}
	if patch.IsEmpty() {
		respondError(c, errBadRequest)
		return
	}

	cert, err := h.Repo.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": insight.ViewCertificate(*cert, time.Now())})
}

// DeleteCertificate 硬刪除
func (h *CertificateHandler) DeleteCertificate(c *gin.Context) {
	ctx := c.Request.Context()
	cert, err := h.Repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Repo.Delete(ctx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	h.Notifier.NotifyOperation(ctx, service.EventDelete, cert.Domain, fmt.Sprintf("手動刪除 (操作者: %s)", actor(c)))
	c.JSON(http.StatusOK, gin.H{"message": "刪除成功"})
}

// ImportCertificates 上傳 CSV (multipart 欄位 file)
func (h *CertificateHandler) ImportCertificates(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "請上傳 CSV 檔案 (欄位名稱 file)"})
		return
	}
	if fh.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "檔案過大"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.Importer.Import(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// RefreshCertificate 立即連線更新單一網站憑證
func (h *CertificateHandler) RefreshCertificate(c *gin.Context) {
	res, err := h.Scanner.RefreshCertificate(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidID), errors.Is(err, service.ErrNotProbeable):
		respondError(c, err)
		return
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "無法取得線上憑證: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    insight.ViewCertificate(*res.Certificate, time.Now()),
		"probe":   res.Probe,
		"renewed": res.Renewed,
		"changed": res.Changed,
	})
}

// ScanCertificates 在背景掃描全部網站憑證，不阻塞 HTTP Response
func (h *CertificateHandler) ScanCertificates(c *gin.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		logrus.Info("🚀 [Scan] 開始執行手動全量掃描...")
		if _, err := h.Scanner.ScanAll(ctx); err != nil {
			logrus.Errorf("❌ [Scan] 背景掃描失敗: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "掃描任務已在背景啟動"})
}

// actor 目前登入者名稱，用於操作通知
func actor(c *gin.Context) string {
	if claims := currentClaims(c); claims != nil {
		return claims.Username
	}
	return c.ClientIP()
}

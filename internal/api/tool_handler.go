package api

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/insight"
	"cert-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

type ToolHandler struct {
	Scanner *service.ScannerService
}

func NewToolHandler(s *service.ScannerService) *ToolHandler {
	return &ToolHandler{Scanner: s}
}

// CertInfo 解析結果，與資料庫中的憑證使用同一套分級
type CertInfo struct {
	Subject       string         `json:"subject"`
	Issuer        string         `json:"issuer"`
	NotBefore     time.Time      `json:"not_before"`
	NotAfter      time.Time      `json:"not_after"`
	DaysRemaining int            `json:"days_remaining"`
	Urgency       domain.Urgency `json:"urgency"`
	DNSNames      []string       `json:"dns_names"` // SANs
	SerialNumber  string         `json:"serial_number"`
	SignatureAlgo string         `json:"signature_algo"`
	IsCA          bool           `json:"is_ca"`
}

type decodeRequest struct {
	CertContent string `json:"cert_content" binding:"required"` // 使用者貼上的 PEM 文字
}

// DecodeCertificate 解析使用者貼上的 PEM 憑證
func (h *ToolHandler) DecodeCertificate(c *gin.Context) {
	var req decodeRequest
	if !bindJSON(c, &req) {
		return
	}

	info, err := decodePEM(req.CertContent, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": info})
}

func decodePEM(content string, now time.Time) (*CertInfo, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(content)))
	if block == nil {
		return nil, fmt.Errorf("無法解析憑證內容，請確認格式為 PEM (以 -----BEGIN CERTIFICATE----- 開頭)")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("憑證格式錯誤: %w", err)
	}

	subject := cert.Subject.CommonName
	if subject == "" && len(cert.Subject.Organization) > 0 {
		subject = cert.Subject.Organization[0]
	}
	issuer := cert.Issuer.CommonName
	if issuer == "" && len(cert.Issuer.Organization) > 0 {
		issuer = cert.Issuer.Organization[0]
	}

	days, urgency := insight.Classify(cert.NotAfter, now)
	return &CertInfo{
		Subject:       subject,
		Issuer:        issuer,
		NotBefore:     cert.NotBefore,
		NotAfter:      cert.NotAfter,
		DaysRemaining: days,
		Urgency:       urgency,
		DNSNames:      cert.DNSNames,
		SerialNumber:  formatSerial(fmt.Sprintf("%X", cert.SerialNumber)),
		SignatureAlgo: cert.SignatureAlgorithm.String(),
		IsCA:          cert.IsCA,
	}, nil
}

// formatSerial AA:BB:CC...
func formatSerial(s string) string {
	if len(s)%2 == 1 {
		s = "0" + s
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && i%2 == 0 {
			b.WriteRune(':')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Inspect 即時查詢任一主機的 TLS 憑證與網域到期日 (?target=)
func (h *ToolHandler) Inspect(c *gin.Context) {
	result, err := h.Scanner.Inspect(c.Request.Context(), c.Query("target"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

package api

import (
	"net/http"
	"strings"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var allCapabilities = []domain.Capability{
	domain.CapViewCertificates, domain.CapManageCertificates,
	domain.CapViewClients, domain.CapManageClients,
	domain.CapViewReports, domain.CapExportReports,
	domain.CapManageSettings, domain.CapManageUsers,
}

type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 帳密正確回傳 JWT
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, user, err := h.Auth.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		logrus.Warnf("🔒 [Auth] 登入失敗 %q (IP: %s)", req.Username, c.ClientIP())
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me 目前登入者與可用權限，前端據此顯示選單
func (h *AuthHandler) Me(c *gin.Context) {
	claims := currentClaims(c)
	caps := []domain.Capability{}
	for _, capability := range allCapabilities {
		if claims.Role.Has(capability) {
			caps = append(caps, capability)
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":           claims.Subject,
		"username":     claims.Username,
		"role":         claims.Role,
		"capabilities": caps,
	}})
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const claimsKey = "claims"

// AuthMiddleware 驗證 Bearer Token 與帳號狀態，通過後把 Claims 放進 Context
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少 Authorization Header"})
			return
		}

		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "格式錯誤，應為 Bearer <token>"})
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(tokenStr))
		if errors.Is(err, service.ErrInvalidToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			logrus.Errorf("❌ [Auth] 讀取使用者失敗: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "驗證失敗"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireCapability 必須放在 AuthMiddleware 之後
func RequireCapability(capability domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil || !claims.Role.Has(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "權限不足"})
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *service.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*service.Claims)
	return claims
}

// CORS 前端與 API 分開部署
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

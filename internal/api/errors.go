package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"cert-dashboard/internal/report"
	"cert-dashboard/internal/repository"
	"cert-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var errBadRequest = errors.New("無效的請求格式")

// fieldErrors 欄位名稱 -> 未通過的規則
type fieldErrors map[string]string

func (f fieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for field, rule := range f {
		parts = append(parts, field+": "+rule)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func invalidField(field, rule string) error {
	return fieldErrors{field: rule}
}

// bindJSON 綁定並驗證 body，失敗時已回應錯誤
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(fieldErrors, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return fields
	}
	return errBadRequest
}

// respondError 將 repository / service 錯誤轉成 HTTP 狀態碼
func respondError(c *gin.Context, err error) {
	var fields fieldErrors
	switch {
	case errors.As(err, &fields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "欄位驗證失敗", "fields": fields})
	case errors.Is(err, errBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的 ID 格式"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "找不到該筆資料"})
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "資料已存在"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDiscoveryDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrSelfModify),
		errors.Is(err, service.ErrNotProbeable),
		errors.Is(err, service.ErrEmptyTarget),
		errors.Is(err, report.ErrMissingColumns):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logrus.Errorf("❌ [API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "伺服器內部錯誤"})
	}
}

// jsonFieldName 驗證錯誤使用 json / form tag 的名稱
func jsonFieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

package api

import (
	"net/http"
	"strings"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	Auth *service.AuthService
}

func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{Auth: auth}
}

type createUserRequest struct {
	Username string      `json:"username" binding:"required,min=3,max=64"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     domain.Role `json:"role" binding:"required,oneof=admin manager viewer"`
}

type updateUserRequest struct {
	Role     *domain.Role `json:"role" binding:"omitempty,oneof=admin manager viewer"`
	IsActive *bool        `json:"is_active"`
	Password *string      `json:"password" binding:"omitempty,min=8"`
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.Auth.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.Auth.CreateUser(c.Request.Context(), strings.TrimSpace(req.Username), req.Password, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": user})
}

// UpdateUser 不能停用自己
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Role == nil && req.IsActive == nil && req.Password == nil {
		respondError(c, errBadRequest)
		return
	}

	user, err := h.Auth.UpdateUser(c.Request.Context(), currentClaims(c).Subject, c.Param("id"), service.UserUpdate{
		Role:     req.Role,
		IsActive: req.IsActive,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

// DeleteUser 不能刪除自己
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.Auth.DeleteUser(c.Request.Context(), currentClaims(c).Subject, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "刪除成功"})
}

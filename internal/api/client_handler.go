package api

import (
	"net/http"
	"strings"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/insight"
	"cert-dashboard/internal/report"
	"cert-dashboard/internal/repository"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	Repo repository.ClientRepository
}

func NewClientHandler(r repository.ClientRepository) *ClientHandler {
	return &ClientHandler{Repo: r}
}

type createClientRequest struct {
	Name         string `json:"name" binding:"required"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	Phone        string `json:"phone"`
	Notes        string `json:"notes"`
}

type updateClientRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1"`
	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email"`
	Phone        *string `json:"phone"`
	Notes        *string `json:"notes"`
	IsActive     *bool   `json:"is_active"`
}

// 數值欄位可為 null，但不可為負數
type infrastructureRequest struct {
	ExecutableVersion    string   `json:"executable_version"`
	ExecutableLastUpdate *string  `json:"executable_last_update"`
	ComputerCount        *int     `json:"computer_count" binding:"omitempty,gte=0"`
	ServerCount          *int     `json:"server_count" binding:"omitempty,gte=0"`
	RAMTotalGB           *float64 `json:"ram_total_gb" binding:"omitempty,gte=0"`
	RAMUsedGB            *float64 `json:"ram_used_gb" binding:"omitempty,gte=0"`
	StorageTotalGB       *float64 `json:"storage_total_gb" binding:"omitempty,gte=0"`
	StorageUsedGB        *float64 `json:"storage_used_gb" binding:"omitempty,gte=0"`
}

func clientView(client *domain.Client) domain.ClientView {
	return insight.ViewClient(*client, time.Now().Year())
}

// ListClients 預設只列出啟用中的客戶
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.Repo.List(c.Request.Context(), repository.ClientQuery{
		Search:          strings.TrimSpace(c.Query("search")),
		IncludeInactive: c.Query("include_inactive") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  insight.ViewClients(clients, time.Now().Year()),
		"total": len(clients),
	})
}

func (h *ClientHandler) GetClient(c *gin.Context) {
	client, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clientView(client)})
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req createClientRequest
	if !bindJSON(c, &req) {
		return
	}

	client, err := h.Repo.Create(c.Request.Context(), domain.Client{
		Name:         strings.TrimSpace(req.Name),
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Notes:        req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": clientView(client)})
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	var req updateClientRequest
	if !bindJSON(c, &req) {
		return
	}

	patch := domain.ClientPatch{
		Name:         req.Name,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Notes:        req.Notes,
		IsActive:     req.IsActive,
	}
	if patch.IsEmpty() {
		respondError(c, errBadRequest)
		return
	}

	client, err := h.Repo.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clientView(client)})
}

// UpdateInfrastructure 整份覆寫設備清冊；used > total 只回傳警告
func (h *ClientHandler) UpdateInfrastructure(c *gin.Context) {
	var req infrastructureRequest
	if !bindJSON(c, &req) {
		return
	}

	infra := domain.Infrastructure{
		ExecutableVersion: strings.TrimSpace(req.ExecutableVersion),
		ComputerCount:     req.ComputerCount,
		ServerCount:       req.ServerCount,
		RAMTotalGB:        req.RAMTotalGB,
		RAMUsedGB:         req.RAMUsedGB,
		StorageTotalGB:    req.StorageTotalGB,
		StorageUsedGB:     req.StorageUsedGB,
	}
	if req.ExecutableLastUpdate != nil && *req.ExecutableLastUpdate != "" {
		t, err := report.ParseDate(*req.ExecutableLastUpdate)
		if err != nil {
			respondError(c, invalidField("executable_last_update", "date"))
			return
		}
		infra.ExecutableLastUpdate = &t
	}

	client, err := h.Repo.SetInfrastructure(c.Request.Context(), c.Param("id"), infra)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clientView(client)})
}

// DeleteClient 軟刪除 (is_active = false)
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	if err := h.Repo.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "客戶已停用"})
}

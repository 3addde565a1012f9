package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Capability 單一操作權限
type Capability string

const (
	CapViewCertificates   Capability = "view_certificates"
	CapManageCertificates Capability = "manage_certificates"
	CapViewClients        Capability = "view_clients"
	CapManageClients      Capability = "manage_clients"
	CapViewReports        Capability = "view_reports"
	CapExportReports      Capability = "export_reports"
	CapManageSettings     Capability = "manage_settings"
	CapManageUsers        Capability = "manage_users"
)

type Role string

const (
	RoleAdmin   Role = "admin" // 最高權限，擁有全部 Capability
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

var roleCapabilities = map[Role][]Capability{
	RoleManager: {
		CapViewCertificates, CapManageCertificates,
		CapViewClients, CapManageClients,
		CapViewReports, CapExportReports,
	},
	RoleViewer: {
		CapViewCertificates, CapViewClients, CapViewReports,
	},
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// Has 檢查角色是否擁有該權限
func (r Role) Has(c Capability) bool {
	if r == RoleAdmin {
		return true
	}
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	LastLoginAt  time.Time          `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

// UserPatch 管理者調整帳號，nil 代表不變
type UserPatch struct {
	Role         *Role   `bson:"role,omitempty"`
	IsActive     *bool   `bson:"is_active,omitempty"`
	PasswordHash *string `bson:"password_hash,omitempty"`
}

func (p UserPatch) IsEmpty() bool {
	return p.Role == nil && p.IsActive == nil && p.PasswordHash == nil
}

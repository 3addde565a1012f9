package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Client struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	ContactName  string             `bson:"contact_name,omitempty" json:"contact_name"`
	ContactEmail string             `bson:"contact_email,omitempty" json:"contact_email"`
	Phone        string             `bson:"phone,omitempty" json:"phone"`
	Notes        string             `bson:"notes,omitempty" json:"notes"`

	// 軟刪除旗標，刪除客戶只會把它設為 false
	IsActive bool `bson:"is_active" json:"is_active"`

	Infrastructure *Infrastructure `bson:"infrastructure,omitempty" json:"infrastructure,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Infrastructure 客戶的 IT 設備清冊，數值欄位皆可為空
type Infrastructure struct {
	// 版本字串可能夾帶 DD/MM/YYYY 日期，例如 "v3.2 15/06/2025"
	ExecutableVersion    string     `bson:"executable_version,omitempty" json:"executable_version"`
	ExecutableLastUpdate *time.Time `bson:"executable_last_update,omitempty" json:"executable_last_update"`

	ComputerCount  *int     `bson:"computer_count,omitempty" json:"computer_count"`
	ServerCount    *int     `bson:"server_count,omitempty" json:"server_count"`
	RAMTotalGB     *float64 `bson:"ram_total_gb,omitempty" json:"ram_total_gb"`
	RAMUsedGB      *float64 `bson:"ram_used_gb,omitempty" json:"ram_used_gb"`
	StorageTotalGB *float64 `bson:"storage_total_gb,omitempty" json:"storage_total_gb"`
	StorageUsedGB  *float64 `bson:"storage_used_gb,omitempty" json:"storage_used_gb"`

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Warnings used <= total 只是建議，不擋寫入，回傳給畫面提示
func (i *Infrastructure) Warnings() []string {
	if i == nil {
		return nil
	}
	var warnings []string
	if i.RAMUsedGB != nil && i.RAMTotalGB != nil && *i.RAMUsedGB > *i.RAMTotalGB {
		warnings = append(warnings, "ram_used_gb exceeds ram_total_gb")
	}
	if i.StorageUsedGB != nil && i.StorageTotalGB != nil && *i.StorageUsedGB > *i.StorageTotalGB {
		warnings = append(warnings, "storage_used_gb exceeds storage_total_gb")
	}
	return warnings
}

// StorageUsagePercent 無法計算時回傳 false
func (i *Infrastructure) StorageUsagePercent() (float64, bool) {
	if i == nil || i.StorageUsedGB == nil || i.StorageTotalGB == nil || *i.StorageTotalGB <= 0 {
		return 0, false
	}
	return *i.StorageUsedGB / *i.StorageTotalGB * 100, true
}

// RAMUsagePercent 無法計算時回傳 false
func (i *Infrastructure) RAMUsagePercent() (float64, bool) {
	if i == nil || i.RAMUsedGB == nil || i.RAMTotalGB == nil || *i.RAMTotalGB <= 0 {
		return 0, false
	}
	return *i.RAMUsedGB / *i.RAMTotalGB * 100, true
}

// ClientPatch 部分更新，nil 代表不變
type ClientPatch struct {
	Name         *string `bson:"name,omitempty"`
	ContactName  *string `bson:"contact_name,omitempty"`
	ContactEmail *string `bson:"contact_email,omitempty"`
	Phone        *string `bson:"phone,omitempty"`
	Notes        *string `bson:"notes,omitempty"`
	IsActive     *bool   `bson:"is_active,omitempty"`
}

func (p ClientPatch) IsEmpty() bool {
	return p.Name == nil && p.ContactName == nil && p.ContactEmail == nil &&
		p.Phone == nil && p.Notes == nil && p.IsActive == nil
}

// ClientView 附帶推算出的執行檔日期與分組
type ClientView struct {
	Client
	ExecutableResolvedDate *time.Time `json:"executable_resolved_date"`
	ExecutableFreshness    Freshness  `json:"executable_freshness"`
	Warnings               []string   `json:"warnings,omitempty"`
}

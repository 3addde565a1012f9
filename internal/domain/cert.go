package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CertificateType 憑證用途
type CertificateType string

const (
	TypeAppMobile CertificateType = "APP_MOBILE"
	TypeWebPage   CertificateType = "WEB_PAGE"
)

// Valid 判斷是否為已知的類型
func (t CertificateType) Valid() bool {
	return t == TypeAppMobile || t == TypeWebPage
}

// ParseCertificateType 接受大小寫與 "-" 寫法 (e.g. "web-page")
func ParseCertificateType(s string) (CertificateType, bool) {
	t := CertificateType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	return t, t.Valid()
}

// 常用的狀態標籤 (Status 本身是自由文字，這裡只是預設值)
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

type Certificate struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Domain      string             `bson:"domain" json:"domain"`
	Type        CertificateType    `bson:"type" json:"type"`
	Status      string             `bson:"status" json:"status"`
	Description string             `bson:"description,omitempty" json:"description"`

	// 過期日，建立時必填；舊資料缺值時視為 UNKNOWN
	ExpirationDate *time.Time `bson:"expiration_date" json:"expiration_date"`

	// 即時掃描回填
	Issuer      string    `bson:"issuer,omitempty" json:"issuer,omitempty"`
	LastCheckAt time.Time `bson:"last_check_at,omitempty" json:"last_check_at,omitempty"`

	// 記錄上次告警時間，避免頻繁轟炸
	LastAlertAt time.Time `bson:"last_alert_at,omitempty" json:"last_alert_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CertificatePatch 部分更新，nil 代表不變
type CertificatePatch struct {
	Domain         *string          `bson:"domain,omitempty"`
	Type           *CertificateType `bson:"type,omitempty"`
	Status         *string          `bson:"status,omitempty"`
	Description    *string          `bson:"description,omitempty"`
	ExpirationDate *time.Time       `bson:"expiration_date,omitempty"`
	Issuer         *string          `bson:"issuer,omitempty"`
	LastCheckAt    *time.Time       `bson:"last_check_at,omitempty"`
}

// IsEmpty 沒有任何欄位要更新
func (p CertificatePatch) IsEmpty() bool {
	return p.Domain == nil && p.Type == nil && p.Status == nil && p.Description == nil &&
		p.ExpirationDate == nil && p.Issuer == nil && p.LastCheckAt == nil
}

// CertificateView 附帶即時計算的剩餘天數與緊急程度 (不落地)
type CertificateView struct {
	Certificate
	DaysRemaining int     `json:"days_remaining"`
	Urgency       Urgency `json:"urgency"`
}

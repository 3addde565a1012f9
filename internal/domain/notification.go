package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification 站內告警，保存在資料庫，前端讀取後標記已讀
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CertificateID primitive.ObjectID `bson:"certificate_id,omitempty" json:"certificate_id"`
	Domain        string             `bson:"domain" json:"domain"`
	Urgency       Urgency            `bson:"urgency" json:"urgency"`
	DaysRemaining int                `bson:"days_remaining" json:"days_remaining"`
	Message       string             `bson:"message" json:"message"`
	Read          bool               `bson:"read" json:"read"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

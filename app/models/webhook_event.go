package models

import "time"

// Delivery outcomes for a single webhook attempt.
const (
	DeliveryOutcomeDelivered    = "delivered"
	DeliveryOutcomeRejected     = "rejected"
	DeliveryOutcomeNetworkError = "network-error"
)

// WebhookEvent records one delivery attempt. Attempts are written once and
// never mutated; they exist for debugging and audit.
type WebhookEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MerchantID  string    `gorm:"type:varchar(36);not null;index" json:"merchant_id"`
	EventType   string    `gorm:"type:varchar(50);not null" json:"event_type"`
	Payload     string    `gorm:"type:text" json:"payload"`
	Signature   string    `gorm:"type:varchar(100);not null" json:"signature"`
	Outcome     string    `gorm:"type:varchar(20);not null" json:"outcome"`
	StatusCode  int       `gorm:"default:0" json:"status_code,omitempty"`
	DeliveredAt time.Time `gorm:"autoCreateTime" json:"delivered_at"`
}

package models

import "time"

// PaymentIntent is the persisted record of an issued intent. Intents are
// immutable once created; any change means a new intent.
type PaymentIntent struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	MerchantID      string    `gorm:"type:varchar(36);not null;index" json:"merchant_id"`
	MerchantAddress string    `gorm:"type:varchar(42);not null" json:"merchant_address"`
	AmountUSDC      string    `gorm:"type:varchar(78);not null" json:"amount_usdc"`
	Reference       string    `gorm:"type:varchar(255);not null" json:"reference"`
	Payer           string    `gorm:"type:varchar(42);default:''" json:"payer,omitempty"`
	ExpiresAt       time.Time `gorm:"not null" json:"expires_at"`
	CanonicalHash   string    `gorm:"type:varchar(66);not null" json:"canonical_hash"`
	ServerSignature string    `gorm:"type:varchar(132);default:''" json:"server_signature"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

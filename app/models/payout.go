package models

import "time"

// Payout statuses. Completed is terminal; failed payouts may be retried
// back into pending.
const (
	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
	PayoutStatusFailed    = "failed"
)

// Payout tracks one merchant payout through its lifecycle. AmountMicro is
// the derived smallest-unit integer used internally for execution and is
// never serialized to callers.
type Payout struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	MerchantID  string     `gorm:"type:varchar(36);not null;index" json:"merchant_id"`
	Amount      string     `gorm:"type:varchar(40);not null" json:"amount"`
	AmountMicro uint64     `gorm:"not null" json:"-"`
	Destination string     `gorm:"type:varchar(42);not null" json:"destination"`
	Description string     `gorm:"type:varchar(255);default:''" json:"description,omitempty"`
	Status      string     `gorm:"type:varchar(20);not null;index" json:"status"`
	RetryCount  int        `gorm:"not null;default:0" json:"retry_count"`
	TxHash      string     `gorm:"type:varchar(66);default:''" json:"tx_hash,omitempty"`
	LastError   string     `gorm:"type:varchar(500);default:''" json:"last_error,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt *time.Time `gorm:"default:null" json:"completed_at,omitempty"`
}

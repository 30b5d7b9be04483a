package repository

import (
	"gorm.io/gorm"

	"github.com/onchainpaykit/paykit/app/models"
)

// payoutRepository implements the PayoutRepository interface
type payoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository creates a new payout repository instance
func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

// Create creates a new payout record
func (r *payoutRepository) Create(payout *models.Payout) error {
	return r.db.Create(payout).Error
}

// GetByID retrieves a payout by its ID
func (r *payoutRepository) GetByID(id string) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.Where("id = ?", id).First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// GetByMerchantID retrieves payouts for a merchant, newest first
func (r *payoutRepository) GetByMerchantID(merchantID string, offset, limit int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.Where("merchant_id = ?", merchantID).
		Offset(offset).Limit(limit).Order("created_at DESC").Find(&payouts).Error
	return payouts, err
}

// Update saves the full payout record
func (r *payoutRepository) Update(payout *models.Payout) error {
	return r.db.Save(payout).Error
}

// UpdateIfStatus saves the payout only if its stored status still matches
// expectedStatus. Returns false when another transition got there first.
func (r *payoutRepository) UpdateIfStatus(payout *models.Payout, expectedStatus string) (bool, error) {
	res := r.db.Model(&models.Payout{}).
		Where("id = ? AND status = ?", payout.ID, expectedStatus).
		Updates(map[string]any{
			"status":       payout.Status,
			"retry_count":  payout.RetryCount,
			"tx_hash":      payout.TxHash,
			"last_error":   payout.LastError,
			"completed_at": payout.CompletedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

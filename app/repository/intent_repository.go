package repository

import (
	"gorm.io/gorm"

	"github.com/onchainpaykit/paykit/app/models"
)

// intentRepository implements the IntentRepository interface
type intentRepository struct {
	db *gorm.DB
}

// NewIntentRepository creates a new payment-intent repository instance
func NewIntentRepository(db *gorm.DB) IntentRepository {
	return &intentRepository{db: db}
}

// Create persists a newly issued intent
func (r *intentRepository) Create(intent *models.PaymentIntent) error {
	return r.db.Create(intent).Error
}

// GetByID retrieves an intent by its ID
func (r *intentRepository) GetByID(id string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.Where("id = ?", id).First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// GetByMerchantID retrieves intents issued for a merchant, newest first
func (r *intentRepository) GetByMerchantID(merchantID string, offset, limit int) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	err := r.db.Where("merchant_id = ?", merchantID).
		Offset(offset).Limit(limit).Order("created_at DESC").Find(&intents).Error
	return intents, err
}

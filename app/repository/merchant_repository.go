package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/onchainpaykit/paykit/app/models"
)

// merchantRepository implements the MerchantRepository interface
type merchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository creates a new merchant repository instance
func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepository{db: db}
}

// Create creates a new merchant in the database
func (r *merchantRepository) Create(merchant *models.Merchant) error {
	return r.db.Create(merchant).Error
}

// GetByID retrieves a merchant by its ID
func (r *merchantRepository) GetByID(id string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.Where("id = ?", id).First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

// GetByAPIKeyHash resolves an API key hash to its merchant.
func (r *merchantRepository) GetByAPIKeyHash(hash string) (*models.Merchant, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var merchant models.Merchant
	err := r.db.Where("api_key_hash = ? AND api_key_hash <> ''", trimmed).First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

// Update updates an existing merchant
func (r *merchantRepository) Update(merchant *models.Merchant) error {
	return r.db.Save(merchant).Error
}

// List retrieves merchants with pagination
func (r *merchantRepository) List(offset, limit int) ([]models.Merchant, error) {
	var merchants []models.Merchant
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&merchants).Error
	return merchants, err
}

// Count returns the total number of merchants
func (r *merchantRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Merchant{}).Count(&count).Error
	return count, err
}

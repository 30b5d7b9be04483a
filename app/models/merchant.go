package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Merchant is a registered seller that can issue payment intents and
// receive payouts and webhooks.
type Merchant struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Address     string    `gorm:"type:varchar(42);not null;index" json:"address" validate:"required,eth_addr"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=1,max=100"`
	MetadataURI string    `gorm:"type:varchar(500);default:''" json:"metadata_uri,omitempty"`
	WebhookURL  string    `gorm:"type:varchar(500);default:''" json:"webhook_url,omitempty"`
	FeeBps      int       `gorm:"not null;default:0" json:"fee_bps" validate:"min=0,max=1000"`
	APIKeyHash  string    `gorm:"type:varchar(64);not null;index" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *Merchant) Validate() error {
	v := validator.New()

	return v.Struct(m)
}

// NewMerchant creates a merchant together with its plaintext API key.
// The key is returned exactly once; only its hash is persisted.
func NewMerchant(address, name string) (*Merchant, string) {
	apiKey := GenerateAPIKey()
	m := &Merchant{
		ID:         uuid.NewString(),
		Address:    address,
		Name:       name,
		APIKeyHash: HashAPIKey(apiKey),
	}
	return m, apiKey
}

// GenerateAPIKey returns a new "pk_" prefixed merchant API key.
func GenerateAPIKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return "pk_" + hex.EncodeToString(buf)
}

// HashAPIKey returns the hex SHA-256 of an API key for storage and lookup.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

package apiv1

import (
	"github.com/onchainpaykit/paykit/app/models"
	"github.com/onchainpaykit/paykit/internal/pkg/intent"
)

// CreateIntentRequest is the body of POST /intents. Either amount_usd or
// product_id must be present.
type CreateIntentRequest struct {
	MerchantID   string   `json:"merchantId" validate:"required"`
	MerchantAddr string   `json:"merchantAddr" validate:"required,eth_addr"`
	AmountUsd    *float64 `json:"amountUsd,omitempty" validate:"omitempty,gt=0"`
	ProductID    string   `json:"productId,omitempty"`
	Ref          string   `json:"ref" validate:"required,max=255"`
	PayerHint    string   `json:"payerHint,omitempty" validate:"omitempty,eth_addr"`
}

// IntentResponse echoes the created intent with amount and expiry
// serialized as strings, plus the canonical hash, the server signature
// (or the empty sentinel) and the signing domain.
type IntentResponse struct {
	IntentID        string        `json:"intentId"`
	ChainIntentHash string        `json:"chainIntentHash"`
	PaymentIntent   IntentEcho    `json:"paymentIntent"`
	ServerSig       string        `json:"serverSig"`
	Domain          intent.Domain `json:"domain"`
}

// IntentEcho is the caller-facing view of the issued intent.
type IntentEcho struct {
	ID         string `json:"id"`
	MerchantID string `json:"merchantId"`
	Merchant   string `json:"merchantAddr"`
	AmountUSDC string `json:"amountUSDC"`
	Ref        string `json:"ref"`
	PayerHint  string `json:"payerHint,omitempty"`
	ExpiresAt  string `json:"expiresAt"`
}

// CreateMerchantRequest is the body of POST /merchants.
type CreateMerchantRequest struct {
	Address     string `json:"address" validate:"required,eth_addr"`
	Name        string `json:"name" validate:"required,min=1,max=100"`
	MetadataURI string `json:"metadataUri,omitempty" validate:"omitempty,url"`
	WebhookURL  string `json:"webhookUrl,omitempty" validate:"omitempty,url"`
	FeeBps      *int   `json:"feeBps,omitempty" validate:"omitempty,min=0,max=1000"`
}

// UpdateMerchantRequest is the body of PUT /merchants/:id.
type UpdateMerchantRequest struct {
	Name        string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	MetadataURI string `json:"metadataUri,omitempty" validate:"omitempty,url"`
	WebhookURL  string `json:"webhookUrl,omitempty" validate:"omitempty,url"`
	FeeBps      *int   `json:"feeBps,omitempty" validate:"omitempty,min=0,max=1000"`
}

// MerchantResponse wraps a merchant record; APIKey is present only in the
// create response.
type MerchantResponse struct {
	Merchant *models.Merchant `json:"merchant"`
	APIKey   string           `json:"apiKey,omitempty"`
}

// WebhookConfigRequest is the body of POST /webhooks/merchant. An absent
// events list subscribes the merchant to all known event kinds.
type WebhookConfigRequest struct {
	MerchantID string   `json:"merchantId" validate:"required"`
	WebhookURL string   `json:"webhookUrl" validate:"required,url"`
	Events     []string `json:"events,omitempty"`
}

// WebhookConfigResponse never echoes the shared secret.
type WebhookConfigResponse struct {
	MerchantID string   `json:"merchantId"`
	WebhookURL string   `json:"webhookUrl"`
	Events     []string `json:"events"`
	CreatedAt  string   `json:"createdAt"`
}

// WebhookTestRequest is the body of POST /webhooks/test. The caller
// authenticates via the timestamped signature headers; the payload is the
// event body to deliver.
type WebhookTestRequest struct {
	MerchantID string         `json:"merchantId" validate:"required"`
	Type       string         `json:"type" validate:"required"`
	Payload    map[string]any `json:"payload" validate:"required"`
}

// CreatePayoutRequest is the body of POST /payouts. Amount is a decimal
// string in whole token units.
type CreatePayoutRequest struct {
	MerchantID  string `json:"merchantId" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	To          string `json:"to" validate:"required,eth_addr"`
	Description string `json:"description,omitempty" validate:"omitempty,max=255"`
}

// PayoutResponse wraps a payout record.
type PayoutResponse struct {
	Message string         `json:"message,omitempty"`
	Payout  *models.Payout `json:"payout"`
}

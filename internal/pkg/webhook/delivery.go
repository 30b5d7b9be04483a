package webhook

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/onchainpaykit/paykit/app/models"
	"github.com/onchainpaykit/paykit/app/repository"
	"github.com/onchainpaykit/paykit/internal/pkg/webhookauth"
)

// Delivery headers carried on every outbound webhook POST.
const (
	HeaderSignature  = "X-PayKit-Signature"
	HeaderEvent      = "X-PayKit-Event"
	HeaderMerchantID = "X-PayKit-Merchant-Id"
)

const deliveryTimeout = 10 * time.Second

// Deliverer signs and posts webhook payloads to merchant endpoints and
// records one WebhookEvent per attempt.
type Deliverer struct {
	secret string
	repo   repository.WebhookRepository
	client *http.Client
}

// NewDeliverer creates a deliverer signing with the shared webhook secret.
func NewDeliverer(secret string, repo repository.WebhookRepository) *Deliverer {
	return &Deliverer{
		secret: secret,
		repo:   repo,
		client: &http.Client{Timeout: deliveryTimeout},
	}
}

// Deliver posts payload to the merchant's webhook URL with the signature
// bound in headers. The returned event reflects the outcome: delivered on
// a 2xx response, rejected on any other status, network-error when the
// request never completed. On a ctx deadline the attempt is recorded as a
// network error and nothing is left in flight.
func (d *Deliverer) Deliver(ctx context.Context, config *models.WebhookConfig, eventType string, payload []byte) *models.WebhookEvent {
	signature := webhookauth.Sign(payload, d.secret)
	event := &models.WebhookEvent{
		MerchantID: config.MerchantID,
		EventType:  eventType,
		Payload:    string(payload),
		Signature:  signature,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		event.Outcome = models.DeliveryOutcomeNetworkError
		d.record(event)
		return event
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderMerchantID, config.MerchantID)

	resp, err := d.client.Do(req)
	if err != nil {
		event.Outcome = models.DeliveryOutcomeNetworkError
		d.record(event)
		return event
	}
	defer resp.Body.Close()

	event.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		event.Outcome = models.DeliveryOutcomeDelivered
	} else {
		event.Outcome = models.DeliveryOutcomeRejected
	}
	d.record(event)
	return event
}

func (d *Deliverer) record(event *models.WebhookEvent) {
	if err := d.repo.RecordEvent(event); err != nil {
		log.Errorf("webhook: failed to record delivery attempt for merchant %s: %v", event.MerchantID, err)
	}
}

package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainpaykit/paykit/app/models"
	"github.com/onchainpaykit/paykit/internal/pkg/webhookauth"
)

const testSecret = "webhook-secret"

// memWebhookRepo records delivery attempts in memory.
type memWebhookRepo struct {
	mu     sync.Mutex
	events []models.WebhookEvent
}

func (r *memWebhookRepo) SaveConfig(config *models.WebhookConfig) error { return nil }

func (r *memWebhookRepo) GetConfig(merchantID string) (*models.WebhookConfig, error) {
	return nil, nil
}

func (r *memWebhookRepo) RecordEvent(event *models.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *memWebhookRepo) GetEventsByMerchantID(merchantID string, limit int) ([]models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.WebhookEvent(nil), r.events...), nil
}

func TestDeliverSuccess(t *testing.T) {
	payload := []byte(`{"event":"payment.paid","intentId":"abc"}`)

	var gotBody []byte
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	repo := &memWebhookRepo{}
	d := NewDeliverer(testSecret, repo)
	config := &models.WebhookConfig{MerchantID: "m1", WebhookURL: srv.URL}

	event := d.Deliver(context.Background(), config, models.EventPaymentPaid, payload)
	assert.Equal(t, models.DeliveryOutcomeDelivered, event.Outcome)
	assert.Equal(t, http.StatusOK, event.StatusCode)

	assert.Equal(t, payload, gotBody)
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, models.EventPaymentPaid, gotHeaders.Get(HeaderEvent))
	assert.Equal(t, "m1", gotHeaders.Get(HeaderMerchantID))
	assert.True(t, webhookauth.Verify(payload, gotHeaders.Get(HeaderSignature), testSecret),
		"receiver must be able to verify the signature header")

	require.Len(t, repo.events, 1)
	assert.Equal(t, models.DeliveryOutcomeDelivered, repo.events[0].Outcome)
	assert.Equal(t, "m1", repo.events[0].MerchantID)
}

func TestDeliverRejectedOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := &memWebhookRepo{}
	d := NewDeliverer(testSecret, repo)
	config := &models.WebhookConfig{MerchantID: "m1", WebhookURL: srv.URL}

	event := d.Deliver(context.Background(), config, models.EventPaymentExpired, []byte("{}"))
	assert.Equal(t, models.DeliveryOutcomeRejected, event.Outcome)
	assert.Equal(t, http.StatusInternalServerError, event.StatusCode)

	require.Len(t, repo.events, 1)
	assert.Equal(t, models.DeliveryOutcomeRejected, repo.events[0].Outcome)
}

func TestDeliverNetworkError(t *testing.T) {
	// A server that is already closed refuses the connection.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	repo := &memWebhookRepo{}
	d := NewDeliverer(testSecret, repo)
	config := &models.WebhookConfig{MerchantID: "m1", WebhookURL: url}

	event := d.Deliver(context.Background(), config, models.EventPaymentPaid, []byte("{}"))
	assert.Equal(t, models.DeliveryOutcomeNetworkError, event.Outcome)
	assert.Zero(t, event.StatusCode)

	require.Len(t, repo.events, 1)
	assert.Equal(t, models.DeliveryOutcomeNetworkError, repo.events[0].Outcome)
}

func TestDeliverCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &memWebhookRepo{}
	d := NewDeliverer(testSecret, repo)
	config := &models.WebhookConfig{MerchantID: "m1", WebhookURL: srv.URL}

	event := d.Deliver(ctx, config, models.EventPaymentPaid, []byte("{}"))
	assert.Equal(t, models.DeliveryOutcomeNetworkError, event.Outcome)
}

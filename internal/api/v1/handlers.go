package apiv1

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onchainpaykit/paykit/app/models"
	"github.com/onchainpaykit/paykit/app/repository"
	"github.com/onchainpaykit/paykit/internal/pkg/config"
	"github.com/onchainpaykit/paykit/internal/pkg/deliveryqueue"
	"github.com/onchainpaykit/paykit/internal/pkg/intent"
	"github.com/onchainpaykit/paykit/internal/pkg/middleware"
	"github.com/onchainpaykit/paykit/internal/pkg/payout"
	"github.com/onchainpaykit/paykit/internal/pkg/quotes"
	"github.com/onchainpaykit/paykit/internal/pkg/webhook"
	"github.com/onchainpaykit/paykit/internal/pkg/webhookauth"
)

// Inbound webhook authentication headers.
const (
	HeaderTimestamp = "X-PayKit-Timestamp"
	HeaderSignature = "X-PayKit-Signature"
)

// APIServer implements the v1 JSON API.
type APIServer struct {
	cfg       *config.Config
	repos     *repository.Repositories
	signer    *intent.Signer
	ledger    *payout.Ledger
	deliverer *webhook.Deliverer
	queue     *deliveryqueue.Queue
	validate  *validator.Validate
}

// NewAPIServer wires the v1 API against the global config. queue may be
// nil when async delivery is disabled.
func NewAPIServer(repos *repository.Repositories, ledger *payout.Ledger, deliverer *webhook.Deliverer, queue *deliveryqueue.Queue) *APIServer {
	cfg := config.Get()
	return &APIServer{
		cfg:   cfg,
		repos: repos,
		signer: intent.NewSigner(cfg.SignerKey, config.DomainName, config.DomainVersion,
			cfg.ChainID, cfg.VerifyingContract),
		ledger:    ledger,
		deliverer: deliverer,
		queue:     queue,
		validate:  validator.New(),
	}
}

// parseBody decodes and validates a request body, replying 400 on any
// problem. Validation detail is safe to expose; it only describes caller
// input.
func (s *APIServer) parseBody(c *fiber.Ctx, out any) bool {
	if err := c.BodyParser(out); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "Malformed request body"})
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
		return false
	}
	return true
}

// PostIntent issues a signed payment intent. Signing degrades to the
// empty sentinel when the server key is unavailable; the canonical hash
// is always returned.
func (s *APIServer) PostIntent(c *fiber.Ctx) error {
	var req CreateIntentRequest
	if !s.parseBody(c, &req) {
		return nil
	}
	// No product catalog exists to price a productId, so an explicit
	// amount is always required; a productId alone would otherwise issue a
	// zero-amount intent.
	if req.AmountUsd == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "amountUsd is required"})
	}

	amount := quotes.UsdToUsdc(*req.AmountUsd)
	expiresAt := time.Now().Add(s.cfg.IntentTTL).Truncate(time.Second)
	id := uuid.NewString()

	payer := common.Address{}
	if req.PayerHint != "" {
		payer = common.HexToAddress(req.PayerHint)
	}

	pi := &intent.Intent{
		ID:         id,
		MerchantID: req.MerchantID,
		Merchant:   common.HexToAddress(req.MerchantAddr),
		Amount:     amount,
		Reference:  req.Ref,
		Payer:      payer,
		ExpiresAt:  expiresAt,
	}

	hash, err := intent.Hash(pi)
	if err != nil {
		// Unreachable for validated input; a failure here is a programmer
		// error in the encoder, not a caller fault.
		log.Errorf("canonical encoding failed for intent %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Intent encoding failed"})
	}

	serverSig := intent.EmptySignature
	if sig, err := s.signer.SignTypedData(pi); err != nil {
		if !errors.Is(err, intent.ErrSigningKeyUnavailable) {
			log.Errorf("typed-data signing failed for intent %s: %v", id, err)
		}
	} else {
		serverSig = sig
	}

	record := &models.PaymentIntent{
		ID:              id,
		MerchantID:      req.MerchantID,
		MerchantAddress: pi.Merchant.Hex(),
		AmountUSDC:      amount.String(),
		Reference:       req.Ref,
		Payer:           req.PayerHint,
		ExpiresAt:       expiresAt,
		CanonicalHash:   hexutil.Encode(hash[:]),
		ServerSignature: serverSig,
	}
	if err := s.repos.Intent.Create(record); err != nil {
		log.Errorf("failed to persist intent %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to store intent"})
	}

	return c.JSON(IntentResponse{
		IntentID:        id,
		ChainIntentHash: hexutil.Encode(hash[:]),
		PaymentIntent: IntentEcho{
			ID:         id,
			MerchantID: req.MerchantID,
			Merchant:   pi.Merchant.Hex(),
			AmountUSDC: amount.String(),
			Ref:        req.Ref,
			PayerHint:  req.PayerHint,
			ExpiresAt:  expiresAt.UTC().Format(time.RFC3339),
		},
		ServerSig: serverSig,
		Domain:    s.signer.Domain(),
	})
}

// PostMerchant registers a merchant. The plaintext API key appears in
// this response only; afterwards only its hash exists.
func (s *APIServer) PostMerchant(c *fiber.Ctx) error {
	var req CreateMerchantRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	merchant, apiKey := models.NewMerchant(req.Address, req.Name)
	merchant.MetadataURI = req.MetadataURI
	merchant.WebhookURL = req.WebhookURL
	if req.FeeBps != nil {
		merchant.FeeBps = *req.FeeBps
	}

	if err := s.repos.Merchant.Create(merchant); err != nil {
		log.Errorf("failed to create merchant: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create merchant"})
	}

	return c.JSON(MerchantResponse{Merchant: merchant, APIKey: apiKey})
}

// GetMerchant returns a merchant by id.
func (s *APIServer) GetMerchant(c *fiber.Ctx) error {
	merchant, err := s.repos.Merchant.GetByID(c.Params("id"))
	if err != nil {
		return notFoundOrInternal(c, err, "Merchant not found")
	}
	return c.JSON(MerchantResponse{Merchant: merchant})
}

// PutMerchant updates mutable merchant fields.
func (s *APIServer) PutMerchant(c *fiber.Ctx) error {
	var req UpdateMerchantRequest
	if !s.parseBody(c, &req) {
		return nil
	}

	repo := s.repos.Merchant
	merchant, err := repo.GetByID(c.Params("id"))
	if err != nil {
		return notFoundOrInternal(c, err, "Merchant not found")
	}

	if req.Name != "" {
		merchant.Name = req.Name
	}
	if req.MetadataURI != "" {
		merchant.MetadataURI = req.MetadataURI
	}
	if req.WebhookURL != "" {
		merchant.WebhookURL = req.WebhookURL
	}
	if req.FeeBps != nil {
		merchant.FeeBps = *req.FeeBps
	}

	if err := repo.Update(merchant); err != nil {
		log.Errorf("failed to update merchant %s: %v", merchant.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update merchant"})
	}
	return c.JSON(MerchantResponse{Merchant: merchant})
}

// GetMerchants lists registered merchants. API key hashes never
// serialize, so the listing leaks no credential material.
func (s *APIServer) GetMerchants(c *fiber.Ctx) error {
	merchants, err := s.repos.Merchant.List(0, 100)
	if err != nil {
		log.Errorf("failed to list merchants: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list merchants"})
	}
	total, err := s.repos.Merchant.Count()
	if err != nil {
		log.Errorf("failed to count merchants: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list merchants"})
	}
	return c.JSON(fiber.Map{"merchants": merchants, "total": total})
}

// GetIntent returns a stored intent record by id.
func (s *APIServer) GetIntent(c *fiber.Ctx) error {
	record, err := s.repos.Intent.GetByID(c.Params("id"))
	if err != nil {
		return notFoundOrInternal(c, err, "Intent not found")
	}
	return c.JSON(record)
}

// GetMerchantIntents lists intents issued for a merchant, newest first.
func (s *APIServer) GetMerchantIntents(c *fiber.Ctx) error {
	intents, err := s.repos.Intent.GetByMerchantID(c.Params("merchantId"), 0, 100)
	if err != nil {
		log.Errorf("failed to list intents: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list intents"})
	}
	return c.JSON(fiber.Map{"intents": intents})
}

// PostWebhookConfig registers or fully replaces a merchant's webhook
// config. The shared secret is never echoed.
func (s *APIServer) PostWebhookConfig(c *fiber.Ctx) error {
	var req WebhookConfigRequest
	if !s.parseBody(c, &req) {
		return nil
	}
	for _, e := range req.Events {
		if !models.IsKnownEventType(e) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "Unknown event type: " + e})
		}
	}

	cfg := &models.WebhookConfig{
		MerchantID: req.MerchantID,
		WebhookURL: req.WebhookURL,
	}
	cfg.SetSubscribedEvents(req.Events)

	if err := s.repos.Webhook.SaveConfig(cfg); err != nil {
		log.Errorf("failed to save webhook config for merchant %s: %v", req.MerchantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save webhook config"})
	}

	return c.JSON(fiber.Map{"message": "Webhook configured successfully", "config": webhookConfigView(cfg)})
}

// GetWebhookConfig returns the stored config for a merchant.
func (s *APIServer) GetWebhookConfig(c *fiber.Ctx) error {
	cfg, err := s.repos.Webhook.GetConfig(c.Params("merchantId"))
	if err != nil {
		return notFoundOrInternal(c, err, "Webhook config not found")
	}
	return c.JSON(fiber.Map{"config": webhookConfigView(cfg)})
}

// PostWebhookTest authenticates the caller via the timestamped HMAC
// headers, then delivers the payload synchronously and propagates the
// remote outcome. Missing credentials, a stale timestamp and a bad tag
// all produce the same vague 401.
func (s *APIServer) PostWebhookTest(c *fiber.Ctx) error {
	req, payloadJSON, ok := s.authenticateWebhookRequest(c)
	if !ok {
		return nil
	}

	cfg, err := s.repos.Webhook.GetConfig(req.MerchantID)
	if err != nil {
		return notFoundOrInternal(c, err, "Webhook config not found")
	}

	event := s.deliverer.Deliver(c.Context(), cfg, req.Type, payloadJSON)
	switch event.Outcome {
	case models.DeliveryOutcomeDelivered:
		return c.JSON(fiber.Map{"message": "Webhook delivered successfully", "statusCode": event.StatusCode})
	case models.DeliveryOutcomeRejected:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "delivery_rejected", "statusCode": event.StatusCode})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "delivery_error", "message": "Webhook endpoint unreachable"})
	}
}

// PostWebhookNotify queues an event for asynchronous delivery and returns
// 202 with the job id. Same authentication as the test endpoint.
func (s *APIServer) PostWebhookNotify(c *fiber.Ctx) error {
	req, payloadJSON, ok := s.authenticateWebhookRequest(c)
	if !ok {
		return nil
	}
	if s.queue == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "unavailable", "message": "Async delivery is not enabled"})
	}

	if _, err := s.repos.Webhook.GetConfig(req.MerchantID); err != nil {
		return notFoundOrInternal(c, err, "Webhook config not found")
	}

	jobID, err := s.queue.Enqueue(req.MerchantID, req.Type, payloadJSON)
	if err != nil {
		log.Errorf("failed to enqueue webhook for merchant %s: %v", req.MerchantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to queue delivery"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Webhook queued", "jobId": jobID})
}

// GetWebhookEvents lists recent delivery attempts for a merchant.
func (s *APIServer) GetWebhookEvents(c *fiber.Ctx) error {
	events, err := s.repos.Webhook.GetEventsByMerchantID(c.Params("merchantId"), 100)
	if err != nil {
		log.Errorf("failed to list webhook events: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list events"})
	}
	return c.JSON(fiber.Map{"events": events})
}

// authenticateWebhookRequest parses the body and verifies the timestamped
// HMAC over the payload. The failure kind is logged but never leaked.
func (s *APIServer) authenticateWebhookRequest(c *fiber.Ctx) (*WebhookTestRequest, []byte, bool) {
	var req WebhookTestRequest
	if !s.parseBody(c, &req) {
		return nil, nil, false
	}
	if !models.IsKnownEventType(req.Type) {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "Unknown event type: " + req.Type})
		return nil, nil, false
	}

	payloadJSON, err := json.Marshal(req.Payload)
	if err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "Malformed payload"})
		return nil, nil, false
	}

	if s.cfg.WebhookSecret == "" {
		c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Webhook secret not configured"})
		return nil, nil, false
	}

	err = webhookauth.VerifyRequest(payloadJSON, c.Get(HeaderSignature), c.Get(HeaderTimestamp), time.Now(), s.cfg.WebhookSecret)
	if err != nil {
		log.Warnf("webhook auth failed for merchant %s: %v", req.MerchantID, err)
		c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid webhook credentials"})
		return nil, nil, false
	}
	return &req, payloadJSON, true
}

// PostPayout creates and executes a payout for the authenticated
// merchant.
func (s *APIServer) PostPayout(c *fiber.Ctx) error {
	var req CreatePayoutRequest
	if !s.parseBody(c, &req) {
		return nil
	}
	if m := middleware.MerchantFromContext(c); m != nil && m.ID != req.MerchantID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Merchant mismatch"})
	}

	p, err := s.ledger.Create(c.Context(), req.MerchantID, req.Amount, req.To, req.Description)
	if err != nil {
		if errors.Is(err, payout.ErrInvalidAmount) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_amount", "message": "Amount must be greater than 0"})
		}
		log.Errorf("failed to create payout: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create payout"})
	}

	if p.Status == models.PayoutStatusFailed {
		return c.Status(fiber.StatusBadGateway).JSON(PayoutResponse{Message: "Payout failed", Payout: p})
	}
	return c.JSON(PayoutResponse{Message: "Payout initiated successfully", Payout: p})
}

// GetPayout returns a payout by id. A key for another merchant cannot
// read it.
func (s *APIServer) GetPayout(c *fiber.Ctx) error {
	p, err := s.ledger.GetByID(c.Params("id"))
	if err != nil {
		return notFoundOrInternal(c, err, "Payout not found")
	}
	if m := middleware.MerchantFromContext(c); m != nil && m.ID != p.MerchantID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Merchant mismatch"})
	}
	return c.JSON(PayoutResponse{Payout: p})
}

// GetMerchantPayouts lists the authenticated merchant's payouts.
func (s *APIServer) GetMerchantPayouts(c *fiber.Ctx) error {
	merchantID := c.Params("merchantId")
	if m := middleware.MerchantFromContext(c); m != nil && m.ID != merchantID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Merchant mismatch"})
	}

	payouts, err := s.ledger.GetByMerchant(merchantID, 0, 100)
	if err != nil {
		log.Errorf("failed to list payouts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list payouts"})
	}
	return c.JSON(fiber.Map{"payouts": payouts})
}

// PostPayoutRetry retries a failed payout. Completed payouts are terminal.
func (s *APIServer) PostPayoutRetry(c *fiber.Ctx) error {
	existing, err := s.ledger.GetByID(c.Params("id"))
	if err != nil {
		return notFoundOrInternal(c, err, "Payout not found")
	}
	if m := middleware.MerchantFromContext(c); m != nil && m.ID != existing.MerchantID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Merchant mismatch"})
	}

	p, err := s.ledger.Retry(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, payout.ErrInvalidState) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_state", "message": "Can only retry failed payouts"})
		}
		return notFoundOrInternal(c, err, "Payout not found")
	}

	if p.Status == models.PayoutStatusFailed {
		return c.Status(fiber.StatusBadGateway).JSON(PayoutResponse{Message: "Payout retry failed", Payout: p})
	}
	return c.JSON(PayoutResponse{Message: "Payout retry successful", Payout: p})
}

func webhookConfigView(cfg *models.WebhookConfig) WebhookConfigResponse {
	return WebhookConfigResponse{
		MerchantID: cfg.MerchantID,
		WebhookURL: cfg.WebhookURL,
		Events:     cfg.SubscribedEvents(),
		CreatedAt:  cfg.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func notFoundOrInternal(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": msg})
	}
	log.Errorf("lookup failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Lookup failed"})
}

package models

import (
	"strings"
	"time"
)

// Webhook event kinds merchants can subscribe to.
const (
	EventPaymentPaid     = "payment.paid"
	EventPaymentRefunded = "payment.refunded"
	EventPaymentExpired  = "payment.expired"
)

// AllEventTypes returns every known webhook event kind.
func AllEventTypes() []string {
	return []string{EventPaymentPaid, EventPaymentRefunded, EventPaymentExpired}
}

// IsKnownEventType reports whether t is one of the fixed event kinds.
func IsKnownEventType(t string) bool {
	switch t {
	case EventPaymentPaid, EventPaymentRefunded, EventPaymentExpired:
		return true
	}
	return false
}

// WebhookConfig is the per-merchant webhook registration. Re-registering
// replaces the whole record, last write wins.
type WebhookConfig struct {
	MerchantID string    `gorm:"type:varchar(36);primaryKey" json:"merchant_id"`
	WebhookURL string    `gorm:"type:varchar(500);not null" json:"webhook_url"`
	Events     string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubscribedEvents returns the subscription set as a slice.
func (c *WebhookConfig) SubscribedEvents() []string {
	if c.Events == "" {
		return AllEventTypes()
	}
	return strings.Split(c.Events, ",")
}

// SetSubscribedEvents stores the subscription set; an empty list means all
// known event kinds.
func (c *WebhookConfig) SetSubscribedEvents(events []string) {
	if len(events) == 0 {
		events = AllEventTypes()
	}
	c.Events = strings.Join(events, ",")
}

// IsSubscribed reports whether the merchant subscribed to eventType.
func (c *WebhookConfig) IsSubscribed(eventType string) bool {
	for _, e := range c.SubscribedEvents() {
		if e == eventType {
			return true
		}
	}
	return false
}

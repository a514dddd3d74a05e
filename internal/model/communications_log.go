package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
)

// Send attempt outcome. Immutable after the row is created.
const (
	StatusSent   = "SENT"
	StatusFailed = "FAILED"
)

// Post-send delivery confirmation. PENDING is only the column default;
// the simulator never produces it.
const (
	DeliveryPending   = "PENDING"
	DeliveryDelivered = "DELIVERED"
	DeliveryFailed    = "FAILED"
)

type CommunicationsLog struct {
	ID                  int       `db:"id" json:"id"`
	CampaignID          int       `db:"campaign_id" json:"campaign_id"`
	CustomerID          int       `db:"customer_id" json:"audience_id"`
	Status              string    `db:"status" json:"status"`
	SentAt              time.Time `db:"sent_at" json:"sent_at"`
	PersonalizedMessage string    `db:"personalized_message" json:"personalized_message"`
	MessageHash         string    `db:"message_hash" json:"-"`
	DeliveryStatus      string    `db:"delivery_status" json:"delivery_status"`

	// Joined customer fields, populated by log listings only.
	CustomerName  string `db:"customer_name" json:"customer_name,omitempty"`
	CustomerEmail string `db:"customer_email" json:"customer_email,omitempty"`
}

// HashMessage fingerprints rendered message content. Together with the
// campaign and customer IDs it forms the idempotency key for log rows:
// redelivering a task is a no-op, while sending the campaign again with a
// new template records fresh rows.
func HashMessage(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

// ValidateDeliveryStatus gates the correction endpoint: only terminal
// confirmation states may be written back.
func ValidateDeliveryStatus(status string) error {
	if status != DeliveryDelivered && status != DeliveryFailed {
		return appErrors.NewValidation("invalid delivery status %q: must be DELIVERED or FAILED", status)
	}
	return nil
}

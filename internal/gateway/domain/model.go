package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Intent mirrors a gateway-side charge intent.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Intent statuses as reported by the gateway.
const (
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresConfirmation  = "requires_confirmation"
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusProcessing            = "processing"
	IntentStatusSucceeded             = "succeeded"
	IntentStatusCanceled              = "canceled"
)

// Retryable reports whether the intent can still collect a payment method,
// i.e. whether an existing intent is reused instead of creating a second one.
func (i Intent) Retryable() bool {
	switch i.Status {
	case IntentStatusRequiresPaymentMethod,
		IntentStatusRequiresConfirmation,
		IntentStatusRequiresAction:
		return true
	default:
		return false
	}
}

type CreateIntentParams struct {
	// AccountID is the gateway connected account of the receiving team.
	AccountID string
	Amount    int64
	Currency  string
	// Metadata links the intent back to the local payment member row.
	Metadata map[string]string
	// IdempotencyKey dedupes retried create calls at the gateway.
	IdempotencyKey string
}

// IntentClient is the outbound charge-intent API of the payment gateway.
type IntentClient interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (Intent, error)
	RetrieveIntent(ctx context.Context, accountID, intentID string) (Intent, error)
	CancelIntent(ctx context.Context, accountID, intentID string) error
}

// Canonical webhook event types.
const (
	EventTypeIntentSucceeded = "intent_succeeded"
	EventTypeIntentFailed    = "intent_failed"
	EventTypeIntentCanceled  = "intent_canceled"
)

// Event is the canonical webhook event decoded once at the boundary. Exactly
// the recognized intent event types are produced; everything else surfaces as
// ErrEventIgnored from Parse.
type Event struct {
	Provider        string
	ProviderEventID string
	Type            string
	IntentID        string
	ChargeID        string
	MemberID        snowflake.ID
	RequestID       snowflake.ID
	Amount          int64
	Currency        string
	FailureReason   string
	OccurredAt      time.Time
	RawPayload      []byte
}

// WebhookAdapter verifies and decodes signed gateway callbacks.
type WebhookAdapter interface {
	// Verify checks the payload signature before any parsing happens.
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrMissingMetadata  = errors.New("missing_metadata")
)

package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	gatewaydomain "github.com/goalline/clubpay/internal/gateway/domain"
)

// Adapter verifies and decodes Stripe webhook callbacks using the pre-shared
// webhook signing secret.
type Adapter struct {
	webhookSecret string
}

func NewAdapter(webhookSecret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(webhookSecret)}
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return gatewaydomain.ErrInvalidSignature
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return gatewaydomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return gatewaydomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return gatewaydomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*gatewaydomain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, gatewaydomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, gatewaydomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "payment_intent.succeeded":
		return a.parseIntent(event, payload, gatewaydomain.EventTypeIntentSucceeded)
	case "payment_intent.payment_failed":
		return a.parseIntent(event, payload, gatewaydomain.EventTypeIntentFailed)
	case "payment_intent.canceled":
		return a.parseIntent(event, payload, gatewaydomain.EventTypeIntentCanceled)
	default:
		return nil, gatewaydomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripePaymentIntent struct {
	ID               string            `json:"id"`
	Amount           int64             `json:"amount"`
	AmountReceived   int64             `json:"amount_received"`
	Currency         string            `json:"currency"`
	Created          int64             `json:"created"`
	LatestCharge     string            `json:"latest_charge"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *stripeError      `json:"last_payment_error"`
}

type stripeError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (a *Adapter) parseIntent(event stripeEvent, payload []byte, eventType string) (*gatewaydomain.Event, error) {
	var intent stripePaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, gatewaydomain.ErrInvalidPayload
	}
	if strings.TrimSpace(intent.ID) == "" {
		return nil, gatewaydomain.ErrInvalidEvent
	}

	memberID, requestID, err := parseMetadataIDs(intent.Metadata)
	if err != nil {
		return nil, err
	}

	amount := intent.AmountReceived
	if amount <= 0 {
		amount = intent.Amount
	}

	var failureReason string
	if eventType == gatewaydomain.EventTypeIntentFailed && intent.LastPaymentError != nil {
		failureReason = strings.TrimSpace(intent.LastPaymentError.Message)
		if failureReason == "" {
			failureReason = strings.TrimSpace(intent.LastPaymentError.Code)
		}
	}

	return &gatewaydomain.Event{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            eventType,
		IntentID:        intent.ID,
		ChargeID:        strings.TrimSpace(intent.LatestCharge),
		MemberID:        memberID,
		RequestID:       requestID,
		Amount:          amount,
		Currency:        strings.ToUpper(strings.TrimSpace(intent.Currency)),
		FailureReason:   failureReason,
		OccurredAt:      timestamp(intent.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

// parseMetadataIDs extracts the member and request linkage set when the intent
// was created. A recognized event without a member id is a data-integrity
// problem, not a transient failure.
func parseMetadataIDs(metadata map[string]string) (snowflake.ID, snowflake.ID, error) {
	memberRaw := strings.TrimSpace(metadata["member_id"])
	if memberRaw == "" {
		return 0, 0, gatewaydomain.ErrMissingMetadata
	}
	memberID, err := snowflake.ParseString(memberRaw)
	if err != nil {
		return 0, 0, gatewaydomain.ErrMissingMetadata
	}

	requestRaw := strings.TrimSpace(metadata["request_id"])
	if requestRaw == "" {
		return memberID, 0, nil
	}
	requestID, err := snowflake.ParseString(requestRaw)
	if err != nil {
		return memberID, 0, nil
	}
	return memberID, requestID, nil
}

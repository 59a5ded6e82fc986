package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	gatewaydomain "github.com/goalline/clubpay/internal/gateway/domain"
)

type CreateMembersRequest struct {
	PaymentRequestID snowflake.ID
	UserIDs          []snowflake.ID
	AmountMinorUnits int64
	Currency         string
}

type BindIntentRequest struct {
	MemberID      snowflake.ID
	PaymentMethod string
}

type BindIntentResult struct {
	Intent gatewaydomain.Intent `json:"intent"`
	// Reused is true when an existing retryable intent was returned instead
	// of creating a second one.
	Reused bool `json:"reused"`
}

type ApplySuccessRequest struct {
	IntentID         string
	ChargeID         string
	MemberID         snowflake.ID
	AmountMinorUnits int64
}

type ApplyFailureRequest struct {
	IntentID string
	MemberID snowflake.ID
	Reason   string
}

type ApplyCancellationRequest struct {
	IntentID string
	MemberID snowflake.ID
}

// Service is the reconciler that owns member charge rows and keeps the parent
// request's aggregates consistent under concurrent, out-of-order, retried
// gateway delivery.
type Service interface {
	CreateMembers(ctx context.Context, req CreateMembersRequest) error
	BindChargeIntent(ctx context.Context, req BindIntentRequest) (BindIntentResult, error)
	ApplySuccess(ctx context.Context, req ApplySuccessRequest) error
	ApplyFailure(ctx context.Context, req ApplyFailureRequest) error
	ApplyCancellation(ctx context.Context, req ApplyCancellationRequest) error
}

var (
	ErrMemberNotFound = errors.New("payment_member_not_found")
	ErrAlreadyPaid    = errors.New("already_paid")
	ErrInvalidMembers = errors.New("invalid_members")
	ErrInvalidAmount  = errors.New("invalid_amount")
)

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/pkg/db/pagination"
)

type CreateRequest struct {
	TeamID           snowflake.ID
	Title            string
	Description      string
	AmountMinorUnits int64
	Currency         string
	DueDate          time.Time
	PaymentType      string
	TotalMembers     int
}

// UpdateRequest patches metadata fields only. Amount and membership are
// frozen once member rows exist; amount edits never cascade to member rows.
type UpdateRequest struct {
	ID          snowflake.ID
	Title       *string
	Description *string
	DueDate     *time.Time
	PaymentType *string
}

type ListForTeamRequest struct {
	TeamID           snowflake.ID
	IncludeCancelled bool
	PageToken        string
	PageSize         int
}

type ListForTeamResponse struct {
	pagination.PageInfo
	Requests []RequestWithCounts `json:"payment_requests"`
}

type CancelRequest struct {
	ID     snowflake.ID
	Reason string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (PaymentRequest, error)
	Update(ctx context.Context, req UpdateRequest) (PaymentRequest, error)
	ListForTeam(ctx context.Context, req ListForTeamRequest) (ListForTeamResponse, error)
	Cancel(ctx context.Context, req CancelRequest) error
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidTeam     = errors.New("invalid_team")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidDueDate  = errors.New("invalid_due_date")
	ErrNotFound        = errors.New("payment_request_not_found")
	ErrFinalized       = errors.New("payment_request_finalized")
)

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ReminderLog records every delivered reminder. The rolling rate limit reads
// the latest sent_at per (request, user) pair from this table.
type ReminderLog struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentRequestID snowflake.ID `json:"payment_request_id" gorm:"not null;index"`
	UserID           snowflake.ID `json:"user_id" gorm:"not null;index"`
	SentAt           time.Time    `json:"sent_at" gorm:"not null"`
}

func (ReminderLog) TableName() string { return "payment_reminders" }

type FailedRecipient struct {
	UserID snowflake.ID `json:"user_id"`
	Reason string       `json:"reason"`
}

type SendRemindersRequest struct {
	PaymentRequestID snowflake.ID
	// Recipients narrows the dispatch to these user IDs. Empty means every
	// member of the request.
	Recipients []snowflake.ID
}

// Result reports the dispatch outcome per recipient. Rate-limited members
// surface in Failed so callers can tell suppressed from delivered.
type Result struct {
	Sent   int               `json:"sent"`
	Failed []FailedRecipient `json:"failed_recipients"`
}

type Service interface {
	SendReminders(ctx context.Context, req SendRemindersRequest) (Result, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *ReminderLog) error
	// LastSentAt returns the most recent sent_at per user for the request.
	// Users with no reminder history are absent from the map.
	LastSentAt(ctx context.Context, db *gorm.DB, requestID snowflake.ID) (map[snowflake.ID]time.Time, error)
}

var ErrDispatchInProgress = errors.New("reminder_dispatch_in_progress")

const (
	FailureReasonRateLimited    = "rate_limited"
	FailureReasonDeliveryFailed = "delivery_failed"
)

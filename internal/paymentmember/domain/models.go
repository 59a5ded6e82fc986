package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the settlement state of one member's charge. Paid is terminal
// with respect to webhook processing: a later failure or cancellation for a
// stale intent never regresses it.
type Status string

const (
	StatusUnpaid   Status = "unpaid"
	StatusPaid     Status = "paid"
	StatusRefunded Status = "refunded"
	StatusFailed   Status = "failed"
)

// Settled reports whether gateway events may still mutate the row.
func (s Status) Settled() bool {
	return s == StatusPaid
}

// Chargeable reports whether a new charge intent may be bound.
func (s Status) Chargeable() bool {
	return s == StatusUnpaid || s == StatusFailed
}

// PaymentMember is one invited member's charge row for a payment request.
// AmountMinorUnits is the post-fee total computed once at creation and
// immutable thereafter; (PaymentRequestID, UserID) is unique.
type PaymentMember struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentRequestID snowflake.ID `json:"payment_request_id" gorm:"not null;index"`
	UserID           snowflake.ID `json:"user_id" gorm:"not null;index"`
	AmountMinorUnits int64        `json:"amount_minor_units" gorm:"not null"`
	Currency         string       `json:"currency" gorm:"type:text;not null"`
	Status           Status       `json:"payment_status" gorm:"column:payment_status;type:text;not null"`
	PaidAt           *time.Time   `json:"paid_at,omitempty"`
	PaymentMethod    string       `json:"payment_method,omitempty" gorm:"type:text"`
	IntentID         string       `json:"intent_id,omitempty" gorm:"type:text"`
	ChargeID         string       `json:"charge_id,omitempty" gorm:"type:text"`
	LedgerRecordID   snowflake.ID `json:"ledger_record_id,omitempty"`
	FailureReason    string       `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

func (PaymentMember) TableName() string { return "payment_request_members" }

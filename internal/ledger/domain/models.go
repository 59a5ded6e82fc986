package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusSucceeded RecordStatus = "succeeded"
	RecordStatusFailed    RecordStatus = "failed"
)

// Record mirrors one gateway charge intent. A row is written before the
// intent is handed to the client, so every external intent has a local trace.
type Record struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID           snowflake.ID `json:"user_id" gorm:"not null;index"`
	PaymentRequestID snowflake.ID `json:"payment_request_id" gorm:"not null;index"`
	AmountMinorUnits int64        `json:"amount_minor_units" gorm:"not null"`
	Currency         string       `json:"currency" gorm:"type:text;not null"`
	Status           RecordStatus `json:"status" gorm:"type:text;not null"`
	IntentID         string       `json:"intent_id" gorm:"type:text;not null;index"`
	PaymentMethod    string       `json:"payment_method" gorm:"type:text"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

func (Record) TableName() string { return "payment_ledger_records" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	MarkStatusByIntent(ctx context.Context, db *gorm.DB, intentID string, status RecordStatus, now time.Time) error
}

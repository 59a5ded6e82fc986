package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	BulkInsert(ctx context.Context, db *gorm.DB, members []*PaymentMember) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentMember, error)
	ListByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID, status Status) ([]*PaymentMember, error)
	BindIntent(ctx context.Context, db *gorm.DB, id snowflake.ID, intentID string, ledgerRecordID snowflake.ID, paymentMethod string, now time.Time) error

	// MarkPaid is a guarded update: it only fires while the row is not yet
	// paid, so replayed success events count at most once. It reports the
	// number of rows changed.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeID string, now time.Time) (int64, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (int64, error)
	// ClearIntent resets a not-yet-paid row to unpaid and unbinds the intent
	// so a future bind creates a fresh one.
	ClearIntent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
}

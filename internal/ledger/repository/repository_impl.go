package repository

import (
	"context"
	"time"

	"github.com/goalline/clubpay/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_ledger_records (
			id, user_id, payment_request_id, amount_minor_units, currency,
			status, intent_id, payment_method, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.PaymentRequestID,
		record.AmountMinorUnits,
		record.Currency,
		record.Status,
		record.IntentID,
		record.PaymentMethod,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) MarkStatusByIntent(ctx context.Context, db *gorm.DB, intentID string, status domain.RecordStatus, now time.Time) error {
	if intentID == "" {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE payment_ledger_records
		 SET status = ?, updated_at = ?
		 WHERE intent_id = ?`,
		status,
		now,
		intentID,
	).Error
}

package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/paymentmember/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) BulkInsert(ctx context.Context, db *gorm.DB, members []*domain.PaymentMember) error {
	for _, member := range members {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO payment_request_members (
				id, payment_request_id, user_id, amount_minor_units, currency,
				payment_status, payment_method, intent_id, charge_id,
				ledger_record_id, failure_reason, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			member.ID,
			member.PaymentRequestID,
			member.UserID,
			member.AmountMinorUnits,
			member.Currency,
			member.Status,
			member.PaymentMethod,
			member.IntentID,
			member.ChargeID,
			member.LedgerRecordID,
			member.FailureReason,
			member.CreatedAt,
			member.UpdatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentMember, error) {
	var member domain.PaymentMember
	err := db.WithContext(ctx).Raw(
		`SELECT id, payment_request_id, user_id, amount_minor_units, currency,
			payment_status, paid_at, payment_method, intent_id, charge_id,
			ledger_record_id, failure_reason, created_at, updated_at
		 FROM payment_request_members
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) ListByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID, status domain.Status) ([]*domain.PaymentMember, error) {
	query := `SELECT id, payment_request_id, user_id, amount_minor_units, currency,
			payment_status, paid_at, payment_method, intent_id, charge_id,
			ledger_record_id, failure_reason, created_at, updated_at
		 FROM payment_request_members
		 WHERE payment_request_id = ?`
	args := []any{requestID}
	if status != "" {
		query += ` AND payment_status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id`

	var members []*domain.PaymentMember
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) BindIntent(ctx context.Context, db *gorm.DB, id snowflake.ID, intentID string, ledgerRecordID snowflake.ID, paymentMethod string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_request_members
		 SET intent_id = ?, ledger_record_id = ?, payment_method = ?, updated_at = ?
		 WHERE id = ?`,
		intentID,
		ledgerRecordID,
		paymentMethod,
		now,
		id,
	).Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeID string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_request_members
		 SET payment_status = ?, paid_at = ?, charge_id = ?, failure_reason = '', updated_at = ?
		 WHERE id = ? AND payment_status <> ?`,
		domain.StatusPaid,
		now,
		chargeID,
		now,
		id,
		domain.StatusPaid,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_request_members
		 SET payment_status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND payment_status <> ?`,
		domain.StatusFailed,
		reason,
		now,
		id,
		domain.StatusPaid,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ClearIntent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_request_members
		 SET payment_status = ?, intent_id = '', ledger_record_id = 0, updated_at = ?
		 WHERE id = ? AND payment_status <> ?`,
		domain.StatusUnpaid,
		now,
		id,
		domain.StatusPaid,
	)
	return res.RowsAffected, res.Error
}

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/paymentrequest/domain"
	"github.com/goalline/clubpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, request *domain.PaymentRequest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_requests (
			id, team_id, created_by, title, description, amount_minor_units,
			currency, due_date, payment_type, status, total_members,
			paid_members, total_collected_minor_units, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID,
		request.TeamID,
		request.CreatedBy,
		request.Title,
		request.Description,
		request.AmountMinorUnits,
		request.Currency,
		request.DueDate,
		request.PaymentType,
		request.Status,
		request.TotalMembers,
		request.PaidMembers,
		request.TotalCollectedMinorUnits,
		request.CreatedAt,
		request.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentRequest, error) {
	var request domain.PaymentRequest
	err := db.WithContext(ctx).Raw(
		`SELECT id, team_id, created_by, title, description, amount_minor_units,
			currency, due_date, payment_type, status, total_members,
			paid_members, total_collected_minor_units, cancel_reason,
			cancelled_at, created_at, updated_at
		 FROM payment_requests
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&request).Error
	if err != nil {
		return nil, err
	}
	if request.ID == 0 {
		return nil, nil
	}
	return &request, nil
}

func (r *repo) UpdateMetadata(ctx context.Context, db *gorm.DB, id snowflake.ID, patch domain.MetadataPatch, now time.Time) (int64, error) {
	sets := []string{"updated_at = ?"}
	args := []any{now}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, *patch.DueDate)
	}
	if patch.PaymentType != nil {
		sets = append(sets, "payment_type = ?")
		args = append(args, *patch.PaymentType)
	}
	args = append(args, id, domain.StatusActive)

	res := db.WithContext(ctx).Exec(
		`UPDATE payment_requests
		 SET `+strings.Join(sets, ", ")+`
		 WHERE id = ? AND status = ?`,
		args...,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListForTeam(ctx context.Context, db *gorm.DB, teamID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.RequestWithCounts, error) {
	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	query := `SELECT pr.id, pr.team_id, pr.created_by, pr.title, pr.description,
			pr.amount_minor_units, pr.currency, pr.due_date, pr.payment_type,
			pr.status, pr.total_members, pr.paid_members,
			pr.total_collected_minor_units, pr.cancel_reason, pr.cancelled_at,
			pr.created_at, pr.updated_at,
			COALESCE(SUM(CASE WHEN m.payment_status = 'paid' THEN 1 ELSE 0 END), 0) AS paid_count,
			COUNT(m.id) AS total_count
		 FROM payment_requests pr
		 LEFT JOIN payment_request_members m ON m.payment_request_id = pr.id
		 WHERE pr.team_id = ?`
	args := []any{teamID}

	if !filter.IncludeCancelled {
		query += ` AND pr.status <> ?`
		args = append(args, domain.StatusCancelled)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		query += ` AND (pr.created_at < ? OR (pr.created_at = ? AND pr.id < ?))`
		args = append(args, createdAt, createdAt, cursorID)
	}

	query += ` GROUP BY pr.id
		 ORDER BY pr.created_at DESC, pr.id DESC
		 LIMIT ?`
	args = append(args, pageSize+1)

	var rows []*domain.RequestWithCounts
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_requests
		 SET status = ?, cancel_reason = ?, cancelled_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusCancelled,
		reason,
		now,
		now,
		id,
		domain.StatusActive,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) IncrementTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, paidDelta int, collectedDelta int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_requests
		 SET paid_members = paid_members + ?,
			 total_collected_minor_units = total_collected_minor_units + ?,
			 updated_at = ?
		 WHERE id = ?`,
		paidDelta,
		collectedDelta,
		now,
		id,
	).Error
}

func (r *repo) MarkCompletedIfSettled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_requests
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND total_members > 0 AND paid_members >= total_members`,
		domain.StatusCompleted,
		now,
		id,
		domain.StatusActive,
	).Error
}

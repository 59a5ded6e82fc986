package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/reminder/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *domain.ReminderLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_reminders (id, payment_request_id, user_id, sent_at)
		 VALUES (?, ?, ?, ?)`,
		log.ID,
		log.PaymentRequestID,
		log.UserID,
		log.SentAt,
	).Error
}

func (r *repo) LastSentAt(ctx context.Context, db *gorm.DB, requestID snowflake.ID) (map[snowflake.ID]time.Time, error) {
	var rows []struct {
		UserID snowflake.ID
		SentAt time.Time
	}
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, MAX(sent_at) AS sent_at
		 FROM payment_reminders
		 WHERE payment_request_id = ?
		 GROUP BY user_id`,
		requestID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[snowflake.ID]time.Time, len(rows))
	for _, row := range rows {
		latest[row.UserID] = row.SentAt
	}
	return latest, nil
}

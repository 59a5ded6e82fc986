package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	IncludeCancelled bool
}

type MetadataPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	PaymentType *string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, request *PaymentRequest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentRequest, error)
	UpdateMetadata(ctx context.Context, db *gorm.DB, id snowflake.ID, patch MetadataPatch, now time.Time) (int64, error)
	ListForTeam(ctx context.Context, db *gorm.DB, teamID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*RequestWithCounts, error)
	MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (int64, error)

	// IncrementTotals applies a relative delta to the aggregate counters so
	// concurrent settlement of different members never loses updates.
	IncrementTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, paidDelta int, collectedDelta int64, now time.Time) error
	// MarkCompletedIfSettled flips an active request to completed once every
	// member has paid.
	MarkCompletedIfSettled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
}

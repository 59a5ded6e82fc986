package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type RequestStatus string

const (
	StatusActive    RequestStatus = "active"
	StatusCancelled RequestStatus = "cancelled"
	StatusCompleted RequestStatus = "completed"
)

// Terminal reports whether the status can no longer change. Cancelled and
// completed requests are not re-enterable.
func (s RequestStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// PaymentRequest is a club admin's request to collect a fixed amount from a
// set of team members. AmountMinorUnits is the per-member base amount before
// the gateway fee; the post-fee amount each member owes is frozen onto the
// member rows at creation time.
type PaymentRequest struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	TeamID           snowflake.ID  `json:"team_id" gorm:"not null;index"`
	CreatedBy        snowflake.ID  `json:"created_by" gorm:"not null"`
	Title            string        `json:"title" gorm:"type:text;not null"`
	Description      string        `json:"description,omitempty" gorm:"type:text"`
	AmountMinorUnits int64         `json:"amount_minor_units" gorm:"not null"`
	Currency         string        `json:"currency" gorm:"type:text;not null"`
	DueDate          time.Time     `json:"due_date" gorm:"not null"`
	PaymentType      string        `json:"payment_type" gorm:"type:text;not null"`
	Status           RequestStatus `json:"status" gorm:"type:text;not null"`

	TotalMembers             int   `json:"total_members" gorm:"not null"`
	PaidMembers              int   `json:"paid_members" gorm:"not null"`
	TotalCollectedMinorUnits int64 `json:"total_collected_minor_units" gorm:"not null"`

	CancelReason string     `json:"cancel_reason,omitempty" gorm:"type:text"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"not null"`
}

func (PaymentRequest) TableName() string { return "payment_requests" }

// RequestWithCounts annotates a request with counts computed from the joined
// member rows at read time. The persisted aggregate fields stay authoritative
// for consumers that cannot join.
type RequestWithCounts struct {
	PaymentRequest
	PaidCount  int `json:"paid_count" gorm:"column:paid_count"`
	TotalCount int `json:"total_count" gorm:"column:total_count"`
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TeamAccount maps a club team to its gateway connected account, the
// sub-account collected funds are transferred to.
type TeamAccount struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	TeamID    snowflake.ID `json:"team_id" gorm:"not null;uniqueIndex"`
	Provider  string       `json:"provider" gorm:"type:text;not null"`
	AccountID string       `json:"account_id" gorm:"type:text;not null"`
	IsActive  bool         `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (TeamAccount) TableName() string { return "team_gateway_accounts" }

type Repository interface {
	FindByTeam(ctx context.Context, db *gorm.DB, teamID snowflake.ID) (*TeamAccount, error)
}

// ErrNotConfigured means the team has no active gateway account; an admin has
// to connect one before charges can be collected.
var ErrNotConfigured = errors.New("gateway_account_not_configured")

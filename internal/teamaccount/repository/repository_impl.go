package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/teamaccount/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByTeam(ctx context.Context, db *gorm.DB, teamID snowflake.ID) (*domain.TeamAccount, error) {
	var account domain.TeamAccount
	err := db.WithContext(ctx).Raw(
		`SELECT id, team_id, provider, account_id, is_active, created_at, updated_at
		 FROM team_gateway_accounts
		 WHERE team_id = ? AND is_active = TRUE
		 LIMIT 1`,
		teamID,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

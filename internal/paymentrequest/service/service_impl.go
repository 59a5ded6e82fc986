package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/actorctx"
	"github.com/goalline/clubpay/internal/paymentrequest/domain"
	"github.com/goalline/clubpay/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("paymentrequest.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.PaymentRequest, error) {
	actorID, ok := actorctx.UserIDFromContext(ctx)
	if !ok || actorID == 0 {
		return domain.PaymentRequest{}, domain.ErrUnauthenticated
	}
	if req.TeamID == 0 {
		return domain.PaymentRequest{}, domain.ErrInvalidTeam
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.PaymentRequest{}, domain.ErrInvalidTitle
	}
	if req.AmountMinorUnits <= 0 {
		return domain.PaymentRequest{}, domain.ErrInvalidAmount
	}
	if req.DueDate.IsZero() {
		return domain.PaymentRequest{}, domain.ErrInvalidDueDate
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "GBP"
	}

	now := time.Now().UTC()
	request := domain.PaymentRequest{
		ID:               s.genID.Generate(),
		TeamID:           req.TeamID,
		CreatedBy:        actorID,
		Title:            title,
		Description:      strings.TrimSpace(req.Description),
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         currency,
		DueDate:          req.DueDate.UTC(),
		PaymentType:      strings.TrimSpace(req.PaymentType),
		Status:           domain.StatusActive,
		TotalMembers:     req.TotalMembers,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, &request); err != nil {
		return domain.PaymentRequest{}, err
	}

	s.log.Info("payment request created",
		zap.String("payment_request_id", request.ID.String()),
		zap.String("team_id", request.TeamID.String()),
		zap.Int64("amount_minor_units", request.AmountMinorUnits),
		zap.Int("total_members", request.TotalMembers),
	)
	return request, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.PaymentRequest, error) {
	if req.ID == 0 {
		return domain.PaymentRequest{}, domain.ErrNotFound
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return domain.PaymentRequest{}, domain.ErrInvalidTitle
	}

	now := time.Now().UTC()
	patch := domain.MetadataPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		PaymentType: req.PaymentType,
	}

	affected, err := s.repo.UpdateMetadata(ctx, s.db, req.ID, patch, now)
	if err != nil {
		return domain.PaymentRequest{}, err
	}
	if affected == 0 {
		existing, err := s.repo.FindByID(ctx, s.db, req.ID)
		if err != nil {
			return domain.PaymentRequest{}, err
		}
		if existing == nil {
			return domain.PaymentRequest{}, domain.ErrNotFound
		}
		return domain.PaymentRequest{}, domain.ErrFinalized
	}

	updated, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return domain.PaymentRequest{}, err
	}
	if updated == nil {
		return domain.PaymentRequest{}, domain.ErrNotFound
	}
	return *updated, nil
}

func (s *Service) ListForTeam(ctx context.Context, req domain.ListForTeamRequest) (domain.ListForTeamResponse, error) {
	if req.TeamID == 0 {
		return domain.ListForTeamResponse{}, domain.ErrInvalidTeam
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	rows, err := s.repo.ListForTeam(ctx, s.db, req.TeamID, domain.ListFilter{
		IncludeCancelled: req.IncludeCancelled,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListForTeamResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, pageSize, func(row *domain.RequestWithCounts) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        row.ID.String(),
			CreatedAt: row.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(rows) > pageSize {
		rows = rows[:pageSize]
	}

	requests := make([]domain.RequestWithCounts, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		requests = append(requests, *row)
	}

	resp := domain.ListForTeamResponse{Requests: requests}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelRequest) error {
	if req.ID == 0 {
		return domain.ErrNotFound
	}

	now := time.Now().UTC()
	affected, err := s.repo.MarkCancelled(ctx, s.db, req.ID, strings.TrimSpace(req.Reason), now)
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := s.repo.FindByID(ctx, s.db, req.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		return domain.ErrFinalized
	}

	s.log.Info("payment request cancelled",
		zap.String("payment_request_id", req.ID.String()),
		zap.String("reason", req.Reason),
	)
	return nil
}

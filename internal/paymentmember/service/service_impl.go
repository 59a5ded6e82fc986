package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/clock"
	gatewaydomain "github.com/goalline/clubpay/internal/gateway/domain"
	ledgerdomain "github.com/goalline/clubpay/internal/ledger/domain"
	"github.com/goalline/clubpay/internal/paymentmember/domain"
	requestdomain "github.com/goalline/clubpay/internal/paymentrequest/domain"
	teamdomain "github.com/goalline/clubpay/internal/teamaccount/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Requests requestdomain.Repository
	Ledger   ledgerdomain.Repository
	Accounts teamdomain.Repository
	Gateway  gatewaydomain.IntentClient
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	requests requestdomain.Repository
	ledger   ledgerdomain.Repository
	accounts teamdomain.Repository
	gateway  gatewaydomain.IntentClient
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("paymentmember.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		requests: p.Requests,
		ledger:   p.Ledger,
		accounts: p.Accounts,
		gateway:  p.Gateway,
	}
}

func (s *Service) CreateMembers(ctx context.Context, req domain.CreateMembersRequest) error {
	if req.PaymentRequestID == 0 || len(req.UserIDs) == 0 {
		return domain.ErrInvalidMembers
	}
	if req.AmountMinorUnits <= 0 {
		return domain.ErrInvalidAmount
	}

	now := s.clock.Now().UTC()
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "GBP"
	}

	members := make([]*domain.PaymentMember, 0, len(req.UserIDs))
	seen := make(map[snowflake.ID]struct{}, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		if userID == 0 {
			return domain.ErrInvalidMembers
		}
		if _, ok := seen[userID]; ok {
			return domain.ErrInvalidMembers
		}
		seen[userID] = struct{}{}
		members = append(members, &domain.PaymentMember{
			ID:               s.genID.Generate(),
			PaymentRequestID: req.PaymentRequestID,
			UserID:           userID,
			AmountMinorUnits: req.AmountMinorUnits,
			Currency:         currency,
			Status:           domain.StatusUnpaid,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.BulkInsert(ctx, tx, members)
	})
	if err != nil {
		return err
	}

	s.log.Info("payment members created",
		zap.String("payment_request_id", req.PaymentRequestID.String()),
		zap.Int("members", len(members)),
	)
	return nil
}

func (s *Service) BindChargeIntent(ctx context.Context, req domain.BindIntentRequest) (domain.BindIntentResult, error) {
	member, err := s.repo.FindByID(ctx, s.db, req.MemberID)
	if err != nil {
		return domain.BindIntentResult{}, err
	}
	if member == nil {
		return domain.BindIntentResult{}, domain.ErrMemberNotFound
	}
	if member.Status.Settled() {
		return domain.BindIntentResult{}, domain.ErrAlreadyPaid
	}

	request, err := s.requests.FindByID(ctx, s.db, member.PaymentRequestID)
	if err != nil {
		return domain.BindIntentResult{}, err
	}
	if request == nil {
		return domain.BindIntentResult{}, requestdomain.ErrNotFound
	}
	if request.Status.Terminal() {
		return domain.BindIntentResult{}, requestdomain.ErrFinalized
	}

	account, err := s.accounts.FindByTeam(ctx, s.db, request.TeamID)
	if err != nil {
		return domain.BindIntentResult{}, err
	}
	if account == nil {
		return domain.BindIntentResult{}, teamdomain.ErrNotConfigured
	}

	if member.IntentID != "" {
		existing, err := s.gateway.RetrieveIntent(ctx, account.AccountID, member.IntentID)
		if err != nil {
			s.log.Warn("retrieve bound intent failed, creating a new one",
				zap.String("payment_member_id", member.ID.String()),
				zap.String("intent_id", member.IntentID),
				zap.Error(err),
			)
		} else if existing.Retryable() {
			return domain.BindIntentResult{Intent: existing, Reused: true}, nil
		}
	}

	now := s.clock.Now().UTC()
	record := &ledgerdomain.Record{
		ID:               s.genID.Generate(),
		UserID:           member.UserID,
		PaymentRequestID: member.PaymentRequestID,
		AmountMinorUnits: member.AmountMinorUnits,
		Currency:         member.Currency,
		Status:           ledgerdomain.RecordStatusPending,
		PaymentMethod:    req.PaymentMethod,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	intent, err := s.gateway.CreateIntent(ctx, gatewaydomain.CreateIntentParams{
		AccountID: account.AccountID,
		Amount:    member.AmountMinorUnits,
		Currency:  member.Currency,
		Metadata: map[string]string{
			"member_id":      member.ID.String(),
			"request_id":     member.PaymentRequestID.String(),
			"user_id":        member.UserID.String(),
			"team_id":        request.TeamID.String(),
			"payment_method": req.PaymentMethod,
		},
		IdempotencyKey: record.ID.String(),
	})
	if err != nil {
		return domain.BindIntentResult{}, err
	}
	record.IntentID = intent.ID

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.Insert(ctx, tx, record); err != nil {
			return err
		}
		return s.repo.BindIntent(ctx, tx, member.ID, intent.ID, record.ID, req.PaymentMethod, now)
	})
	if err != nil {
		// The intent exists at the gateway but nothing local points at it.
		// Cancel it so the member can bind a fresh one on retry.
		if cancelErr := s.gateway.CancelIntent(ctx, account.AccountID, intent.ID); cancelErr != nil {
			s.log.Warn("cancel orphaned intent failed",
				zap.String("payment_member_id", member.ID.String()),
				zap.String("intent_id", intent.ID),
				zap.Error(cancelErr),
			)
		}
		return domain.BindIntentResult{}, err
	}

	s.log.Info("charge intent bound",
		zap.String("payment_member_id", member.ID.String()),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_minor_units", member.AmountMinorUnits),
	)
	return domain.BindIntentResult{Intent: intent}, nil
}

func (s *Service) ApplySuccess(ctx context.Context, req domain.ApplySuccessRequest) error {
	member, err := s.repo.FindByID(ctx, s.db, req.MemberID)
	if err != nil {
		return err
	}
	if member == nil {
		return domain.ErrMemberNotFound
	}

	now := s.clock.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.MarkPaid(ctx, tx, member.ID, req.ChargeID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			// Replayed delivery, the row already settled. Counting again here
			// would double the aggregates.
			return nil
		}
		if err := s.ledger.MarkStatusByIntent(ctx, tx, req.IntentID, ledgerdomain.RecordStatusSucceeded, now); err != nil {
			return err
		}
		if err := s.requests.IncrementTotals(ctx, tx, member.PaymentRequestID, 1, member.AmountMinorUnits, now); err != nil {
			return err
		}
		return s.requests.MarkCompletedIfSettled(ctx, tx, member.PaymentRequestID, now)
	})
}

func (s *Service) ApplyFailure(ctx context.Context, req domain.ApplyFailureRequest) error {
	member, err := s.repo.FindByID(ctx, s.db, req.MemberID)
	if err != nil {
		return err
	}
	if member == nil {
		return domain.ErrMemberNotFound
	}
	if member.Status.Settled() {
		return nil
	}

	now := s.clock.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.MarkFailed(ctx, tx, member.ID, req.Reason, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		return s.ledger.MarkStatusByIntent(ctx, tx, req.IntentID, ledgerdomain.RecordStatusFailed, now)
	})
}

func (s *Service) ApplyCancellation(ctx context.Context, req domain.ApplyCancellationRequest) error {
	member, err := s.repo.FindByID(ctx, s.db, req.MemberID)
	if err != nil {
		return err
	}
	if member == nil {
		return domain.ErrMemberNotFound
	}
	if member.Status.Settled() {
		return nil
	}

	now := s.clock.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.ClearIntent(ctx, tx, member.ID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		return s.ledger.MarkStatusByIntent(ctx, tx, req.IntentID, ledgerdomain.RecordStatusFailed, now)
	})
}

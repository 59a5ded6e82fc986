package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/clock"
	"github.com/goalline/clubpay/internal/config"
	"github.com/goalline/clubpay/internal/metrics"
	memberdomain "github.com/goalline/clubpay/internal/paymentmember/domain"
	requestdomain "github.com/goalline/clubpay/internal/paymentrequest/domain"
	"github.com/goalline/clubpay/internal/providers/push"
	"github.com/goalline/clubpay/internal/ratelimit"
	"github.com/goalline/clubpay/internal/reminder/domain"
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
	Cfg      config.Config
	Repo     domain.Repository
	Requests requestdomain.Repository
	Members  memberdomain.Repository
	Push     push.Provider
	Limiter  *ratelimit.ReminderLimiter `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      config.Config
	repo     domain.Repository
	requests requestdomain.Repository
	members  memberdomain.Repository
	push     push.Provider
	limiter  *ratelimit.ReminderLimiter
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("reminder.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Cfg,
		repo:     p.Repo,
		requests: p.Requests,
		members:  p.Members,
		push:     p.Push,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}
}

// SendReminders pushes a payment reminder to every member who still owes on
// the request. A member who got a reminder inside the rolling window is
// reported in Failed instead of being notified again.
func (s *Service) SendReminders(ctx context.Context, req domain.SendRemindersRequest) (domain.Result, error) {
	if req.PaymentRequestID == 0 {
		return domain.Result{}, requestdomain.ErrNotFound
	}

	request, err := s.requests.FindByID(ctx, s.db, req.PaymentRequestID)
	if err != nil {
		return domain.Result{}, err
	}
	if request == nil {
		return domain.Result{}, requestdomain.ErrNotFound
	}
	if request.Status.Terminal() {
		return domain.Result{}, requestdomain.ErrFinalized
	}

	token, acquired, err := s.limiter.TryLockDispatch(ctx, request.ID.String())
	if err != nil {
		return domain.Result{}, err
	}
	if !acquired {
		return domain.Result{}, domain.ErrDispatchInProgress
	}
	defer func() {
		if releaseErr := s.limiter.ReleaseDispatch(ctx, request.ID.String(), token); releaseErr != nil {
			s.log.Warn("release dispatch lock failed",
				zap.String("payment_request_id", request.ID.String()),
				zap.Error(releaseErr),
			)
		}
	}()

	members, err := s.members.ListByRequest(ctx, s.db, request.ID, "")
	if err != nil {
		return domain.Result{}, err
	}

	lastSent, err := s.repo.LastSentAt(ctx, s.db, request.ID)
	if err != nil {
		return domain.Result{}, err
	}

	var wanted map[snowflake.ID]struct{}
	if len(req.Recipients) > 0 {
		wanted = make(map[snowflake.ID]struct{}, len(req.Recipients))
		for _, userID := range req.Recipients {
			wanted[userID] = struct{}{}
		}
	}

	now := s.clock.Now().UTC()
	window := s.cfg.ReminderWindow
	notification := push.Notification{
		Title: "Payment reminder",
		Body:  fmt.Sprintf("%s is still waiting on your payment.", request.Title),
		Data: map[string]string{
			"payment_request_id": request.ID.String(),
		},
	}

	var result domain.Result
	for _, member := range members {
		if member == nil || member.Status.Settled() {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[member.UserID]; !ok {
				continue
			}
		}

		if sentAt, ok := lastSent[member.UserID]; ok && now.Sub(sentAt) < window {
			result.Failed = append(result.Failed, domain.FailedRecipient{
				UserID: member.UserID,
				Reason: domain.FailureReasonRateLimited,
			})
			s.metrics.RecordReminderSkipped()
			continue
		}

		if err := s.push.Send(ctx, member.UserID, notification); err != nil {
			s.log.Warn("reminder delivery failed",
				zap.String("payment_request_id", request.ID.String()),
				zap.String("user_id", member.UserID.String()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, domain.FailedRecipient{
				UserID: member.UserID,
				Reason: domain.FailureReasonDeliveryFailed,
			})
			continue
		}

		if err := s.repo.Insert(ctx, s.db, &domain.ReminderLog{
			ID:               s.genID.Generate(),
			PaymentRequestID: request.ID,
			UserID:           member.UserID,
			SentAt:           now,
		}); err != nil {
			return result, err
		}
		result.Sent++
		s.metrics.RecordReminderSent()
	}

	s.log.Info("reminders dispatched",
		zap.String("payment_request_id", request.ID.String()),
		zap.Int("sent", result.Sent),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

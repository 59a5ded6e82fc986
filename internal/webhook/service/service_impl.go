package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/clock"
	gatewaydomain "github.com/goalline/clubpay/internal/gateway/domain"
	"github.com/goalline/clubpay/internal/metrics"
	memberdomain "github.com/goalline/clubpay/internal/paymentmember/domain"
	"github.com/goalline/clubpay/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Adapter gatewaydomain.WebhookAdapter
	Members memberdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	adapter gatewaydomain.WebhookAdapter
	members memberdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("webhook.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		adapter: p.Adapter,
		members: p.Members,
		metrics: p.Metrics,
	}
}

// Handle verifies, dedupes and dispatches one gateway delivery. Unrecognized
// event types are acknowledged without touching any member row so the gateway
// stops retrying them.
func (s *Service) Handle(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.adapter.Verify(ctx, payload, headers); err != nil {
		return err
	}
	if !json.Valid(payload) {
		return gatewaydomain.ErrInvalidPayload
	}

	event, err := s.adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, gatewaydomain.ErrEventIgnored) {
			s.metrics.RecordWebhookEvent("unknown", "ignored")
			return nil
		}
		return err
	}
	if event.ProviderEventID == "" || event.MemberID == 0 {
		return gatewaydomain.ErrInvalidEvent
	}

	now := s.clock.Now().UTC()
	received := domain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		MemberID:        event.MemberID,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return gatewaydomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			s.metrics.RecordWebhookEvent(event.Type, "replayed")
			return domain.ErrEventAlreadyProcessed
		}
	}

	if err := s.dispatch(ctx, event); err != nil {
		s.metrics.RecordWebhookEvent(event.Type, "error")
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, now); err != nil {
		return err
	}

	s.metrics.RecordWebhookEvent(event.Type, "processed")
	s.log.Info("gateway event processed",
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("event_type", event.Type),
		zap.String("payment_member_id", event.MemberID.String()),
	)
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *gatewaydomain.Event) error {
	switch event.Type {
	case gatewaydomain.EventTypeIntentSucceeded:
		return s.members.ApplySuccess(ctx, memberdomain.ApplySuccessRequest{
			IntentID:         event.IntentID,
			ChargeID:         event.ChargeID,
			MemberID:         event.MemberID,
			AmountMinorUnits: event.Amount,
		})
	case gatewaydomain.EventTypeIntentFailed:
		return s.members.ApplyFailure(ctx, memberdomain.ApplyFailureRequest{
			IntentID: event.IntentID,
			MemberID: event.MemberID,
			Reason:   event.FailureReason,
		})
	case gatewaydomain.EventTypeIntentCanceled:
		return s.members.ApplyCancellation(ctx, memberdomain.ApplyCancellationRequest{
			IntentID: event.IntentID,
			MemberID: event.MemberID,
		})
	default:
		return gatewaydomain.ErrInvalidEvent
	}
}

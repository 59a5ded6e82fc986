package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/goalline/clubpay/internal/config"
	"github.com/goalline/clubpay/internal/metrics"
	memberdomain "github.com/goalline/clubpay/internal/paymentmember/domain"
	requestdomain "github.com/goalline/clubpay/internal/paymentrequest/domain"
	"github.com/goalline/clubpay/internal/ratelimit"
	reminderdomain "github.com/goalline/clubpay/internal/reminder/domain"
	webhookdomain "github.com/goalline/clubpay/internal/webhook/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if registry := m.Registry(); registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return r
}

type engineParams struct {
	fx.In

	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func registerGin(p engineParams) *gin.Engine {
	return NewEngine(p.Log, p.Metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	genID           *snowflake.Node
	requestSvc      requestdomain.Service
	memberSvc       memberdomain.Service
	webhookSvc      webhookdomain.Service
	reminderSvc     reminderdomain.Service
	reminderLimiter *ratelimit.ReminderLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	GenID           *snowflake.Node
	RequestSvc      requestdomain.Service
	MemberSvc       memberdomain.Service
	WebhookSvc      webhookdomain.Service
	ReminderSvc     reminderdomain.Service
	ReminderLimiter *ratelimit.ReminderLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		db:              p.DB,
		genID:           p.GenID,
		requestSvc:      p.RequestSvc,
		memberSvc:       p.MemberSvc,
		webhookSvc:      p.WebhookSvc,
		reminderSvc:     p.ReminderSvc,
		reminderLimiter: p.ReminderLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", s.ActorContext())

	v1.GET("/fees/preview", s.PreviewFee)

	v1.POST("/payment-requests", s.CreatePaymentRequest)
	v1.GET("/payment-requests", s.ListPaymentRequests)
	v1.PATCH("/payment-requests/:id", s.UpdatePaymentRequest)
	v1.POST("/payment-requests/:id/cancel", s.CancelPaymentRequest)
	v1.POST("/payment-requests/:id/reminders", s.ReminderThrottle(), s.SendReminders)

	v1.POST("/payment-members/:id/intent", s.BindChargeIntent)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/v1/webhooks/stripe", s.HandleGatewayWebhook)
}

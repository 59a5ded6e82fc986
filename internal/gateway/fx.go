package gateway

import (
	"github.com/goalline/clubpay/internal/config"
	"github.com/goalline/clubpay/internal/gateway/domain"
	"github.com/goalline/clubpay/internal/gateway/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway",
	fx.Provide(func(cfg config.Config) domain.IntentClient {
		return stripe.NewClient(cfg.GatewayAPIKey)
	}),
	fx.Provide(func(cfg config.Config) domain.WebhookAdapter {
		return stripe.NewAdapter(cfg.WebhookSecret)
	}),
)

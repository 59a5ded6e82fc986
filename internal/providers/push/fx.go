package push

import (
	"github.com/goalline/clubpay/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.push",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.PushEndpoint == "" {
		return &NoOpProvider{}
	}
	return NewHTTP(Config{
		Endpoint:  cfg.PushEndpoint,
		AuthToken: cfg.PushAuthToken,
	})
}

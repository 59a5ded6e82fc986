package webhook

import (
	"github.com/goalline/clubpay/internal/webhook/repository"
	"github.com/goalline/clubpay/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

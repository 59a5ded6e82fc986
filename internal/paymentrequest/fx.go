package paymentrequest

import (
	"github.com/goalline/clubpay/internal/paymentrequest/repository"
	"github.com/goalline/clubpay/internal/paymentrequest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentrequest.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package paymentmember

import (
	"github.com/goalline/clubpay/internal/paymentmember/repository"
	"github.com/goalline/clubpay/internal/paymentmember/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentmember.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

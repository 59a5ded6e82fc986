package reminder

import (
	"github.com/goalline/clubpay/internal/reminder/repository"
	"github.com/goalline/clubpay/internal/reminder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reminder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

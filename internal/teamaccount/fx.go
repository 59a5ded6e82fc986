package teamaccount

import (
	"github.com/goalline/clubpay/internal/teamaccount/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("teamaccount",
	fx.Provide(repository.Provide),
)

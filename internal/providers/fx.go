package providers

import (
	"github.com/goalline/clubpay/internal/providers/push"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	push.Module,
)

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/clock"
	"github.com/goalline/clubpay/internal/config"
	"github.com/goalline/clubpay/internal/gateway"
	"github.com/goalline/clubpay/internal/ledger"
	"github.com/goalline/clubpay/internal/logger"
	"github.com/goalline/clubpay/internal/metrics"
	"github.com/goalline/clubpay/internal/migration"
	"github.com/goalline/clubpay/internal/paymentmember"
	"github.com/goalline/clubpay/internal/paymentrequest"
	"github.com/goalline/clubpay/internal/providers"
	"github.com/goalline/clubpay/internal/ratelimit"
	"github.com/goalline/clubpay/internal/reminder"
	"github.com/goalline/clubpay/internal/server"
	"github.com/goalline/clubpay/internal/teamaccount"
	"github.com/goalline/clubpay/internal/webhook"
	"github.com/goalline/clubpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,

		gateway.Module,
		providers.Module,
		ratelimit.Module,
		teamaccount.Module,
		ledger.Module,
		paymentrequest.Module,
		paymentmember.Module,
		webhook.Module,
		reminder.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

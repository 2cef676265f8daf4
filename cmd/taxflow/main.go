package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/taxflow/internal/cache"
	"github.com/smallbiznis/taxflow/internal/calculation"
	"github.com/smallbiznis/taxflow/internal/clock"
	"github.com/smallbiznis/taxflow/internal/config"
	"github.com/smallbiznis/taxflow/internal/exemption"
	"github.com/smallbiznis/taxflow/internal/jurisdiction"
	"github.com/smallbiznis/taxflow/internal/logger"
	"github.com/smallbiznis/taxflow/internal/migration"
	"github.com/smallbiznis/taxflow/internal/nexus"
	"github.com/smallbiznis/taxflow/internal/observability/metrics"
	"github.com/smallbiznis/taxflow/internal/payroll"
	"github.com/smallbiznis/taxflow/internal/rate"
	"github.com/smallbiznis/taxflow/internal/rule"
	"github.com/smallbiznis/taxflow/internal/server"
	"github.com/smallbiznis/taxflow/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		metrics.Module,
		migration.Module,

		// Functional domains
		jurisdiction.Module,
		rate.Module,
		rule.Module,
		exemption.Module,
		nexus.Module,
		payroll.Module,
		calculation.Module,

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

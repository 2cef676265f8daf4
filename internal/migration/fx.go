package migration

import (
	"github.com/smallbiznis/taxflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func runOnStartup(cfg config.Config, gdb *gorm.DB, log *zap.Logger) error {
	if cfg.DBType != "postgres" {
		// Embedded migrations target postgres; other dialects (sqlite
		// in tests) migrate through gorm AutoMigrate instead.
		log.Info("skipping sql migrations", zap.String("db_type", cfg.DBType))
		return nil
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

// Module applies schema migrations during application startup.
var Module = fx.Module("migration",
	fx.Invoke(runOnStartup),
)

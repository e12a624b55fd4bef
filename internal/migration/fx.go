package migration

import (
	"github.com/smallbiznis/academy/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates schema on startup. Postgres runs the embedded SQL; the
// other dialects fall back to AutoMigrate of models.
func Module(schema Schema, models ...any) fx.Option {
	return fx.Module("migrations."+string(schema),
		fx.Invoke(func(conn *gorm.DB, cfg db.Config, log *zap.Logger) error {
			log = log.Named("migration").With(zap.String("schema", string(schema)))
			if cfg.Type != db.TypePostgres {
				log.Info("auto-migrating models", zap.String("dialect", cfg.Type))
				return conn.AutoMigrate(models...)
			}

			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB, schema); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		}),
	)
}

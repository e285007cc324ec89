package main

import (
	"flag"
	"log"
	"os"

	"github.com/ogurasousui/hrms-lite/internal/platform/config"
	pg "github.com/ogurasousui/hrms-lite/internal/platform/db/postgres"
	"github.com/ogurasousui/hrms-lite/internal/platform/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flag.Parse()

	action := pg.MigrateUp
	if flag.NArg() > 0 {
		action = pg.MigrationAction(flag.Arg(0))
	}

	cfgPath := effectiveConfigPath(*configPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	status, err := pg.Migrate(cfg.Database.DSN(), action)
	if err != nil {
		lg.Error("migration failed", zap.String("action", string(action)), zap.Error(err))
		_ = lg.Sync()
		os.Exit(1)
	}

	if status.None {
		lg.Info("no migration applied", zap.String("action", string(action)))
		return
	}
	lg.Info("migration completed",
		zap.String("action", string(action)),
		zap.Uint("version", status.Version),
		zap.Bool("dirty", status.Dirty),
	)
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

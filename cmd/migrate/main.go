package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/amaiabotanic/storefront/pkg/config"
	"github.com/amaiabotanic/storefront/pkg/db"
	"github.com/amaiabotanic/storefront/pkg/instance"
	"github.com/amaiabotanic/storefront/pkg/logger"
	"github.com/amaiabotanic/storefront/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|current|version|lint")
	dir := flag.String("dir", "", "lint migrations from this directory instead of the embedded set")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     strings.EqualFold(cfg.App.LogFormat, "console"),
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"driver": cfg.DB.Driver,
	})

	if *cmd == "lint" {
		var source fs.FS
		if *dir != "" {
			source = os.DirFS(*dir)
		}
		if err := migrate.Lint(source); err != nil {
			for _, problem := range multierr.Errors(err) {
				fmt.Fprintln(os.Stderr, problem)
			}
			exitf("migration lint failed")
		}
		fmt.Println("migrations ok")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.SQL()
	requireResource(ctx, logg, "sql database", err)
	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, dbClient.Driver(), *cmd); err != nil {
			exitf("goose %s failed: %v", *cmd, err)
		}
	case "current":
		current, err := migrate.Version(ctx, sqlDB, dbClient.Driver())
		if err != nil {
			exitf("goose version lookup failed: %v", err)
		}
		fmt.Println("current version:", current)
	case "version":
		if *version == "" {
			exitf("missing -version for version command")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, dbClient.Driver(), *version); err != nil {
			exitf("goose version migrate failed: %v", err)
		}
	default:
		exitf("unknown -cmd value: %s", *cmd)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

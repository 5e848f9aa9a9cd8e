// cmd/tools/seed-loader/main.go
//
// seed-loader validates a JSON dataset and loads it into the allocation
// store. Run it once against a fresh database to install the initial users
// and projects:
//
//	go run ./cmd/tools/seed-loader -file configs/seed.json
//	go run ./cmd/tools/seed-loader -file configs/seed.json -validate-only
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"bto-allocation/internal/common/config"
	"bto-allocation/internal/common/database"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/seed"
	"bto-allocation/internal/store"
	"bto-allocation/internal/tables"
)

func main() {
	file := flag.String("file", "", "Path to the seed dataset (JSON)")
	validateOnly := flag.Bool("validate-only", false, "Validate the dataset without loading it")
	flag.Parse()

	if *file == "" {
		fmt.Println("Error: -file is required.")
		flag.Usage()
		os.Exit(1)
	}

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	data, err := os.ReadFile(*file)
	if err != nil {
		zapLog.Fatal("dataset read failed", zap.Error(err))
	}
	if err := seed.Validate(data); err != nil {
		zapLog.Fatal("dataset validation failed", zap.Error(err))
	}
	if *validateOnly {
		zapLog.Info("Dataset is valid", zap.String("file", *file))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres ping failed", zap.Error(err))
	}

	st := store.NewPostgres(pg.DB)
	if err := st.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	tbls := tables.New(st, log)
	if err := tbls.Hydrate(ctx); err != nil {
		zapLog.Fatal("table hydration failed", zap.Error(err))
	}

	loader := seed.NewLoader(tbls, cfg.Auth.BcryptCost, log)
	if err := loader.Load(ctx, data); err != nil {
		zapLog.Fatal("dataset load failed", zap.Error(err))
	}

	zapLog.Info("Dataset loaded",
		zap.String("file", *file),
		zap.Int("projects", len(tbls.Projects())),
	)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"slipscan/internal/config"
	"slipscan/internal/listener"
	"slipscan/internal/pipeline"
	"slipscan/internal/storage"
	"slipscan/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger := config.NewLogger(cfg)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	units, err := util.LoadUnitTable(cfg.UnitAliasesFile)
	must(err)
	parser := pipeline.NewSlipParser(pipeline.NewLineNormalizer(cfg.FoldWidth), units)
	processor := pipeline.NewProcessingService(db, cfg, parser, logger)

	svc := listener.NewService(db, cfg, processor, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

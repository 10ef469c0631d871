// Package main runs the dice server: Telnet sessions, the gRPC roll service and
// the Prometheus endpoint over a shared roll service.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/config"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx := context.Background()
	a, cleanup, err := initializeApp(ctx, cfg)
	if err != nil {
		log.Fatalf("initializing dicebot: %v", err)
	}
	defer cleanup()

	a.logger.Info("dicebot initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("grpc_addr", cfg.RPC.Addr()),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("database", cfg.Database.Enabled),
		zap.String("dice_source", cfg.Dice.Source),
	)

	if err := a.lifecycle.Run(ctx); err != nil {
		a.logger.Error("server error", zap.Error(err))
		cleanup()
		log.Fatalf("dicebot: %v", err)
	}
}

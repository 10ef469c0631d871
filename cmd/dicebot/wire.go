//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/cory-johannsen/dicebot/internal/config"
	"github.com/cory-johannsen/dicebot/internal/dice"
	"github.com/cory-johannsen/dicebot/internal/frontend/handlers"
	"github.com/cory-johannsen/dicebot/internal/frontend/telnet"
	"github.com/cory-johannsen/dicebot/internal/observability"
	"github.com/cory-johannsen/dicebot/internal/rollserver"
	"github.com/cory-johannsen/dicebot/internal/scripting"
)

// initializeApp builds the server from cfg.
func initializeApp(ctx context.Context, cfg config.Config) (*app, func(), error) {
	wire.Build(
		wire.FieldsOf(new(config.Config), "Logging", "Telnet", "RPC", "Metrics", "Database", "Dice", "Content"),
		provideLogger,
		provideSource,
		dice.NewLoggedRoller,
		provideMacros,
		provideDatabase,
		provideHistoryStore,
		provideRegistry,
		observability.NewMetrics,
		provideScripts,
		rollserver.NewService,
		handlers.NewRollHandler,
		wire.Bind(new(handlers.ScriptRunner), new(*scripting.Manager)),
		telnet.NewAcceptor,
		wire.Bind(new(telnet.SessionHandler), new(*handlers.RollHandler)),
		provideGRPCServer,
		provideMetricsServer,
		provideLifecycle,
		newApp,
	)
	return nil, nil, nil
}

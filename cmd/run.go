package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arenawager/bot"
	"arenawager/config"
	"arenawager/infrastructure"

	"github.com/samber/do/v2"
	log "github.com/sirupsen/logrus"
)

// Run wires every component, serves until ctx is cancelled, then shuts down cleanly
func Run(ctx context.Context, cfg *config.Config) error {
	log.WithField("environment", cfg.Environment).Info("Starting arenawager...")

	injector := newInjector(cfg)
	app, err := do.Invoke[Application](injector)
	if err != nil {
		if res, resErr := do.Invoke[*resources](injector); resErr == nil {
			res.closeAll()
		}
		return fmt.Errorf("failed to wire application: %w", err)
	}
	defer app.Resources.closeAll()

	// The loop outlives ctx so wagers can still be settled during shutdown
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	app.Loop.Start(loopCtx)

	// Arena definitions and new schematics are loaded on the main context
	var loadErr error
	if err := app.Loop.Call(ctx, func() {
		if loadErr = app.Arenas.Load(ctx); loadErr != nil {
			return
		}
		created, err := app.Arenas.DiscoverSchematics(ctx, cfg.SchematicsDir)
		if err != nil {
			log.WithError(err).Warn("Failed to scan schematics")
			return
		}
		if len(created) > 0 {
			log.WithField("arenas", created).Info("Created arenas from schematics")
		}
	}); err != nil {
		return fmt.Errorf("failed to reach main loop: %w", err)
	}
	if loadErr != nil {
		return loadErr
	}

	listener := infrastructure.NewGameListener(app.NATS, app.Loop, app.Manager, app.Gateway, app.Wallet)
	if err := listener.Start(); err != nil {
		return fmt.Errorf("failed to start game listener: %w", err)
	}
	infrastructure.NewNotifier(app.NATS, cfg.TaxPercent).Subscribe(app.EventBus)

	if err := app.Metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	app.Metrics.Subscribe(app.EventBus)

	var discordBot *bot.Bot
	if cfg.DiscordToken != "" {
		log.Info("Initializing Discord bot...")
		discordBot, err = bot.New(bot.Config{
			Token:      cfg.DiscordToken,
			ChannelID:  cfg.DiscordChannelID,
			TaxPercent: cfg.TaxPercent,
		}, bot.NewLoopDirectory(app.Loop, app.Manager, app.Arenas), app.EventBus)
		if err != nil {
			return fmt.Errorf("failed to initialize Discord bot: %w", err)
		}
		log.Info("Discord bot initialized successfully")
	} else {
		log.Info("DISCORD_TOKEN not set, Discord bot disabled")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP API stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP API")
	}

	settleAll(shutdownCtx, app.Loop, app.Manager)

	if discordBot != nil {
		if err := discordBot.Close(); err != nil {
			log.WithError(err).Error("Error closing Discord bot")
		}
	}

	if err := app.Metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}

// loopRunner is the part of the main loop that shutdown needs
type loopRunner interface {
	Call(ctx context.Context, fn func()) error
	Stop()
}

// wagerSweeper ends every active wager
type wagerSweeper interface {
	ShutdownAll(ctx context.Context)
}

// settleAll ends every wager on the main loop and stops it. If the loop cannot take the
// sweep in time, it is stopped first so the direct sweep never overlaps a running task.
func settleAll(ctx context.Context, loop loopRunner, manager wagerSweeper) {
	var once sync.Once
	sweep := func() { once.Do(func() { manager.ShutdownAll(context.WithoutCancel(ctx)) }) }

	if err := loop.Call(ctx, sweep); err != nil {
		log.WithError(err).Warn("Main loop unavailable, settling wagers after it stops")
		loop.Stop()
		sweep()
		return
	}
	loop.Stop()
}

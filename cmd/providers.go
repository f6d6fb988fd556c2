package cmd

import (
	"context"
	"fmt"
	"sync"

	"arenawager/api"
	"arenawager/config"
	"arenawager/database"
	"arenawager/events"
	"arenawager/infrastructure"
	"arenawager/infrastructure/observability"
	"arenawager/repository"
	"arenawager/scheduler"
	"arenawager/service"

	"github.com/samber/do/v2"
	log "github.com/sirupsen/logrus"
)

// Application is every long lived component, resolved from the injector
type Application struct {
	Config    *config.Config                 `do:""`
	Loop      *scheduler.Loop                `do:""`
	Wallet    service.AccountWallet          `do:""`
	Arenas    *service.ArenaRegistry         `do:""`
	Manager   *service.WagerManager          `do:""`
	NATS      *infrastructure.NATSClient     `do:""`
	Gateway   *infrastructure.GameGateway    `do:""`
	Server    *api.Server                    `do:""`
	Metrics   *observability.MetricsProvider `do:""`
	EventBus  *events.Bus                    `do:""`
	Resources *resources                     `do:""`
}

// resources collects close functions for everything opened during wiring
type resources struct {
	mu      sync.Mutex
	closers []func()
}

func (r *resources) add(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, fn)
}

// closeAll runs close functions in reverse order of registration
func (r *resources) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

func newInjector(cfg *config.Config) do.Injector {
	i := do.New()

	do.ProvideValue(i, cfg)
	do.ProvideValue(i, events.NewBus())
	do.ProvideValue(i, &resources{})

	do.Provide(i, newLoop)
	do.Provide(i, newWallet)
	do.Provide(i, newArenaStore)
	do.Provide(i, newNATSClient)
	do.Provide(i, newGameGateway)
	do.Provide(i, newArenaRegistry)
	do.Provide(i, newWagerManager)
	do.Provide(i, newAPIServer)
	do.Provide(i, newMetricsProvider)
	do.Provide(i, do.InvokeStruct[Application])

	return i
}

func newLoop(i do.Injector) (*scheduler.Loop, error) {
	return scheduler.NewLoop(1024), nil
}

func newWallet(i do.Injector) (service.AccountWallet, error) {
	cfg := do.MustInvoke[*config.Config](i)
	bus := do.MustInvoke[*events.Bus](i)
	res := do.MustInvoke[*resources](i)

	switch cfg.WalletBackend {
	case config.WalletSQLite:
		wallet, err := repository.NewSQLiteWallet(cfg.SQLitePath, cfg.StartingBalance, bus)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite wallet: %w", err)
		}
		res.add(func() {
			if err := wallet.Close(); err != nil {
				log.WithError(err).Error("Failed to close sqlite wallet")
			}
		})
		log.WithField("path", cfg.SQLitePath).Info("Using sqlite wallet")
		return wallet, nil

	default:
		url := database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName)
		if err := database.MigrateUp(url); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		db, err := database.NewConnection(context.Background(), url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		res.add(db.Close)
		log.Info("Using postgres ledger wallet")
		return service.NewLedgerWallet(repository.NewUnitOfWorkFactory(db, bus), cfg.StartingBalance), nil
	}
}

func newArenaStore(i do.Injector) (*repository.BoltArenaStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	res := do.MustInvoke[*resources](i)

	store, err := repository.NewBoltArenaStore(cfg.ArenaDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open arena store: %w", err)
	}
	res.add(func() {
		if err := store.Shutdown(); err != nil {
			log.WithError(err).Error("Failed to close arena store")
		}
	})
	return store, nil
}

func newNATSClient(i do.Injector) (*infrastructure.NATSClient, error) {
	cfg := do.MustInvoke[*config.Config](i)
	res := do.MustInvoke[*resources](i)

	client := infrastructure.NewNATSClient(cfg.NATSURL)
	if err := client.Connect(context.Background()); err != nil {
		return nil, err
	}
	res.add(func() { _ = client.Close() })
	return client, nil
}

func newGameGateway(i do.Injector) (*infrastructure.GameGateway, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := do.MustInvoke[*infrastructure.NATSClient](i)
	return infrastructure.NewGameGateway(client, cfg.GameRequestTimeout), nil
}

func newArenaRegistry(i do.Injector) (*service.ArenaRegistry, error) {
	cfg := do.MustInvoke[*config.Config](i)
	store := do.MustInvoke[*repository.BoltArenaStore](i)
	gateway := do.MustInvoke[*infrastructure.GameGateway](i)
	loop := do.MustInvoke[*scheduler.Loop](i)
	return service.NewArenaRegistry(store, gateway, loop, cfg.ArenaWorld), nil
}

func managerConfig(cfg *config.Config) service.ManagerConfig {
	mc := service.DefaultManagerConfig()
	mc.MinStake = cfg.MinWager
	mc.MaxStake = cfg.MaxWager
	mc.TaxPercent = cfg.TaxPercent
	mc.CountdownSeconds = cfg.CountdownSeconds
	mc.SettlementDelay = cfg.SettlementDelay
	return mc
}

func newWagerManager(i do.Injector) (*service.WagerManager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return service.NewWagerManager(
		managerConfig(cfg),
		do.MustInvoke[service.AccountWallet](i),
		do.MustInvoke[*service.ArenaRegistry](i),
		do.MustInvoke[*infrastructure.GameGateway](i),
		do.MustInvoke[*scheduler.Loop](i),
		do.MustInvoke[*events.Bus](i),
	), nil
}

func newAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	handlers := api.NewHandlers(
		do.MustInvoke[*scheduler.Loop](i),
		do.MustInvoke[*service.WagerManager](i),
		do.MustInvoke[*service.ArenaRegistry](i),
		do.MustInvoke[service.AccountWallet](i),
		cfg.SchematicsDir,
	)
	return api.NewServer(cfg.HTTPPort, cfg.APIToken, handlers), nil
}

func newMetricsProvider(i do.Injector) (*observability.MetricsProvider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return observability.NewMetricsProvider(observability.Settings{
		Enabled:        cfg.OTelEnabled,
		ServiceName:    cfg.OTelServiceName,
		Environment:    cfg.Environment,
		ExporterType:   cfg.OTelExporterType,
		OTLPEndpoint:   cfg.OTelOTLPEndpoint,
		ExportInterval: cfg.ExportInterval(),
	}), nil
}

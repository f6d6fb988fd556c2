package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"arenawager/cmd"
	"arenawager/config"
	"arenawager/database"
	"arenawager/repository"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	return cfg, nil
}

func databaseURL(cfg *config.Config) string {
	return database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName)
}

func runServe(ctx context.Context, _ *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd.Run(ctx, cfg)
}

func runMigrateUp(_ context.Context, _ *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return database.MigrateUp(databaseURL(cfg))
}

func runMigrateDown(_ context.Context, c *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	steps := 1
	if arg := c.Args().First(); arg != "" {
		steps, err = strconv.Atoi(arg)
		if err != nil || steps < 1 {
			return fmt.Errorf("invalid step count %q", arg)
		}
	}
	return database.MigrateDown(databaseURL(cfg), steps)
}

func runMigrateStatus(_ context.Context, _ *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	version, dirty, applied, err := database.MigrationStatus(databaseURL(cfg))
	if err != nil {
		return err
	}
	if !applied {
		fmt.Println("No migrations applied")
		return nil
	}
	fmt.Printf("Version: %d (dirty: %t)\n", version, dirty)
	return nil
}

func runArenas(ctx context.Context, _ *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := repository.NewBoltArenaStore(cfg.ArenaDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Shutdown(); err != nil {
			log.WithError(err).Warn("Failed to close arena store")
		}
	}()

	arenas, lobby, err := store.Load(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ARENA\tSTATUS\tSPAWN 1\tSPAWN 2\tSCHEMATIC")
	for _, a := range arenas {
		spawn1, spawn2 := "-", "-"
		if a.Spawn1 != nil {
			spawn1 = a.Spawn1.String()
		}
		if a.Spawn2 != nil {
			spawn2 = a.Spawn2.String()
		}
		schematic := a.Schematic
		if schematic == "" {
			schematic = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Status(), spawn1, spawn2, schematic)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if lobby != nil {
		fmt.Printf("\nLobby: %s\n", lobby.String())
	} else {
		fmt.Println("\nLobby: not set")
	}
	return nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	app := &cli.Command{
		Name:  "arenawager",
		Usage: "peer-to-peer wagered arena matches",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the wager service",
				Action: runServe,
			},
			{
				Name:  "migrate",
				Usage: "manage ledger database migrations",
				Commands: []*cli.Command{
					{Name: "up", Usage: "apply all pending migrations", Action: runMigrateUp},
					{Name: "down", Usage: "roll back migrations", ArgsUsage: "[steps]", Action: runMigrateDown},
					{Name: "status", Usage: "show the current migration version", Action: runMigrateStatus},
				},
			},
			{
				Name:   "arenas",
				Usage:  "list stored arena definitions",
				Action: runArenas,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("arenawager exited with an error")
	}
}

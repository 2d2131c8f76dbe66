package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/andresuchdata/permitvault/backend-go/internal/cleanup"
	"github.com/andresuchdata/permitvault/backend-go/internal/config"
	"github.com/andresuchdata/permitvault/backend-go/internal/events"
	"github.com/andresuchdata/permitvault/backend-go/internal/repository"
	"github.com/andresuchdata/permitvault/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/permitvault/backend-go/internal/storage"
	"github.com/andresuchdata/permitvault/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Orphan ledger connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, postgres.Wrap(sqlx.NewDb(db, "pgx")))
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func newExecutor(c *cli.Context, cfg *config.Config) (*cleanup.Executor, storage.ObjectStorage, error) {
	store, err := storage.New(c.Context, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	return cleanup.NewExecutor(store, cfg.Cleanup.DeleteTimeout(), logger.Component("cleanup")), store, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "janitor",
		Usage: "Maintenance tasks for record asset cleanup",
		Commands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "Retry deletion of orphaned objects recorded in the ledger",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Usage:   "Maximum number of pending orphans to process",
						Value:   100,
						EnvVars: []string{"CLEANUP_SWEEP_BATCH_SIZE"},
					},
					&cli.IntFlag{
						Name:    "concurrency",
						Usage:   "Parallel delete calls",
						Value:   4,
						EnvVars: []string{"CLEANUP_SWEEP_CONCURRENCY"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runSweep,
			},
			{
				Name:      "resolve",
				Usage:     "Print the storage path embedded in a download URL",
				ArgsUsage: "<download-url>",
				Action:    runResolve,
			},
			{
				Name:  "replay",
				Usage: "Run a cleanup target against a saved document-deleted event",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "target",
						Usage:    "Target name, e.g. onPermitDeleted",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "event",
						Usage:    "Path to the event JSON file",
						Required: true,
					},
				},
				Action: runReplay,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runSweep(c *cli.Context) error {
	cfg := config.Load()
	logger.Configure(cfg.Log.Format, cfg.Log.Level)

	db, ok := c.Context.Value(dbKey).(*postgres.DB)
	if !ok {
		return fmt.Errorf("database not initialized")
	}
	repo := postgres.NewOrphanRepository(db)
	if err := repo.EnsureSchema(c.Context); err != nil {
		return err
	}

	executor, store, err := newExecutor(c, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sweeper := cleanup.NewSweeper(executor, repo, nil, c.Int("concurrency"), logger.Component("sweeper"))
	summary, err := sweeper.Sweep(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	fmt.Printf("scanned=%d resolved=%d failed=%d\n", summary.Scanned, summary.Resolved, summary.Failed)
	return nil
}

func runResolve(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: janitor resolve <download-url>", 2)
	}
	path, ok := cleanup.StoragePathFromURL(c.Args().First())
	if !ok {
		return cli.Exit("no storage path found", 1)
	}
	fmt.Println(path)
	return nil
}

func runReplay(c *cli.Context) error {
	cfg := config.Load()
	logger.Configure(cfg.Log.Format, cfg.Log.Level)

	targets, err := cleanup.ParseTargets(cfg.Cleanup.Targets)
	if err != nil {
		return err
	}

	var target *cleanup.Target
	for i := range targets {
		if targets[i].Name == c.String("target") {
			target = &targets[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("unknown target %q", c.String("target"))
	}

	body, err := os.ReadFile(c.String("event"))
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}
	ev, err := events.DecodeDeletion(body, "")
	if err != nil {
		return err
	}

	executor, store, err := newExecutor(c, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	cleaner := cleanup.NewCleaner(executor, repository.NoopOrphanRepository{}, nil, logger.Component("cleanup"))
	res := cleaner.MakeHandler(*target)(c.Context, ev)
	fmt.Printf("outcome=%s path=%s\n", res.Outcome, res.Path)
	return nil
}

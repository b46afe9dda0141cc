package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/auth"
	"github.com/owen-ho/enroot-qr-pairing/internal/config"
	"github.com/owen-ho/enroot-qr-pairing/internal/database"
	"github.com/owen-ho/enroot-qr-pairing/internal/events"
	"github.com/owen-ho/enroot-qr-pairing/internal/handles"
	"github.com/owen-ho/enroot-qr-pairing/internal/pairing"
	"github.com/owen-ho/enroot-qr-pairing/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the connections shared by every subcommand for one invocation.
type app struct {
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	engine *pairing.Engine
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "pairctl",
		Short:         "Operate the event pairing store",
		Long:          "pairctl runs administrative operations directly against the pairing store.\nIt reads the same environment as the server (DB_DRIVER, POSTGRES_*, SQLITE_PATH, JWT_SECRET, REDIS_ADDR).",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		migrateCmd(a),
		statsCmd(a),
		participantsCmd(a),
		pairCmd(a),
		unpairCmd(a),
		removeCmd(a),
		revokeCmd(a),
		resetCmd(a),
	)
	return root
}

// execute runs one pairctl invocation and releases its connections.
func execute(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = zap.NewNop()
	if a.verbose {
		if a.logger, err = utils.NewLogger(true); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	driver, dsn := cfg.DSN()
	a.db, err = database.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s database: %w", driver, err)
	}

	isolation, err := cfg.Isolation()
	if err != nil {
		return err
	}
	opts := []pairing.Option{
		pairing.WithIsolation(isolation),
		pairing.WithHandleAttempts(cfg.HandleAttempts),
		pairing.WithLogger(a.logger),
	}

	// Running servers learn about changes made here through the shared channel.
	if cfg.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.rdb.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		opts = append(opts, pairing.WithPublisher(events.NewRedisPublisher(a.rdb, cfg.EventsChannel)))
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.ParticipantTokenTTL, cfg.AdminTokenTTL)
	a.engine = pairing.New(a.db, handles.NewGenerator(), issuer, opts...)
	return nil
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

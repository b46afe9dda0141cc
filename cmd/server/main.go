package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/auth"
	"github.com/owen-ho/enroot-qr-pairing/internal/config"
	"github.com/owen-ho/enroot-qr-pairing/internal/database"
	"github.com/owen-ho/enroot-qr-pairing/internal/events"
	"github.com/owen-ho/enroot-qr-pairing/internal/handlers"
	"github.com/owen-ho/enroot-qr-pairing/internal/handles"
	"github.com/owen-ho/enroot-qr-pairing/internal/jobs"
	"github.com/owen-ho/enroot-qr-pairing/internal/metrics"
	pairmw "github.com/owen-ho/enroot-qr-pairing/internal/middleware"
	"github.com/owen-ho/enroot-qr-pairing/internal/notify"
	"github.com/owen-ho/enroot-qr-pairing/internal/pairing"
	"github.com/owen-ho/enroot-qr-pairing/internal/repositories"
	"github.com/owen-ho/enroot-qr-pairing/internal/routers"
	"github.com/owen-ho/enroot-qr-pairing/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	gormOpen        = defaultGormOpen
	httpListenServe = defaultListenServe
	runAutoMigrate  = database.Migrate
	newLogger       = utils.NewLogger
	newRedisClient  = func(addr string) *redis.Client { return redis.NewClient(&redis.Options{Addr: addr}) }
	exitFunc        = os.Exit
	logFatalFn      = defaultLogFatal
	retryInterval   = 500 * time.Millisecond
	shutdownTimeout = 30 * time.Second
)

func resetServerGlobals() {
	gormOpen = defaultGormOpen
	httpListenServe = defaultListenServe
	runAutoMigrate = database.Migrate
	newLogger = utils.NewLogger
	newRedisClient = func(addr string) *redis.Client { return redis.NewClient(&redis.Options{Addr: addr}) }
	exitFunc = os.Exit
	logFatalFn = defaultLogFatal
	retryInterval = 500 * time.Millisecond
	shutdownTimeout = 30 * time.Second
}

func defaultGormOpen(driver, dsn string) (*gorm.DB, error) {
	return database.Open(driver, dsn)
}

func defaultLogFatal(err error) {
	fmt.Fprintf(os.Stderr, "pairing-svc: %v\n", err)
	exitFunc(1)
}

func main() {
	if err := run(); err != nil {
		logFatalFn(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Development())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, dsn := cfg.DSN()
	db, err := connectWithRetry(driver, dsn, cfg.DBConnectTimeout, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := runAutoMigrate(db); err != nil {
		return err
	}

	isolation, err := cfg.Isolation()
	if err != nil {
		return err
	}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.ParticipantTokenTTL, cfg.AdminTokenTTL)
	passwords, err := auth.NewPasswordChecker(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("init admin password: %w", err)
	}
	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD not set, admin endpoints are disabled")
	}

	hub := notify.NewHub(logger.Named("notify"))
	defer hub.Close()

	publisher, err := startEvents(ctx, cfg, hub, logger)
	if err != nil {
		return err
	}

	engine := pairing.New(db, handles.NewGenerator(), issuer,
		pairing.WithIsolation(isolation),
		pairing.WithHandleAttempts(cfg.HandleAttempts),
		pairing.WithPublisher(publisher),
		pairing.WithLogger(logger.Named("engine")),
	)

	population := jobs.NewPopulationJob(engine, cfg.StatsSchedule, logger.Named("jobs"))
	if err := population.Start(); err != nil {
		return err
	}
	defer population.Stop()

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		timeoutUnlessUpgrade(cfg.RequestTimeout),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
		metrics.Middleware,
	)

	gate := &pairmw.Auth{
		Tokens:       issuer,
		Participants: &repositories.ParticipantRepository{DB: db},
		Logger:       logger.Named("auth"),
	}
	routers.HealthRoutes(r, &handlers.HealthHandler{DB: sqlDB, Logger: logger})
	routers.ParticipantRoutes(r, &handlers.ParticipantHandler{Engine: engine, Notifier: hub, Logger: logger}, gate)
	routers.AdminRoutes(r, &handlers.AdminHandler{Engine: engine, Tokens: issuer, Passwords: passwords, Logger: logger}, gate)

	addr := ":" + cfg.Port
	logger.Info("pairing-svc listening", zap.String("addr", addr), zap.String("driver", driver))
	return httpListenServe(ctx, addr, r)
}

// connectWithRetry keeps dialing until the store answers a ping or the timeout
// elapses.
func connectWithRetry(driver, dsn string, timeout time.Duration, logger *zap.Logger) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for attempt := 1; ; attempt++ {
		db, err := gormOpen(driver, dsn)
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				dbErr = sqlDB.Ping()
			}
			if dbErr == nil {
				return db, nil
			}
			err = dbErr
		}
		lastErr = err
		if time.Now().Add(retryInterval).After(deadline) {
			break
		}
		logger.Warn("database not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(retryInterval)
	}
	return nil, fmt.Errorf("connect to %s database: %w", driver, lastErr)
}

// startEvents publishes through redis when REDIS_ADDR is set and relays the
// channel into the local hub. Without redis the hub is fed directly.
func startEvents(ctx context.Context, cfg *config.Config, hub *notify.Hub, logger *zap.Logger) (events.Publisher, error) {
	if cfg.RedisAddr == "" {
		return events.NewLocalPublisher(hub), nil
	}

	rdb := newRedisClient(cfg.RedisAddr)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	sub := events.NewSubscriber(rdb, cfg.EventsChannel, hub, logger.Named("events"))
	go func() {
		if err := sub.Run(ctx); err != nil {
			logger.Error("pairing event subscription ended", zap.Error(err))
		}
	}()
	return events.NewRedisPublisher(rdb, cfg.EventsChannel), nil
}

// timeoutUnlessUpgrade applies the request timeout to everything except
// websocket upgrades.
func timeoutUnlessUpgrade(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		timed := middleware.Timeout(d)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if websocket.IsWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			timed.ServeHTTP(w, r)
		})
	}
}

func defaultListenServe(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

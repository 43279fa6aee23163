package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"perftrack/internal/domain/audit"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/directory"
	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/notifications"
	"perftrack/internal/domain/reports"
	"perftrack/internal/domain/reviews"
	"perftrack/internal/domain/workflow"
	"perftrack/internal/platform/config"
	cryptoutil "perftrack/internal/platform/crypto"
	"perftrack/internal/platform/db"
	"perftrack/internal/platform/email"
	"perftrack/internal/platform/jobs"
	"perftrack/internal/platform/memstore"
	"perftrack/internal/platform/metrics"
	audithandler "perftrack/internal/transport/http/handlers/audit"
	cycleshandler "perftrack/internal/transport/http/handlers/cycles"
	directoryhandler "perftrack/internal/transport/http/handlers/directory"
	goalshandler "perftrack/internal/transport/http/handlers/goals"
	notificationshandler "perftrack/internal/transport/http/handlers/notifications"
	reportshandler "perftrack/internal/transport/http/handlers/reports"
	reviewshandler "perftrack/internal/transport/http/handlers/reviews"
	"perftrack/internal/transport/http/middleware"
)

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Router   http.Handler
	Metrics  *metrics.Collector
	Services Services

	queue *jobs.Queue
}

type Services struct {
	Directory     *directory.Service
	Cycles        *cycles.Service
	Goals         *goals.Service
	Reviews       *reviews.Service
	Notifications *notifications.Service
	Audit         *audit.Service
	Reports       *reports.Service
}

// Stores groups the persistence backends of every aggregate. The memory
// driver fills all of them from one memstore.Store.
type Stores struct {
	Directory     directory.StoreAPI
	Cycles        cycles.StoreAPI
	Goals         goals.StoreAPI
	Reviews       reviews.StoreAPI
	Notifications notifications.StoreAPI
	Audit         audit.StoreAPI
}

type Option func(*options)

type options struct {
	runner workflow.Runner
	mailer notifications.Mailer
	stores *Stores
}

// WithRunner replaces the background job queue used for notifications and
// audit records.
func WithRunner(runner workflow.Runner) Option {
	return func(o *options) { o.runner = runner }
}

func WithMailer(mailer notifications.Mailer) Option {
	return func(o *options) { o.mailer = mailer }
}

// WithStores skips driver selection and uses the given backends.
func WithStores(stores Stores) Option {
	return func(o *options) { o.stores = &stores }
}

func MemoryStores(store *memstore.Store) Stores {
	return Stores{
		Directory:     store,
		Cycles:        store,
		Goals:         store,
		Reviews:       store,
		Notifications: store,
		Audit:         store,
	}
}

func PostgresStores(pool *pgxpool.Pool, cipher *cryptoutil.Cipher) Stores {
	return Stores{
		Directory:     directory.NewStore(pool),
		Cycles:        cycles.NewStore(pool),
		Goals:         goals.NewStore(pool),
		Reviews:       reviews.NewStore(pool, cipher),
		Notifications: notifications.NewStore(pool),
		Audit:         audit.NewStore(pool),
	}
}

// New opens storage, applies migrations and the seed file when configured,
// and assembles services and routes.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{mailer: email.New(cfg)}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Metrics: metrics.New()}

	var stores Stores
	switch {
	case o.stores != nil:
		stores = *o.stores
	case cfg.StorageDriver == config.DriverMemory:
		stores = MemoryStores(memstore.New())
	default:
		cipher, err := cryptoutil.New(cfg.DataEncryptionKey)
		if err != nil {
			return nil, err
		}
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		stores = PostgresStores(pool, cipher)
	}

	if cfg.SeedFile != "" {
		org, err := db.LoadOrgFile(cfg.SeedFile)
		if err != nil {
			app.closeDB()
			return nil, err
		}
		res, err := db.Seed(ctx, stores.Directory, stores.Cycles, org)
		if err != nil {
			app.closeDB()
			return nil, fmt.Errorf("seed: %w", err)
		}
		slog.Info("seed applied", "usersCreated", res.UsersCreated, "cyclesCreated", res.CyclesCreated)
	}

	runner := o.runner
	if runner == nil {
		app.queue = jobs.New(cfg)
		app.queue.Start()
		runner = app.queue
	}

	app.Services = buildServices(cfg, stores, o.mailer, runner)
	app.Router = app.routes()
	return app, nil
}

func buildServices(cfg config.Config, stores Stores, mailer notifications.Mailer, runner workflow.Runner) Services {
	notifier := notifications.New(stores.Notifications, stores.Directory, mailer)
	if cfg.EmailFrom != "" {
		notifier.DefaultFrom = cfg.EmailFrom
	}
	auditor := audit.New(stores.Audit)
	dispatch := workflow.NewDispatcher(notifier, auditor, runner)

	dir := directory.NewService(stores.Directory, dispatch)
	cycleSvc := cycles.NewService(stores.Cycles, dispatch)
	goalSvc := goals.NewService(stores.Goals, dir, dispatch, goals.WithCyclePolicy(cycleSvc))
	reviewSvc := reviews.NewService(stores.Reviews, dir, cycleSvc, stores.Goals, dispatch)
	return Services{
		Directory:     dir,
		Cycles:        cycleSvc,
		Goals:         goalSvc,
		Reviews:       reviewSvc,
		Notifications: notifier,
		Audit:         auditor,
		Reports:       reports.NewService(goalSvc, reviewSvc, cycleSvc, notifier),
	}
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.Logger(a.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := a.DB.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.DecisionRateLimit(cfg.RateLimitPerMinute, time.Minute))

		directoryhandler.NewHandler(a.Services.Directory).RegisterRoutes(r)
		cycleshandler.NewHandler(a.Services.Cycles, a.Services.Reviews).RegisterRoutes(r)
		goalshandler.NewHandler(a.Services.Goals).RegisterRoutes(r)
		reviewshandler.NewHandler(a.Services.Reviews).RegisterRoutes(r)
		notificationshandler.NewHandler(a.Services.Notifications).RegisterRoutes(r)
		audithandler.NewHandler(a.Services.Audit).RegisterRoutes(r)
		reportshandler.NewHandler(a.Services.Reports).RegisterRoutes(r)
	})

	return router
}

// Run serves HTTP until ctx is cancelled, then shuts down within
// ShutdownTimeout and drains pending jobs.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("perftrack server listening", "addr", a.Config.Addr, "storage", a.Config.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			_ = a.Close(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	slog.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", "err", err)
	}
	return a.Close(shutdownCtx)
}

// Close drains the job queue and releases the database pool.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.queue != nil {
		err = a.queue.Close(ctx)
	}
	a.closeDB()
	return err
}

func (a *App) closeDB() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/events"
	"github.com/metinatakli/cinex-booking/internal/mailer"
	"github.com/metinatakli/cinex-booking/internal/notify"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/metinatakli/cinex-booking/internal/seatlock"
	appvalidator "github.com/metinatakli/cinex-booking/internal/validator"
	"github.com/metinatakli/cinex-booking/internal/vcs"
	"github.com/metinatakli/cinex-booking/internal/worker"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	mailer         mailer.Mailer
	sessionManager *scs.SessionManager
	metrics        *httpMetrics

	showtimeRepo domain.ShowtimeRepository
	bookingRepo  domain.BookingRepository
	seatLocks    domain.SeatLockStore
	notifier     domain.LockNotifier

	locks     *seatlock.Manager
	finalizer *seatlock.Finalizer

	wg sync.WaitGroup
	// closing is closed when the server starts shutting down so that
	// long-lived streams return.
	closing   chan struct{}
	closeOnce sync.Once
}

func NewApp(
	cfg Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	redisClient redis.UniversalClient,
	validator *validator.Validate,
	mailer mailer.Mailer,
	sessionManager *scs.SessionManager,
	showtimeRepo domain.ShowtimeRepository,
	bookingRepo domain.BookingRepository,
	seatLocks domain.SeatLockStore,
	notifier domain.LockNotifier,
	publisher domain.BookingPublisher) *Application {

	opts := []seatlock.Option{
		seatlock.WithHoldTTL(cfg.SeatLock.HoldTTL),
		seatlock.WithMaxSeats(cfg.SeatLock.MaxSeats),
		seatlock.WithNotifier(notifier),
		seatlock.WithPublisher(publisher),
		seatlock.WithClock(clock.Real{}),
		seatlock.WithLogger(logger),
	}

	return &Application{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redisClient,
		validator:      validator,
		mailer:         mailer,
		sessionManager: sessionManager,
		metrics:        newHTTPMetrics(),
		showtimeRepo:   showtimeRepo,
		bookingRepo:    bookingRepo,
		seatLocks:      seatLocks,
		notifier:       notifier,
		locks:          seatlock.NewManager(seatLocks, bookingRepo, showtimeRepo, opts...),
		finalizer:      seatlock.NewFinalizer(seatLocks, bookingRepo, showtimeRepo, opts...),
		closing:        make(chan struct{}),
	}
}

func Run() error {
	cfg, displayVersion, err := LoadConfig()
	if err != nil {
		return err
	}

	if displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	shutdownTelemetry, err := InitTelemetry(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	logger = newLogger(cfg)

	if cfg.DB.AutoMigrate {
		err = RunMigrations(cfg.DB.DSN)
		if err != nil {
			return err
		}

		logger.Info("database migrations applied")
	}

	db, err := NewDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	seatLocks, err := newSeatLockStore(cfg, db, redisClient)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := newBookingPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	app := NewApp(
		cfg,
		logger,
		db,
		redisClient,
		appvalidator.NewValidator(),
		mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender),
		NewSessionManager(redisClient),
		repository.NewPostgresShowtimeRepository(db),
		repository.NewPostgresBookingRepository(db),
		seatLocks,
		notify.NewRedis(redisClient, logger),
		publisher,
	)

	return app.run()
}

func newSeatLockStore(cfg Config, db *pgxpool.Pool, redisClient redis.UniversalClient) (domain.SeatLockStore, error) {
	switch cfg.SeatLock.Store {
	case "postgres":
		return repository.NewPostgresSeatLockStore(db, clock.Real{}), nil
	case "redis":
		return repository.NewRedisSeatLockStore(redisClient, clock.Real{}), nil
	default:
		return nil, fmt.Errorf("unknown seat lock store %q", cfg.SeatLock.Store)
	}
}

func newBookingPublisher(cfg Config, logger *slog.Logger) (domain.BookingPublisher, func(), error) {
	if cfg.Broker.URL == "" {
		logger.Info("broker URL not set, booking events are not published")
		return events.Noop{}, func() {}, nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.Broker.URL)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		err := publisher.Close()
		if err != nil {
			logger.Error("failed to close broker connection", "error", err)
		}
	}

	return publisher, closeFn, nil
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	err := errors.Join(
		redisotel.InstrumentTracing(rdb),
		redisotel.InstrumentMetrics(rdb),
	)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to instrument redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	srv.RegisterOnShutdown(app.closeStreams)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	app.StartSweeper(workerCtx)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		stopWorkers()

		if err != nil {
			shutdownError <- err
			return
		}

		app.logger.Info("completing background tasks", "addr", srv.Addr)

		app.wg.Wait()
		shutdownError <- nil
	}()

	app.logger.Info("starting server",
		"addr", srv.Addr,
		"env", app.config.Env,
		"seat_lock_store", app.config.SeatLock.Store)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) closeStreams() {
	app.closeOnce.Do(func() {
		close(app.closing)
	})
}

// StartSweeper runs the expired lock sweeper until ctx is done.
func (app *Application) StartSweeper(ctx context.Context) {
	sweeper := worker.NewLockSweeper(app.seatLocks, app.config.SeatLock.SweepInterval, app.logger)

	app.wg.Add(1)

	go func() {
		defer app.wg.Done()
		sweeper.Start(ctx)
	}()
}

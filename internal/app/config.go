package app

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	Env              string
	DB               DBConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	Broker           BrokerConfig
	SeatLock         SeatLockConfig
	OtelCollectorUrl string
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
	AutoMigrate  bool
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type BrokerConfig struct {
	URL string
}

type SeatLockConfig struct {
	// Store selects the lock backend: "postgres" or "redis".
	Store         string
	HoldTTL       time.Duration
	MaxSeats      int
	SweepInterval time.Duration
}

// LoadConfig reads the configuration from command line flags. Every flag
// defaults to its environment variable, which may come from a .env file in
// the working directory.
func LoadConfig() (Config, bool, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, false, err
	}

	var cfg Config

	flag.IntVar(&cfg.Port, "port", envInt("PORT", 3000), "server port")
	flag.StringVar(&cfg.Env, "env", envStr("ENV", "dev"), "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", envStr("DB_DSN", ""), "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", envInt("DB_MAX_OPEN_CONNS", 25), "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", envDur("DB_MAX_IDLE_TIME", 15*time.Minute), "PostgreSQL max idle time for connections")
	flag.BoolVar(&cfg.DB.AutoMigrate, "db-auto-migrate", envBool("DB_AUTO_MIGRATE", false), "Apply database migrations on startup")

	flag.StringVar(&cfg.Redis.URL, "redis-url", envStr("REDIS_URL", ""), "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", envInt("REDIS_MAX_OPEN_CONNS", 25), "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", envInt("REDIS_MAX_IDLE_CONNS", 10), "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", envDur("REDIS_MAX_IDLE_TIME", 2*time.Minute), "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", envStr("SMTP_HOST", "sandbox.smtp.mailtrap.io"), "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", envInt("SMTP_PORT", 2525), "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", envStr("SMTP_USERNAME", ""), "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", envStr("SMTP_PASSWORD", ""), "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", envStr("SMTP_SENDER", "CineX <no-reply@cinex.metinatakli.net>"), "SMTP sender")

	flag.StringVar(&cfg.Broker.URL, "amqp-url", envStr("AMQP_URL", ""), "RabbitMQ URL, booking events are not published when empty")

	flag.StringVar(&cfg.SeatLock.Store, "seat-lock-store", envStr("SEAT_LOCK_STORE", "postgres"), "Seat lock store (postgres|redis)")
	flag.DurationVar(&cfg.SeatLock.HoldTTL, "seat-hold-ttl", envDur("SEAT_HOLD_TTL", 300*time.Second), "Lifetime of a seat hold")
	flag.IntVar(&cfg.SeatLock.MaxSeats, "seat-max-per-session", envInt("SEAT_MAX_PER_SESSION", 8), "Max seats a session may hold per showtime")
	flag.DurationVar(&cfg.SeatLock.SweepInterval, "seat-sweep-interval", envDur("SEAT_SWEEP_INTERVAL", time.Minute), "Interval of the expired lock sweeper")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", envStr("OTEL_COLLECTOR_URL", ""), "OpenTelemetry collector gRPC endpoint")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	err = cfg.validate()
	if err != nil {
		return Config{}, false, err
	}

	return cfg, *displayVersion, nil
}

func (cfg Config) validate() error {
	var errs []error

	switch cfg.SeatLock.Store {
	case "postgres", "redis":
	default:
		errs = append(errs, fmt.Errorf("seat lock store must be postgres or redis, got %q", cfg.SeatLock.Store))
	}

	if cfg.SeatLock.HoldTTL <= 0 {
		errs = append(errs, errors.New("seat hold TTL must be positive"))
	}

	if cfg.SeatLock.MaxSeats <= 0 {
		errs = append(errs, errors.New("max seats per session must be positive"))
	}

	if cfg.SeatLock.SweepInterval <= 0 {
		errs = append(errs, errors.New("seat sweep interval must be positive"))
	}

	return errors.Join(errs...)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}

	return n
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}

	return b
}

func envDur(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}

	return d
}

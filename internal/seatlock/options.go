package seatlock

import (
	"log/slog"
	"time"

	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

const (
	DefaultHoldTTL  = 300 * time.Second
	DefaultMaxSeats = 8
)

type config struct {
	holdTTL   time.Duration
	maxSeats  int
	notifier  domain.LockNotifier
	publisher domain.BookingPublisher
	clock     clock.Clock
	logger    *slog.Logger
}

func newConfig(opts []Option) config {
	cfg := config{
		holdTTL:  DefaultHoldTTL,
		maxSeats: DefaultMaxSeats,
		clock:    clock.Real{},
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// Option configures a Manager or a Finalizer.
type Option func(*config)

// WithHoldTTL overrides the lifetime of new seat locks.
func WithHoldTTL(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.holdTTL = d
		}
	}
}

// WithMaxSeats caps how many seats one session may hold per showtime.
func WithMaxSeats(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxSeats = n
		}
	}
}

func WithNotifier(n domain.LockNotifier) Option {
	return func(c *config) {
		c.notifier = n
	}
}

func WithPublisher(p domain.BookingPublisher) Option {
	return func(c *config) {
		c.publisher = p
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		if clk != nil {
			c.clock = clk
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Package holdtimer drives a user's seat selection on one showtime: it keeps
// the countdown of the hold, polls for seats taken by other sessions and
// releases everything when the countdown runs out or the user leaves.
package holdtimer

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

const (
	DefaultTTL          = 300 * time.Second
	DefaultPollInterval = 2 * time.Second

	cleanupTimeout = 5 * time.Second
)

var ErrNothingSelected = errors.New("no seats selected")

type State int

const (
	Idle State = iota
	Holding
	Expired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// LockClient is the seat lock API as seen by one session.
type LockClient interface {
	LockSeats(ctx context.Context, showtimeID int, seats []domain.Seat) (domain.ClaimResult, error)
	UnlockSeats(ctx context.Context, showtimeID int, seats []domain.Seat) error
	ConflictingLocks(ctx context.Context, showtimeID int) ([]domain.SeatLock, error)
	Book(ctx context.Context, showtimeID int, seats []domain.Seat, customer domain.Customer) (*domain.Booking, error)
}

type Option func(*Hold)

func WithTTL(d time.Duration) Option {
	return func(h *Hold) {
		if d > 0 {
			h.ttl = d
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(h *Hold) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(h *Hold) {
		h.clock = clk
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hold) {
		h.logger = logger
	}
}

// OnConflicts is called after every poll with the seats currently locked by
// other sessions.
func OnConflicts(fn func([]domain.SeatLock)) Option {
	return func(h *Hold) {
		h.onConflicts = fn
	}
}

// OnExpired is called once the countdown ran out and the released seats were
// dropped from the selection.
func OnExpired(fn func(released []domain.Seat)) Option {
	return func(h *Hold) {
		h.onExpired = fn
	}
}

// Hold is the client side hold state of one session on one showtime. Its
// methods are safe for concurrent use; mutating calls are serialized.
type Hold struct {
	client       LockClient
	showtimeID   int
	ttl          time.Duration
	pollInterval time.Duration
	clock        clock.Clock
	logger       *slog.Logger
	onConflicts  func([]domain.SeatLock)
	onExpired    func([]domain.Seat)

	mu       sync.Mutex
	state    State
	selected []domain.Seat
	deadline time.Time
	taken    []domain.SeatLock

	// changed wakes Run when the deadline moves.
	changed chan struct{}
}

func New(client LockClient, showtimeID int, opts ...Option) *Hold {
	h := &Hold{
		client:       client,
		showtimeID:   showtimeID,
		ttl:          DefaultTTL,
		pollInterval: DefaultPollInterval,
		clock:        clock.Real{},
		logger:       slog.New(slog.DiscardHandler),
		onConflicts:  func([]domain.SeatLock) {},
		onExpired:    func([]domain.Seat) {},
		changed:      make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Hold) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

func (h *Hold) Selected() []domain.Seat {
	h.mu.Lock()
	defer h.mu.Unlock()

	return slices.Clone(h.selected)
}

// Taken returns the other sessions' locks seen by the latest poll.
func (h *Hold) Taken() []domain.SeatLock {
	h.mu.Lock()
	defer h.mu.Unlock()

	return slices.Clone(h.taken)
}

// Remaining is the time left on the countdown, zero when not holding.
func (h *Hold) Remaining() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != Holding {
		return 0
	}

	return max(h.deadline.Sub(h.clock.Now()), 0)
}

// Select claims the seats and adds the ones that were locked to the
// selection. The seats that could not be locked are returned; they are never
// part of the selection. The first successful claim starts the countdown,
// which never outlasts the hold window the server reported.
func (h *Hold) Select(ctx context.Context, seats []domain.Seat) ([]domain.FailedSeat, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := h.client.LockSeats(ctx, h.showtimeID, seats)
	if err != nil {
		return nil, err
	}

	for _, seat := range result.LockedSeats {
		if !slices.Contains(h.selected, seat) {
			h.selected = append(h.selected, seat)
		}
	}

	if h.state == Idle && len(h.selected) > 0 {
		h.state = Holding
		h.deadline = h.clock.Now().Add(h.ttl)
		if !result.HoldExpiresAt.IsZero() && result.HoldExpiresAt.Before(h.deadline) {
			h.deadline = result.HoldExpiresAt
		}
		h.notifyChanged()
	}

	return result.FailedSeats, nil
}

// Deselect unlocks the seats and drops them from the selection. Dropping the
// last held seat stops the countdown.
func (h *Hold) Deselect(ctx context.Context, seats []domain.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.client.UnlockSeats(ctx, h.showtimeID, seats)
	if err != nil {
		return err
	}

	h.dropSeats(seats)

	return nil
}

// Checkout books the current selection. On success the server has already
// cleared the locks, so the hold returns to Idle without unlocking. On a seat
// conflict the conflicting seats are dropped and the rest stay selected.
func (h *Hold) Checkout(ctx context.Context, customer domain.Customer) (*domain.Booking, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.selected) == 0 {
		return nil, ErrNothingSelected
	}

	booking, err := h.client.Book(ctx, h.showtimeID, slices.Clone(h.selected), customer)
	if err != nil {
		var conflict *domain.SeatConflictError
		if errors.As(err, &conflict) {
			h.dropSeats(conflict.Seats)
		}

		return nil, err
	}

	h.reset()

	return booking, nil
}

// Cancel releases every seat still held and returns to Idle, whatever the
// current state. It is the cleanup path for leaving the showtime: the hold
// is reset even when the unlock fails, and the server TTL reclaims the seats.
func (h *Hold) Cancel(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if len(h.selected) > 0 {
		err = h.client.UnlockSeats(ctx, h.showtimeID, slices.Clone(h.selected))
		if err != nil {
			h.logger.Warn("failed to release cancelled hold", "showtime_id", h.showtimeID, "error", err)
		}
	}

	h.reset()

	return err
}

// Run keeps the hold alive until ctx is done: it polls for conflicting locks
// while holding and expires the hold when the countdown runs out. On return
// every held seat has been released.
func (h *Hold) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		var (
			timer  *time.Timer
			expiry <-chan time.Time
		)

		if wait, ok := h.untilExpiry(); ok {
			timer = time.NewTimer(wait)
			expiry = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)

			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
			defer cancel()

			return h.Cancel(cleanupCtx)
		case <-expiry:
			h.expireIfDue(ctx)
		case <-ticker.C:
			stopTimer(timer)
			if !h.expireIfDue(ctx) {
				h.poll(ctx)
			}
		case <-h.changed:
			stopTimer(timer)
		}
	}
}

func (h *Hold) untilExpiry() (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != Holding {
		return 0, false
	}

	return max(h.deadline.Sub(h.clock.Now()), 0), true
}

// expireIfDue releases the selection when the countdown has run out. It
// reports whether the hold expired.
func (h *Hold) expireIfDue(ctx context.Context) bool {
	h.mu.Lock()

	if h.state != Holding || h.clock.Now().Before(h.deadline) {
		h.mu.Unlock()
		return false
	}

	h.state = Expired
	released := slices.Clone(h.selected)

	err := h.client.UnlockSeats(ctx, h.showtimeID, released)
	if err != nil {
		// The locks lapse on their own; the unlock only frees them sooner.
		h.logger.Warn("failed to release expired hold", "showtime_id", h.showtimeID, "error", err)
	}

	h.reset()
	h.mu.Unlock()

	h.onExpired(released)

	return true
}

// poll refreshes the seats taken by other sessions. It never changes lock
// state.
func (h *Hold) poll(ctx context.Context) {
	if h.State() != Holding {
		return
	}

	locks, err := h.client.ConflictingLocks(ctx, h.showtimeID)
	if err != nil {
		h.logger.Warn("failed to poll conflicting locks", "showtime_id", h.showtimeID, "error", err)
		return
	}

	h.mu.Lock()
	h.taken = locks
	h.mu.Unlock()

	h.onConflicts(locks)
}

func (h *Hold) dropSeats(seats []domain.Seat) {
	h.selected = slices.DeleteFunc(h.selected, func(s domain.Seat) bool {
		return slices.Contains(seats, s)
	})

	if h.state == Holding && len(h.selected) == 0 {
		h.reset()
	}
}

func (h *Hold) reset() {
	h.state = Idle
	h.selected = nil
	h.taken = nil
	h.deadline = time.Time{}
	h.notifyChanged()
}

func (h *Hold) notifyChanged() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// Package seatlock coordinates temporary seat holds and their conversion
// into bookings.
package seatlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/metinatakli/cinex-booking/internal/seatlock"

type Manager struct {
	locks     domain.SeatLockStore
	bookings  domain.BookingRepository
	showtimes domain.ShowtimeRepository
	notifier  domain.LockNotifier
	clock     clock.Clock
	logger    *slog.Logger
	holdTTL   time.Duration
	maxSeats  int

	claims   metric.Int64Counter
	releases metric.Int64Counter
}

func NewManager(
	locks domain.SeatLockStore,
	bookings domain.BookingRepository,
	showtimes domain.ShowtimeRepository,
	opts ...Option) *Manager {

	cfg := newConfig(opts)

	m := &Manager{
		locks:     locks,
		bookings:  bookings,
		showtimes: showtimes,
		notifier:  cfg.notifier,
		clock:     cfg.clock,
		logger:    cfg.logger,
		holdTTL:   cfg.holdTTL,
		maxSeats:  cfg.maxSeats,
	}

	m.initMetrics()

	return m
}

func (m *Manager) initMetrics() {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	claims, err := meter.Int64Counter(
		"seatlock.claims",
		metric.WithDescription("Seat claim attempts by outcome"))
	if err != nil {
		m.logger.Warn("failed to create claims counter", "error", err)
		claims, _ = fallback.Int64Counter("seatlock.claims")
	}

	releases, err := meter.Int64Counter(
		"seatlock.releases",
		metric.WithDescription("Seat lock releases requested by clients"))
	if err != nil {
		m.logger.Warn("failed to create releases counter", "error", err)
		releases, _ = fallback.Int64Counter("seatlock.releases")
	}

	m.claims = claims
	m.releases = releases
}

// HoldTTL is the fixed lifetime of every lock the manager grants.
func (m *Manager) HoldTTL() time.Duration {
	return m.holdTTL
}

// ClaimSeats tries to lock each requested seat for the session. Seats that
// could not be locked are reported in FailedSeats while the others stay
// locked. An error is returned only when the request as a whole is rejected
// or the store fails.
func (m *Manager) ClaimSeats(
	ctx context.Context,
	showtimeID int,
	seats []domain.Seat,
	sessionID string) (domain.ClaimResult, error) {

	showtime, err := m.showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return domain.ClaimResult{}, err
	}

	seats = domain.UniqueSeats(seats)
	if len(seats) == 0 {
		return domain.ClaimResult{}, domain.ErrEmptySelection
	}

	result := domain.ClaimResult{
		LockedSeats: make([]domain.Seat, 0, len(seats)),
		FailedSeats: make([]domain.FailedSeat, 0),
	}

	inRange := make([]domain.Seat, 0, len(seats))
	for _, seat := range seats {
		if !showtime.Layout.Contains(seat) {
			result.FailedSeats = append(result.FailedSeats, domain.FailedSeat{
				Seat:   seat,
				Reason: domain.ReasonSeatOutOfRange,
			})
			continue
		}

		inRange = append(inRange, seat)
	}

	held, err := m.locks.ListHeldBy(ctx, showtimeID, sessionID)
	if err != nil {
		return domain.ClaimResult{}, fmt.Errorf("failed to list held seats: %w", err)
	}

	if m.exceedsCap(held, inRange) {
		m.claims.Add(ctx, int64(len(seats)), metric.WithAttributes(attribute.String("outcome", "max_seats")))
		return domain.ClaimResult{}, domain.ErrMaxSeatsExceeded
	}

	bookedSeats, err := m.bookings.BookedSeats(ctx, showtimeID)
	if err != nil {
		return domain.ClaimResult{}, fmt.Errorf("failed to list booked seats: %w", err)
	}

	booked := make(map[domain.Seat]struct{}, len(bookedSeats))
	for _, seat := range bookedSeats {
		booked[seat] = struct{}{}
	}

	holdExpiresAt := earliestExpiry(held)

	for _, seat := range inRange {
		if _, ok := booked[seat]; ok {
			result.FailedSeats = append(result.FailedSeats, domain.FailedSeat{
				Seat:   seat,
				Reason: domain.ReasonAlreadyBooked,
			})
			continue
		}

		lock, err := m.locks.TryClaim(ctx, showtimeID, seat, sessionID, m.holdTTL)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrAlreadyLockedByOther):
				result.FailedSeats = append(result.FailedSeats, domain.FailedSeat{
					Seat:   seat,
					Reason: domain.ReasonAlreadyLockedByOther,
				})
			case errors.Is(err, domain.ErrAlreadyBooked):
				result.FailedSeats = append(result.FailedSeats, domain.FailedSeat{
					Seat:   seat,
					Reason: domain.ReasonAlreadyBooked,
				})
			default:
				return domain.ClaimResult{}, err
			}

			continue
		}

		result.LockedSeats = append(result.LockedSeats, seat)

		if holdExpiresAt.IsZero() || lock.ExpiresAt.Before(holdExpiresAt) {
			holdExpiresAt = lock.ExpiresAt
		}
	}

	result.HoldExpiresAt = holdExpiresAt

	m.recordClaims(ctx, result)

	if len(result.LockedSeats) > 0 {
		m.notify(ctx, domain.SeatLockClaimed, showtimeID, sessionID, result.LockedSeats)
	}

	return result, nil
}

// exceedsCap reports whether the union of held and requested seats is
// larger than the per-session cap.
func (m *Manager) exceedsCap(held []domain.SeatLock, requested []domain.Seat) bool {
	total := make(map[domain.Seat]struct{}, len(held)+len(requested))

	for _, lock := range held {
		total[lock.Seat] = struct{}{}
	}

	for _, seat := range requested {
		total[seat] = struct{}{}
	}

	return len(total) > m.maxSeats
}

func (m *Manager) recordClaims(ctx context.Context, result domain.ClaimResult) {
	if n := len(result.LockedSeats); n > 0 {
		m.claims.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", "locked")))
	}

	for _, failed := range result.FailedSeats {
		m.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(failed.Reason))))
	}
}

// UnlockSeats releases the session's locks on the given seats. An empty seat
// list releases every lock the session holds on the showtime. Seats that are
// not locked by the session are ignored.
func (m *Manager) UnlockSeats(
	ctx context.Context,
	showtimeID int,
	seats []domain.Seat,
	sessionID string) error {

	if len(seats) == 0 {
		held, err := m.locks.ListHeldBy(ctx, showtimeID, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list held seats: %w", err)
		}

		err = m.locks.ReleaseSession(ctx, showtimeID, sessionID)
		if err != nil {
			return err
		}

		seats = make([]domain.Seat, len(held))
		for i, lock := range held {
			seats[i] = lock.Seat
		}
	} else {
		seats = domain.UniqueSeats(seats)

		for _, seat := range seats {
			err := m.locks.Release(ctx, showtimeID, seat, sessionID)
			if err != nil {
				return err
			}
		}
	}

	if len(seats) > 0 {
		m.releases.Add(ctx, int64(len(seats)))
		m.notify(ctx, domain.SeatLockReleased, showtimeID, sessionID, seats)
	}

	return nil
}

// GetConflictingLocks returns the active locks held by sessions other than
// sessionID.
func (m *Manager) GetConflictingLocks(
	ctx context.Context,
	showtimeID int,
	sessionID string) ([]domain.SeatLock, error) {

	return m.locks.ListActive(ctx, showtimeID, sessionID)
}

func (m *Manager) LockedSeats(ctx context.Context, showtimeID int) ([]domain.SeatLock, error) {
	return m.locks.ListActive(ctx, showtimeID, "")
}

func (m *Manager) HeldSeats(ctx context.Context, showtimeID int, sessionID string) ([]domain.SeatLock, error) {
	return m.locks.ListHeldBy(ctx, showtimeID, sessionID)
}

func (m *Manager) notify(
	ctx context.Context,
	eventType domain.SeatLockEventType,
	showtimeID int,
	sessionID string,
	seats []domain.Seat) {

	publish(ctx, m.notifier, m.logger, domain.SeatLockEvent{
		Type:       eventType,
		ShowtimeID: showtimeID,
		SessionID:  sessionID,
		Seats:      seats,
		At:         m.clock.Now(),
	})
}

func publish(ctx context.Context, notifier domain.LockNotifier, logger *slog.Logger, event domain.SeatLockEvent) {
	if notifier == nil {
		return
	}

	err := notifier.Publish(ctx, event)
	if err != nil {
		logger.Warn("failed to publish seat lock event",
			"type", event.Type,
			"showtime_id", event.ShowtimeID,
			"error", err)
	}
}

func earliestExpiry(locks []domain.SeatLock) time.Time {
	var earliest time.Time

	for _, lock := range locks {
		if earliest.IsZero() || lock.ExpiresAt.Before(earliest) {
			earliest = lock.ExpiresAt
		}
	}

	return earliest
}

package seatlock

import (
	"context"
	"log/slog"

	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

type FinalizeInput struct {
	ShowtimeID int
	SessionID  string
	Seats      []domain.Seat
	Customer   domain.Customer
}

// Finalizer turns a session's selection into a permanent booking.
type Finalizer struct {
	locks     domain.SeatLockStore
	bookings  domain.BookingRepository
	showtimes domain.ShowtimeRepository
	notifier  domain.LockNotifier
	publisher domain.BookingPublisher
	clock     clock.Clock
	logger    *slog.Logger
}

func NewFinalizer(
	locks domain.SeatLockStore,
	bookings domain.BookingRepository,
	showtimes domain.ShowtimeRepository,
	opts ...Option) *Finalizer {

	cfg := newConfig(opts)

	return &Finalizer{
		locks:     locks,
		bookings:  bookings,
		showtimes: showtimes,
		notifier:  cfg.notifier,
		publisher: cfg.publisher,
		clock:     cfg.clock,
		logger:    cfg.logger,
	}
}

// Finalize validates the selection and records the booking inside the
// showtime's critical section, so two finalizers racing for the same seat
// cannot both succeed. Seats that are neither booked nor locked by another
// session pass validation even when the caller's own lock has lapsed.
//
// Conflicts are returned as *domain.SeatConflictError. Nothing is written
// when validation fails.
func (f *Finalizer) Finalize(ctx context.Context, in FinalizeInput) (*domain.Booking, error) {
	showtime, err := f.showtimes.GetByID(ctx, in.ShowtimeID)
	if err != nil {
		return nil, err
	}

	seats := domain.UniqueSeats(in.Seats)
	if len(seats) == 0 {
		return nil, domain.ErrEmptySelection
	}

	var outOfRange []domain.Seat
	for _, seat := range seats {
		if !showtime.Layout.Contains(seat) {
			outOfRange = append(outOfRange, seat)
		}
	}

	if len(outOfRange) > 0 {
		return nil, domain.NewSeatConflictError(domain.ErrSeatOutOfRange, outOfRange)
	}

	var booking *domain.Booking

	err = f.bookings.WithShowtimeLock(ctx, in.ShowtimeID, func(ctx context.Context) error {
		err := f.validate(ctx, in.ShowtimeID, in.SessionID, seats)
		if err != nil {
			return err
		}

		booking = domain.NewBooking(showtime, seats, in.SessionID, in.Customer, f.clock.Now())

		return f.bookings.Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	f.afterCommit(ctx, booking, showtime)

	return booking, nil
}

func (f *Finalizer) validate(ctx context.Context, showtimeID int, sessionID string, seats []domain.Seat) error {
	bookedSeats, err := f.bookings.BookedSeats(ctx, showtimeID)
	if err != nil {
		return err
	}

	booked := make(map[domain.Seat]struct{}, len(bookedSeats))
	for _, seat := range bookedSeats {
		booked[seat] = struct{}{}
	}

	var alreadyBooked []domain.Seat
	for _, seat := range seats {
		if _, ok := booked[seat]; ok {
			alreadyBooked = append(alreadyBooked, seat)
		}
	}

	if len(alreadyBooked) > 0 {
		return domain.NewSeatConflictError(domain.ErrAlreadyBooked, alreadyBooked)
	}

	foreign, err := f.locks.ListActive(ctx, showtimeID, sessionID)
	if err != nil {
		return err
	}

	lockedByOther := make(map[domain.Seat]struct{}, len(foreign))
	for _, lock := range foreign {
		lockedByOther[lock.Seat] = struct{}{}
	}

	var lost []domain.Seat
	for _, seat := range seats {
		if _, ok := lockedByOther[seat]; ok {
			lost = append(lost, seat)
		}
	}

	if len(lost) > 0 {
		return domain.NewSeatConflictError(domain.ErrSeatsNoLongerHeld, lost)
	}

	return nil
}

// afterCommit clears the session's hold and announces the booking. The
// booking already stands, so failures here are only logged.
func (f *Finalizer) afterCommit(ctx context.Context, booking *domain.Booking, showtime *domain.Showtime) {
	logger := f.logger.With("booking_id", booking.ID, "showtime_id", booking.ShowtimeID)

	err := f.locks.ReleaseSession(ctx, booking.ShowtimeID, booking.SessionID)
	if err != nil {
		logger.Warn("failed to release seat locks after booking", "error", err)
	}

	if marker, ok := f.locks.(domain.BookedSeatMarker); ok {
		err = marker.MarkBooked(ctx, booking.ShowtimeID, booking.Seats)
		if err != nil {
			logger.Warn("failed to mark booked seats in lock store", "error", err)
		}
	}

	publish(ctx, f.notifier, logger, domain.SeatLockEvent{
		Type:       domain.SeatLockBooked,
		ShowtimeID: booking.ShowtimeID,
		SessionID:  booking.SessionID,
		Seats:      booking.Seats,
		At:         booking.CreatedAt,
	})

	if f.publisher != nil {
		err = f.publisher.PublishBookingConfirmed(ctx, booking, showtime)
		if err != nil {
			logger.Warn("failed to publish booking confirmation", "error", err)
		}
	}

	logger.Info("booking confirmed", "seats", len(booking.Seats), "total_price", booking.TotalPrice.String())
}

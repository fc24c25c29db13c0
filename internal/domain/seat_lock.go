package domain

import (
	"context"
	"time"
)

// SeatLock is a time-bounded hold of one seat by one session.
type SeatLock struct {
	ShowtimeID int
	Seat       Seat
	SessionID  string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Active reports whether the lock still holds at the given instant.
func (l SeatLock) Active(now time.Time) bool {
	return now.Before(l.ExpiresAt)
}

// SeatLockStore persists seat locks keyed by (showtime, row, col).
//
// TryClaim must be atomic per seat key: two concurrent claims on the same
// seat yield at most one success. Every read filters out expired locks, so
// correctness never depends on SweepExpired having run.
type SeatLockStore interface {
	// TryClaim inserts a lock unless the seat is actively locked by another
	// session (ErrAlreadyLockedByOther) or booked (ErrAlreadyBooked). A seat
	// already held by sessionID is returned as is, without extending it.
	TryClaim(ctx context.Context, showtimeID int, seat Seat, sessionID string, ttl time.Duration) (SeatLock, error)
	// Release removes the lock only when sessionID owns it. Absent or
	// foreign locks are a no-op.
	Release(ctx context.Context, showtimeID int, seat Seat, sessionID string) error
	ReleaseSession(ctx context.Context, showtimeID int, sessionID string) error
	// ListActive returns the active locks of the showtime, skipping the ones
	// owned by excludeSessionID when it is not empty.
	ListActive(ctx context.Context, showtimeID int, excludeSessionID string) ([]SeatLock, error)
	ListHeldBy(ctx context.Context, showtimeID int, sessionID string) ([]SeatLock, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// BookedSeatMarker is implemented by stores that keep their own copy of
// booked seats and must be told about new bookings.
type BookedSeatMarker interface {
	MarkBooked(ctx context.Context, showtimeID int, seats []Seat) error
}

type FailureReason string

const (
	ReasonSeatOutOfRange       FailureReason = "SEAT_OUT_OF_RANGE"
	ReasonAlreadyLockedByOther FailureReason = "ALREADY_LOCKED_BY_OTHER"
	ReasonAlreadyBooked        FailureReason = "ALREADY_BOOKED"
)

type FailedSeat struct {
	Seat   Seat
	Reason FailureReason
}

// ClaimResult is the outcome of a bulk claim. Seats in LockedSeats stay
// locked even when FailedSeats is not empty.
type ClaimResult struct {
	LockedSeats   []Seat
	FailedSeats   []FailedSeat
	HoldExpiresAt time.Time
}

type SeatLockEventType string

const (
	SeatLockClaimed  SeatLockEventType = "claimed"
	SeatLockReleased SeatLockEventType = "released"
	SeatLockBooked   SeatLockEventType = "booked"
)

type SeatLockEvent struct {
	Type       SeatLockEventType `json:"type"`
	ShowtimeID int               `json:"showtimeId"`
	SessionID  string            `json:"sessionId"`
	Seats      []Seat            `json:"seats"`
	At         time.Time         `json:"at"`
}

// LockNotifier fans seat lock changes out to subscribers of a showtime.
// It is a freshness aid for seat maps; lock safety never depends on it.
type LockNotifier interface {
	Publish(ctx context.Context, event SeatLockEvent) error
	Subscribe(ctx context.Context, showtimeID int) (<-chan SeatLockEvent, func(), error)
}

package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	Name  string
	Email string
	Phone string
}

// Booking is the permanent allocation of seats. It is never mutated once
// created.
type Booking struct {
	ID         int
	Reference  uuid.UUID
	ShowtimeID int
	SessionID  string
	Customer   Customer
	Seats      []Seat
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

func NewBooking(showtime *Showtime, seats []Seat, sessionID string, customer Customer, now time.Time) *Booking {
	bookingSeats := make([]Seat, len(seats))
	copy(bookingSeats, seats)
	SortSeats(bookingSeats)

	total := decimal.Zero
	for _, seat := range bookingSeats {
		total = total.Add(showtime.SeatPrice(seat))
	}

	return &Booking{
		Reference:  uuid.New(),
		ShowtimeID: showtime.ID,
		SessionID:  sessionID,
		Customer:   customer,
		Seats:      bookingSeats,
		TotalPrice: total,
		CreatedAt:  now,
	}
}

type BookingRepository interface {
	// WithShowtimeLock runs fn inside the showtime's critical section.
	// Repository calls made with the ctx passed to fn share its transaction.
	WithShowtimeLock(ctx context.Context, showtimeID int, fn func(ctx context.Context) error) error
	BookedSeats(ctx context.Context, showtimeID int) ([]Seat, error)
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id int) (*Booking, error)
}

type BookingPublisher interface {
	PublishBookingConfirmed(ctx context.Context, booking *Booking, showtime *Showtime) error
}

package seatlock

import (
	"context"
	"fmt"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/shopspring/decimal"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatLocked    SeatStatus = "locked"
	SeatBooked    SeatStatus = "booked"
)

type SeatState struct {
	Seat   domain.Seat
	Status SeatStatus
	Middle bool
	Price  decimal.Decimal
}

type SeatMap struct {
	Showtime *domain.Showtime
	Seats    []SeatState
}

// SeatMap merges the room layout with bookings and active locks. Seats locked
// by sessionID are reported as held, other sessions' locks as locked.
func (m *Manager) SeatMap(ctx context.Context, showtimeID int, sessionID string) (*SeatMap, error) {
	showtime, err := m.showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	bookedSeats, err := m.bookings.BookedSeats(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list booked seats: %w", err)
	}

	locks, err := m.locks.ListActive(ctx, showtimeID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list seat locks: %w", err)
	}

	status := make(map[domain.Seat]SeatStatus, len(bookedSeats)+len(locks))

	for _, lock := range locks {
		if sessionID != "" && lock.SessionID == sessionID {
			status[lock.Seat] = SeatHeld
		} else {
			status[lock.Seat] = SeatLocked
		}
	}

	for _, seat := range bookedSeats {
		status[seat] = SeatBooked
	}

	layoutSeats := showtime.Layout.Seats()
	seats := make([]SeatState, len(layoutSeats))

	for i, seat := range layoutSeats {
		s, ok := status[seat]
		if !ok {
			s = SeatAvailable
		}

		seats[i] = SeatState{
			Seat:   seat,
			Status: s,
			Middle: showtime.Layout.IsMiddle(seat),
			Price:  showtime.SeatPrice(seat),
		}
	}

	return &SeatMap{
		Showtime: showtime,
		Seats:    seats,
	}, nil
}

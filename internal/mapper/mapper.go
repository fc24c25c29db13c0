// Package mapper converts between the HTTP API models and the domain types.
package mapper

import (
	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

func ToAPISeat(seat domain.Seat) api.Seat {
	return api.Seat{
		Row: api.SeatRow(seat.Row),
		Col: seat.Col,
	}
}

func ToAPISeats(seats []domain.Seat) []api.Seat {
	apiSeats := make([]api.Seat, len(seats))
	for i, seat := range seats {
		apiSeats[i] = ToAPISeat(seat)
	}

	return apiSeats
}

func ToDomainSeats(seats []api.Seat) []domain.Seat {
	domainSeats := make([]domain.Seat, len(seats))
	for i, seat := range seats {
		domainSeats[i] = domain.Seat{
			Row: int(seat.Row),
			Col: seat.Col,
		}
	}

	return domainSeats
}

func ToAPIFailedSeats(failed []domain.FailedSeat) []api.FailedSeat {
	apiFailed := make([]api.FailedSeat, len(failed))
	for i, f := range failed {
		apiFailed[i] = api.FailedSeat{
			Seat:   ToAPISeat(f.Seat),
			Reason: api.FailureReason(f.Reason),
		}
	}

	return apiFailed
}

func ToDomainFailedSeats(failed []api.FailedSeat) []domain.FailedSeat {
	domainFailed := make([]domain.FailedSeat, len(failed))
	for i, f := range failed {
		domainFailed[i] = domain.FailedSeat{
			Seat:   domain.Seat{Row: int(f.Seat.Row), Col: f.Seat.Col},
			Reason: domain.FailureReason(f.Reason),
		}
	}

	return domainFailed
}

func ToAPISeatLocks(locks []domain.SeatLock) []api.SeatLock {
	apiLocks := make([]api.SeatLock, len(locks))
	for i, lock := range locks {
		apiLocks[i] = api.SeatLock{
			Seat:      ToAPISeat(lock.Seat),
			SessionId: lock.SessionID,
			ExpiresAt: lock.ExpiresAt,
		}
	}

	return apiLocks
}

func ToDomainSeatLocks(showtimeID int, locks []api.SeatLock) []domain.SeatLock {
	domainLocks := make([]domain.SeatLock, len(locks))
	for i, lock := range locks {
		domainLocks[i] = domain.SeatLock{
			ShowtimeID: showtimeID,
			Seat:       domain.Seat{Row: int(lock.Seat.Row), Col: lock.Seat.Col},
			SessionID:  lock.SessionId,
			ExpiresAt:  lock.ExpiresAt,
		}
	}

	return domainLocks
}

func ToAPICustomer(customer domain.Customer) api.Customer {
	c := api.Customer{
		Name:  customer.Name,
		Email: customer.Email,
	}

	if customer.Phone != "" {
		phone := customer.Phone
		c.Phone = &phone
	}

	return c
}

func ToDomainCustomer(customer api.Customer) domain.Customer {
	c := domain.Customer{
		Name:  customer.Name,
		Email: customer.Email,
	}

	if customer.Phone != nil {
		c.Phone = *customer.Phone
	}

	return c
}

func ToAPIBooking(booking *domain.Booking) api.Booking {
	return api.Booking{
		Id:         booking.ID,
		Reference:  booking.Reference,
		ShowtimeId: booking.ShowtimeID,
		Seats:      ToAPISeats(booking.Seats),
		Customer:   ToAPICustomer(booking.Customer),
		TotalPrice: booking.TotalPrice,
		CreatedAt:  booking.CreatedAt,
	}
}

func ToDomainBooking(booking api.Booking) *domain.Booking {
	return &domain.Booking{
		ID:         booking.Id,
		Reference:  booking.Reference,
		ShowtimeID: booking.ShowtimeId,
		Seats:      ToDomainSeats(booking.Seats),
		Customer:   ToDomainCustomer(booking.Customer),
		TotalPrice: booking.TotalPrice,
		CreatedAt:  booking.CreatedAt,
	}
}

func ToAPISeatLockEvent(event domain.SeatLockEvent) api.SeatLockEvent {
	return api.SeatLockEvent{
		Type:       string(event.Type),
		ShowtimeId: event.ShowtimeID,
		SessionId:  event.SessionID,
		Seats:      ToAPISeats(event.Seats),
		At:         event.At,
	}
}

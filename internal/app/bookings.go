package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/mailer"
	"github.com/metinatakli/cinex-booking/internal/mapper"
	"github.com/metinatakli/cinex-booking/internal/seatlock"
)

const mailTimeout = 10 * time.Second

func (app *Application) CreateBooking(w http.ResponseWriter, r *http.Request, showtimeID int) {
	logger := app.contextGetLogger(r)

	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	var input api.CreateBookingRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	booking, err := app.finalizer.Finalize(r.Context(), seatlock.FinalizeInput{
		ShowtimeID: showtimeID,
		SessionID:  app.sessionID(r, input.SessionId),
		Seats:      mapper.ToDomainSeats(input.Seats),
		Customer:   mapper.ToDomainCustomer(input.Customer),
	})
	if err != nil {
		var conflict *domain.SeatConflictError

		switch {
		case errors.As(err, &conflict):
			app.metrics.observeBooking(conflict.Code)
			logger.Warn("booking rejected", "showtime_id", showtimeID, "code", conflict.Code, "seats", len(conflict.Seats))
			app.seatConflictResponse(w, r, conflict)
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrEmptySelection):
			app.badRequestResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.metrics.observeBooking("BOOKED")

	app.background(func() {
		app.sendBookingConfirmation(booking)
	})

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/bookings/%d", booking.ID))

	err = app.writeJSON(w, http.StatusCreated, mapper.ToAPIBooking(booking), headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBooking(w http.ResponseWriter, r *http.Request, bookingID int) {
	if bookingID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("booking ID must be greater than zero"))
		return
	}

	booking, err := app.bookingRepo.GetByID(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, mapper.ToAPIBooking(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) sendBookingConfirmation(booking *domain.Booking) {
	logger := app.logger.With("booking_id", booking.ID)

	ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
	defer cancel()

	showtime, err := app.showtimeRepo.GetByID(ctx, booking.ShowtimeID)
	if err != nil {
		logger.Error("failed to load showtime for confirmation email", "error", err)
		return
	}

	seats := make([]string, len(booking.Seats))
	for i, seat := range booking.Seats {
		seats[i] = seat.String()
	}

	data := mailer.BookingConfirmedData{
		CustomerName: booking.Customer.Name,
		MovieTitle:   showtime.MovieTitle,
		RoomName:     showtime.RoomName,
		StartTime:    showtime.StartTime.Format(time.RFC1123),
		Seats:        seats,
		TotalPrice:   booking.TotalPrice.StringFixed(2),
		Reference:    booking.Reference.String(),
	}

	err = app.mailer.Send(booking.Customer.Email, mailer.BookingConfirmedTemplate, data)
	if err != nil {
		logger.Error("failed to send booking confirmation email", "error", err)
	}
}

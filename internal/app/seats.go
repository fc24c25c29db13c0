package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/mapper"
	"github.com/metinatakli/cinex-booking/internal/seatlock"
)

func (app *Application) GetBookedSeats(w http.ResponseWriter, r *http.Request, showtimeID int) {
	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	seats, err := app.bookingRepo.BookedSeats(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.BookedSeatsResponse{
		ShowtimeId: showtimeID,
		Seats:      mapper.ToAPISeats(seats),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetSeatMap(
	w http.ResponseWriter,
	r *http.Request,
	showtimeID int,
	params api.GetSeatMapParams) {

	logger := app.contextGetLogger(r)

	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	var sessionID string
	if params.SessionId != nil {
		sessionID = *params.SessionId
	}

	seatMap, err := app.locks.SeatMap(r.Context(), showtimeID, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			logger.Warn("seat map requested for unknown showtime", "showtime_id", showtimeID)
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatMapResponse(seatMap), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatMapResponse(seatMap *seatlock.SeatMap) api.SeatMapResponse {
	resp := api.SeatMapResponse{
		ShowtimeId: seatMap.Showtime.ID,
		MovieTitle: seatMap.Showtime.MovieTitle,
		RoomName:   seatMap.Showtime.RoomName,
		StartTime:  seatMap.Showtime.StartTime,
		Rows:       toSeatMapRows(seatMap.Seats),
	}

	return resp
}

func toSeatMapRows(seats []seatlock.SeatState) []api.SeatMapRow {
	// Seats come sorted by row then column, so each row is a contiguous run.
	rows := []api.SeatMapRow{}

	for _, s := range seats {
		letter := domain.RowLetter(s.Seat.Row)

		if len(rows) == 0 || rows[len(rows)-1].Row != letter {
			rows = append(rows, api.SeatMapRow{Row: letter})
		}

		current := &rows[len(rows)-1]
		current.Seats = append(current.Seats, api.SeatMapSeat{
			Col:    s.Seat.Col,
			Status: api.SeatStatus(s.Status),
			Middle: s.Middle,
			Price:  s.Price,
		})
	}

	return rows
}

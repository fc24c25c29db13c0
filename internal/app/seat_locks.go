package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/mapper"
)

const sseHeartbeatInterval = 15 * time.Second

func (app *Application) LockSeats(w http.ResponseWriter, r *http.Request, showtimeID int) {
	logger := app.contextGetLogger(r)

	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	var input api.LockSeatsRequest

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

	sessionID := app.sessionID(r, input.SessionId)

	result, err := app.locks.ClaimSeats(r.Context(), showtimeID, mapper.ToDomainSeats(input.Seats), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrMaxSeatsExceeded):
			logger.Warn("seat claim rejected: session seat limit reached", "showtime_id", showtimeID)
			app.maxSeatsExceededResponse(w, r)
		case errors.Is(err, domain.ErrEmptySelection):
			app.badRequestResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.metrics.observeClaim(len(result.LockedSeats), len(result.FailedSeats))

	resp := api.LockSeatsResponse{
		SessionId:      sessionID,
		LockedSeats:    mapper.ToAPISeats(result.LockedSeats),
		FailedSeats:    mapper.ToAPIFailedSeats(result.FailedSeats),
		HoldTtlSeconds: int(app.locks.HoldTTL().Seconds()),
	}

	if !result.HoldExpiresAt.IsZero() {
		resp.HoldExpiresAt = &result.HoldExpiresAt
	}

	status := http.StatusOK
	if len(result.LockedSeats) == 0 {
		logger.Info("seat claim failed for every seat", "showtime_id", showtimeID, "failed", len(result.FailedSeats))
		status = http.StatusConflict
	}

	err = app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) UnlockSeats(w http.ResponseWriter, r *http.Request, showtimeID int) {
	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	var input api.UnlockSeatsRequest

	if hasBody(r) {
		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	err := app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	sessionID := app.sessionID(r, input.SessionId)

	err = app.locks.UnlockSeats(r.Context(), showtimeID, mapper.ToDomainSeats(input.Seats), sessionID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.UnlockSeatsResponse{
		SessionId: sessionID,
		Message:   "seats released",
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetSeatLocks(
	w http.ResponseWriter,
	r *http.Request,
	showtimeID int,
	params api.GetSeatLocksParams) {

	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	var (
		locks []domain.SeatLock
		err   error
	)

	if params.ExcludeSessionId != nil && *params.ExcludeSessionId != "" {
		locks, err = app.locks.GetConflictingLocks(r.Context(), showtimeID, *params.ExcludeSessionId)
	} else {
		locks, err = app.locks.LockedSeats(r.Context(), showtimeID)
	}

	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.SeatLocksResponse{
		ShowtimeId: showtimeID,
		Locks:      mapper.ToAPISeatLocks(locks),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// StreamSeatLockEvents pushes lock changes of the showtime as Server-Sent
// Events until the client goes away or the server shuts down.
func (app *Application) StreamSeatLockEvents(w http.ResponseWriter, r *http.Request, showtimeID int) {
	logger := app.contextGetLogger(r)

	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	events, unsubscribe, err := app.notifier.Subscribe(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, fmt.Errorf("failed to subscribe to seat lock events: %w", err))
		return
	}
	defer unsubscribe()

	rc := http.NewResponseController(w)

	// The server write timeout would otherwise cut the stream.
	err = rc.SetWriteDeadline(time.Time{})
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "retry: 3000\n\n")
	if err := rc.Flush(); err != nil {
		logger.Warn("seat lock stream cannot be flushed", "error", err)
		return
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-app.closing:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
		case event, ok := <-events:
			if !ok {
				return
			}

			data, err := json.Marshal(mapper.ToAPISeatLockEvent(event))
			if err != nil {
				logger.Error("failed to encode seat lock event", "error", err)
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
		}

		if err := rc.Flush(); err != nil {
			return
		}
	}
}

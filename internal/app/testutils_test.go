package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/events"
	"github.com/metinatakli/cinex-booking/internal/mailer"
	"github.com/metinatakli/cinex-booking/internal/notify"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/metinatakli/cinex-booking/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	testShowtimeID = 7
	testMaxSeats   = 4
	testHoldTTL    = 5 * time.Minute
)

func testShowtime() domain.Showtime {
	return domain.Showtime{
		ID:                  testShowtimeID,
		RoomID:              1,
		RoomName:            "Hall 1",
		MovieTitle:          "Metropolis",
		StartTime:           time.Date(2030, 5, 1, 20, 0, 0, 0, time.UTC),
		Price:               decimal.RequireFromString("10.00"),
		MiddleSeatSurcharge: decimal.RequireFromString("2.50"),
		Layout: domain.RoomLayout{
			RowLetters:  []string{"A", "B"},
			SeatsPerRow: map[string]int{"A": 4, "B": 4},
			MiddleSeats: map[string][]int{"B": {2, 3}},
		},
	}
}

// testDeps are the collaborators handed to NewApp. Unset fields fall back to
// in-memory implementations sharing one MemoryStore.
type testDeps struct {
	showtimes domain.ShowtimeRepository
	bookings  domain.BookingRepository
	locks     domain.SeatLockStore
	notifier  domain.LockNotifier
	mailer    *mailer.MockMailer
	redis     redis.UniversalClient
}

func newTestApplication(opts ...func(*testDeps)) (*Application, *testDeps) {
	store := repository.NewMemoryStore(clock.Real{})

	deps := &testDeps{
		showtimes: repository.NewMemoryShowtimeRepository(testShowtime()),
		bookings:  store,
		locks:     store,
		notifier:  notify.NewLocal(),
		mailer:    mailer.NewMockMailer(),
	}

	for _, opt := range opts {
		opt(deps)
	}

	cfg := Config{
		Env: "test",
		SeatLock: SeatLockConfig{
			Store:         "memory",
			HoldTTL:       testHoldTTL,
			MaxSeats:      testMaxSeats,
			SweepInterval: time.Minute,
		},
	}

	app := NewApp(
		cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
		deps.redis,
		validator.NewValidator(),
		deps.mailer,
		scs.New(),
		deps.showtimes,
		deps.bookings,
		deps.locks,
		deps.notifier,
		events.Noop{},
	)

	return app, deps
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	var reader io.Reader = http.NoBody

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	case http.StatusConflict:
		// Conflict bodies differ per endpoint and are checked by the tests.

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

func seat(row, col int) api.Seat {
	return api.Seat{Row: api.SeatRow(row), Col: col}
}

func ptr[T any](v T) *T {
	return &v
}

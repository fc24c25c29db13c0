package integration_test

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/mailer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BookingsTestSuite struct {
	BaseSuite
}

func TestBookingsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(BookingsTestSuite))
}

func TestBookingsSuiteOnRedis(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, &BookingsTestSuite{BaseSuite{lockStore: "redis"}})
}

func bookingBody(sessionID, seats string) *strings.Reader {
	return strings.NewReader(fmt.Sprintf(`{
		"sessionId": %q,
		"seats": %s,
		"customer": {"name": %q, "email": %q}
	}`, sessionID, seats, TestCustomerName, TestCustomerEmail))
}

func createBooking(t testing.TB, app *TestApp, sessionID, seats string) *http.Response {
	t.Helper()

	req, err := prepareRequest(http.MethodPost, "/showtimes/1/bookings", bookingBody(sessionID, seats), nil, nil)
	require.NoError(t, err)

	res := serve(app, req).Result()
	t.Cleanup(func() { res.Body.Close() })

	return res
}

func (s *BookingsTestSuite) TestCreateBooking() {
	scenarios := []Scenario{
		{
			Name:           "returns 422 for a malformed customer email",
			Method:         http.MethodPost,
			URL:            "/showtimes/1/bookings",
			Body:           strings.NewReader(`{"sessionId": "session-a", "seats": [{"row": "A", "col": 1}], "customer": {"name": "Ada", "email": "nope"}}`),
			ExpectedStatus: http.StatusUnprocessableEntity,
			ExpectedResponse: `{
				"message": "One or more fields have invalid values",
				"validationErrors": [{"field": "CreateBookingRequest.Customer.Email", "issue": "must be a valid email address"}]
			}`,
		},
		{
			Name:           "returns 409 when a seat is outside the room",
			Method:         http.MethodPost,
			URL:            "/showtimes/1/bookings",
			Body:           bookingBody(TestSessionA, `[{"row": "A", "col": 1}, {"row": "A", "col": 9}]`),
			ExpectedStatus: http.StatusConflict,
			ExpectedResponse: `{
				"code": "SEAT_OUT_OF_RANGE",
				"message": "seat is not part of the room layout",
				"seatsFailed": [{"row": "A", "col": 9}]
			}`,
		},
		{
			Name:           "returns 409 when a seat is locked by another session",
			Method:         http.MethodPost,
			URL:            "/showtimes/1/bookings",
			Body:           bookingBody(TestSessionA, `[{"row": "A", "col": 1}, {"row": "A", "col": 2}]`),
			ExpectedStatus: http.StatusConflict,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				resetState(t, app)
				lockSeats(t, app, TestShowtimeID, TestSessionA, `[{"row": "A", "col": 1}]`)
				lockSeats(t, app, TestShowtimeID, TestSessionB, `[{"row": "A", "col": 2}]`)
			},
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				resp := decodeResponse[api.BookingConflictResponse](t, res)
				assert.Equal(t, api.SEATSNOLONGERHELD, resp.Code)
				assert.Equal(t, []api.Seat{{Row: 1, Col: 2}}, resp.SeatsFailed)

				// The failed attempt keeps the caller's own hold.
				assert.Len(t, heldSeats(t, app, TestShowtimeID, TestSessionA), 1)
			},
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}

func (s *BookingsTestSuite) TestBookingFlow() {
	lockSeats(s.T(), s.app, TestShowtimeID, TestSessionA, `[{"row": "A", "col": 1}, {"row": "B", "col": 2}]`)

	res := createBooking(s.T(), s.app, TestSessionA, `[{"row": "B", "col": 2}, {"row": "A", "col": 1}]`)
	s.Require().Equal(http.StatusCreated, res.StatusCode)

	booking := decodeResponse[api.Booking](s.T(), res)
	s.Equal(fmt.Sprintf("/bookings/%d", booking.Id), res.Header.Get("Location"))
	s.Equal(TestShowtimeID, booking.ShowtimeId)
	s.Equal([]api.Seat{{Row: 1, Col: 1}, {Row: 2, Col: 2}}, booking.Seats)
	s.True(decimal.RequireFromString("22.50").Equal(booking.TotalPrice), "total = %s", booking.TotalPrice)

	s.Run("locks are released", func() {
		s.Empty(heldSeats(s.T(), s.app, TestShowtimeID, TestSessionA))
	})

	s.Run("booking can be fetched", func() {
		req, err := prepareRequest(http.MethodGet, fmt.Sprintf("/bookings/%d", booking.Id), nil, nil, nil)
		s.Require().NoError(err)

		res := serve(s.app, req).Result()
		defer res.Body.Close()

		s.Require().Equal(http.StatusOK, res.StatusCode)

		got := decodeResponse[api.Booking](s.T(), res)
		s.Equal(booking.Reference, got.Reference)
		s.Equal(booking.Seats, got.Seats)
		s.Equal(TestCustomerEmail, got.Customer.Email)
	})

	s.Run("booked seats cannot be claimed again", func() {
		req, err := prepareRequest(
			http.MethodPost,
			"/showtimes/1/seat-locks",
			strings.NewReader(`{"sessionId": "session-b", "seats": [{"row": "A", "col": 1}]}`),
			nil,
			nil)
		s.Require().NoError(err)

		res := serve(s.app, req).Result()
		defer res.Body.Close()

		s.Require().Equal(http.StatusConflict, res.StatusCode)

		resp := decodeResponse[api.LockSeatsResponse](s.T(), res)
		s.Require().Len(resp.FailedSeats, 1)
		s.Equal(api.FailureReasonALREADYBOOKED, resp.FailedSeats[0].Reason)
	})

	s.Run("booking is rejected a second time", func() {
		res := createBooking(s.T(), s.app, TestSessionA, `[{"row": "A", "col": 1}]`)
		s.Require().Equal(http.StatusConflict, res.StatusCode)

		resp := decodeResponse[api.BookingConflictResponse](s.T(), res)
		s.Equal(api.ALREADYBOOKED, resp.Code)
	})

	s.Run("confirmation email is sent", func() {
		s.Eventually(func() bool {
			return len(s.app.Mailer.GetSentEmails()) == 1
		}, 5*time.Second, 50*time.Millisecond)

		email := s.app.Mailer.GetSentEmails()[0]
		s.Equal(TestCustomerEmail, email.Recipient)
		s.Equal(mailer.BookingConfirmedTemplate, email.TemplateFile)

		data, ok := email.Data.(mailer.BookingConfirmedData)
		s.Require().True(ok)
		s.Equal(TestMovieTitle, data.MovieTitle)
		s.Equal(TestRoomName, data.RoomName)
		s.Equal([]string{"A1", "B2"}, data.Seats)
		s.Equal("22.50", data.TotalPrice)
	})
}

func (s *BookingsTestSuite) TestConcurrentBookingsOfOneSeat() {
	const contenders = 8

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = make(map[int]int)
	)

	for i := range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req, err := prepareRequest(
				http.MethodPost,
				"/showtimes/1/bookings",
				bookingBody(fmt.Sprintf("racer-%d", i), `[{"row": "B", "col": 4}]`),
				nil,
				nil)
			if err != nil {
				return
			}

			rec := serve(s.app, req)

			mu.Lock()
			statuses[rec.Code]++
			mu.Unlock()
		}()
	}

	wg.Wait()

	s.Equal(1, statuses[http.StatusCreated], "statuses: %v", statuses)
	s.Equal(contenders-1, statuses[http.StatusConflict], "statuses: %v", statuses)
}

package seatlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var testCustomer = domain.Customer{
	Name:  "Ada Lovelace",
	Email: "ada@example.com",
	Phone: "+44 20 7946 0000",
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking, showtime *domain.Showtime) error {
	args := m.Called(ctx, booking, showtime)
	return args.Error(0)
}

type FinalizerTestSuite struct {
	suite.Suite
	ctx       context.Context
	clock     *clock.Fake
	store     *repository.MemoryStore
	notifier  *recordingNotifier
	publisher *mockPublisher
	manager   *Manager
	finalizer *Finalizer
}

func (s *FinalizerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewFake(testStart)
	s.store = repository.NewMemoryStore(s.clock)
	s.notifier = &recordingNotifier{}
	s.publisher = new(mockPublisher)

	showtimes := repository.NewMemoryShowtimeRepository(testShowtime())

	s.manager = NewManager(s.store, s.store, showtimes, WithClock(s.clock))
	s.finalizer = NewFinalizer(s.store, s.store, showtimes,
		WithClock(s.clock),
		WithNotifier(s.notifier),
		WithPublisher(s.publisher))
}

func TestFinalizerSuite(t *testing.T) {
	suite.Run(t, new(FinalizerTestSuite))
}

func (s *FinalizerTestSuite) TestFinalize() {
	s.publisher.On("PublishBookingConfirmed", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := s.manager.ClaimSeats(s.ctx, testShowtimeID, []domain.Seat{b2, a1}, "X")
	s.Require().NoError(err)

	booking, err := s.finalizer.Finalize(s.ctx, FinalizeInput{
		ShowtimeID: testShowtimeID,
		SessionID:  "X",
		Seats:      []domain.Seat{b2, a1},
		Customer:   testCustomer,
	})
	s.Require().NoError(err)

	s.NotZero(booking.ID)
	s.Equal([]domain.Seat{a1, b2}, booking.Seats)
	s.Equal(testCustomer, booking.Customer)
	s.True(decimal.RequireFromString("28.00").Equal(booking.TotalPrice), "got %s", booking.TotalPrice)
	s.Equal(testStart, booking.CreatedAt)

	held, err := s.manager.HeldSeats(s.ctx, testShowtimeID, "X")
	s.Require().NoError(err)
	s.Empty(held, "locks are cleared after a booking")

	stored, err := s.store.GetByID(s.ctx, booking.ID)
	s.Require().NoError(err)
	s.Equal(booking.Reference, stored.Reference)

	s.Equal([]domain.SeatLockEventType{domain.SeatLockBooked}, s.notifier.types())
	s.publisher.AssertExpectations(s.T())
}

func (s *FinalizerTestSuite) TestFinalizeRejectsBookedSeats() {
	s.publisher.On("PublishBookingConfirmed", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := s.finalizer.Finalize(s.ctx, FinalizeInput{
		ShowtimeID: testShowtimeID,
		SessionID:  "X",
		Seats:      []domain.Seat{a1},
		Customer:   testCustomer,
	})
	s.Require().NoError(err)

	_, err = s.finalizer.Finalize(s.ctx, FinalizeInput{
		ShowtimeID: testShowtimeID,
		SessionID:  "Y",
		Seats:      []domain.Seat{a1, a2},
		Customer:   testCustomer,
	})

	var conflict *domain.SeatConflictError
	s.Require().ErrorAs(err, &conflict)
	s.Equal(domain.CodeAlreadyBooked, conflict.Code)
	s.Equal([]domain.Seat{a1}, conflict.Seats)

	booked, err := s.store.BookedSeats(s.ctx, testShowtimeID)
	s.Require().NoError(err)
	s.Equal([]domain.Seat{a1}, booked, "a failed finalize commits nothing")
}

func (s *FinalizerTestSuite) TestFinalizeRejectsSeatsLockedByOther() {
	_, err := s.manager.ClaimSeats(s.ctx, testShowtimeID, []domain.Seat{a1, a2}, "Y")
	s.Require().NoError(err)

	s.clock.Advance(DefaultHoldTTL)

	_, err = s.manager.ClaimSeats(s.ctx, testShowtimeID, []domain.Seat{a2}, "X")
	s.Require().NoError(err)

	_, err = s.finalizer.Finalize(s.ctx, FinalizeInput{
		ShowtimeID: testShowtimeID,
		SessionID:  "Y",
		Seats:      []domain.Seat{a1, a2},
		Customer:   testCustomer,
	})

	var conflict *domain.SeatConflictError
	s.Require().ErrorAs(err, &conflict)
	s.Equal(domain.CodeSeatsNoLongerHeld, conflict.Code)
	s.Equal([]domain.Seat{a2}, conflict.Seats)
	s.ErrorIs(err, domain.ErrSeatsNoLongerHeld)

	booked, err := s.store.BookedSeats(s.ctx, testShowtimeID)
	s.Require().NoError(err)
	s.Empty(booked)
}

func (s *FinalizerTestSuite) TestFinalizeAcceptsLapsedButFreeSeats() {
	s.publisher.On("PublishBookingConfirmed", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := s.manager.ClaimSeats(s.ctx, testShowtimeID, []domain.Seat{a1}, "X")
	s.Require().NoError(err)

	s.clock.Advance(2 * DefaultHoldTTL)

	booking, err := s.finalizer.Finalize(s.ctx, FinalizeInput{
		ShowtimeID: testShowtimeID,
		SessionID:  "X",
		Seats:      []domain.Seat{a1},
		Customer:   testCustomer,
	})
	s.Require().NoError(err)
	s.Equal([]domain.Seat{a1}, booking.Seats)
}

func (s *FinalizerTestSuite) TestFinalizeRejectsOutOfRangeSeats() {
	_, err := s.finalizer.Finalize(s.ctx, FinalizeInput{
		ShowtimeID: testShowtimeID,
		SessionID:  "X",
		Seats:      []domain.Seat{a1, {Row: 9, Col: 9}},
		Customer:   testCustomer,
	})

	var conflict *domain.SeatConflictError
	s.Require().ErrorAs(err, &conflict)
	s.Equal(domain.CodeSeatOutOfRange, conflict.Code)
}

func (s *FinalizerTestSuite) TestFinalizeRejectsEmptySelection() {
	_, err := s.finalizer.Finalize(s.ctx, FinalizeInput{
		ShowtimeID: testShowtimeID,
		SessionID:  "X",
		Customer:   testCustomer,
	})

	s.ErrorIs(err, domain.ErrEmptySelection)
}

func (s *FinalizerTestSuite) TestFinalizeSucceedsWhenPublisherFails() {
	s.publisher.On("PublishBookingConfirmed", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable")).Once()

	booking, err := s.finalizer.Finalize(s.ctx, FinalizeInput{
		ShowtimeID: testShowtimeID,
		SessionID:  "X",
		Seats:      []domain.Seat{a3},
		Customer:   testCustomer,
	})
	s.Require().NoError(err)
	s.NotZero(booking.ID)
}

// Overlapping selections raced by many sessions must produce exactly one
// booking and never a partial one.
func TestConcurrentFinalizeIsAtomic(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(testStart)
	store := repository.NewMemoryStore(clk)
	showtimes := repository.NewMemoryShowtimeRepository(testShowtime())
	finalizer := NewFinalizer(store, store, showtimes, WithClock(clk))

	const sessions = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []*domain.Booking
		failures  []error
	)

	for i := range sessions {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			// Every selection contains A3.
			seats := []domain.Seat{a3, {Row: 3, Col: 1 + i%6}, {Row: 2, Col: 1 + i%6}}

			booking, err := finalizer.Finalize(ctx, FinalizeInput{
				ShowtimeID: testShowtimeID,
				SessionID:  fmt.Sprintf("session-%d", i),
				Seats:      seats,
				Customer:   testCustomer,
			})

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failures = append(failures, err)
				return
			}
			successes = append(successes, booking)
		}(i)
	}

	wg.Wait()

	require.Len(t, successes, 1)
	assert.Len(t, failures, sessions-1)

	for _, err := range failures {
		code := domain.ErrorCode(err)
		assert.Contains(t, []string{domain.CodeAlreadyBooked, domain.CodeSeatsNoLongerHeld}, code, "unexpected error: %v", err)
	}

	booked, err := store.BookedSeats(ctx, testShowtimeID)
	require.NoError(t, err)
	assert.ElementsMatch(t, successes[0].Seats, booked, "no partial booking is ever created")
}

// Claim, observe from another session, finalize, then verify the seats
// became permanently unavailable.
func TestBookingScenario(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(testStart)
	store := repository.NewMemoryStore(clk)
	showtimes := repository.NewMemoryShowtimeRepository(testShowtime())

	manager := NewManager(store, store, showtimes, WithClock(clk), WithHoldTTL(300*time.Second))
	finalizer := NewFinalizer(store, store, showtimes, WithClock(clk))

	result, err := manager.ClaimSeats(ctx, testShowtimeID, []domain.Seat{a1, a2}, "X")
	require.NoError(t, err)
	require.Equal(t, []domain.Seat{a1, a2}, result.LockedSeats)

	conflicts, err := manager.GetConflictingLocks(ctx, testShowtimeID, "Y")
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	for _, lock := range conflicts {
		assert.Equal(t, "X", lock.SessionID)
	}

	booking, err := finalizer.Finalize(ctx, FinalizeInput{
		ShowtimeID: testShowtimeID,
		SessionID:  "X",
		Seats:      []domain.Seat{a1, a2},
		Customer:   testCustomer,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Seat{a1, a2}, booking.Seats)

	locks, err := manager.LockedSeats(ctx, testShowtimeID)
	require.NoError(t, err)
	assert.Empty(t, locks)

	booked, err := store.BookedSeats(ctx, testShowtimeID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Seat{a1, a2}, booked)

	result, err = manager.ClaimSeats(ctx, testShowtimeID, []domain.Seat{a1}, "Z")
	require.NoError(t, err)
	assert.Empty(t, result.LockedSeats)
	assert.Equal(t, []domain.FailedSeat{{Seat: a1, Reason: domain.ReasonAlreadyBooked}}, result.FailedSeats)
}

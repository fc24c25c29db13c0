package integration_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/stretchr/testify/suite"
)

// SeatLockStoreTestSuite runs the same lock contract against every
// persistent backend.
type SeatLockStoreTestSuite struct {
	BaseSuite
	clock  *clock.Fake
	stores map[string]domain.SeatLockStore
}

func TestSeatLockStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(SeatLockStoreTestSuite))
}

func (s *SeatLockStoreTestSuite) SetupTest() {
	s.BaseSuite.SetupTest()

	s.clock = clock.NewFake(time.Now().UTC().Truncate(time.Millisecond))
	s.stores = map[string]domain.SeatLockStore{
		"postgres": repository.NewPostgresSeatLockStore(s.app.DB, s.clock),
		"redis":    repository.NewRedisSeatLockStore(s.app.RedisClient, s.clock),
	}
}

func (s *SeatLockStoreTestSuite) eachStore(fn func(store domain.SeatLockStore)) {
	for name, store := range s.stores {
		s.Run(name, func() {
			resetState(s.T(), s.app)
			fn(store)
		})
	}
}

func (s *SeatLockStoreTestSuite) TestClaimContract() {
	ctx := context.Background()
	seat := domain.Seat{Row: 1, Col: 1}

	s.eachStore(func(store domain.SeatLockStore) {
		first, err := store.TryClaim(ctx, TestShowtimeID, seat, TestSessionA, time.Minute)
		s.Require().NoError(err)
		s.Equal(s.clock.Now().Add(time.Minute), first.ExpiresAt.UTC())

		_, err = store.TryClaim(ctx, TestShowtimeID, seat, TestSessionB, time.Minute)
		s.ErrorIs(err, domain.ErrAlreadyLockedByOther)

		s.clock.Advance(10 * time.Second)

		again, err := store.TryClaim(ctx, TestShowtimeID, seat, TestSessionA, time.Minute)
		s.Require().NoError(err)
		s.True(first.ExpiresAt.Equal(again.ExpiresAt), "re-claim must not extend the hold")

		s.Require().NoError(store.Release(ctx, TestShowtimeID, seat, TestSessionB))

		held, err := store.ListHeldBy(ctx, TestShowtimeID, TestSessionA)
		s.Require().NoError(err)
		s.Len(held, 1, "foreign release must be a no-op")

		s.clock.Advance(time.Minute)

		active, err := store.ListActive(ctx, TestShowtimeID, "")
		s.Require().NoError(err)
		s.Empty(active, "lapsed locks are never reported")

		taken, err := store.TryClaim(ctx, TestShowtimeID, seat, TestSessionB, time.Minute)
		s.Require().NoError(err)
		s.Equal(TestSessionB, taken.SessionID)
	})
}

func (s *SeatLockStoreTestSuite) TestReleaseSession() {
	ctx := context.Background()

	s.eachStore(func(store domain.SeatLockStore) {
		for col := 1; col <= 3; col++ {
			_, err := store.TryClaim(ctx, TestShowtimeID, domain.Seat{Row: 2, Col: col}, TestSessionA, time.Minute)
			s.Require().NoError(err)
		}

		_, err := store.TryClaim(ctx, TestShowtimeID, domain.Seat{Row: 2, Col: 4}, TestSessionB, time.Minute)
		s.Require().NoError(err)

		s.Require().NoError(store.ReleaseSession(ctx, TestShowtimeID, TestSessionA))

		active, err := store.ListActive(ctx, TestShowtimeID, "")
		s.Require().NoError(err)
		s.Require().Len(active, 1)
		s.Equal(TestSessionB, active[0].SessionID)
	})
}

func (s *SeatLockStoreTestSuite) TestSweepExpired() {
	ctx := context.Background()

	s.eachStore(func(store domain.SeatLockStore) {
		_, err := store.TryClaim(ctx, TestShowtimeID, domain.Seat{Row: 1, Col: 1}, TestSessionA, time.Minute)
		s.Require().NoError(err)
		_, err = store.TryClaim(ctx, TestOtherShowtimeID, domain.Seat{Row: 1, Col: 1}, TestSessionA, time.Hour)
		s.Require().NoError(err)

		s.clock.Advance(2 * time.Minute)

		swept, err := store.SweepExpired(ctx)
		s.Require().NoError(err)
		s.Equal(int64(1), swept)

		active, err := store.ListActive(ctx, TestOtherShowtimeID, "")
		s.Require().NoError(err)
		s.Len(active, 1)
	})
}

func (s *SeatLockStoreTestSuite) TestConcurrentClaimsHaveOneWinner() {
	ctx := context.Background()
	seat := domain.Seat{Row: 2, Col: 2}

	s.eachStore(func(store domain.SeatLockStore) {
		var (
			wg      sync.WaitGroup
			winners atomic.Int32
		)

		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := store.TryClaim(ctx, TestShowtimeID, seat, fmt.Sprintf("racer-%d", i), time.Minute)
				if err == nil {
					winners.Add(1)
				}
			}()
		}

		wg.Wait()

		s.Equal(int32(1), winners.Load())
	})
}

func (s *SeatLockStoreTestSuite) TestBookedSeatsCannotBeClaimed() {
	ctx := context.Background()
	seat := domain.Seat{Row: 1, Col: 3}

	s.eachStore(func(store domain.SeatLockStore) {
		executeSQLFile(s.T(), s.app.DB, "testdata/bookings_up.sql")

		if marker, ok := store.(domain.BookedSeatMarker); ok {
			s.Require().NoError(marker.MarkBooked(ctx, TestShowtimeID, []domain.Seat{seat}))
		}

		_, err := store.TryClaim(ctx, TestShowtimeID, seat, TestSessionA, time.Minute)
		s.ErrorIs(err, domain.ErrAlreadyBooked)
	})
}

package mocks

import (
	"context"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockSeatLockStore struct {
	mock.Mock
}

func (m *MockSeatLockStore) TryClaim(
	ctx context.Context,
	showtimeID int,
	seat domain.Seat,
	sessionID string,
	ttl time.Duration) (domain.SeatLock, error) {

	args := m.Called(ctx, showtimeID, seat, sessionID, ttl)
	return args.Get(0).(domain.SeatLock), args.Error(1)
}

func (m *MockSeatLockStore) Release(ctx context.Context, showtimeID int, seat domain.Seat, sessionID string) error {
	args := m.Called(ctx, showtimeID, seat, sessionID)
	return args.Error(0)
}

func (m *MockSeatLockStore) ReleaseSession(ctx context.Context, showtimeID int, sessionID string) error {
	args := m.Called(ctx, showtimeID, sessionID)
	return args.Error(0)
}

func (m *MockSeatLockStore) ListActive(
	ctx context.Context,
	showtimeID int,
	excludeSessionID string) ([]domain.SeatLock, error) {

	args := m.Called(ctx, showtimeID, excludeSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatLock), args.Error(1)
}

func (m *MockSeatLockStore) ListHeldBy(ctx context.Context, showtimeID int, sessionID string) ([]domain.SeatLock, error) {
	args := m.Called(ctx, showtimeID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatLock), args.Error(1)
}

func (m *MockSeatLockStore) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var _ domain.SeatLockStore = (*MockSeatLockStore)(nil)

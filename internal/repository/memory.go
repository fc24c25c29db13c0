package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

// MemoryStore keeps the seat locks and bookings of a single process. It
// satisfies both domain.SeatLockStore and domain.BookingRepository.
type MemoryStore struct {
	clock clock.Clock

	mu            sync.Mutex
	locks         map[int]map[domain.Seat]domain.SeatLock
	booked        map[int]map[domain.Seat]int
	bookings      map[int]*domain.Booking
	nextBookingID int

	sectionsMu sync.Mutex
	sections   map[int]*sync.Mutex
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		clock:    clk,
		locks:    make(map[int]map[domain.Seat]domain.SeatLock),
		booked:   make(map[int]map[domain.Seat]int),
		bookings: make(map[int]*domain.Booking),
		sections: make(map[int]*sync.Mutex),
	}
}

func (m *MemoryStore) TryClaim(
	ctx context.Context,
	showtimeID int,
	seat domain.Seat,
	sessionID string,
	ttl time.Duration) (domain.SeatLock, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.booked[showtimeID][seat]; ok {
		return domain.SeatLock{}, domain.ErrAlreadyBooked
	}

	now := m.clock.Now()

	if existing, ok := m.locks[showtimeID][seat]; ok && existing.Active(now) {
		if existing.SessionID != sessionID {
			return domain.SeatLock{}, domain.ErrAlreadyLockedByOther
		}

		return existing, nil
	}

	lock := domain.SeatLock{
		ShowtimeID: showtimeID,
		Seat:       seat,
		SessionID:  sessionID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	if m.locks[showtimeID] == nil {
		m.locks[showtimeID] = make(map[domain.Seat]domain.SeatLock)
	}
	m.locks[showtimeID][seat] = lock

	return lock, nil
}

func (m *MemoryStore) Release(ctx context.Context, showtimeID int, seat domain.Seat, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.locks[showtimeID][seat]; ok && existing.SessionID == sessionID {
		delete(m.locks[showtimeID], seat)
	}

	return nil
}

func (m *MemoryStore) ReleaseSession(ctx context.Context, showtimeID int, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for seat, lock := range m.locks[showtimeID] {
		if lock.SessionID == sessionID {
			delete(m.locks[showtimeID], seat)
		}
	}

	return nil
}

func (m *MemoryStore) ListActive(
	ctx context.Context,
	showtimeID int,
	excludeSessionID string) ([]domain.SeatLock, error) {

	return m.filterLocks(showtimeID, func(lock domain.SeatLock) bool {
		return excludeSessionID == "" || lock.SessionID != excludeSessionID
	}), nil
}

func (m *MemoryStore) ListHeldBy(
	ctx context.Context,
	showtimeID int,
	sessionID string) ([]domain.SeatLock, error) {

	return m.filterLocks(showtimeID, func(lock domain.SeatLock) bool {
		return lock.SessionID == sessionID
	}), nil
}

func (m *MemoryStore) filterLocks(showtimeID int, keep func(domain.SeatLock) bool) []domain.SeatLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	locks := make([]domain.SeatLock, 0, len(m.locks[showtimeID]))

	for _, lock := range m.locks[showtimeID] {
		if lock.Active(now) && keep(lock) {
			locks = append(locks, lock)
		}
	}

	sortLocks(locks)

	return locks
}

func (m *MemoryStore) SweepExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()

	var swept int64
	for _, seats := range m.locks {
		for seat, lock := range seats {
			if !lock.Active(now) {
				delete(seats, seat)
				swept++
			}
		}
	}

	return swept, nil
}

func (m *MemoryStore) WithShowtimeLock(
	ctx context.Context,
	showtimeID int,
	fn func(ctx context.Context) error) error {

	m.sectionsMu.Lock()
	section, ok := m.sections[showtimeID]
	if !ok {
		section = &sync.Mutex{}
		m.sections[showtimeID] = section
	}
	m.sectionsMu.Unlock()

	section.Lock()
	defer section.Unlock()

	return fn(ctx)
}

func (m *MemoryStore) BookedSeats(ctx context.Context, showtimeID int) ([]domain.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seats := make([]domain.Seat, 0, len(m.booked[showtimeID]))
	for seat := range m.booked[showtimeID] {
		seats = append(seats, seat)
	}

	domain.SortSeats(seats)

	return seats, nil
}

func (m *MemoryStore) Create(ctx context.Context, booking *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var conflicts []domain.Seat
	for _, seat := range booking.Seats {
		if _, ok := m.booked[booking.ShowtimeID][seat]; ok {
			conflicts = append(conflicts, seat)
		}
	}

	if len(conflicts) > 0 {
		return domain.NewSeatConflictError(domain.ErrAlreadyBooked, conflicts)
	}

	m.nextBookingID++
	booking.ID = m.nextBookingID

	if m.booked[booking.ShowtimeID] == nil {
		m.booked[booking.ShowtimeID] = make(map[domain.Seat]int)
	}

	for _, seat := range booking.Seats {
		m.booked[booking.ShowtimeID][seat] = booking.ID
	}

	stored := *booking
	stored.Seats = slices.Clone(booking.Seats)
	m.bookings[booking.ID] = &stored

	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	copied := *booking
	copied.Seats = slices.Clone(booking.Seats)

	return &copied, nil
}

func sortLocks(locks []domain.SeatLock) {
	slices.SortFunc(locks, func(a, b domain.SeatLock) int {
		if a.Seat.Row != b.Seat.Row {
			return a.Seat.Row - b.Seat.Row
		}
		return a.Seat.Col - b.Seat.Col
	})
}

type MemoryShowtimeRepository struct {
	mu        sync.RWMutex
	showtimes map[int]domain.Showtime
}

func NewMemoryShowtimeRepository(showtimes ...domain.Showtime) *MemoryShowtimeRepository {
	repo := &MemoryShowtimeRepository{
		showtimes: make(map[int]domain.Showtime, len(showtimes)),
	}

	for _, showtime := range showtimes {
		repo.showtimes[showtime.ID] = showtime
	}

	return repo
}

func (m *MemoryShowtimeRepository) Add(showtime domain.Showtime) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.showtimes[showtime.ID] = showtime
}

func (m *MemoryShowtimeRepository) GetByID(ctx context.Context, id int) (*domain.Showtime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	showtime, ok := m.showtimes[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &showtime, nil
}

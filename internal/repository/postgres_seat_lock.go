package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

// maxClaimAttempts bounds the retries of a claim whose conflicting lock
// vanished between the upsert and the follow-up read.
const maxClaimAttempts = 3

type PostgresSeatLockStore struct {
	db    *pgxpool.Pool
	clock clock.Clock
}

func NewPostgresSeatLockStore(db *pgxpool.Pool, clk clock.Clock) *PostgresSeatLockStore {
	return &PostgresSeatLockStore{
		db:    db,
		clock: clk,
	}
}

func (p *PostgresSeatLockStore) TryClaim(
	ctx context.Context,
	showtimeID int,
	seat domain.Seat,
	sessionID string,
	ttl time.Duration) (domain.SeatLock, error) {

	// The upsert only overwrites a row whose lock has lapsed, so concurrent
	// claims on one seat serialize on the row and exactly one of them wins.
	query := `
		INSERT INTO seat_locks (showtime_id, seat_row, seat_col, session_id, acquired_at, expires_at)
		SELECT $1::int, $2::int, $3::int, $4::text, $5::timestamptz, $6::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM booking_seats
			WHERE showtime_id = $1 AND seat_row = $2 AND seat_col = $3
		)
		ON CONFLICT (showtime_id, seat_row, seat_col) DO UPDATE
		SET session_id = EXCLUDED.session_id,
			acquired_at = EXCLUDED.acquired_at,
			expires_at = EXCLUDED.expires_at
		WHERE seat_locks.expires_at <= EXCLUDED.acquired_at
		RETURNING acquired_at, expires_at
	`

	for range maxClaimAttempts {
		now := p.clock.Now().UTC()

		lock := domain.SeatLock{
			ShowtimeID: showtimeID,
			Seat:       seat,
			SessionID:  sessionID,
		}

		err := conn(ctx, p.db).
			QueryRow(ctx, query, showtimeID, seat.Row, seat.Col, sessionID, now, now.Add(ttl)).
			Scan(&lock.AcquiredAt, &lock.ExpiresAt)
		if err == nil {
			return lock, nil
		}

		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.SeatLock{}, fmt.Errorf("failed to claim seat %s: %w", seat, err)
		}

		existing, retry, err := p.classifyConflict(ctx, showtimeID, seat, sessionID, now)
		if err != nil {
			return domain.SeatLock{}, err
		}

		if !retry {
			return existing, nil
		}
	}

	return domain.SeatLock{}, domain.ErrAlreadyLockedByOther
}

// classifyConflict explains why the claim upsert returned no row. It
// returns retry=true when the seat turned out to be free after all.
func (p *PostgresSeatLockStore) classifyConflict(
	ctx context.Context,
	showtimeID int,
	seat domain.Seat,
	sessionID string,
	now time.Time) (domain.SeatLock, bool, error) {

	query := `
		SELECT
			EXISTS (
				SELECT 1 FROM booking_seats
				WHERE showtime_id = $1 AND seat_row = $2 AND seat_col = $3
			),
			l.session_id,
			l.acquired_at,
			l.expires_at
		FROM (SELECT 1) AS dummy
		LEFT JOIN seat_locks l
			ON l.showtime_id = $1 AND l.seat_row = $2 AND l.seat_col = $3
	`

	var (
		booked     bool
		holder     *string
		acquiredAt *time.Time
		expiresAt  *time.Time
	)

	err := conn(ctx, p.db).
		QueryRow(ctx, query, showtimeID, seat.Row, seat.Col).
		Scan(&booked, &holder, &acquiredAt, &expiresAt)
	if err != nil {
		return domain.SeatLock{}, false, fmt.Errorf("failed to read lock of seat %s: %w", seat, err)
	}

	if booked {
		return domain.SeatLock{}, false, domain.ErrAlreadyBooked
	}

	if holder == nil || !now.Before(*expiresAt) {
		return domain.SeatLock{}, true, nil
	}

	if *holder != sessionID {
		return domain.SeatLock{}, false, domain.ErrAlreadyLockedByOther
	}

	return domain.SeatLock{
		ShowtimeID: showtimeID,
		Seat:       seat,
		SessionID:  sessionID,
		AcquiredAt: *acquiredAt,
		ExpiresAt:  *expiresAt,
	}, false, nil
}

func (p *PostgresSeatLockStore) Release(ctx context.Context, showtimeID int, seat domain.Seat, sessionID string) error {
	query := `
		DELETE FROM seat_locks
		WHERE showtime_id = $1 AND seat_row = $2 AND seat_col = $3 AND session_id = $4
	`

	_, err := conn(ctx, p.db).Exec(ctx, query, showtimeID, seat.Row, seat.Col, sessionID)
	if err != nil {
		return fmt.Errorf("failed to release seat %s: %w", seat, err)
	}

	return nil
}

func (p *PostgresSeatLockStore) ReleaseSession(ctx context.Context, showtimeID int, sessionID string) error {
	query := `
		DELETE FROM seat_locks
		WHERE showtime_id = $1 AND session_id = $2
	`

	_, err := conn(ctx, p.db).Exec(ctx, query, showtimeID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to release seats of session: %w", err)
	}

	return nil
}

func (p *PostgresSeatLockStore) ListActive(
	ctx context.Context,
	showtimeID int,
	excludeSessionID string) ([]domain.SeatLock, error) {

	query := `
		SELECT showtime_id, seat_row, seat_col, session_id, acquired_at, expires_at
		FROM seat_locks
		WHERE showtime_id = $1
			AND expires_at > $2
			AND ($3::text = '' OR session_id <> $3::text)
		ORDER BY seat_row, seat_col
	`

	return p.queryLocks(ctx, query, showtimeID, p.clock.Now().UTC(), excludeSessionID)
}

func (p *PostgresSeatLockStore) ListHeldBy(
	ctx context.Context,
	showtimeID int,
	sessionID string) ([]domain.SeatLock, error) {

	query := `
		SELECT showtime_id, seat_row, seat_col, session_id, acquired_at, expires_at
		FROM seat_locks
		WHERE showtime_id = $1
			AND expires_at > $2
			AND session_id = $3
		ORDER BY seat_row, seat_col
	`

	return p.queryLocks(ctx, query, showtimeID, p.clock.Now().UTC(), sessionID)
}

func (p *PostgresSeatLockStore) queryLocks(ctx context.Context, query string, args ...any) ([]domain.SeatLock, error) {
	rows, err := conn(ctx, p.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locks := make([]domain.SeatLock, 0)

	for rows.Next() {
		var lock domain.SeatLock

		err = rows.Scan(
			&lock.ShowtimeID,
			&lock.Seat.Row,
			&lock.Seat.Col,
			&lock.SessionID,
			&lock.AcquiredAt,
			&lock.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}

		locks = append(locks, lock)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return locks, nil
}

func (p *PostgresSeatLockStore) SweepExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM seat_locks WHERE expires_at <= $1`

	tag, err := conn(ctx, p.db).Exec(ctx, query, p.clock.Now().UTC())
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

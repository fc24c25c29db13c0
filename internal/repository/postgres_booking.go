package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

// bookingLockClass namespaces the advisory locks taken per showtime.
const bookingLockClass = 7301

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) WithShowtimeLock(
	ctx context.Context,
	showtimeID int,
	fn func(ctx context.Context) error) error {

	return runInTx(ctx, p.db, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1::int, $2::int)`, bookingLockClass, showtimeID)
		if err != nil {
			return fmt.Errorf("failed to acquire showtime lock: %w", err)
		}

		return fn(ctx)
	})
}

func (p *PostgresBookingRepository) BookedSeats(ctx context.Context, showtimeID int) ([]domain.Seat, error) {
	query := `
		SELECT seat_row, seat_col
		FROM booking_seats
		WHERE showtime_id = $1
		ORDER BY seat_row, seat_col
	`

	rows, err := conn(ctx, p.db).Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var seat domain.Seat

		err = rows.Scan(&seat.Row, &seat.Col)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	err := runInTx(ctx, p.db, func(ctx context.Context, tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (
				reference, showtime_id, session_id, customer_name,
				customer_email, customer_phone, total_price, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`

		err := tx.QueryRow(
			ctx,
			query,
			booking.Reference,
			booking.ShowtimeID,
			booking.SessionID,
			booking.Customer.Name,
			booking.Customer.Email,
			booking.Customer.Phone,
			booking.TotalPrice,
			booking.CreatedAt).Scan(&booking.ID)
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(booking.Seats))
		for _, seat := range booking.Seats {
			rows = append(rows, []any{
				booking.ID,
				booking.ShowtimeID,
				seat.Row,
				seat.Col,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "showtime_id", "seat_row", "seat_col"},
			pgx.CopyFromRows(rows),
		)

		return err
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return domain.NewSeatConflictError(domain.ErrAlreadyBooked, booking.Seats)
	}

	return err
}

func (p *PostgresBookingRepository) GetByID(ctx context.Context, id int) (*domain.Booking, error) {
	query := `
		SELECT id, reference, showtime_id, session_id, customer_name,
			customer_email, customer_phone, total_price, created_at
		FROM bookings
		WHERE id = $1
	`

	var booking domain.Booking

	err := conn(ctx, p.db).QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.Reference,
		&booking.ShowtimeID,
		&booking.SessionID,
		&booking.Customer.Name,
		&booking.Customer.Email,
		&booking.Customer.Phone,
		&booking.TotalPrice,
		&booking.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	seats, err := p.retrieveBookingSeats(ctx, id)
	if err != nil {
		return nil, err
	}

	booking.Seats = seats

	return &booking, nil
}

func (p *PostgresBookingRepository) retrieveBookingSeats(ctx context.Context, bookingID int) ([]domain.Seat, error) {
	query := `
		SELECT seat_row, seat_col
		FROM booking_seats
		WHERE booking_id = $1
		ORDER BY seat_row, seat_col
	`

	rows, err := conn(ctx, p.db).Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var seat domain.Seat

		err := rows.Scan(&seat.Row, &seat.Col)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

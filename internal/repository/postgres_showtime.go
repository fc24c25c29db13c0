package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

type PostgresShowtimeRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowtimeRepository(db *pgxpool.Pool) *PostgresShowtimeRepository {
	return &PostgresShowtimeRepository{
		db: db,
	}
}

func (p *PostgresShowtimeRepository) GetByID(ctx context.Context, id int) (*domain.Showtime, error) {
	query := `
		SELECT
			s.id,
			r.id,
			r.name,
			m.title,
			s.start_time,
			s.price,
			r.middle_seat_surcharge,
			r.layout
		FROM showtimes s
		INNER JOIN movies m ON m.id = s.movie_id
		INNER JOIN rooms r ON r.id = s.room_id
		WHERE s.id = $1
	`

	var (
		showtime   domain.Showtime
		layoutJson json.RawMessage
	)

	err := conn(ctx, p.db).QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.RoomID,
		&showtime.RoomName,
		&showtime.MovieTitle,
		&showtime.StartTime,
		&showtime.Price,
		&showtime.MiddleSeatSurcharge,
		&layoutJson,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	if len(layoutJson) > 0 {
		if err := json.Unmarshal(layoutJson, &showtime.Layout); err != nil {
			return nil, fmt.Errorf("invalid layout of room %d: %w", showtime.RoomID, err)
		}
	}

	return &showtime, nil
}

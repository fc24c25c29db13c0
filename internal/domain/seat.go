package domain

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Seat is the canonical seat coordinate within a showtime's room.
// Row and Col are both 1-based; row 1 is displayed as "A".
type Seat struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (s Seat) String() string {
	return fmt.Sprintf("%s%d", RowLetter(s.Row), s.Col)
}

// RowLetter translates a 1-based row index into its display form:
// 1 -> "A", 26 -> "Z", 27 -> "AA".
func RowLetter(row int) string {
	if row < 1 {
		return ""
	}

	var letters []byte
	for row > 0 {
		row--
		letters = append(letters, byte('A'+row%26))
		row /= 26
	}

	slices.Reverse(letters)

	return string(letters)
}

// ParseRow translates a display row ("A", "b", "AA") or a 1-based numeric
// row ("3") into the canonical row index.
func ParseRow(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty row")
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("row must be greater than zero: %d", n)
		}
		return n, nil
	}

	row := 0
	for _, ch := range strings.ToUpper(s) {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid row %q", s)
		}
		row = row*26 + int(ch-'A'+1)
	}

	return row, nil
}

// ParseSeat reads a seat label such as "B12" or "aa3".
func ParseSeat(label string) (Seat, error) {
	label = strings.TrimSpace(label)

	split := strings.IndexFunc(label, func(r rune) bool { return r >= '0' && r <= '9' })
	if split < 1 {
		return Seat{}, fmt.Errorf("invalid seat %q", label)
	}

	row, err := ParseRow(label[:split])
	if err != nil {
		return Seat{}, fmt.Errorf("invalid seat %q: %w", label, err)
	}

	col, err := strconv.Atoi(label[split:])
	if err != nil || col < 1 {
		return Seat{}, fmt.Errorf("invalid seat %q", label)
	}

	return Seat{Row: row, Col: col}, nil
}

// UniqueSeats drops duplicate coordinates, keeping the first occurrence.
func UniqueSeats(seats []Seat) []Seat {
	seen := make(map[Seat]struct{}, len(seats))
	unique := make([]Seat, 0, len(seats))

	for _, s := range seats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}

	return unique
}

// SortSeats orders seats by row, then column.
func SortSeats(seats []Seat) {
	slices.SortFunc(seats, func(a, b Seat) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})
}

// RoomLayout is the seating configuration of a room, keyed by row letter.
type RoomLayout struct {
	RowLetters  []string         `json:"rowLetters"`
	SeatsPerRow map[string]int   `json:"seatsPerRow"`
	MiddleSeats map[string][]int `json:"middleSeats"`
}

// Contains reports whether the seat exists in the layout.
func (l RoomLayout) Contains(seat Seat) bool {
	if seat.Row < 1 || seat.Col < 1 {
		return false
	}

	letter := RowLetter(seat.Row)
	if !slices.Contains(l.RowLetters, letter) {
		return false
	}

	return seat.Col <= l.SeatsPerRow[letter]
}

// IsMiddle reports whether the seat is flagged as a middle (VIP) seat.
func (l RoomLayout) IsMiddle(seat Seat) bool {
	return slices.Contains(l.MiddleSeats[RowLetter(seat.Row)], seat.Col)
}

// Seats enumerates every seat in the layout in row, column order.
func (l RoomLayout) Seats() []Seat {
	var seats []Seat

	for _, letter := range l.RowLetters {
		row, err := ParseRow(letter)
		if err != nil {
			continue
		}

		for col := 1; col <= l.SeatsPerRow[letter]; col++ {
			seats = append(seats, Seat{Row: row, Col: col})
		}
	}

	SortSeats(seats)

	return seats
}

type Showtime struct {
	ID                  int
	RoomID              int
	RoomName            string
	MovieTitle          string
	StartTime           time.Time
	Price               decimal.Decimal
	MiddleSeatSurcharge decimal.Decimal
	Layout              RoomLayout
}

// SeatPrice is the base price plus the surcharge for middle seats.
func (s *Showtime) SeatPrice(seat Seat) decimal.Decimal {
	if s.Layout.IsMiddle(seat) {
		return s.Price.Add(s.MiddleSeatSurcharge)
	}

	return s.Price
}

type ShowtimeRepository interface {
	GetByID(ctx context.Context, id int) (*Showtime, error)
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrSeatOutOfRange       = errors.New("seat is not part of the room layout")
	ErrAlreadyLockedByOther = errors.New("seat is being held by another session")
	ErrAlreadyBooked        = errors.New("seat is already booked")
	ErrSeatsNoLongerHeld    = errors.New("your hold on the selected seats has expired, please select your seats again")
	ErrMaxSeatsExceeded     = errors.New("too many seats held by this session")
	ErrEmptySelection       = errors.New("at least one seat must be selected")
)

const (
	CodeSeatOutOfRange       = "SEAT_OUT_OF_RANGE"
	CodeAlreadyLockedByOther = "ALREADY_LOCKED_BY_OTHER"
	CodeAlreadyBooked        = "ALREADY_BOOKED"
	CodeSeatsNoLongerHeld    = "SEATS_NO_LONGER_HELD"
	CodeMaxSeatsExceeded     = "MAX_SEATS_EXCEEDED"
)

// SeatConflictError reports the seats that made a finalize attempt fail.
type SeatConflictError struct {
	Code  string
	Seats []Seat
	Err   error
}

func NewSeatConflictError(err error, seats []Seat) *SeatConflictError {
	return &SeatConflictError{
		Code:  ErrorCode(err),
		Seats: seats,
		Err:   err,
	}
}

func (e *SeatConflictError) Error() string {
	labels := make([]string, len(e.Seats))
	for i, s := range e.Seats {
		labels[i] = s.String()
	}

	return fmt.Sprintf("%s: %s", e.Err, strings.Join(labels, ", "))
}

func (e *SeatConflictError) Unwrap() error {
	return e.Err
}

// ErrorCode maps a seat error onto its wire code. Unknown errors map to "".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSeatOutOfRange):
		return CodeSeatOutOfRange
	case errors.Is(err, ErrAlreadyLockedByOther):
		return CodeAlreadyLockedByOther
	case errors.Is(err, ErrAlreadyBooked):
		return CodeAlreadyBooked
	case errors.Is(err, ErrSeatsNoLongerHeld):
		return CodeSeatsNoLongerHeld
	case errors.Is(err, ErrMaxSeatsExceeded):
		return CodeMaxSeatsExceeded
	default:
		return ""
	}
}

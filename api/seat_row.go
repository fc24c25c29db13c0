package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/metinatakli/cinex-booking/internal/domain"
)

// SeatRow is a 1-based row index. It is read from either a row letter ("A",
// "aa") or a row number (3, "3") and always written as letters. A string that
// is not a valid row decodes to zero so that validation can report it.
type SeatRow int

func (r SeatRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(domain.RowLetter(int(r)))
}

func (r *SeatRow) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		row, err := domain.ParseRow(s)
		if err != nil {
			row = 0
		}

		*r = SeatRow(row)

		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("seat row must be a letter or a number: %w", err)
	}

	*r = SeatRow(max(n, 0))

	return nil
}

func (r SeatRow) String() string {
	return domain.RowLetter(int(r))
}

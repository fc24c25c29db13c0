package main

import (
	"testing"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/holdtimer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeats(t *testing.T) {
	seats, err := parseSeats("A1, b2,,C10")
	require.NoError(t, err)
	assert.Equal(t, []domain.Seat{{Row: 1, Col: 1}, {Row: 2, Col: 2}, {Row: 3, Col: 10}}, seats)

	_, err = parseSeats(" , ")
	assert.ErrorIs(t, err, holdtimer.ErrNothingSelected)

	_, err = parseSeats("A1,7")
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "A1,B3", labels([]domain.Seat{{Row: 1, Col: 1}, {Row: 2, Col: 3}}))
	assert.Empty(t, labels(nil))
}

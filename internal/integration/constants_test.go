package integration_test

import "time"

const (
	// Seeded by testdata/showtimes_up.sql
	TestShowtimeID      = 1
	TestOtherShowtimeID = 2
	TestMovieTitle      = "Metropolis"
	TestRoomName        = "Hall 1"

	TestSessionA = "session-a"
	TestSessionB = "session-b"

	TestCustomerName  = "Ada Lovelace"
	TestCustomerEmail = "ada@example.com"

	TestMaxSeats = 4
	TestHoldTTL  = 5 * time.Minute
)

var TestStartTime = time.Date(2030, 5, 17, 20, 0, 0, 0, time.UTC)

// Command holdsim plays one session against a running booking server: it
// selects seats, keeps the hold countdown alive while reporting seats taken
// by others, and either books or lets the hold expire.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/cinex-booking/internal/client"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/holdtimer"
)

type options struct {
	addr       string
	showtimeID int
	seats      string
	sessionID  string
	ttl        time.Duration
	poll       time.Duration
	checkout   time.Duration
	name       string
	email      string
}

func main() {
	var opts options

	flag.StringVar(&opts.addr, "addr", "http://localhost:3000", "Booking API base URL")
	flag.IntVar(&opts.showtimeID, "showtime", 1, "Showtime ID")
	flag.StringVar(&opts.seats, "seats", "A1", "Comma separated seat labels, e.g. A1,A2")
	flag.StringVar(&opts.sessionID, "session", "", "Session ID (random when empty)")
	flag.DurationVar(&opts.ttl, "ttl", holdtimer.DefaultTTL, "Hold countdown")
	flag.DurationVar(&opts.poll, "poll", holdtimer.DefaultPollInterval, "Conflict poll interval")
	flag.DurationVar(&opts.checkout, "checkout-after", 0, "Book the held seats after this delay (0 keeps holding)")
	flag.StringVar(&opts.name, "name", "Guest", "Customer name used for checkout")
	flag.StringVar(&opts.email, "email", "guest@example.com", "Customer email used for checkout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	err := run(opts, logger)
	if err != nil {
		logger.Error("hold simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	seats, err := parseSeats(opts.seats)
	if err != nil {
		return err
	}

	if opts.sessionID == "" {
		opts.sessionID = uuid.NewString()
	}

	logger = logger.With("session_id", opts.sessionID, "showtime_id", opts.showtimeID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	expired := make(chan []domain.Seat, 1)

	hold := holdtimer.New(
		client.New(opts.addr, opts.sessionID),
		opts.showtimeID,
		holdtimer.WithTTL(opts.ttl),
		holdtimer.WithPollInterval(opts.poll),
		holdtimer.WithLogger(logger),
		holdtimer.OnConflicts(func(locks []domain.SeatLock) {
			taken := make([]string, len(locks))
			for i, l := range locks {
				taken[i] = l.Seat.String()
			}
			logger.Info("seats held by others", "seats", strings.Join(taken, ","))
		}),
		holdtimer.OnExpired(func(released []domain.Seat) {
			expired <- released
		}),
	)

	failed, err := hold.Select(ctx, seats)
	if err != nil {
		return fmt.Errorf("failed to select seats: %w", err)
	}

	for _, f := range failed {
		logger.Warn("seat not locked", "seat", f.Seat.String(), "reason", f.Reason)
	}

	if hold.State() != holdtimer.Holding {
		return errors.New("no seat could be locked")
	}

	logger.Info("holding seats", "seats", labels(hold.Selected()), "remaining", hold.Remaining().Round(time.Second))

	runErr := make(chan error, 1)
	go func() {
		runErr <- hold.Run(ctx)
	}()

	var checkout <-chan time.Time
	if opts.checkout > 0 {
		checkout = time.After(opts.checkout)
	}

	select {
	case <-ctx.Done():
		logger.Info("interrupted, releasing seats")
	case released := <-expired:
		logger.Info("hold time expired", "released", labels(released))
	case <-checkout:
		booking, err := hold.Checkout(ctx, domain.Customer{Name: opts.name, Email: opts.email})
		if err != nil {
			stop()
			<-runErr
			return fmt.Errorf("checkout failed: %w", err)
		}

		logger.Info("booked",
			"booking_id", booking.ID,
			"reference", booking.Reference,
			"seats", labels(booking.Seats),
			"total", booking.TotalPrice.StringFixed(2))
	}

	stop()

	return <-runErr
}

func parseSeats(list string) ([]domain.Seat, error) {
	var seats []domain.Seat

	for label := range strings.SplitSeq(list, ",") {
		if strings.TrimSpace(label) == "" {
			continue
		}

		seat, err := domain.ParseSeat(label)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if len(seats) == 0 {
		return nil, holdtimer.ErrNothingSelected
	}

	return seats, nil
}

func labels(seats []domain.Seat) string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = s.String()
	}

	return strings.Join(out, ",")
}

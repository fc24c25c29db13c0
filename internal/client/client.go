// Package client talks to the booking HTTP API on behalf of one session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/holdtimer"
	"github.com/metinatakli/cinex-booking/internal/mapper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

var _ holdtimer.LockClient = (*Client)(nil)

// APIError is a non-success reply the client has no domain error for.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("booking api: status %d: %s", e.StatusCode, e.Message)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// Client sends every request with its session id so that locks and
// bookings belong to the same caller.
type Client struct {
	baseURL   string
	sessionID string
	hc        *http.Client
}

func New(baseURL, sessionID string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: sessionID,
		hc: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) LockSeats(ctx context.Context, showtimeID int, seats []domain.Seat) (domain.ClaimResult, error) {
	body := api.LockSeatsRequest{
		SessionId: &c.sessionID,
		Seats:     mapper.ToAPISeats(seats),
	}

	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/showtimes/%d/seat-locks", showtimeID), nil, body)
	if err != nil {
		return domain.ClaimResult{}, err
	}
	defer resp.Body.Close()

	// A claim where every seat failed comes back as 409 with the same body.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusConflict {
		return domain.ClaimResult{}, readError(resp)
	}

	var reply api.LockSeatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return domain.ClaimResult{}, fmt.Errorf("failed to decode lock response: %w", err)
	}

	result := domain.ClaimResult{
		LockedSeats: mapper.ToDomainSeats(reply.LockedSeats),
		FailedSeats: mapper.ToDomainFailedSeats(reply.FailedSeats),
	}

	if reply.HoldExpiresAt != nil {
		result.HoldExpiresAt = *reply.HoldExpiresAt
	}

	return result, nil
}

func (c *Client) UnlockSeats(ctx context.Context, showtimeID int, seats []domain.Seat) error {
	body := api.UnlockSeatsRequest{
		SessionId: &c.sessionID,
		Seats:     mapper.ToAPISeats(seats),
	}

	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/showtimes/%d/seat-locks", showtimeID), nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	return nil
}

// ConflictingLocks returns the active locks of every other session.
func (c *Client) ConflictingLocks(ctx context.Context, showtimeID int) ([]domain.SeatLock, error) {
	query := url.Values{"excludeSessionId": []string{c.sessionID}}

	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/showtimes/%d/seat-locks", showtimeID), query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var reply api.SeatLocksResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode seat locks: %w", err)
	}

	return mapper.ToDomainSeatLocks(showtimeID, reply.Locks), nil
}

// Book finalizes the seats. A rejected booking is returned as a
// *domain.SeatConflictError carrying the seats to drop.
func (c *Client) Book(
	ctx context.Context,
	showtimeID int,
	seats []domain.Seat,
	customer domain.Customer) (*domain.Booking, error) {

	body := api.CreateBookingRequest{
		SessionId: &c.sessionID,
		Seats:     mapper.ToAPISeats(seats),
		Customer:  mapper.ToAPICustomer(customer),
	}

	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/showtimes/%d/bookings", showtimeID), nil, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var booking api.Booking
		if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}

		return mapper.ToDomainBooking(booking), nil
	case http.StatusConflict:
		var conflict api.BookingConflictResponse
		if err := json.NewDecoder(resp.Body).Decode(&conflict); err != nil {
			return nil, fmt.Errorf("failed to decode booking conflict: %w", err)
		}

		return nil, domain.NewSeatConflictError(conflictError(string(conflict.Code)), mapper.ToDomainSeats(conflict.SeatsFailed))
	default:
		return nil, readError(resp)
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	return resp, nil
}

// readError turns an error reply into a domain error where one exists.
func readError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var reply struct {
		Message          string               `json:"message"`
		ValidationErrors []api.ValidationError `json:"validationErrors"`
	}

	if err := json.Unmarshal(data, &reply); err != nil || reply.Message == "" {
		reply.Message = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return domain.ErrRecordNotFound
	case http.StatusUnprocessableEntity:
		for _, v := range reply.ValidationErrors {
			if v.Issue == domain.CodeMaxSeatsExceeded {
				return domain.ErrMaxSeatsExceeded
			}
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    reply.Message,
	}
}

func conflictError(code string) error {
	switch code {
	case domain.CodeSeatOutOfRange:
		return domain.ErrSeatOutOfRange
	case domain.CodeAlreadyBooked:
		return domain.ErrAlreadyBooked
	case domain.CodeSeatsNoLongerHeld:
		return domain.ErrSeatsNoLongerHeld
	default:
		return errors.New(strings.ToLower(code))
	}
}

// Package events publishes booking events to RabbitMQ for downstream
// consumers such as ticketing and analytics.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/cinex-booking/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

const BookingConfirmedQueue = "booking.confirmed"

type BookingSeat struct {
	Row string `json:"row"`
	Col int    `json:"col"`
}

type BookingConfirmedEvent struct {
	BookingID     int             `json:"bookingId"`
	Reference     uuid.UUID       `json:"reference"`
	ShowtimeID    int             `json:"showtimeId"`
	MovieTitle    string          `json:"movieTitle"`
	RoomName      string          `json:"roomName"`
	StartTime     time.Time       `json:"startTime"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	Seats         []BookingSeat   `json:"seats"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func NewBookingConfirmedEvent(booking *domain.Booking, showtime *domain.Showtime) BookingConfirmedEvent {
	seats := make([]BookingSeat, len(booking.Seats))
	for i, seat := range booking.Seats {
		seats[i] = BookingSeat{
			Row: domain.RowLetter(seat.Row),
			Col: seat.Col,
		}
	}

	return BookingConfirmedEvent{
		BookingID:     booking.ID,
		Reference:     booking.Reference,
		ShowtimeID:    booking.ShowtimeID,
		MovieTitle:    showtime.MovieTitle,
		RoomName:      showtime.RoomName,
		StartTime:     showtime.StartTime,
		CustomerName:  booking.Customer.Name,
		CustomerEmail: booking.Customer.Email,
		Seats:         seats,
		TotalPrice:    booking.TotalPrice,
		CreatedAt:     booking.CreatedAt,
	}
}

// AMQPPublisher sends persistent messages to a durable queue over a single
// broker connection.
type AMQPPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}

	p := &AMQPPublisher{
		conn:  conn,
		queue: BookingConfirmedQueue,
	}

	err = p.openChannel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return p, nil
}

func (p *AMQPPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open broker channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}

	p.channel = ch

	return nil
}

func (p *AMQPPublisher) PublishBookingConfirmed(
	ctx context.Context,
	booking *domain.Booking,
	showtime *domain.Showtime) error {

	body, err := json.Marshal(NewBookingConfirmedEvent(booking, showtime))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// A channel is closed by the broker after any channel level error.
	if p.channel == nil || p.channel.IsClosed() {
		err = p.openChannel()
		if err != nil {
			return err
		}
	}

	return p.channel.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    booking.Reference.String(),
			Timestamp:    booking.CreatedAt.UTC(),
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}

	return p.conn.Close()
}

// Noop discards events. It is used when no broker is configured.
type Noop struct{}

func (Noop) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking, showtime *domain.Showtime) error {
	return nil
}

// Package notify fans seat lock changes out to seat map subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/redis/go-redis/v9"
)

const subscriberBuffer = 16

// Local delivers events to subscribers of the same process. Slow
// subscribers miss events rather than block publishers.
type Local struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]map[int]chan domain.SeatLockEvent
}

func NewLocal() *Local {
	return &Local{
		subs: make(map[int]map[int]chan domain.SeatLockEvent),
	}
}

func (l *Local) Publish(ctx context.Context, event domain.SeatLockEvent) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, ch := range l.subs[event.ShowtimeID] {
		select {
		case ch <- event:
		default:
		}
	}

	return nil
}

func (l *Local) Subscribe(ctx context.Context, showtimeID int) (<-chan domain.SeatLockEvent, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID

	ch := make(chan domain.SeatLockEvent, subscriberBuffer)

	if l.subs[showtimeID] == nil {
		l.subs[showtimeID] = make(map[int]chan domain.SeatLockEvent)
	}
	l.subs[showtimeID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()

			delete(l.subs[showtimeID], id)
			if len(l.subs[showtimeID]) == 0 {
				delete(l.subs, showtimeID)
			}

			close(ch)
		})
	}

	return ch, cancel, nil
}

// Redis publishes events on a per-showtime channel so every API instance
// sharing the Redis server can push them to its own subscribers.
type Redis struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedis(client redis.UniversalClient, logger *slog.Logger) *Redis {
	return &Redis{
		client: client,
		logger: logger,
	}
}

func (r *Redis) Publish(ctx context.Context, event domain.SeatLockEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, channelName(event.ShowtimeID), payload).Err()
}

func (r *Redis) Subscribe(ctx context.Context, showtimeID int) (<-chan domain.SeatLockEvent, func(), error) {
	pubsub := r.client.Subscribe(ctx, channelName(showtimeID))

	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is lost.
	_, err := pubsub.Receive(ctx)
	if err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to seat lock events: %w", err)
	}

	events := make(chan domain.SeatLockEvent, subscriberBuffer)
	done := make(chan struct{})

	go func() {
		defer close(events)

		messages := pubsub.Channel()

		for {
			select {
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var event domain.SeatLockEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					r.logger.Warn("dropping malformed seat lock event", "channel", msg.Channel, "error", err)
					continue
				}

				select {
				case events <- event:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}

	return events, cancel, nil
}

func channelName(showtimeID int) string {
	return fmt.Sprintf("seat_lock_events:%d", showtimeID)
}

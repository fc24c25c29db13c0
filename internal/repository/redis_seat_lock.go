package repository

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/metinatakli/cinex-booking/internal/clock"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	errSeatLocked = "seat already locked"
	errSeatBooked = "seat already booked"
)

// Lock values are "<session>|<acquired ms>|<expires ms>". The key TTL only
// reclaims memory; the expiry in the value decides whether a lock is active.
//
// Every key of a showtime carries the showtime id as its hash tag, so the
// scripts touch a single slot and also run on Redis Cluster.
var claimSeatScript = redis.NewScript(`
	-- KEYS = [lock key, index set, booked set]
	-- ARGV = [sessionID, member, now ms, ttl ms]

	if redis.call("SISMEMBER", KEYS[3], ARGV[2]) == 1 then
		return {err = "seat already booked"}
	end

	local current = redis.call("GET", KEYS[1])
	if current then
		local holder, acquired, expires = string.match(current, "^(.*)|(%d+)|(%d+)$")
		if holder and tonumber(expires) > tonumber(ARGV[3]) then
			if holder == ARGV[1] then
				return {acquired, expires}
			end
			return {err = "seat already locked"}
		end
	end

	local expires = tostring(tonumber(ARGV[3]) + tonumber(ARGV[4]))
	redis.call("SET", KEYS[1], ARGV[1] .. "|" .. ARGV[3] .. "|" .. expires, "PX", ARGV[4])
	redis.call("SADD", KEYS[2], ARGV[2])

	return {ARGV[3], expires}
`)

var releaseSeatScript = redis.NewScript(`
	-- KEYS = [lock key, index set]
	-- ARGV = [sessionID, member]

	local current = redis.call("GET", KEYS[1])
	if not current then
		redis.call("SREM", KEYS[2], ARGV[2])
		return 0
	end

	local holder = string.match(current, "^(.*)|%d+|%d+$")
	if holder ~= ARGV[1] then
		return 0
	end

	redis.call("DEL", KEYS[1])
	redis.call("SREM", KEYS[2], ARGV[2])

	return 1
`)

// listSeatLocksScript drops index entries whose lock is gone or lapsed and
// returns the number pruned followed by member, value pairs of live locks.
var listSeatLocksScript = redis.NewScript(`
	-- KEYS = [index set]
	-- ARGV = [lock key prefix, now ms]

	local setKey = KEYS[1]
	local lockPrefix = ARGV[1]
	local now = tonumber(ARGV[2])
	local cursor = "0"
	local batchSize = 100
	local expired = {}
	local result = {0}

	repeat
		local scan = redis.call("SSCAN", setKey, cursor, "COUNT", batchSize)
		cursor = scan[1]

		for _, member in ipairs(scan[2]) do
			local lockKey = lockPrefix .. member
			local value = redis.call("GET", lockKey)
			local expires = nil
			if value then
				expires = tonumber(string.match(value, "|(%d+)$"))
			end

			if expires and expires > now then
				table.insert(result, member)
				table.insert(result, value)
			else
				if value then
					redis.call("DEL", lockKey)
				end
				table.insert(expired, member)
			end
		end
	until cursor == "0"

	if #expired > 0 then
		redis.call("SREM", setKey, unpack(expired))
	end

	result[1] = #expired

	return result
`)

type RedisSeatLockStore struct {
	redis redis.UniversalClient
	clock clock.Clock
}

func NewRedisSeatLockStore(client redis.UniversalClient, clk clock.Clock) *RedisSeatLockStore {
	return &RedisSeatLockStore{
		redis: client,
		clock: clk,
	}
}

func (r *RedisSeatLockStore) TryClaim(
	ctx context.Context,
	showtimeID int,
	seat domain.Seat,
	sessionID string,
	ttl time.Duration) (domain.SeatLock, error) {

	keys := []string{
		seatLockKey(showtimeID, seat),
		seatSetKey(showtimeID),
		bookedSetKey(showtimeID),
	}

	now := r.clock.Now().UnixMilli()

	values, err := claimSeatScript.Run(ctx, r.redis, keys, sessionID, seatMember(seat), now, ttl.Milliseconds()).StringSlice()
	if err != nil {
		switch {
		case redis.HasErrorPrefix(err, errSeatBooked):
			return domain.SeatLock{}, domain.ErrAlreadyBooked
		case redis.HasErrorPrefix(err, errSeatLocked):
			return domain.SeatLock{}, domain.ErrAlreadyLockedByOther
		default:
			return domain.SeatLock{}, fmt.Errorf("failed to claim seat %s: %w", seat, err)
		}
	}

	if len(values) != 2 {
		return domain.SeatLock{}, fmt.Errorf("unexpected claim reply for seat %s: %v", seat, values)
	}

	acquiredAt, err := parseMillis(values[0])
	if err != nil {
		return domain.SeatLock{}, err
	}

	expiresAt, err := parseMillis(values[1])
	if err != nil {
		return domain.SeatLock{}, err
	}

	return domain.SeatLock{
		ShowtimeID: showtimeID,
		Seat:       seat,
		SessionID:  sessionID,
		AcquiredAt: acquiredAt,
		ExpiresAt:  expiresAt,
	}, nil
}

func (r *RedisSeatLockStore) Release(ctx context.Context, showtimeID int, seat domain.Seat, sessionID string) error {
	keys := []string{seatLockKey(showtimeID, seat), seatSetKey(showtimeID)}

	err := releaseSeatScript.Run(ctx, r.redis, keys, sessionID, seatMember(seat)).Err()
	if err != nil {
		return fmt.Errorf("failed to release seat %s: %w", seat, err)
	}

	return nil
}

func (r *RedisSeatLockStore) ReleaseSession(ctx context.Context, showtimeID int, sessionID string) error {
	locks, err := r.ListHeldBy(ctx, showtimeID, sessionID)
	if err != nil {
		return err
	}

	for _, lock := range locks {
		err = r.Release(ctx, showtimeID, lock.Seat, sessionID)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *RedisSeatLockStore) ListActive(
	ctx context.Context,
	showtimeID int,
	excludeSessionID string) ([]domain.SeatLock, error) {

	locks, _, err := r.listLocks(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	if excludeSessionID == "" {
		return locks, nil
	}

	filtered := make([]domain.SeatLock, 0, len(locks))
	for _, lock := range locks {
		if lock.SessionID != excludeSessionID {
			filtered = append(filtered, lock)
		}
	}

	return filtered, nil
}

func (r *RedisSeatLockStore) ListHeldBy(
	ctx context.Context,
	showtimeID int,
	sessionID string) ([]domain.SeatLock, error) {

	locks, _, err := r.listLocks(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	held := make([]domain.SeatLock, 0, len(locks))
	for _, lock := range locks {
		if lock.SessionID == sessionID {
			held = append(held, lock)
		}
	}

	return held, nil
}

// SweepExpired walks every showtime index and prunes lapsed locks.
func (r *RedisSeatLockStore) SweepExpired(ctx context.Context) (int64, error) {
	showtimeIDs, err := r.indexedShowtimes(ctx)
	if err != nil {
		return 0, err
	}

	var swept int64

	for _, showtimeID := range showtimeIDs {
		_, pruned, err := r.listLocks(ctx, showtimeID)
		if err != nil {
			return swept, err
		}

		swept += pruned
	}

	return swept, nil
}

// indexedShowtimes lists the showtimes that have a lock index. A cluster
// client scans every master since SCAN only covers one node.
func (r *RedisSeatLockStore) indexedShowtimes(ctx context.Context) ([]int, error) {
	var (
		mu  sync.Mutex
		ids []int
	)

	scan := func(ctx context.Context, client redis.Cmdable) error {
		iter := client.Scan(ctx, 0, seatSetPattern, 100).Iterator()
		for iter.Next(ctx) {
			showtimeID, ok := parseSeatSetKey(iter.Val())
			if !ok {
				continue
			}

			mu.Lock()
			ids = append(ids, showtimeID)
			mu.Unlock()
		}

		return iter.Err()
	}

	var err error
	if cluster, ok := r.redis.(*redis.ClusterClient); ok {
		err = cluster.ForEachMaster(ctx, func(ctx context.Context, client *redis.Client) error {
			return scan(ctx, client)
		})
	} else {
		err = scan(ctx, r.redis)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan seat lock indexes: %w", err)
	}

	slices.Sort(ids)

	return slices.Compact(ids), nil
}

// MarkBooked records booked seats so later claims fail with ErrAlreadyBooked
// without a database round trip.
func (r *RedisSeatLockStore) MarkBooked(ctx context.Context, showtimeID int, seats []domain.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	members := make([]interface{}, len(seats))
	for i, seat := range seats {
		members[i] = seatMember(seat)
	}

	return r.redis.SAdd(ctx, bookedSetKey(showtimeID), members...).Err()
}

func (r *RedisSeatLockStore) listLocks(ctx context.Context, showtimeID int) ([]domain.SeatLock, int64, error) {
	now := r.clock.Now().UnixMilli()

	reply, err := listSeatLocksScript.Run(ctx, r.redis, []string{seatSetKey(showtimeID)}, seatLockKeyPrefix(showtimeID), now).Slice()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list seat locks: %w", err)
	}

	if len(reply) == 0 {
		return nil, 0, fmt.Errorf("empty seat lock listing reply")
	}

	pruned, _ := reply[0].(int64)
	locks := make([]domain.SeatLock, 0, (len(reply)-1)/2)

	for i := 1; i+1 < len(reply); i += 2 {
		member, _ := reply[i].(string)
		value, _ := reply[i+1].(string)

		lock, err := parseSeatLock(showtimeID, member, value)
		if err != nil {
			return nil, 0, err
		}

		locks = append(locks, lock)
	}

	sortLocks(locks)

	return locks, pruned, nil
}

func parseSeatLock(showtimeID int, member, value string) (domain.SeatLock, error) {
	seat, err := parseSeatMember(member)
	if err != nil {
		return domain.SeatLock{}, err
	}

	last := strings.LastIndex(value, "|")
	if last < 0 {
		return domain.SeatLock{}, fmt.Errorf("malformed seat lock value %q", value)
	}

	middle := strings.LastIndex(value[:last], "|")
	if middle < 0 {
		return domain.SeatLock{}, fmt.Errorf("malformed seat lock value %q", value)
	}

	acquiredAt, err := parseMillis(value[middle+1 : last])
	if err != nil {
		return domain.SeatLock{}, err
	}

	expiresAt, err := parseMillis(value[last+1:])
	if err != nil {
		return domain.SeatLock{}, err
	}

	return domain.SeatLock{
		ShowtimeID: showtimeID,
		Seat:       seat,
		SessionID:  value[:middle],
		AcquiredAt: acquiredAt,
		ExpiresAt:  expiresAt,
	}, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp %q: %w", s, err)
	}

	return time.UnixMilli(ms).UTC(), nil
}

func seatMember(seat domain.Seat) string {
	return fmt.Sprintf("%d:%d", seat.Row, seat.Col)
}

func parseSeatMember(member string) (domain.Seat, error) {
	row, col, ok := strings.Cut(member, ":")
	if !ok {
		return domain.Seat{}, fmt.Errorf("malformed seat member %q", member)
	}

	r, err := strconv.Atoi(row)
	if err != nil {
		return domain.Seat{}, fmt.Errorf("malformed seat member %q: %w", member, err)
	}

	c, err := strconv.Atoi(col)
	if err != nil {
		return domain.Seat{}, fmt.Errorf("malformed seat member %q: %w", member, err)
	}

	return domain.Seat{Row: r, Col: c}, nil
}

const seatSetPattern = "seat_locks:{*}"

func seatLockKeyPrefix(showtimeID int) string {
	return fmt.Sprintf("seat_lock:{%d}:", showtimeID)
}

func seatLockKey(showtimeID int, seat domain.Seat) string {
	return seatLockKeyPrefix(showtimeID) + seatMember(seat)
}

func seatSetKey(showtimeID int) string {
	return fmt.Sprintf("seat_locks:{%d}", showtimeID)
}

func parseSeatSetKey(key string) (int, bool) {
	tag, ok := strings.CutPrefix(key, "seat_locks:{")
	if !ok {
		return 0, false
	}

	tag, ok = strings.CutSuffix(tag, "}")
	if !ok {
		return 0, false
	}

	showtimeID, err := strconv.Atoi(tag)
	if err != nil {
		return 0, false
	}

	return showtimeID, true
}

func bookedSetKey(showtimeID int) string {
	return fmt.Sprintf("seat_booked:{%d}", showtimeID)
}

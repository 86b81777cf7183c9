package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/config"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

const (
	defaultKeyPrefix   = "donation:slots"
	maxReserveAttempts = 5
)

// RedisScheduler stores reservations in Redis so several API replicas share
// one view of the rooms. Each room is a sorted set of reservation ids scored
// by start time; the reservation bodies live in one hash. Reservations are
// taken under WATCH on the room key and retried when another writer wins.
type RedisScheduler struct {
	client    *redis.Client
	policy    RoomPolicy
	cb        *gobreaker.CircuitBreaker
	logger    *zap.Logger
	keyPrefix string
}

var _ ports.SlotScheduler = (*RedisScheduler)(nil)

func NewRedisScheduler(client *redis.Client, policy RoomPolicy, logger *zap.Logger) *RedisScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisScheduler{
		client:    client,
		policy:    policy,
		cb:        config.NewCircuitBreaker("Redis-Scheduler", logger),
		logger:    logger,
		keyPrefix: defaultKeyPrefix,
	}
}

// WithKeyPrefix namespaces the keys, mainly so tests can share a server.
func (s *RedisScheduler) WithKeyPrefix(prefix string) *RedisScheduler {
	s.keyPrefix = prefix
	return s
}

func (s *RedisScheduler) roomKey(room int) string {
	return fmt.Sprintf("%s:room:%d", s.keyPrefix, room)
}

func (s *RedisScheduler) reservationsKey() string {
	return s.keyPrefix + ":reservations"
}

func (s *RedisScheduler) ReserveSlot(ctx context.Context, req ports.SlotRequest) (*ports.Reservation, error) {
	if err := s.policy.Validate(req); err != nil {
		return nil, err
	}

	start, end := s.policy.Window(req.Start)
	res := ports.Reservation{
		ID:         uuid.NewString(),
		ProcessID:  req.ProcessID,
		RoomNumber: req.RoomNumber,
		BedNumber:  req.BedNumber,
		Start:      start,
		End:        end,
		Emergency:  req.Emergency,
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.reserve(ctx, req, res)
	})
	if err != nil {
		return nil, s.translate(err)
	}

	s.logger.Debug("slot reserved",
		zap.String("reservation_id", res.ID),
		zap.String("process_id", res.ProcessID),
		zap.Int("room", res.RoomNumber),
		zap.Int("bed", res.BedNumber))
	return &res, nil
}

func (s *RedisScheduler) reserve(ctx context.Context, req ports.SlotRequest, res ports.Reservation) error {
	roomKey := s.roomKey(req.RoomNumber)
	body, err := json.Marshal(res)
	if err != nil {
		return err
	}

	// Anything starting in (start-slot, end) overlaps the new window.
	minScore := "(" + strconv.FormatInt(res.Start.Add(-s.policy.SlotDuration).UnixMilli(), 10)
	maxScore := "(" + strconv.FormatInt(res.End.UnixMilli(), 10)

	txn := func(tx *redis.Tx) error {
		ids, err := tx.ZRangeByScore(ctx, roomKey, &redis.ZRangeBy{Min: minScore, Max: maxScore}).Result()
		if err != nil {
			return err
		}
		existing, err := s.load(ctx, tx, ids)
		if err != nil {
			return err
		}
		if err := s.policy.CheckAvailability(req, existing); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, roomKey, redis.Z{Score: float64(res.Start.UnixMilli()), Member: res.ID})
			pipe.HSet(ctx, s.reservationsKey(), res.ID, body)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		err := s.client.Watch(ctx, txn, roomKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return domain.NewSlotConflictError("room %d is being booked concurrently, try again", req.RoomNumber)
}

func (s *RedisScheduler) load(ctx context.Context, tx *redis.Tx, ids []string) ([]ports.Reservation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	values, err := tx.HMGet(ctx, s.reservationsKey(), ids...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]ports.Reservation, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// room index points at a released body; skip it
			continue
		}
		var r ports.Reservation
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			s.logger.Warn("skipping unreadable reservation", zap.String("reservation_id", ids[i]), zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RedisScheduler) ReleaseSlot(ctx context.Context, res ports.Reservation) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, s.roomKey(res.RoomNumber), res.ID)
			pipe.HDel(ctx, s.reservationsKey(), res.ID)
			return nil
		})
		return nil, err
	})
	if err != nil {
		return s.translate(err)
	}
	return nil
}

// Ping backs the readiness probe.
func (s *RedisScheduler) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisScheduler) translate(err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewDependencyError("slot scheduler circuit open", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewDependencyError("slot scheduler unavailable", err)
}

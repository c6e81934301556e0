package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Scheduler owns the durable delayed-cancellation queue. Job keys are
// derived from the payment id, so re-scheduling the same payment
// replaces the pending job instead of duplicating it.
type Scheduler interface {
	Schedule(ctx context.Context, paymentID int64, delay time.Duration) error
	// Cancel removes the pending job. A job that already fired or was
	// never scheduled is not an error.
	Cancel(ctx context.Context, paymentID int64) error
}

const queueKey = "queue:cancel-payment"

func JobKey(paymentID int64) string {
	return fmt.Sprintf("cancel-payment-%d", paymentID)
}

func paymentIDFromJobKey(member string) (int64, bool) {
	raw, ok := strings.CutPrefix(member, "cancel-payment-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

type RedisScheduler struct {
	client *redis.Client
}

func NewRedisScheduler(client *redis.Client) *RedisScheduler {
	return &RedisScheduler{client: client}
}

func (s *RedisScheduler) Schedule(ctx context.Context, paymentID int64, delay time.Duration) error {
	fireAt := time.Now().Add(delay).UnixMilli()
	// ZADD overwrites the score of an existing member: same key, one job
	return s.client.ZAdd(ctx, queueKey, redis.Z{
		Score:  float64(fireAt),
		Member: JobKey(paymentID),
	}).Err()
}

func (s *RedisScheduler) Cancel(ctx context.Context, paymentID int64) error {
	return s.client.ZRem(ctx, queueKey, JobKey(paymentID)).Err()
}

package queue

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// pop due members atomically so two workers never fire the same job twice
var popDueScript = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
if #due > 0 then
	redis.call("ZREM", KEYS[1], unpack(due))
end
return due
`)

// Handler processes one due cancellation job. It must be idempotent:
// delivery is at-least-once (a failed run is re-queued).
type Handler func(ctx context.Context, paymentID int64) error

type Worker struct {
	client   *redis.Client
	handler  Handler
	logger   *zap.Logger
	interval time.Duration
	batch    int

	wg sync.WaitGroup
}

func NewWorker(client *redis.Client, handler Handler, logger *zap.Logger) *Worker {
	return &Worker{
		client:   client,
		handler:  handler,
		logger:   logger,
		interval: time.Second,
		batch:    100,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce drains the jobs that are due right now.
func (w *Worker) RunOnce(ctx context.Context) {
	now := time.Now().UnixMilli()
	raw, err := popDueScript.Run(ctx, w.client, []string{queueKey}, now, w.batch).StringSlice()
	if err != nil {
		w.logger.Warn("poll delayed queue", zap.Error(err))
		return
	}

	for _, member := range raw {
		paymentID, ok := paymentIDFromJobKey(member)
		if !ok {
			w.logger.Warn("unparseable job key dropped", zap.String("member", member))
			continue
		}

		if err := w.handler(ctx, paymentID); err != nil {
			w.logger.Error("cancellation job failed, re-queued",
				zap.Int64("payment_id", paymentID), zap.Error(err))
			// short retry delay; the handler is idempotent
			_ = w.client.ZAdd(ctx, queueKey, redis.Z{
				Score:  float64(time.Now().Add(10 * time.Second).UnixMilli()),
				Member: member,
			}).Err()
		}
	}
}

func (w *Worker) WaitClosed() {
	w.wg.Wait()
}

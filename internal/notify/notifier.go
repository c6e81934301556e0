package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventPaymentSettled = "PaymentSettled"

// Notifier emits the logical "payment settled for user X" event.
// Delivery mechanics are external; emission is best-effort and
// decoupled from the settlement transaction.
type Notifier interface {
	NotifyUser(userID int64, event string, payload any)
}

type paymentEvent struct {
	EventType  string          `json:"event_type"`
	UserID     int64           `json:"user_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type KafkaNotifier struct {
	w      *kafka.Writer
	inbox  chan kafka.Message
	closed chan struct{}
	logger *zap.Logger
}

func NewKafkaNotifier(brokers []string, topic string, buf int, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:  make(chan kafka.Message, buf),
		closed: make(chan struct{}),
		logger: logger,
	}
}

func (n *KafkaNotifier) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				close(n.inbox)
				for m := range n.inbox {
					_ = n.w.WriteMessages(context.Background(), m)
				}
				_ = n.w.Close()
				close(n.closed)
				return
			case m, ok := <-n.inbox:
				if !ok {
					_ = n.w.Close()
					close(n.closed)
					return
				}
				if err := n.w.WriteMessages(context.Background(), m); err != nil {
					n.logger.Warn("publish notification", zap.Error(err))
				}
			}
		}
	}()
}

func (n *KafkaNotifier) NotifyUser(userID int64, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("marshal notification payload", zap.Error(err))
		return
	}
	value, err := json.Marshal(paymentEvent{
		EventType:  event,
		UserID:     userID,
		OccurredAt: time.Now(),
		Payload:    raw,
	})
	if err != nil {
		n.logger.Warn("marshal notification event", zap.Error(err))
		return
	}

	select {
	case n.inbox <- kafka.Message{
		Key:   []byte(strconv.FormatInt(userID, 10)),
		Value: value,
		Time:  time.Now(),
	}:
	default:
		// full buffer must never block a settlement
		n.logger.Warn("notification dropped, buffer full", zap.Int64("user_id", userID))
	}
}

func (n *KafkaNotifier) WaitClosed() { <-n.closed }

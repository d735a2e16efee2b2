package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/gartstein/crm/internal/contacts/cache"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  MessageReader
	logger  *zap.Logger
	handler func(context.Context, Event) error
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewConsumer reads change events of the given topic as part of groupID.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
			Dialer:  kafka.DefaultDialer,
		}),
		logger: logger.Named("kafka_consumer"),
	}
}

// Start consumes in a goroutine until ctx is cancelled or Close is called.
// Offsets are only committed for events the handler accepted.
func (c *Consumer) Start(ctx context.Context) {
	if c.handler == nil {
		c.handler = func(context.Context, Event) error { return nil }
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.run(ctx)
	}()
}

func (c *Consumer) run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			// The reader reports io.EOF once it is closed.
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error("Failed to parse event",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
			)
			continue
		}

		if err := c.handler(ctx, event); err != nil {
			c.logger.Error("Failed to handle event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
			)
		}
	}
}

func (c *Consumer) RegisterHandler(fn func(context.Context, Event) error) {
	c.handler = fn
}

// Close stops the consume loop and then closes the reader.
func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}

// InvalidateCandidates returns a handler that drops the cached candidates
// of the organization an event belongs to.
func InvalidateCandidates(candidates cache.CandidateCache) func(context.Context, Event) error {
	return func(ctx context.Context, event Event) error {
		switch event.Type {
		case ContactSaved, CustomerCompanyChanged:
			return candidates.Invalidate(ctx, event.OrganizationID)
		default:
			return nil
		}
	}
}

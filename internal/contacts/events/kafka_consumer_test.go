package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gartstein/crm/internal/contacts/cache"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader hands out queued messages and blocks on ctx once empty. Like
// kafka.Reader it answers io.EOF after Close.
type fakeReader struct {
	msgs    chan kafka.Message
	closing chan struct{}

	mu        sync.Mutex
	committed []kafka.Message
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{
		msgs:    make(chan kafka.Message, len(msgs)),
		closing: make(chan struct{}),
	}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-r.closing:
		return kafka.Message{}, io.EOF
	default:
	}
	select {
	case m := <-r.msgs:
		return m, nil
	case <-r.closing:
		return kafka.Message{}, io.EOF
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.closing)
	}
	return nil
}

func (r *fakeReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type recordingCache struct {
	cache.Nop
	mu          sync.Mutex
	invalidated []uuid.UUID
	err         error
}

func (c *recordingCache) Invalidate(_ context.Context, orgID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, orgID)
	return c.err
}

func message(t *testing.T, event Event) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: event.key(), Value: value}
}

func TestConsumer_CommitsHandledEvents(t *testing.T) {
	event := savedEvent()
	reader := newFakeReader(
		kafka.Message{Value: []byte("not json")},
		message(t, event),
	)
	consumer := &Consumer{reader: reader, logger: zaptest.NewLogger(t)}

	handled := make(chan Event, 1)
	consumer.RegisterHandler(func(_ context.Context, e Event) error {
		handled <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer.Start(ctx)

	select {
	case got := <-handled:
		assert.Equal(t, event.ContactID, got.ContactID)
	case <-time.After(time.Second):
		t.Fatal("event was not handled")
	}
	assert.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 10*time.Millisecond)

	consumer.Close()
	assert.True(t, reader.isClosed())
}

func TestConsumer_CloseStopsLoop(t *testing.T) {
	reader := newFakeReader()
	core, recorded := observer.New(zap.ErrorLevel)
	consumer := &Consumer{reader: reader, logger: zap.New(core)}

	// The parent context outlives the consumer.
	consumer.Start(context.Background())

	closed := make(chan struct{})
	go func() {
		consumer.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.True(t, reader.isClosed())
	assert.Zero(t, recorded.FilterMessage("Failed to fetch message").Len())
}

func TestConsumer_ClosedReaderEndsRun(t *testing.T) {
	reader := newFakeReader()
	require.NoError(t, reader.Close())
	core, recorded := observer.New(zap.ErrorLevel)
	consumer := &Consumer{reader: reader, logger: zap.New(core), handler: func(context.Context, Event) error { return nil }}

	finished := make(chan struct{})
	go func() {
		consumer.run(context.Background())
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("run kept fetching from a closed reader")
	}
	assert.Zero(t, recorded.Len())
}

func TestConsumer_HandlerErrorSkipsCommit(t *testing.T) {
	reader := newFakeReader(message(t, savedEvent()))
	consumer := &Consumer{reader: reader, logger: zaptest.NewLogger(t)}

	done := make(chan struct{})
	consumer.RegisterHandler(func(context.Context, Event) error {
		defer close(done)
		return errors.New("cache down")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer.Start(ctx)

	<-done
	cancel()
	assert.Never(t, func() bool { return reader.commits() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestInvalidateCandidates(t *testing.T) {
	orgID := uuid.New()

	t.Run("contact and company events", func(t *testing.T) {
		c := &recordingCache{}
		handler := InvalidateCandidates(c)

		require.NoError(t, handler(context.Background(), Event{Type: ContactSaved, OrganizationID: orgID}))
		require.NoError(t, handler(context.Background(), Event{Type: CustomerCompanyChanged, OrganizationID: orgID}))

		assert.Equal(t, []uuid.UUID{orgID, orgID}, c.invalidated)
	})

	t.Run("unknown event ignored", func(t *testing.T) {
		c := &recordingCache{}
		require.NoError(t, InvalidateCandidates(c)(context.Background(), Event{Type: "other", OrganizationID: orgID}))
		assert.Empty(t, c.invalidated)
	})

	t.Run("cache error propagates", func(t *testing.T) {
		c := &recordingCache{err: errors.New("boom")}
		err := InvalidateCandidates(c)(context.Background(), Event{Type: ContactSaved, OrganizationID: orgID})
		assert.EqualError(t, err, "boom")
	})
}

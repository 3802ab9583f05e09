package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/callslot/callslot/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReader struct {
	msgs   chan kafka.Message
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeReader() *fakeReader {
	return &fakeReader{msgs: make(chan kafka.Message, 8), errs: make(chan error, 8), closed: make(chan struct{})}
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case err := <-f.errs:
		return kafka.Message{}, err
	case msg := <-f.msgs:
		return msg, nil
	}
}

func (f *fakeReader) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

type invalidation struct {
	kind    string
	key     string
	weekDay *int
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls []invalidation
	err   error
}

func (f *fakeInvalidator) InvalidateUser(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invalidation{kind: "user", key: handle})
	return f.err
}

func (f *fakeInvalidator) InvalidateIntervals(_ context.Context, userID string, weekDay *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invalidation{kind: "intervals", key: userID, weekDay: weekDay})
	return f.err
}

func (f *fakeInvalidator) snapshot() []invalidation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]invalidation(nil), f.calls...)
}

func message(topic, payload string) kafka.Message {
	return kafka.Message{
		Topic:   topic,
		Key:     []byte("evt-1"),
		Value:   []byte(payload),
		Headers: kafkax.MetaHeaders(kafkax.EventMeta{EventID: "evt-1", EventType: topic}),
	}
}

func TestInvalidationHandler_IntervalsForOneWeekday(t *testing.T) {
	inv := &fakeInvalidator{}
	h := InvalidationHandler(inv, discardLogger())

	err := h(context.Background(), message(TopicIntervalsUpdated, `{"user_id":"u1","week_day":3}`))
	require.NoError(t, err)

	calls := inv.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "intervals", calls[0].kind)
	assert.Equal(t, "u1", calls[0].key)
	require.NotNil(t, calls[0].weekDay)
	assert.Equal(t, 3, *calls[0].weekDay)
}

func TestInvalidationHandler_IntervalsWithoutWeekdayEvictsAll(t *testing.T) {
	inv := &fakeInvalidator{}
	h := InvalidationHandler(inv, discardLogger())

	require.NoError(t, h(context.Background(), message(TopicIntervalsUpdated, `{"user_id":"u1"}`)))
	require.NoError(t, h(context.Background(), message(TopicIntervalsUpdated, `{"user_id":"u1","week_day":9}`)))

	calls := inv.snapshot()
	require.Len(t, calls, 2)
	assert.Nil(t, calls[0].weekDay)
	assert.Nil(t, calls[1].weekDay)
}

func TestInvalidationHandler_ProfileRenameEvictsBothHandles(t *testing.T) {
	inv := &fakeInvalidator{}
	h := InvalidationHandler(inv, discardLogger())

	err := h(context.Background(), message(TopicProfileUpdated, `{"user_id":"u1","username":"alice2","previous_username":"alice"}`))
	require.NoError(t, err)

	calls := inv.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "alice2", calls[0].key)
	assert.Equal(t, "alice", calls[1].key)
}

func TestInvalidationHandler_SkipsMalformedAndUnknown(t *testing.T) {
	inv := &fakeInvalidator{}
	h := InvalidationHandler(inv, discardLogger())

	require.NoError(t, h(context.Background(), message(TopicIntervalsUpdated, `{not json`)))
	require.NoError(t, h(context.Background(), message(TopicIntervalsUpdated, `{"week_day":1}`)))
	require.NoError(t, h(context.Background(), message(TopicProfileUpdated, `{"user_id":"u1"}`)))
	require.NoError(t, h(context.Background(), message("users.deleted.v1", `{"user_id":"u1"}`)))
	assert.Empty(t, inv.snapshot())
}

func TestInvalidationHandler_PropagatesEvictionFailure(t *testing.T) {
	inv := &fakeInvalidator{err: errors.New("redis down")}
	h := InvalidationHandler(inv, discardLogger())

	err := h(context.Background(), message(TopicProfileUpdated, `{"username":"alice"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestInvalidationHandler_FallsBackToTopicForEventType(t *testing.T) {
	inv := &fakeInvalidator{}
	h := InvalidationHandler(inv, discardLogger())

	msg := kafka.Message{Topic: TopicProfileUpdated, Value: []byte(`{"username":"alice"}`)}
	require.NoError(t, h(context.Background(), msg))
	require.Len(t, inv.snapshot(), 1)
}

func TestConsumerRun_DispatchesUntilCanceled(t *testing.T) {
	reader := newFakeReader()
	inv := &fakeInvalidator{}
	c := newWithReader(discardLogger(), reader, InvalidationHandler(inv, discardLogger()))
	c.backoff = time.Millisecond

	reader.msgs <- message(TopicIntervalsUpdated, `{"user_id":"u1","week_day":2}`)
	reader.errs <- errors.New("broker hiccup")
	reader.msgs <- message(TopicProfileUpdated, `{"username":"alice"}`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(inv.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
	select {
	case <-reader.closed:
	default:
		t.Fatal("reader not closed")
	}
}

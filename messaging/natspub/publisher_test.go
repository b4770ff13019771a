package natspub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpx "childsvc/http"
	"childsvc/logging"
	"childsvc/messaging"
)

func TestMarshalDecode(t *testing.T) {
	ts := time.Unix(1700000000, 42)
	data, err := marshalEvent(messaging.Event{
		ID:        "evt-1",
		Entity:    "child",
		Outcome:   "created",
		EntityID:  "7",
		Timestamp: ts,
		Payload:   map[string]any{"id": 7, "name": "A"},
		Metadata:  map[string]string{"request_id": "req-1"},
	})
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, "child", got.Entity)
	assert.Equal(t, "created", got.Outcome)
	assert.Equal(t, "7", got.EntityID)
	assert.True(t, ts.Equal(got.Timestamp))
	assert.Equal(t, "req-1", got.Metadata["request_id"])
	payload, ok := got.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A", payload["name"])
}

func TestMarshal_FillsIDAndTimestamp(t *testing.T) {
	data, err := marshalEvent(messaging.Event{Entity: "child", Outcome: "deleted"})
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
	assert.NotNil(t, got.Metadata)
}

func TestSubject(t *testing.T) {
	p := New(Config{SubjectPrefix: "events.", Logger: logging.NewNoopLogger()})
	assert.Equal(t, "events.child.updated", p.Subject(messaging.Event{Entity: "child", Outcome: "updated"}))

	p = New(Config{Logger: logging.NewNoopLogger()})
	assert.Equal(t, "childsvc.child.deleted", p.Subject(messaging.Event{Entity: "child", Outcome: "deleted"}))
}

func TestPublish_NotConnected(t *testing.T) {
	var failed []messaging.Event
	p := New(Config{
		Logger:    logging.NewNoopLogger(),
		OnFailure: func(e messaging.Event, _ error) { failed = append(failed, e) },
	})

	ctx := httpx.WithRequestID(context.Background(), "req-1")
	err := p.Publish(ctx, messaging.Event{Entity: "child", Outcome: "created"})
	assert.True(t, errors.Is(err, ErrNotConnected))
	require.Len(t, failed, 1)
	assert.Equal(t, "child.created", failed[0].Type())

	assert.NoError(t, p.Close())
}

func TestPublish_CancelledContext(t *testing.T) {
	p := New(Config{Logger: logging.NewNoopLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, messaging.Event{Entity: "child", Outcome: "created"})
	assert.ErrorIs(t, err, context.Canceled)
}

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: server.RANDOM_PORT, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

// TestPublish_DeliversToSubscriber 主题、消息头与追踪元数据随消息送达订阅方
func TestPublish_DeliversToSubscriber(t *testing.T) {
	ns := runNATSServer(t)

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	msgs := make(chan *nats.Msg, 4)
	subscription, err := sub.ChanSubscribe("events.child.created", msgs)
	require.NoError(t, err)
	defer subscription.Unsubscribe()
	require.NoError(t, sub.Flush())

	p := New(Config{URL: ns.ClientURL(), SubjectPrefix: "events", Logger: logging.NewNoopLogger()})
	require.NoError(t, p.Connect())
	defer p.Close()

	ctx := httpx.WithSubject(httpx.WithRequestID(context.Background(), "req-42"), "user-1")
	err = p.Publish(ctx, messaging.Event{
		Entity:   "child",
		Outcome:  "created",
		EntityID: "1",
		Payload:  map[string]any{"id": 1, "name": "A"},
		Metadata: map[string]string{"app": "childsvc"},
	})
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, "events.child.created", msg.Subject)
		assert.Equal(t, "req-42", msg.Header.Get(httpx.MetadataRequestID))
		assert.Equal(t, "user-1", msg.Header.Get(httpx.MetadataSubject))
		assert.Equal(t, "childsvc", msg.Header.Get("app"))

		got, err := Decode(msg.Data)
		require.NoError(t, err)
		assert.Equal(t, "child.created", got.Type())
		assert.Equal(t, "1", got.EntityID)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "req-42", got.Metadata[httpx.MetadataRequestID])
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

// TestPublish_ExternalConnNotClosed 外部连接由调用方负责关闭
func TestPublish_ExternalConnNotClosed(t *testing.T) {
	ns := runNATSServer(t)
	conn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer conn.Close()

	p := New(Config{Conn: conn, Logger: logging.NewNoopLogger()})
	require.NoError(t, p.Connect())
	require.NoError(t, p.Publish(context.Background(), messaging.Event{Entity: "child", Outcome: "deleted", EntityID: "3"}))
	require.NoError(t, p.Close())

	assert.False(t, conn.IsClosed())
	assert.ErrorIs(t, p.Publish(context.Background(), messaging.Event{Entity: "child", Outcome: "deleted"}), ErrNotConnected)
}

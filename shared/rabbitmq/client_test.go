package rabbitmq

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return NewClient(&Config{
		Host:   "localhost",
		Port:   5672,
		User:   "guest",
		Queues: []string{"raw_uploads", "signal_stream"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublish_NotConnected(t *testing.T) {
	client := testClient()

	err := client.Publish(context.Background(), "raw_uploads", map[string]any{"deviceId": "d1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSubscribe_NotConnected(t *testing.T) {
	client := testClient()

	err := client.Subscribe("raw_uploads", func(ctx context.Context, payload map[string]any) error {
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, client.subs, "a rejected subscribe must not be retained")
}

func TestClient_InitialState(t *testing.T) {
	client := testClient()
	assert.Equal(t, StateDisconnected, client.State())
}

func TestClose_WithoutInitialize(t *testing.T) {
	client := testClient()

	done := make(chan struct{})
	go func() {
		_ = client.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close hung without a running supervisor")
	}
	assert.Equal(t, StateDisconnected, client.State())
}

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "unknown", ConnState(42).String())
}

func TestBackoffDelay(t *testing.T) {
	base := 500 * time.Millisecond
	max := 30 * time.Second

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{name: "first attempt", attempt: 1, want: time.Second},
		{name: "second attempt doubles", attempt: 2, want: 2 * time.Second},
		{name: "third attempt", attempt: 3, want: 4 * time.Second},
		{name: "fifth attempt", attempt: 5, want: 16 * time.Second},
		{name: "capped at max", attempt: 6, want: max},
		{name: "stays capped", attempt: 50, want: max},
		{name: "attempt below one clamps", attempt: 0, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backoffDelay(tt.attempt, base, max))
		})
	}
}

func TestBackoffDelay_Defaults(t *testing.T) {
	assert.Equal(t, 2*defaultBaseDelay, backoffDelay(1, 0, 0))
	assert.Equal(t, defaultMaxDelay, backoffDelay(100, 0, 0))
}

// fakeAck records the single outcome of a delivery.
type fakeAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAck) Ack(multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(multiple, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestHandleDelivery_MalformedBody(t *testing.T) {
	client := testClient()

	handlerCalled := false
	sub := subscription{
		queue: "raw_uploads",
		handler: func(ctx context.Context, payload map[string]any) error {
			handlerCalled = true
			return nil
		},
	}

	ack := &fakeAck{}
	client.handleDelivery(sub, []byte("{not json"), ack)

	assert.False(t, handlerCalled, "handler must never see malformed bytes")
	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued, "poison messages are dropped, not requeued")
}

func TestHandleDelivery_HandlerFailure(t *testing.T) {
	client := testClient()

	sub := subscription{
		queue: "raw_uploads",
		handler: func(ctx context.Context, payload map[string]any) error {
			return assert.AnError
		},
	}

	ack := &fakeAck{}
	client.handleDelivery(sub, []byte(`{"deviceId":"d1"}`), ack)

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)
}

func TestHandleDelivery_Success(t *testing.T) {
	client := testClient()

	var got map[string]any
	sub := subscription{
		queue: "raw_uploads",
		handler: func(ctx context.Context, payload map[string]any) error {
			got = payload
			return nil
		},
	}

	ack := &fakeAck{}
	client.handleDelivery(sub, []byte(`{"deviceId":"d1","kV":120}`), ack)

	require.NotNil(t, got)
	assert.Equal(t, "d1", got["deviceId"])
	assert.Equal(t, float64(120), got["kV"])
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

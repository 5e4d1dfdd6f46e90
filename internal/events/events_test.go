package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Message
		wantErr bool
	}{
		{
			name:  "ready",
			input: `{"type":"ready","identity":"main-3"}`,
			want:  Ready{Identity: "main-3"},
		},
		{
			name:  "image available with path",
			input: `{"type":"image-available","identity":"main-1","payload":"data:image/png;base64,AQID","path":"/tmp/a.png"}`,
			want:  ImageAvailable{Identity: "main-1", Payload: "data:image/png;base64,AQID", Path: "/tmp/a.png"},
		},
		{name: "not json", input: `main-1`, wantErr: true},
		{name: "missing type", input: `{"identity":"main-1"}`, wantErr: true},
		{name: "unknown type", input: `{"type":"hello","identity":"main-1"}`, wantErr: true},
		{name: "missing identity", input: `{"type":"ready"}`, wantErr: true},
		{name: "image without payload", input: `{"type":"image-available","identity":"main-1"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalParse(t *testing.T) {
	for _, m := range []Message{
		Ready{Identity: "main-9"},
		ImageAvailable{Identity: "main-2", Payload: "AQID"},
	} {
		data, err := Marshal(m)
		require.NoError(t, err)

		got, err := Parse(data)
		require.NoError(t, err)
		assert.Equal(t, m, got)
		assert.Equal(t, m.Target(), got.Target())
	}
}

func TestMarshal_Envelope(t *testing.T) {
	data, err := Marshal(Ready{Identity: "main-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ready","identity":"main-1"}`, string(data))
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus(1)
	bus.Close()
	bus.Close()

	err := bus.Publish(context.Background(), Ready{Identity: "main-1"})
	assert.ErrorIs(t, err, ErrBusClosed)

	_, ok := <-bus.Messages()
	assert.False(t, ok)
}

func TestBus_CloseUnblocksFullPublisher(t *testing.T) {
	bus := NewBus(1)
	require.NoError(t, bus.Publish(context.Background(), Ready{Identity: "main-1"}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- bus.Publish(context.Background(), Ready{Identity: "main-2"})
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrBusClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Publish did not return after Close")
	}
}

func TestBus_PublishHonoursContext(t *testing.T) {
	bus := NewBus(1)
	require.NoError(t, bus.Publish(context.Background(), Ready{Identity: "main-1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := bus.Publish(ctx, Ready{Identity: "main-2"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBus_ConcurrentPublishers(t *testing.T) {
	bus := NewBus(4)
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, bus.Publish(context.Background(), Ready{Identity: "main-1"}))
		}()
	}

	received := 0
	done := make(chan struct{})
	go func() {
		for range bus.Messages() {
			received++
		}
		close(done)
	}()

	wg.Wait()
	bus.Close()
	<-done
	assert.Equal(t, n, received)
}

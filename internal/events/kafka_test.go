package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishEncodesEvent(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w, "liveclass.events", discard())

	at := time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)
	evt := live.Event{
		ID:         "evt-1",
		Type:       live.EventSessionStarted,
		ClassID:    42,
		RunID:      "run-9",
		OccurredAt: at,
		Data:       map[string]any{"stepCount": 3},
	}
	require.NoError(t, p.Publish(context.Background(), evt))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	require.Equal(t, "42", string(msg.Key))
	require.True(t, msg.Time.Equal(at))
	require.Equal(t, "event-type", msg.Headers[0].Key)
	require.Equal(t, live.EventSessionStarted, string(msg.Headers[0].Value))

	var got live.Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	require.Equal(t, "run-9", got.RunID)
	require.Equal(t, float64(3), got.Data["stepCount"])

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewPublisher(&fakeWriter{err: boom}, "liveclass.events", discard())

	err := p.Publish(context.Background(), live.Event{Type: live.EventSessionEnded, ClassID: 1})
	require.ErrorIs(t, err, boom)
}

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamcatcher/domain/events"
)

type sink struct {
	mu   sync.Mutex
	got  []events.DomainEvent
	err  error
	seen chan struct{}
}

func newSink() *sink { return &sink{seen: make(chan struct{}, 16)} }

func (s *sink) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	s.mu.Lock()
	s.got = append(s.got, evts...)
	s.mu.Unlock()
	for range evts {
		select {
		case s.seen <- struct{}{}:
		default:
		}
	}
	return s.err
}

func (s *sink) events() []events.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.DomainEvent(nil), s.got...)
}

func captured(id string) events.DomainEvent {
	return events.NewIdeaCaptured(id, "u1", "text", "a new idea", 50, []string{"app"})
}

func TestEnvelope(t *testing.T) {
	t.Run("Should round trip the event header and payload", func(t *testing.T) {
		evt := captured("idea-1")
		data, err := Encode(evt, "node-a")
		require.NoError(t, err)

		relayed, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, events.TypeIdeaCaptured, relayed.GetEventType())
		assert.Equal(t, "idea-1", relayed.GetAggregateID())
		assert.Equal(t, "u1", relayed.GetUserID())
		assert.Equal(t, "node-a", relayed.Origin)
		assert.WithinDuration(t, evt.GetTimestamp(), relayed.GetTimestamp(), time.Millisecond)

		original, err := json.Marshal(evt)
		require.NoError(t, err)
		again, err := json.Marshal(relayed)
		require.NoError(t, err)
		assert.JSONEq(t, string(original), string(again))
	})

	t.Run("Should reject envelopes without a type", func(t *testing.T) {
		_, err := Decode([]byte(`{"aggregate_id":"x"}`))
		assert.Error(t, err)

		_, err = Decode([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestMultiPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Should deliver to every publisher despite failures", func(t *testing.T) {
		failing := newSink()
		failing.err = errors.New("down")
		ok := newSink()

		m := NewMultiPublisher(zap.NewNop(), failing, nil, ok)
		assert.Equal(t, 2, m.Len())

		err := m.Publish(ctx, captured("a"), captured("b"))
		assert.ErrorContains(t, err, "down")
		assert.Len(t, failing.events(), 2)
		assert.Len(t, ok.events(), 2)
	})

	t.Run("Should do nothing without events", func(t *testing.T) {
		s := newSink()
		m := NewMultiPublisher(nil)
		m.Add(s)
		assert.NoError(t, m.Publish(ctx))
		assert.Empty(t, s.events())
	})
}

type fakeEventBridge struct {
	mu     sync.Mutex
	calls  []*eventbridge.PutEventsInput
	failOn map[int]bool
	err    error
}

func (f *fakeEventBridge) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	out := &eventbridge.PutEventsOutput{}
	for i := range in.Entries {
		if f.failOn[len(f.calls)] && i == 0 {
			out.FailedEntryCount++
			out.Entries = append(out.Entries, types.PutEventsResultEntry{
				ErrorCode:    aws.String("InternalFailure"),
				ErrorMessage: aws.String("try again"),
			})
			continue
		}
		out.Entries = append(out.Entries, types.PutEventsResultEntry{EventId: aws.String("ok")})
	}
	return out, nil
}

func TestEventBridgePublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Should split events into batches of ten", func(t *testing.T) {
		client := &fakeEventBridge{}
		p := NewEventBridgePublisher(client, "bus", "", zap.NewNop())

		evts := make([]events.DomainEvent, 23)
		for i := range evts {
			evts[i] = captured("idea")
		}
		require.NoError(t, p.Publish(ctx, evts...))

		require.Len(t, client.calls, 3)
		assert.Len(t, client.calls[0].Entries, 10)
		assert.Len(t, client.calls[2].Entries, 3)

		entry := client.calls[0].Entries[0]
		assert.Equal(t, "bus", aws.ToString(entry.EventBusName))
		assert.Equal(t, "dreamcatcher", aws.ToString(entry.Source))
		assert.Equal(t, events.TypeIdeaCaptured, aws.ToString(entry.DetailType))
		assert.Contains(t, aws.ToString(entry.Detail), `"event_type":"idea.captured"`)
	})

	t.Run("Should retry only the failed entries", func(t *testing.T) {
		client := &fakeEventBridge{failOn: map[int]bool{1: true}}
		p := NewEventBridgePublisher(client, "bus", "src", zap.NewNop())
		p.backoff = time.Millisecond

		require.NoError(t, p.Publish(ctx, captured("a"), captured("b")))
		require.Len(t, client.calls, 2)
		assert.Len(t, client.calls[1].Entries, 1)
	})

	t.Run("Should give up after the retry budget", func(t *testing.T) {
		client := &fakeEventBridge{err: errors.New("throttled")}
		p := NewEventBridgePublisher(client, "bus", "src", zap.NewNop())
		p.backoff = time.Millisecond

		err := p.Publish(ctx, captured("a"))
		assert.ErrorContains(t, err, "after 3 attempts")
		assert.Len(t, client.calls, 3)
	})

	t.Run("Should skip relayed events", func(t *testing.T) {
		client := &fakeEventBridge{}
		p := NewEventBridgePublisher(client, "bus", "src", zap.NewNop())

		require.NoError(t, p.Publish(ctx, events.Relayed{BaseEvent: events.BaseEvent{EventType: "x"}}))
		assert.Empty(t, client.calls)
	})
}

func TestRedisSubscriber_Handle(t *testing.T) {
	ctx := context.Background()
	local := newSink()
	sub := NewRedisSubscriber(nil, "events", "node-a", local, zap.NewNop())

	t.Run("Should ignore its own events", func(t *testing.T) {
		data, err := Encode(captured("a"), "node-a")
		require.NoError(t, err)
		sub.handle(ctx, data)
		assert.Empty(t, local.events())
	})

	t.Run("Should relay events from other instances", func(t *testing.T) {
		data, err := Encode(captured("b"), "node-b")
		require.NoError(t, err)
		sub.handle(ctx, data)

		got := local.events()
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].GetAggregateID())
	})

	t.Run("Should drop malformed messages", func(t *testing.T) {
		sub.handle(ctx, []byte("{"))
		assert.Len(t, local.events(), 1)
	})
}

func TestRedis_Integration(t *testing.T) {
	url := os.Getenv("DREAMCATCHER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("DREAMCATCHER_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channel := "dreamcatcher-test-" + time.Now().Format("150405.000")
	local := newSink()
	sub := NewRedisSubscriber(client, channel, "node-b", local, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	pub := NewRedisPublisher(client, channel, "node-a", zap.NewNop())
	require.Eventually(t, func() bool {
		_ = pub.Publish(ctx, captured("remote"))
		select {
		case <-local.seen:
			return true
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	assert.Equal(t, "remote", local.events()[0].GetAggregateID())
	cancel()
	assert.NoError(t, <-done)
}

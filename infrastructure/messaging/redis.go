package messaging

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/events"
)

// RedisPublisher broadcasts events to other instances over a Redis channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	origin  string
	logger  *zap.Logger
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher on channel. origin identifies this
// instance so its own messages can be ignored on the way back.
func NewRedisPublisher(client redis.UniversalClient, channel, origin string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, channel: channel, origin: origin, logger: logger}
}

// Publish sends each event as an envelope. Relayed events are not sent
// again.
func (p *RedisPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	var errs []error
	for _, evt := range evts {
		if _, ok := evt.(events.Relayed); ok {
			continue
		}
		data, err := Encode(evt, p.origin)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RedisSubscriber relays events published by other instances into a local
// sink, typically the websocket hub.
type RedisSubscriber struct {
	client  redis.UniversalClient
	channel string
	origin  string
	sink    ports.EventPublisher
	logger  *zap.Logger
}

// NewRedisSubscriber creates a subscriber. Messages stamped with origin are
// dropped.
func NewRedisSubscriber(client redis.UniversalClient, channel, origin string, sink ports.EventPublisher, logger *zap.Logger) *RedisSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSubscriber{client: client, channel: channel, origin: origin, sink: sink, logger: logger}
}

// Run subscribes and relays until ctx is cancelled.
func (s *RedisSubscriber) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	s.logger.Info("Relaying events from Redis", zap.String("channel", s.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (s *RedisSubscriber) handle(ctx context.Context, data []byte) {
	evt, err := Decode(data)
	if err != nil {
		s.logger.Warn("Dropping malformed event", zap.Error(err))
		return
	}
	if evt.Origin == s.origin {
		return
	}
	if err := s.sink.Publish(ctx, evt); err != nil {
		s.logger.Warn("Failed to relay event",
			zap.String("event_type", evt.EventType),
			zap.Error(err),
		)
	}
}

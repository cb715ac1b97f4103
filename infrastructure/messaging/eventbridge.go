package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/events"
)

// eventBridgeBatch is the PutEvents entry limit.
const eventBridgeBatch = 10

// PutEventsAPI is the part of the EventBridge client the publisher uses.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher forwards events to an EventBridge bus.
type EventBridgePublisher struct {
	client       PutEventsAPI
	eventBusName string
	source       string
	maxRetries   int
	backoff      time.Duration
	logger       *zap.Logger
}

var _ ports.EventPublisher = (*EventBridgePublisher)(nil)

// NewEventBridgePublisher creates a new EventBridge publisher
func NewEventBridgePublisher(client PutEventsAPI, eventBusName, source string, logger *zap.Logger) *EventBridgePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if source == "" {
		source = "dreamcatcher"
	}
	return &EventBridgePublisher{
		client:       client,
		eventBusName: eventBusName,
		source:       source,
		maxRetries:   3,
		backoff:      100 * time.Millisecond,
		logger:       logger,
	}
}

// Publish sends events in batches of ten. Relayed events are skipped, the
// instance that produced them has already forwarded them.
func (p *EventBridgePublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	local := make([]events.DomainEvent, 0, len(evts))
	for _, e := range evts {
		if _, ok := e.(events.Relayed); !ok {
			local = append(local, e)
		}
	}

	for i := 0; i < len(local); i += eventBridgeBatch {
		end := i + eventBridgeBatch
		if end > len(local) {
			end = len(local)
		}
		if err := p.publishWithRetry(ctx, local[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *EventBridgePublisher) publishWithRetry(ctx context.Context, batch []events.DomainEvent) error {
	backoff := p.backoff
	var err error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if batch, err = p.publishBatch(ctx, batch); err == nil {
			return nil
		}
		if attempt == p.maxRetries-1 {
			break
		}
		p.logger.Warn("Retrying event publication",
			zap.Int("attempt", attempt+1),
			zap.Int("events", len(batch)),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed to publish events after %d attempts: %w", p.maxRetries, err)
}

// publishBatch sends up to ten events and returns the ones that failed.
func (p *EventBridgePublisher) publishBatch(ctx context.Context, batch []events.DomainEvent) ([]events.DomainEvent, error) {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	sent := make([]events.DomainEvent, 0, len(batch))
	for _, evt := range batch {
		detail, err := Encode(evt, p.source)
		if err != nil {
			p.logger.Error("Failed to marshal event", zap.String("event_type", evt.GetEventType()), zap.Error(err))
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(evt.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(evt.GetTimestamp()),
			Resources:    []string{fmt.Sprintf("arn:aws:dreamcatcher::%s", evt.GetAggregateID())},
		})
		sent = append(sent, evt)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return sent, fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}
	if out.FailedEntryCount == 0 {
		p.logger.Debug("Events published to EventBridge",
			zap.Int("count", len(entries)),
			zap.String("event_bus", p.eventBusName),
		)
		return nil, nil
	}

	var failed []events.DomainEvent
	for i, entry := range out.Entries {
		if entry.ErrorCode == nil || i >= len(sent) {
			continue
		}
		p.logger.Error("Failed to publish event",
			zap.String("event_type", sent[i].GetEventType()),
			zap.String("error_code", aws.ToString(entry.ErrorCode)),
			zap.String("error_message", aws.ToString(entry.ErrorMessage)),
		)
		failed = append(failed, sent[i])
	}
	return failed, fmt.Errorf("%d events failed to publish", out.FailedEntryCount)
}

package translog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// PubsubPublisher publishes individual presence transitions to a Pub/Sub
// topic so that remote consumers can react to records appearing and
// disappearing. It also satisfies TransitionSink, publishing each
// transition of a batch as one message.
type PubsubPublisher struct {
	topic  *pubsub.Topic
	logger zerolog.Logger
}

// NewPubsubPublisher creates a new publisher. It accepts a context to verify
// that the target topic exists before returning.
func NewPubsubPublisher(ctx context.Context, client *pubsub.Client, topicID string, logger zerolog.Logger) (*PubsubPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client cannot be nil")
	}
	topic := client.Topic(topicID)

	// Verify the topic exists, respecting the context's deadline.
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic %s: %w", topicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", topicID)
	}

	return &PubsubPublisher{
		topic:  topic,
		logger: logger.With().Str("component", "PubsubPublisher").Str("topic_id", topicID).Logger(),
	}, nil
}

// Publish sends a single transition to Pub/Sub. It returns immediately after
// queueing the message and logs the final result of the publish operation
// asynchronously. The record key and state travel as attributes so
// subscribers can filter without decoding the payload.
func (p *PubsubPublisher) Publish(ctx context.Context, t *Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transition for key %s: %w", t.Key, err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"key":   t.Key,
			"state": t.State,
		},
	})

	// Asynchronously check the result to log any publish errors without blocking the caller.
	go func() {
		// Use a new context for Get to avoid being cancelled by a short-lived publish context.
		getCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		msgID, err := result.Get(getCtx)
		if err != nil {
			p.logger.Error().Err(err).Str("key", t.Key).Msg("Failed to publish transition")
			return
		}
		p.logger.Debug().Str("published_msg_id", msgID).Str("key", t.Key).Msg("Transition published successfully.")
	}()

	return nil
}

// InsertBatch publishes every transition of a batch as an individual message.
func (p *PubsubPublisher) InsertBatch(ctx context.Context, items []*Transition) error {
	for _, t := range items {
		if t == nil {
			continue
		}
		if err := p.Publish(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes any pending messages for the topic.
func (p *PubsubPublisher) Close() error {
	if p.topic == nil {
		return nil
	}
	p.topic.Stop()
	return nil
}

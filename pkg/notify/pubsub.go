// Package notify publishes fragment status events to Google Cloud Pub/Sub.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/coolbeans/hukum/pkg/schedule"
)

type result interface {
	Get(ctx context.Context) (serverID string, err error)
}

type publisher interface {
	publish(ctx context.Context, msg *pubsub.Message) result
}

type topicPublisher struct {
	topic *pubsub.Topic
}

func (p topicPublisher) publish(ctx context.Context, msg *pubsub.Message) result {
	return p.topic.Publish(ctx, msg)
}

// PubSub is a schedule.Observer that publishes every ledger event as a JSON
// message. Messages carry the run ID as ordering key so subscribers see a
// run's transitions in order. Publishing is asynchronous; Flush waits for
// the outstanding results.
type PubSub struct {
	publisher publisher
	logger    *slog.Logger

	client *pubsub.Client
	topic  *pubsub.Topic

	mu      sync.Mutex
	pending []result
}

// NewPubSub connects to topicID in projectID. The topic must exist.
func NewPubSub(ctx context.Context, projectID, topicID, credentialsFile string, logger *slog.Logger) (*PubSub, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pub/sub project and topic are required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to check topic existence: %w", err)
	}
	if !exists {
		client.Close()
		return nil, fmt.Errorf("topic %s does not exist", topicID)
	}
	topic.EnableMessageOrdering = true

	ps := newPubSub(topicPublisher{topic: topic}, logger)
	ps.client = client
	ps.topic = topic
	return ps, nil
}

func newPubSub(p publisher, logger *slog.Logger) *PubSub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PubSub{publisher: p, logger: logger}
}

// Observe implements schedule.Observer.
func (ps *PubSub) Observe(e schedule.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		ps.logger.Warn("failed to marshal event", "fragment", e.FragmentID, "error", err)
		return
	}
	msg := &pubsub.Message{
		Data:        data,
		OrderingKey: e.RunID,
		Attributes: map[string]string{
			"run_id":      e.RunID,
			"fragment_id": e.FragmentID,
			"status":      string(e.Status),
		},
	}
	res := ps.publisher.publish(context.Background(), msg)

	ps.mu.Lock()
	ps.pending = append(ps.pending, res)
	ps.mu.Unlock()
}

// Flush waits for every message published so far and returns the joined
// publish errors.
func (ps *PubSub) Flush(ctx context.Context) error {
	ps.mu.Lock()
	pending := ps.pending
	ps.pending = nil
	ps.mu.Unlock()

	var errs []error
	for _, res := range pending {
		if _, err := res.Get(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to publish %d of %d events: %w", len(errs), len(pending), errors.Join(errs...))
	}
	return nil
}

// Close flushes and releases the client.
func (ps *PubSub) Close(ctx context.Context) error {
	err := ps.Flush(ctx)
	if ps.topic != nil {
		ps.topic.Stop()
	}
	if ps.client != nil {
		if cerr := ps.client.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close Pub/Sub client: %w", cerr)
		}
	}
	return err
}

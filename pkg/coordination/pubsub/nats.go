package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATSPubSub backs the PubSub contract with a NATS connection, so a narrator
// subscriber (e.g. a sidepanel process) can live outside the orchestrator's
// process. Topic dot-notation is passed through unchanged as the NATS
// subject, so a "*" segment in a subscription pattern is matched by NATS's
// own token wildcard.
type NATSPubSub struct {
	nc *nats.Conn

	mu   sync.Mutex
	subs map[string]*natsSubscription
}

type natsSubscription struct {
	id   string
	pat  string
	sub  *nats.Subscription
	stop func()
}

func (s *natsSubscription) ID() string    { return s.id }
func (s *natsSubscription) Topic() string { return s.pat }

// NewNATSPubSub connects to the given NATS URL (e.g. nats.DefaultURL).
func NewNATSPubSub(url string) (*NATSPubSub, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPubSub{nc: nc, subs: make(map[string]*natsSubscription)}, nil
}

func natsSubject(topic string) string {
	// NATS reserves '.' as the hierarchy separator already; our topic
	// patterns use the same convention, so subjects pass through unchanged
	// except our "*" wildcard segments map 1:1 onto NATS's.
	return topic
}

// Publish marshals message as JSON and publishes it on topic's subject.
func (ps *NATSPubSub) Publish(ctx context.Context, topic string, message interface{}) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return ps.nc.Publish(natsSubject(topic), data)
}

// Subscribe subscribes to a concrete NATS subject. Wildcard patterns using
// "*" are translated to NATS's own token wildcard since NATS subjects are
// already dot-delimited.
func (ps *NATSPubSub) Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	subject := strings.ReplaceAll(topic, "*", "*")
	natsSub, err := ps.nc.Subscribe(subject, func(msg *nats.Msg) {
		var payload map[string]any
		if err := json.Unmarshal(msg.Data, &payload); err == nil {
			handler(payload)
			return
		}
		handler(string(msg.Data))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe nats: %w", err)
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	n := len(ps.subs) + 1
	for ps.subs[fmt.Sprintf("nats-sub-%d", n)] != nil {
		n++
	}
	id := fmt.Sprintf("nats-sub-%d", n)
	sub := &natsSubscription{id: id, pat: topic, sub: natsSub}
	ps.subs[id] = sub
	return sub, nil
}

// Unsubscribe unsubscribes from NATS and removes the subscription; messages
// already queued for it are not drained.
func (ps *NATSPubSub) Unsubscribe(ctx context.Context, subscription Subscription) error {
	if subscription == nil {
		return nil
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	sub, ok := ps.subs[subscription.ID()]
	if !ok {
		return nil
	}
	delete(ps.subs, subscription.ID())
	return sub.sub.Unsubscribe()
}

// Close drains and closes the underlying NATS connection.
func (ps *NATSPubSub) Close() {
	ps.nc.Drain()
}

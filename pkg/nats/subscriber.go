package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"own-ai-chat/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber reads domain events from the EVENTS stream.
type Subscriber struct {
	nc   *nats.Conn
	js   jetstream.JetStream
	subs []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe attaches handler to subject. A non-empty durableName keeps the
// consumer's position across restarts; an empty one starts an ephemeral consumer
// that only sees new events.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	cfg := jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if durableName == "" {
		cfg.DeliverPolicy = jetstream.DeliverNewPolicy
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var env events.Envelope
		if err := json.Unmarshal(msg.Data(), &env); err != nil {
			log.Printf("Error unmarshalling event on %s: %v", msg.Subject(), err)
			// Redelivery cannot fix a malformed payload.
			msg.Term()
			return
		}

		if err := handler(ctx, env.Event()); err != nil {
			log.Printf("Handler failed for event %s: %v", msg.Subject(), err)
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.subs = append(s.subs, cc)
	return nil
}

func (s *Subscriber) Close() {
	for _, cc := range s.subs {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}

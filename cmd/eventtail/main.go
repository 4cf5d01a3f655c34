package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"own-ai-chat/internal/config"
	"own-ai-chat/pkg/events"
	pktNats "own-ai-chat/pkg/nats"

	"github.com/fatih/color"
)

// eventtail prints domain events as they are published. Useful while
// watching a local stack: chat creation, persisted turns and failures.
func main() {
	subject := flag.String("subject", pktNats.SubjectPrefix+"chat.>", "subject filter on the EVENTS stream")
	durable := flag.String("durable", "", "durable consumer name; empty only shows new events")
	flag.Parse()

	cfg := config.Load()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS at %s: %v", cfg.App.NatsURL, err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, *subject, *durable, func(_ context.Context, event events.Event) error {
		printEvent(event)
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to %s: %v", *subject, err)
	}

	color.Cyan("Listening on %s (Ctrl+C to stop)\n", *subject)
	<-ctx.Done()
}

func printEvent(event events.Event) {
	stamp := event.Timestamp().Format("15:04:05.000")
	body, _ := json.Marshal(event.Payload())

	switch {
	case strings.HasSuffix(event.EventType(), "failed"):
		color.Red("%s %-24s %s", stamp, event.EventType(), body)
	case strings.HasSuffix(event.EventType(), "deleted"):
		color.Yellow("%s %-24s %s", stamp, event.EventType(), body)
	default:
		color.Green("%s %-24s %s", stamp, event.EventType(), body)
	}
}

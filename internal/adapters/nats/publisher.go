package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/asiergil/ctfgeo/internal/core/domain"
)

// Subjects and streams for the challenge event bus. Solve/fail outcomes
// are durable (the scoreworker consumes them); broadcasts are plain
// core NATS for the WebSocket relay.
const (
	subjectSolvePrefix   = "ctf.solve."
	subjectAttemptPrefix = "ctf.attempt."
	subjectFirstBlood    = "ctf.alerts.firstblood"
	subjectBroadcast     = "ctf.updates.broadcast"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS, enables JetStream, and ensures the
// challenge streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streams := []nats.StreamConfig{
		{
			Name:      "CTF_SOLVES",
			Subjects:  []string{"ctf.solve.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "CTF_ATTEMPTS",
			Subjects:  []string{"ctf.attempt.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "CTF_ALERTS",
			Subjects:  []string{"ctf.alerts.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishSolveEvent publishes a recorded outcome. Solves go to the
// durable solve stream; fails only to the short-lived attempt stream.
func (p *Publisher) PublishSolveEvent(ctx context.Context, ev *domain.SolveEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.Kind == domain.AttemptSolve {
		_, err = p.js.Publish(subjectSolvePrefix+ev.ChallengeID, data)
		return err
	}
	_, err = p.js.Publish(subjectAttemptPrefix+ev.ChallengeID, data)
	return err
}

// PublishFirstBlood announces the first solve of a challenge.
func (p *Publisher) PublishFirstBlood(ctx context.Context, ev *domain.SolveEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subjectFirstBlood, data)
	return err
}

// PublishBroadcast fans arbitrary payloads out to WebSocket clients.
func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish(subjectBroadcast, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. the
// WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

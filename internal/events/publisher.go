package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/ingest"
)

// SubjectIngestCompleted is the subject every finished run is published on.
const SubjectIngestCompleted = "pgvector.ingest.completed"

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

var _ Conn = (*Client)(nil)

// Publisher publishes ingestion events. It implements ingest.Notifier.
type Publisher struct {
	conn   Conn
	source string
	now    func() time.Time
	logger *slog.Logger
}

var _ ingest.Notifier = (*Publisher)(nil)

// NewPublisher creates a publisher sending on conn.
func NewPublisher(conn Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, source: "pgvector-embed", now: time.Now, logger: logger}
}

// Event is the envelope of every published message.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// IngestCompletedData is the payload of SubjectIngestCompleted.
type IngestCompletedData struct {
	RunID       string `json:"run_id"`
	Table       string `json:"table"`
	Model       string `json:"model,omitempty"`
	Inputs      int    `json:"inputs"`
	Written     int    `json:"written"`
	Failed      int    `json:"failed"`
	State       string `json:"state"`
	FailedStage string `json:"failed_stage,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

func (p *Publisher) publish(_ context.Context, subject string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	p.logger.Debug("published event", "subject", subject, "type", event.Type)
	return nil
}

// IngestCompleted publishes the summary of a finished run.
func (p *Publisher) IngestCompleted(ctx context.Context, s ingest.Summary) error {
	return p.publish(ctx, SubjectIngestCompleted, Event{
		ID:        uuid.NewString(),
		Type:      "ingest.completed",
		Source:    p.source,
		Timestamp: p.now().UTC(),
		Data: IngestCompletedData{
			RunID:       s.RunID,
			Table:       s.Table,
			Model:       s.Model,
			Inputs:      s.Inputs,
			Written:     s.Written,
			Failed:      s.Failed,
			State:       s.State.String(),
			FailedStage: string(s.FailedStage),
			Metadata:    s.Metadata,
		},
	})
}

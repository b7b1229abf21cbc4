package events

import (
	"context"
	"time"

	"securelink-backend/internal/shared/telemetry"
)

// Document lifecycle event types.
const (
	DocumentUploaded = "document.uploaded"
	DocumentReplaced = "document.replaced"
	DocumentDeleted  = "document.deleted"
)

// Event is published after a document mutation commits.
type Event struct {
	Type       string    `json:"type"`
	DocumentID string    `json:"documentId"`
	OwnerID    string    `json:"ownerId"`
	DocType    string    `json:"docType"`
	FilePath   string    `json:"filePath"`
	FileSize   int64     `json:"fileSize,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher fans document events out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, evt Event) error {
	telemetry.Info("event.published", map[string]any{
		"type":        evt.Type,
		"document_id": evt.DocumentID,
		"owner_id":    evt.OwnerID,
		"doc_type":    evt.DocType,
	})
	return nil
}

// publishTimeout bounds how long Emit waits on a publisher.
var publishTimeout = 2 * time.Second

// Emit publishes evt and logs failures; event delivery never fails a request.
// The publish outlives cancellation of ctx but is capped by publishTimeout.
func Emit(ctx context.Context, pub Publisher, evt Event) {
	if pub == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := pub.Publish(ctx, evt); err != nil {
		telemetry.Error("event.publish_failed", map[string]any{
			"type":        evt.Type,
			"document_id": evt.DocumentID,
			"error":       err,
		})
	}
}

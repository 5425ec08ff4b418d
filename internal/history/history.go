package history

import (
	"context"
	"time"

	"github.com/appcourier/appcourier/internal/domain"
	"github.com/segmentio/ksuid"
)

// Record is one delivery run, written when the run reaches a terminal state.
// History is advisory: a failed write never fails the run.
type Record struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Identifier     string           `json:"identifier"`
	Title          string           `json:"title"`
	SourceName     string           `json:"source_name,omitempty"`
	ArtifactKind   string           `json:"artifact_kind,omitempty"`
	BytesTotal     int64            `json:"bytes_total"`
	Status         domain.RunStatus `json:"status"`
	Stage          string           `json:"stage,omitempty"`
	Error          string           `json:"error,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
}

// NewRecord starts a record for a run that just began. KSUIDs keep the ids
// chronologically sortable.
func NewRecord(conversationID, identifier, title string) *Record {
	return &Record{
		ID:             ksuid.New().String(),
		ConversationID: conversationID,
		Identifier:     identifier,
		Title:          title,
		StartedAt:      time.Now(),
	}
}

// Store persists delivery records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Recent(ctx context.Context, limit int) ([]*Record, error)
	Close() error
}

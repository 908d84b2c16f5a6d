// Package audit records who changed what. Recorders never fail the caller.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/care"
)

type Entry struct {
	ID         string      `json:"id"`
	ActorID    string      `json:"actor_id"`
	Action     care.Action `json:"action"`
	TargetID   string      `json:"target_id"`
	Detail     string      `json:"detail"`
	RecordedAt time.Time   `json:"recorded_at"`
}

func NewEntry(actorID string, action care.Action, targetID, detail string) Entry {
	return Entry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetID:   targetID,
		Detail:     detail,
		RecordedAt: time.Now().UTC(),
	}
}

// Recorder matches the service's audit collaborator.
type Recorder interface {
	Record(ctx context.Context, actorID string, action care.Action, targetID, detail string)
}

// LogRecorder writes entries to the structured log.
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder(log *zap.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(_ context.Context, actorID string, action care.Action, targetID, detail string) {
	e := NewEntry(actorID, action, targetID, detail)
	r.log.Info("audit",
		zap.String("audit_id", e.ID),
		zap.String("actor_id", e.ActorID),
		zap.String("action", string(e.Action)),
		zap.String("target_id", e.TargetID),
		zap.String("detail", e.Detail),
	)
}

// Multi fans an entry out to every recorder in order.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, actorID string, action care.Action, targetID, detail string) {
	for _, r := range m {
		r.Record(ctx, actorID, action, targetID, detail)
	}
}

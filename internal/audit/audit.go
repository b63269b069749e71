// Package audit records who changed what. Sinks are advisory: callers log
// and drop their errors rather than failing the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one audit trail entry.
type Record struct {
	ID        string    `json:"id" bson:"_id"`
	Actor     string    `json:"actor" bson:"actor"`
	Action    string    `json:"action" bson:"action"`
	Target    string    `json:"target" bson:"target"`
	Details   string    `json:"details" bson:"details"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Sink appends audit records.
type Sink interface {
	Append(ctx context.Context, r Record) error
}

// NewRecord fills in the id and timestamp.
func NewRecord(actor, action, target, details string) Record {
	return Record{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}

package audit

import (
	"context"

	"github.com/compdash/compdash/backend/go-services/pkg/logger"
)

// LogSink writes records to the process log. Used when no database-backed
// audit trail is configured.
type LogSink struct{}

func (LogSink) Append(_ context.Context, r Record) error {
	logger.With("audit_id", r.ID, "actor", r.Actor, "target", r.Target).
		Info("audit: " + r.Action + " " + r.Details)
	return nil
}

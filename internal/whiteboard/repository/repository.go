package repository

import (
	"context"
	"time"

	"github.com/compdash/compdash/backend/go-services/internal/whiteboard"
)

// Row is one persisted whiteboard document. Items holds the stored value in
// its raw decoded form so that callers re-sanitize whatever was written,
// including rows written by older releases.
type Row struct {
	DocumentID string
	Items      any
	Version    int64
	UpdatedAt  time.Time
}

// Repository is the persistence backend for whiteboard documents.
//
// Load returns (nil, nil) when the document has never been written.
// CompareAndSwap stores items at version expected+1 only when the stored
// version still equals expected (an absent row counts as version 0). It
// reports false, with no error, when another writer got there first.
type Repository interface {
	Load(ctx context.Context, documentID string) (*Row, error)
	CompareAndSwap(ctx context.Context, documentID string, expected int64, items []whiteboard.Item, at time.Time) (bool, error)
}

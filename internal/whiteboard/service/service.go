package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/compdash/compdash/backend/go-services/internal/audit"
	"github.com/compdash/compdash/backend/go-services/internal/whiteboard"
	"github.com/compdash/compdash/backend/go-services/internal/whiteboard/repository"
	"github.com/compdash/compdash/backend/go-services/pkg/logger"
	"github.com/compdash/compdash/backend/go-services/pkg/metrics"
)

// ActionSave is the audit action recorded for an accepted write.
const ActionSave = "whiteboard.save"

// ReadResult is either a full snapshot or, when the caller's validator still
// matches, NotModified with no snapshot.
type ReadResult struct {
	Snapshot    *whiteboard.Snapshot
	ETag        string
	NotModified bool
}

// WriteResult is the committed snapshot and its validator.
type WriteResult struct {
	Snapshot *whiteboard.Snapshot
	ETag     string
}

// Service defines the whiteboard operations used by the handler layer.
type Service interface {
	Read(ctx context.Context, documentID, ifNoneMatch string) (*ReadResult, error)
	Write(ctx context.Context, documentID string, baseVersion float64, rawItems any, actor string) (*WriteResult, error)
}

// Store implements Service with optimistic concurrency over a Repository.
// It keeps no document state between calls.
type Store struct {
	repo  repository.Repository
	audit audit.Sink
	now   func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(repo repository.Repository, sink audit.Sink, opts ...Option) *Store {
	if sink == nil {
		sink = audit.LogSink{}
	}
	s := &Store{repo: repo, audit: sink, now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() Service {
	return New(repository.NewMemoryRepo(), audit.LogSink{})
}

// NewMongoService returns a Service backed by MongoDB collections in db.
// Caller is responsible for the client lifecycle.
func NewMongoService(ctx context.Context, db *mongo.Database, boards, auditLog string) (Service, error) {
	repo, err := repository.NewMongoRepo(ctx, db.Collection(boards))
	if err != nil {
		return nil, err
	}
	return New(repo, audit.NewMongoSink(db.Collection(auditLog))), nil
}

// NewPostgresService returns a Service backed by the whiteboards and
// audit_log tables. The schema must already be migrated.
func NewPostgresService(pool *pgxpool.Pool) Service {
	return New(repository.NewPostgresRepo(pool), audit.NewPostgresSink(pool))
}

func (s *Store) Read(ctx context.Context, documentID, ifNoneMatch string) (*ReadResult, error) {
	row, err := s.repo.Load(ctx, documentID)
	if err != nil {
		metrics.WhiteboardReads.WithLabelValues("error").Inc()
		return nil, storageErr("load", err)
	}
	version := int64(0)
	if row != nil {
		version = row.Version
	}
	etag := whiteboard.ETag(documentID, version)
	if whiteboard.MatchesETag(ifNoneMatch, etag) {
		metrics.WhiteboardReads.WithLabelValues("not_modified").Inc()
		return &ReadResult{ETag: etag, NotModified: true}, nil
	}
	metrics.WhiteboardReads.WithLabelValues("ok").Inc()
	return &ReadResult{Snapshot: snapshotOf(documentID, row), ETag: etag}, nil
}

func (s *Store) Write(ctx context.Context, documentID string, baseVersion float64, rawItems any, actor string) (*WriteResult, error) {
	if math.IsNaN(baseVersion) || math.IsInf(baseVersion, 0) || baseVersion < 0 {
		metrics.WhiteboardWrites.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidBaseVersion
	}

	row, err := s.repo.Load(ctx, documentID)
	if err != nil {
		metrics.WhiteboardWrites.WithLabelValues("error").Inc()
		return nil, storageErr("load", err)
	}
	current := snapshotOf(documentID, row)

	// sanitized regardless of the compare outcome
	items := whiteboard.Sanitize(rawItems)

	if baseVersion != float64(current.Version) {
		metrics.WhiteboardWrites.WithLabelValues("conflict").Inc()
		return nil, &ConflictError{BaseVersion: baseVersion, Current: current, ETag: whiteboard.ETag(documentID, current.Version)}
	}

	at := s.now()
	ok, err := s.repo.CompareAndSwap(ctx, documentID, current.Version, items, at)
	if err != nil {
		metrics.WhiteboardWrites.WithLabelValues("error").Inc()
		return nil, storageErr("save", err)
	}
	if !ok {
		// another writer committed between our load and our swap
		row, err := s.repo.Load(ctx, documentID)
		if err != nil {
			metrics.WhiteboardWrites.WithLabelValues("error").Inc()
			return nil, storageErr("reload", err)
		}
		winner := snapshotOf(documentID, row)
		metrics.WhiteboardWrites.WithLabelValues("conflict").Inc()
		return nil, &ConflictError{BaseVersion: baseVersion, Current: winner, ETag: whiteboard.ETag(documentID, winner.Version)}
	}
	metrics.WhiteboardWrites.WithLabelValues("committed").Inc()

	saved := &whiteboard.Snapshot{DocumentID: documentID, Items: items, Version: current.Version + 1, UpdatedAt: at}
	s.record(ctx, actor, saved)
	return &WriteResult{Snapshot: saved, ETag: whiteboard.ETag(documentID, saved.Version)}, nil
}

// record appends the audit entry; its failure never affects the write.
func (s *Store) record(ctx context.Context, actor string, snap *whiteboard.Snapshot) {
	details := fmt.Sprintf("saved whiteboard version %d with %d active items", snap.Version, whiteboard.ActiveCount(snap.Items))
	if err := s.audit.Append(ctx, audit.NewRecord(actor, ActionSave, snap.DocumentID, details)); err != nil {
		metrics.AuditFailures.Inc()
		logger.With("document_id", snap.DocumentID, "actor", actor).Warn("audit append failed", "error", err)
	}
}

func snapshotOf(documentID string, row *repository.Row) *whiteboard.Snapshot {
	if row == nil {
		return &whiteboard.Snapshot{DocumentID: documentID, Items: []whiteboard.Item{}}
	}
	return &whiteboard.Snapshot{
		DocumentID: documentID,
		Items:      whiteboard.Sanitize(row.Items),
		Version:    row.Version,
		UpdatedAt:  row.UpdatedAt,
	}
}

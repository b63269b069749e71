package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/compdash/compdash/backend/go-services/internal/whiteboard"
)

const whiteboardsTable = "whiteboards"

// Querier is the subset of *pgxpool.Pool used by the Postgres adapters.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepo keeps one row per whiteboard in the whiteboards table; the
// primary key on document_id is the serialization point for writers.
type PostgresRepo struct {
	q Querier
}

func NewPostgresRepo(q Querier) *PostgresRepo {
	return &PostgresRepo{q: q}
}

func (p *PostgresRepo) Load(ctx context.Context, documentID string) (*Row, error) {
	query, args, err := psql.
		Select("items", "version", "updated_at").
		From(whiteboardsTable).
		Where(sq.Eq{"document_id": documentID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build load query: %w", err)
	}
	var (
		items     []byte
		version   int64
		updatedAt time.Time
	)
	if err := p.q.QueryRow(ctx, query, args...).Scan(&items, &version, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load whiteboard %s: %w", documentID, err)
	}
	return &Row{
		DocumentID: documentID,
		Items:      whiteboard.DecodeItems(items),
		Version:    version,
		UpdatedAt:  updatedAt,
	}, nil
}

// CompareAndSwap runs one conditional statement. The first write inserts and
// yields nothing when the key already exists; later writes update only the
// row whose version still equals expected. No returned row means the swap lost.
func (p *PostgresRepo) CompareAndSwap(ctx context.Context, documentID string, expected int64, items []whiteboard.Item, at time.Time) (bool, error) {
	if items == nil {
		items = []whiteboard.Item{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("encode whiteboard items: %w", err)
	}

	var b sq.Sqlizer
	if expected == 0 {
		b = psql.
			Insert(whiteboardsTable).
			Columns("document_id", "items", "version", "updated_at").
			Values(documentID, string(payload), int64(1), at).
			Suffix("ON CONFLICT (document_id) DO NOTHING RETURNING version")
	} else {
		b = psql.
			Update(whiteboardsTable).
			Set("items", string(payload)).
			Set("version", expected+1).
			Set("updated_at", at).
			Where(sq.Eq{"document_id": documentID, "version": expected}).
			Suffix("RETURNING version")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("build save query: %w", err)
	}

	var version int64
	if err := p.q.QueryRow(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("save whiteboard %s: %w", documentID, err)
	}
	return version == expected+1, nil
}

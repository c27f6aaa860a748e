package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/appforge/flowcore/pkg/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresGraphSource reads published workflows from the editor's
// workflows table. It serves both the record dispatcher and the public
// hook endpoint.
type PostgresGraphSource struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresGraphSource(db *sql.DB, logger *slog.Logger) *PostgresGraphSource {
	return &PostgresGraphSource{
		db:     db,
		logger: logger.With("module", "dispatch"),
	}
}

// GraphsForApp returns every published workflow of the app.
func (s *PostgresGraphSource) GraphsForApp(ctx context.Context, appID string) ([]StoredGraph, error) {
	query, args, err := psql.
		Select("id", "app_id", "owner_id", "graph").
		From("workflows").
		Where(sq.Eq{"app_id": appID, "published": true}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows for app %s: %w", appID, err)
	}
	defer rows.Close()

	var stored []StoredGraph

	for rows.Next() {
		graph, err := scanStoredGraph(rows)
		if err != nil {
			return nil, err
		}

		stored = append(stored, graph)
	}

	return stored, rows.Err()
}

// ListPublished returns every published workflow. The scheduler scans
// this set at startup for onSchedule triggers.
func (s *PostgresGraphSource) ListPublished(ctx context.Context) ([]StoredGraph, error) {
	query, args, err := psql.
		Select("id", "app_id", "owner_id", "graph").
		From("workflows").
		Where(sq.Eq{"published": true}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list published workflows: %w", err)
	}
	defer rows.Close()

	var stored []StoredGraph

	for rows.Next() {
		graph, err := scanStoredGraph(rows)
		if err != nil {
			return nil, err
		}

		stored = append(stored, graph)
	}

	return stored, rows.Err()
}

// ErrHookUnknown indicates no published workflow owns the hook id.
var ErrHookUnknown = errors.New("unknown hook")

// GraphForHook resolves a public hook id to its workflow and shared
// secret.
func (s *PostgresGraphSource) GraphForHook(ctx context.Context, hookID string) (StoredGraph, string, error) {
	query, args, err := psql.
		Select("id", "app_id", "owner_id", "graph", "coalesce(hook_secret, '')").
		From("workflows").
		Where(sq.Eq{"hook_id": hookID, "published": true}).
		ToSql()
	if err != nil {
		return StoredGraph{}, "", fmt.Errorf("failed to build hook query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, query, args...)

	var (
		stored StoredGraph
		secret string
		raw    []byte
	)

	err = row.Scan(&stored.ID, &stored.AppID, &stored.OwnerID, &raw, &secret)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredGraph{}, "", ErrHookUnknown
	}

	if err != nil {
		return StoredGraph{}, "", fmt.Errorf("failed to load hook %s: %w", hookID, err)
	}

	stored.Graph = &models.Graph{}
	if err := json.Unmarshal(raw, stored.Graph); err != nil {
		return StoredGraph{}, "", fmt.Errorf("failed to decode workflow graph: %w", err)
	}

	return stored, secret, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStoredGraph(row rowScanner) (StoredGraph, error) {
	var (
		stored StoredGraph
		raw    []byte
	)

	if err := row.Scan(&stored.ID, &stored.AppID, &stored.OwnerID, &raw); err != nil {
		return StoredGraph{}, fmt.Errorf("failed to scan workflow row: %w", err)
	}

	stored.Graph = &models.Graph{}
	if err := json.Unmarshal(raw, stored.Graph); err != nil {
		return StoredGraph{}, fmt.Errorf("failed to decode workflow graph: %w", err)
	}

	return stored, nil
}

// Package store persists projects and their analysis records. The Postgres
// implementation lives here behind a DBPool interface so it can be mocked;
// MemoryStore in memory.go backs deployments without a database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/sethyboi74/odemasterpro/api/schemas"
)

// ErrNotFound is returned when a project or record does not exist.
var ErrNotFound = errors.New("not found")

// Repository is the persistence contract consumed by the HTTP layer. It is
// plain CRUD; no business logic lives behind it.
type Repository interface {
	CreateProject(ctx context.Context, name string, files []schemas.SourceFile) (schemas.Project, error)
	GetProject(ctx context.Context, id string) (schemas.Project, error)
	ListProjects(ctx context.Context) ([]schemas.Project, error)
	UpdateProject(ctx context.Context, project schemas.Project) (schemas.Project, error)
	DeleteProject(ctx context.Context, id string) error
	AppendAnalysis(ctx context.Context, projectID string, report schemas.AnalysisReport) (schemas.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, projectID string) ([]schemas.AnalysisRecord, error)
}

// DBPool abstracts the pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL-backed Repository.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection is alive.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS projects (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			files JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS analyses (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			report JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (s *Store) CreateProject(ctx context.Context, name string, files []schemas.SourceFile) (schemas.Project, error) {
	now := time.Now().UTC()
	project := schemas.Project{
		ID:        uuid.New().String(),
		Name:      name,
		Files:     files,
		CreatedAt: now,
		UpdatedAt: now,
	}

	const query = `INSERT INTO projects (id, name, files, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query, project.ID, project.Name, project.Files, project.CreatedAt, project.UpdatedAt); err != nil {
		return schemas.Project{}, fmt.Errorf("failed to insert project: %w", err)
	}

	s.log.Debug("project created", zap.String("id", project.ID), zap.String("name", name))
	return project, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (schemas.Project, error) {
	const query = `SELECT id, name, files, created_at, updated_at FROM projects WHERE id = $1`

	var p schemas.Project
	err := s.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Files, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schemas.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return schemas.Project{}, fmt.Errorf("failed to query project: %w", err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]schemas.Project, error) {
	const query = `SELECT id, name, files, created_at, updated_at FROM projects ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []schemas.Project
	for rows.Next() {
		var p schemas.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Files, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, project schemas.Project) (schemas.Project, error) {
	project.UpdatedAt = time.Now().UTC()

	const query = `UPDATE projects SET name = $2, files = $3, updated_at = $4 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, project.ID, project.Name, project.Files, project.UpdatedAt)
	if err != nil {
		return schemas.Project{}, fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return schemas.Project{}, fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
	}
	return project, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	const query = `DELETE FROM projects WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) AppendAnalysis(ctx context.Context, projectID string, report schemas.AnalysisReport) (schemas.AnalysisRecord, error) {
	record := schemas.AnalysisRecord{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Report:    report,
		CreatedAt: time.Now().UTC(),
	}

	const query = `INSERT INTO analyses (id, project_id, report, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, record.ID, record.ProjectID, record.Report, record.CreatedAt); err != nil {
		return schemas.AnalysisRecord{}, fmt.Errorf("failed to insert analysis: %w", err)
	}
	return record, nil
}

func (s *Store) ListAnalyses(ctx context.Context, projectID string) ([]schemas.AnalysisRecord, error) {
	const query = `SELECT id, project_id, report, created_at FROM analyses WHERE project_id = $1 ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var out []schemas.AnalysisRecord
	for rows.Next() {
		var r schemas.AnalysisRecord
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Report, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sethyboi74/odemasterpro/api/schemas"
)

// MemoryStore is an in-process Repository used when no database is
// configured. Contents are lost on shutdown.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]schemas.Project
	analyses map[string][]schemas.AnalysisRecord // keyed by project ID
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]schemas.Project),
		analyses: make(map[string][]schemas.AnalysisRecord),
	}
}

func (m *MemoryStore) CreateProject(_ context.Context, name string, files []schemas.SourceFile) (schemas.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	project := schemas.Project{
		ID:        uuid.New().String(),
		Name:      name,
		Files:     append([]schemas.SourceFile(nil), files...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.projects[project.ID] = project
	return project, nil
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (schemas.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	project, ok := m.projects[id]
	if !ok {
		return schemas.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return project, nil
}

func (m *MemoryStore) ListProjects(_ context.Context) ([]schemas.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schemas.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateProject(_ context.Context, project schemas.Project) (schemas.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.projects[project.ID]
	if !ok {
		return schemas.Project{}, fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
	}
	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = time.Now().UTC()
	m.projects[project.ID] = project
	return project, nil
}

func (m *MemoryStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	delete(m.projects, id)
	delete(m.analyses, id)
	return nil
}

func (m *MemoryStore) AppendAnalysis(_ context.Context, projectID string, report schemas.AnalysisReport) (schemas.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[projectID]; !ok {
		return schemas.AnalysisRecord{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	record := schemas.AnalysisRecord{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Report:    report,
		CreatedAt: time.Now().UTC(),
	}
	m.analyses[projectID] = append(m.analyses[projectID], record)
	return record, nil
}

func (m *MemoryStore) ListAnalyses(_ context.Context, projectID string) ([]schemas.AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.projects[projectID]; !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return append([]schemas.AnalysisRecord(nil), m.analyses[projectID]...), nil
}

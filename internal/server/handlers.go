// Package server exposes the workshop over HTTP: project CRUD, analysis
// record persistence, and the analyze/apply operations themselves. It is a
// thin layer; all text processing happens in the workshop packages.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sethyboi74/odemasterpro/api/schemas"
	"github.com/sethyboi74/odemasterpro/internal/store"
	"github.com/sethyboi74/odemasterpro/internal/workshop"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handlers carries the dependencies of every HTTP endpoint.
type Handlers struct {
	log      *zap.Logger
	repo     store.Repository
	analyzer *workshop.Analyzer
	patcher  *workshop.Patcher
}

// NewHandlers creates the handler set.
func NewHandlers(logger *zap.Logger, repo store.Repository, analyzer *workshop.Analyzer, patcher *workshop.Patcher) *Handlers {
	return &Handlers{
		log:      logger.Named("handlers"),
		repo:     repo,
		analyzer: analyzer,
		patcher:  patcher,
	}
}

// RegisterRoutes sets up the routing table.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.HandleListProjects)
			r.Post("/", h.HandleCreateProject)
			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", h.HandleGetProject)
				r.Put("/", h.HandleUpdateProject)
				r.Delete("/", h.HandleDeleteProject)
				r.Get("/analyses", h.HandleListAnalyses)
				r.Post("/analyses", h.HandleAppendAnalysis)
			})
		})

		r.Post("/analyze", h.HandleAnalyze)
		r.Post("/apply", h.HandleApply)
	})
}

func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// -- Project CRUD --

type createProjectRequest struct {
	Name  string               `json:"name"`
	Files []schemas.SourceFile `json:"files"`
}

func (h *Handlers) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.respondWithError(w, http.StatusBadRequest, "Project name is required")
		return
	}

	project, err := h.repo.CreateProject(r.Context(), req.Name, req.Files)
	if err != nil {
		h.log.Error("Failed to create project", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Internal error creating project.")
		return
	}
	h.respondWithJSON(w, http.StatusCreated, project)
}

func (h *Handlers) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.repo.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		h.respondWithStoreError(w, err, "retrieving project")
		return
	}
	h.respondWithJSON(w, http.StatusOK, project)
}

func (h *Handlers) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repo.ListProjects(r.Context())
	if err != nil {
		h.log.Error("Failed to list projects", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Internal error listing projects.")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(projects),
		"projects": projects,
	})
}

func (h *Handlers) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var project schemas.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	project.ID = chi.URLParam(r, "projectID")

	updated, err := h.repo.UpdateProject(r.Context(), project)
	if err != nil {
		h.respondWithStoreError(w, err, "updating project")
		return
	}
	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *Handlers) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteProject(r.Context(), chi.URLParam(r, "projectID")); err != nil {
		h.respondWithStoreError(w, err, "deleting project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- Analysis records --

func (h *Handlers) HandleAppendAnalysis(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	project, err := h.repo.GetProject(r.Context(), projectID)
	if err != nil {
		h.respondWithStoreError(w, err, "retrieving project")
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), project.Files)
	if err != nil {
		if errors.Is(err, workshop.ErrEmptyBuffer) {
			h.respondWithError(w, http.StatusBadRequest, "Project has no files to analyze.")
			return
		}
		h.log.Error("Analysis failed", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Internal error running analysis.")
		return
	}

	record, err := h.repo.AppendAnalysis(r.Context(), projectID, report)
	if err != nil {
		h.respondWithStoreError(w, err, "saving analysis")
		return
	}
	h.respondWithJSON(w, http.StatusCreated, record)
}

func (h *Handlers) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.ListAnalyses(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		h.respondWithStoreError(w, err, "listing analyses")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(records),
		"analyses": records,
	})
}

// -- Workshop operations --

type analyzeRequest struct {
	Files []schemas.SourceFile `json:"files"`
}

func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), req.Files)
	if err != nil {
		if errors.Is(err, workshop.ErrEmptyBuffer) {
			h.respondWithError(w, http.StatusBadRequest, "At least one file is required.")
			return
		}
		h.log.Error("Analysis failed", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Internal error running analysis.")
		return
	}
	h.respondWithJSON(w, http.StatusOK, report)
}

type applyRequest struct {
	Buffer string `json:"buffer"`
	// Target is "head" for hint insertion, or a CSS selector.
	Target  string `json:"target"`
	Content string `json:"content,omitempty"`
}

func (h *Handlers) HandleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	var (
		result schemas.PatchResult
		err    error
	)
	if strings.EqualFold(req.Target, "head") {
		resources := h.analyzer.Resources(req.Buffer)
		result, err = h.patcher.ApplyHints(req.Buffer, resources)
	} else {
		result, err = h.patcher.ApplyRule(req.Buffer, req.Target, req.Content)
	}

	switch {
	case err == nil:
		h.respondWithJSON(w, http.StatusOK, result)
	case errors.Is(err, workshop.ErrEmptyBuffer):
		h.respondWithError(w, http.StatusBadRequest, "Buffer is empty.")
	case errors.Is(err, workshop.ErrRuleNotFound):
		h.respondWithError(w, http.StatusNotFound, fmt.Sprintf("No rule matching %q was found.", req.Target))
	case errors.Is(err, workshop.ErrUnbalancedContent):
		h.respondWithError(w, http.StatusBadRequest, "Replacement content has unbalanced braces.")
	default:
		h.log.Error("Apply failed", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Internal error applying patch.")
	}
}

// -- Response helpers --

func (h *Handlers) respondWithStoreError(w http.ResponseWriter, err error, action string) {
	if errors.Is(err, store.ErrNotFound) {
		h.respondWithError(w, http.StatusNotFound, "Project not found.")
		return
	}
	h.log.Error("Store operation failed", zap.String("action", action), zap.Error(err))
	h.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Internal error %s.", action))
}

func (h *Handlers) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

func (h *Handlers) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

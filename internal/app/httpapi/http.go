// Package httpapi is the translation layer between HTTP and the services.
// It parses bodies, maps sentinel errors to status codes, and wraps every
// result in the JSON envelope; no business logic lives here.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jawssame7/taskstack/internal/app/files"
	"github.com/jawssame7/taskstack/internal/app/tasks"
	"github.com/jawssame7/taskstack/internal/contracts"
	"github.com/jawssame7/taskstack/internal/platform/metrics"
)

// TaskService is what the handlers need from the task service.
type TaskService interface {
	Create(ctx context.Context, title, description string) (contracts.Task, error)
	Get(ctx context.Context, id string) (contracts.Task, error)
	List(ctx context.Context) ([]contracts.Task, error)
	Update(ctx context.Context, id string, patch tasks.Patch) (contracts.Task, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// FileService is what the handlers need from the file service.
type FileService interface {
	GenerateUploadURL(ctx context.Context, filename string) (files.UploadGrant, error)
	SaveMetadata(ctx context.Context, fileID, filename, contentType string, size int64) (contracts.FileMetadata, error)
	GetMetadata(ctx context.Context, fileID string) (contracts.FileMetadata, error)
	DownloadURL(ctx context.Context, fileID, filename string) (string, error)
	Delete(ctx context.Context, fileID, filename string) bool
}

// ProbeFunc checks one collaborator for the health endpoint.
type ProbeFunc func(ctx context.Context) error

// Probes holds one probe per collaborator.
type Probes struct {
	Store   ProbeFunc
	Objects ProbeFunc
	Queue   ProbeFunc
}

type Handler struct {
	Tasks  TaskService
	Files  FileService
	Probes Probes
	Logger zerolog.Logger
}

func NewHandler(taskSvc TaskService, fileSvc FileService, probes Probes, logger zerolog.Logger) *Handler {
	return &Handler{Tasks: taskSvc, Files: fileSvc, Probes: probes, Logger: logger}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.corsMiddleware)
	r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/tasks", h.handleCreateTask)
	r.Get("/tasks", h.handleListTasks)
	r.Get("/tasks/{id}", h.handleGetTask)
	r.Put("/tasks/{id}", h.handleUpdateTask)
	r.Delete("/tasks/{id}", h.handleDeleteTask)

	r.Post("/files", h.handleCreateFile)
	r.Get("/files/{id}", h.handleGetFile)
	r.Delete("/files/{id}", h.handleDeleteFile)

	// Service check reachable with any method.
	r.Handle("/api", http.HandlerFunc(h.handleHealth))
	r.Handle("/api/*", http.HandlerFunc(h.handleHealth))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type createFileRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type createFileResponse struct {
	FileID    string                 `json:"fileId"`
	UploadURL string                 `json:"uploadUrl"`
	Metadata  contracts.FileMetadata `json:"metadata"`
}

type fileResponse struct {
	contracts.FileMetadata
	DownloadURL string `json:"downloadUrl"`
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		h.writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}
	task, err := h.Tasks.Create(r.Context(), req.Title, req.Description)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, task)
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tasks.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"tasks": list})
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			h.writeError(w, r, http.StatusNotFound, "task not found")
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, task)
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch tasks.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		h.writeError(w, r, http.StatusBadRequest, "invalid status")
		return
	}
	task, err := h.Tasks.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			h.writeError(w, r, http.StatusNotFound, "task not found")
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, task)
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Tasks.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if !deleted {
		h.writeError(w, r, http.StatusNotFound, "task not found")
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Filename) == "" || strings.TrimSpace(req.ContentType) == "" {
		h.writeError(w, r, http.StatusBadRequest, "filename and contentType are required")
		return
	}
	grant, err := h.Files.GenerateUploadURL(r.Context(), req.Filename)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	meta, err := h.Files.SaveMetadata(r.Context(), grant.FileID, req.Filename, req.ContentType, req.Size)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, createFileResponse{
		FileID:    grant.FileID,
		UploadURL: grant.UploadURL,
		Metadata:  meta,
	})
}

func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	meta, err := h.Files.GetMetadata(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, files.ErrFileNotFound) {
			h.writeError(w, r, http.StatusNotFound, "file not found")
			return
		}
		h.serverError(w, r, err)
		return
	}
	downloadURL, err := h.Files.DownloadURL(r.Context(), meta.ID, meta.Filename)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, fileResponse{FileMetadata: meta, DownloadURL: downloadURL})
}

func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	meta, err := h.Files.GetMetadata(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, files.ErrFileNotFound) {
			h.writeError(w, r, http.StatusNotFound, "file not found")
			return
		}
		h.serverError(w, r, err)
		return
	}
	if !h.Files.Delete(r.Context(), meta.ID, meta.Filename) {
		h.writeError(w, r, http.StatusNotFound, "file not found")
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// handleHealth probes each collaborator and reports a per-service verdict.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	probes := map[string]ProbeFunc{
		"store":   h.Probes.Store,
		"objects": h.Probes.Objects,
		"queue":   h.Probes.Queue,
	}
	services := make(map[string]string, len(probes))
	healthy := true
	for name, probe := range probes {
		if probe == nil {
			services[name] = "error: not configured"
			healthy = false
			continue
		}
		if err := probe(r.Context()); err != nil {
			h.Logger.Warn().Err(err).Str("service", name).Msg("health probe failed")
			services[name] = "error: unavailable"
			healthy = false
			continue
		}
		services[name] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "error"
		code = http.StatusInternalServerError
	}
	h.writeJSON(w, r, code, map[string]any{"status": status, "services": services})
}

// corsMiddleware applies the permissive cross-origin headers every response
// carries.
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	h.writeError(w, r, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	metrics.HTTPRequests.WithLabelValues(r.URL.Path, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, map[string]string{"error": msg})
}

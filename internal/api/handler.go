package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/eugenenazirov/siteconfig/internal/layer"
	"github.com/eugenenazirov/siteconfig/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler serves the published configuration from storage. It never exposes
// secret values: every document and value goes through Config.Masked.
type Handler struct {
	storage storage.Storage

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler reading from store.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	status := "ok"
	if _, err := h.storage.Load(); err != nil {
		status = "pending"
	}
	resp := healthResponse{
		Status:    status,
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	_ = r
	cfg, err := h.storage.Load()
	if err != nil {
		writeStorageError(w, err)
		return
	}

	resp := configResponse{
		Config:  cfg.Masked(),
		Keys:    cfg.Len(),
		Secrets: len(cfg.SecretPaths()),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetValue(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.PathValue("path"), "/")
	path = strings.ReplaceAll(path, "/", layer.Separator)
	if path == "" {
		writeError(w, http.StatusBadRequest, "Invalid path", "a dotted configuration path is required")
		return
	}

	cfg, err := h.storage.Load()
	if err != nil {
		writeStorageError(w, err)
		return
	}

	value, ok := layer.Lookup(cfg.Masked(), path)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown key", path+" is not defined in the resolved configuration")
		return
	}

	source, _ := cfg.Source(path)
	resp := valueResponse{
		Path:   path,
		Value:  value,
		Source: source,
		Secret: cfg.IsSecret(path),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleProvenance(w http.ResponseWriter, r *http.Request) {
	_ = r
	cfg, err := h.storage.Load()
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, provenanceResponse{Sources: cfg.Provenance()})
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type configResponse struct {
	Config  map[string]any `json:"config"`
	Keys    int            `json:"keys"`
	Secrets int            `json:"secrets"`
}

type valueResponse struct {
	Path   string `json:"path"`
	Value  any    `json:"value"`
	Source string `json:"source,omitempty"`
	Secret bool   `json:"secret"`
}

type provenanceResponse struct {
	Sources map[string]string `json:"sources"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrEmpty) {
		writeError(w, http.StatusServiceUnavailable, "Not published", err.Error(), "resolution has not completed yet")
		return
	}
	writeInternalError(w, err)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}

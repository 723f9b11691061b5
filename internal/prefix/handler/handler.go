package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"postcheck/internal/platform/middleware"
	"postcheck/internal/prefix/models"
	dErrors "postcheck/pkg/domain-errors"
	"postcheck/pkg/platform/httputil"
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	List(ctx context.Context) ([]models.Prefix, error)
	Get(ctx context.Context, raw string) (models.Prefix, error)
	Add(ctx context.Context, raw string) (models.Prefix, error)
	Remove(ctx context.Context, raw string) (models.Prefix, error)
}

// AddPrefixRequest is the body of POST /postal_prefixes.
type AddPrefixRequest struct {
	Prefix *string `json:"prefix"`
}

// PrefixResponse is returned by GET /postal_prefixes/{prefix}.
type PrefixResponse struct {
	Prefix string `json:"prefix"`
}

// MessageResponse acknowledges a registry mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

// Handler serves the prefix management endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new prefix Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the prefix routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/postal_prefixes", h.HandleList)
	r.With(middleware.ContentTypeJSON).Post("/postal_prefixes", h.HandleAdd)
	r.Get("/postal_prefixes/{prefix}", h.HandleGet)
	r.Delete("/postal_prefixes/{prefix}", h.HandleRemove)
}

// HandleList returns every registered prefix as a JSON array.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prefixes, err := h.service.List(ctx)
	if err != nil {
		h.logFailure(r, "failed to list prefixes", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.Strings(prefixes))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.pathPrefix(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), raw)
	if err != nil {
		h.logFailure(r, "failed to get prefix", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PrefixResponse{Prefix: p.String()})
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req AddPrefixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "invalid add prefix request",
			"request_id", middleware.GetRequestID(r),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Prefix == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Missing 'prefix' in request body."))
		return
	}

	p, err := h.service.Add(r.Context(), *req.Prefix)
	if err != nil {
		h.logFailure(r, "failed to add prefix", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("Prefix %s added successfully.", p),
	})
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.pathPrefix(w, r)
	if !ok {
		return
	}

	p, err := h.service.Remove(r.Context(), raw)
	if err != nil {
		h.logFailure(r, "failed to remove prefix", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Prefix %s deleted successfully.", p),
	})
}

// pathPrefix returns the decoded {prefix} segment. chi matches against
// r.URL.RawPath when it is set, leaving the param escaped; otherwise the param
// is already decoded and a literal '%' must not be unescaped again.
func (h *Handler) pathPrefix(w http.ResponseWriter, r *http.Request) (string, bool) {
	param := chi.URLParam(r, "prefix")
	if r.URL.RawPath == "" {
		return param, true
	}
	raw, err := url.PathUnescape(param)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid prefix in path"))
		return "", false
	}
	return raw, true
}

// logFailure logs expected outcomes at warn and everything else at error.
func (h *Handler) logFailure(r *http.Request, msg string, err error) {
	ctx := r.Context()
	attrs := []any{"request_id", middleware.GetRequestID(r), "error", err.Error()}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
}

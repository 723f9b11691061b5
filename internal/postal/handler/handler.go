package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"postcheck/internal/platform/middleware"
	"postcheck/internal/postal"
	"postcheck/pkg/platform/httputil"
)

const postalCodeField = "postal_code"

// MissingPostalCode is returned when the request carries no postal_code.
var MissingPostalCode = postal.Result{
	Status:  postal.StatusError,
	Message: "Missing 'postal_code' in request body.",
}

// Classifier defines the interface for postal code classification.
type Classifier interface {
	Classify(ctx context.Context, value any) (postal.Result, error)
}

// Handler serves POST /validate.
type Handler struct {
	classifier Classifier
	logger     *slog.Logger
}

// New creates a new validation Handler.
func New(classifier Classifier, logger *slog.Logger) *Handler {
	return &Handler{classifier: classifier, logger: logger}
}

// Register registers the validation route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.With(middleware.ContentTypeJSON).Post("/validate", h.HandleValidate)
}

// HandleValidate classifies the postal_code of a JSON object body. The value
// is passed on untyped: a number or null is a classification outcome, not a
// malformed request.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(r)

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WarnContext(ctx, "invalid validate request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteJSON(w, http.StatusBadRequest, MissingPostalCode)
		return
	}
	raw, ok := body[postalCodeField]
	if !ok {
		httputil.WriteJSON(w, http.StatusBadRequest, MissingPostalCode)
		return
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, MissingPostalCode)
		return
	}

	result, err := h.classifier.Classify(ctx, value)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to classify postal code",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Status == postal.StatusError {
		status = http.StatusBadRequest
	}
	httputil.WriteJSON(w, status, result)
}

// Package postal classifies postal codes for parcel routing.
//
// A code is first checked for shape, then its two-digit area is looked up in
// the registry of standard delivery areas:
//
//	well-formed, registered area     -> success, "Standard Delivery"
//	well-formed, unregistered area   -> warning, "Special Handling (Non-Standard Area)"
//	malformed                        -> error,   "Special Handling (Invalid Format)"
//	not a string                     -> error,   "Special Handling (Invalid Input Type)"
package postal

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"postcheck/internal/platform/metrics"
	"postcheck/pkg/requestcontext"
)

const tracerName = "postcheck/internal/postal"

// Status is the outcome category of a classification.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

const (
	MessageStandardDelivery = "Standard Delivery"
	MessageNonStandardArea  = "Special Handling (Non-Standard Area)"
	MessageInvalidFormat    = "Special Handling (Invalid Format)"
	MessageInvalidInputType = "Special Handling (Invalid Input Type)"
)

// Result is the outcome of classifying one postal code.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

var (
	resultStandard    = Result{Status: StatusSuccess, Message: MessageStandardDelivery}
	resultNonStandard = Result{Status: StatusWarning, Message: MessageNonStandardArea}
	resultBadFormat   = Result{Status: StatusError, Message: MessageInvalidFormat}
	resultBadType     = Result{Status: StatusError, Message: MessageInvalidInputType}
)

// Registry answers whether an area prefix is a standard delivery area.
type Registry interface {
	Exists(ctx context.Context, prefix string) (bool, error)
}

// Classifier routes postal codes. It holds no mutable state and is safe for
// concurrent use.
type Classifier struct {
	registry Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Classifier)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Classifier) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Classifier) {
		c.tracer = t
	}
}

// New constructs a Classifier backed by registry.
func New(registry Registry, opts ...Option) *Classifier {
	c := &Classifier{registry: registry, tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify decides how a parcel addressed to value is routed. Invalid input is
// a Result, not an error; the error return is reserved for a registry that
// could not be consulted.
func (c *Classifier) Classify(ctx context.Context, value any) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "postal.Classify")
	defer span.End()

	digits, err := ValidateFormat(value)
	if err != nil {
		result := resultBadFormat
		if errors.Is(err, ErrInvalidInputType) {
			result = resultBadType
		}
		return c.finish(span, result), nil
	}

	area := firstRunes(digits, 2)
	span.SetAttributes(attribute.String("area", area))

	standard, err := c.registry.Exists(ctx, area)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registry lookup failed")
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "registry lookup failed",
				"area", area,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return Result{}, err
	}

	if standard {
		return c.finish(span, resultStandard), nil
	}
	return c.finish(span, resultNonStandard), nil
}

func (c *Classifier) finish(span trace.Span, result Result) Result {
	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.String("message", result.Message),
	)
	if c.metrics != nil {
		c.metrics.IncrementClassification(string(result.Status), result.Message)
	}
	return result
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"postcheck/internal/prefix/metrics"
	"postcheck/internal/prefix/models"
	"postcheck/internal/prefix/store"
	dErrors "postcheck/pkg/domain-errors"
	"postcheck/pkg/requestcontext"
)

const tracerName = "postcheck/internal/prefix"

// Store is the persistence contract for the registry. Implementations enforce
// uniqueness on insert and report it as store.ErrAlreadyUsed.
type Store interface {
	List(ctx context.Context) ([]models.Prefix, error)
	Exists(ctx context.Context, prefix models.Prefix) (bool, error)
	Add(ctx context.Context, prefix models.Prefix) error
	Remove(ctx context.Context, prefix models.Prefix) error
	Bootstrap(ctx context.Context, seed []models.Prefix) (bool, error)
	Ping(ctx context.Context) error
}

// Service manages the set of standard delivery area prefixes.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service.
func New(st Store, opts ...Option) *Service {
	s := &Service{store: st, tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every registered prefix.
func (s *Service) List(ctx context.Context) ([]models.Prefix, error) {
	ctx, span := s.tracer.Start(ctx, "prefix.List")
	defer span.End()

	start := time.Now()
	prefixes, err := s.store.List(ctx)
	s.observe("list", start)
	if err != nil {
		return nil, s.fail(span, translate(err, "failed to list prefixes"))
	}
	if prefixes == nil {
		prefixes = []models.Prefix{}
	}
	return prefixes, nil
}

// Get returns the prefix if it is registered.
func (s *Service) Get(ctx context.Context, raw string) (models.Prefix, error) {
	p, err := models.NewPrefix(raw)
	if err != nil {
		return "", err
	}

	ok, err := s.Exists(ctx, p.String())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("prefix %s not found", p))
	}
	return p, nil
}

// Exists reports registry membership. A key that could never be registered is
// simply not a member.
func (s *Service) Exists(ctx context.Context, raw string) (bool, error) {
	p, err := models.NewPrefix(raw)
	if err != nil {
		return false, nil
	}

	ctx, span := s.tracer.Start(ctx, "prefix.Exists", trace.WithAttributes(attribute.String("prefix", p.String())))
	defer span.End()

	start := time.Now()
	ok, err := s.store.Exists(ctx, p)
	s.observe("exists", start)
	if err != nil {
		return false, s.fail(span, translate(err, "failed to look up prefix"))
	}
	span.SetAttributes(attribute.Bool("exists", ok))
	return ok, nil
}

// Add registers a new prefix. A prefix that is already registered yields a
// CodeConflict error; the store decides, not a prior lookup.
func (s *Service) Add(ctx context.Context, raw string) (models.Prefix, error) {
	p, err := models.NewPrefix(raw)
	if err != nil {
		return "", err
	}

	ctx, span := s.tracer.Start(ctx, "prefix.Add", trace.WithAttributes(attribute.String("prefix", p.String())))
	defer span.End()

	start := time.Now()
	err = s.store.Add(ctx, p)
	s.observe("add", start)
	if err != nil {
		s.recordMutation("add", err)
		if errors.Is(err, store.ErrAlreadyUsed) {
			return "", s.fail(span, dErrors.Wrap(err, dErrors.CodeConflict, fmt.Sprintf("prefix %s already exists", p)))
		}
		s.logError(ctx, "prefix_add_failed", p, err)
		return "", s.fail(span, translate(err, "failed to add prefix"))
	}

	s.recordMutation("add", nil)
	s.logEvent(ctx, "prefix_added", p)
	return p, nil
}

// Remove unregisters a prefix. A prefix that is not registered yields a
// CodeNotFound error.
func (s *Service) Remove(ctx context.Context, raw string) (models.Prefix, error) {
	p, err := models.NewPrefix(raw)
	if err != nil {
		return "", err
	}

	ctx, span := s.tracer.Start(ctx, "prefix.Remove", trace.WithAttributes(attribute.String("prefix", p.String())))
	defer span.End()

	start := time.Now()
	err = s.store.Remove(ctx, p)
	s.observe("remove", start)
	if err != nil {
		s.recordMutation("remove", err)
		if errors.Is(err, store.ErrNotFound) {
			return "", s.fail(span, dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("prefix %s not found", p)))
		}
		s.logError(ctx, "prefix_remove_failed", p, err)
		return "", s.fail(span, translate(err, "failed to remove prefix"))
	}

	s.recordMutation("remove", nil)
	s.logEvent(ctx, "prefix_removed", p)
	return p, nil
}

// Bootstrap seeds the registry on first initialization. Later calls, and calls
// against a store that already holds prefixes, leave the registry untouched.
func (s *Service) Bootstrap(ctx context.Context, seed []string) (bool, error) {
	prefixes, err := models.ParseAll(seed)
	if err != nil {
		return false, err
	}

	ctx, span := s.tracer.Start(ctx, "prefix.Bootstrap", trace.WithAttributes(attribute.Int("seed_size", len(prefixes))))
	defer span.End()

	start := time.Now()
	seeded, err := s.store.Bootstrap(ctx, prefixes)
	s.observe("bootstrap", start)
	if err != nil {
		return false, s.fail(span, translate(err, "failed to seed prefixes"))
	}

	span.SetAttributes(attribute.Bool("seeded", seeded))
	if seeded {
		if s.metrics != nil {
			s.metrics.BootstrapsApplied.Inc()
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "prefix registry seeded", "event", "prefix_registry_seeded", "count", len(prefixes))
		}
	}
	return seeded, nil
}

// Health reports whether the backing store is reachable.
func (s *Service) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "prefix store unavailable")
	}
	return nil
}

// translate maps store failures that are not domain outcomes. Every one of
// them surfaces as CodeInternal; an unreachable store is additionally tagged
// CodeUnavailable underneath.
func translate(err error, msg string) error {
	if errors.Is(err, store.ErrUnavailable) {
		err = dErrors.Wrap(err, dErrors.CodeUnavailable, "prefix store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
}

func (s *Service) recordMutation(op string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAlreadyUsed):
		outcome = metrics.OutcomeConflict
	case errors.Is(err, store.ErrNotFound):
		outcome = metrics.OutcomeNotFound
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.IncrementMutation(op, outcome)
}

func (s *Service) logEvent(ctx context.Context, event string, p models.Prefix) {
	if s.logger == nil {
		return
	}
	args := []any{"event", event, "prefix", p.String()}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, event, args...)
}

func (s *Service) logError(ctx context.Context, event string, p models.Prefix, err error) {
	if s.logger == nil {
		return
	}
	args := []any{"event", event, "prefix", p.String(), "error", err}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.ErrorContext(ctx, event, args...)
}

// Package prefix is the registry of standard delivery area prefixes.
package prefix

import (
	"log/slog"

	"postcheck/internal/prefix/handler"
	"postcheck/internal/prefix/service"
)

// Service manages the prefix registry.
type Service = service.Service

// Store is the persistence contract a registry backend must meet.
type Store = service.Store

// Handler wires HTTP endpoints to the registry service.
type Handler = handler.Handler

// NewService constructs the registry service over the given store.
func NewService(store Store, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

// NewHandler constructs the HTTP handler for the prefix management routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}

// Package store holds what the prefix registry backends share: the sentinel
// errors they return and the classification of connection failures.
//
// Every backend enforces prefix uniqueness at the point of insertion (a UNIQUE
// constraint, a set add, or a map write under a lock). None of them checks for
// existence before inserting.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"

	"postcheck/pkg/platform/sentinel"
)

var (
	ErrNotFound    = sentinel.ErrNotFound
	ErrAlreadyUsed = sentinel.ErrAlreadyUsed
	ErrUnavailable = sentinel.ErrUnavailable
)

// BootstrapName marks the one-time seeding of the registry.
const BootstrapName = "postal_prefixes_seed"

// Wrap annotates a backend error with the operation that failed. Failures to
// reach the backend additionally wrap ErrUnavailable.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsConnectionError reports whether err means the backend could not be reached,
// as opposed to the backend rejecting the operation.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

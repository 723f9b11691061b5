package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))

	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23502"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "42P01"}))
	assert.False(t, isUniqueViolation(errors.New("duplicate key")))
}

//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"postcheck/internal/prefix/store/postgres"
	"postcheck/internal/prefix/store/storetest"
	"postcheck/pkg/testutil/containers"
)

func TestPostgresStoreContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	require.NoError(t, postgres.NewPostgres(pg.DB).EnsureSchema(ctx))

	suite.Run(t, &storetest.Suite{
		NewStore: func(t *testing.T) storetest.Store {
			require.NoError(t, pg.TruncateTables(ctx, "postal_prefixes", "registry_bootstrap"))
			return postgres.NewPostgres(pg.DB)
		},
	})
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pg := containers.NewPostgresContainer(t)
	s := postgres.NewPostgres(pg.DB)
	ctx := context.Background()

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSchema(ctx))
}

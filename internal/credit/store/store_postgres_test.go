//go:build integration

package store

import (
	"context"
	"testing"

	"vatgate/pkg/testutil/containers"

	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := NewPostgres(pg.DB)
	require.NoError(t, s.Migrate(context.Background()))

	runStoreContract(t, func(t *testing.T) creditStore {
		require.NoError(t, pg.Truncate(context.Background(), "credit_ledger", "credit_accounts"))
		return s
	})
}

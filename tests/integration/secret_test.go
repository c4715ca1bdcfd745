package integration

import (
	"context"
	"testing"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/internal/variables"
	"github.com/dimitrije/nikode-engine/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secretsKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newSecretService(t *testing.T, tdb *testutil.TestDB) *services.SecretService {
	t.Helper()
	box, err := services.NewSecretBox(secretsKey)
	require.NoError(t, err)
	return services.NewSecretService(tdb.DB, box)
}

func TestSecretService_Integration_StoredSealed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := newSecretService(t, tdb)
	ctx := context.Background()

	col := fixtures.CreateCollection(t, uuid.New())
	require.NoError(t, svc.SetCollectionSecret(ctx, col.ID, "token", "first"))
	require.NoError(t, svc.SetCollectionSecret(ctx, col.ID, "token", "second"))

	var raw string
	err := tdb.DB.Pool.QueryRow(ctx, `SELECT value FROM secrets WHERE collection_id = $1`, col.ID).Scan(&raw)
	require.NoError(t, err)
	assert.NotContains(t, raw, "second")

	secrets, err := svc.CollectionSecrets(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Variable{{Key: "token", Value: "second"}}, secrets)

	require.NoError(t, svc.DeleteCollectionSecret(ctx, col.ID, "token"))
	assert.ErrorIs(t, svc.DeleteCollectionSecret(ctx, col.ID, "token"), services.ErrSecretNotFound)
}

func TestResolver_Integration_Precedence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	secrets := newSecretService(t, tdb)
	collections := services.NewCollectionService(tdb.DB)
	ctx := context.Background()
	ownerID := uuid.New()

	col := fixtures.CreateCollection(t, ownerID, testutil.WithVariables(
		models.Variable{Key: "host", Value: "inline.local"},
		models.Variable{Key: "token", Value: "inline"},
		models.Variable{Key: "user", Value: "inline-user"},
	))
	env := fixtures.CreateEnvironment(t, ownerID)
	require.NoError(t, secrets.SetCollectionSecret(ctx, col.ID, "token", "collection"))
	require.NoError(t, secrets.SetCollectionSecret(ctx, col.ID, "host", "collection.local"))
	require.NoError(t, secrets.SetEnvironmentSecret(ctx, env.ID, "host", "env.local"))

	col, err := collections.Update(ctx, col.ID, services.CollectionUpdate{EnvironmentID: &env.ID})
	require.NoError(t, err)

	lookup, err := variables.NewResolver(secrets).Lookup(ctx, col)
	require.NoError(t, err)

	assert.Equal(t, "https://env.local/collection/inline-user/{{missing}}",
		lookup.Expand("https://{{host}}/{{token}}/{{user}}/{{missing}}"))
}

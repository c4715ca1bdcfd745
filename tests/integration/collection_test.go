package integration

import (
	"context"
	"testing"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionService_Integration_Create(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	svc := services.NewCollectionService(tdb.DB)
	ctx := context.Background()
	ownerID := uuid.New()

	col, err := svc.Create(ctx, ownerID, "Test Collection", "desc", []models.Variable{{Key: "baseUrl", Value: "http://localhost"}})

	require.NoError(t, err)
	assert.NotEmpty(t, col.ID)
	assert.Equal(t, ownerID, col.OwnerID)
	assert.Equal(t, "Test Collection", col.Name)
	assert.Equal(t, models.DefaultTimeoutSeconds, col.Timeout)
	assert.True(t, col.FollowRedirects)
	assert.Equal(t, []models.Variable{{Key: "baseUrl", Value: "http://localhost"}}, col.Variables)
	assert.Nil(t, col.EnvironmentID)
}

func TestCollectionService_Integration_ListByOwner(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewCollectionService(tdb.DB)
	ctx := context.Background()
	ownerID := uuid.New()

	fixtures.CreateCollection(t, ownerID)
	fixtures.CreateCollection(t, ownerID)
	fixtures.CreateCollection(t, uuid.New())

	collections, err := svc.ListByOwner(ctx, ownerID)

	require.NoError(t, err)
	assert.Len(t, collections, 2)
}

func TestCollectionService_Integration_EnvironmentLink(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewCollectionService(tdb.DB)
	ctx := context.Background()
	ownerID := uuid.New()

	col := fixtures.CreateCollection(t, ownerID)
	env := fixtures.CreateEnvironment(t, ownerID)
	timeout := 900

	updated, err := svc.Update(ctx, col.ID, services.CollectionUpdate{EnvironmentID: &env.ID, Timeout: &timeout})
	require.NoError(t, err)
	require.NotNil(t, updated.EnvironmentID)
	assert.Equal(t, env.ID, *updated.EnvironmentID)
	assert.Equal(t, models.MaxTimeoutSeconds, updated.Timeout)

	unlinked, err := svc.Update(ctx, col.ID, services.CollectionUpdate{UnlinkEnv: true})
	require.NoError(t, err)
	assert.Nil(t, unlinked.EnvironmentID)
}

func TestCollectionService_Integration_DeleteCascades(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewCollectionService(tdb.DB)
	requests := services.NewRequestService(tdb.DB)
	ctx := context.Background()

	col := fixtures.CreateCollection(t, uuid.New())
	fixtures.CreateFolder(t, col, nil)
	req := fixtures.CreateRequest(t, col, "http://localhost/ping")

	require.NoError(t, svc.Delete(ctx, col.ID))

	_, err := requests.GetByID(ctx, req.ID)
	assert.ErrorIs(t, err, services.ErrRequestNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, col.ID), services.ErrCollectionNotFound)
}

func TestFolderService_Integration_Move(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewFolderService(tdb.DB)
	ctx := context.Background()

	col := fixtures.CreateCollection(t, uuid.New())
	root := fixtures.CreateFolder(t, col, nil)
	child := fixtures.CreateFolder(t, col, root)
	grandchild := fixtures.CreateFolder(t, col, child)
	other := fixtures.CreateFolder(t, fixtures.CreateCollection(t, uuid.New()), nil)

	_, err := svc.Move(ctx, root.ID, &grandchild.ID)
	assert.ErrorIs(t, err, services.ErrFolderCycle)

	_, err = svc.Move(ctx, root.ID, &other.ID)
	assert.ErrorIs(t, err, services.ErrFolderCrossCollection)

	moved, err := svc.Move(ctx, grandchild.ID, nil)
	require.NoError(t, err)
	assert.True(t, moved.IsRoot())

	moved, err = svc.Move(ctx, root.ID, &grandchild.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentFolderID)
	assert.Equal(t, grandchild.ID, *moved.ParentFolderID)
}

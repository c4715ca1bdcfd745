package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/dimitrije/nikode-engine/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testEmail = "test@example.com"

func newTestJWTService() *services.JWTService {
	return services.NewJWTService("test-secret-key", 15*time.Minute)
}

func generateTestToken(t *testing.T, jwtSvc *services.JWTService, userID uuid.UUID, email string) string {
	t.Helper()
	token, err := jwtSvc.GenerateAccessToken(userID, email)
	require.NoError(t, err)
	return token
}

func authHeaders(t *testing.T, jwtSvc *services.JWTService, userID uuid.UUID) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": testutil.AuthHeader(generateTestToken(t, jwtSvc, userID, testEmail))}
}

// doJSON serves one request through app as userID and returns the recorder.
func doJSON(t *testing.T, app http.Handler, jwtSvc *services.JWTService, userID uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.NewHTTPTestClient(t, app).Request(method, path, body, authHeaders(t, jwtSvc, userID))
}

func testCollection(ownerID uuid.UUID) *models.Collection {
	return &models.Collection{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Name:            "Users API",
		Variables:       []models.Variable{{Key: "baseUrl", Value: "https://api.example.com"}},
		FollowRedirects: true,
		Timeout:         45,
	}
}

func testRequest(collectionID uuid.UUID) *models.Request {
	return &models.Request{
		ID:           uuid.New(),
		CollectionID: collectionID,
		Name:         "Get user",
		Saved: models.RequestFields{
			Method:      "GET",
			URL:         "{{baseUrl}}/users/:id",
			Headers:     []models.KeyValue{{ID: "h1", Key: "Accept", Value: "application/json", Enabled: true}},
			Params:      []models.KeyValue{},
			PathParams:  []models.KeyValue{{ID: "p1", Key: "id", Value: "{{userId}}", Enabled: true}},
			RequestType: models.RequestTypeNone,
		},
	}
}

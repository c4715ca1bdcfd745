package variables

import (
	"context"
	"errors"
	"testing"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSecrets struct {
	mock.Mock
}

func (m *mockSecrets) CollectionSecrets(ctx context.Context, collectionID uuid.UUID) ([]models.Variable, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Variable), args.Error(1)
}

func (m *mockSecrets) EnvironmentSecrets(ctx context.Context, environmentID uuid.UUID) ([]models.Variable, error) {
	args := m.Called(ctx, environmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Variable), args.Error(1)
}

func TestResolver_Precedence(t *testing.T) {
	ctx := context.Background()
	envID := uuid.New()
	col := &models.Collection{
		ID:            uuid.New(),
		EnvironmentID: &envID,
		Variables:     []models.Variable{{Key: "a", Value: "1"}},
	}
	fields := models.RequestFields{URL: "{{a}}"}

	tests := []struct {
		name       string
		collection []models.Variable
		env        []models.Variable
		want       string
	}{
		{"environment wins", []models.Variable{{Key: "a", Value: "2"}}, []models.Variable{{Key: "a", Value: "3"}}, "3"},
		{"collection secret next", []models.Variable{{Key: "a", Value: "2"}}, nil, "2"},
		{"inline last", nil, nil, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secrets := new(mockSecrets)
			secrets.On("CollectionSecrets", ctx, col.ID).Return(tt.collection, nil)
			secrets.On("EnvironmentSecrets", ctx, envID).Return(tt.env, nil)

			resolved, err := NewResolver(secrets).Resolve(ctx, col, fields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resolved.URL)
			secrets.AssertExpectations(t)
		})
	}
}

func TestResolver_NoEnvironment(t *testing.T) {
	ctx := context.Background()
	col := &models.Collection{ID: uuid.New(), Variables: []models.Variable{{Key: "host", Value: "localhost"}}}

	secrets := new(mockSecrets)
	secrets.On("CollectionSecrets", ctx, col.ID).Return([]models.Variable{}, nil)

	lookup, err := NewResolver(secrets).Lookup(ctx, col)
	require.NoError(t, err)
	assert.Equal(t, Lookup{"host": "localhost"}, lookup)
	secrets.AssertNotCalled(t, "EnvironmentSecrets", mock.Anything, mock.Anything)
}

func TestResolver_SecretError(t *testing.T) {
	ctx := context.Background()
	col := &models.Collection{ID: uuid.New()}

	secrets := new(mockSecrets)
	secrets.On("CollectionSecrets", ctx, col.ID).Return(nil, errors.New("db down"))

	_, err := NewResolver(secrets).Resolve(ctx, col, models.RequestFields{})
	assert.Error(t, err)
}

func TestLookup_Expand(t *testing.T) {
	l := Lookup{"host": "api.local", "id": "7", "empty": ""}

	assert.Equal(t, "{{missing}}", l.Expand("{{missing}}"))
	assert.Equal(t, "https://api.local/users/7", l.Expand("https://{{host}}/users/{{ id }}"))
	assert.Equal(t, "x", l.Expand("x{{empty}}"))
	assert.Equal(t, "{{}}", l.Expand("{{}}"))
	assert.Equal(t, "{{host", l.Expand("{{host"))
	assert.Equal(t, []string{"missing"}, l.Unresolved("{{host}}/{{missing}}"))
}

func TestLookup_Apply(t *testing.T) {
	l := Merge(
		[]models.Variable{{Key: "token", Value: "inline"}, {Key: "hdr", Value: "X-Auth"}},
		[]models.Variable{{Key: "token", Value: "secret"}},
	)
	fields := models.RequestFields{
		URL:        "{{baseUrl}}/u/:id?q={{token}}",
		Headers:    []models.KeyValue{{Key: "{{hdr}}", Value: "Bearer {{token}}", Enabled: true}},
		Params:     []models.KeyValue{{Key: "{{token}}", Value: "{{token}}", Enabled: true}},
		PathParams: []models.KeyValue{{Key: "id", Value: "{{token}}", Enabled: true}},
		Body:       `{"t":"{{token}}"}`,
		FormData: []models.KeyValue{
			{Key: "f-{{token}}", Value: "{{token}}", Type: models.FieldTypeText},
			{Key: "upload", Value: "/tmp/{{token}}.bin", Type: models.FieldTypeFile},
		},
		URLEncodedData: []models.KeyValue{{Key: "k", Value: "{{token}}"}},
	}

	out := l.Apply(fields)

	assert.Equal(t, "{{baseUrl}}/u/:id?q=secret", out.URL)
	assert.Equal(t, "X-Auth", out.Headers[0].Key)
	assert.Equal(t, "Bearer secret", out.Headers[0].Value)
	assert.Equal(t, "{{token}}", out.Params[0].Key)
	assert.Equal(t, "secret", out.Params[0].Value)
	assert.Equal(t, "secret", out.PathParams[0].Value)
	assert.Equal(t, `{"t":"secret"}`, out.Body)
	assert.Equal(t, "f-secret", out.FormData[0].Key)
	assert.Equal(t, "secret", out.FormData[0].Value)
	assert.Equal(t, "/tmp/{{token}}.bin", out.FormData[1].Value)
	assert.Equal(t, "secret", out.URLEncodedData[0].Value)

	assert.Equal(t, "Bearer {{token}}", fields.Headers[0].Value, "input must not be mutated")
}

func TestLookup_UnresolvedFields(t *testing.T) {
	l := Merge([]models.Variable{{Key: "baseUrl", Value: "https://api"}})
	fields := models.RequestFields{
		URL:     "{{baseUrl}}/{{ version }}/users",
		Body:    `{"a":"{{token}}"}`,
		Headers: []models.KeyValue{
			{Key: "X-Token", Value: "{{token}}", Enabled: true},
			{Key: "X-Off", Value: "{{disabled}}", Enabled: false},
		},
		FormData: []models.KeyValue{{Key: "file", Value: "/tmp/{{path}}", Type: models.FieldTypeFile, Enabled: true}},
	}

	assert.Equal(t, []string{"token", "version"}, l.UnresolvedFields(fields))
	assert.Empty(t, l.UnresolvedFields(models.RequestFields{URL: "{{baseUrl}}"}))
}

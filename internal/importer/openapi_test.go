package importer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersSpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Users API", "version": "1.0.0"},
  "servers": [{"url": "https://api.example.com"}],
  "paths": {
    "/users/{id}": {
      "get": {
        "tags": ["Users"],
        "summary": "Get user",
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}]
      }
    }
  }
}`

func TestOpenAPIImporter_UsersScenario(t *testing.T) {
	result, err := NewOpenAPIImporter().Import([]byte(usersSpec), "")
	require.NoError(t, err)

	assert.Equal(t, "Users API", result.CollectionName)
	require.Len(t, result.Variables, 1)
	assert.Equal(t, models.Variable{Key: "baseUrl", Value: "https://api.example.com"}, result.Variables[0])

	require.Len(t, result.Folders, 1)
	assert.Equal(t, "Users", result.Folders[0].Name)

	require.Len(t, result.Requests, 1)
	req := result.Requests[0]
	assert.Equal(t, "Get user", req.Name)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "{{baseUrl}}/users/:id", req.URL)
	require.Len(t, req.PathParams, 1)
	assert.Equal(t, "id", req.PathParams[0].Key)
	assert.True(t, req.PathParams[0].Enabled)
	require.NotNil(t, req.FolderID)
	assert.Equal(t, result.Folders[0].ID, *req.FolderID)
	assert.Equal(t, models.RequestTypeNone, req.RequestType)
}

func TestOpenAPIImporter_YAML(t *testing.T) {
	doc := `
openapi: 3.0.0
info:
  title: Pets
servers:
  - url: https://{region}.pets.io/v1/
    variables:
      region:
        default: eu
        enum: [eu, us]
paths:
  /pets:
    post:
      operationId: createPet
      parameters:
        - name: X-Trace
          in: header
          example: abc
        - name: dry
          in: query
          schema:
            type: boolean
            default: false
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        201:
          description: created
components:
  schemas:
    Pet:
      type: object
      properties:
        name:
          type: string
        born:
          type: string
          format: date
`
	result, err := NewOpenAPIImporter().Import([]byte(doc), "Override")
	require.NoError(t, err)

	assert.Equal(t, "Override", result.CollectionName)
	assert.Equal(t, []models.Variable{
		{Key: "baseUrl", Value: "https://{{region}}.pets.io/v1"},
		{Key: "region", Value: "eu"},
	}, result.Variables)

	require.Len(t, result.Folders, 1)
	assert.Equal(t, normalize.DefaultFolderName, result.Folders[0].Name)

	require.Len(t, result.Requests, 1)
	req := result.Requests[0]
	assert.Equal(t, "createPet", req.Name)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "{{baseUrl}}/pets?dry=false", req.URL)
	require.Len(t, req.Headers, 1)
	assert.Equal(t, "X-Trace", req.Headers[0].Key)
	assert.Equal(t, "abc", req.Headers[0].Value)
	require.Len(t, req.Params, 1)
	assert.Equal(t, "false", req.Params[0].Value)

	assert.Equal(t, models.RequestTypeRaw, req.RequestType)
	assert.Equal(t, normalize.ContentTypeJSON, req.ContentType)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &body))
	assert.Equal(t, map[string]any{"name": "string", "born": "2024-01-01"}, body)
}

func TestOpenAPIImporter_CyclicReference(t *testing.T) {
	doc := `{
  "openapi": "3.1.0",
  "info": {"title": "Cycles"},
  "paths": {
    "/a": {
      "post": {
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/A"}}}}
      }
    }
  },
  "components": {
    "schemas": {
      "A": {"type": "object", "properties": {"b": {"$ref": "#/components/schemas/B"}}},
      "B": {"type": "object", "properties": {"a": {"$ref": "#/components/schemas/A"}}}
    }
  }
}`
	result, err := NewOpenAPIImporter().Import([]byte(doc), "")
	require.NoError(t, err)
	require.Len(t, result.Requests, 1)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Requests[0].Body), &body))
	assert.Equal(t, map[string]any{"b": map[string]any{"a": map[string]any{}}}, body)
	assert.Equal(t, DefaultBaseURL, result.Variables[0].Value)
}

func TestSchemaResolver_UnresolvedReference(t *testing.T) {
	doc := `{
  "openapi": "3.0.0",
  "info": {"title": "Broken"},
  "paths": {
    "/x": {"put": {"requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Missing"}}}}}}
  }
}`
	result, err := NewOpenAPIImporter().Import([]byte(doc), "")
	require.NoError(t, err)
	require.Len(t, result.Requests, 1)
	assert.Equal(t, "{}", result.Requests[0].Body)
}

func TestOpenAPIImporter_Composition(t *testing.T) {
	doc := `{
  "openapi": "3.0.0",
  "info": {"title": "Compose"},
  "paths": {
    "/c": {"post": {"requestBody": {"content": {"application/json": {"schema": {
      "allOf": [
        {"type": "object", "properties": {"id": {"type": "string", "format": "uuid"}}},
        {"type": "object", "properties": {"kind": {"type": "string", "enum": ["cat", "dog"]}}}
      ]
    }}}}}},
    "/o": {"post": {"requestBody": {"content": {"application/json": {"schema": {
      "oneOf": [{"type": "array", "items": {"type": "integer"}}, {"type": "string"}]
    }}}}}}
  }
}`
	result, err := NewOpenAPIImporter().Import([]byte(doc), "")
	require.NoError(t, err)
	require.Len(t, result.Requests, 2)

	var merged map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Requests[0].Body), &merged))
	assert.Equal(t, map[string]any{"id": "00000000-0000-0000-0000-000000000000", "kind": "cat"}, merged)

	var first []any
	require.NoError(t, json.Unmarshal([]byte(result.Requests[1].Body), &first))
	assert.Equal(t, []any{float64(0)}, first)
}

func TestOpenAPIImporter_FormBodies(t *testing.T) {
	doc := `{
  "openapi": "3.0.0",
  "info": {"title": "Forms"},
  "paths": {
    "/upload": {"post": {"requestBody": {"content": {
      "multipart/form-data": {"schema": {"type": "object", "properties": {
        "file": {"type": "string", "format": "binary"},
        "note": {"type": "string", "example": "hi"}
      }}},
      "text/plain": {"schema": {"type": "string"}}
    }}}},
    "/login": {"post": {"requestBody": {"content": {
      "application/x-www-form-urlencoded": {"schema": {"type": "object", "properties": {"user": {"type": "string"}}}},
      "multipart/form-data": {"schema": {"type": "object"}}
    }}}}
  }
}`
	result, err := NewOpenAPIImporter().Import([]byte(doc), "")
	require.NoError(t, err)
	require.Len(t, result.Requests, 2)

	login := result.Requests[0]
	assert.Equal(t, models.RequestTypeURLEncoded, login.RequestType)
	require.Len(t, login.URLEncodedData, 1)
	assert.Equal(t, "user", login.URLEncodedData[0].Key)

	upload := result.Requests[1]
	assert.Equal(t, models.RequestTypeFormData, upload.RequestType)
	assert.Equal(t, normalize.ContentTypeMultipart, upload.ContentType)
	require.Len(t, upload.FormData, 2)
	assert.Equal(t, "file", upload.FormData[0].Key)
	assert.True(t, upload.FormData[0].IsFile())
	assert.Equal(t, "note", upload.FormData[1].Key)
	assert.Equal(t, "hi", upload.FormData[1].Value)
}

func TestOpenAPIImporter_ParameterRefsAndOverride(t *testing.T) {
	doc := `{
  "openapi": "3.0.0",
  "info": {"title": "Refs"},
  "paths": {
    "/items/{itemId}": {
      "parameters": [
        {"$ref": "#/components/parameters/ItemID"},
        {"name": "limit", "in": "query", "schema": {"type": "integer", "default": 10}}
      ],
      "get": {"parameters": [{"name": "limit", "in": "query", "example": 5}]},
      "delete": {"tags": ["Admin"]}
    }
  },
  "components": {
    "parameters": {
      "ItemID": {"name": "itemId", "in": "path", "required": true, "example": "abc"}
    }
  }
}`
	result, err := NewOpenAPIImporter().Import([]byte(doc), "")
	require.NoError(t, err)
	require.Len(t, result.Requests, 2)
	assert.Equal(t, []string{"Default", "Admin"}, result.FolderNames())

	get := result.Requests[0]
	assert.Equal(t, "GET /items/{itemId}", get.Name)
	assert.Equal(t, "{{baseUrl}}/items/:itemId?limit=5", get.URL)
	require.Len(t, get.PathParams, 1)
	assert.Equal(t, "abc", get.PathParams[0].Value)

	del := result.Requests[1]
	assert.Equal(t, "DELETE", del.Method)
	assert.Equal(t, "{{baseUrl}}/items/:itemId?limit=10", del.URL)
}

func TestOpenAPIImporter_Swagger2(t *testing.T) {
	doc := `
swagger: "2.0"
info:
  title: Store
  description: legacy
host: store.example.com
basePath: /api/
schemes: [http]
consumes: [application/json]
paths:
  /orders/{orderId}:
    put:
      tags: [Orders]
      summary: Replace order
      parameters:
        - name: orderId
          in: path
          type: string
          required: true
        - name: body
          in: body
          schema:
            $ref: '#/definitions/Order'
  /avatar:
    post:
      tags: [Users]
      consumes: [multipart/form-data]
      parameters:
        - name: image
          in: formData
          type: file
        - name: caption
          in: formData
          type: string
          default: me
definitions:
  Order:
    type: object
    properties:
      qty:
        type: integer
      parent:
        $ref: '#/definitions/Order'
`
	result, err := NewOpenAPIImporter().Import([]byte(doc), "")
	require.NoError(t, err)

	assert.Equal(t, "Store", result.CollectionName)
	assert.Equal(t, "legacy", result.Description)
	assert.Equal(t, "http://store.example.com/api", result.Variables[0].Value)
	assert.Equal(t, []string{"Users", "Orders"}, result.FolderNames())
	require.Len(t, result.Requests, 2)

	avatar := result.Requests[0]
	assert.Equal(t, models.RequestTypeFormData, avatar.RequestType)
	require.Len(t, avatar.FormData, 2)
	assert.True(t, avatar.FormData[0].IsFile())
	assert.Equal(t, "me", avatar.FormData[1].Value)

	order := result.Requests[1]
	assert.Equal(t, "{{baseUrl}}/orders/:orderId", order.URL)
	assert.Equal(t, normalize.ContentTypeJSON, order.ContentType)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(order.Body), &body))
	assert.Equal(t, map[string]any{"qty": float64(0), "parent": map[string]any{}}, body)
}

func TestOpenAPIImporter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"unterminated flow mapping", "{unclosed: [", ErrSpecFormat},
		{"plain scalar", "just some words", ErrSpecFormat},
		{"openapi 2", `{"openapi": "2.5", "info": {}}`, ErrUnsupportedVersion},
		{"swagger 1.2", `{"swagger": "1.2", "info": {}}`, ErrUnsupportedVersion},
		{"missing info", `{"openapi": "3.0.0", "paths": {}}`, ErrSchema},
		{"missing discriminator", `{"info": {"title": "x"}}`, ErrSchema},
		{"swagger missing info", "swagger: '2.0'\npaths: {}\n", ErrSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOpenAPIImporter().Import([]byte(tt.content), "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "3.0", versionString(float64(3)))
	assert.Equal(t, "3.1", versionString(3.1))
	assert.Equal(t, "2.0", versionString("2.0"))
	assert.Equal(t, "", versionString(nil))
}

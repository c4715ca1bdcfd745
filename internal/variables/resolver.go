// Package variables substitutes {{name}} tokens in request fields from the
// collection, collection-secret and environment-secret scopes.
package variables

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
)

// SecretSource yields decrypted secrets for a scope.
type SecretSource interface {
	CollectionSecrets(ctx context.Context, collectionID uuid.UUID) ([]models.Variable, error)
	EnvironmentSecrets(ctx context.Context, environmentID uuid.UUID) ([]models.Variable, error)
}

// Lookup is the flat key to value map produced by one merge of the scopes.
type Lookup map[string]string

var templateVarPattern = regexp.MustCompile(`\{\{([^}]*)\}\}`)

// Merge builds a lookup from scopes ordered lowest precedence first, so a
// later scope overwrites an earlier one with the same key.
func Merge(scopes ...[]models.Variable) Lookup {
	lookup := make(Lookup)
	for _, scope := range scopes {
		for _, v := range scope {
			key := strings.TrimSpace(v.Key)
			if key == "" {
				continue
			}
			lookup[key] = v.Value
		}
	}
	return lookup
}

// Expand replaces every known token in s. Unknown tokens are kept verbatim,
// braces included.
func (l Lookup) Expand(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return templateVarPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := strings.TrimSpace(token[2 : len(token)-2])
		if value, ok := l[name]; ok {
			return value
		}
		return token
	})
}

// Unresolved lists the token names in s that the lookup cannot satisfy.
func (l Lookup) Unresolved(s string) []string {
	var missing []string
	for _, m := range templateVarPattern.FindAllStringSubmatch(s, -1) {
		name := strings.TrimSpace(m[1])
		if _, ok := l[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// UnresolvedFields lists, sorted and without repeats, the token names in the
// enabled rows and text of fields that the lookup cannot satisfy.
func (l Lookup) UnresolvedFields(fields models.RequestFields) []string {
	seen := make(map[string]bool)
	collect := func(s string) {
		for _, name := range l.Unresolved(s) {
			seen[name] = true
		}
	}
	collect(fields.URL)
	collect(fields.Body)
	for _, group := range [][]models.KeyValue{fields.Headers, fields.Params, fields.PathParams, fields.FormData, fields.URLEncodedData} {
		for _, row := range models.EnabledOnly(group) {
			collect(row.Key)
			if !row.IsFile() {
				collect(row.Value)
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply returns a resolved copy of fields. Query and path parameter keys are
// not substituted, and file field values are paths so they stay as written.
func (l Lookup) Apply(fields models.RequestFields) models.RequestFields {
	out := fields.Clone()
	out.URL = l.Expand(out.URL)
	out.Body = l.Expand(out.Body)
	for i := range out.Headers {
		out.Headers[i].Key = l.Expand(out.Headers[i].Key)
		out.Headers[i].Value = l.Expand(out.Headers[i].Value)
	}
	for i := range out.Params {
		out.Params[i].Value = l.Expand(out.Params[i].Value)
	}
	for i := range out.PathParams {
		out.PathParams[i].Value = l.Expand(out.PathParams[i].Value)
	}
	expandForm(l, out.FormData)
	expandForm(l, out.URLEncodedData)
	return out
}

func expandForm(l Lookup, rows []models.KeyValue) {
	for i := range rows {
		rows[i].Key = l.Expand(rows[i].Key)
		if !rows[i].IsFile() {
			rows[i].Value = l.Expand(rows[i].Value)
		}
	}
}

type Resolver struct {
	secrets SecretSource
}

func NewResolver(secrets SecretSource) *Resolver {
	return &Resolver{secrets: secrets}
}

// Lookup merges inline variables, collection secrets and, when the
// collection links one, the environment's secrets. Environment secrets win.
func (r *Resolver) Lookup(ctx context.Context, col *models.Collection) (Lookup, error) {
	scopes := [][]models.Variable{col.Variables}
	if r.secrets != nil {
		collectionSecrets, err := r.secrets.CollectionSecrets(ctx, col.ID)
		if err != nil {
			return nil, fmt.Errorf("load collection secrets: %w", err)
		}
		scopes = append(scopes, collectionSecrets)

		if col.EnvironmentID != nil {
			envSecrets, err := r.secrets.EnvironmentSecrets(ctx, *col.EnvironmentID)
			if err != nil {
				return nil, fmt.Errorf("load environment secrets: %w", err)
			}
			scopes = append(scopes, envSecrets)
		}
	}
	return Merge(scopes...), nil
}

// Resolve produces the variable-resolved copy of fields for col.
func (r *Resolver) Resolve(ctx context.Context, col *models.Collection, fields models.RequestFields) (models.RequestFields, error) {
	lookup, err := r.Lookup(ctx, col)
	if err != nil {
		return models.RequestFields{}, err
	}
	return lookup.Apply(fields), nil
}

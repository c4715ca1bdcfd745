package importer

import (
	"strings"

	"github.com/dimitrije/nikode-engine/internal/normalize"
	"github.com/getkin/kin-openapi/openapi3"
)

const schemaRefPrefix = "#/components/schemas/"

// schemaResolver synthesizes example values and follows local references.
// active holds the references currently being expanded; meeting one of them
// again yields an empty object instead of recursing.
type schemaResolver struct {
	schemas    openapi3.Schemas
	parameters openapi3.ParametersMap
	bodies     openapi3.RequestBodies
	active     map[string]bool
}

func newSchemaResolver(components *openapi3.Components) *schemaResolver {
	r := &schemaResolver{active: make(map[string]bool)}
	if components != nil {
		r.schemas = components.Schemas
		r.parameters = components.Parameters
		r.bodies = components.RequestBodies
	}
	return r
}

func (r *schemaResolver) lookup(ref string) *openapi3.SchemaRef {
	name, ok := strings.CutPrefix(ref, schemaRefPrefix)
	if !ok {
		return nil
	}
	return r.schemas[name]
}

// schema dereferences ref to its schema without building an example.
func (r *schemaResolver) schema(ref *openapi3.SchemaRef) *openapi3.Schema {
	seen := make(map[string]bool)
	for ref != nil {
		if ref.Value != nil {
			return ref.Value
		}
		if ref.Ref == "" || seen[ref.Ref] {
			return nil
		}
		seen[ref.Ref] = true
		ref = r.lookup(ref.Ref)
	}
	return nil
}

// example builds a sample value for ref.
func (r *schemaResolver) example(ref *openapi3.SchemaRef) any {
	if ref == nil {
		return nil
	}
	if ref.Ref == "" {
		return r.fromSchema(ref.Value)
	}
	if r.active[ref.Ref] {
		return map[string]any{}
	}
	r.active[ref.Ref] = true
	defer delete(r.active, ref.Ref)

	if ref.Value != nil {
		return r.fromSchema(ref.Value)
	}
	target := r.lookup(ref.Ref)
	if target == nil {
		return map[string]any{}
	}
	return r.example(target)
}

func (r *schemaResolver) fromSchema(schema *openapi3.Schema) any {
	if schema == nil {
		return nil
	}
	switch {
	case schema.Example != nil:
		return schema.Example
	case schema.Default != nil:
		return schema.Default
	case len(schema.Enum) > 0:
		return schema.Enum[0]
	}

	if len(schema.AllOf) > 0 {
		merged := make(map[string]any)
		for _, part := range schema.AllOf {
			if obj, ok := r.example(part).(map[string]any); ok {
				for k, v := range obj {
					merged[k] = v
				}
			}
		}
		for k, v := range r.properties(schema) {
			merged[k] = v
		}
		return merged
	}
	if len(schema.OneOf) > 0 {
		return r.example(schema.OneOf[0])
	}
	if len(schema.AnyOf) > 0 {
		return r.example(schema.AnyOf[0])
	}

	typ := ""
	if types := schema.Type.Slice(); len(types) > 0 {
		typ = types[0]
		for _, t := range types {
			if t != "null" {
				typ = t
				break
			}
		}
	}
	if typ == "" {
		switch {
		case len(schema.Properties) > 0:
			typ = "object"
		case schema.Items != nil:
			typ = "array"
		}
	}

	switch typ {
	case "object":
		return r.properties(schema)
	case "array":
		if schema.Items == nil {
			return []any{}
		}
		return []any{r.example(schema.Items)}
	default:
		return normalize.SampleScalar(typ, schema.Format)
	}
}

func (r *schemaResolver) properties(schema *openapi3.Schema) map[string]any {
	obj := make(map[string]any, len(schema.Properties))
	for name, prop := range schema.Properties {
		obj[name] = r.example(prop)
	}
	return obj
}

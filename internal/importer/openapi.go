package importer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/normalize"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// DefaultBaseURL is used when a document declares no server.
const DefaultBaseURL = "http://localhost:3000"

// OpenAPIImporter converts OpenAPI 3.x and Swagger 2.0 documents.
type OpenAPIImporter struct{}

func NewOpenAPIImporter() *OpenAPIImporter {
	return &OpenAPIImporter{}
}

// Import parses content (JSON or YAML) and normalizes every operation into a
// request. name overrides the document title when non-empty.
func (im *OpenAPIImporter) Import(content []byte, name string) (*normalize.ImportResult, error) {
	raw, data, err := decodeDocument(content)
	if err != nil {
		return nil, err
	}

	if v, ok := raw["openapi"]; ok {
		version := versionString(v)
		if version != "3" && !strings.HasPrefix(version, "3.") {
			return nil, fmt.Errorf("%w: openapi %q", ErrUnsupportedVersion, version)
		}
		if err := requireInfo(raw); err != nil {
			return nil, err
		}
		return im.importV3(data, name)
	}

	if v, ok := raw["swagger"]; ok {
		version := versionString(v)
		if version != "2.0" {
			return nil, fmt.Errorf("%w: swagger %q", ErrUnsupportedVersion, version)
		}
		if err := requireInfo(raw); err != nil {
			return nil, err
		}
		return im.importV2(data, name)
	}

	return nil, fmt.Errorf("%w: missing openapi or swagger version field", ErrSchema)
}

func requireInfo(raw map[string]any) error {
	if _, ok := raw["info"].(map[string]any); !ok {
		return fmt.Errorf("%w: missing info object", ErrSchema)
	}
	return nil
}

func (im *OpenAPIImporter) importV3(data []byte, name string) (*normalize.ImportResult, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(data)
	if err != nil {
		// Unresolvable references fail the loader; fall back to the raw tree and
		// resolve what we can lazily.
		var plain openapi3.T
		if jsonErr := json.Unmarshal(data, &plain); jsonErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchema, jsonErr)
		}
		doc = &plain
	}

	c := newCollector()
	var title, description string
	if doc.Info != nil {
		title, description = doc.Info.Title, doc.Info.Description
	}
	c.result.CollectionName = normalize.CollectionName(name, title)
	c.result.Description = description
	c.result.Variables = serverVariables(doc.Servers)

	resolver := newSchemaResolver(doc.Components)
	if doc.Paths == nil {
		return c.result, nil
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for path := range pathMap {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := pathMap[path]
		if item == nil {
			continue
		}
		methodOrder := []struct {
			method string
			op     *openapi3.Operation
		}{
			{http.MethodGet, item.Get},
			{http.MethodPost, item.Post},
			{http.MethodPut, item.Put},
			{http.MethodPatch, item.Patch},
			{http.MethodDelete, item.Delete},
			{http.MethodHead, item.Head},
			{http.MethodOptions, item.Options},
		}
		for _, entry := range methodOrder {
			if entry.op == nil {
				continue
			}
			req := resolver.convertOperation(path, entry.method, entry.op, item.Parameters)
			c.add(firstTag(entry.op.Tags), req)
		}
	}

	return c.result, nil
}

// collector accumulates folders in first-seen order.
type collector struct {
	result  *normalize.ImportResult
	folders map[string]uuid.UUID
}

func newCollector() *collector {
	return &collector{
		result: &normalize.ImportResult{
			Folders:  []normalize.FolderDraft{},
			Requests: []normalize.RequestDraft{},
		},
		folders: make(map[string]uuid.UUID),
	}
}

func (c *collector) add(folderName string, req normalize.RequestDraft) {
	id, ok := c.folders[folderName]
	if !ok {
		id = uuid.New()
		c.folders[folderName] = id
		c.result.Folders = append(c.result.Folders, normalize.FolderDraft{ID: id, Name: folderName})
	}
	req.FolderID = &id
	c.result.Requests = append(c.result.Requests, req)
}

func firstTag(tags []string) string {
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			return t
		}
	}
	return normalize.DefaultFolderName
}

func requestName(summary, operationID, method, path string) string {
	if s := strings.TrimSpace(summary); s != "" {
		return s
	}
	if id := strings.TrimSpace(operationID); id != "" {
		return id
	}
	return method + " " + path
}

var serverVarPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// serverBaseURL rewrites `{var}` server placeholders into `{{var}}` tokens.
func serverBaseURL(raw string) string {
	if strings.Contains(raw, "{{") {
		return strings.TrimRight(raw, "/")
	}
	return strings.TrimRight(serverVarPattern.ReplaceAllString(raw, "{{$1}}"), "/")
}

// serverVariables synthesizes baseUrl from the first server, followed by the
// declared server variables with their defaults.
func serverVariables(servers openapi3.Servers) []models.Variable {
	base := DefaultBaseURL
	if len(servers) > 0 && servers[0] != nil && strings.TrimSpace(servers[0].URL) != "" {
		base = serverBaseURL(strings.TrimSpace(servers[0].URL))
	}
	vars := []models.Variable{{Key: normalize.BaseURLVariable, Value: base}}

	declared := make(map[string]string)
	for _, server := range servers {
		if server == nil {
			continue
		}
		for key, v := range server.Variables {
			if _, seen := declared[key]; seen || v == nil || key == normalize.BaseURLVariable {
				continue
			}
			declared[key] = v.Default
		}
	}
	keys := make([]string, 0, len(declared))
	for key := range declared {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		vars = append(vars, models.Variable{Key: key, Value: declared[key]})
	}
	return vars
}

func (r *schemaResolver) convertOperation(path, method string, op *openapi3.Operation, shared openapi3.Parameters) normalize.RequestDraft {
	fields := normalize.EmptyFields()
	fields.Method = method

	known := make(map[string]string)
	for _, param := range r.mergeParameters(shared, op.Parameters) {
		value := r.parameterValue(param)
		switch param.In {
		case openapi3.ParameterInHeader:
			fields.Headers = append(fields.Headers, models.NewKeyValue(param.Name, value))
		case openapi3.ParameterInQuery:
			fields.Params = append(fields.Params, models.NewKeyValue(param.Name, value))
		case openapi3.ParameterInPath:
			known[param.Name] = value
		}
	}

	fields.URL = normalize.AppendQuery("{{"+normalize.BaseURLVariable+"}}"+normalize.RewritePathTemplate(path), fields.Params)
	fields.PathParams = normalize.DerivePathParams(fields.URL, known)

	if body := r.requestBody(op.RequestBody); body != nil {
		r.applyBody(&fields, body.Content)
	}

	return normalize.RequestDraft{
		ID:            uuid.New(),
		Name:          requestName(op.Summary, op.OperationID, method, path),
		RequestFields: fields,
	}
}

// mergeParameters resolves references and lets operation parameters
// override path-level ones with the same location and name.
func (r *schemaResolver) mergeParameters(shared, own openapi3.Parameters) []*openapi3.Parameter {
	var out []*openapi3.Parameter
	index := make(map[string]int)
	for _, list := range []openapi3.Parameters{shared, own} {
		for _, ref := range list {
			param := r.parameter(ref)
			if param == nil || param.Name == "" {
				continue
			}
			key := param.In + "\x00" + param.Name
			if i, ok := index[key]; ok {
				out[i] = param
				continue
			}
			index[key] = len(out)
			out = append(out, param)
		}
	}
	return out
}

func (r *schemaResolver) parameter(ref *openapi3.ParameterRef) *openapi3.Parameter {
	seen := make(map[string]bool)
	for ref != nil {
		if ref.Value != nil {
			return ref.Value
		}
		if ref.Ref == "" || seen[ref.Ref] {
			return nil
		}
		seen[ref.Ref] = true
		name, ok := strings.CutPrefix(ref.Ref, "#/components/parameters/")
		if !ok {
			return nil
		}
		ref = r.parameters[name]
	}
	return nil
}

func (r *schemaResolver) requestBody(ref *openapi3.RequestBodyRef) *openapi3.RequestBody {
	seen := make(map[string]bool)
	for ref != nil {
		if ref.Value != nil {
			return ref.Value
		}
		if ref.Ref == "" || seen[ref.Ref] {
			return nil
		}
		seen[ref.Ref] = true
		name, ok := strings.CutPrefix(ref.Ref, "#/components/requestBodies/")
		if !ok {
			return nil
		}
		ref = r.bodies[name]
	}
	return nil
}

func (r *schemaResolver) parameterValue(param *openapi3.Parameter) string {
	if param.Example != nil {
		return normalize.FormatValue(param.Example)
	}
	return normalize.FormatValue(r.declaredValue(param.Schema))
}

// declaredValue returns a schema's example, default or first enum value
// without synthesizing placeholders.
func (r *schemaResolver) declaredValue(ref *openapi3.SchemaRef) any {
	schema := r.schema(ref)
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
	return nil
}

var bodyPreference = []string{
	normalize.ContentTypeJSON,
	normalize.ContentTypeURLEncoded,
	normalize.ContentTypeMultipart,
}

func mediaBase(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// pickContent chooses JSON, then url-encoded, then multipart, then the first
// remaining declared type in lexical order.
func pickContent(content openapi3.Content) (string, *openapi3.MediaType) {
	if len(content) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, want := range bodyPreference {
		for _, key := range keys {
			if mediaBase(key) == want {
				return want, content[key]
			}
		}
	}
	return mediaBase(keys[0]), content[keys[0]]
}

func (r *schemaResolver) applyBody(fields *models.RequestFields, content openapi3.Content) {
	contentType, media := pickContent(content)
	if media == nil {
		return
	}

	switch contentType {
	case normalize.ContentTypeJSON:
		fields.RequestType = models.RequestTypeRaw
		fields.ContentType = contentType
		if media.Example != nil {
			fields.Body = normalize.RenderJSON(media.Example)
		} else {
			fields.Body = normalize.RenderJSON(r.example(media.Schema))
		}
	case normalize.ContentTypeURLEncoded:
		fields.RequestType = models.RequestTypeURLEncoded
		fields.ContentType = contentType
		fields.URLEncodedData = r.formFields(media.Schema, false)
	case normalize.ContentTypeMultipart:
		fields.RequestType = models.RequestTypeFormData
		fields.ContentType = contentType
		fields.FormData = r.formFields(media.Schema, true)
	default:
		fields.RequestType = models.RequestTypeRaw
		fields.ContentType = contentType
		example := media.Example
		if example == nil {
			example = r.declaredValue(media.Schema)
		}
		if s, ok := example.(string); ok {
			fields.Body = s
		} else if example != nil {
			fields.Body = normalize.RenderJSON(example)
		}
	}
}

// formFields turns the properties of an object schema into form rows.
// Binary properties become file fields when files are allowed.
func (r *schemaResolver) formFields(ref *openapi3.SchemaRef, allowFiles bool) []models.KeyValue {
	rows := []models.KeyValue{}
	schema := r.schema(ref)
	if schema == nil {
		return rows
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop := schema.Properties[name]
		row := models.NewKeyValue(name, normalize.FormatValue(r.declaredValue(prop)))
		row.Type = models.FieldTypeText
		if allowFiles {
			if s := r.schema(prop); s != nil && (s.Format == "binary" || s.Type.Is("file")) {
				row.Type = models.FieldTypeFile
				row.Value = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

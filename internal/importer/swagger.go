package importer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/normalize"
	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

func (im *OpenAPIImporter) importV2(data []byte, name string) (*normalize.ImportResult, error) {
	var doc openapi2.T
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	c := newCollector()
	c.result.CollectionName = normalize.CollectionName(name, doc.Info.Title)
	c.result.Description = doc.Info.Description
	c.result.Variables = []models.Variable{{Key: normalize.BaseURLVariable, Value: swaggerBaseURL(&doc)}}

	// Definitions become component schemas so one example builder serves both
	// versions; ToV3SchemaRef rewrites `#/definitions/X` references on the way.
	resolver := newSchemaResolver(&openapi3.Components{Schemas: openapi2conv.ToV3Schemas(doc.Definitions)})
	sw := &swaggerConverter{doc: &doc, resolver: resolver}

	paths := make([]string, 0, len(doc.Paths))
	for path := range doc.Paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		methodOrder := []struct {
			method string
			op     *openapi2.Operation
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
			c.add(firstTag(entry.op.Tags), sw.convertOperation(path, entry.method, entry.op, item.Parameters))
		}
	}

	return c.result, nil
}

// swaggerBaseURL assembles scheme://host/basePath, defaulting the scheme to https.
func swaggerBaseURL(doc *openapi2.T) string {
	host := strings.TrimSpace(doc.Host)
	if host == "" {
		return DefaultBaseURL
	}
	scheme := "https"
	if len(doc.Schemes) > 0 && doc.Schemes[0] != "" {
		scheme = doc.Schemes[0]
	}
	basePath := strings.TrimRight(doc.BasePath, "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return scheme + "://" + strings.TrimRight(host, "/") + basePath
}

type swaggerConverter struct {
	doc      *openapi2.T
	resolver *schemaResolver
}

func (sw *swaggerConverter) parameter(p *openapi2.Parameter) *openapi2.Parameter {
	seen := make(map[string]bool)
	for p != nil && p.Ref != "" {
		if seen[p.Ref] {
			return nil
		}
		seen[p.Ref] = true
		name, ok := strings.CutPrefix(p.Ref, "#/parameters/")
		if !ok {
			return nil
		}
		p = sw.doc.Parameters[name]
	}
	return p
}

func (sw *swaggerConverter) mergeParameters(shared, own openapi2.Parameters) []*openapi2.Parameter {
	var out []*openapi2.Parameter
	index := make(map[string]int)
	for _, list := range []openapi2.Parameters{shared, own} {
		for _, raw := range list {
			param := sw.parameter(raw)
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

func swaggerValue(p *openapi2.Parameter) string {
	if p.Default != nil {
		return normalize.FormatValue(p.Default)
	}
	if len(p.Enum) > 0 {
		return normalize.FormatValue(p.Enum[0])
	}
	return ""
}

func (sw *swaggerConverter) convertOperation(path, method string, op *openapi2.Operation, shared openapi2.Parameters) normalize.RequestDraft {
	fields := normalize.EmptyFields()
	fields.Method = method

	consumes := op.Consumes
	if len(consumes) == 0 {
		consumes = sw.doc.Consumes
	}

	known := make(map[string]string)
	var bodyParam *openapi2.Parameter
	var formParams []*openapi2.Parameter
	for _, param := range sw.mergeParameters(shared, op.Parameters) {
		switch param.In {
		case "header":
			fields.Headers = append(fields.Headers, models.NewKeyValue(param.Name, swaggerValue(param)))
		case "query":
			fields.Params = append(fields.Params, models.NewKeyValue(param.Name, swaggerValue(param)))
		case "path":
			known[param.Name] = swaggerValue(param)
		case "body":
			bodyParam = param
		case "formData":
			formParams = append(formParams, param)
		}
	}

	fields.URL = normalize.AppendQuery("{{"+normalize.BaseURLVariable+"}}"+normalize.RewritePathTemplate(path), fields.Params)
	fields.PathParams = normalize.DerivePathParams(fields.URL, known)

	switch {
	case bodyParam != nil:
		fields.RequestType = models.RequestTypeRaw
		fields.ContentType = jsonConsumes(consumes)
		fields.Body = normalize.RenderJSON(sw.resolver.example(openapi2conv.ToV3SchemaRef(bodyParam.Schema)))
	case len(formParams) > 0:
		sw.applyForm(&fields, formParams, consumes)
	}

	return normalize.RequestDraft{
		ID:            uuid.New(),
		Name:          requestName(op.Summary, op.OperationID, method, path),
		RequestFields: fields,
	}
}

func jsonConsumes(consumes []string) string {
	for _, ct := range consumes {
		if strings.Contains(mediaBase(ct), "json") {
			return mediaBase(ct)
		}
	}
	return normalize.ContentTypeJSON
}

func (sw *swaggerConverter) applyForm(fields *models.RequestFields, params []*openapi2.Parameter, consumes []string) {
	multipart := false
	for _, ct := range consumes {
		if mediaBase(ct) == normalize.ContentTypeMultipart {
			multipart = true
		}
	}
	rows := make([]models.KeyValue, 0, len(params))
	for _, p := range params {
		row := models.NewKeyValue(p.Name, swaggerValue(p))
		row.Type = models.FieldTypeText
		if p.Type.Is("file") {
			row.Type = models.FieldTypeFile
			row.Value = ""
			multipart = true
		}
		rows = append(rows, row)
	}

	if multipart {
		fields.RequestType = models.RequestTypeFormData
		fields.ContentType = normalize.ContentTypeMultipart
		fields.FormData = rows
		return
	}
	fields.RequestType = models.RequestTypeURLEncoded
	fields.ContentType = normalize.ContentTypeURLEncoded
	fields.URLEncodedData = rows
}

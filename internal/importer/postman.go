package importer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/normalize"
	"github.com/google/uuid"
)

// PostmanCollection is the v2.0/v2.1 collection bundle layout.
type PostmanCollection struct {
	Info     *PostmanInfo      `json:"info"`
	Item     []PostmanItem     `json:"item"`
	Variable []PostmanVariable `json:"variable"`
	Auth     *PostmanAuth      `json:"auth,omitempty"`
}

type PostmanInfo struct {
	Name        string             `json:"name"`
	Description PostmanDescription `json:"description"`
	Schema      string             `json:"schema"`
}

// PostmanItem is a group when Item is set and a request leaf when Request is set.
type PostmanItem struct {
	Name    string          `json:"name"`
	Item    []PostmanItem   `json:"item,omitempty"`
	Request *PostmanRequest `json:"request,omitempty"`
	Auth    *PostmanAuth    `json:"auth,omitempty"`
}

func (i PostmanItem) isGroup() bool {
	return i.Request == nil && i.Item != nil
}

type PostmanRequest struct {
	Method string          `json:"method"`
	Header []PostmanHeader `json:"header"`
	Body   *PostmanBody    `json:"body,omitempty"`
	URL    PostmanURL      `json:"url"`
	Auth   *PostmanAuth    `json:"auth,omitempty"`
}

// UnmarshalJSON accepts the shorthand form where a request is just its URL.
func (r *PostmanRequest) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*r = PostmanRequest{Method: "GET", URL: PostmanURL{Raw: raw}}
		return nil
	}
	type plain PostmanRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = PostmanRequest(p)
	return nil
}

type PostmanHeader struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled"`
}

type PostmanBody struct {
	Mode       string              `json:"mode"`
	Raw        string              `json:"raw,omitempty"`
	FormData   []PostmanFormField  `json:"formdata,omitempty"`
	URLEncoded []PostmanFormField  `json:"urlencoded,omitempty"`
	Options    *PostmanBodyOptions `json:"options,omitempty"`
}

type PostmanBodyOptions struct {
	Raw struct {
		Language string `json:"language"`
	} `json:"raw"`
}

type PostmanFormField struct {
	Key      string          `json:"key"`
	Value    string          `json:"value"`
	Src      json.RawMessage `json:"src,omitempty"`
	Type     string          `json:"type"`
	Disabled bool            `json:"disabled"`
}

// PostmanURL is either a plain string or a structured object.
type PostmanURL struct {
	Raw      string               `json:"raw"`
	Protocol string               `json:"protocol,omitempty"`
	Host     PostmanSegments      `json:"host,omitempty"`
	Port     string               `json:"port,omitempty"`
	Path     PostmanSegments      `json:"path,omitempty"`
	Query    []PostmanHeader      `json:"query,omitempty"`
	Variable []PostmanURLVariable `json:"variable,omitempty"`
}

// PostmanSegments holds URL host or path parts. Exports write them as a
// single string or as an array whose items are strings or `{type, value}`.
type PostmanSegments []string

func (p *PostmanSegments) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PostmanSegments{s}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(PostmanSegments, 0, len(items))
	for _, item := range items {
		var seg string
		if err := json.Unmarshal(item, &seg); err == nil {
			out = append(out, seg)
			continue
		}
		var obj struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return err
		}
		out = append(out, obj.Value)
	}
	*p = out
	return nil
}

type PostmanURLVariable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (u *PostmanURL) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*u = PostmanURL{Raw: raw}
		return nil
	}
	type plain PostmanURL
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = PostmanURL(p)
	return nil
}

// String returns the raw URL, rebuilding it from its parts when absent.
func (u PostmanURL) String() string {
	if strings.TrimSpace(u.Raw) != "" {
		return strings.TrimSpace(u.Raw)
	}
	var b strings.Builder
	if u.Protocol != "" {
		b.WriteString(u.Protocol)
		b.WriteString("://")
	}
	b.WriteString(strings.Join(u.Host, "."))
	if u.Port != "" {
		b.WriteString(":")
		b.WriteString(u.Port)
	}
	if len(u.Path) > 0 {
		b.WriteString("/")
		b.WriteString(strings.TrimPrefix(strings.Join(u.Path, "/"), "/"))
	}
	return b.String()
}

type PostmanVariable struct {
	Key      string `json:"key"`
	Value    any    `json:"value"`
	Disabled bool   `json:"disabled"`
}

type PostmanAuth struct {
	Type   string             `json:"type"`
	APIKey []PostmanAuthParam `json:"apikey,omitempty"`
	Basic  []PostmanAuthParam `json:"basic,omitempty"`
	Bearer []PostmanAuthParam `json:"bearer,omitempty"`
}

type PostmanAuthParam struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// PostmanDescription is either a string or `{content, type}`.
type PostmanDescription string

func (d *PostmanDescription) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = PostmanDescription(s)
		return nil
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*d = PostmanDescription(obj.Content)
	return nil
}

// PostmanImporter converts collection bundles exported by Postman.
type PostmanImporter struct{}

func NewPostmanImporter() *PostmanImporter {
	return &PostmanImporter{}
}

func (im *PostmanImporter) Import(content []byte, name string) (*normalize.ImportResult, error) {
	if !json.Valid(content) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrSpecFormat)
	}

	var col PostmanCollection
	if err := json.Unmarshal(content, &col); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if col.Info == nil {
		return nil, fmt.Errorf("%w: missing info object", ErrSchema)
	}
	if schema := col.Info.Schema; schema != "" && !strings.Contains(schema, "v2.0") && !strings.Contains(schema, "v2.1") {
		return nil, fmt.Errorf("%w: unsupported collection schema %q", ErrSchema, schema)
	}

	result := &normalize.ImportResult{
		CollectionName: normalize.CollectionName(name, col.Info.Name),
		Description:    string(col.Info.Description),
		Variables:      []models.Variable{},
		Folders:        []normalize.FolderDraft{},
		Requests:       []normalize.RequestDraft{},
	}
	for _, v := range col.Variable {
		if v.Key == "" || v.Disabled {
			continue
		}
		result.Variables = append(result.Variables, models.Variable{Key: v.Key, Value: normalize.FormatValue(v.Value)})
	}

	walkPostmanItems(col.Item, nil, col.Auth, result)
	return result, nil
}

// walkPostmanItems appends folders before their contents so parents always
// precede children in the result.
func walkPostmanItems(items []PostmanItem, parentID *uuid.UUID, auth *PostmanAuth, result *normalize.ImportResult) {
	for _, item := range items {
		if item.isGroup() {
			id := uuid.New()
			result.Folders = append(result.Folders, normalize.FolderDraft{
				ID:             id,
				ParentFolderID: parentID,
				Name:           strings.TrimSpace(item.Name),
			})
			inherited := auth
			if item.Auth != nil {
				inherited = item.Auth
			}
			walkPostmanItems(item.Item, &id, inherited, result)
			continue
		}
		if item.Request == nil {
			continue
		}
		req := convertPostmanRequest(item.Name, item.Request, auth)
		req.FolderID = parentID
		result.Requests = append(result.Requests, req)
	}
}

func convertPostmanRequest(name string, pr *PostmanRequest, inherited *PostmanAuth) normalize.RequestDraft {
	fields := normalize.EmptyFields()
	fields.Method = normalize.Method(pr.Method)
	fields.URL = pr.URL.String()

	for _, h := range pr.Header {
		if h.Key == "" {
			continue
		}
		row := models.NewKeyValue(h.Key, h.Value)
		row.Enabled = !h.Disabled
		fields.Headers = append(fields.Headers, row)
	}

	if len(pr.URL.Query) > 0 {
		for _, q := range pr.URL.Query {
			if q.Key == "" {
				continue
			}
			row := models.NewKeyValue(q.Key, q.Value)
			row.Enabled = !q.Disabled
			fields.Params = append(fields.Params, row)
		}
	} else {
		fields.Params = queryFromURL(fields.URL)
	}

	auth := inherited
	if pr.Auth != nil {
		auth = pr.Auth
	}
	fields.Headers = append(fields.Headers, authHeaders(auth)...)

	if pr.Body != nil {
		applyPostmanBody(&fields, pr.Body)
	}

	// Path variables are only reliably present in the final URL string.
	known := make(map[string]string, len(pr.URL.Variable))
	for _, v := range pr.URL.Variable {
		known[v.Key] = v.Value
	}
	fields.PathParams = normalize.DerivePathParams(fields.URL, known)

	return normalize.RequestDraft{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(name),
		RequestFields: fields,
	}
}

// queryFromURL splits the query string of a raw URL without decoding it, so
// `{{variable}}` tokens survive.
func queryFromURL(rawURL string) []models.KeyValue {
	rows := []models.KeyValue{}
	_, query, ok := strings.Cut(rawURL, "?")
	if !ok {
		return rows
	}
	query, _, _ = strings.Cut(query, "#")
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		rows = append(rows, models.NewKeyValue(key, value))
	}
	return rows
}

func applyPostmanBody(fields *models.RequestFields, body *PostmanBody) {
	switch body.Mode {
	case "raw":
		fields.RequestType = models.RequestTypeRaw
		fields.Body = body.Raw
		language := ""
		if body.Options != nil {
			language = body.Options.Raw.Language
		}
		fields.ContentType = normalize.LanguageContentType(language)
	case "formdata":
		fields.RequestType = models.RequestTypeFormData
		fields.ContentType = normalize.ContentTypeMultipart
		fields.FormData = formRows(body.FormData)
	case "urlencoded":
		fields.RequestType = models.RequestTypeURLEncoded
		fields.ContentType = normalize.ContentTypeURLEncoded
		fields.URLEncodedData = formRows(body.URLEncoded)
	default:
		fields.RequestType = models.RequestTypeNone
	}
}

func formRows(entries []PostmanFormField) []models.KeyValue {
	rows := make([]models.KeyValue, 0, len(entries))
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		row := models.NewKeyValue(e.Key, e.Value)
		row.Enabled = !e.Disabled
		row.Type = models.FieldTypeText
		if e.Type == models.FieldTypeFile {
			row.Type = models.FieldTypeFile
			row.Value = fileSource(e.Src)
		}
		rows = append(rows, row)
	}
	return rows
}

// fileSource reads a formdata `src`, which is a path string or a list of paths.
func fileSource(src json.RawMessage) string {
	if len(src) == 0 {
		return ""
	}
	var path string
	if err := json.Unmarshal(src, &path); err == nil {
		return path
	}
	var paths []string
	if err := json.Unmarshal(src, &paths); err == nil && len(paths) > 0 {
		return paths[0]
	}
	return ""
}

func authParam(params []PostmanAuthParam, key string) string {
	for _, p := range params {
		if p.Key == key {
			return normalize.FormatValue(p.Value)
		}
	}
	return ""
}

// authHeaders expresses bearer, basic and header-placed API key auth as headers.
func authHeaders(auth *PostmanAuth) []models.KeyValue {
	if auth == nil {
		return nil
	}
	switch auth.Type {
	case "bearer":
		if token := authParam(auth.Bearer, "token"); token != "" {
			return []models.KeyValue{models.NewKeyValue("Authorization", "Bearer "+token)}
		}
	case "basic":
		user, pass := authParam(auth.Basic, "username"), authParam(auth.Basic, "password")
		if user != "" || pass != "" {
			// templated credentials are kept as written
			if strings.Contains(user, "{{") || strings.Contains(pass, "{{") {
				return []models.KeyValue{models.NewKeyValue("Authorization", "Basic "+user+":"+pass)}
			}
			creds := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
			return []models.KeyValue{models.NewKeyValue("Authorization", "Basic "+creds)}
		}
	case "apikey":
		key := authParam(auth.APIKey, "key")
		in := authParam(auth.APIKey, "in")
		if key != "" && (in == "" || in == "header") {
			return []models.KeyValue{models.NewKeyValue(key, authParam(auth.APIKey, "value"))}
		}
	}
	return nil
}

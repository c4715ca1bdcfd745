// Package normalize holds the import result shared by every importer and the
// helpers that turn foreign request descriptions into the internal shape.
package normalize

import (
	"regexp"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
)

const (
	FallbackCollectionName = "Imported API"
	DefaultFolderName      = "Default"
	BaseURLVariable        = "baseUrl"
)

// Content-type labels stored on raw-body requests.
const (
	ContentTypeJSON       = "application/json"
	ContentTypeXML        = "application/xml"
	ContentTypeHTML       = "text/html"
	ContentTypeText       = "text/plain"
	ContentTypeJavaScript = "application/javascript"
	ContentTypeURLEncoded = "application/x-www-form-urlencoded"
	ContentTypeMultipart  = "multipart/form-data"
)

type FolderDraft struct {
	ID             uuid.UUID  `json:"id"`
	ParentFolderID *uuid.UUID `json:"parent_folder_id,omitempty"`
	Name           string     `json:"name"`
}

type RequestDraft struct {
	ID       uuid.UUID  `json:"id"`
	FolderID *uuid.UUID `json:"folder_id,omitempty"`
	Name     string     `json:"name"`
	models.RequestFields
}

// ImportResult is what an importer hands to the store. Folders are ordered so
// that every parent precedes its children.
type ImportResult struct {
	CollectionName string            `json:"collection_name"`
	Description    string            `json:"description"`
	Variables      []models.Variable `json:"variables"`
	Folders        []FolderDraft     `json:"folders"`
	Requests       []RequestDraft    `json:"requests"`
}

// FolderNames lists folder names in creation order.
func (r *ImportResult) FolderNames() []string {
	names := make([]string, len(r.Folders))
	for i, f := range r.Folders {
		names[i] = f.Name
	}
	return names
}

// CollectionName picks the override, then the declared title, then the fallback.
func CollectionName(override, declared string) string {
	if name := strings.TrimSpace(override); name != "" {
		return name
	}
	if name := strings.TrimSpace(declared); name != "" {
		return name
	}
	return FallbackCollectionName
}

var templateParamPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// RewritePathTemplate converts `/users/{id}` into `/users/:id`.
// Double-brace variable tokens are left alone.
func RewritePathTemplate(path string) string {
	var b strings.Builder
	last := 0
	for _, loc := range templateParamPattern.FindAllStringSubmatchIndex(path, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && path[start-1] == '{' {
			continue
		}
		if end < len(path) && path[end] == '}' {
			continue
		}
		b.WriteString(path[last:start])
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(path[loc[2]:loc[3]]))
		last = end
	}
	b.WriteString(path[last:])
	return b.String()
}

var pathParamPattern = regexp.MustCompile(`/:([A-Za-z_][A-Za-z0-9_-]*)`)

// PathParamNames scans a URL for `/:identifier` segments, in order, without duplicates.
func PathParamNames(rawURL string) []string {
	path := rawURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	var names []string
	seen := make(map[string]bool)
	for _, m := range pathParamPattern.FindAllStringSubmatch(path, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

// DerivePathParams builds path parameter rows for every `:identifier` in the URL,
// taking values from known where present.
func DerivePathParams(rawURL string, known map[string]string) []models.KeyValue {
	names := PathParamNames(rawURL)
	rows := make([]models.KeyValue, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.NewKeyValue(name, known[name]))
	}
	return rows
}

// SubstitutePathParams replaces `/:name` segments with the matching value.
// Unknown names are left as they are.
func SubstitutePathParams(rawURL string, values map[string]string, escape func(string) string) string {
	path, rest := rawURL, ""
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		path, rest = rawURL[:i], rawURL[i:]
	}
	path = pathParamPattern.ReplaceAllStringFunc(path, func(seg string) string {
		name := seg[2:]
		value, ok := values[name]
		if !ok {
			return seg
		}
		if escape != nil {
			value = escape(value)
		}
		return "/" + value
	})
	return path + rest
}

// AppendQuery adds enabled rows to the URL as a query string. Values are
// written verbatim so `{{variable}}` tokens survive until resolution.
func AppendQuery(rawURL string, params []models.KeyValue) string {
	var parts []string
	for _, p := range params {
		if !p.Enabled || p.Key == "" {
			continue
		}
		parts = append(parts, p.Key+"="+p.Value)
	}
	if len(parts) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + strings.Join(parts, "&")
}

// LanguageContentType maps a raw-body language hint to a content-type label.
func LanguageContentType(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "json":
		return ContentTypeJSON
	case "xml":
		return ContentTypeXML
	case "html":
		return ContentTypeHTML
	case "javascript", "js":
		return ContentTypeJavaScript
	default:
		return ContentTypeText
	}
}

var standardMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// Method upper-cases a method name and falls back to GET for anything unknown.
func Method(method string) string {
	m := strings.ToUpper(strings.TrimSpace(method))
	if standardMethods[m] {
		return m
	}
	return "GET"
}

// EmptyFields returns a GET request with no body and non-nil lists.
func EmptyFields() models.RequestFields {
	return models.RequestFields{
		Method:         "GET",
		Headers:        []models.KeyValue{},
		Params:         []models.KeyValue{},
		PathParams:     []models.KeyValue{},
		RequestType:    models.RequestTypeNone,
		FormData:       []models.KeyValue{},
		URLEncodedData: []models.KeyValue{},
	}
}

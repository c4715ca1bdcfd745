package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/dimitrije/nikode-engine/internal/normalize"
)

// ErrInvalidURL marks a URL that cannot be sent.
var ErrInvalidURL = errors.New("invalid request url")

// SendOptions carries the collection settings that apply to one send.
type SendOptions struct {
	TimeoutSeconds  int
	FollowRedirects bool
}

// Call is a built request ready for one of the two proxy routes.
// Exactly one of Structured and Form is set.
type Call struct {
	Structured *ProxyRequest
	Form       *FormProxyRequest
}

// URL is the path-substituted URL that will be sent.
func (c *Call) URL() string {
	if c.Form != nil {
		return c.Form.URL
	}
	return c.Structured.URL
}

func allowsBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Build turns resolved request fields into a proxy call. Form bodies use the
// form route; everything else goes through the structured route.
func Build(fields models.RequestFields, opts SendOptions) (*Call, error) {
	rawURL := strings.TrimSpace(fields.URL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is empty", ErrInvalidURL)
	}

	values := make(map[string]string)
	pathParams := make(map[string]string)
	for _, p := range models.EnabledOnly(fields.PathParams) {
		if p.Key == "" {
			continue
		}
		values[p.Key] = p.Value
		pathParams[":"+p.Key] = p.Value
	}
	if len(pathParams) == 0 {
		pathParams = nil
	}

	target := normalize.SubstitutePathParams(rawURL, values, url.PathEscape)
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q needs an http or https scheme and a host", ErrInvalidURL, target)
	}

	method := strings.ToUpper(strings.TrimSpace(fields.Method))
	if method == "" {
		method = http.MethodGet
	}
	timeout := models.ClampTimeout(opts.TimeoutSeconds)
	headers := headerLines(fields.Headers)
	withBody := allowsBody(method)

	if fields.RequestType.IsForm() {
		rows := fields.URLEncodedData
		contentType := normalize.ContentTypeURLEncoded
		multipart := fields.RequestType == models.RequestTypeFormData
		if multipart {
			rows = fields.FormData
			contentType = normalize.ContentTypeMultipart
		}
		form := &FormProxyRequest{
			URL:             target,
			Method:          method,
			Timeout:         timeout,
			FollowRedirects: opts.FollowRedirects,
			ContentType:     contentType,
			Headers:         headers,
			PathParams:      pathParams,
			Multipart:       multipart,
		}
		if withBody {
			form.Fields = models.EnabledOnly(rows)
		}
		return &Call{Form: form}, nil
	}

	req := &ProxyRequest{
		Method:          method,
		URL:             target,
		Headers:         headers,
		Timeout:         timeout,
		FollowRedirects: opts.FollowRedirects,
		PathParams:      pathParams,
	}
	if withBody && fields.RequestType == models.RequestTypeRaw {
		body := fields.Body
		req.Body = &body
		if fields.ContentType != "" && !hasHeader(fields.Headers, "Content-Type") {
			req.Headers = append(req.Headers, "Content-Type: "+fields.ContentType)
		}
	}
	return &Call{Structured: req}, nil
}

// headerLines serializes enabled headers as "Key: Value".
func headerLines(rows []models.KeyValue) []string {
	lines := []string{}
	for _, h := range models.EnabledOnly(rows) {
		if strings.TrimSpace(h.Key) == "" {
			continue
		}
		lines = append(lines, strings.TrimSpace(h.Key)+": "+h.Value)
	}
	return lines
}

func hasHeader(rows []models.KeyValue, name string) bool {
	for _, h := range models.EnabledOnly(rows) {
		if strings.EqualFold(strings.TrimSpace(h.Key), name) {
			return true
		}
	}
	return false
}

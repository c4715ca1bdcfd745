package dispatch

import (
	"encoding/json"
	"strings"

	"github.com/dimitrije/nikode-engine/internal/models"
)

// ProxyRequest is the structured proxy contract.
type ProxyRequest struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Headers         []string          `json:"headers"`
	Timeout         int               `json:"timeout"`
	FollowRedirects bool              `json:"followRedirects"`
	Body            *string           `json:"body,omitempty"`
	PathParams      map[string]string `json:"path_params,omitempty"`
}

// FormProxyRequest is the form-submission contract. Everything except Fields
// travels in the query string.
type FormProxyRequest struct {
	URL             string
	Method          string
	Timeout         int
	FollowRedirects bool
	ContentType     string
	Headers         []string
	PathParams      map[string]string
	Multipart       bool
	Fields          []models.KeyValue
}

// ProxyResponse is what the proxy answers on both routes.
type ProxyResponse struct {
	Success         bool            `json:"success"`
	ResponseStatus  int             `json:"response_status,omitempty"`
	ResponseHeaders HeaderMap       `json:"response_headers,omitempty"`
	ResponseData    json.RawMessage `json:"response_data,omitempty"`
	ResponseTime    float64         `json:"response_time"`
	ResponseSize    int64           `json:"response_size"`
	IsBinary        bool            `json:"is_binary,omitempty"`
	Cancelled       bool            `json:"cancelled,omitempty"`
	ErrorType       string          `json:"error_type,omitempty"`
	ErrorTitle      string          `json:"error_title,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// HeaderMap accepts header values as strings or string lists.
type HeaderMap map[string]string

func (h *HeaderMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(HeaderMap, len(raw))
	for name, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			out[name] = s
			continue
		}
		var list []string
		if err := json.Unmarshal(value, &list); err != nil {
			return err
		}
		out[name] = strings.Join(list, ", ")
	}
	*h = out
	return nil
}

// BodyText returns response_data as display text: JSON strings are unquoted,
// anything else is kept as its JSON encoding.
func (r *ProxyResponse) BodyText() string {
	if len(r.ResponseData) == 0 || string(r.ResponseData) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.ResponseData, &s); err == nil {
		return s
	}
	return string(r.ResponseData)
}

package dispatch

import (
	"context"
	"errors"
	"net/textproto"
	"sort"

	"github.com/dimitrije/nikode-engine/internal/models"
)

// documentedHeaders are response headers with a public reference page.
var documentedHeaders = map[string]bool{
	"Accept-Ranges":                    true,
	"Access-Control-Allow-Credentials": true,
	"Access-Control-Allow-Headers":     true,
	"Access-Control-Allow-Methods":     true,
	"Access-Control-Allow-Origin":      true,
	"Access-Control-Expose-Headers":    true,
	"Access-Control-Max-Age":           true,
	"Age":                              true,
	"Allow":                            true,
	"Cache-Control":                    true,
	"Connection":                       true,
	"Content-Disposition":              true,
	"Content-Encoding":                 true,
	"Content-Language":                 true,
	"Content-Length":                   true,
	"Content-Location":                 true,
	"Content-Range":                    true,
	"Content-Security-Policy":          true,
	"Content-Type":                     true,
	"Date":                             true,
	"Etag":                             true,
	"Expires":                          true,
	"Keep-Alive":                       true,
	"Last-Modified":                    true,
	"Link":                             true,
	"Location":                         true,
	"Retry-After":                      true,
	"Server":                           true,
	"Set-Cookie":                       true,
	"Strict-Transport-Security":        true,
	"Transfer-Encoding":                true,
	"Vary":                             true,
	"Www-Authenticate":                 true,
	"X-Content-Type-Options":           true,
	"X-Frame-Options":                  true,
}

// CanonicalHeaderName normalizes a header name to hyphenated title case.
func CanonicalHeaderName(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// IsDocumentedHeader reports whether a reference page exists for the header.
func IsDocumentedHeader(name string) bool {
	return documentedHeaders[CanonicalHeaderName(name)]
}

func responseHeaders(raw HeaderMap) []models.ResponseHeader {
	headers := make([]models.ResponseHeader, 0, len(raw))
	for name, value := range raw {
		canonical := CanonicalHeaderName(name)
		headers = append(headers, models.ResponseHeader{
			Name:       canonical,
			Value:      value,
			Documented: documentedHeaders[canonical],
		})
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].Name < headers[j].Name })
	return headers
}

// Classify maps a proxy answer, or the error from reaching it, to exactly one
// outcome. A proxy-reported error triple is passed through verbatim.
func Classify(resp *ProxyResponse, err error) Outcome {
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return Outcome{State: StateCancelled}
		case errors.Is(err, context.DeadlineExceeded):
			return failed(ErrorKindConnection, "Request timed out", "The transport proxy did not answer in time.")
		case errors.Is(err, ErrConnection):
			return failed(ErrorKindConnection, "Connection failed", err.Error())
		default:
			return failed(ErrorKindUnknown, "Unexpected error", err.Error())
		}
	}
	if resp == nil {
		return failed(ErrorKindUnknown, "Unexpected error", "empty proxy response")
	}
	if resp.Cancelled {
		return Outcome{State: StateCancelled}
	}
	if !resp.Success {
		if resp.ErrorType == "" && resp.ErrorTitle == "" && resp.ErrorMessage == "" {
			return failed(ErrorKindUnknown, "Unexpected error", "the proxy reported a failure without details")
		}
		return failed(resp.ErrorType, resp.ErrorTitle, resp.ErrorMessage)
	}
	return Outcome{
		State:    StateSuccess,
		Status:   resp.ResponseStatus,
		Headers:  responseHeaders(resp.ResponseHeaders),
		Body:     resp.BodyText(),
		TimeMs:   resp.ResponseTime,
		Size:     resp.ResponseSize,
		IsBinary: resp.IsBinary,
	}
}

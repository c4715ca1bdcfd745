package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrConnection means the proxy itself could not be reached.
var ErrConnection = errors.New("transport proxy unreachable")

// Transport performs proxy calls. ProxyClient is the HTTP implementation.
type Transport interface {
	Send(ctx context.Context, req *ProxyRequest) (*ProxyResponse, error)
	SendForm(ctx context.Context, req *FormProxyRequest) (*ProxyResponse, error)
}

// TransportConfig locates the proxy. It is read once from configuration and
// handed to the dispatcher instead of being looked up per call.
type TransportConfig struct {
	ProxyURL     string
	FormProxyURL string
	// Grace is added on top of the request timeout before the engine gives
	// up on the proxy answering at all.
	Grace time.Duration
}

type ProxyClient struct {
	cfg    TransportConfig
	client *http.Client
}

func NewProxyClient(cfg TransportConfig, client *http.Client) *ProxyClient {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 10 * time.Second
	}
	return &ProxyClient{cfg: cfg, client: client}
}

func (p *ProxyClient) deadline(ctx context.Context, timeoutSeconds int) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second+p.cfg.Grace)
}

func (p *ProxyClient) Send(ctx context.Context, req *ProxyRequest) (*ProxyResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode proxy request: %w", err)
	}

	ctx, cancel := p.deadline(ctx, req.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.ProxyURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return p.do(ctx, httpReq)
}

func (p *ProxyClient) SendForm(ctx context.Context, req *FormProxyRequest) (*ProxyResponse, error) {
	target, err := url.Parse(p.cfg.FormProxyURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, err
	}

	query := target.Query()
	query.Set("url", req.URL)
	query.Set("method", req.Method)
	query.Set("timeout", strconv.Itoa(req.Timeout))
	query.Set("followRedirects", strconv.FormatBool(req.FollowRedirects))
	query.Set("contentType", contentType)
	query.Set("headers", strings.Join(req.Headers, ","))
	if len(req.PathParams) > 0 {
		encoded, err := json.Marshal(req.PathParams)
		if err != nil {
			return nil, fmt.Errorf("encode path params: %w", err)
		}
		query.Set("path_params", string(encoded))
	}
	target.RawQuery = query.Encode()

	ctx, cancel := p.deadline(ctx, req.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	return p.do(ctx, httpReq)
}

// encodeForm writes the payload and returns the content type that names it,
// including the multipart boundary.
func encodeForm(req *FormProxyRequest) (io.Reader, string, error) {
	if !req.Multipart {
		values := url.Values{}
		for _, f := range req.Fields {
			values.Add(f.Key, f.Value)
		}
		return strings.NewReader(values.Encode()), req.ContentType, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range req.Fields {
		if !f.IsFile() {
			if err := w.WriteField(f.Key, f.Value); err != nil {
				return nil, "", fmt.Errorf("write form field %q: %w", f.Key, err)
			}
			continue
		}
		if err := writeFile(w, f.Key, f.Value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open form file %q: %w", path, err)
	}
	defer file.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file %q: %w", field, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy form file %q: %w", path, err)
	}
	return nil
}

func (p *ProxyClient) do(ctx context.Context, httpReq *http.Request) (*ProxyResponse, error) {
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	var out ProxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("decode proxy response (status %d): %w", resp.StatusCode, err)
	}
	return &out, nil
}

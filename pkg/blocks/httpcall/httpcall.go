// Package httpcall provides the outbound http.request block. Every
// request passes the SSRF guard before a connection is attempted.
package httpcall

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
	"github.com/appforge/flowcore/pkg/template"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20 // 1 MiB body cap
)

// guardURL is swapped in tests so httptest servers on loopback can be
// reached.
var guardURL = security.GuardURL

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
	http.MethodHead:   true,
}

// Block performs one outbound HTTP request. A non-2xx response is a
// failed result, not an error: the status boundary is the success
// boundary.
type Block struct {
	id      string
	url     string
	method  string
	headers map[string]any
	body    string
	auth    map[string]any
	timeout time.Duration
	client  *http.Client
	limiter security.RateLimiter
}

func NewBlock(id string, config map[string]any, client *http.Client, limiter security.RateLimiter) (*Block, error) {
	rawURL, ok := config["url"].(string)
	if !ok || rawURL == "" {
		return nil, errors.New("missing required field 'url'")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	method = strings.ToUpper(method)
	if !allowedMethods[method] {
		return nil, runfail.New(runfail.CodeInvalidConfig, "unsupported method "+method)
	}

	timeout := defaultTimeout
	if seconds, ok := config["timeoutSeconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	headers, _ := config["headers"].(map[string]any)
	body, _ := config["body"].(string)
	auth, _ := config["auth"].(map[string]any)

	if client == nil {
		client = &http.Client{}
	}

	return &Block{
		id:      id,
		url:     rawURL,
		method:  method,
		headers: headers,
		body:    body,
		auth:    auth,
		timeout: timeout,
		client:  client,
		limiter: limiter,
	}, nil
}

func (b *Block) ID() string {
	return b.id
}

func (b *Block) Label() string {
	return models.LabelHTTPRequest
}

func (b *Block) Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	if err := b.limiter.Allow(ctx, run.UserID, security.ActionHTTPCall); err != nil {
		return models.FailErr(err), nil
	}

	target := template.RenderString(b.url, run)

	if err := guardURL(target); err != nil {
		return models.FailErr(err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var bodyReader io.Reader
	if b.body != "" {
		bodyReader = strings.NewReader(template.RenderString(b.body, run))
	}

	req, err := http.NewRequestWithContext(ctx, b.method, target, bodyReader)
	if err != nil {
		return models.FailErr(runfail.Wrap(runfail.CodeInvalidConfig, err)), nil
	}

	for name, value := range b.headers {
		req.Header.Set(name, template.RenderString(template.Stringify(value), run))
	}

	b.applyAuth(req, run)

	started := time.Now()

	resp, err := b.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return models.Fail(runfail.CodeTimeout, "request to "+target+" timed out"), nil
		}

		return models.FailErr(runfail.Wrap(runfail.CodeExternalService, err)), nil
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.FailErr(runfail.Wrap(runfail.CodeExternalService, err)), nil
	}

	elapsed := time.Since(started)

	headers := make(map[string]any, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	output := map[string]any{
		"status":     resp.StatusCode,
		"headers":    headers,
		"body":       string(body),
		"durationMs": elapsed.Milliseconds(),
	}

	run.Set("http", "last_status", resp.StatusCode)
	run.Set("http", "last_body", string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result := models.Fail(runfail.CodeExternalService, resp.Status)
		result.Output = output

		return result, nil
	}

	return models.OK(output), nil
}

func (b *Block) applyAuth(req *http.Request, run *models.ExecutionContext) {
	kind, _ := b.auth["type"].(string)

	switch kind {
	case "bearer":
		token, _ := b.auth["token"].(string)
		req.Header.Set("Authorization", "Bearer "+template.RenderString(token, run))
	case "basic":
		username, _ := b.auth["username"].(string)
		password, _ := b.auth["password"].(string)
		req.SetBasicAuth(template.RenderString(username, run), template.RenderString(password, run))
	case "header":
		name, _ := b.auth["name"].(string)
		value, _ := b.auth["value"].(string)

		if name != "" {
			req.Header.Set(name, template.RenderString(value, run))
		}
	}
}

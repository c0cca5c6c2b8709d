package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hackgods/registry-scheduling/internal/domain"
	"github.com/hackgods/registry-scheduling/internal/metrics"
)

// ErrUnauthorized is wrapped in a TransportError when the registry rejects
// the session token. The request was not processed.
var ErrUnauthorized = errors.New("registry rejected session token")

const maxErrorBody = 4 << 10

// Transport performs one registry RPC. A SOAP binding can implement the same
// contract as the JSON proxy below.
type Transport interface {
	Call(ctx context.Context, method, token string, in, out any) error
}

type HTTPTransportConfig struct {
	BaseURL string // e.g. "https://registry-proxy.clinic.local"
	Timeout time.Duration
	Metrics *metrics.SchedulingMetrics
}

// HTTPTransport posts JSON to {base}/api/{method}.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.SchedulingMetrics
}

func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("registry: BaseURL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPTransport{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: cfg.Metrics,
	}, nil
}

func (t *HTTPTransport) Call(ctx context.Context, method, token string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		t.metrics.ObserveRegistryCall(method, outcomeOf(err), time.Since(start).Seconds())
	}()

	body, err := json.Marshal(in)
	if err != nil {
		return &domain.TransportError{Op: method, Err: fmt.Errorf("marshal request: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/api/%s", t.baseURL, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &domain.TransportError{Op: method, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &domain.TransportError{Op: method, Err: ErrUnauthorized}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &domain.TransportError{Op: method, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env envelope
	if resp.StatusCode < 500 && json.Unmarshal(raw, &env) == nil {
		if ferr := env.failure(method); ferr != nil {
			return ferr
		}
	}
	return &domain.TransportError{
		Op:  method,
		Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
	}
}

func outcomeOf(err error) string {
	var regErr *domain.RegistryError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &regErr):
		return "registry_error"
	default:
		return "transport_error"
	}
}

package prefill

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/omr/omr/internal/domain/record"
)

// Provider fetches prefill snapshots for the editing client.
type Provider interface {
	Fetch(ctx context.Context, patientNo string) (*Snapshot, error)
}

// HTTPProvider is the Provider over the record service's HTTP API.
type HTTPProvider struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPProvider creates a client for the service at baseURL. A nil
// httpClient gets a 15 second timeout default.
func NewHTTPProvider(baseURL, token string, httpClient *http.Client) *HTTPProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  httpClient,
	}
}

// SetToken replaces the bearer token after a re-login.
func (p *HTTPProvider) SetToken(token string) { p.token = token }

func (p *HTTPProvider) Fetch(ctx context.Context, patientNo string) (*Snapshot, error) {
	u := p.baseURL + "/api/v1/prefill?patient_no=" + url.QueryEscape(patientNo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &record.TransportError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, &record.TransportError{Err: fmt.Errorf("decode response: %w", err)}
		}
		return &out, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, record.ErrAuthExpired
	case resp.StatusCode == http.StatusNotFound:
		return nil, record.ErrNotFound
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, &record.TransportError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}
}

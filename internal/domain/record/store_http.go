package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// errorEnvelope mirrors the record store's error body.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  struct {
		CurrentVersion *int         `json:"current_version"`
		Errors         []FieldError `json:"errors"`
	} `json:"detail"`
}

// HTTPStore is the Store implementation over the record service's HTTP
// API.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPStore creates a client for the record service at baseURL. A nil
// httpClient gets a 15 second timeout default.
func NewHTTPStore(baseURL, token string, httpClient *http.Client) *HTTPStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  httpClient,
	}
}

// SetToken replaces the bearer token after a re-login.
func (s *HTTPStore) SetToken(token string) { s.token = token }

func (s *HTTPStore) Fetch(ctx context.Context, patientNo string) (*Response, error) {
	return s.roundTrip(ctx, http.MethodGet, s.recordURL(patientNo, ""), nil)
}

func (s *HTTPStore) SaveDraft(ctx context.Context, patientNo string, req SaveRequest) (*Response, error) {
	return s.roundTrip(ctx, http.MethodPut, s.recordURL(patientNo, "draft"), &req)
}

func (s *HTTPStore) Submit(ctx context.Context, patientNo string, req SaveRequest) (*Response, error) {
	return s.roundTrip(ctx, http.MethodPost, s.recordURL(patientNo, "submit"), &req)
}

func (s *HTTPStore) recordURL(patientNo, action string) string {
	u := s.baseURL + "/api/v1/records/" + url.PathEscape(patientNo)
	if action != "" {
		u += "/" + action
	}
	return u
}

func (s *HTTPStore) roundTrip(ctx context.Context, method, u string, body *SaveRequest) (*Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out Response
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
		}
		return &out, nil
	}

	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &env)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, ErrAuthExpired
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusConflict:
		current := 0
		if env.Detail.CurrentVersion != nil {
			current = *env.Detail.CurrentVersion
		}
		return nil, &ConflictError{CurrentVersion: current}
	case http.StatusUnprocessableEntity:
		return nil, &ValidationError{Errors: env.Detail.Errors}
	default:
		msg := env.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &TransportError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}
}

package record

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPStoreFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/records/P001" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(Response{
			Record: Meta{RecordID: 9, PatientNo: "P001", Status: StatusDraft, Version: 2},
		})
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "tok", nil)
	resp, err := store.Fetch(context.Background(), "P001")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Record.Version != 2 || resp.Record.PatientNo != "P001" {
		t.Errorf("unexpected record %+v", resp.Record)
	}
}

func TestHTTPStoreSaveDraftSendsVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/records/P001/draft" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Version == nil || *req.Version != 3 {
			t.Errorf("expected version 3 in body, got %v", req.Version)
		}
		json.NewEncoder(w).Encode(Response{Record: Meta{Version: 4}})
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "tok", nil)
	v := 3
	resp, err := store.SaveDraft(context.Background(), "P001", SaveRequest{Version: &v})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if resp.Record.Version != 4 {
		t.Errorf("expected version 4 back, got %d", resp.Record.Version)
	}
}

func TestHTTPStoreErrorMapping(t *testing.T) {
	status := http.StatusOK
	body := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()
	store := NewHTTPStore(srv.URL, "", nil)
	ctx := context.Background()

	status = http.StatusUnauthorized
	body = `{"code":"auth_expired","message":"session expired"}`
	if _, err := store.Fetch(ctx, "P001"); !errors.Is(err, ErrAuthExpired) {
		t.Errorf("401 should map to ErrAuthExpired, got %v", err)
	}

	status = http.StatusNotFound
	body = `{"code":"not_found","message":"record not found"}`
	if _, err := store.Fetch(ctx, "P001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("404 should map to ErrNotFound, got %v", err)
	}

	status = http.StatusConflict
	body = `{"code":"version_conflict","message":"stale version","detail":{"current_version":8}}`
	_, err := store.Submit(ctx, "P001", SaveRequest{})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.CurrentVersion != 8 {
		t.Errorf("409 should map to ConflictError with version 8, got %v", err)
	}

	status = http.StatusUnprocessableEntity
	body = `{"code":"validation_failed","message":"validation failed","detail":{"errors":[{"field":"base_info.jzkh","message":"required","rule":"required","section":"base_info"}]}}`
	_, err = store.Submit(ctx, "P001", SaveRequest{})
	var invalid *ValidationError
	if !errors.As(err, &invalid) || len(invalid.Errors) != 1 || invalid.Errors[0].Field != "base_info.jzkh" {
		t.Errorf("422 should map to ValidationError, got %v", err)
	}

	status = http.StatusBadGateway
	body = `upstream down`
	_, err = store.Fetch(ctx, "P001")
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Errorf("502 should map to TransportError, got %v", err)
	}
}

func TestHTTPStoreConnectionRefused(t *testing.T) {
	store := NewHTTPStore("http://127.0.0.1:1", "", nil)
	_, err := store.Fetch(context.Background(), "P001")
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("network failure should map to TransportError, got %v", err)
	}
}

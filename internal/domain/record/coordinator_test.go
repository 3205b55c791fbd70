package record

import (
	"context"
	"errors"
	"testing"
)

// -- Mock Store --

type mockStore struct {
	fetchFn func(ctx context.Context, patientNo string) (*Response, error)
	saveFn  func(ctx context.Context, patientNo string, req SaveRequest) (*Response, error)
	submits int
	drafts  int
	lastReq SaveRequest
}

func (m *mockStore) Fetch(ctx context.Context, patientNo string) (*Response, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, patientNo)
	}
	return nil, ErrNotFound
}

func (m *mockStore) SaveDraft(ctx context.Context, patientNo string, req SaveRequest) (*Response, error) {
	m.drafts++
	m.lastReq = req
	return m.saveFn(ctx, patientNo, req)
}

func (m *mockStore) Submit(ctx context.Context, patientNo string, req SaveRequest) (*Response, error) {
	m.submits++
	m.lastReq = req
	return m.saveFn(ctx, patientNo, req)
}

func okResponse(patientNo string, version int) *Response {
	return &Response{
		Record: Meta{RecordID: 1, PatientNo: patientNo, Status: StatusDraft, Version: version},
	}
}

// validForm builds a FormState whose snapshot passes local validation.
func validForm(patientNo string) *FormState {
	f := NewFormState(patientNo)
	s := validSnapshot()
	f.Base = s.Base
	f.TcmDisease.Replace(s.TcmDisease)
	f.TcmSyndrome.Replace(s.TcmSyndrome)
	f.WMMain.Replace(s.WMMain)
	med := *s.Medication
	f.Medication = &med
	return f
}

func TestSaveDraftStopsOnLocalErrors(t *testing.T) {
	store := &mockStore{
		saveFn: func(_ context.Context, _ string, _ SaveRequest) (*Response, error) {
			t.Fatal("invalid form must never reach the wire")
			return nil, nil
		},
	}
	// A nearly empty form fails local validation in either mode.
	c := NewCoordinator(store, NewFormState("P001"))

	out := c.Save(context.Background(), ModeDraft)
	if out.State != StateLocalInvalid {
		t.Fatalf("draft save state = %v, want local_invalid", out.State)
	}
	if len(out.Errors) == 0 {
		t.Fatal("expected field errors on invalid draft save")
	}
	if store.drafts != 0 || store.submits != 0 {
		t.Errorf("expected no store calls, got drafts=%d submits=%d", store.drafts, store.submits)
	}
}

func TestSaveDraftNewRecord(t *testing.T) {
	store := &mockStore{
		saveFn: func(_ context.Context, patientNo string, _ SaveRequest) (*Response, error) {
			return okResponse(patientNo, 1), nil
		},
	}
	c := NewCoordinator(store, validForm("P001"))

	out := c.Save(context.Background(), ModeDraft)
	if out.State != StateSuccess {
		t.Fatalf("draft save state = %v, err = %v", out.State, out.Err)
	}
	if store.drafts != 1 || store.submits != 0 {
		t.Errorf("expected one draft call, got drafts=%d submits=%d", store.drafts, store.submits)
	}
	if store.lastReq.Version != nil {
		t.Error("first save of a new record must not carry a version")
	}
	if rec := c.Record(); rec == nil || rec.Version != 1 {
		t.Errorf("expected version 1 applied, got %+v", rec)
	}
}

func TestSubmitStopsOnLocalErrors(t *testing.T) {
	store := &mockStore{
		saveFn: func(_ context.Context, _ string, _ SaveRequest) (*Response, error) {
			t.Fatal("invalid form must never reach the wire")
			return nil, nil
		},
	}
	c := NewCoordinator(store, NewFormState("P001"))

	out := c.Save(context.Background(), ModeSubmit)
	if out.State != StateLocalInvalid {
		t.Fatalf("state = %v, want local_invalid", out.State)
	}
	if len(out.Errors) == 0 {
		t.Fatal("expected field errors")
	}
	if target, moved := c.FirstErrorTarget(); !moved || target.Field != out.Errors[0].Field {
		t.Errorf("expected routing to the first error, got %+v moved=%v", target, moved)
	}
}

func TestSubmitEchoesVersion(t *testing.T) {
	store := &mockStore{
		fetchFn: func(_ context.Context, patientNo string) (*Response, error) {
			resp := okResponse(patientNo, 3)
			resp.Payload = BuildPayload(validSnapshot())
			return resp, nil
		},
		saveFn: func(_ context.Context, patientNo string, req SaveRequest) (*Response, error) {
			if req.Version == nil || *req.Version != 3 {
				t.Fatalf("expected echoed version 3, got %v", req.Version)
			}
			resp := okResponse(patientNo, 4)
			resp.Record.Status = StatusSubmitted
			return resp, nil
		},
	}
	c := NewCoordinator(store, validForm("P001"))
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	out := c.Save(context.Background(), ModeSubmit)
	if out.State != StateSuccess {
		t.Fatalf("state = %v, err = %v", out.State, out.Err)
	}
	if rec := c.Record(); rec.Version != 4 || rec.Status != StatusSubmitted {
		t.Errorf("expected submitted v4 applied, got %+v", rec)
	}
}

func TestSaveConflictKeepsEdits(t *testing.T) {
	store := &mockStore{
		saveFn: func(_ context.Context, _ string, _ SaveRequest) (*Response, error) {
			return nil, &ConflictError{CurrentVersion: 7}
		},
	}
	f := validForm("P001")
	f.Base["hzzs"] = "local edit"
	c := NewCoordinator(store, f)

	out := c.Save(context.Background(), ModeDraft)
	if out.State != StateConflict {
		t.Fatalf("state = %v, want conflict", out.State)
	}
	if out.Conflict == nil || out.Conflict.CurrentVersion != 7 {
		t.Fatalf("expected current_version 7, got %+v", out.Conflict)
	}
	if f.Base["hzzs"] != "local edit" {
		t.Error("conflict must not touch local edits")
	}

	c.Abort()
	if c.State() != StateIdle {
		t.Errorf("abort should return to idle, got %v", c.State())
	}
}

func TestConflictDiscardAndReload(t *testing.T) {
	serverPayload := BuildPayload(validSnapshot())
	store := &mockStore{
		fetchFn: func(_ context.Context, patientNo string) (*Response, error) {
			resp := okResponse(patientNo, 7)
			resp.Payload = serverPayload
			return resp, nil
		},
		saveFn: func(_ context.Context, _ string, _ SaveRequest) (*Response, error) {
			return nil, &ConflictError{CurrentVersion: 7}
		},
	}
	f := validForm("P001")
	f.Base["xm"] = "local edit"
	c := NewCoordinator(store, f)

	if out := c.Save(context.Background(), ModeDraft); out.State != StateConflict {
		t.Fatalf("state = %v, want conflict", out.State)
	}
	if err := c.DiscardAndReload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if f.Base["xm"] != serverPayload.BaseInfo["xm"] {
		t.Errorf("reload must replace local edits, got %q", f.Base["xm"])
	}
	if rec := c.Record(); rec == nil || rec.Version != 7 {
		t.Errorf("expected server version applied, got %+v", rec)
	}
	if c.State() != StateIdle {
		t.Errorf("state after reload = %v, want idle", c.State())
	}
}

func TestSaveRemoteInvalid(t *testing.T) {
	remote := []FieldError{{Field: "fee_summary.zfy", Message: "grand total must be greater than 0", Rule: "fee_relation", Section: SectionFee}}
	store := &mockStore{
		saveFn: func(_ context.Context, _ string, _ SaveRequest) (*Response, error) {
			return nil, &ValidationError{Errors: remote}
		},
	}
	c := NewCoordinator(store, validForm("P001"))

	out := c.Save(context.Background(), ModeSubmit)
	if out.State != StateRemoteInvalid {
		t.Fatalf("state = %v, want remote_invalid", out.State)
	}
	if target, moved := c.FirstErrorTarget(); !moved || target.Tab != TabFee {
		t.Errorf("expected routing to fee tab, got %+v moved=%v", target, moved)
	}
}

func TestSaveTransportError(t *testing.T) {
	store := &mockStore{
		saveFn: func(_ context.Context, _ string, _ SaveRequest) (*Response, error) {
			return nil, &TransportError{Err: errors.New("connection refused")}
		},
	}
	c := NewCoordinator(store, validForm("P001"))

	out := c.Save(context.Background(), ModeDraft)
	if out.State != StateTransportError {
		t.Fatalf("state = %v, want transport_error", out.State)
	}
	if out.Err == nil {
		t.Error("expected the transport error surfaced")
	}
}

func TestSaveAuthExpired(t *testing.T) {
	store := &mockStore{
		saveFn: func(_ context.Context, _ string, _ SaveRequest) (*Response, error) {
			return nil, ErrAuthExpired
		},
	}
	c := NewCoordinator(store, validForm("P001"))

	out := c.Save(context.Background(), ModeDraft)
	if out.State != StateAuthExpired {
		t.Fatalf("state = %v, want auth_expired", out.State)
	}
}

func TestStaleResponseDiscardedAfterPatientSwitch(t *testing.T) {
	var c *Coordinator
	store := &mockStore{
		saveFn: func(_ context.Context, patientNo string, _ SaveRequest) (*Response, error) {
			// The user switches patients while the save is in flight.
			c.SwitchPatient(NewFormState("P002"))
			return okResponse(patientNo, 1), nil
		},
	}
	c = NewCoordinator(store, validForm("P001"))

	out := c.Save(context.Background(), ModeDraft)
	if !out.Discarded {
		t.Fatal("response for the previous patient must be discarded")
	}
	if rec := c.Record(); rec != nil {
		t.Errorf("discarded response must not be applied, got %+v", rec)
	}
	if c.Form().PatientNo != "P002" {
		t.Errorf("expected the new patient's form, got %s", c.Form().PatientNo)
	}
}

func TestLoadMissingRecordIsClean(t *testing.T) {
	c := NewCoordinator(&mockStore{}, NewFormState("P404"))
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("missing record should not be a load error: %v", err)
	}
	if c.Record() != nil {
		t.Error("no record identity should be set")
	}
}

func TestSaveSuccessKeepsInFlightEdits(t *testing.T) {
	f := validForm("P001")
	store := &mockStore{
		saveFn: func(_ context.Context, patientNo string, _ SaveRequest) (*Response, error) {
			// Edit made while the request is on the wire.
			f.Base["hzzs"] = "typed during save"
			resp := okResponse(patientNo, 2)
			resp.Payload = BuildPayload(validSnapshot())
			resp.FeeSummary = map[string]string{"zfy": "380.50"}
			return resp, nil
		},
	}
	c := NewCoordinator(store, f)

	out := c.Save(context.Background(), ModeDraft)
	if out.State != StateSuccess {
		t.Fatalf("state = %v", out.State)
	}
	if f.Base["hzzs"] != "typed during save" {
		t.Error("a save response must not overwrite edits made in flight")
	}
	if f.Fees["zfy"] != "380.50" {
		t.Error("derived summaries replace wholesale on success")
	}
}

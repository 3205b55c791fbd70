package record

import (
	"context"
	"errors"
)

// State is the submission pipeline's position.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateLocalInvalid
	StateSubmitting
	StateSuccess
	StateConflict
	StateRemoteInvalid
	StateTransportError
	StateAuthExpired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateLocalInvalid:
		return "local_invalid"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateConflict:
		return "conflict"
	case StateRemoteInvalid:
		return "remote_invalid"
	case StateTransportError:
		return "transport_error"
	case StateAuthExpired:
		return "auth_expired"
	default:
		return "unknown"
	}
}

// Mode selects what a save means: a draft checkpoint or a final submit.
type Mode string

const (
	ModeDraft  Mode = "draft"
	ModeSubmit Mode = "submit"
)

// Outcome is the result of one Save call.
type Outcome struct {
	State    State
	Errors   []FieldError
	Conflict *ConflictError
	Response *Response
	// Discarded is set when the response arrived after the coordinator
	// switched to another patient; nothing was applied.
	Discarded bool
	Err       error
}

// Coordinator drives the save/submit pipeline for one form. It owns the
// FormState, the last known record identity, and the error routing
// history. It is single-goroutine like the form it wraps.
type Coordinator struct {
	store  Store
	form   *FormState
	meta   *Meta
	errs   []FieldError
	state  State
	gen    int
	router ErrorRouter
}

// NewCoordinator wraps a form over a record store.
func NewCoordinator(store Store, form *FormState) *Coordinator {
	return &Coordinator{store: store, form: form, state: StateIdle}
}

// Form returns the form this coordinator drives.
func (c *Coordinator) Form() *FormState { return c.form }

// State returns the current pipeline state.
func (c *Coordinator) State() State { return c.state }

// Record returns the last record identity applied from the server, or nil
// before the first load or save of a new record.
func (c *Coordinator) Record() *Meta {
	if c.meta == nil {
		return nil
	}
	m := *c.meta
	return &m
}

// Errors returns the current validation errors, local or remote.
func (c *Coordinator) Errors() []FieldError { return c.errs }

// FirstErrorTarget reports where focus should move for the current
// errors, honoring the router's re-route suppression.
func (c *Coordinator) FirstErrorTarget() (RouteTarget, bool) {
	return c.router.Route(c.errs)
}

// SwitchPatient points the coordinator at a different patient's form.
// Responses still in flight for the previous patient are discarded when
// they land.
func (c *Coordinator) SwitchPatient(form *FormState) {
	c.gen++
	c.form = form
	c.meta = nil
	c.errs = nil
	c.state = StateIdle
	c.router.Reset()
}

// Load fetches the patient's record and replaces the form's content with
// it. A missing record is not an error: the form stays as it is and the
// next save creates version 1.
func (c *Coordinator) Load(ctx context.Context) error {
	resp, err := c.store.Fetch(ctx, c.form.PatientNo)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.meta = nil
			return nil
		}
		return err
	}
	c.apply(resp, true)
	return nil
}

// Save runs the pipeline once. Both modes validate locally first and
// never reach the wire while the form is inadmissible; a draft differs
// from a submit only in which store call carries the payload.
func (c *Coordinator) Save(ctx context.Context, mode Mode) Outcome {
	gen := c.gen
	c.state = StateValidating
	snap := c.form.Snapshot()

	if errs := Validate(snap); len(errs) > 0 {
		c.errs = errs
		c.state = StateLocalInvalid
		return Outcome{State: c.state, Errors: errs}
	}

	req := SaveRequest{Payload: BuildPayload(snap)}
	if c.meta != nil {
		v := c.meta.Version
		req.Version = &v
	}

	c.state = StateSubmitting
	var resp *Response
	var err error
	if mode == ModeSubmit {
		resp, err = c.store.Submit(ctx, c.form.PatientNo, req)
	} else {
		resp, err = c.store.SaveDraft(ctx, c.form.PatientNo, req)
	}

	if gen != c.gen {
		return Outcome{State: c.state, Discarded: true}
	}

	if err != nil {
		return c.fail(err)
	}

	c.apply(resp, false)
	c.errs = nil
	c.state = StateSuccess
	c.router.Reset()
	return Outcome{State: c.state, Response: resp}
}

func (c *Coordinator) fail(err error) Outcome {
	var conflict *ConflictError
	var invalid *ValidationError
	switch {
	case errors.Is(err, ErrAuthExpired):
		c.state = StateAuthExpired
		return Outcome{State: c.state, Err: err}
	case errors.As(err, &conflict):
		c.state = StateConflict
		return Outcome{State: c.state, Conflict: conflict, Err: err}
	case errors.As(err, &invalid):
		c.errs = invalid.Errors
		c.state = StateRemoteInvalid
		return Outcome{State: c.state, Errors: invalid.Errors, Err: err}
	default:
		c.state = StateTransportError
		return Outcome{State: c.state, Err: err}
	}
}

// apply installs a server response. The record identity and the derived
// summaries replace wholesale; the editable payload replaces only on an
// explicit load, never on a save response, so a save cannot clobber edits
// made while it was in flight.
func (c *Coordinator) apply(resp *Response, loadPayload bool) {
	m := resp.Record
	c.meta = &m
	if resp.MedicationSummary != nil {
		med := *resp.MedicationSummary
		c.form.Medication = &med
	}
	if resp.FeeSummary != nil {
		fees := make(map[string]string, len(resp.FeeSummary))
		for k, v := range resp.FeeSummary {
			fees[k] = v
		}
		c.form.Fees = fees
	}
	if loadPayload {
		c.form.LoadPayload(resp.Payload)
	}
}

// DiscardAndReload resolves a conflict by throwing away local edits and
// reloading the server's current version.
func (c *Coordinator) DiscardAndReload(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		return err
	}
	c.errs = nil
	c.state = StateIdle
	c.router.Reset()
	return nil
}

// Abort resolves a conflict by keeping local edits and returning to idle;
// the user decides what to do next.
func (c *Coordinator) Abort() {
	c.state = StateIdle
}

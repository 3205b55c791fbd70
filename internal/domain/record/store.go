package record

import "context"

// Store is the record persistence surface the coordinator talks to.
// Implementations report failures with the typed errors in this package:
// ErrNotFound, ErrAuthExpired, *ConflictError, *ValidationError and
// *TransportError.
type Store interface {
	// Fetch loads the current record for a patient, or ErrNotFound when
	// no record exists yet.
	Fetch(ctx context.Context, patientNo string) (*Response, error)

	// SaveDraft persists a draft. The server runs no admission checks on
	// drafts; only the version gate applies.
	SaveDraft(ctx context.Context, patientNo string, req SaveRequest) (*Response, error)

	// Submit persists and finalizes the record. The server re-runs the
	// full admission validation and refuses with *ValidationError when it
	// fails.
	Submit(ctx context.Context, patientNo string, req SaveRequest) (*Response, error)
}

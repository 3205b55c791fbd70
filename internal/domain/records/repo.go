package records

import (
	"context"
	"errors"
)

// Storage-level failures the service maps onto API errors.
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrVersionConflict = errors.New("record version changed")
)

// Repository defines storage operations for outpatient records.
type Repository interface {
	GetByPatient(ctx context.Context, patientNo string) (*StoredRecord, error)

	// Create inserts a new record at version 1.
	Create(ctx context.Context, rec *StoredRecord) error

	// Update replaces the record and its groups, bumping the version.
	// The write only lands if the stored version still equals
	// expectedVersion; otherwise ErrVersionConflict.
	Update(ctx context.Context, rec *StoredRecord, expectedVersion int) error

	// DeleteByPatient removes the record and its groups. Used by the
	// development reset endpoint.
	DeleteByPatient(ctx context.Context, patientNo string) error
}

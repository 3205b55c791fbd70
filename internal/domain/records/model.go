// Package records is the server side of the outpatient record store:
// versioned persistence, admission validation on submit, and the print
// rendering of finalized records.
package records

import (
	"time"

	"github.com/omr/omr/internal/domain/record"
)

// StoredRecord is one record row with all of its child groups loaded.
type StoredRecord struct {
	ID          int64
	PatientNo   string
	Status      record.Status
	Version     int
	VisitTime   *time.Time
	DeptCode    string
	DocCode     string
	SubmittedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	BaseInfo      map[string]string
	Diagnoses     []record.DiagnosisEntry
	TcmOperations []record.TcmOperationRow
	Surgeries     []record.SurgeryRow
	HerbDetails   []record.HerbDetailRow

	Medication      *record.MedicationSummary
	Fees            map[string]string
	PrefillSnapshot map[string]interface{}
}

// Payload returns the editable content in wire form.
func (r *StoredRecord) Payload() record.Payload {
	return record.Payload{
		BaseInfo:      r.BaseInfo,
		Diagnoses:     r.Diagnoses,
		TcmOperations: r.TcmOperations,
		Surgeries:     r.Surgeries,
		HerbDetails:   r.HerbDetails,
	}
}

// Meta returns the record identity in wire form.
func (r *StoredRecord) Meta() record.Meta {
	return record.Meta{
		RecordID:    r.ID,
		PatientNo:   r.PatientNo,
		Status:      r.Status,
		Version:     r.Version,
		VisitTime:   r.VisitTime,
		SubmittedAt: r.SubmittedAt,
	}
}

// Response builds the API body for this record.
func (r *StoredRecord) Response() *record.Response {
	return &record.Response{
		Record:            r.Meta(),
		Payload:           r.Payload(),
		MedicationSummary: r.Medication,
		FeeSummary:        r.Fees,
	}
}

// ApplyPayload replaces the editable content from an inbound payload.
// Sequence numbers must already be validated; they are renumbered here so
// storage never sees a gap.
func (r *StoredRecord) ApplyPayload(p record.Payload) {
	record.NormalizeSeq(&p)
	r.BaseInfo = p.BaseInfo
	r.Diagnoses = p.Diagnoses
	r.TcmOperations = p.TcmOperations
	r.Surgeries = p.Surgeries
	r.HerbDetails = p.HerbDetails
}

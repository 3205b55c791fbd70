// Package prefill aggregates upstream HIS data into the initial form
// state: base demographics the operator may correct, read-only fee and
// medication figures, and candidate diagnosis and herb lists.
package prefill

import (
	"github.com/omr/omr/internal/domain/record"
)

// FieldValue is one prefilled field with its provenance. Read-only fields
// only change when a fresh snapshot is merged.
type FieldValue struct {
	Value    string `json:"value"`
	Source   string `json:"source"`
	ReadOnly bool   `json:"readonly"`
}

// SourcePrefill marks values taken from the HIS feed.
const SourcePrefill = "prefill"

// Snapshot is the aggregated upstream state for one visit.
type Snapshot struct {
	PatientNo string                `json:"patient_no"`
	VisitTime string                `json:"visit_time,omitempty"`
	Fields    map[string]FieldValue `json:"fields"`

	Diagnoses map[record.DiagType][]record.DiagnosisRow `json:"diagnoses,omitempty"`
	Herbs     []record.HerbDetailRow                    `json:"herbs,omitempty"`
}

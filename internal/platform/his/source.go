// Package his exposes the hospital information system feeds the record
// form is prefilled from: visit base info, charging totals, HIS-entered
// diagnoses and herbal prescription lines.
package his

import (
	"context"
	"errors"
)

// ErrVisitNotFound means the HIS has no visit for the patient number.
var ErrVisitNotFound = errors.New("visit not found in HIS")

// DiagnosisLine is one diagnosis row as the HIS reports it. Sort "D" is a
// western-medicine diagnosis, "B" a TCM disease, "Z" a TCM syndrome; a
// western diagnosis with No 1 is the principal one.
type DiagnosisLine struct {
	Sort string
	No   int
	Name string
	Code string
}

// HerbLine is one herbal prescription line from the pharmacy feed.
type HerbLine struct {
	HerbType  string
	RouteCode string
	RouteName string
	DoseCount int
}

// Source is the read-only HIS surface the prefill service aggregates.
// Base info and fee info come back as uppercase HIS column maps; values
// are already stringified.
type Source interface {
	FetchBaseInfo(ctx context.Context, patientNo string) (map[string]string, error)
	FetchFeeInfo(ctx context.Context, patientNo string) (map[string]string, error)
	FetchDiagnoses(ctx context.Context, patientNo string) ([]DiagnosisLine, error)
	FetchChiefComplaint(ctx context.Context, patientNo string) (string, error)
	FetchHerbLines(ctx context.Context, patientNo string) ([]HerbLine, error)
}

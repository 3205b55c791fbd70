package his

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ViewSource reads the HIS feeds from mirror views replicated into
// Postgres. Each view is keyed by the patient number; values come back
// as text so the feed stays format-agnostic.
type ViewSource struct {
	pool *pgxpool.Pool
}

func NewViewSource(pool *pgxpool.Pool) *ViewSource {
	return &ViewSource{pool: pool}
}

// fetchRow reads one keyed view row into an uppercase column map.
func (s *ViewSource) fetchRow(ctx context.Context, view, patientNo string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT * FROM %s WHERE patient_no = $1 LIMIT 1`, view), patientNo)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", view, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", view, err)
		}
		return nil, ErrVisitNotFound
	}

	fields := rows.FieldDescriptions()
	values, err := rows.Values()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", view, err)
	}
	out := make(map[string]string, len(fields))
	for i, fd := range fields {
		if values[i] == nil {
			continue
		}
		out[strings.ToUpper(string(fd.Name))] = fmt.Sprintf("%v", values[i])
	}
	return out, nil
}

func (s *ViewSource) FetchBaseInfo(ctx context.Context, patientNo string) (map[string]string, error) {
	return s.fetchRow(ctx, "his_visit_base", patientNo)
}

func (s *ViewSource) FetchFeeInfo(ctx context.Context, patientNo string) (map[string]string, error) {
	return s.fetchRow(ctx, "his_visit_fee", patientNo)
}

func (s *ViewSource) FetchDiagnoses(ctx context.Context, patientNo string) ([]DiagnosisLine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT diagnosis_sort, diagnosis_no, diagnosis_name, COALESCE(diagnosis_code, '')
		 FROM his_visit_diagnosis WHERE patient_no = $1 ORDER BY diagnosis_sort, diagnosis_no`,
		patientNo)
	if err != nil {
		return nil, fmt.Errorf("query his_visit_diagnosis: %w", err)
	}
	defer rows.Close()

	var out []DiagnosisLine
	for rows.Next() {
		var l DiagnosisLine
		if err := rows.Scan(&l.Sort, &l.No, &l.Name, &l.Code); err != nil {
			return nil, fmt.Errorf("scan diagnosis line: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read his_visit_diagnosis: %w", err)
	}
	return out, nil
}

func (s *ViewSource) FetchChiefComplaint(ctx context.Context, patientNo string) (string, error) {
	var complaint string
	err := s.pool.QueryRow(ctx,
		`SELECT chief_complaint FROM his_visit_complaint WHERE patient_no = $1`,
		patientNo).Scan(&complaint)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query his_visit_complaint: %w", err)
	}
	return complaint, nil
}

func (s *ViewSource) FetchHerbLines(ctx context.Context, patientNo string) ([]HerbLine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(herb_type, ''), COALESCE(route_code, ''), COALESCE(route_name, ''), COALESCE(dose_count, 0)
		 FROM his_visit_herb WHERE patient_no = $1 ORDER BY line_no`,
		patientNo)
	if err != nil {
		return nil, fmt.Errorf("query his_visit_herb: %w", err)
	}
	defer rows.Close()

	var out []HerbLine
	for rows.Next() {
		var l HerbLine
		if err := rows.Scan(&l.HerbType, &l.RouteCode, &l.RouteName, &l.DoseCount); err != nil {
			return nil, fmt.Errorf("scan herb line: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read his_visit_herb: %w", err)
	}
	return out, nil
}

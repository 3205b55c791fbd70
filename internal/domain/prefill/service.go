package prefill

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/omr/omr/internal/domain/record"
	"github.com/omr/omr/internal/platform/auth"
	"github.com/omr/omr/internal/platform/his"
)

var (
	// ErrVisitUnknown means the HIS has no visit for the patient number.
	ErrVisitUnknown = errors.New("no HIS visit for patient")

	// ErrAccessDenied means the operator's codes do not cover the visit.
	ErrAccessDenied = errors.New("operator may not view this visit")

	// ErrExternal wraps HIS failures during aggregation.
	ErrExternal = errors.New("HIS temporarily unavailable")
)

// prefillBaseFields are the editable base fields the HIS feed seeds, by
// their uppercase upstream keys.
var prefillBaseFields = []string{
	"USERNAME", "JZKH", "XM", "XB", "CSRQ", "HY", "GJ", "MZ",
	"ZJLB", "ZJHM", "XZZ", "LXDH", "GHSJ", "BDSJ", "JZSJ",
	"JZKS", "JZKSDM", "JZYS", "JZYSZC", "HZZS",
}

// medFlagFields are the HIS usage flags shown read-only on the form.
var medFlagFields = []string{"XYSY", "ZCYSY", "ZYZJSY", "CTYPSY", "PFKLSY"}

// Service builds prefill snapshots from the HIS feed.
type Service struct {
	source his.Source
	logger zerolog.Logger
}

func NewService(source his.Source, logger zerolog.Logger) *Service {
	return &Service{source: source, logger: logger}
}

// Build aggregates the upstream state for one visit. Base info is fetched
// first for the access check; the remaining feeds load concurrently.
func (s *Service) Build(ctx context.Context, patientNo string, sess *auth.Session) (*Snapshot, error) {
	baseRow, err := s.source.FetchBaseInfo(ctx, patientNo)
	if err != nil {
		if errors.Is(err, his.ErrVisitNotFound) {
			return nil, ErrVisitUnknown
		}
		return nil, fmt.Errorf("%w: fetch base info: %v", ErrExternal, err)
	}
	if !sessionMayView(sess, baseRow) {
		return nil, ErrAccessDenied
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		fetchErr  error
		feeRow    map[string]string
		diagnoses []his.DiagnosisLine
		chief     string
		herbRows  []his.HerbLine
	)
	fail := func(what string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if fetchErr == nil {
			fetchErr = fmt.Errorf("%w: fetch %s: %v", ErrExternal, what, err)
		}
	}
	wg.Add(4)
	go func() {
		defer wg.Done()
		r, err := s.source.FetchFeeInfo(ctx, patientNo)
		if err != nil && !errors.Is(err, his.ErrVisitNotFound) {
			fail("fee info", err)
			return
		}
		feeRow = r
	}()
	go func() {
		defer wg.Done()
		r, err := s.source.FetchDiagnoses(ctx, patientNo)
		if err != nil && !errors.Is(err, his.ErrVisitNotFound) {
			fail("diagnoses", err)
			return
		}
		diagnoses = r
	}()
	go func() {
		defer wg.Done()
		r, err := s.source.FetchChiefComplaint(ctx, patientNo)
		if err != nil && !errors.Is(err, his.ErrVisitNotFound) {
			fail("chief complaint", err)
			return
		}
		chief = r
	}()
	go func() {
		defer wg.Done()
		r, err := s.source.FetchHerbLines(ctx, patientNo)
		if err != nil && !errors.Is(err, his.ErrVisitNotFound) {
			fail("herb lines", err)
			return
		}
		herbRows = r
	}()
	wg.Wait()
	if fetchErr != nil {
		return nil, fetchErr
	}

	snap := &Snapshot{
		PatientNo: patientNo,
		VisitTime: clean(baseRow["JZSJ"]),
		Fields:    buildFields(baseRow, feeRow, chief),
		Diagnoses: buildDiagnosisLists(diagnoses),
		Herbs:     buildHerbList(herbRows),
	}
	s.logger.Debug().
		Str("patient_no", patientNo).
		Int("fields", len(snap.Fields)).
		Int("herbs", len(snap.Herbs)).
		Msg("prefill snapshot built")
	return snap, nil
}

func sessionMayView(sess *auth.Session, baseRow map[string]string) bool {
	if sess.HasRole("admin") {
		return true
	}
	if sess.DeptCode != "" && sess.DeptCode == clean(baseRow["JZKSDM"]) {
		return true
	}
	docCode := clean(baseRow["JZYSDM"])
	if docCode == "" {
		docCode = clean(baseRow["JZYS_DM"])
	}
	return sess.DocCode != "" && sess.DocCode == docCode
}

// buildFields maps the raw HIS rows onto form fields with provenance.
// Base fields stay editable; fee figures and medication flags are
// read-only. The admission order time is locked only when the HIS already
// carries a value for it.
func buildFields(baseRow, feeRow map[string]string, chief string) map[string]FieldValue {
	fields := make(map[string]FieldValue)
	for _, key := range prefillBaseFields {
		fields[strings.ToLower(key)] = FieldValue{
			Value:  clean(baseRow[key]),
			Source: SourcePrefill,
		}
	}

	zyzkjsj := clean(baseRow["ZYZKJSJ"])
	fields["zyzkjsj"] = FieldValue{Value: zyzkjsj, Source: SourcePrefill, ReadOnly: zyzkjsj != ""}

	// Chief complaint prefers the dedicated feed over the base view.
	if c := clean(chief); c != "" {
		fields["hzzs"] = FieldValue{Value: c, Source: SourcePrefill}
	}

	if feeRow != nil {
		for _, field := range append([]string{"zfy", "zfje"}, record.FeeComponentFields...) {
			fields[field] = FieldValue{
				Value:    clean(feeRow[strings.ToUpper(field)]),
				Source:   SourcePrefill,
				ReadOnly: true,
			}
		}
		for _, key := range medFlagFields {
			fields[strings.ToLower(key)] = FieldValue{
				Value:    clean(feeRow[key]),
				Source:   SourcePrefill,
				ReadOnly: true,
			}
		}
	}
	return fields
}

// buildDiagnosisLists sorts the HIS diagnosis lines into the four form
// groups: sort D is western medicine with line 1 as the main diagnosis,
// B is the TCM disease (one at most), Z the TCM syndromes (two at most).
func buildDiagnosisLists(lines []his.DiagnosisLine) map[record.DiagType][]record.DiagnosisRow {
	if len(lines) == 0 {
		return nil
	}
	var wmMain, wmOther, tcmDisease, tcmSyndrome []his.DiagnosisLine
	for _, l := range lines {
		if clean(l.Name) == "" {
			continue
		}
		switch l.Sort {
		case "D":
			if l.No == 1 {
				wmMain = append(wmMain, l)
			} else {
				wmOther = append(wmOther, l)
			}
		case "B":
			tcmDisease = append(tcmDisease, l)
		case "Z":
			tcmSyndrome = append(tcmSyndrome, l)
		}
	}
	byNo := func(ls []his.DiagnosisLine) {
		sort.SliceStable(ls, func(i, j int) bool { return ls[i].No < ls[j].No })
	}
	byNo(wmOther)
	byNo(tcmDisease)
	byNo(tcmSyndrome)

	toRows := func(ls []his.DiagnosisLine, max int) []record.DiagnosisRow {
		if len(ls) > max {
			ls = ls[:max]
		}
		rows := make([]record.DiagnosisRow, len(ls))
		for i, l := range ls {
			rows[i] = record.DiagnosisRow{SeqNo: i + 1, DiagName: clean(l.Name), DiagCode: clean(l.Code)}
		}
		return rows
	}

	out := make(map[record.DiagType][]record.DiagnosisRow)
	if rows := toRows(wmMain, 1); len(rows) > 0 {
		out[record.DiagWMMain] = rows
	}
	if rows := toRows(wmOther, 10); len(rows) > 0 {
		out[record.DiagWMOther] = rows
	}
	if rows := toRows(tcmDisease, 1); len(rows) > 0 {
		out[record.DiagTCMDiseaseMain] = rows
	}
	if rows := toRows(tcmSyndrome, 2); len(rows) > 0 {
		out[record.DiagTCMSyndrome] = rows
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func buildHerbList(lines []his.HerbLine) []record.HerbDetailRow {
	if len(lines) == 0 {
		return nil
	}
	if len(lines) > record.MaxHerbDetails {
		lines = lines[:record.MaxHerbDetails]
	}
	rows := make([]record.HerbDetailRow, len(lines))
	for i, l := range lines {
		rows[i] = record.HerbDetailRow{
			SeqNo:     i + 1,
			HerbType:  clean(l.HerbType),
			RouteCode: clean(l.RouteCode),
			RouteName: clean(l.RouteName),
			DoseCount: l.DoseCount,
		}
	}
	return rows
}

// clean trims a raw HIS value and drops the "-" placeholder.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "-" {
		return ""
	}
	return s
}

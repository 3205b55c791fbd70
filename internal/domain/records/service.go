package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/omr/omr/internal/domain/record"
	"github.com/omr/omr/internal/platform/auth"
	"github.com/omr/omr/internal/platform/his"
)

// Service-level failures beyond the repository's.
var (
	// ErrVisitUnknown means the HIS has no visit for the patient number,
	// so there is nothing to record against.
	ErrVisitUnknown = errors.New("no HIS visit for patient")

	// ErrAccessDenied means the operator's department and doctor codes do
	// not cover the visit.
	ErrAccessDenied = errors.New("operator may not edit this visit")

	// ErrExternal wraps HIS failures; the record itself is untouched.
	ErrExternal = errors.New("HIS temporarily unavailable")
)

// Service owns the record lifecycle: versioned saves, the submit gate,
// and the HIS-derived read-only summaries refreshed on every write.
type Service struct {
	repo      Repository
	source    his.Source
	validator *Validator
	logger    zerolog.Logger
}

func NewService(repo Repository, source his.Source, validator *Validator, logger zerolog.Logger) *Service {
	return &Service{repo: repo, source: source, validator: validator, logger: logger}
}

// Get loads the record for a patient the operator may see.
func (s *Service) Get(ctx context.Context, patientNo string, sess *auth.Session) (*record.Response, error) {
	if _, err := s.ensureAccess(ctx, patientNo, sess); err != nil {
		return nil, err
	}
	rec, err := s.repo.GetByPatient(ctx, patientNo)
	if err != nil {
		return nil, err
	}
	return rec.Response(), nil
}

// SaveDraft checkpoints the record without admission checks. Saving over
// a submitted record reverts it to draft.
func (s *Service) SaveDraft(ctx context.Context, patientNo string, sess *auth.Session, req record.SaveRequest) (*record.Response, error) {
	return s.save(ctx, patientNo, sess, req, false)
}

// Submit persists and finalizes the record after the full admission gate.
func (s *Service) Submit(ctx context.Context, patientNo string, sess *auth.Session, req record.SaveRequest) (*record.Response, error) {
	return s.save(ctx, patientNo, sess, req, true)
}

func (s *Service) save(ctx context.Context, patientNo string, sess *auth.Session, req record.SaveRequest, submit bool) (*record.Response, error) {
	baseRow, err := s.ensureAccess(ctx, patientNo, sess)
	if err != nil {
		return nil, err
	}
	feeRow, err := s.source.FetchFeeInfo(ctx, patientNo)
	if err != nil && !errors.Is(err, his.ErrVisitNotFound) {
		return nil, fmt.Errorf("%w: fetch fee info: %v", ErrExternal, err)
	}

	// Clients renumber on every edit; a payload with holes is malformed,
	// not merely invalid.
	if seqErrs := CheckPayloadSeq(req.Payload); len(seqErrs) > 0 {
		return nil, &record.ValidationError{Errors: seqErrs}
	}

	rec, err := s.repo.GetByPatient(ctx, patientNo)
	isNew := errors.Is(err, ErrRecordNotFound)
	if err != nil && !isNew {
		return nil, err
	}
	if isNew {
		rec = &StoredRecord{
			PatientNo: patientNo,
			DeptCode:  firstValue(baseRow, "JZKSDM", "DEPT_CODE"),
			DocCode:   sess.DocCode,
		}
		if t, ok := parseHISTime(firstValue(baseRow, "JZSJ")); ok {
			rec.VisitTime = &t
		}
	} else {
		if req.Version == nil || *req.Version != rec.Version {
			return nil, &record.ConflictError{CurrentVersion: rec.Version}
		}
	}

	rec.Status = record.StatusDraft
	rec.SubmittedAt = nil
	rec.ApplyPayload(req.Payload)
	rec.Medication, rec.Fees = summariesFromHIS(feeRow)
	rec.PrefillSnapshot = map[string]interface{}{
		"base_info":   baseRow,
		"patient_fee": feeRow,
	}

	if submit {
		fieldErrs, err := s.validator.ValidateForSubmit(ctx, rec)
		if err != nil {
			return nil, err
		}
		if len(fieldErrs) > 0 {
			return nil, &record.ValidationError{Errors: fieldErrs}
		}
		now := time.Now()
		rec.Status = record.StatusSubmitted
		rec.SubmittedAt = &now
	}

	if isNew {
		err = s.repo.Create(ctx, rec)
	} else {
		err = s.repo.Update(ctx, rec, *req.Version)
	}
	if errors.Is(err, ErrVersionConflict) {
		// Lost the race after our read; report the version now stored.
		current, loadErr := s.repo.GetByPatient(ctx, patientNo)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, &record.ConflictError{CurrentVersion: current.Version}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_no", patientNo).
		Str("operator", sess.Login).
		Str("status", string(rec.Status)).
		Int("version", rec.Version).
		Bool("created", isNew).
		Msg("record saved")
	return rec.Response(), nil
}

// Reset deletes the record so the visit can be re-entered from scratch.
// Administrative use only.
func (s *Service) Reset(ctx context.Context, patientNo string, sess *auth.Session) error {
	if err := s.repo.DeleteByPatient(ctx, patientNo); err != nil {
		return err
	}
	s.logger.Warn().
		Str("patient_no", patientNo).
		Str("operator", sess.Login).
		Msg("record reset")
	return nil
}

// ensureAccess loads the HIS visit and checks the operator may work on
// it: admins always, others when their department or doctor code matches
// the visit's.
func (s *Service) ensureAccess(ctx context.Context, patientNo string, sess *auth.Session) (map[string]string, error) {
	baseRow, err := s.source.FetchBaseInfo(ctx, patientNo)
	if err != nil {
		if errors.Is(err, his.ErrVisitNotFound) {
			return nil, ErrVisitUnknown
		}
		return nil, fmt.Errorf("%w: fetch base info: %v", ErrExternal, err)
	}
	if sess.HasRole("admin") {
		return baseRow, nil
	}
	deptCode := firstValue(baseRow, "JZKSDM", "DEPT_CODE")
	docCode := firstValue(baseRow, "JZYSDM", "JZYS_DM", "DOC_CODE")
	if sess.DeptCode != "" && sess.DeptCode == deptCode {
		return baseRow, nil
	}
	if sess.DocCode != "" && sess.DocCode == docCode {
		return baseRow, nil
	}
	return nil, ErrAccessDenied
}

// summariesFromHIS derives the read-only medication flags and fee summary
// from the HIS charging row. Missing flags default to "no": a visit with
// no charge data has used nothing.
func summariesFromHIS(feeRow map[string]string) (*record.MedicationSummary, map[string]string) {
	med := &record.MedicationSummary{
		Xysy:   flagOrNo(feeRow, "XYSY"),
		Zcysy:  flagOrNo(feeRow, "ZCYSY"),
		Zyzjsy: flagOrNo(feeRow, "ZYZJSY"),
		Ctypsy: flagOrNo(feeRow, "CTYPSY"),
		Pfklsy: flagOrNo(feeRow, "PFKLSY"),
	}
	if feeRow == nil {
		return med, nil
	}
	fees := make(map[string]string)
	for _, field := range append([]string{"zfy", "zfje"}, record.FeeComponentFields...) {
		if v, ok := feeRow[strings.ToUpper(field)]; ok && strings.TrimSpace(v) != "" {
			fees[field] = strings.TrimSpace(v)
		}
	}
	return med, fees
}

func flagOrNo(m map[string]string, key string) string {
	if v := strings.TrimSpace(m[key]); v != "" {
		return v
	}
	return "2"
}

func firstValue(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

var hisTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

func parseHISTime(s string) (time.Time, bool) {
	for _, layout := range hisTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

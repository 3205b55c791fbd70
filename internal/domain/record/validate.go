package record

import (
	"fmt"
	"strconv"
)

// Section names used on FieldError. The router maps them onto form tabs.
const (
	SectionBase       = "base_info"
	SectionDiagnosis  = "diagnosis"
	SectionTreatment  = "tcm_operation"
	SectionSurgery    = "surgery"
	SectionMedication = "medication"
	SectionFee        = "fee"
)

// Snapshot is an immutable view of the form handed to validation. Building
// it copies the group rows, so concurrent edits cannot race a running
// validation pass.
type Snapshot struct {
	Base          map[string]string
	TcmDisease    []DiagnosisRow
	TcmSyndrome   []DiagnosisRow
	WMMain        []DiagnosisRow
	WMOther       []DiagnosisRow
	TcmOperations []TcmOperationRow
	Surgeries     []SurgeryRow
	Herbs         []HerbDetailRow
	Medication    *MedicationSummary
}

func (s *Snapshot) diagnoses(t DiagType) []DiagnosisRow {
	switch t {
	case DiagTCMDiseaseMain:
		return s.TcmDisease
	case DiagTCMSyndrome:
		return s.TcmSyndrome
	case DiagWMMain:
		return s.WMMain
	case DiagWMOther:
		return s.WMOther
	}
	return nil
}

// diagSpec is the cardinality and length contract of one diagnosis group.
type diagSpec struct {
	Type         DiagType
	Min, Max     int
	NameMax      int
	CodeMax      int
	CodeRequired bool
}

var diagSpecs = []diagSpec{
	{DiagTCMDiseaseMain, 1, 1, 100, 30, true},
	{DiagTCMSyndrome, 1, 2, 100, 30, true},
	{DiagWMMain, 1, 1, 100, 50, false},
	{DiagWMOther, 0, 10, 100, 50, false},
}

// DiagSpec returns the cardinality bounds of a diagnosis group.
func DiagSpec(t DiagType) (min, max int) {
	for _, s := range diagSpecs {
		if s.Type == t {
			return s.Min, s.Max
		}
	}
	return 0, 0
}

// Group size caps for the non-diagnosis repeating sections.
const (
	MaxTcmOperations = 10
	MaxSurgeries     = 5
	MaxHerbDetails   = 40
)

// Validate runs the full local admission check over a form snapshot and
// returns every failure. The order is deterministic: base fields in form
// order, then each repeating group in declaration order with rows by
// sequence number. An empty slice means the form is admissible.
func Validate(s *Snapshot) []FieldError {
	var errs []FieldError
	errs = validateBase(s.Base, errs)
	errs = validateDiagnoses(s, errs)
	errs = validateTcmOperations(s.TcmOperations, errs)
	errs = validateSurgeries(s.Surgeries, errs)
	errs = validateMedication(s.Medication, s.Herbs, errs)
	return errs
}

func addError(errs []FieldError, field, message, rule, section string, seqNo int) []FieldError {
	return append(errs, FieldError{Field: field, Message: message, Rule: rule, Section: section, SeqNo: seqNo})
}

func validateBase(base map[string]string, errs []FieldError) []FieldError {
	for _, f := range baseFields {
		value := base[f.Name]
		if isMissing(value) {
			if f.Required {
				errs = addError(errs, "base_info."+f.Name, "required", "required", SectionBase, 0)
			}
			continue
		}
		if f.MaxLen > 0 && len([]rune(trimmed(value))) > f.MaxLen {
			errs = addError(errs, "base_info."+f.Name,
				fmt.Sprintf("must be at most %d characters", f.MaxLen), "max_length", SectionBase, 0)
		}
	}

	// Registration, check-in and visit times must not run backwards.
	ghsj, hasGhsj := parseFormTime(base["ghsj"])
	bdsj, hasBdsj := parseFormTime(base["bdsj"])
	jzsj, hasJzsj := parseFormTime(base["jzsj"])
	if hasGhsj && hasBdsj && bdsj.Before(ghsj) {
		errs = addError(errs, "base_info.bdsj", "check-in time must not be before registration time", "time_order", SectionBase, 0)
	}
	if hasBdsj && hasJzsj && jzsj.Before(bdsj) {
		errs = addError(errs, "base_info.jzsj", "visit time must not be before check-in time", "time_order", SectionBase, 0)
	}
	if hasGhsj && hasJzsj && jzsj.Before(ghsj) {
		errs = addError(errs, "base_info.jzsj", "visit time must not be before registration time", "time_order", SectionBase, 0)
	}

	// zjlb "1" is the resident identity card; only that type has a checksum.
	if trimmed(base["zjlb"]) == "1" && !isMissing(base["zjhm"]) && !validResidentID(base["zjhm"]) {
		errs = addError(errs, "base_info.zjhm", "invalid resident identity number", "idcard", SectionBase, 0)
	}

	for _, rule := range conditionalRules {
		if trimmed(base[rule.Trigger]) == rule.Value && isMissing(base[rule.Dependent]) {
			errs = addError(errs, "base_info."+rule.Dependent, rule.Message, "conditional_required", SectionBase, 0)
		}
	}
	return errs
}

// candidateDiagnoses returns the rows that count against a group's
// cardinality. Optional groups drop fully blank rows and renumber the
// survivors so error paths match what the user sees; mandatory groups keep
// every slot because an empty mandatory row is itself the error.
func candidateDiagnoses(rows []DiagnosisRow, min int) []DiagnosisRow {
	if min > 0 {
		return rows
	}
	var out []DiagnosisRow
	for _, r := range rows {
		if !r.Blank() {
			out = append(out, r.WithSeq(len(out)+1))
		}
	}
	return out
}

func validateDiagnoses(s *Snapshot, errs []FieldError) []FieldError {
	for _, spec := range diagSpecs {
		rows := candidateDiagnoses(s.diagnoses(spec.Type), spec.Min)
		prefix := "diagnosis." + string(spec.Type)

		if len(rows) < spec.Min {
			errs = addError(errs, prefix+".1.diag_name", "required", "required", SectionDiagnosis, 1)
			continue
		}
		if len(rows) > spec.Max {
			errs = addError(errs, prefix,
				fmt.Sprintf("at most %d rows allowed", spec.Max), "max_count", SectionDiagnosis, 0)
		}

		for _, row := range rows {
			seq := strconv.Itoa(row.SeqNo)
			if isMissing(row.DiagName) {
				errs = addError(errs, prefix+"."+seq+".diag_name", "required", "required", SectionDiagnosis, row.SeqNo)
			} else if len([]rune(trimmed(row.DiagName))) > spec.NameMax {
				errs = addError(errs, prefix+"."+seq+".diag_name",
					fmt.Sprintf("must be at most %d characters", spec.NameMax), "max_length", SectionDiagnosis, row.SeqNo)
			}

			if spec.CodeRequired && isMissing(row.DiagCode) {
				errs = addError(errs, prefix+"."+seq+".diag_code", "required", "required", SectionDiagnosis, row.SeqNo)
			}
			if !isMissing(row.DiagCode) && len([]rune(trimmed(row.DiagCode))) > spec.CodeMax {
				errs = addError(errs, prefix+"."+seq+".diag_code",
					fmt.Sprintf("must be at most %d characters", spec.CodeMax), "max_length", SectionDiagnosis, row.SeqNo)
			}
		}
	}
	return errs
}

func validateTcmOperations(rows []TcmOperationRow, errs []FieldError) []FieldError {
	var candidates []TcmOperationRow
	for _, r := range rows {
		if !r.Blank() {
			candidates = append(candidates, r.WithSeq(len(candidates)+1))
		}
	}
	if len(candidates) > MaxTcmOperations {
		errs = addError(errs, "tcm_operation",
			fmt.Sprintf("at most %d rows allowed", MaxTcmOperations), "max_count", SectionTreatment, 0)
	}
	for _, op := range candidates {
		seq := strconv.Itoa(op.SeqNo)
		if isMissing(op.OpName) {
			errs = addError(errs, "tcm_operation."+seq+".op_name", "required", "required", SectionTreatment, op.SeqNo)
		} else if len([]rune(trimmed(op.OpName))) > 100 {
			errs = addError(errs, "tcm_operation."+seq+".op_name", "must be at most 100 characters", "max_length", SectionTreatment, op.SeqNo)
		}
		if isMissing(op.OpCode) {
			errs = addError(errs, "tcm_operation."+seq+".op_code", "required", "required", SectionTreatment, op.SeqNo)
		} else if len([]rune(trimmed(op.OpCode))) > 20 {
			errs = addError(errs, "tcm_operation."+seq+".op_code", "must be at most 20 characters", "max_length", SectionTreatment, op.SeqNo)
		}
		if op.OpTimes < 0 {
			errs = addError(errs, "tcm_operation."+seq+".op_times", "must be a non-negative integer", "range", SectionTreatment, op.SeqNo)
		}
		if op.OpDays != nil && *op.OpDays < 0 {
			errs = addError(errs, "tcm_operation."+seq+".op_days", "must be a non-negative integer", "range", SectionTreatment, op.SeqNo)
		}
	}
	return errs
}

func validateSurgeries(rows []SurgeryRow, errs []FieldError) []FieldError {
	var candidates []SurgeryRow
	for _, r := range rows {
		if !r.Blank() {
			candidates = append(candidates, r.WithSeq(len(candidates)+1))
		}
	}
	if len(candidates) > MaxSurgeries {
		errs = addError(errs, "surgery",
			fmt.Sprintf("at most %d rows allowed", MaxSurgeries), "max_count", SectionSurgery, 0)
	}
	for _, sg := range candidates {
		seq := strconv.Itoa(sg.SeqNo)
		stringFields := []struct {
			Key    string
			Value  string
			MaxLen int
		}{
			{"op_name", sg.OpName, 100},
			{"op_code", sg.OpCode, 20},
			{"operator_name", sg.OperatorName, 40},
			{"anesthesia_method", sg.AnesthesiaMethod, 6},
			{"anesthesia_doctor", sg.AnesthesiaDoctor, 40},
		}
		for _, f := range stringFields {
			if isMissing(f.Value) {
				errs = addError(errs, "surgery."+seq+"."+f.Key, "required", "required", SectionSurgery, sg.SeqNo)
			} else if len([]rune(trimmed(f.Value))) > f.MaxLen {
				errs = addError(errs, "surgery."+seq+"."+f.Key,
					fmt.Sprintf("must be at most %d characters", f.MaxLen), "max_length", SectionSurgery, sg.SeqNo)
			}
		}
		if isMissing(sg.OpTime) {
			errs = addError(errs, "surgery."+seq+".op_time", "required", "required", SectionSurgery, sg.SeqNo)
		} else if _, ok := parseFormTime(sg.OpTime); !ok {
			errs = addError(errs, "surgery."+seq+".op_time", "invalid timestamp", "invalid", SectionSurgery, sg.SeqNo)
		}
		if sg.SurgeryLevel == nil {
			errs = addError(errs, "surgery."+seq+".surgery_level", "required", "required", SectionSurgery, sg.SeqNo)
		} else if *sg.SurgeryLevel < 0 {
			errs = addError(errs, "surgery."+seq+".surgery_level", "invalid surgery level", "range", SectionSurgery, sg.SeqNo)
		}
	}
	return errs
}

func validateMedication(med *MedicationSummary, herbs []HerbDetailRow, errs []FieldError) []FieldError {
	if med == nil {
		errs = addError(errs, "medication_summary", "medication flags missing from upstream data", "required", SectionMedication, 0)
		return errs
	}
	flags := []struct{ Name, Value string }{
		{"xysy", med.Xysy},
		{"zcysy", med.Zcysy},
		{"zyzjsy", med.Zyzjsy},
		{"ctypsy", med.Ctypsy},
		{"pfklsy", med.Pfklsy},
	}
	for _, f := range flags {
		if isMissing(f.Value) {
			errs = addError(errs, "medication_summary."+f.Name, "required", "required", SectionMedication, 0)
		}
	}

	var candidates []HerbDetailRow
	for _, h := range herbs {
		if !h.Blank() {
			candidates = append(candidates, h.WithSeq(len(candidates)+1))
		}
	}
	if len(candidates) > MaxHerbDetails {
		errs = addError(errs, "herb_detail",
			fmt.Sprintf("at most %d rows allowed", MaxHerbDetails), "max_count", SectionMedication, 0)
	}
	if med.HerbRequired() && len(candidates) == 0 {
		errs = addError(errs, "herb_detail",
			"at least one herb line is required when decoction pieces or formula granules are used",
			"conditional_required", SectionMedication, 0)
	}
	for _, h := range candidates {
		seq := strconv.Itoa(h.SeqNo)
		if isMissing(h.HerbType) || isMissing(h.RouteCode) || isMissing(h.RouteName) {
			errs = addError(errs, "herb_detail."+seq, "all fields in a herb line must be completed together", "row_complete", SectionMedication, h.SeqNo)
			continue
		}
		if len([]rune(trimmed(h.HerbType))) > 1 {
			errs = addError(errs, "herb_detail."+seq+".herb_type", "must be at most 1 character", "max_length", SectionMedication, h.SeqNo)
		}
		if len([]rune(trimmed(h.RouteCode))) > 30 {
			errs = addError(errs, "herb_detail."+seq+".route_code", "must be at most 30 characters", "max_length", SectionMedication, h.SeqNo)
		}
		if len([]rune(trimmed(h.RouteName))) > 100 {
			errs = addError(errs, "herb_detail."+seq+".route_name", "must be at most 100 characters", "max_length", SectionMedication, h.SeqNo)
		}
		if h.DoseCount < 0 {
			errs = addError(errs, "herb_detail."+seq+".dose_count", "must be a non-negative integer", "range", SectionMedication, h.SeqNo)
		}
	}
	return errs
}

// CheckSeqContinuity verifies the seq_no values of one inbound group form
// an exact 1..N run with no gaps or duplicates. The record store runs this
// on every write because clients are not trusted to renumber.
func CheckSeqContinuity(seqs []int, fieldPrefix, section string) []FieldError {
	if len(seqs) == 0 {
		return nil
	}
	var errs []FieldError
	seen := make(map[int]bool, len(seqs))
	dup := false
	low := false
	for _, seq := range seqs {
		if seq <= 0 {
			low = true
		}
		if seen[seq] {
			dup = true
		}
		seen[seq] = true
	}
	if low {
		errs = addError(errs, fieldPrefix, "sequence numbers must start at 1", "seq_no", section, 0)
	}
	if dup {
		errs = addError(errs, fieldPrefix, "duplicate sequence numbers", "seq_no", section, 0)
	}
	if !low && !dup {
		for i := 1; i <= len(seqs); i++ {
			if !seen[i] {
				errs = addError(errs, fieldPrefix, "sequence numbers must be continuous", "seq_no", section, 0)
				break
			}
		}
	}
	return errs
}

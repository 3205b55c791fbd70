package records

import (
	"context"
	"fmt"
	"strconv"

	"github.com/omr/omr/internal/domain/dict"
	"github.com/omr/omr/internal/domain/record"
)

// DictChecker is the dictionary surface submit validation needs.
type DictChecker interface {
	ItemExists(ctx context.Context, setCode, code string) (bool, error)
	ItemName(ctx context.Context, setCode, code string) (string, bool, error)
}

// Validator runs the final admission gate: the shared form engine, the
// fee relations, sequence continuity, and dictionary membership of every
// coded value.
type Validator struct {
	dict DictChecker
}

func NewValidator(d DictChecker) *Validator {
	return &Validator{dict: d}
}

// baseDictSets maps coded base fields onto their dictionary sets.
var baseDictSets = []struct {
	Field string
	Set   string
}{
	{"xb", dict.SetSex},
	{"hy", dict.SetMarital},
	{"mz", dict.SetNation},
	{"zjlb", dict.SetCertificateType},
	{"ywgms", dict.SetAllergyHistory},
	{"qtgms", dict.SetAllergyHistory},
	{"jzlx", dict.SetVisitType},
	{"jzksdm", dict.SetDept},
	{"jzyszc", dict.SetDoctorTitle},
	{"fz", dict.SetYesNo},
	{"sy", dict.SetYesNo},
	{"mzmtbhz", dict.SetYesNo},
	{"jzhzfj", dict.SetTriageLevel},
	{"jzhzqx", dict.SetDisposition},
	{"gj", dict.SetCountry},
}

func snapshotOf(rec *StoredRecord) *record.Snapshot {
	byType := rec.Payload().DiagnosesByType()
	return &record.Snapshot{
		Base:          rec.BaseInfo,
		TcmDisease:    byType[record.DiagTCMDiseaseMain],
		TcmSyndrome:   byType[record.DiagTCMSyndrome],
		WMMain:        byType[record.DiagWMMain],
		WMOther:       byType[record.DiagWMOther],
		TcmOperations: rec.TcmOperations,
		Surgeries:     rec.Surgeries,
		Herbs:         rec.HerbDetails,
		Medication:    rec.Medication,
	}
}

// ValidateForSubmit returns every admission failure of a record. The
// returned error is an infrastructure failure (dictionary unavailable),
// not a validation result.
func (v *Validator) ValidateForSubmit(ctx context.Context, rec *StoredRecord) ([]record.FieldError, error) {
	errs := record.Validate(snapshotOf(rec))
	errs = append(errs, CheckPayloadSeq(rec.Payload())...)
	errs = append(errs, record.ValidateFees(rec.Fees)...)

	dictErrs, err := v.checkDictCodes(ctx, rec)
	if err != nil {
		return nil, err
	}
	return append(errs, dictErrs...), nil
}

// CheckPayloadSeq verifies every repeating group of a payload carries a
// dense 1..N numbering.
func CheckPayloadSeq(p record.Payload) []record.FieldError {
	var errs []record.FieldError
	byType := p.DiagnosesByType()
	for _, t := range record.DiagTypes {
		rows := byType[t]
		seqs := make([]int, len(rows))
		for i, r := range rows {
			seqs[i] = r.SeqNo
		}
		errs = append(errs, record.CheckSeqContinuity(seqs, "diagnosis."+string(t), record.SectionDiagnosis)...)
	}

	seqs := make([]int, len(p.TcmOperations))
	for i, r := range p.TcmOperations {
		seqs[i] = r.SeqNo
	}
	errs = append(errs, record.CheckSeqContinuity(seqs, "tcm_operation", record.SectionTreatment)...)

	seqs = make([]int, len(p.Surgeries))
	for i, r := range p.Surgeries {
		seqs[i] = r.SeqNo
	}
	errs = append(errs, record.CheckSeqContinuity(seqs, "surgery", record.SectionSurgery)...)

	seqs = make([]int, len(p.HerbDetails))
	for i, r := range p.HerbDetails {
		seqs[i] = r.SeqNo
	}
	errs = append(errs, record.CheckSeqContinuity(seqs, "herb_detail", record.SectionMedication)...)
	return errs
}

func (v *Validator) checkDictCodes(ctx context.Context, rec *StoredRecord) ([]record.FieldError, error) {
	var errs []record.FieldError
	add := func(field, set, section string, seqNo int) {
		errs = append(errs, record.FieldError{
			Field:   field,
			Message: fmt.Sprintf("value not in dictionary %s", set),
			Rule:    "dict",
			Section: section,
			SeqNo:   seqNo,
		})
	}
	exists := func(set, code string) (bool, error) {
		ok, err := v.dict.ItemExists(ctx, set, code)
		if err != nil {
			return false, fmt.Errorf("dictionary %s lookup: %w", set, err)
		}
		return ok, nil
	}

	for _, m := range baseDictSets {
		value := rec.BaseInfo[m.Field]
		if value == "" || value == "-" {
			continue
		}
		ok, err := exists(m.Set, value)
		if err != nil {
			return nil, err
		}
		if !ok {
			add("base_info."+m.Field, m.Set, record.SectionBase, 0)
		}
	}

	if med := rec.Medication; med != nil {
		flags := []struct{ Name, Value string }{
			{"xysy", med.Xysy}, {"zcysy", med.Zcysy}, {"zyzjsy", med.Zyzjsy},
			{"ctypsy", med.Ctypsy}, {"pfklsy", med.Pfklsy},
		}
		for _, f := range flags {
			if f.Value == "" || f.Value == "-" {
				continue
			}
			ok, err := exists(dict.SetYesNo, f.Value)
			if err != nil {
				return nil, err
			}
			if !ok {
				add("medication_summary."+f.Name, dict.SetYesNo, record.SectionMedication, 0)
			}
		}
	}

	for _, op := range rec.TcmOperations {
		if op.OpCode == "" {
			continue
		}
		ok, err := exists(dict.SetProcedure, op.OpCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			add("tcm_operation."+strconv.Itoa(op.SeqNo)+".op_code", dict.SetProcedure, record.SectionTreatment, op.SeqNo)
		}
	}

	for _, sg := range rec.Surgeries {
		seq := strconv.Itoa(sg.SeqNo)
		if sg.OpCode != "" {
			ok, err := exists(dict.SetProcedure, sg.OpCode)
			if err != nil {
				return nil, err
			}
			if !ok {
				add("surgery."+seq+".op_code", dict.SetProcedure, record.SectionSurgery, sg.SeqNo)
			}
		}
		if sg.AnesthesiaMethod != "" {
			ok, err := exists(dict.SetAnesthesia, sg.AnesthesiaMethod)
			if err != nil {
				return nil, err
			}
			if !ok {
				add("surgery."+seq+".anesthesia_method", dict.SetAnesthesia, record.SectionSurgery, sg.SeqNo)
			}
		}
		if sg.SurgeryLevel != nil {
			ok, err := exists(dict.SetSurgeryLevel, strconv.Itoa(*sg.SurgeryLevel))
			if err != nil {
				return nil, err
			}
			if !ok {
				add("surgery."+seq+".surgery_level", dict.SetSurgeryLevel, record.SectionSurgery, sg.SeqNo)
			}
		}
	}

	for _, h := range rec.HerbDetails {
		seq := strconv.Itoa(h.SeqNo)
		if h.HerbType != "" {
			ok, err := exists(dict.SetHerbType, h.HerbType)
			if err != nil {
				return nil, err
			}
			if !ok {
				add("herb_detail."+seq+".herb_type", dict.SetHerbType, record.SectionMedication, h.SeqNo)
			}
		}
		if h.RouteCode != "" {
			ok, err := exists(dict.SetDrugRoute, h.RouteCode)
			if err != nil {
				return nil, err
			}
			if !ok {
				add("herb_detail."+seq+".route_code", dict.SetDrugRoute, record.SectionMedication, h.SeqNo)
			}
			if h.RouteName != "" {
				name, found, err := v.dict.ItemName(ctx, dict.SetDrugRoute, h.RouteCode)
				if err != nil {
					return nil, fmt.Errorf("dictionary %s lookup: %w", dict.SetDrugRoute, err)
				}
				if found && name != h.RouteName {
					errs = append(errs, record.FieldError{
						Field:   "herb_detail." + seq + ".route_name",
						Message: "route name does not match its code",
						Rule:    "dict",
						Section: record.SectionMedication,
						SeqNo:   h.SeqNo,
					})
				}
			}
		}
	}
	return errs, nil
}

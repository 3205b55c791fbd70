package record

import (
	"strings"
	"testing"
)

// validSnapshot builds a form snapshot that passes every local admission
// check. Tests break one thing at a time from here.
func validSnapshot() *Snapshot {
	return &Snapshot{
		Base: map[string]string{
			"username": "oper01",
			"jzkh":     "MZ202600881",
			"xm":       "测试患者",
			"xb":       "1",
			"csrq":     "1980-05-01",
			"hy":       "2",
			"gj":       "CHN",
			"mz":       "01",
			"zjlb":     "1",
			"zjhm":     "11010519491231002X",
			"xzz":      "北京市东城区某街道1号",
			"lxdh":     "13800138000",
			"ywgms":    "1",
			"ghsj":     "2026-03-01T08:10",
			"bdsj":     "2026-03-01T08:40",
			"jzsj":     "2026-03-01T09:30",
			"jzksdm":   "0304",
			"jzys":     "王医生",
			"jzyszc":   "231",
			"jzlx":     "2",
			"fz":       "2",
			"sy":       "2",
			"mzmtbhz":  "2",
		},
		TcmDisease:  []DiagnosisRow{{SeqNo: 1, DiagName: "胃脘痛", DiagCode: "BNP010"}},
		TcmSyndrome: []DiagnosisRow{{SeqNo: 1, DiagName: "脾胃虚寒证", DiagCode: "ZZPXV10"}},
		WMMain:      []DiagnosisRow{{SeqNo: 1, DiagName: "慢性胃炎"}},
		Medication:  &MedicationSummary{Xysy: "1", Zcysy: "2", Zyzjsy: "2", Ctypsy: "2", Pfklsy: "2"},
	}
}

func errorFields(errs []FieldError) []string {
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	return fields
}

func hasError(errs []FieldError, field, rule string) bool {
	for _, e := range errs {
		if e.Field == field && (rule == "" || e.Rule == rule) {
			return true
		}
	}
	return false
}

func TestValidateCleanSnapshot(t *testing.T) {
	errs := Validate(validSnapshot())
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errorFields(errs))
	}
}

func TestValidateMissingRequiredBase(t *testing.T) {
	s := validSnapshot()
	delete(s.Base, "jzkh")
	s.Base["lxdh"] = "   "
	s.Base["jzys"] = "-"

	errs := Validate(s)
	for _, field := range []string{"base_info.jzkh", "base_info.lxdh", "base_info.jzys"} {
		if !hasError(errs, field, "required") {
			t.Errorf("expected required error on %s, got %v", field, errorFields(errs))
		}
	}
}

func TestValidateBaseMaxLength(t *testing.T) {
	s := validSnapshot()
	s.Base["username"] = strings.Repeat("a", 11)
	s.Base["xb"] = "12"

	errs := Validate(s)
	if !hasError(errs, "base_info.username", "max_length") {
		t.Errorf("expected max_length on username, got %v", errorFields(errs))
	}
	if !hasError(errs, "base_info.xb", "max_length") {
		t.Errorf("expected max_length on xb, got %v", errorFields(errs))
	}
}

func TestValidateMaxLengthCountsRunes(t *testing.T) {
	s := validSnapshot()
	s.Base["mz"] = "蒙古" // two runes, within the limit of 2
	if errs := Validate(s); hasError(errs, "base_info.mz", "max_length") {
		t.Errorf("two-rune value within limit flagged: %v", errorFields(errs))
	}
}

func TestValidateTimeOrder(t *testing.T) {
	s := validSnapshot()
	s.Base["jzsj"] = "2026-03-01T08:00" // before check-in and registration

	errs := Validate(s)
	if !hasError(errs, "base_info.jzsj", "time_order") {
		t.Fatalf("expected time_order error on jzsj, got %v", errorFields(errs))
	}
}

func TestValidateTimeOrderSkipsMissing(t *testing.T) {
	s := validSnapshot()
	delete(s.Base, "ghsj")
	delete(s.Base, "bdsj")
	if errs := Validate(s); len(errs) != 0 {
		t.Fatalf("optional times absent should not fail, got %v", errorFields(errs))
	}
}

func TestValidateResidentID(t *testing.T) {
	s := validSnapshot()
	s.Base["zjhm"] = "110105194912310021" // wrong check digit

	errs := Validate(s)
	if !hasError(errs, "base_info.zjhm", "idcard") {
		t.Fatalf("expected idcard error, got %v", errorFields(errs))
	}

	// Other certificate types carry no checksum.
	s.Base["zjlb"] = "2"
	s.Base["zjhm"] = "E12345678"
	if errs := Validate(s); hasError(errs, "base_info.zjhm", "idcard") {
		t.Error("non-resident certificate must not be checksum validated")
	}
}

func TestValidateLegacy15DigitID(t *testing.T) {
	s := validSnapshot()
	s.Base["zjhm"] = "110105491231002"
	if errs := Validate(s); hasError(errs, "base_info.zjhm", "idcard") {
		t.Errorf("15-digit legacy id should pass, got %v", errorFields(errs))
	}
}

func TestValidateConditionalRequired(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(base map[string]string)
		field  string
	}{
		{"allergy drug", func(b map[string]string) { b["ywgms"] = "2" }, "base_info.gmyw"},
		{"other allergen", func(b map[string]string) { b["qtgms"] = "2" }, "base_info.qtgmy"},
		{"triage level", func(b map[string]string) { b["jzlx"] = "1"; b["jzhzqx"] = "1" }, "base_info.jzhzfj"},
		{"disposition", func(b map[string]string) { b["jzlx"] = "1"; b["jzhzfj"] = "1" }, "base_info.jzhzqx"},
		{"admission order time", func(b map[string]string) { b["jzhzqx"] = "7" }, "base_info.zyzkjsj"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSnapshot()
			tc.mutate(s.Base)
			errs := Validate(s)
			if !hasError(errs, tc.field, "conditional_required") {
				t.Errorf("expected conditional_required on %s, got %v", tc.field, errorFields(errs))
			}
		})
	}
}

func TestValidateConditionalSatisfied(t *testing.T) {
	s := validSnapshot()
	s.Base["ywgms"] = "2"
	s.Base["gmyw"] = "青霉素"
	if errs := Validate(s); len(errs) != 0 {
		t.Fatalf("satisfied conditional should pass, got %v", errorFields(errs))
	}
}

func TestValidateMandatoryDiagnosisMissing(t *testing.T) {
	s := validSnapshot()
	s.WMMain = []DiagnosisRow{{SeqNo: 1}}

	errs := Validate(s)
	if !hasError(errs, "diagnosis.wm_main.1.diag_name", "required") {
		t.Fatalf("expected required error on wm_main row 1, got %v", errorFields(errs))
	}
}

func TestValidateTCMCodeRequired(t *testing.T) {
	s := validSnapshot()
	s.TcmDisease = []DiagnosisRow{{SeqNo: 1, DiagName: "胃脘痛"}}

	errs := Validate(s)
	if !hasError(errs, "diagnosis.tcm_disease_main.1.diag_code", "required") {
		t.Fatalf("TCM diagnosis without code should fail, got %v", errorFields(errs))
	}
}

func TestValidateCodeOnlyRowIsNotBlank(t *testing.T) {
	s := validSnapshot()
	s.WMOther = []DiagnosisRow{{SeqNo: 1, DiagCode: "K29.5"}}

	errs := Validate(s)
	if !hasError(errs, "diagnosis.wm_other.1.diag_name", "required") {
		t.Fatalf("code-only optional row must be validated, got %v", errorFields(errs))
	}
}

func TestValidateOptionalBlankRowsIgnored(t *testing.T) {
	s := validSnapshot()
	s.WMOther = []DiagnosisRow{{SeqNo: 1}, {SeqNo: 2}}
	s.Surgeries = []SurgeryRow{{SeqNo: 1}}
	s.TcmOperations = []TcmOperationRow{{SeqNo: 1}}
	s.Herbs = []HerbDetailRow{{SeqNo: 1}}

	if errs := Validate(s); len(errs) != 0 {
		t.Fatalf("blank optional rows must not fail, got %v", errorFields(errs))
	}
}

func TestValidateBlankRowsRenumberedForErrors(t *testing.T) {
	s := validSnapshot()
	s.WMOther = []DiagnosisRow{
		{SeqNo: 1},
		{SeqNo: 2, DiagCode: "K29.5"},
	}

	errs := Validate(s)
	// The blank first row is skipped, so the offending row reports as row 1.
	if !hasError(errs, "diagnosis.wm_other.1.diag_name", "required") {
		t.Fatalf("expected error addressed to renumbered row 1, got %v", errorFields(errs))
	}
}

func TestValidateDiagnosisOverMax(t *testing.T) {
	s := validSnapshot()
	s.TcmSyndrome = []DiagnosisRow{
		{SeqNo: 1, DiagName: "a", DiagCode: "c1"},
		{SeqNo: 2, DiagName: "b", DiagCode: "c2"},
		{SeqNo: 3, DiagName: "c", DiagCode: "c3"},
	}
	errs := Validate(s)
	if !hasError(errs, "diagnosis.tcm_syndrome", "max_count") {
		t.Fatalf("expected max_count, got %v", errorFields(errs))
	}
}

func TestValidateSurgeryRow(t *testing.T) {
	level := 2
	s := validSnapshot()
	s.Surgeries = []SurgeryRow{{
		SeqNo:  1,
		OpName: "小针刀治疗",
	}}

	errs := Validate(s)
	for _, field := range []string{
		"surgery.1.op_code",
		"surgery.1.operator_name",
		"surgery.1.anesthesia_method",
		"surgery.1.anesthesia_doctor",
		"surgery.1.op_time",
		"surgery.1.surgery_level",
	} {
		if !hasError(errs, field, "required") {
			t.Errorf("expected required on %s, got %v", field, errorFields(errs))
		}
	}

	s.Surgeries = []SurgeryRow{{
		SeqNo:            1,
		OpName:           "小针刀治疗",
		OpCode:           "99.9901",
		OpTime:           "2026-03-01T10:00",
		SurgeryLevel:     &level,
		OperatorName:     "李医生",
		AnesthesiaMethod: "5",
		AnesthesiaDoctor: "赵医生",
	}}
	if errs := Validate(s); len(errs) != 0 {
		t.Fatalf("complete surgery row should pass, got %v", errorFields(errs))
	}
}

func TestValidateTcmOperationRanges(t *testing.T) {
	days := -1
	s := validSnapshot()
	s.TcmOperations = []TcmOperationRow{{
		SeqNo:   1,
		OpName:  "针刺",
		OpCode:  "99.9201",
		OpTimes: -2,
		OpDays:  &days,
	}}

	errs := Validate(s)
	if !hasError(errs, "tcm_operation.1.op_times", "range") {
		t.Errorf("expected range error on op_times, got %v", errorFields(errs))
	}
	if !hasError(errs, "tcm_operation.1.op_days", "range") {
		t.Errorf("expected range error on op_days, got %v", errorFields(errs))
	}
}

func TestValidateHerbRequiredByFlags(t *testing.T) {
	s := validSnapshot()
	s.Medication.Ctypsy = "1"

	errs := Validate(s)
	if !hasError(errs, "herb_detail", "conditional_required") {
		t.Fatalf("decoction flag without herb lines should fail, got %v", errorFields(errs))
	}

	s.Herbs = []HerbDetailRow{{SeqNo: 1, HerbType: "1", RouteCode: "1", RouteName: "口服", DoseCount: 7}}
	if errs := Validate(s); len(errs) != 0 {
		t.Fatalf("herb line satisfies the flag, got %v", errorFields(errs))
	}
}

func TestValidateHerbFlagPadded(t *testing.T) {
	// HIS feeds pad coded values; a padded flag still triggers the rule.
	s := validSnapshot()
	s.Medication.Pfklsy = " 1 "

	errs := Validate(s)
	if !hasError(errs, "herb_detail", "conditional_required") {
		t.Fatalf("padded granule flag without herb lines should fail, got %v", errorFields(errs))
	}
}

func TestValidateHerbRowComplete(t *testing.T) {
	s := validSnapshot()
	s.Herbs = []HerbDetailRow{{SeqNo: 1, HerbType: "1", DoseCount: 7}}

	errs := Validate(s)
	if !hasError(errs, "herb_detail.1", "row_complete") {
		t.Fatalf("partial herb row should fail as a row, got %v", errorFields(errs))
	}
}

func TestValidateMissingMedicationSummary(t *testing.T) {
	s := validSnapshot()
	s.Medication = nil

	errs := Validate(s)
	if !hasError(errs, "medication_summary", "required") {
		t.Fatalf("missing medication flags should fail, got %v", errorFields(errs))
	}
}

func TestValidateOrderIsDeterministic(t *testing.T) {
	s := validSnapshot()
	delete(s.Base, "xm")
	s.TcmDisease = []DiagnosisRow{{SeqNo: 1, DiagName: "胃脘痛"}}

	a := errorFields(Validate(s))
	b := errorFields(Validate(s))
	if len(a) != len(b) {
		t.Fatalf("error counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("error order changed between runs: %v vs %v", a, b)
		}
	}
	// Base errors come before group errors.
	if a[0] != "base_info.xm" {
		t.Errorf("expected base error first, got %v", a)
	}
}

func TestCheckSeqContinuity(t *testing.T) {
	if errs := CheckSeqContinuity([]int{1, 2, 3}, "surgery", SectionSurgery); len(errs) != 0 {
		t.Errorf("dense run should pass, got %v", errorFields(errs))
	}
	if errs := CheckSeqContinuity(nil, "surgery", SectionSurgery); len(errs) != 0 {
		t.Errorf("empty group should pass, got %v", errorFields(errs))
	}
	if errs := CheckSeqContinuity([]int{1, 3}, "surgery", SectionSurgery); !hasError(errs, "surgery", "seq_no") {
		t.Error("gap should fail")
	}
	if errs := CheckSeqContinuity([]int{1, 1}, "herb_detail", SectionMedication); !hasError(errs, "herb_detail", "seq_no") {
		t.Error("duplicate should fail")
	}
	if errs := CheckSeqContinuity([]int{0, 1}, "tcm_operation", SectionTreatment); !hasError(errs, "tcm_operation", "seq_no") {
		t.Error("non-positive seq should fail")
	}
}

func TestValidateFeesClean(t *testing.T) {
	fees := map[string]string{
		"zfy":   "380.50",
		"zfje":  "120.00",
		"xyf":   "100.00",
		"kjywf": "20.00",
		"zcyf":  "80.50",
		"zyzjf": "10.00",
		"zyzl":  "200.00",
		"zywz":  "60.00",
		"zcyjf": "80.00",
	}
	if errs := ValidateFees(fees); len(errs) != 0 {
		t.Fatalf("consistent fees should pass, got %v", errorFields(errs))
	}
}

func TestValidateFeesRelations(t *testing.T) {
	cases := []struct {
		name  string
		fees  map[string]string
		field string
	}{
		{"total not positive", map[string]string{"zfy": "0"}, "fee_summary.zfy"},
		{"self-paid above total", map[string]string{"zfy": "100", "zfje": "150"}, "fee_summary.zfje"},
		{"negative component", map[string]string{"zfy": "100", "hlf": "-1"}, "fee_summary.hlf"},
		{"component above total", map[string]string{"zfy": "100", "xyf": "120"}, "fee_summary.xyf"},
		{"surgery below parts", map[string]string{"zfy": "100", "sszlf": "10", "mzf": "8", "ssf": "5"}, "fee_summary.sszlf"},
		{"antimicrobial above western", map[string]string{"zfy": "100", "kjywf": "30", "xyf": "20"}, "fee_summary.kjywf"},
		{"granules above herb", map[string]string{"zfy": "100", "zcyf1": "10", "pfklf": "20"}, "fee_summary.zcyf1"},
		{"tcm below sub-items", map[string]string{"zfy": "100", "zyzl": "10", "zywz": "8", "zygs": "5"}, "fee_summary.zyzl"},
		{"compounding above other", map[string]string{"zfy": "100", "zyqt": "5", "zytstpjg": "8"}, "fee_summary.zytstpjg"},
		{"parts above total", map[string]string{"zfy": "100", "xyf": "60", "zcyf": "50"}, "fee_summary.zfy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateFees(tc.fees)
			if !hasError(errs, tc.field, "fee_relation") {
				t.Errorf("expected fee_relation on %s, got %v", tc.field, errorFields(errs))
			}
		})
	}
}

func TestValidateFeesMissing(t *testing.T) {
	errs := ValidateFees(nil)
	if !hasError(errs, "fee_summary", "required") {
		t.Fatalf("missing fee summary should fail, got %v", errorFields(errs))
	}
}

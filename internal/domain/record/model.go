package record

import "time"

// Status is the lifecycle state of an outpatient record.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// Meta is the server-side identity of a record: who it belongs to and
// which version of it the caller last saw.
type Meta struct {
	RecordID    int64      `json:"record_id"`
	PatientNo   string     `json:"patient_no"`
	Status      Status     `json:"status"`
	Version     int        `json:"version"`
	VisitTime   *time.Time `json:"visit_time,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// DiagType identifies one of the four diagnosis groups.
type DiagType string

const (
	DiagTCMDiseaseMain DiagType = "tcm_disease_main"
	DiagTCMSyndrome    DiagType = "tcm_syndrome"
	DiagWMMain         DiagType = "wm_main"
	DiagWMOther        DiagType = "wm_other"
)

// DiagTypes lists the diagnosis groups in their fixed form order.
var DiagTypes = []DiagType{DiagTCMDiseaseMain, DiagTCMSyndrome, DiagWMMain, DiagWMOther}

// DiagnosisRow is one row of a diagnosis group.
type DiagnosisRow struct {
	SeqNo    int    `json:"seq_no"`
	DiagName string `json:"diag_name"`
	DiagCode string `json:"diag_code,omitempty"`
}

func (r DiagnosisRow) Seq() int { return r.SeqNo }
func (r DiagnosisRow) WithSeq(n int) DiagnosisRow {
	r.SeqNo = n
	return r
}

// Blank reports whether the row carries no user input. A row with only a
// code set is not blank: it is an incomplete row that validation must flag.
func (r DiagnosisRow) Blank() bool {
	return trimmed(r.DiagName) == "" && trimmed(r.DiagCode) == ""
}

// DiagnosisEntry is a diagnosis row stamped with its group on the wire.
type DiagnosisEntry struct {
	DiagType DiagType `json:"diag_type"`
	DiagnosisRow
}

// TcmOperationRow is one traditional-medicine procedure row.
type TcmOperationRow struct {
	SeqNo   int    `json:"seq_no"`
	OpName  string `json:"op_name"`
	OpCode  string `json:"op_code"`
	OpTimes int    `json:"op_times"`
	OpDays  *int   `json:"op_days,omitempty"`
}

func (r TcmOperationRow) Seq() int { return r.SeqNo }
func (r TcmOperationRow) WithSeq(n int) TcmOperationRow {
	r.SeqNo = n
	return r
}

func (r TcmOperationRow) Blank() bool {
	return trimmed(r.OpName) == "" && trimmed(r.OpCode) == "" && r.OpTimes <= 0 && r.OpDays == nil
}

// SurgeryRow is one operative procedure row. OpTime is carried as the
// minute-precision string the form edits ("2006-01-02T15:04").
type SurgeryRow struct {
	SeqNo            int    `json:"seq_no"`
	OpName           string `json:"op_name"`
	OpCode           string `json:"op_code"`
	OpTime           string `json:"op_time"`
	SurgeryLevel     *int   `json:"surgery_level,omitempty"`
	OperatorName     string `json:"operator_name"`
	AnesthesiaMethod string `json:"anesthesia_method"`
	AnesthesiaDoctor string `json:"anesthesia_doctor"`
}

func (r SurgeryRow) Seq() int { return r.SeqNo }
func (r SurgeryRow) WithSeq(n int) SurgeryRow {
	r.SeqNo = n
	return r
}

func (r SurgeryRow) Blank() bool {
	return trimmed(r.OpName) == "" && trimmed(r.OpCode) == "" && trimmed(r.OpTime) == "" &&
		trimmed(r.OperatorName) == "" && trimmed(r.AnesthesiaMethod) == "" &&
		trimmed(r.AnesthesiaDoctor) == "" && r.SurgeryLevel == nil
}

// HerbDetailRow is one herbal prescription line.
type HerbDetailRow struct {
	SeqNo     int    `json:"seq_no"`
	HerbType  string `json:"herb_type"`
	RouteCode string `json:"route_code"`
	RouteName string `json:"route_name"`
	DoseCount int    `json:"dose_count"`
}

func (r HerbDetailRow) Seq() int { return r.SeqNo }
func (r HerbDetailRow) WithSeq(n int) HerbDetailRow {
	r.SeqNo = n
	return r
}

func (r HerbDetailRow) Blank() bool {
	return trimmed(r.HerbType) == "" && trimmed(r.RouteCode) == "" &&
		trimmed(r.RouteName) == "" && r.DoseCount <= 0
}

// MedicationSummary holds the HIS-derived usage flags for the visit.
// Values are dictionary codes ("0"/"1"), kept as strings like every other
// coded field on the form.
type MedicationSummary struct {
	Xysy   string `json:"xysy"`   // western medicine used
	Zcysy  string `json:"zcysy"`  // chinese patent medicine used
	Zyzjsy string `json:"zyzjsy"` // tcm preparation used
	Ctypsy string `json:"ctypsy"` // decoction pieces used
	Pfklsy string `json:"pfklsy"` // formula granules used
}

// HerbRequired reports whether the usage flags demand at least one
// non-blank herbal prescription line.
func (m MedicationSummary) HerbRequired() bool {
	return trimmed(m.Ctypsy) == "1" || trimmed(m.Pfklsy) == "1"
}

// Payload is the editable content of a record as sent to and returned by
// the record store. Base fields travel as a flat code->value map; repeating
// groups travel as seq-ordered lists.
type Payload struct {
	BaseInfo      map[string]string `json:"base_info"`
	Diagnoses     []DiagnosisEntry  `json:"diagnoses"`
	TcmOperations []TcmOperationRow `json:"tcm_operations"`
	Surgeries     []SurgeryRow      `json:"surgeries"`
	HerbDetails   []HerbDetailRow   `json:"herb_details"`
}

// DiagnosesByType splits the payload's diagnosis list back into its four
// groups, preserving order within each group.
func (p Payload) DiagnosesByType() map[DiagType][]DiagnosisRow {
	out := make(map[DiagType][]DiagnosisRow, len(DiagTypes))
	for _, e := range p.Diagnoses {
		out[e.DiagType] = append(out[e.DiagType], e.DiagnosisRow)
	}
	return out
}

// FieldError is one validation failure, addressed by a dotted field path
// such as "diagnosis.wm_main.1.diag_name".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
	Section string `json:"section,omitempty"`
	SeqNo   int    `json:"seq_no,omitempty"`
}

// SaveRequest is the body of a draft-save or submit call. Version must echo
// the version the caller last loaded; nil means the caller believes the
// record does not exist yet.
type SaveRequest struct {
	Payload Payload `json:"payload"`
	Version *int    `json:"version,omitempty"`
}

// Response is the record store's reply to a fetch or a successful write.
type Response struct {
	Record            Meta               `json:"record"`
	Payload           Payload            `json:"payload"`
	MedicationSummary *MedicationSummary `json:"medication_summary,omitempty"`
	FeeSummary        map[string]string  `json:"fee_summary,omitempty"`
}

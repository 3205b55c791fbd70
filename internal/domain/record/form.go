package record

// FieldMeta carries the display metadata the prefill feed attaches to a
// base field: where the value came from and whether the form may edit it.
type FieldMeta struct {
	Source   string `json:"source"`
	ReadOnly bool   `json:"readonly"`
}

// FormState is the whole editable state of one record form. It is not
// safe for concurrent use; the coordinator owns it on a single goroutine.
type FormState struct {
	PatientNo string
	Base      map[string]string
	Meta      map[string]FieldMeta

	TcmDisease    *Group[DiagnosisRow]
	TcmSyndrome   *Group[DiagnosisRow]
	WMMain        *Group[DiagnosisRow]
	WMOther       *Group[DiagnosisRow]
	TcmOperations *Group[TcmOperationRow]
	Surgeries     *Group[SurgeryRow]
	Herbs         *Group[HerbDetailRow]

	Medication *MedicationSummary
	Fees       map[string]string
}

// NewFormState creates an empty form for a patient, with every repeating
// group at its mandatory minimum.
func NewFormState(patientNo string) *FormState {
	f := &FormState{
		PatientNo: patientNo,
		Base:      make(map[string]string),
		Meta:      make(map[string]FieldMeta),
		Fees:      make(map[string]string),
	}
	for _, spec := range diagSpecs {
		g := NewGroup[DiagnosisRow](spec.Min, spec.Max)
		switch spec.Type {
		case DiagTCMDiseaseMain:
			f.TcmDisease = g
		case DiagTCMSyndrome:
			f.TcmSyndrome = g
		case DiagWMMain:
			f.WMMain = g
		case DiagWMOther:
			f.WMOther = g
		}
	}
	f.TcmOperations = NewGroup[TcmOperationRow](0, MaxTcmOperations)
	f.Surgeries = NewGroup[SurgeryRow](0, MaxSurgeries)
	f.Herbs = NewGroup[HerbDetailRow](0, MaxHerbDetails)
	return f
}

// Diagnoses returns the group for one diagnosis type.
func (f *FormState) Diagnoses(t DiagType) *Group[DiagnosisRow] {
	switch t {
	case DiagTCMDiseaseMain:
		return f.TcmDisease
	case DiagTCMSyndrome:
		return f.TcmSyndrome
	case DiagWMMain:
		return f.WMMain
	case DiagWMOther:
		return f.WMOther
	}
	return nil
}

// SetBase writes one base field. It refuses fields the prefill feed marked
// read-only; those only change when a fresh upstream snapshot is merged.
func (f *FormState) SetBase(name, value string) bool {
	if meta, ok := f.Meta[name]; ok && meta.ReadOnly {
		return false
	}
	f.Base[name] = value
	return true
}

// Snapshot copies the form into an immutable validation input.
func (f *FormState) Snapshot() *Snapshot {
	base := make(map[string]string, len(f.Base))
	for k, v := range f.Base {
		base[k] = v
	}
	s := &Snapshot{
		Base:          base,
		TcmDisease:    f.TcmDisease.Rows(),
		TcmSyndrome:   f.TcmSyndrome.Rows(),
		WMMain:        f.WMMain.Rows(),
		WMOther:       f.WMOther.Rows(),
		TcmOperations: f.TcmOperations.Rows(),
		Surgeries:     f.Surgeries.Rows(),
		Herbs:         f.Herbs.Rows(),
	}
	if f.Medication != nil {
		med := *f.Medication
		s.Medication = &med
	}
	return s
}

// LoadPayload replaces the form's editable content with a payload fetched
// from the record store. Groups renumber and pad to their mandatory
// minimum; read-only metadata is untouched.
func (f *FormState) LoadPayload(p Payload) {
	f.Base = make(map[string]string, len(p.BaseInfo))
	for k, v := range p.BaseInfo {
		f.Base[k] = v
	}
	byType := p.DiagnosesByType()
	for _, t := range DiagTypes {
		f.Diagnoses(t).Replace(byType[t])
	}
	f.TcmOperations.Replace(p.TcmOperations)
	f.Surgeries.Replace(p.Surgeries)
	f.Herbs.Replace(p.HerbDetails)
}

package prefill

import (
	"strings"

	"github.com/omr/omr/internal/domain/record"
)

// medFlagNames are the medication summary flags by form field name.
var medFlagNames = map[string]bool{
	"xysy": true, "zcysy": true, "zyzjsy": true, "ctypsy": true, "pfklsy": true,
}

// Merge builds the initial form state from a prefill snapshot and the
// stored record, if any. Saved content always wins over the upstream
// suggestion; the snapshot contributes field provenance, the read-only
// figures, and the candidate lists for a visit with no record yet.
func Merge(snap *Snapshot, existing *record.Response) *record.FormState {
	f := record.NewFormState(snap.PatientNo)

	baseNames := make(map[string]bool)
	for _, n := range record.BaseFieldNames() {
		baseNames[n] = true
	}
	for name, fv := range snap.Fields {
		if baseNames[name] {
			f.Meta[name] = record.FieldMeta{Source: fv.Source, ReadOnly: fv.ReadOnly}
		}
	}

	if existing != nil {
		f.LoadPayload(existing.Payload)
		if existing.MedicationSummary != nil {
			med := *existing.MedicationSummary
			f.Medication = &med
		}
		f.Fees = make(map[string]string, len(existing.FeeSummary))
		for k, v := range existing.FeeSummary {
			f.Fees[k] = v
		}
		return f
	}

	for name, fv := range snap.Fields {
		switch {
		case baseNames[name]:
			if fv.Value != "" {
				f.Base[name] = fv.Value
			}
		case medFlagNames[name]:
			applyMedFlag(f, name, fv.Value)
		default:
			if fv.Value != "" {
				f.Fees[name] = fv.Value
			}
		}
	}

	for _, t := range record.DiagTypes {
		if rows := snap.Diagnoses[t]; len(rows) > 0 {
			f.Diagnoses(t).Replace(rows)
		}
	}
	if len(snap.Herbs) > 0 {
		f.Herbs.Replace(snap.Herbs)
	}
	return f
}

func applyMedFlag(f *record.FormState, name, value string) {
	if f.Medication == nil {
		// Flags absent from the feed mean the category was not used.
		f.Medication = &record.MedicationSummary{Xysy: "2", Zcysy: "2", Zyzjsy: "2", Ctypsy: "2", Pfklsy: "2"}
	}
	if strings.TrimSpace(value) == "" {
		return
	}
	switch name {
	case "xysy":
		f.Medication.Xysy = value
	case "zcysy":
		f.Medication.Zcysy = value
	case "zyzjsy":
		f.Medication.Zyzjsy = value
	case "ctypsy":
		f.Medication.Ctypsy = value
	case "pfklsy":
		f.Medication.Pfklsy = value
	}
}

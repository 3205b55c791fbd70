package records

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"time"

	"github.com/omr/omr/internal/domain/record"
	"github.com/omr/omr/internal/platform/auth"
)

// ErrNotSubmitted means a print was requested for a record still in
// draft; only finalized records may leave the system on paper.
var ErrNotSubmitted = errors.New("record not submitted")

// RenderPrint renders the submitted record as a standalone HTML page.
func (s *Service) RenderPrint(ctx context.Context, patientNo string, sess *auth.Session) (string, error) {
	if _, err := s.ensureAccess(ctx, patientNo, sess); err != nil {
		return "", err
	}
	rec, err := s.repo.GetByPatient(ctx, patientNo)
	if err != nil {
		return "", err
	}
	if rec.Status != record.StatusSubmitted {
		return "", ErrNotSubmitted
	}

	var buf strings.Builder
	if err := printTmpl.Execute(&buf, printData(rec)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type printRow struct {
	Label string
	Value string
}

type printView struct {
	PatientNo     string
	SubmittedAt   string
	Base          []printRow
	Diagnoses     []record.DiagnosisEntry
	TcmOperations []record.TcmOperationRow
	Surgeries     []record.SurgeryRow
	HerbDetails   []record.HerbDetailRow
	Fees          []printRow
}

// printLabels maps the base field codes shown on the printed sheet.
// Fields without a label here are omitted from the printout.
var printLabels = []printRow{
	{"jzkh", "Visit card no"},
	{"xm", "Name"},
	{"xb", "Sex"},
	{"csrq", "Date of birth"},
	{"gj", "Country"},
	{"mz", "Nation"},
	{"zjhm", "Certificate no"},
	{"xzz", "Address"},
	{"lxdh", "Phone"},
	{"jzks", "Department"},
	{"jzys", "Doctor"},
	{"ghsj", "Registered at"},
	{"jzsj", "Seen at"},
	{"hzzs", "Chief complaint"},
}

func printData(rec *StoredRecord) printView {
	view := printView{
		PatientNo:     rec.PatientNo,
		Diagnoses:     rec.Diagnoses,
		TcmOperations: rec.TcmOperations,
		Surgeries:     rec.Surgeries,
		HerbDetails:   rec.HerbDetails,
	}
	if rec.SubmittedAt != nil {
		view.SubmittedAt = rec.SubmittedAt.Format(time.DateTime)
	}
	for _, l := range printLabels {
		if v := strings.TrimSpace(rec.BaseInfo[l.Label]); v != "" && v != "-" {
			view.Base = append(view.Base, printRow{Label: l.Value, Value: v})
		}
	}
	for _, code := range append([]string{"zfy", "zfje"}, record.FeeComponentFields...) {
		if v := strings.TrimSpace(rec.Fees[code]); v != "" {
			view.Fees = append(view.Fees, printRow{Label: code, Value: v})
		}
	}
	return view
}

var printTmpl = template.Must(template.New("print").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Outpatient record {{.PatientNo}}</title>
<style>
body { font-family: serif; margin: 2em; }
h1 { font-size: 1.3em; }
table { border-collapse: collapse; margin-bottom: 1.2em; }
td, th { border: 1px solid #444; padding: 2px 8px; font-size: 0.9em; }
th { background: #eee; text-align: left; }
</style>
</head>
<body>
<h1>Outpatient medical record</h1>
<p>Patient no {{.PatientNo}} &mdash; submitted {{.SubmittedAt}}</p>

<table>
{{range .Base}}<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>

{{if .Diagnoses}}<h2>Diagnoses</h2>
<table>
<tr><th>Type</th><th>#</th><th>Name</th><th>Code</th></tr>
{{range .Diagnoses}}<tr><td>{{.DiagType}}</td><td>{{.SeqNo}}</td><td>{{.DiagName}}</td><td>{{.DiagCode}}</td></tr>
{{end}}</table>{{end}}

{{if .TcmOperations}}<h2>TCM treatments</h2>
<table>
<tr><th>#</th><th>Name</th><th>Code</th><th>Times</th><th>Days</th></tr>
{{range .TcmOperations}}<tr><td>{{.SeqNo}}</td><td>{{.OpName}}</td><td>{{.OpCode}}</td><td>{{.OpTimes}}</td><td>{{if .OpDays}}{{.OpDays}}{{end}}</td></tr>
{{end}}</table>{{end}}

{{if .Surgeries}}<h2>Operations</h2>
<table>
<tr><th>#</th><th>Name</th><th>Code</th><th>Time</th><th>Operator</th><th>Anesthesia</th></tr>
{{range .Surgeries}}<tr><td>{{.SeqNo}}</td><td>{{.OpName}}</td><td>{{.OpCode}}</td><td>{{.OpTime}}</td><td>{{.OperatorName}}</td><td>{{.AnesthesiaMethod}}</td></tr>
{{end}}</table>{{end}}

{{if .HerbDetails}}<h2>Herbal prescriptions</h2>
<table>
<tr><th>#</th><th>Type</th><th>Route</th><th>Doses</th></tr>
{{range .HerbDetails}}<tr><td>{{.SeqNo}}</td><td>{{.HerbType}}</td><td>{{.RouteName}}</td><td>{{.DoseCount}}</td></tr>
{{end}}</table>{{end}}

{{if .Fees}}<h2>Fees</h2>
<table>
{{range .Fees}}<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>{{end}}
</body>
</html>
`))

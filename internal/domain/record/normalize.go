package record

// BuildPayload turns a form snapshot into the canonical wire payload:
// values trimmed, empty optional base fields dropped, blank rows in
// optional groups removed, and every group renumbered 1..N. The same
// snapshot always produces the same payload.
func BuildPayload(s *Snapshot) Payload {
	p := Payload{BaseInfo: make(map[string]string, len(s.Base))}

	for _, f := range baseFields {
		value := trimmed(s.Base[f.Name])
		if value == "" && !f.Required {
			continue
		}
		p.BaseInfo[f.Name] = value
	}

	for _, spec := range diagSpecs {
		rows := s.diagnoses(spec.Type)
		seq := 0
		for _, r := range rows {
			if spec.Min == 0 && r.Blank() {
				continue
			}
			seq++
			p.Diagnoses = append(p.Diagnoses, DiagnosisEntry{
				DiagType: spec.Type,
				DiagnosisRow: DiagnosisRow{
					SeqNo:    seq,
					DiagName: trimmed(r.DiagName),
					DiagCode: trimmed(r.DiagCode),
				},
			})
		}
	}

	for _, op := range s.TcmOperations {
		if op.Blank() {
			continue
		}
		op.OpName = trimmed(op.OpName)
		op.OpCode = trimmed(op.OpCode)
		op.SeqNo = len(p.TcmOperations) + 1
		p.TcmOperations = append(p.TcmOperations, op)
	}

	for _, sg := range s.Surgeries {
		if sg.Blank() {
			continue
		}
		sg.OpName = trimmed(sg.OpName)
		sg.OpCode = trimmed(sg.OpCode)
		sg.OpTime = trimmed(sg.OpTime)
		sg.OperatorName = trimmed(sg.OperatorName)
		sg.AnesthesiaMethod = trimmed(sg.AnesthesiaMethod)
		sg.AnesthesiaDoctor = trimmed(sg.AnesthesiaDoctor)
		sg.SeqNo = len(p.Surgeries) + 1
		p.Surgeries = append(p.Surgeries, sg)
	}

	for _, h := range s.Herbs {
		if h.Blank() {
			continue
		}
		h.HerbType = trimmed(h.HerbType)
		h.RouteCode = trimmed(h.RouteCode)
		h.RouteName = trimmed(h.RouteName)
		h.SeqNo = len(p.HerbDetails) + 1
		p.HerbDetails = append(p.HerbDetails, h)
	}

	return p
}

// NormalizeSeq renumbers every group of an inbound payload 1..N in current
// order. The record store applies it after continuity has been validated,
// so stored rows are always densely numbered.
func NormalizeSeq(p *Payload) {
	byType := p.DiagnosesByType()
	p.Diagnoses = p.Diagnoses[:0]
	for _, t := range DiagTypes {
		for i, r := range byType[t] {
			r.SeqNo = i + 1
			p.Diagnoses = append(p.Diagnoses, DiagnosisEntry{DiagType: t, DiagnosisRow: r})
		}
	}
	for i := range p.TcmOperations {
		p.TcmOperations[i].SeqNo = i + 1
	}
	for i := range p.Surgeries {
		p.Surgeries[i].SeqNo = i + 1
	}
	for i := range p.HerbDetails {
		p.HerbDetails[i].SeqNo = i + 1
	}
}

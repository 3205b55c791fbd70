package his

import (
	"context"
	"sync"
)

// Visit is one seeded HIS visit for the static source.
type Visit struct {
	BaseInfo       map[string]string
	FeeInfo        map[string]string
	Diagnoses      []DiagnosisLine
	ChiefComplaint string
	HerbLines      []HerbLine
}

// StaticSource is an in-memory Source for development and tests. It ships
// with one demo visit and can be seeded with more.
type StaticSource struct {
	mu     sync.RWMutex
	visits map[string]*Visit
}

// NewStaticSource creates a source pre-seeded with the demo visit MZ0001.
func NewStaticSource() *StaticSource {
	s := &StaticSource{visits: make(map[string]*Visit)}
	s.Put("MZ0001", demoVisit())
	return s
}

// Put seeds or replaces a visit.
func (s *StaticSource) Put(patientNo string, v *Visit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits[patientNo] = v
}

func (s *StaticSource) visit(patientNo string) (*Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visits[patientNo]
	if !ok {
		return nil, ErrVisitNotFound
	}
	return v, nil
}

func (s *StaticSource) FetchBaseInfo(_ context.Context, patientNo string) (map[string]string, error) {
	v, err := s.visit(patientNo)
	if err != nil {
		return nil, err
	}
	return copyMap(v.BaseInfo), nil
}

func (s *StaticSource) FetchFeeInfo(_ context.Context, patientNo string) (map[string]string, error) {
	v, err := s.visit(patientNo)
	if err != nil {
		return nil, err
	}
	return copyMap(v.FeeInfo), nil
}

func (s *StaticSource) FetchDiagnoses(_ context.Context, patientNo string) ([]DiagnosisLine, error) {
	v, err := s.visit(patientNo)
	if err != nil {
		return nil, err
	}
	out := make([]DiagnosisLine, len(v.Diagnoses))
	copy(out, v.Diagnoses)
	return out, nil
}

func (s *StaticSource) FetchChiefComplaint(_ context.Context, patientNo string) (string, error) {
	v, err := s.visit(patientNo)
	if err != nil {
		return "", err
	}
	return v.ChiefComplaint, nil
}

func (s *StaticSource) FetchHerbLines(_ context.Context, patientNo string) ([]HerbLine, error) {
	v, err := s.visit(patientNo)
	if err != nil {
		return nil, err
	}
	out := make([]HerbLine, len(v.HerbLines))
	copy(out, v.HerbLines)
	return out, nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func demoVisit() *Visit {
	return &Visit{
		BaseInfo: map[string]string{
			"USERNAME": "oper01",
			"JZKH":     "MZ0001",
			"XM":       "张三",
			"XB":       "1",
			"CSRQ":     "1978-02-11",
			"HY":       "2",
			"GJ":       "CHN",
			"MZ":       "01",
			"ZJLB":     "1",
			"ZJHM":     "11010519491231002X",
			"XZZ":      "北京市西城区某路9号",
			"LXDH":     "13900139000",
			"GHSJ":     "2026-03-02T08:05",
			"BDSJ":     "2026-03-02T08:32",
			"JZSJ":     "2026-03-02T09:10",
			"JZKS":     "针灸科",
			"JZKSDM":   "0401",
			"JZYS":     "李医生",
			"JZYSZC":   "231",
			"HZZS":     "胃脘部隐痛三月余",
		},
		FeeInfo: map[string]string{
			"ZFY":    "486.20",
			"ZFJE":   "132.60",
			"XYF":    "120.00",
			"KJYWF":  "36.00",
			"ZCYF":   "88.20",
			"ZCYF1":  "160.00",
			"PFKLF":  "96.00",
			"ZYZL":   "118.00",
			"ZCYJF":  "118.00",
			"XYSY":   "1",
			"ZCYSY":  "1",
			"ZYZJSY": "2",
			"CTYPSY": "2",
			"PFKLSY": "1",
		},
		Diagnoses: []DiagnosisLine{
			{Sort: "D", No: 1, Name: "慢性浅表性胃炎", Code: "K29.3"},
			{Sort: "D", No: 2, Name: "高血压", Code: "I10"},
			{Sort: "B", No: 1, Name: "胃脘痛", Code: "BNP010"},
			{Sort: "Z", No: 1, Name: "脾胃虚寒证", Code: "ZZPXV10"},
		},
		ChiefComplaint: "胃脘部隐痛三月余，受凉后加重",
		HerbLines: []HerbLine{
			{HerbType: "2", RouteCode: "1", RouteName: "口服", DoseCount: 7},
		},
	}
}

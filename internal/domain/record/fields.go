package record

import (
	"strings"
	"time"
)

// baseField describes one base-section field: its code, whether it is
// always required, and its maximum length (0 = no length limit, used for
// the datetime fields).
type baseField struct {
	Name     string
	Required bool
	MaxLen   int
}

// baseFields lists every base-section field in form order. Validation
// walks this table so errors come out in a stable, form-shaped order.
var baseFields = []baseField{
	{"username", true, 10},
	{"jzkh", true, 50},
	{"xm", true, 100},
	{"xb", true, 1},
	{"csrq", true, 0},
	{"hy", true, 1},
	{"gj", true, 40},
	{"mz", true, 2},
	{"zjlb", true, 1},
	{"zjhm", true, 18},
	{"xzz", true, 200},
	{"lxdh", true, 40},
	{"ywgms", true, 1},
	{"gmyw", false, 500},
	{"qtgms", false, 1},
	{"qtgmy", false, 200},
	{"ghsj", false, 0},
	{"bdsj", false, 0},
	{"jzsj", true, 0},
	{"jzks", false, 100},
	{"jzksdm", true, 50},
	{"jzys", true, 40},
	{"jzyszc", true, 40},
	{"jzlx", true, 1},
	{"jzhzfj", false, 1},
	{"jzhzqx", false, 1},
	{"zyzkjsj", false, 0},
	{"fz", true, 1},
	{"sy", true, 1},
	{"mzmtbhz", true, 1},
	{"hzzs", false, 1500},
}

// BaseFieldNames returns the base field codes in form order.
func BaseFieldNames() []string {
	names := make([]string, len(baseFields))
	for i, f := range baseFields {
		names[i] = f.Name
	}
	return names
}

// requiredBase reports whether the named base field is always required.
func requiredBase(name string) bool {
	for _, f := range baseFields {
		if f.Name == name {
			return f.Required
		}
	}
	return false
}

// conditionalRule makes one field required when a trigger field carries a
// specific dictionary value.
type conditionalRule struct {
	Trigger   string
	Value     string
	Dependent string
	Message   string
}

// conditionalRules is walked in order after the per-field checks, so the
// conditional errors land after the unconditional ones for the same form.
var conditionalRules = []conditionalRule{
	{"ywgms", "2", "gmyw", "allergy drug is required when drug allergy history is present"},
	{"qtgms", "2", "qtgmy", "allergen detail is required when other allergy history is present"},
	{"jzlx", "1", "jzhzfj", "emergency triage level is required for emergency visits"},
	{"jzlx", "1", "jzhzqx", "emergency disposition is required for emergency visits"},
	{"jzhzqx", "7", "zyzkjsj", "admission order time is required when disposition is hospital admission"},
}

func trimmed(s string) string { return strings.TrimSpace(s) }

// isMissing reports whether a value counts as absent. A lone "-" is the
// upstream HIS placeholder for "no data" and counts as missing too.
func isMissing(s string) bool {
	t := trimmed(s)
	return t == "" || t == "-"
}

var timeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseFormTime parses the timestamp formats the form and the HIS feed
// produce. The zero time and false mean the value did not parse.
func parseFormTime(s string) (time.Time, bool) {
	s = trimmed(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var residentIDFactors = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}

const residentIDChecks = "10X98765432"

// validResidentID checks an 18-digit resident identity number against its
// ISO 7064 MOD 11-2 check character. Legacy 15-digit numbers pass with no
// checksum, matching the upstream acquisition standard.
func validResidentID(id string) bool {
	id = trimmed(id)
	switch len(id) {
	case 18:
		sum := 0
		for i := 0; i < 17; i++ {
			c := id[i]
			if c < '0' || c > '9' {
				return false
			}
			sum += int(c-'0') * residentIDFactors[i]
		}
		last := id[17]
		if last >= 'a' && last <= 'z' {
			last -= 'a' - 'A'
		}
		if (last < '0' || last > '9') && last != 'X' {
			return false
		}
		return residentIDChecks[sum%11] == last
	case 15:
		for i := 0; i < 15; i++ {
			if id[i] < '0' || id[i] > '9' {
				return false
			}
		}
		return true
	default:
		return false
	}
}

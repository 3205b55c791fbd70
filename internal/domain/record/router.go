package record

import "strings"

// Tab identifies one of the five form tabs errors can route to.
type Tab string

const (
	TabBase       Tab = "base"
	TabDiagnosis  Tab = "diagnosis"
	TabOperation  Tab = "operation"
	TabMedication Tab = "medication"
	TabFee        Tab = "fee"
)

// RouteTarget is where the form should move focus: the tab to open and
// the field path to highlight.
type RouteTarget struct {
	Tab   Tab
	Field string
}

// TabFor maps a field path onto its form tab. Unknown prefixes land on the
// base tab, which also owns the envelope-level errors.
func TabFor(field string) Tab {
	prefix := field
	if i := strings.IndexByte(field, '.'); i >= 0 {
		prefix = field[:i]
	}
	switch prefix {
	case "diagnosis":
		return TabDiagnosis
	case "surgery", "tcm_operation":
		return TabOperation
	case "herb_detail", "medication_summary":
		return TabMedication
	case "fee_summary":
		return TabFee
	default:
		return TabBase
	}
}

// ErrorRouter decides when a fresh error list should move the user's
// focus. It targets the first error only, and re-routes only when that
// first error's identity changes, so a user fixing field three is not
// yanked back to field one on every revalidation.
type ErrorRouter struct {
	lastField string
}

// Route returns the target for the first error and whether focus should
// move there. An empty list clears the router and moves nothing.
func (r *ErrorRouter) Route(errs []FieldError) (RouteTarget, bool) {
	if len(errs) == 0 {
		r.lastField = ""
		return RouteTarget{}, false
	}
	first := errs[0]
	target := RouteTarget{Tab: TabFor(first.Field), Field: first.Field}
	if first.Field == r.lastField {
		return target, false
	}
	r.lastField = first.Field
	return target, true
}

// Reset clears the routing history, so the next error list routes again
// even if its first error is unchanged.
func (r *ErrorRouter) Reset() { r.lastField = "" }

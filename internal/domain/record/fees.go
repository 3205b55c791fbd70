package record

import "strconv"

// FeeComponentFields lists every fee component code, in the order the
// charging interface reports them.
var FeeComponentFields = []string{
	"ylfwf", "zlczf", "hlf", "qtfy",
	"blzdf", "zdf", "yxxzdf", "lczdxmf",
	"fsszlxmf", "zlf", "sszlf", "mzf", "ssf", "kff",
	"zyl_zyzd", "zyzl", "zywz", "zygs", "zcyjf", "zytnzl", "zygczl", "zytszl",
	"zyqt", "zytstpjg", "bzss",
	"xyf", "kjywf", "zcyf", "zyzjf", "zcyf1", "pfklf",
	"xf", "bdbblzpf", "qdbblzpf", "nxyzlzpf", "xbyzlzpf",
	"jcyyclf", "yyclf", "ssycxclf", "qtf",
}

// feeTopLevelFields are the components that sum against the grand total.
// Sub-items (mzf, ssf, the TCM sub-splits, kjywf, zyzjf, pfklf, zlf) are
// already contained in a listed component and must not be double counted.
var feeTopLevelFields = []string{
	"ylfwf", "zlczf", "hlf", "qtfy",
	"blzdf", "zdf", "yxxzdf", "lczdxmf",
	"fsszlxmf", "sszlf", "kff",
	"zyl_zyzd", "zyzl", "zyqt",
	"xyf", "zcyf", "zcyf1",
	"xf", "bdbblzpf", "qdbblzpf", "nxyzlzpf", "xbyzlzpf",
	"jcyyclf", "yyclf", "ssycxclf", "qtf",
}

// feeAmount parses one fee value. Absent or unparseable values return
// (0, false); relation checks skip them the way the charging interface
// leaves unused components empty.
func feeAmount(fees map[string]string, name string) (float64, bool) {
	raw, ok := fees[name]
	if !ok || isMissing(raw) {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func feeOrZero(fees map[string]string, name string) float64 {
	v, _ := feeAmount(fees, name)
	return v
}

// feeEpsilon absorbs binary-float noise when summing two-decimal amounts.
const feeEpsilon = 0.005

// ValidateFees checks the HIS-derived fee summary: the grand total is
// positive, the self-paid amount fits inside it, every component is
// non-negative and bounded by the total, and the cross-component
// relations from the acquisition standard hold. Fees are read-only on the
// form, so these errors mean the upstream feed is inconsistent, not that
// the user typed something wrong.
func ValidateFees(fees map[string]string) []FieldError {
	if fees == nil {
		return []FieldError{{Field: "fee_summary", Message: "fee summary missing from upstream data", Rule: "required", Section: SectionFee}}
	}
	var errs []FieldError
	addFee := func(field, message string) {
		errs = append(errs, FieldError{Field: "fee_summary." + field, Message: message, Rule: "fee_relation", Section: SectionFee})
	}

	zfy := feeOrZero(fees, "zfy")
	zfje := feeOrZero(fees, "zfje")
	if zfy <= 0 {
		addFee("zfy", "grand total must be greater than 0")
	}
	if zfje < 0 || zfje > zfy {
		addFee("zfje", "self-paid amount must be between 0 and the grand total")
	}

	for _, field := range FeeComponentFields {
		v, ok := feeAmount(fees, field)
		if !ok {
			continue
		}
		if v < 0 {
			addFee(field, "amount must not be negative")
			continue
		}
		if zfy > 0 && v > zfy {
			addFee(field, "component must not exceed the grand total")
		}
	}

	if sszlf, ok := feeAmount(fees, "sszlf"); ok {
		if sszlf < feeOrZero(fees, "mzf")+feeOrZero(fees, "ssf")-feeEpsilon {
			addFee("sszlf", "surgical treatment fee must cover anesthesia and surgery fees")
		}
	}
	if zlf, ok := feeAmount(fees, "zlf"); ok {
		if fssz, ok := feeAmount(fees, "fsszlxmf"); ok && zlf > fssz {
			addFee("zlf", "physical therapy fee must not exceed non-surgical treatment fee")
		}
	}
	if kjywf, ok := feeAmount(fees, "kjywf"); ok {
		if xyf, ok := feeAmount(fees, "xyf"); ok && kjywf > xyf {
			addFee("kjywf", "antimicrobial fee must not exceed western medicine fee")
		}
	}
	if zyzjf, ok := feeAmount(fees, "zyzjf"); ok {
		if zcyf, ok := feeAmount(fees, "zcyf"); ok && zyzjf > zcyf {
			addFee("zyzjf", "in-house preparation fee must not exceed patent medicine fee")
		}
	}
	if zcyf1, ok := feeAmount(fees, "zcyf1"); ok {
		if pfklf, ok := feeAmount(fees, "pfklf"); ok && zcyf1 < pfklf {
			addFee("zcyf1", "herb fee must cover the formula granule fee")
		}
	}
	if zyzl, ok := feeAmount(fees, "zyzl"); ok {
		sub := feeOrZero(fees, "zywz") + feeOrZero(fees, "zygs") + feeOrZero(fees, "zcyjf") +
			feeOrZero(fees, "zytnzl") + feeOrZero(fees, "zygczl") + feeOrZero(fees, "zytszl")
		if sub > zyzl+feeEpsilon {
			addFee("zyzl", "TCM treatment fee must cover the sum of its sub-items")
		}
	}
	if zyqt, ok := feeAmount(fees, "zyqt"); ok {
		if v, ok := feeAmount(fees, "zytstpjg"); ok && v > zyqt {
			addFee("zytstpjg", "special compounding fee must not exceed other TCM fee")
		}
		if v, ok := feeAmount(fees, "bzss"); ok && v > zyqt {
			addFee("bzss", "dietary therapy fee must not exceed other TCM fee")
		}
	}

	if zfy > 0 {
		total := 0.0
		for _, field := range feeTopLevelFields {
			total += feeOrZero(fees, field)
		}
		if total > zfy+feeEpsilon {
			addFee("zfy", "grand total must cover the sum of top-level components")
		}
	}
	return errs
}

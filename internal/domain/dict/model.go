// Package dict serves the controlled vocabularies the record form codes
// against: demographic code sets (RC001, RC016, ...), ICD9-CM3 procedure
// codes, herb types and drug routes.
package dict

import "time"

// Item is one entry of a dictionary set. Status 1 is active; retired
// entries keep their row for historical records but stop matching.
type Item struct {
	ID        int64     `json:"id" db:"id"`
	SetCode   string    `json:"set_code" db:"set_code"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Spell     string    `json:"spell,omitempty" db:"spell"`
	Status    int       `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Well-known set codes referenced by record validation.
const (
	SetSex              = "RC001"
	SetMarital          = "RC002"
	SetAnesthesia       = "RC013"
	SetYesNo            = "RC016"
	SetDept             = "RC023"
	SetSurgeryLevel     = "RC029"
	SetNation           = "RC035"
	SetAllergyHistory   = "RC037"
	SetCertificateType  = "RC038"
	SetVisitType        = "RC041"
	SetTriageLevel      = "RC042"
	SetDoctorTitle      = "RC044"
	SetDisposition      = "RC045"
	SetCountry          = "COUNTRY"
	SetProcedure        = "ICD9CM3"
	SetHerbType         = "HERB_TYPE"
	SetDrugRoute        = "DRUG_ROUTE"
)

package terminology

// ICD10Code is one row of the diagnostic code reference table.
// Codes flagged is_common surface first in search results.
type ICD10Code struct {
	Code        string `db:"code" json:"code"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category,omitempty"`
	IsCommon    bool   `db:"is_common" json:"is_common,omitempty"`
}

package domain

import "strings"

// SummaryFields lists the scalar extraction fields in prompt order.
// compliance_notes is the only list-valued field and is handled separately.
var SummaryFields = []string{
	"tender_name",
	"issuer",
	"emd_amount",
	"location",
	"duration",
	"scope_of_work",
}

// SummaryRecord is the fixed-schema structured extraction result for one
// document. Scalar fields are nil when the value was not found.
type SummaryRecord struct {
	TenderName      *string  `json:"tender_name"`
	Issuer          *string  `json:"issuer"`
	EMDAmount       *string  `json:"emd_amount"`
	Location        *string  `json:"location"`
	Duration        *string  `json:"duration"`
	ScopeOfWork     *string  `json:"scope_of_work"`
	ComplianceNotes []string `json:"compliance_notes"`
}

// IsEmpty reports whether every scalar field is nil or blank and the
// compliance notes list is empty.
func (r SummaryRecord) IsEmpty() bool {
	for _, v := range []*string{
		r.TenderName, r.Issuer, r.EMDAmount, r.Location, r.Duration, r.ScopeOfWork,
	} {
		if v != nil && strings.TrimSpace(*v) != "" {
			return false
		}
	}
	return len(r.ComplianceNotes) == 0
}

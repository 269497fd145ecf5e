package normalize

import (
	"fmt"
	"strings"

	"github.com/ppiankov/dossier/internal/model"
)

// FormatForDisplay renders a record as the fixed label/value table.
// A nil or invalid record yields model.ErrorTable and an error.
func FormatForDisplay(r *model.CompanyRecord) (model.DisplayTable, error) {
	if err := r.Validate(); err != nil {
		return model.ErrorTable(), fmt.Errorf("format company record: %w", err)
	}

	details := []string{
		r.PrimaryAddress,
		r.RegistrationNumber,
		r.LegalForm,
		r.Country,
		r.Town,
		r.RegistrationDate,
		r.Contact.Email,
		r.Contact.Phone,
		r.Contact.Website,
		r.GeneralDetails,
		strings.Join(r.DirectorsShareholders, ", "),
		r.UBO,
		r.Subsidiaries,
		r.ParentCompany,
		r.LastReportedRevenue,
	}
	for i, d := range details {
		details[i] = SanitizeString(d)
	}

	fields := make([]string, len(model.DisplayLabels))
	copy(fields, model.DisplayLabels)

	return model.DisplayTable{Fields: fields, Details: details}, nil
}

package model

// DisplayTable is the label/value view of a CompanyRecord
type DisplayTable struct {
	Fields  []string `json:"Fields"`
	Details []string `json:"Details"`
}

// DisplayLabels are the fixed row labels, in display order
var DisplayLabels = []string{
	"Primary Address",
	"Registration Number",
	"Legal Form",
	"Country",
	"Town",
	"Registration Date",
	"Email",
	"Phone",
	"Website",
	"General Details",
	"Directors & Shareholders",
	"UBO",
	"Subsidiaries",
	"Parent Company",
	"Last Reported Revenue",
}

// FormatErrorMessage is shown when a record cannot be turned into a table
const FormatErrorMessage = "Failed to format company information"

// ErrorTable returns the single-row table used when formatting fails
func ErrorTable() DisplayTable {
	return DisplayTable{
		Fields:  []string{"Error"},
		Details: []string{FormatErrorMessage},
	}
}

// Rows returns the table as label/value pairs
func (t DisplayTable) Rows() [][2]string {
	n := len(t.Fields)
	if len(t.Details) < n {
		n = len(t.Details)
	}
	rows := make([][2]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, [2]string{t.Fields[i], t.Details[i]})
	}
	return rows
}

package model

// Draft is the extractor's best-effort output, decoded from JSON.
// Keys follow the snake_case names of CompanyRecord; any key may be missing
// or carry a value of the wrong type.
type Draft map[string]any

// Contact returns the nested contact_information object, or nil
func (d Draft) Contact() map[string]any {
	if d == nil {
		return nil
	}
	if m, ok := d["contact_information"].(map[string]any); ok {
		return m
	}
	if m, ok := d["contact_information"].(Draft); ok {
		return m
	}
	return nil
}

// FieldDescriptions documents every draft key for the extraction prompt
var FieldDescriptions = []FieldDescription{
	{Key: "primary_address", Type: "string", Description: "Complete registered address of the company", Required: true},
	{Key: "registration_number", Type: "string", Description: "Company registration/identification number"},
	{Key: "legal_form", Type: "string", Description: "Legal structure of the company", Required: true},
	{Key: "country", Type: "string", Description: "Country where company is registered", Required: true},
	{Key: "town", Type: "string", Description: "City and state/province of registration", Required: true},
	{Key: "registration_date", Type: "string", Description: "Date of company incorporation", Required: true},
	{Key: "contact_information", Type: "object {email, phone, website}", Description: "Company contact details", Required: true},
	{Key: "general_details", Type: "string", Description: "Brief description of the company", Required: true},
	{Key: "ubo", Type: "string", Description: "Ultimate Business Owners information"},
	{Key: "directors_shareholders", Type: "array of strings", Description: "List of directors and shareholders", Required: true},
	{Key: "subsidiaries", Type: "string", Description: "Information about company subsidiaries"},
	{Key: "parent_company", Type: "string", Description: "Parent company information if any"},
	{Key: "last_reported_revenue", Type: "string", Description: "Latest reported revenue information", Required: true},
}

// FieldDescription describes one extractable field
type FieldDescription struct {
	Key         string
	Type        string
	Description string
	Required    bool
}

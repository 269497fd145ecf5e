// Package normalize turns an extractor draft into a schema-valid company
// record. Normalization never fails: anything missing, blank or malformed is
// replaced by model.Sentinel, and every replacement is reported as a
// Coercion.
package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/dossier/internal/model"
)

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

// Coercion records a value that normalization replaced or dropped
type Coercion struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// step is one named normalization pass over the draft
type step struct {
	name  string
	apply func(d model.Draft, r *model.CompanyRecord) []Coercion
}

// steps run in this order; later steps never read fields set by earlier ones
var steps = []step{
	{name: "contact_information", apply: contactStep},
	{name: "registration_number", apply: registrationNumberStep},
	{name: "directors_shareholders", apply: directorsStep},
	{name: "required_text", apply: requiredTextStep},
	{name: "optional_text", apply: optionalTextStep},
}

// Normalize builds a CompanyRecord from a draft. It is total: any draft,
// including nil, yields a record that passes Validate.
func Normalize(d model.Draft) (model.CompanyRecord, []Coercion) {
	var record model.CompanyRecord
	var coercions []Coercion

	for _, s := range steps {
		coercions = append(coercions, s.apply(d, &record)...)
	}

	return record, coercions
}

// Fallback returns the record used when extraction fails outright
func Fallback() model.CompanyRecord {
	return model.CompanyRecord{
		PrimaryAddress:        model.Sentinel,
		RegistrationNumber:    model.Sentinel,
		LegalForm:             model.Sentinel,
		Country:               model.Sentinel,
		Town:                  model.Sentinel,
		RegistrationDate:      model.EpochPlaceholder,
		Contact:               model.ContactInformation{},
		GeneralDetails:        model.Sentinel,
		DirectorsShareholders: []string{model.Sentinel},
		LastReportedRevenue:   model.Sentinel,
	}
}

// FromRecord converts a record back to draft form, for re-validation
func FromRecord(r model.CompanyRecord) model.Draft {
	directors := make([]any, 0, len(r.DirectorsShareholders))
	for _, d := range r.DirectorsShareholders {
		directors = append(directors, d)
	}

	return model.Draft{
		"primary_address":     r.PrimaryAddress,
		"registration_number": r.RegistrationNumber,
		"legal_form":          r.LegalForm,
		"country":             r.Country,
		"town":                r.Town,
		"registration_date":   r.RegistrationDate,
		"contact_information": map[string]any{
			"email":   r.Contact.Email,
			"phone":   r.Contact.Phone,
			"website": r.Contact.Website,
		},
		"general_details":        r.GeneralDetails,
		"ubo":                    r.UBO,
		"directors_shareholders": directors,
		"subsidiaries":           r.Subsidiaries,
		"parent_company":         r.ParentCompany,
		"last_reported_revenue":  r.LastReportedRevenue,
	}
}

func contactStep(d model.Draft, r *model.CompanyRecord) []Coercion {
	var coercions []Coercion
	contact := d.Contact()
	if contact == nil {
		if _, present := d["contact_information"]; present && d["contact_information"] != nil {
			coercions = append(coercions, Coercion{Field: "contact_information", Reason: "not an object"})
		}
		return coercions
	}

	email, _ := textValue(contact["email"])
	email = strings.TrimSpace(email)
	if email != "" && !ValidEmail(email) {
		coercions = append(coercions, Coercion{Field: "contact_information.email", Reason: "invalid email"})
		email = ""
	}

	phone, _ := textValue(contact["phone"])

	website, _ := textValue(contact["website"])
	website = strings.TrimSpace(website)
	if website != "" && !ValidWebsite(website) {
		coercions = append(coercions, Coercion{Field: "contact_information.website", Reason: "not an http(s) URL"})
		website = ""
	}

	r.Contact = model.ContactInformation{
		Email:   email,
		Phone:   strings.TrimSpace(phone),
		Website: website,
	}
	return coercions
}

func registrationNumberStep(d model.Draft, r *model.CompanyRecord) []Coercion {
	raw, ok := textValue(d["registration_number"])
	if !ok || strings.TrimSpace(raw) == "" {
		r.RegistrationNumber = model.Sentinel
		return []Coercion{{Field: "registration_number", Reason: reasonFor(d, "registration_number")}}
	}

	cleaned := CleanRegistrationNumber(raw)
	r.RegistrationNumber = cleaned
	if cleaned == model.Sentinel && strings.TrimSpace(raw) != model.Sentinel {
		return []Coercion{{Field: "registration_number", Reason: "no alphanumeric characters"}}
	}
	return nil
}

func directorsStep(d model.Draft, r *model.CompanyRecord) []Coercion {
	var directors []string
	reason := ""

	switch v := d["directors_shareholders"].(type) {
	case []string:
		directors = keepNonBlank(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := textValue(item); ok {
				items = append(items, s)
			}
		}
		directors = keepNonBlank(items)
	case string:
		directors = SplitDirectors(v)
	case nil:
		reason = "missing"
	default:
		reason = "unsupported type"
	}

	if len(directors) == 0 {
		if reason == "" {
			reason = "empty"
		}
		r.DirectorsShareholders = []string{model.Sentinel}
		return []Coercion{{Field: "directors_shareholders", Reason: reason}}
	}

	r.DirectorsShareholders = directors
	return nil
}

func requiredTextStep(d model.Draft, r *model.CompanyRecord) []Coercion {
	targets := map[string]*string{
		"primary_address":       &r.PrimaryAddress,
		"legal_form":            &r.LegalForm,
		"country":               &r.Country,
		"town":                  &r.Town,
		"registration_date":     &r.RegistrationDate,
		"general_details":       &r.GeneralDetails,
		"last_reported_revenue": &r.LastReportedRevenue,
	}

	var coercions []Coercion
	for _, field := range model.RequiredFields {
		dst, ok := targets[field]
		if !ok {
			continue // registration_number has its own step
		}
		v, ok := textValue(d[field])
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			*dst = model.Sentinel
			coercions = append(coercions, Coercion{Field: field, Reason: reasonFor(d, field)})
			continue
		}
		*dst = v
	}
	return coercions
}

func optionalTextStep(d model.Draft, r *model.CompanyRecord) []Coercion {
	targets := map[string]*string{
		"ubo":            &r.UBO,
		"subsidiaries":   &r.Subsidiaries,
		"parent_company": &r.ParentCompany,
	}

	var coercions []Coercion
	for _, field := range model.OptionalFields {
		raw, present := d[field]
		v, ok := textValue(raw)
		if present && raw != nil && !ok {
			coercions = append(coercions, Coercion{Field: field, Reason: "unsupported type"})
		}
		*targets[field] = strings.TrimSpace(v)
	}
	return coercions
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// CleanRegistrationNumber strips every non-alphanumeric character. Blank
// input, the sentinel itself, or input with nothing left yields the sentinel.
func CleanRegistrationNumber(raw string) string {
	if strings.TrimSpace(raw) == "" || strings.TrimSpace(raw) == model.Sentinel {
		return model.Sentinel
	}
	cleaned := nonAlphanumeric.ReplaceAllString(raw, "")
	if cleaned == "" {
		return model.Sentinel
	}
	return cleaned
}

var directorSeparator = regexp.MustCompile(`[,;]|and`)

// SplitDirectors splits a free-text list of people on commas, semicolons and
// the standalone word "and". An empty result yields a singleton sentinel list.
func SplitDirectors(s string) []string {
	var parts []string
	start := 0
	for _, m := range directorSeparator.FindAllStringIndex(s, -1) {
		// "and" only separates when no letter or digit touches it, in any script
		if s[m[0]:m[1]] == "and" && (isWordRune(lastRune(s[:m[0]])) || isWordRune(firstRune(s[m[1]:]))) {
			continue
		}
		parts = append(parts, s[start:m[0]])
		start = m[1]
	}
	parts = append(parts, s[start:])

	directors := keepNonBlank(parts)
	if len(directors) == 0 {
		return []string{model.Sentinel}
	}
	return directors
}

// ValidEmail reports whether s looks like an email address
func ValidEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// ValidWebsite reports whether s is an absolute http(s) URL
func ValidWebsite(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// SanitizeString maps blank values to the sentinel and trims everything else
func SanitizeString(s string) string {
	if t := strings.TrimSpace(s); t != "" {
		return t
	}
	return model.Sentinel
}

func keepNonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if t := strings.TrimSpace(item); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// textValue renders scalar JSON values as text; objects, arrays and null are rejected
func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func reasonFor(d model.Draft, field string) string {
	v, present := d[field]
	switch {
	case !present:
		return "missing"
	case v == nil:
		return "null"
	default:
		if _, ok := textValue(v); !ok {
			return "unsupported type"
		}
		return "blank"
	}
}

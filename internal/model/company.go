package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel is substituted for any missing or invalid field
const Sentinel = "Information not available"

// EpochPlaceholder is the registration date used by the fallback record
const EpochPlaceholder = "1900-01-01"

// ContactInformation holds optional contact details (empty string = absent)
type ContactInformation struct {
	Email   string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone   string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Website string `json:"website,omitempty" yaml:"website,omitempty"`
}

// CompanyRecord is the normalized, schema-valid description of a company.
// Build it through normalize.Normalize; values are not mutated afterwards.
type CompanyRecord struct {
	PrimaryAddress        string             `json:"primary_address"`
	RegistrationNumber    string             `json:"registration_number"`
	LegalForm             string             `json:"legal_form"`
	Country               string             `json:"country"`
	Town                  string             `json:"town"`
	RegistrationDate      string             `json:"registration_date"`
	Contact               ContactInformation `json:"contact_information"`
	GeneralDetails        string             `json:"general_details"`
	UBO                   string             `json:"ubo,omitempty"`
	DirectorsShareholders []string           `json:"directors_shareholders"`
	Subsidiaries          string             `json:"subsidiaries,omitempty"`
	ParentCompany         string             `json:"parent_company,omitempty"`
	LastReportedRevenue   string             `json:"last_reported_revenue"`
}

// ErrInvalidRecord is returned by Validate for records that violate the schema
var ErrInvalidRecord = errors.New("invalid company record")

// Validate checks the invariants a constructed record must hold
func (r *CompanyRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}

	required := map[string]string{
		"primary_address":       r.PrimaryAddress,
		"registration_number":   r.RegistrationNumber,
		"legal_form":            r.LegalForm,
		"country":               r.Country,
		"town":                  r.Town,
		"registration_date":     r.RegistrationDate,
		"general_details":       r.GeneralDetails,
		"last_reported_revenue": r.LastReportedRevenue,
	}
	for _, name := range RequiredFields {
		if strings.TrimSpace(required[name]) == "" {
			return fmt.Errorf("%w: %s is blank", ErrInvalidRecord, name)
		}
	}

	if len(r.DirectorsShareholders) == 0 {
		return fmt.Errorf("%w: directors_shareholders is empty", ErrInvalidRecord)
	}

	return nil
}

// RequiredFields lists the draft keys that must resolve to a non-blank value
var RequiredFields = []string{
	"primary_address",
	"registration_number",
	"legal_form",
	"country",
	"town",
	"registration_date",
	"general_details",
	"last_reported_revenue",
}

// OptionalFields lists the free-text draft keys that may stay empty
var OptionalFields = []string{
	"ubo",
	"subsidiaries",
	"parent_company",
}

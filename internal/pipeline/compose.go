package pipeline

import (
	"fmt"
	"strings"

	"github.com/werklead/go-ingest/internal/dedup"
	"github.com/werklead/go-ingest/internal/domain"
	"github.com/werklead/go-ingest/internal/extract"
	"github.com/werklead/go-ingest/internal/parse"
	"github.com/werklead/go-ingest/internal/resolve"
)

// composeVacancy merges the listing candidate, the detail-page structured
// fields and the AI-derived fields into one normalized record. Structured
// detail fields always win over their AI-derived equivalents.
func composeVacancy(src *domain.Source, cand parse.Candidate, detail parse.DetailResult, ai extract.Result, sanitizedHTML, plainText string) *domain.Vacancy {
	v := &domain.Vacancy{
		ExternalID:      cand.ExternalID,
		SourceID:        src.ID,
		Title:           strings.TrimSpace(cand.Title),
		Description:     sanitizedHTML,
		DescriptionText: plainText,
		URL:             cand.URL,
		City:            cand.City,
		Status:          domain.StatusNew,
	}

	if detail.Found {
		f := detail.Fields
		if f.City != "" {
			v.City = f.City
		}
		v.Province = f.Region
		v.Street = f.Street
		v.PostalCode = f.PostalCode
		v.EmploymentType = f.EmploymentType
		v.EducationLevel = f.EducationLevel
		v.PostedAt = f.PostedAt
		v.ExpiresAt = f.ExpiresAt
	}

	// Salary: a structured range from the detail page overrides the AI's
	// free-text guess.
	if detail.Found && (detail.Fields.SalaryMin > 0 || detail.Fields.SalaryMax > 0) {
		v.SalaryMin = detail.Fields.SalaryMin
		v.SalaryMax = detail.Fields.SalaryMax
		v.Salary = formatSalary(detail.Fields.SalaryMin, detail.Fields.SalaryMax, detail.Fields.SalaryPeriod)
	} else {
		v.Salary = strings.TrimSpace(ai.Fields.Salary)
	}

	v.HoursMin = ai.Fields.HoursMin
	v.HoursMax = ai.Fields.HoursMax

	v.ContentHash = dedup.ContentHash(v.Title, cand.CompanyName, v.City, v.URL)

	return v
}

// salaryPeriods maps schema.org unitText values to display text.
var salaryPeriods = map[string]string{
	"HOUR":  "per uur",
	"WEEK":  "per week",
	"MONTH": "per maand",
	"YEAR":  "per jaar",
}

// formatSalary renders a structured min/max/period triple as display text.
func formatSalary(min, max float64, period string) string {
	suffix := salaryPeriods[strings.ToUpper(period)]
	if suffix != "" {
		suffix = " " + suffix
	}

	switch {
	case min > 0 && max > 0:
		return fmt.Sprintf("€ %s - € %s%s", trimFloat(min), trimFloat(max), suffix)
	case min > 0:
		return fmt.Sprintf("Vanaf € %s%s", trimFloat(min), suffix)
	case max > 0:
		return fmt.Sprintf("Tot € %s%s", trimFloat(max), suffix)
	default:
		return ""
	}
}

func trimFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

// companyObservation maps the candidate, detail and AI fields onto the
// company entity, with the same structured-over-AI ordering.
func companyObservation(cand parse.Candidate, detail parse.DetailResult, ai extract.Result) resolve.CompanyObservation {
	obs := resolve.CompanyObservation{
		Name:    strings.TrimSpace(cand.CompanyName),
		City:    cand.City,
		LogoURL: cand.LogoURL,
		Website: strings.TrimSpace(ai.Fields.CompanyWebsite),
		Phone:   strings.TrimSpace(ai.Fields.CompanyPhone),
		Email:   strings.TrimSpace(ai.Fields.CompanyEmail),
	}
	if detail.Found {
		if detail.Fields.City != "" {
			obs.City = detail.Fields.City
		}
		obs.Street = detail.Fields.Street
		obs.PostalCode = detail.Fields.PostalCode
		obs.Province = detail.Fields.Region
	}
	return obs
}

// contactObservation maps the AI-derived contact fields.
func contactObservation(ai extract.Result) resolve.ContactObservation {
	return resolve.ContactObservation{
		Name:  strings.TrimSpace(ai.Fields.ContactName),
		Email: strings.TrimSpace(ai.Fields.ContactEmail),
		Phone: strings.TrimSpace(ai.Fields.ContactPhone),
		Title: strings.TrimSpace(ai.Fields.ContactTitle),
	}
}

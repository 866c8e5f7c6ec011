package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/werklead/go-ingest/internal/domain"
	"github.com/werklead/go-ingest/internal/extract"
	"github.com/werklead/go-ingest/internal/parse"
)

func TestComposeVacancyStructuredSalaryWins(t *testing.T) {
	src := &domain.Source{ID: 3}
	cand := parse.Candidate{ExternalID: "9", Title: "Magazijnmedewerker", CompanyName: "Depot BV", City: "Tilburg", URL: "https://x/9"}
	detail := parse.DetailResult{
		Found: true,
		Fields: parse.StructuredFields{
			SalaryMin:    2100,
			SalaryMax:    2600,
			SalaryPeriod: "MONTH",
		},
	}
	ai := extract.Result{FromModel: true, Fields: extract.Fields{Salary: "ongeveer 1800 euro"}}

	v := composeVacancy(src, cand, detail, ai, "", "")

	assert.Equal(t, 2100.0, v.SalaryMin)
	assert.Equal(t, 2600.0, v.SalaryMax)
	assert.Equal(t, "€ 2100 - € 2600 per maand", v.Salary)
}

func TestComposeVacancyFallsBackToModelSalary(t *testing.T) {
	src := &domain.Source{ID: 3}
	cand := parse.Candidate{ExternalID: "9", Title: "Magazijnmedewerker", CompanyName: "Depot BV", City: "Tilburg", URL: "https://x/9"}
	ai := extract.Result{FromModel: true, Fields: extract.Fields{Salary: " ongeveer 1800 euro "}}

	v := composeVacancy(src, cand, parse.DetailResult{}, ai, "", "")

	assert.Equal(t, "ongeveer 1800 euro", v.Salary)
	assert.Zero(t, v.SalaryMin)
	assert.Zero(t, v.SalaryMax)
}

func TestComposeVacancyDetailFields(t *testing.T) {
	src := &domain.Source{ID: 1}
	cand := parse.Candidate{ExternalID: "a", Title: " Kok ", CompanyName: "Eethuis", City: "Arnhem", URL: "https://x/a"}
	posted := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	detail := parse.DetailResult{
		Found: true,
		Fields: parse.StructuredFields{
			City:           "Nijmegen",
			Region:         "Gelderland",
			Street:         "Markt 1",
			PostalCode:     "6511 AB",
			EmploymentType: "PART_TIME",
			EducationLevel: "MBO",
			PostedAt:       posted,
		},
	}

	v := composeVacancy(src, cand, detail, extract.Result{}, "<p>x</p>", "x")

	assert.Equal(t, "Kok", v.Title)
	assert.Equal(t, "Nijmegen", v.City)
	assert.Equal(t, "Gelderland", v.Province)
	assert.Equal(t, "Markt 1", v.Street)
	assert.Equal(t, "PART_TIME", v.EmploymentType)
	assert.Equal(t, "MBO", v.EducationLevel)
	assert.Equal(t, posted, v.PostedAt)
	assert.Equal(t, "<p>x</p>", v.Description)
	assert.Equal(t, "x", v.DescriptionText)
	assert.NotEmpty(t, v.ContentHash)
}

func TestFormatSalary(t *testing.T) {
	assert.Equal(t, "€ 12.5 - € 15 per uur", formatSalary(12.5, 15, "HOUR"))
	assert.Equal(t, "Vanaf € 2400 per maand", formatSalary(2400, 0, "MONTH"))
	assert.Equal(t, "Tot € 52000 per jaar", formatSalary(0, 52000, "YEAR"))
	assert.Equal(t, "€ 500 - € 700", formatSalary(500, 700, ""))
	assert.Equal(t, "", formatSalary(0, 0, "MONTH"))
}

func TestCompanyObservationPrefersDetailAddress(t *testing.T) {
	cand := parse.Candidate{CompanyName: " Acme Logistics ", City: "Amsterdam", LogoURL: "https://x/logo.png"}
	detail := parse.DetailResult{
		Found: true,
		Fields: parse.StructuredFields{
			City:       "Utrecht",
			Street:     "Havenweg 12",
			PostalCode: "3542 AB",
			Region:     "Utrecht",
		},
	}
	ai := extract.Result{Fields: extract.Fields{
		CompanyWebsite: "https://acme.example",
		CompanyPhone:   "030-1234567",
	}}

	obs := companyObservation(cand, detail, ai)

	assert.Equal(t, "Acme Logistics", obs.Name)
	assert.Equal(t, "Utrecht", obs.City)
	assert.Equal(t, "Havenweg 12", obs.Street)
	assert.Equal(t, "https://acme.example", obs.Website)
	assert.Equal(t, "030-1234567", obs.Phone)
	assert.Equal(t, "https://x/logo.png", obs.LogoURL)
}

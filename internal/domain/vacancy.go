package domain

import "time"

// VacancyStatus is the review lifecycle of an ingested vacancy.
// The pipeline only ever writes StatusNew; review workflows own the rest.
type VacancyStatus string

const (
	StatusNew      VacancyStatus = "new"
	StatusReviewed VacancyStatus = "reviewed"
	StatusArchived VacancyStatus = "archived"
)

// Vacancy is a normalized job posting as ingested from a source.
// One row per unique (ExternalID, SourceID) pair; never mutated after insert.
type Vacancy struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	SourceID   int64  `json:"source_id"`
	CompanyID  int64  `json:"company_id,omitempty"`

	Title           string `json:"title"`
	Description     string `json:"description"`      // sanitized HTML
	DescriptionText string `json:"description_text"` // plain text
	URL             string `json:"url"`

	City       string  `json:"city"`
	Province   string  `json:"province"`
	Street     string  `json:"street"`
	PostalCode string  `json:"postal_code"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`

	EmploymentType string `json:"employment_type"`
	EducationLevel string `json:"education_level"`

	Salary    string  `json:"salary"`
	SalaryMin float64 `json:"salary_min,omitempty"`
	SalaryMax float64 `json:"salary_max,omitempty"`
	HoursMin  int     `json:"hours_min,omitempty"`
	HoursMax  int     `json:"hours_max,omitempty"`

	PostedAt  time.Time `json:"posted_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	ContentHash string        `json:"content_hash"`
	Status      VacancyStatus `json:"status"`
	IngestedAt  time.Time     `json:"ingested_at"`
}

package domain

import "time"

// EnrichmentStatus marks how far downstream enrichment has taken a company.
// The pipeline only initializes the pending sentinel.
type EnrichmentStatus string

const (
	EnrichmentPending EnrichmentStatus = "pending"
)

// Company is a shared entity that may receive contributions from multiple
// sources over time. Fields are filled on first sighting and only patched
// afterward when still empty.
type Company struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`

	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`

	Website string `json:"website,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`

	EnrichmentStatus EnrichmentStatus `json:"enrichment_status"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Contact is a person attached to a company. Created only when at least a
// name or an email was observed; existing contacts are never patched.
type Contact struct {
	ID        int64  `json:"id"`
	CompanyID int64  `json:"company_id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Title     string `json:"title,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

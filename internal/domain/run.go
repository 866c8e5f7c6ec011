package domain

import "time"

// ListStrategy selects how a source enumerates its postings.
type ListStrategy string

const (
	// StrategyEmbeddedJSON scrapes a JSON payload embedded in the page markup.
	StrategyEmbeddedJSON ListStrategy = "embedded_json"
	// StrategyDocumentLinks enumerates one document link per posting from
	// anchor tags, with a localized "pagina X van Y" pagination string.
	StrategyDocumentLinks ListStrategy = "document_links"
)

// Source is an external site vacancies are scraped from.
type Source struct {
	ID       int64        `json:"id"`
	Slug     string       `json:"slug"`
	Name     string       `json:"name"`
	ListURL  string       `json:"list_url"`
	Strategy ListStrategy `json:"strategy"`
	PerPage  int          `json:"per_page"`
}

// RunCursor is the persisted resume pointer of a paginated ingestion run.
type RunCursor struct {
	NextPage   int       `json:"next_page"`
	TotalPages int       `json:"total_pages"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ItemError records a single posting that failed during a run, with enough
// context for triage without digging through logs.
type ItemError struct {
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	Message    string `json:"message"`
}

// RunSummary is the structured result of one ingestion run. It is always
// produced, even on partial failure.
type RunSummary struct {
	RunID  string `json:"run_id"`
	Source string `json:"source"`

	Success        bool `json:"success"`
	PagesProcessed int  `json:"pages_processed"`
	TotalFound     int  `json:"total_found"`
	Processed      int  `json:"processed"`
	Inserted       int  `json:"inserted"`
	Skipped        int  `json:"skipped"`
	Failed         int  `json:"failed"`

	CompaniesCreated int `json:"companies_created"`
	CompaniesUpdated int `json:"companies_updated"`
	ContactsCreated  int `json:"contacts_created"`

	// ResumePage is the page a future run should continue from.
	// Zero means the source was fully paged.
	ResumePage int `json:"resume_page,omitempty"`

	Errors []ItemError `json:"errors,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

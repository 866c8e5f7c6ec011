package parse

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// StructuredFields holds everything a schema.org JobPosting block on a
// detail page can contribute. Absent values stay zero.
type StructuredFields struct {
	PostedAt  time.Time
	ExpiresAt time.Time

	Region               string
	OccupationalCategory string
	EducationLevel       string
	EmploymentType       string

	Street     string
	PostalCode string
	City       string

	SalaryMin    float64
	SalaryMax    float64
	SalaryPeriod string
}

// DetailResult is a total, schema-shaped value: either the structured block
// was found, or fully-populated defaults with the reason it was not.
type DetailResult struct {
	Fields StructuredFields
	Found  bool
	Reason string
}

// defaultDetail builds the degraded result.
func defaultDetail(reason string) DetailResult {
	return DetailResult{Reason: reason}
}

// ==================== JSON-LD wire types ====================

type jobPosting struct {
	Context              string          `json:"@context"`
	Type                 string          `json:"@type"`
	Title                string          `json:"title"`
	DatePosted           string          `json:"datePosted"`
	ValidThrough         string          `json:"validThrough"`
	EmploymentType       string          `json:"employmentType"`
	OccupationalCategory string          `json:"occupationalCategory"`
	EducationRequirement json.RawMessage `json:"educationRequirements"`
	JobLocation          jobLocations    `json:"jobLocation"`
	BaseSalary           baseSalary      `json:"baseSalary"`
}

type jobLocation struct {
	Type    string        `json:"@type"`
	Address postalAddress `json:"address"`
}

// jobLocations tolerates both a single object and an array.
type jobLocations []jobLocation

func (l *jobLocations) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var arr []jobLocation
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*l = arr
		return nil
	}
	var one jobLocation
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = jobLocations{one}
	return nil
}

type postalAddress struct {
	Type            string `json:"@type"`
	StreetAddress   string `json:"streetAddress"`
	AddressLocality string `json:"addressLocality"`
	AddressRegion   string `json:"addressRegion"`
	PostalCode      string `json:"postalCode"`
	AddressCountry  string `json:"addressCountry"`
}

type baseSalary struct {
	Type     string      `json:"@type"`
	Currency string      `json:"currency"`
	Value    salaryValue `json:"value"`
}

type salaryValue struct {
	Type     string  `json:"@type"`
	UnitText string  `json:"unitText"`
	MinValue float64 `json:"minValue"`
	MaxValue float64 `json:"maxValue"`
}

// ==================== Parser ====================

// ParseDetail looks for a schema.org JobPosting block in a detail page and
// extracts its structured fields. A missing or malformed block degrades to
// empty defaults; this is best-effort, never a failure.
func ParseDetail(body []byte) DetailResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return defaultDetail("unreadable document")
	}

	var posting *jobPosting
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}
		var p jobPosting
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return true
		}
		if p.Type != "JobPosting" {
			return true
		}
		posting = &p
		return false
	})

	if posting == nil {
		return defaultDetail("no JobPosting block")
	}

	fields := StructuredFields{
		OccupationalCategory: posting.OccupationalCategory,
		EmploymentType:       posting.EmploymentType,
		EducationLevel:       educationLevel(posting.EducationRequirement),
		PostedAt:             parseDate(posting.DatePosted),
		ExpiresAt:            parseDate(posting.ValidThrough),
		SalaryMin:            posting.BaseSalary.Value.MinValue,
		SalaryMax:            posting.BaseSalary.Value.MaxValue,
		SalaryPeriod:         posting.BaseSalary.Value.UnitText,
	}

	if len(posting.JobLocation) > 0 {
		addr := posting.JobLocation[0].Address
		fields.Street = addr.StreetAddress
		fields.PostalCode = addr.PostalCode
		fields.City = addr.AddressLocality
		fields.Region = addr.AddressRegion
	}

	return DetailResult{Fields: fields, Found: true}
}

// educationLevel handles both the plain-string and the EducationalOccupationalCredential
// object forms of educationRequirements.
func educationLevel(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		CredentialCategory string `json:"credentialCategory"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.CredentialCategory
	}
	return ""
}

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-01-2006",
}

// parseDate returns the zero time when no format matches; callers treat
// zero as "not observed".
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package parse

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is a posting discovered on a listing page, before any detail
// fetch or extraction has happened.
type Candidate struct {
	ExternalID  string
	Title       string
	CompanyName string
	City        string
	URL         string
	DetailURL   string
	Description string
	LogoURL     string
}

// ListResult is the outcome of parsing one listing page. Parsers degrade to
// zero candidates with TotalPages 1 when the expected markup is absent;
// they never fail.
type ListResult struct {
	Candidates []Candidate
	TotalPages int
}

// ListParser extracts candidate postings and pagination metadata from a
// listing page body.
type ListParser interface {
	ParseList(body []byte, page int) ListResult
}

// ==================== Embedded JSON strategy ====================

// embeddedPayload mirrors the JSON blob sources embed in their listing markup.
type embeddedPayload struct {
	Vacancies []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		CompanyName string `json:"company_name"`
		City        string `json:"city"`
		URL         string `json:"url"`
		DetailURL   string `json:"detail_url"`
		Description string `json:"description"`
		LogoURL     string `json:"logo_url"`
	} `json:"vacancies"`
	TotalResults int `json:"total_results"`
}

// EmbeddedJSONList scrapes postings from a JSON payload inside a known
// script element, with an explicit total-result count.
type EmbeddedJSONList struct {
	// Selector locates the script holding the payload.
	Selector string
	// PerPage converts the total-result count into a page count.
	PerPage int
}

// NewEmbeddedJSONList creates the embedded-JSON strategy with defaults.
func NewEmbeddedJSONList(selector string, perPage int) *EmbeddedJSONList {
	if selector == "" {
		selector = "script#vacancy-data"
	}
	if perPage <= 0 {
		perPage = 20
	}
	return &EmbeddedJSONList{Selector: selector, PerPage: perPage}
}

func (p *EmbeddedJSONList) ParseList(body []byte, page int) ListResult {
	result := ListResult{TotalPages: 1}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return result
	}

	raw := strings.TrimSpace(doc.Find(p.Selector).First().Text())
	if raw == "" {
		// Missing script tag: zero candidates, single page.
		return result
	}

	var payload embeddedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return result
	}

	for _, v := range payload.Vacancies {
		if v.ID == "" && v.URL == "" {
			continue
		}
		detail := v.DetailURL
		if detail == "" {
			detail = v.URL
		}
		result.Candidates = append(result.Candidates, Candidate{
			ExternalID:  v.ID,
			Title:       v.Title,
			CompanyName: v.CompanyName,
			City:        v.City,
			URL:         v.URL,
			DetailURL:   detail,
			Description: v.Description,
			LogoURL:     v.LogoURL,
		})
	}

	if payload.TotalResults > 0 {
		result.TotalPages = (payload.TotalResults + p.PerPage - 1) / p.PerPage
	}
	if result.TotalPages < 1 {
		result.TotalPages = 1
	}

	return result
}

// ==================== Document link strategy ====================

var (
	paginationDutch   = regexp.MustCompile(`(?i)pagina\s+(\d+)\s+van\s+(\d+)`)
	paginationEnglish = regexp.MustCompile(`(?i)page\s+(\d+)\s+of\s+(\d+)`)
)

// DocumentLinkList enumerates postings published as one document per
// vacancy (anchor tags pointing at PDFs), reading the total page count from
// a localized "pagina X van Y" string.
type DocumentLinkList struct {
	// BaseURL resolves relative document links.
	BaseURL string
}

// NewDocumentLinkList creates the anchor-enumeration strategy.
func NewDocumentLinkList(baseURL string) *DocumentLinkList {
	return &DocumentLinkList{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (p *DocumentLinkList) ParseList(body []byte, page int) ListResult {
	result := ListResult{TotalPages: 1}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return result
	}

	seen := make(map[string]bool)
	doc.Find(`a[href$=".pdf"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		link := p.absolute(href)
		if seen[link] {
			return
		}
		seen[link] = true

		result.Candidates = append(result.Candidates, Candidate{
			ExternalID: documentID(link),
			Title:      strings.TrimSpace(sel.Text()),
			URL:        link,
			DetailURL:  link,
		})
	})

	if total, ok := totalPagesFromText(doc.Text()); ok {
		result.TotalPages = total
	}

	return result
}

func (p *DocumentLinkList) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return p.BaseURL + "/" + strings.TrimLeft(href, "/")
}

// documentID derives a stable external identifier from the document filename.
func documentID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	base := path.Base(u.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// totalPagesFromText finds the localized pagination pattern. The absence of
// a match means a single-page listing, never an error.
func totalPagesFromText(text string) (int, bool) {
	for _, re := range []*regexp.Regexp{paginationDutch, paginationEnglish} {
		if m := re.FindStringSubmatch(text); len(m) == 3 {
			if total := atoiSafe(m[2]); total > 0 {
				return total, true
			}
		}
	}
	return 0, false
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

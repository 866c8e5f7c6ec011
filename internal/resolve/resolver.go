package resolve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/werklead/go-ingest/internal/domain"
)

// Directory is the storage surface entity resolution needs. The Postgres
// store satisfies it; tests use an in-memory fake.
type Directory interface {
	FindCompanyByName(ctx context.Context, normalizedName string) (*domain.Company, error)
	InsertCompany(ctx context.Context, c *domain.Company) (int64, bool, error)
	UpdateCompanyFields(ctx context.Context, id int64, patch map[string]string) error
	FindContactByEmail(ctx context.Context, email string) (*domain.Contact, error)
	InsertContact(ctx context.Context, c *domain.Contact) (int64, error)
}

// CompanyObservation is what one posting revealed about a company.
type CompanyObservation struct {
	Name       string
	City       string
	Province   string
	Street     string
	PostalCode string
	Website    string
	Phone      string
	Email      string
	LogoURL    string
}

// ContactObservation is what one posting revealed about a contact person.
type ContactObservation struct {
	Name  string
	Email string
	Phone string
	Title string
}

// CompanyResult reports how a company observation was resolved.
type CompanyResult struct {
	ID      int64
	Created bool
	Updated bool
}

// ContactResult reports a resolved contact.
type ContactResult struct {
	ID      int64
	Created bool
}

// Resolver finds-or-creates Company and Contact records, merging newly
// observed fields into existing rows without overwriting non-null data.
type Resolver struct {
	dir    Directory
	logger *zap.Logger
}

// NewResolver creates a resolver over the given directory.
func NewResolver(dir Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, logger: logger}
}

// NormalizeName folds case and whitespace into the company matching key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ResolveCompany finds the company by normalized name and patches only its
// currently-empty fields, or inserts a new row with the pending enrichment
// sentinel. A previously-set field is never overwritten by a later,
// lower-confidence observation.
func (r *Resolver) ResolveCompany(ctx context.Context, obs CompanyObservation) (CompanyResult, error) {
	normalized := NormalizeName(obs.Name)
	if normalized == "" {
		return CompanyResult{}, fmt.Errorf("resolve company: empty name")
	}

	existing, err := r.dir.FindCompanyByName(ctx, normalized)
	if err != nil {
		return CompanyResult{}, err
	}

	if existing != nil {
		patch := companyPatch(existing, obs)
		if len(patch) == 0 {
			return CompanyResult{ID: existing.ID}, nil
		}
		if err := r.dir.UpdateCompanyFields(ctx, existing.ID, patch); err != nil {
			return CompanyResult{}, err
		}
		r.logger.Debug("company patched",
			zap.Int64("company_id", existing.ID),
			zap.Int("fields", len(patch)))
		return CompanyResult{ID: existing.ID, Updated: true}, nil
	}

	id, created, err := r.dir.InsertCompany(ctx, &domain.Company{
		Name:             strings.TrimSpace(obs.Name),
		NormalizedName:   normalized,
		City:             obs.City,
		Province:         obs.Province,
		Street:           obs.Street,
		PostalCode:       obs.PostalCode,
		Website:          obs.Website,
		Phone:            obs.Phone,
		Email:            obs.Email,
		LogoURL:          obs.LogoURL,
		EnrichmentStatus: domain.EnrichmentPending,
	})
	if err != nil {
		return CompanyResult{}, err
	}
	return CompanyResult{ID: id, Created: created}, nil
}

// companyPatch computes the set of currently-empty fields on the existing
// record that have a non-empty counterpart in the observation.
func companyPatch(existing *domain.Company, obs CompanyObservation) map[string]string {
	patch := make(map[string]string)
	fill := func(column, current, observed string) {
		if current == "" && observed != "" {
			patch[column] = observed
		}
	}
	fill("city", existing.City, obs.City)
	fill("province", existing.Province, obs.Province)
	fill("street", existing.Street, obs.Street)
	fill("postal_code", existing.PostalCode, obs.PostalCode)
	fill("website", existing.Website, obs.Website)
	fill("phone", existing.Phone, obs.Phone)
	fill("email", existing.Email, obs.Email)
	fill("logo_url", existing.LogoURL, obs.LogoURL)
	return patch
}

// ResolveContact deduplicates by exact email first; an email match is
// "found, no update". With no match and at least a name or email observed,
// a new contact is created under the company. Returns nil when neither a
// name nor an email is present.
func (r *Resolver) ResolveContact(ctx context.Context, companyID int64, obs ContactObservation) (*ContactResult, error) {
	name := strings.TrimSpace(obs.Name)
	email := strings.TrimSpace(obs.Email)

	if email != "" {
		existing, err := r.dir.FindContactByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &ContactResult{ID: existing.ID}, nil
		}
	}

	if name == "" && email == "" {
		return nil, nil
	}

	first, last := SplitName(name)
	id, err := r.dir.InsertContact(ctx, &domain.Contact{
		CompanyID: companyID,
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     strings.TrimSpace(obs.Phone),
		Title:     strings.TrimSpace(obs.Title),
	})
	if err != nil {
		return nil, err
	}
	return &ContactResult{ID: id, Created: true}, nil
}

// SplitName splits a full name by the trivial rule: first token is the
// first name, the remainder is the last name.
func SplitName(full string) (first, last string) {
	tokens := strings.Fields(full)
	if len(tokens) == 0 {
		return "", ""
	}
	return tokens[0], strings.Join(tokens[1:], " ")
}

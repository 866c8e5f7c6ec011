package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/werklead/go-ingest/internal/domain"
)

// ErrSourceNotFound is returned when a source slug cannot be resolved.
// This is the one error category that is run-fatal for the orchestrator.
var ErrSourceNotFound = errors.New("source not found")

// Store persists vacancies, companies and contacts to PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore opens a PostgreSQL connection and ensures the schema exists
func NewStore(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

func (s *Store) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id BIGSERIAL PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			list_url TEXT NOT NULL,
			strategy TEXT NOT NULL,
			per_page INTEGER NOT NULL DEFAULT 20
		)`,
		`CREATE TABLE IF NOT EXISTS companies (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			normalized_name TEXT NOT NULL UNIQUE,
			city TEXT,
			province TEXT,
			street TEXT,
			postal_code TEXT,
			website TEXT,
			phone TEXT,
			email TEXT,
			logo_url TEXT,
			enrichment_status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL REFERENCES companies(id),
			first_name TEXT,
			last_name TEXT,
			email TEXT,
			phone TEXT,
			title TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS contacts_email_idx ON contacts (email)`,
		`CREATE TABLE IF NOT EXISTS vacancies (
			id BIGSERIAL PRIMARY KEY,
			external_id TEXT NOT NULL,
			source_id BIGINT NOT NULL REFERENCES sources(id),
			company_id BIGINT REFERENCES companies(id),
			title TEXT NOT NULL,
			description TEXT,
			description_text TEXT,
			url TEXT,
			city TEXT,
			province TEXT,
			street TEXT,
			postal_code TEXT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			employment_type TEXT,
			education_level TEXT,
			salary TEXT,
			salary_min DOUBLE PRECISION,
			salary_max DOUBLE PRECISION,
			hours_min INTEGER,
			hours_max INTEGER,
			posted_at TIMESTAMP WITH TIME ZONE,
			expires_at TIMESTAMP WITH TIME ZONE,
			content_hash TEXT,
			status TEXT NOT NULL DEFAULT 'new',
			ingested_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (external_id, source_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ResolveSource looks up a configured source by slug. A missing source is
// ErrSourceNotFound, which aborts the run.
func (s *Store) ResolveSource(ctx context.Context, slug string) (*domain.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slug, name, list_url, strategy, per_page FROM sources WHERE slug = $1`, slug)

	var src domain.Source
	err := row.Scan(&src.ID, &src.Slug, &src.Name, &src.ListURL, &src.Strategy, &src.PerPage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	return &src, nil
}

// ListSources returns every configured source, for runs not scoped to a
// single slug.
func (s *Store) ListSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, name, list_url, strategy, per_page FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.Slug, &src.Name, &src.ListURL, &src.Strategy, &src.PerPage); err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// VacancyExists checks the primary dedup key (external_id, source_id).
func (s *Store) VacancyExists(ctx context.Context, externalID string, sourceID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM vacancies WHERE external_id = $1 AND source_id = $2)`,
		externalID, sourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("vacancy exists: %w", err)
	}
	return exists, nil
}

// InsertVacancy appends one vacancy. The unique (external_id, source_id)
// index absorbs races with other runs: a conflict reports inserted=false
// rather than an error.
func (s *Store) InsertVacancy(ctx context.Context, v *domain.Vacancy) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO vacancies (
			external_id, source_id, company_id, title, description, description_text, url,
			city, province, street, postal_code, latitude, longitude,
			employment_type, education_level, salary, salary_min, salary_max,
			hours_min, hours_max, posted_at, expires_at, content_hash, status, ingested_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, NOW()
		)
		ON CONFLICT (external_id, source_id) DO NOTHING
		RETURNING id`,
		v.ExternalID, v.SourceID, nullInt64(v.CompanyID), v.Title, v.Description, v.DescriptionText, v.URL,
		v.City, v.Province, v.Street, v.PostalCode, nullFloat(v.Latitude), nullFloat(v.Longitude),
		v.EmploymentType, v.EducationLevel, v.Salary, nullFloat(v.SalaryMin), nullFloat(v.SalaryMax),
		nullInt(v.HoursMin), nullInt(v.HoursMax), nullTime(v.PostedAt), nullTime(v.ExpiresAt),
		v.ContentHash, string(domain.StatusNew),
	)

	var id int64
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert vacancy: %w", err)
	}
	v.ID = id
	return true, nil
}

// FindCompanyByName matches case-insensitively on the normalized name.
// Returns nil when no company exists yet.
func (s *Store) FindCompanyByName(ctx context.Context, normalizedName string) (*domain.Company, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, normalized_name,
			COALESCE(city, ''), COALESCE(province, ''), COALESCE(street, ''), COALESCE(postal_code, ''),
			COALESCE(website, ''), COALESCE(phone, ''), COALESCE(email, ''), COALESCE(logo_url, ''),
			enrichment_status, created_at
		FROM companies WHERE normalized_name = $1`, normalizedName)

	var c domain.Company
	err := row.Scan(&c.ID, &c.Name, &c.NormalizedName,
		&c.City, &c.Province, &c.Street, &c.PostalCode,
		&c.Website, &c.Phone, &c.Email, &c.LogoURL,
		&c.EnrichmentStatus, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find company: %w", err)
	}
	return &c, nil
}

// InsertCompany creates a company with the pending enrichment sentinel.
// An insert conflict on normalized_name means another writer got there
// first; the existing row is re-fetched and created=false is reported.
func (s *Store) InsertCompany(ctx context.Context, c *domain.Company) (int64, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO companies (
			name, normalized_name, city, province, street, postal_code,
			website, phone, email, logo_url, enrichment_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (normalized_name) DO NOTHING
		RETURNING id`,
		c.Name, c.NormalizedName,
		nullStr(c.City), nullStr(c.Province), nullStr(c.Street), nullStr(c.PostalCode),
		nullStr(c.Website), nullStr(c.Phone), nullStr(c.Email), nullStr(c.LogoURL),
		string(domain.EnrichmentPending),
	)

	var id int64
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, ferr := s.FindCompanyByName(ctx, c.NormalizedName)
		if ferr != nil {
			return 0, false, ferr
		}
		if existing == nil {
			return 0, false, fmt.Errorf("insert company %q: conflict but no row found", c.NormalizedName)
		}
		return existing.ID, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert company: %w", err)
	}
	return id, true, nil
}

// companyPatchColumns whitelists the fields the pipeline may fill in.
var companyPatchColumns = map[string]bool{
	"city":        true,
	"province":    true,
	"street":      true,
	"postal_code": true,
	"website":     true,
	"phone":       true,
	"email":       true,
	"logo_url":    true,
}

// UpdateCompanyFields applies a partial patch. Callers pass only the
// currently-empty fields they want filled; populated columns are never
// touched here.
func (s *Store) UpdateCompanyFields(ctx context.Context, id int64, patch map[string]string) error {
	if len(patch) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(patch))
	args := make([]any, 0, len(patch)+1)
	i := 1
	for column, value := range patch {
		if !companyPatchColumns[column] {
			return fmt.Errorf("update company: column %q is not patchable", column)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE companies SET %s WHERE id = $%d", strings.Join(setClauses, ", "), i)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update company fields: %w", err)
	}
	return nil
}

// FindContactByEmail looks up a contact by exact email, the most reliable
// dedup key for people. Returns nil when absent.
func (s *Store) FindContactByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, COALESCE(first_name, ''), COALESCE(last_name, ''),
			COALESCE(email, ''), COALESCE(phone, ''), COALESCE(title, ''), created_at
		FROM contacts WHERE email = $1`, email)

	var c domain.Contact
	err := row.Scan(&c.ID, &c.CompanyID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Title, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find contact: %w", err)
	}
	return &c, nil
}

// InsertContact creates a contact linked to a company.
func (s *Store) InsertContact(ctx context.Context, c *domain.Contact) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO contacts (company_id, first_name, last_name, email, phone, title)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		c.CompanyID, nullStr(c.FirstName), nullStr(c.LastName),
		nullStr(c.Email), nullStr(c.Phone), nullStr(c.Title),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert contact: %w", err)
	}
	c.ID = id
	return id, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullInt64(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

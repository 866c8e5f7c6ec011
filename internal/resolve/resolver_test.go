package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/werklead/go-ingest/internal/domain"
)

// fakeDirectory is an in-memory Directory for resolver tests.
type fakeDirectory struct {
	companies map[string]*domain.Company
	contacts  map[string]*domain.Contact
	patches   []map[string]string
	nextID    int64
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		companies: make(map[string]*domain.Company),
		contacts:  make(map[string]*domain.Contact),
	}
}

func (f *fakeDirectory) FindCompanyByName(_ context.Context, normalized string) (*domain.Company, error) {
	return f.companies[normalized], nil
}

func (f *fakeDirectory) InsertCompany(_ context.Context, c *domain.Company) (int64, bool, error) {
	if existing, ok := f.companies[c.NormalizedName]; ok {
		return existing.ID, false, nil
	}
	f.nextID++
	c.ID = f.nextID
	f.companies[c.NormalizedName] = c
	return c.ID, true, nil
}

func (f *fakeDirectory) UpdateCompanyFields(_ context.Context, id int64, patch map[string]string) error {
	f.patches = append(f.patches, patch)
	for _, c := range f.companies {
		if c.ID != id {
			continue
		}
		for column, value := range patch {
			switch column {
			case "city":
				c.City = value
			case "province":
				c.Province = value
			case "street":
				c.Street = value
			case "postal_code":
				c.PostalCode = value
			case "website":
				c.Website = value
			case "phone":
				c.Phone = value
			case "email":
				c.Email = value
			case "logo_url":
				c.LogoURL = value
			}
		}
	}
	return nil
}

func (f *fakeDirectory) FindContactByEmail(_ context.Context, email string) (*domain.Contact, error) {
	return f.contacts[email], nil
}

func (f *fakeDirectory) InsertContact(_ context.Context, c *domain.Contact) (int64, error) {
	f.nextID++
	c.ID = f.nextID
	if c.Email != "" {
		f.contacts[c.Email] = c
	}
	return c.ID, nil
}

func TestResolveCompanyFoldsNameVariants(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, nil)
	ctx := context.Background()

	first, err := r.ResolveCompany(ctx, CompanyObservation{Name: "Acme Logistics", City: "Utrecht"})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := r.ResolveCompany(ctx, CompanyObservation{Name: "  ACME   logistics "})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, dir.companies, 1, "one company row for all name variants")
}

func TestResolveCompanyNeverOverwrites(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, nil)
	ctx := context.Background()

	_, err := r.ResolveCompany(ctx, CompanyObservation{Name: "Acme Logistics", Website: "https://acme.example"})
	require.NoError(t, err)

	result, err := r.ResolveCompany(ctx, CompanyObservation{
		Name:    "Acme Logistics",
		Website: "https://other.example",
		Phone:   "030-1234567",
	})
	require.NoError(t, err)
	require.True(t, result.Updated, "phone was empty, so a patch happened")

	c := dir.companies["acme logistics"]
	require.Equal(t, "https://acme.example", c.Website, "populated website stays untouched")
	require.Equal(t, "030-1234567", c.Phone, "empty phone was filled")
}

func TestResolveCompanyNoPatchWhenNothingNew(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, nil)
	ctx := context.Background()

	_, err := r.ResolveCompany(ctx, CompanyObservation{Name: "Acme Logistics", City: "Utrecht"})
	require.NoError(t, err)

	result, err := r.ResolveCompany(ctx, CompanyObservation{Name: "Acme Logistics", City: "Zwolle"})
	require.NoError(t, err)
	require.False(t, result.Updated)
	require.Empty(t, dir.patches)
	require.Equal(t, "Utrecht", dir.companies["acme logistics"].City)
}

func TestResolveCompanyEmptyName(t *testing.T) {
	r := NewResolver(newFakeDirectory(), nil)
	_, err := r.ResolveCompany(context.Background(), CompanyObservation{Name: "   "})
	require.Error(t, err)
}

func TestResolveContactGating(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, nil)
	ctx := context.Background()

	result, err := r.ResolveContact(ctx, 1, ContactObservation{Phone: "06-12345678", Title: "HR"})
	require.NoError(t, err)
	require.Nil(t, result, "no name and no email means no contact row")

	result, err = r.ResolveContact(ctx, 1, ContactObservation{Email: "hr@acme.example"})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.True(t, result.Created)

	c := dir.contacts["hr@acme.example"]
	require.Empty(t, c.FirstName)
	require.Empty(t, c.LastName)
}

func TestResolveContactDedupByEmail(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, nil)
	ctx := context.Background()

	first, err := r.ResolveContact(ctx, 1, ContactObservation{Name: "Jan de Vries", Email: "jan@acme.example"})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := r.ResolveContact(ctx, 1, ContactObservation{
		Name:  "J. de Vries",
		Email: "jan@acme.example",
		Title: "Directeur",
	})
	require.NoError(t, err)
	require.False(t, second.Created, "email match is found, no update")
	require.Equal(t, first.ID, second.ID)
	require.Empty(t, dir.contacts["jan@acme.example"].Title, "existing contacts are not patched")
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Jan de Vries")
	require.Equal(t, "Jan", first)
	require.Equal(t, "de Vries", last)

	first, last = SplitName("Cher")
	require.Equal(t, "Cher", first)
	require.Empty(t, last)

	first, last = SplitName("")
	require.Empty(t, first)
	require.Empty(t, last)
}

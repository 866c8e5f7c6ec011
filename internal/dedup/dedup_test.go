package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	known map[string]bool
	calls int
}

func (f *fakeIndex) VacancyExists(_ context.Context, externalID string, sourceID int64) (bool, error) {
	f.calls++
	return f.known[externalID], nil
}

func TestExistsFallsThroughToIndexWithoutCache(t *testing.T) {
	idx := &fakeIndex{known: map[string]bool{"1234": true}}
	d := NewDeduplicator(nil, idx, "", 0)

	known, err := d.Exists(context.Background(), "werk-example", 1, "1234")
	require.NoError(t, err)
	require.True(t, known)

	known, err = d.Exists(context.Background(), "werk-example", 1, "9999")
	require.NoError(t, err)
	require.False(t, known)
	require.Equal(t, 2, idx.calls)
}

func TestContentHashStableAndFolded(t *testing.T) {
	a := ContentHash("Warehouse Associate", "Acme Logistics", "Utrecht", "https://jobs.example/v/1234")
	b := ContentHash("warehouse  associate", "ACME Logistics", " utrecht ", "https://jobs.example/v/1234")
	require.Equal(t, a, b, "case and whitespace variants fold to one hash")
	require.Len(t, a, 32)

	c := ContentHash("Warehouse Associate", "Acme Logistics", "Zwolle", "https://jobs.example/v/1234")
	require.NotEqual(t, a, c)
}

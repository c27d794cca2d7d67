package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/kosherdirectory/discovery/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleCatalog = `[
  {
    "id": "r1",
    "name": "Grill House",
    "city": "Miami",
    "state": "FL",
    "latitude": 25.79,
    "longitude": -80.13,
    "hours_raw": "Mon-Fri 9AM-5PM",
    "certifying_agency_text": "ORB"
  },
  {
    "id": "r2",
    "name": "Pita Spot",
    "state": "FL",
    "hours_raw": [{"day": "Sunday", "open": "1100", "close": "2100"}]
  },
  {
    "id": "r3",
    "name": "Bagel Corner",
    "state": "NY",
    "hours_raw": null
  }
]`

func TestJSONFileAdapter_List(t *testing.T) {
	repo, err := NewJSONFileAdapter(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)

	restaurants, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, restaurants, 3)

	assert.Equal(t, "r1", restaurants[0].ID)
	assert.Equal(t, "Mon-Fri 9AM-5PM", restaurants[0].Hours.Text)
	require.NotNil(t, restaurants[0].Latitude)
	assert.InDelta(t, 25.79, *restaurants[0].Latitude, 1e-9)

	require.Len(t, restaurants[1].Hours.Structured, 1)
	assert.Equal(t, "Sunday", restaurants[1].Hours.Structured[0].Day)
	assert.Nil(t, restaurants[1].Latitude)

	assert.True(t, restaurants[2].Hours.IsEmpty())
}

func TestJSONFileAdapter_GetByID(t *testing.T) {
	repo, err := NewJSONFileAdapter(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)

	r, err := repo.GetByID(context.Background(), "r2")
	require.NoError(t, err)
	assert.Equal(t, "Pita Spot", r.Name)

	_, err = repo.GetByID(context.Background(), "nope")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestJSONFileAdapter_InvalidCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"not json", `{`, "failed to parse catalog"},
		{"missing id", `[{"name": "x"}]`, "missing id"},
		{"duplicate id", `[{"id": "r1"}, {"id": "r1"}]`, "duplicate id"},
		{"null record", `[null]`, "null record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJSONFileAdapter(writeCatalog(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJSONFileAdapter_SkipsUndecodableRecords(t *testing.T) {
	content := `[
  {"id": "r1", "hours_raw": 42},
  {"id": "r2", "name": "Pita Spot", "hours_raw": "Daily: 24 hours"},
  {"id": "r3", "hours_raw": {"monday": "11-9"}},
  "not a record"
]`
	repo, err := NewJSONFileAdapter(writeCatalog(t, content))
	require.NoError(t, err)

	restaurants, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, restaurants, 1)
	assert.Equal(t, "r2", restaurants[0].ID)
}

func TestJSONFileAdapter_MissingFile(t *testing.T) {
	_, err := NewJSONFileAdapter(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalog file")
}

package devices

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acu-chatbot/internal/common/logger"
)

func sampleCatalog() map[string]Device {
	return map[string]Device{
		"projeksiyon": {
			OriginalName: "Projeksiyon Cihazı",
			Description:  "Birim: Eğitim Fakültesi, Lab: B12, Marka: Epson, Sorumlu: Teknik Birim",
			Stock:        "Adet: 4",
		},
		"osiloskop": {
			OriginalName: "Osiloskop",
			Description:  "Birim: Mühendislik Fakültesi, Lab: E3, Marka: Rigol, Sorumlu: Lab Sorumlusu",
			Stock:        "Adet: 12",
		},
		"mikroskop": {
			OriginalName: "Mikroskop",
			Description:  "Birim: Fen Fakültesi, Lab: F1, Marka: Olympus, Sorumlu: Lab Sorumlusu",
			Stock:        "Adet: 8",
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(filepath.Join(t.TempDir(), "devices.json"), logger.NewTestLogger(t))
	r.replace(sampleCatalog())
	return r
}

func TestRegistry_Search(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name     string
		message  string
		wantName string
	}{
		{"exact key in message", "projeksiyon var mı", "Projeksiyon Cihazı"},
		{"case normalized", "Osiloskop nerede bulunur", "Osiloskop"},
		{"punctuation around key", "mikroskop?", "Mikroskop"},
		{"no key present", "laboratuvarda neler var", ""},
		{"misspelled key misses exact search", "projeksıyon lazım", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := r.Search(tt.message)
			if tt.wantName == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantName, d.OriginalName)
		})
	}
}

func TestRegistry_Suggest(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name    string
		message string
		wantKey string
	}{
		{"single substitution", "projeksıyon lazım", "projeksiyon"},
		{"dropped letter", "osloskop nerede", "osiloskop"},
		{"short words skipped", "pro jek nerede", ""},
		{"nothing close", "kampüste kargo şubesi var mı", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := r.Suggest(tt.message)
			if tt.wantKey == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestRegistry_LoadAndPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.json")

	writer := NewRegistry(path, logger.NewTestLogger(t))
	require.NoError(t, writer.save(sampleCatalog()))

	reader := NewRegistry(path, logger.NewTestLogger(t))
	require.NoError(t, reader.Load())
	assert.Equal(t, 3, reader.Len())

	d, ok := reader.Get("osiloskop")
	require.True(t, ok)
	assert.Equal(t, "Osiloskop", d.OriginalName)
}

func TestRegistry_LoadMissingFileStartsEmpty(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "nope.json"), logger.NewTestLogger(t))
	require.NoError(t, r.Load())
	assert.Zero(t, r.Len())
}

func TestRegistry_LoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	r := NewRegistry(path, logger.NewTestLogger(t))
	assert.Error(t, r.Load())
}

type stubScraper struct {
	catalog map[string]Device
	err     error
}

func (s stubScraper) ScrapeDevices(context.Context) (map[string]Device, error) {
	return s.catalog, s.err
}

func TestRegistry_RefreshKeepsCatalogOnFailure(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Refresh(context.Background(), stubScraper{err: errors.New("selenium down")})
	assert.Error(t, err)
	assert.Equal(t, 3, r.Len())

	err = r.Refresh(context.Background(), stubScraper{catalog: map[string]Device{}})
	assert.Error(t, err)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_RefreshSwapsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	r := NewRegistry(path, logger.NewTestLogger(t))

	fresh := map[string]Device{
		"yazıcı": {OriginalName: "3D Yazıcı", Description: "Lab: T2", Stock: "Adet: 2"},
	}
	require.NoError(t, r.Refresh(context.Background(), stubScraper{catalog: fresh}))
	assert.Equal(t, 1, r.Len())

	// Persisted: a fresh registry loads the new catalog.
	reload := NewRegistry(path, logger.NewTestLogger(t))
	require.NoError(t, reload.Load())
	d, ok := reload.Get("yazıcı")
	require.True(t, ok)
	assert.Equal(t, "3D Yazıcı", d.OriginalName)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1},
		{"", "", 1},
		{"abc", "xyz", 0},
		{"abcd", "bcde", 0.75},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, similarity(tt.a, tt.b), 1e-9, "similarity(%q, %q)", tt.a, tt.b)
	}
}

func TestClosestMatch(t *testing.T) {
	candidates := []string{"projeksiyon", "osiloskop", "mikroskop"}

	key, ok := closestMatch("projeksıyon", candidates, suggestCutoff)
	require.True(t, ok)
	assert.Equal(t, "projeksiyon", key)

	_, ok = closestMatch("zzzz", candidates, suggestCutoff)
	assert.False(t, ok)
}

package style

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-slovo/internal/domain/entity"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	require.Len(t, c, 13)

	assert.Equal(t, "impressionism", c[0].Name)
	assert.Equal(t, "imp", c[0].Shortcut)
	assert.Equal(t, "deconstructivist_art", c[12].Name)

	total := 0
	for _, s := range c {
		total += s.Weight
		assert.Len(t, s.Characteristics, 5, s.Name)
		assert.NotEmpty(t, s.Description, s.Name)
	}
	assert.Equal(t, 83, total)
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "invalid yaml", input: "styles: ["},
		{name: "empty", input: "styles: []"},
		{name: "missing name", input: "styles:\n  - weight: 1\n"},
		{name: "duplicate", input: "styles:\n  - {name: a, weight: 1}\n  - {name: a, weight: 2}\n"},
		{name: "negative weight", input: "styles:\n  - {name: a, weight: -1}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := ParseCatalog([]byte("styles: []"))
	assert.ErrorIs(t, err, entity.ErrEmptyCatalog)
}

func TestLoadCatalog_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styles.yaml")
	data := "styles:\n  - {name: cubism, weight: 1, shortcut: cub}\n  - {name: dada, weight: 0, shortcut: dad}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, c, 2)
	assert.Equal(t, "dada", c[1].Name)
	assert.Equal(t, 0, c[1].Weight)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err = LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c, 13)
}

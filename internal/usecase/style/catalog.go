package style

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ai-slovo/internal/domain/entity"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Styles []entity.StyleEntry `yaml:"styles"`
}

// DefaultCatalog returns the built-in style catalog.
func DefaultCatalog() ([]entity.StyleEntry, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog from path, or returns the built-in catalog when
// path is empty.
func LoadCatalog(path string) ([]entity.StyleEntry, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, fmt.Errorf("read style catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog, preserving entry order.
func ParseCatalog(data []byte) ([]entity.StyleEntry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse style catalog: %w", err)
	}
	if len(f.Styles) == 0 {
		return nil, entity.ErrEmptyCatalog
	}

	seen := make(map[string]struct{}, len(f.Styles))
	for i, s := range f.Styles {
		if s.Name == "" {
			return nil, &entity.ValidationError{Field: fmt.Sprintf("styles[%d].name", i), Message: "is required"}
		}
		if _, dup := seen[s.Name]; dup {
			return nil, &entity.ValidationError{Field: fmt.Sprintf("styles[%d].name", i), Message: "duplicate style " + s.Name}
		}
		seen[s.Name] = struct{}{}
		if s.Weight < 0 {
			return nil, &entity.ValidationError{Field: fmt.Sprintf("styles[%d].weight", i), Message: "must not be negative"}
		}
	}
	return f.Styles, nil
}

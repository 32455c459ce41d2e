package duckling

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/joss/ducky/internal/domain"
)

// Document is the YAML import/export format.
type Document struct {
	Version   int               `yaml:"version"`
	Ducklings []domain.Duckling `yaml:"ducklings"`
}

// DocumentVersion is written by Export.
const DocumentVersion = 1

// Export writes ducklings as a YAML document.
func Export(w io.Writer, list []domain.Duckling) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{Version: DocumentVersion, Ducklings: list}); err != nil {
		return fmt.Errorf("encode ducklings: %w", err)
	}
	return enc.Close()
}

// Import reads a YAML document written by Export. Entries without a target
// get the pattern as target, like legacy stored records.
func Import(r io.Reader) ([]domain.Duckling, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return []domain.Duckling{}, nil
		}
		return nil, fmt.Errorf("decode ducklings: %w", err)
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("decode ducklings: unsupported version %d", doc.Version)
	}
	for i := range doc.Ducklings {
		if doc.Ducklings[i].TargetValue == "" {
			doc.Ducklings[i].TargetValue = doc.Ducklings[i].Pattern
		}
	}
	if doc.Ducklings == nil {
		doc.Ducklings = []domain.Duckling{}
	}
	return doc.Ducklings, nil
}

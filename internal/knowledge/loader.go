package knowledge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// LoadDir reads every YAML file under dir (recursively) and builds
// knowledge documents from them. Files without a recognized
// knowledge_type are skipped with an error in the returned slice.
func LoadDir(dir string) ([]Document, []error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.{yaml,yml}")
	if err != nil {
		return nil, []error{fmt.Errorf("globbing %s: %w", dir, err)}
	}

	var docs []Document
	var errs []error
	for _, rel := range matches {
		path := filepath.Join(dir, rel)
		doc, err := LoadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, errs
}

// LoadFile parses a single knowledge YAML file into a Document. The
// raw file content becomes the embeddable document body.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	p, err := ParsePayload(string(data))
	if err != nil {
		return nil, err
	}

	t := Type(p.KnowledgeType)
	switch t {
	case TypeIntake, TypeTaxonomy, TypeFields, TypeRiskRules, TypeFormats:
	default:
		return nil, fmt.Errorf("unknown knowledge_type %q", p.KnowledgeType)
	}

	id := p.DocID
	if id == "" {
		return nil, fmt.Errorf("doc_id is required")
	}

	version := p.Version
	if version == "" {
		version = "v1.0"
	}

	return &Document{
		ID:      id,
		Content: string(data),
		Metadata: Metadata{
			Type:        t,
			CaseType:    p.MainCaseType,
			SubCaseType: p.SubCaseType,
			Version:     version,
			SourcePath:  path,
		},
	}, nil
}

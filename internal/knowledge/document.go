package knowledge

import (
	"fmt"

	yamlv3 "gopkg.in/yaml.v3"
)

// Type categorizes the kind of knowledge document stored in the vector DB.
type Type string

const (
	// TypeIntake (K0) holds canned intake messages: greeting, closing,
	// apology texts.
	TypeIntake Type = "K0"
	// TypeTaxonomy (K1) describes the case-type taxonomy with typical
	// keywords and expressions per type.
	TypeTaxonomy Type = "K1"
	// TypeFields (K2) lists the required fields and question templates
	// per case type.
	TypeFields Type = "K2"
	// TypeRiskRules (K3) holds legal risk rules consulted during
	// summary generation.
	TypeRiskRules Type = "K3"
	// TypeFormats (K4) defines structured output formats for case
	// summaries.
	TypeFormats Type = "K4"
)

// Document represents one knowledge-base entry to be stored and searched.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Metadata holds structured information about a knowledge document.
type Metadata struct {
	Type        Type
	CaseType    string
	SubCaseType string
	Version     string
	SourcePath  string
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// Filter narrows search results by metadata fields.
type Filter struct {
	Type        *Type
	CaseType    *string
	SubCaseType *string
}

// Payload is the parsed body of a knowledge document. Only the fields
// matching the document's type are populated.
type Payload struct {
	DocID         string `yaml:"doc_id"`
	KnowledgeType string `yaml:"knowledge_type"`
	MainCaseType  string `yaml:"main_case_type"`
	SubCaseType   string `yaml:"sub_case_type"`
	Version       string `yaml:"version"`

	// K0
	Messages map[string]string `yaml:"messages"`

	// K1
	Keywords    []string   `yaml:"typical_keywords"`
	Expressions []string   `yaml:"typical_expressions"`
	Scenarios   []Scenario `yaml:"scenarios"`

	// K2
	RequiredFields []string   `yaml:"required_fields"`
	Questions      []Question `yaml:"questions"`

	// K3
	Rules []RiskRule `yaml:"rules"`

	// K4
	Target   string    `yaml:"target"`
	Sections []Section `yaml:"sections"`
}

// Scenario is one concrete situation under a case type (K1).
type Scenario struct {
	Code        string   `yaml:"code"`
	Name        string   `yaml:"name"`
	Keywords    []string `yaml:"keywords"`
	Expressions []string `yaml:"expressions"`
}

// Question is a template question for one required field (K2).
type Question struct {
	Field    string `yaml:"field"`
	Question string `yaml:"question"`
	Priority int    `yaml:"priority"`
}

// RiskRule is one legal risk rule (K3).
type RiskRule struct {
	Condition string `yaml:"condition"`
	Note      string `yaml:"note"`
	Severity  string `yaml:"severity"`
}

// Section is one section of a summary output format (K4).
type Section struct {
	Title  string   `yaml:"title"`
	Fields []string `yaml:"fields"`
}

// ParsePayload decodes a document's YAML content into its typed payload.
func ParsePayload(content string) (*Payload, error) {
	var p Payload
	if err := yamlv3.Unmarshal([]byte(content), &p); err != nil {
		return nil, fmt.Errorf("parsing knowledge payload: %w", err)
	}
	return &p, nil
}

package categorize

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"moneta/internal/models"
	"moneta/internal/textnorm"
)

//go:embed default_rules.yaml
var defaultRules []byte

// DefaultConfidence is used for rules that do not set one.
const DefaultConfidence = 70

// Rule binds a keyword to a category and the transaction type it implies.
type Rule struct {
	Keyword    string                 `yaml:"keyword"`
	Category   string                 `yaml:"category"`
	Type       models.TransactionType `yaml:"type"`
	Confidence int                    `yaml:"confidence"`
}

// Signal is a directional phrase used by the type-correction pass.
type Signal struct {
	Phrase string                 `yaml:"phrase"`
	Type   models.TransactionType `yaml:"type"`
	Reason string                 `yaml:"reason"`
}

// Table is the data the engine matches against. Order is significant.
type Table struct {
	Fallback string   `yaml:"fallback"`
	Rules    []Rule   `yaml:"rules"`
	Signals  []Signal `yaml:"signals"`
}

// LoadTable decodes and validates a YAML keyword table.
func LoadTable(r io.Reader) (*Table, error) {
	var t Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode categorization table: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTableFile reads a table from disk.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open categorization table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// DefaultTable returns the embedded pt-BR table.
func DefaultTable() *Table {
	t, err := LoadTable(bytes.NewReader(defaultRules))
	if err != nil {
		panic(fmt.Sprintf("embedded categorization table: %v", err))
	}
	return t
}

func (t *Table) validate() error {
	if strings.TrimSpace(t.Fallback) == "" {
		t.Fallback = "Outros"
	}
	for i := range t.Rules {
		r := &t.Rules[i]
		if textnorm.Fold(r.Keyword) == "" {
			return fmt.Errorf("rule %d: keyword is empty", i)
		}
		if strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("rule %d (%s): category is empty", i, r.Keyword)
		}
		if !r.Type.Valid() {
			return fmt.Errorf("rule %d (%s): invalid type %q", i, r.Keyword, r.Type)
		}
		if r.Confidence == 0 {
			r.Confidence = DefaultConfidence
		}
		if r.Confidence < 0 || r.Confidence > 100 {
			return fmt.Errorf("rule %d (%s): confidence %d out of range", i, r.Keyword, r.Confidence)
		}
	}
	for i, s := range t.Signals {
		if textnorm.Fold(s.Phrase) == "" {
			return fmt.Errorf("signal %d: phrase is empty", i)
		}
		if !s.Type.Valid() {
			return fmt.Errorf("signal %d (%s): invalid type %q", i, s.Phrase, s.Type)
		}
	}
	return nil
}

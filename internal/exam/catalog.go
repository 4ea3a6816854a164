package exam

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed catalog.json
var defaultCatalogJSON []byte

//go:embed catalog.schema.json
var catalogSchemaJSON []byte

const catalogSchemaURL = "schema://examgen/catalog.json"

// Subject is one fixed choice offered by a variant.
type Subject struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Variant is one configuration of the question form: which subjects are
// offered, whether free text is allowed, and the question count range.
type Variant struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	SystemInstruction string    `json:"system_instruction"`
	Subjects          []Subject `json:"subjects"`
	AllowCustom       bool      `json:"allow_custom"`
	CustomLabel       string    `json:"custom_label,omitempty"`
	MinCount          int       `json:"min_count"`
	MaxCount          int       `json:"max_count"`
	DefaultCount      int       `json:"default_count"`
}

// Subject returns the subject with the given ID or label.
func (v Variant) Subject(choice string) (Subject, bool) {
	for _, s := range v.Subjects {
		if s.ID == choice || s.Label == choice {
			return s, true
		}
	}
	return Subject{}, false
}

// Clamp bounds n to the variant's count range.
func (v Variant) Clamp(n int) int {
	return min(max(n, v.MinCount), v.MaxCount)
}

// Catalog is an ordered set of variants.
type Catalog struct {
	Variants []Variant `json:"variants"`
}

// Variant looks up a variant by ID.
func (c *Catalog) Variant(id string) (Variant, bool) {
	for _, v := range c.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Default returns the first variant.
func (c *Catalog) Default() Variant {
	return c.Variants[0]
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = ParseCatalog(defaultCatalogJSON)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("exam: built-in catalog is invalid: %v", defaultErr))
	}
	return defaultCatalog
}

// LoadCatalog reads and validates a catalog file. An empty path yields the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog validates raw JSON against the catalog schema, decodes it
// and checks the cross-field rules the schema cannot express.
func ParseCatalog(data []byte) (*Catalog, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	schema, err := compiledCatalogSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validateVariants(c.Variants); err != nil {
		return nil, err
	}
	return &c, nil
}

var (
	schemaOnce     sync.Once
	catalogSchema  *jsonschema.Schema
	catalogSchemaE error
)

func compiledCatalogSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(catalogSchemaJSON))
		if err != nil {
			catalogSchemaE = fmt.Errorf("parse catalog schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(catalogSchemaURL, doc); err != nil {
			catalogSchemaE = fmt.Errorf("add resource: %w", err)
			return
		}
		catalogSchema, catalogSchemaE = c.Compile(catalogSchemaURL)
	})
	return catalogSchema, catalogSchemaE
}

// validateVariants performs the structural checks on a variant list.
// Returns a combined error describing all problems found, or nil if valid.
func validateVariants(variants []Variant) error {
	var errs []string

	ids := make(map[string]bool, len(variants))
	for _, v := range variants {
		if ids[v.ID] {
			errs = append(errs, fmt.Sprintf("duplicate variant ID: %q", v.ID))
		}
		ids[v.ID] = true

		if v.MinCount > v.MaxCount {
			errs = append(errs, fmt.Sprintf("variant %q: min_count %d exceeds max_count %d", v.ID, v.MinCount, v.MaxCount))
		}
		if v.DefaultCount < v.MinCount || v.DefaultCount > v.MaxCount {
			errs = append(errs, fmt.Sprintf("variant %q: default_count %d outside [%d, %d]", v.ID, v.DefaultCount, v.MinCount, v.MaxCount))
		}
		if len(v.Subjects) == 0 && !v.AllowCustom {
			errs = append(errs, fmt.Sprintf("variant %q offers no subjects and no custom input", v.ID))
		}
		if v.AllowCustom && strings.TrimSpace(v.CustomLabel) == "" {
			errs = append(errs, fmt.Sprintf("variant %q allows custom input but has no custom_label", v.ID))
		}

		subjects := make(map[string]bool, len(v.Subjects))
		for _, s := range v.Subjects {
			if subjects[s.ID] {
				errs = append(errs, fmt.Sprintf("variant %q: duplicate subject ID %q", v.ID, s.ID))
			}
			subjects[s.ID] = true
		}
		if v.AllowCustom && subjects[CustomChoice] {
			errs = append(errs, fmt.Sprintf("variant %q: subject ID %q is reserved", v.ID, CustomChoice))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

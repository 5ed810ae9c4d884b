package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules holds catalog rules that change with the business rather than with
// the deployment. They are loaded from SYNC_RULES_FILE and merged over
// DefaultRules, so a file only needs to name what it changes.
type Rules struct {
	// Categories maps a tab name (case-insensitive) to the catalog category
	// its products belong to. Unlisted tabs use their trimmed name.
	Categories map[string]string `yaml:"categories"`

	// DimensionCategories lists categories whose products must carry both
	// width and length to be shown on the web.
	DimensionCategories []string `yaml:"dimension_categories"`

	// ColumnTokens adds header synonyms per canonical field
	// (identifier, name, net_price, ...).
	ColumnTokens map[string][]string `yaml:"column_tokens"`
}

// DefaultRules returns the built-in catalog rules.
func DefaultRules() *Rules {
	return &Rules{
		Categories: map[string]string{
			"policarbonato alveolar": "Policarbonato Alveolar",
			"policarbonato compacto": "Policarbonato Compacto",
			"policarbonato ondulado": "Policarbonato Ondulado",
			"perfiles":               "Perfiles",
			"perfileria":             "Perfiles",
			"accesorios":             "Accesorios",
			"pinturas":               "Pinturas",
			"selladores":             "Selladores",
			"herramientas":           "Herramientas",
		},
		DimensionCategories: []string{
			"Policarbonato Alveolar",
			"Policarbonato Compacto",
			"Policarbonato Ondulado",
		},
		ColumnTokens: map[string][]string{},
	}
}

// LoadRules returns DefaultRules merged with the YAML file at path.
// An empty path yields the defaults unchanged.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	rules.merge(&override)
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

func (r *Rules) merge(o *Rules) {
	for k, v := range o.Categories {
		r.Categories[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	if o.DimensionCategories != nil {
		r.DimensionCategories = o.DimensionCategories
	}
	for field, tokens := range o.ColumnTokens {
		key := strings.ToLower(strings.TrimSpace(field))
		r.ColumnTokens[key] = append(r.ColumnTokens[key], tokens...)
	}
}

// knownFields mirrors the canonical product fields accepted in column_tokens.
var knownFields = map[string]bool{
	"identifier": true, "name": true, "type": true, "thickness": true,
	"width": true, "length": true, "color": true, "use": true,
	"net_price": true, "supplier_cost": true, "price_with_tax": true,
	"profit": true, "stock": true, "supplier": true,
}

// Validate checks the rules for entries that would silently never apply.
func (r *Rules) Validate() error {
	var errs []string
	for k, v := range r.Categories {
		if k == "" || v == "" {
			errs = append(errs, fmt.Sprintf("category mapping %q -> %q must not be empty", k, v))
		}
	}
	for field, tokens := range r.ColumnTokens {
		if !knownFields[field] {
			errs = append(errs, fmt.Sprintf("column_tokens: unknown field %q", field))
		}
		for _, tok := range tokens {
			if strings.TrimSpace(tok) == "" {
				errs = append(errs, fmt.Sprintf("column_tokens.%s: empty token", field))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// CategoryFor returns the category for a tab name.
func (r *Rules) CategoryFor(partition string) string {
	name := strings.TrimSpace(partition)
	if c, ok := r.Categories[strings.ToLower(name)]; ok {
		return c
	}
	return name
}

package builder

import "strings"

// Catalog is the read-only list of module templates offered by the sidebar.
type Catalog struct {
	templates []ModuleTemplate
	byType    map[string]int
}

// NewCatalog builds a catalog from templates. Later duplicates of a type are ignored.
func NewCatalog(templates ...ModuleTemplate) *Catalog {
	c := &Catalog{byType: make(map[string]int, len(templates))}
	for _, t := range templates {
		if _, ok := c.byType[t.Type]; ok {
			continue
		}
		c.byType[t.Type] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c
}

// Lookup returns the template registered for moduleType. A nil catalog has no
// templates.
func (c *Catalog) Lookup(moduleType string) (ModuleTemplate, bool) {
	if c == nil {
		return ModuleTemplate{}, false
	}
	i, ok := c.byType[moduleType]
	if !ok {
		return ModuleTemplate{}, false
	}
	return c.templates[i], true
}

// Templates returns the templates in registration order.
func (c *Catalog) Templates() []ModuleTemplate {
	return append([]ModuleTemplate{}, c.templates...)
}

// Search returns the templates whose name, description or category contains
// term, ignoring case. An empty term matches everything.
func (c *Catalog) Search(term string) []ModuleTemplate {
	term = strings.ToLower(term)
	var out []ModuleTemplate
	for _, t := range c.templates {
		if strings.Contains(strings.ToLower(t.Name), term) ||
			strings.Contains(strings.ToLower(t.Description), term) ||
			strings.Contains(strings.ToLower(t.Category), term) {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.templates {
		if seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		out = append(out, t.Category)
	}
	return out
}

// DefaultCatalog returns the built-in module templates.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		ModuleTemplate{
			Type:          "sentiment-analysis",
			Name:          "Sentiment Analysis",
			Description:   "Analyze text sentiment (positive, negative, neutral)",
			Category:      "Text Analysis",
			DefaultConfig: map[string]any{"model": "default", "threshold": 0.5},
			Fields: []FieldSpec{
				{Key: "model", Kind: KindSelect, Label: "Model type", Options: []string{"default", "bert", "roberta", "custom"}},
				{Key: "threshold", Kind: KindNumber, Label: "Threshold", Step: 0.1},
			},
		},
		ModuleTemplate{
			Type:          "keyword-extraction",
			Name:          "Keyword Extraction",
			Description:   "Extract important keywords from text",
			Category:      "Text Analysis",
			DefaultConfig: map[string]any{"maxKeywords": 10.0, "minScore": 0.3},
			Fields: []FieldSpec{
				{Key: "maxKeywords", Kind: KindNumber, Label: "Max keywords", Step: 1},
				{Key: "minScore", Kind: KindNumber, Label: "Min score", Step: 0.1},
			},
		},
		ModuleTemplate{
			Type:          "custom-model",
			Name:          "Custom Model",
			Description:   "Use your own trained AI model",
			Category:      "AI Models",
			DefaultConfig: map[string]any{"modelUrl": "", "apiKey": ""},
			Fields: []FieldSpec{
				{Key: "modelUrl", Kind: KindURL, Label: "Model url"},
				{Key: "apiKey", Kind: KindSecret, Label: "Api key"},
			},
		},
		ModuleTemplate{
			Type:          "webhook",
			Name:          "Webhook",
			Description:   "Send data to external services",
			Category:      "Integration",
			DefaultConfig: map[string]any{"url": "", "method": "POST", "headers": map[string]any{}},
			Fields: []FieldSpec{
				{Key: "url", Kind: KindURL, Label: "Url"},
				{Key: "method", Kind: KindSelect, Label: "Method", Options: []string{"GET", "POST", "PUT", "PATCH"}},
			},
		},
		ModuleTemplate{
			Type:          "data-filter",
			Name:          "Data Filter",
			Description:   "Filter and transform data",
			Category:      "Data Processing",
			DefaultConfig: map[string]any{"conditions": []any{}, "transformations": []any{}},
			Fields: []FieldSpec{
				{Key: "conditions", Kind: KindPlaceholder, Label: "Conditions"},
				{Key: "transformations", Kind: KindPlaceholder, Label: "Transformations"},
			},
		},
		ModuleTemplate{
			Type:          "database-store",
			Name:          "Database Store",
			Description:   "Store results in database",
			Category:      "Storage",
			DefaultConfig: map[string]any{"table": "", "fields": map[string]any{}},
			Fields: []FieldSpec{
				{Key: "table", Kind: KindText, Label: "Table"},
			},
		},
	)
}

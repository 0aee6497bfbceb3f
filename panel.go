package builder

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

var (
	ErrPanelClosed   = errors.New("builder: configuration panel is closed")
	ErrUnknownField  = errors.New("builder: unknown config field")
	ErrReadOnlyField = errors.New("builder: config field is read-only")
	ErrInvalidValue  = errors.New("builder: invalid value for config field")
	ErrInvalidOption = errors.New("builder: value is not one of the field options")
)

// ModuleUpdater is the part of Editor the panel writes through.
type ModuleUpdater interface {
	UpdateModule(id string, patch ModulePatch) bool
}

// Field is a FieldSpec together with the value currently held by the panel.
type Field struct {
	FieldSpec
	Value any `json:"value"`
}

// Panel edits one module's name, description and config. Edits are buffered
// until Save.
type Panel struct {
	target      ModuleUpdater
	moduleID    string
	moduleType  string
	name        string
	description string
	config      map[string]any
	schema      []FieldSpec
	open        bool
}

// OpenPanel opens a configuration panel for the module with the given id.
func OpenPanel(e *Editor, moduleID string) (*Panel, error) {
	m, ok := e.Module(moduleID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, moduleID)
	}
	var schema []FieldSpec
	if tpl, ok := e.Catalog().Lookup(m.Type); ok {
		schema = tpl.Fields
	}
	return NewPanel(e, m, schema), nil
}

// NewPanel opens a panel over a copy of m that writes back through target.
// An empty schema is inferred from the shape of m.Config.
func NewPanel(target ModuleUpdater, m ModuleInstance, schema []FieldSpec) *Panel {
	c := m.Clone()
	if len(schema) == 0 {
		schema = InferFields(c.Type, c.Config)
	}
	return &Panel{
		target:      target,
		moduleID:    c.ID,
		moduleType:  c.Type,
		name:        c.Name,
		description: c.Description,
		config:      c.Config,
		schema:      schema,
		open:        true,
	}
}

// ModuleID returns the id of the module being edited.
func (p *Panel) ModuleID() string { return p.moduleID }

// IsOpen reports whether the panel still accepts edits.
func (p *Panel) IsOpen() bool { return p.open }

// Name returns the buffered module name.
func (p *Panel) Name() string { return p.name }

// Description returns the buffered module description.
func (p *Panel) Description() string { return p.description }

// Config returns a copy of the buffered config.
func (p *Panel) Config() map[string]any { return cloneConfig(p.config) }

// Fields returns the form fields with their buffered values.
func (p *Panel) Fields() []Field {
	out := make([]Field, 0, len(p.schema))
	for _, f := range p.schema {
		out = append(out, Field{FieldSpec: f, Value: cloneValue(p.config[f.Key])})
	}
	return out
}

// SetName buffers a new module name.
func (p *Panel) SetName(name string) error {
	if !p.open {
		return ErrPanelClosed
	}
	p.name = name
	return nil
}

// SetDescription buffers a new module description.
func (p *Panel) SetDescription(desc string) error {
	if !p.open {
		return ErrPanelClosed
	}
	p.description = desc
	return nil
}

// Set buffers a config value after checking it against the field's kind. The
// first field declared for key decides how the value is validated.
func (p *Panel) Set(key string, value any) error {
	if !p.open {
		return ErrPanelClosed
	}
	i := slices.IndexFunc(p.schema, func(f FieldSpec) bool { return f.Key == key })
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	f := p.schema[i]

	switch f.Kind {
	case KindPlaceholder:
		return fmt.Errorf("%w: %q", ErrReadOnlyField, key)
	case KindNumber:
		n, err := coerceNumber(value)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidValue, key, err)
		}
		p.config[key] = n
	case KindToggle:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %q expects a boolean", ErrInvalidValue, key)
		}
		p.config[key] = b
	case KindSelect:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %q expects a string", ErrInvalidValue, key)
		}
		if !slices.Contains(f.Options, s) {
			return fmt.Errorf("%w: %q", ErrInvalidOption, s)
		}
		p.config[key] = s
	default:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %q expects a string", ErrInvalidValue, key)
		}
		p.config[key] = s
	}
	return nil
}

// Save writes name, description and config back to the module in a single
// update and closes the panel. If the module was deleted while the panel was
// open the edits are dropped and ErrModuleNotFound is returned.
func (p *Panel) Save() error {
	if !p.open {
		return ErrPanelClosed
	}
	name, desc := p.name, p.description
	ok := p.target.UpdateModule(p.moduleID, ModulePatch{
		Name:        &name,
		Description: &desc,
		Config:      cloneConfig(p.config),
	})
	p.open = false
	if !ok {
		return fmt.Errorf("%w: %q", ErrModuleNotFound, p.moduleID)
	}
	return nil
}

// Close discards buffered edits.
func (p *Panel) Close() {
	p.open = false
}

// coerceNumber accepts numbers and numeric strings. Strings that do not parse
// become 0, which is what the number input yields for an empty box. NaN and
// infinities also become 0 since they cannot be encoded as JSON.
func coerceNumber(v any) (float64, error) {
	if n, ok := toNumber(v); ok {
		return finiteOrZero(n), nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, nil
	}
	return finiteOrZero(n), nil
}

func finiteOrZero(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

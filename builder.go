package builder

import "time"

// ModuleTemplate is a read-only blueprint for a workflow step.
// Fields is the ordered form schema for the configuration panel; when empty the
// panel infers one from the shape of DefaultConfig.
type ModuleTemplate struct {
	Type          string         `json:"type"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	DefaultConfig map[string]any `json:"defaultConfig"`
	Fields        []FieldSpec    `json:"fields,omitempty"`
}

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ModuleInstance is a placed, configurable copy of a template.
// Position is nil only for instances that were never placed.
type ModuleInstance struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category,omitempty"`
	Config      map[string]any `json:"config"`
	Position    *Position      `json:"position,omitempty"`
}

// Connection is a directed edge between two module instances.
// Source and Target hold module ids, never pointers.
type Connection struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// ConnectionRequest is a Connection before it has been assigned an id.
type ConnectionRequest struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Workflow is the aggregate being authored. It owns its modules and connections.
type Workflow struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Modules     []ModuleInstance `json:"modules"`
	Connections []Connection     `json:"connections"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Payload is the body posted to the save endpoint.
type Payload struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Modules     []ModuleInstance `json:"modules"`
	Connections []Connection     `json:"connections"`
}

// WorkflowSummary is one row of the dashboard workflow list.
type WorkflowSummary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Status          string    `json:"status"`
	Endpoint        string    `json:"endpoint"`
	ModuleCount     int       `json:"moduleCount"`
	ConnectionCount int       `json:"connectionCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of m.
func (m ModuleInstance) Clone() ModuleInstance {
	out := m
	out.Config = cloneConfig(m.Config)
	if m.Position != nil {
		p := *m.Position
		out.Position = &p
	}
	return out
}

// Clone returns a deep copy of w.
func (w Workflow) Clone() Workflow {
	out := w
	out.Modules = make([]ModuleInstance, len(w.Modules))
	for i, m := range w.Modules {
		out.Modules[i] = m.Clone()
	}
	out.Connections = append([]Connection{}, w.Connections...)
	return out
}

// Payload returns the save body for w.
func (w Workflow) Payload() Payload {
	c := w.Clone()
	return Payload{
		Name:        c.Name,
		Description: c.Description,
		Modules:     c.Modules,
		Connections: c.Connections,
	}
}

func cloneConfig(cfg map[string]any) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneConfig(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case []string:
		return append([]string{}, t...)
	default:
		return v
	}
}

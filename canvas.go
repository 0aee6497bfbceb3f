package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Node geometry on the canvas.
const (
	NodeWidth    = 200.0
	NodeHeight   = 100.0
	HandleRadius = 8.0
)

// Port handle names used by the canvas.
const (
	HandleInput  = "input"
	HandleOutput = "output"
)

// ErrInvalidDropPayload is returned by Drop for malformed drag data.
var ErrInvalidDropPayload = errors.New("builder: invalid drop payload")

// Point is a pointer position in client coordinates.
type Point struct {
	X float64
	Y float64
}

// DropPayload is the drag data attached by the module sidebar.
type DropPayload struct {
	ModuleType string `json:"moduleType"`
}

// InteractionState is the state of the connection gesture.
type InteractionState int

const (
	Idle InteractionState = iota
	Connecting
)

func (s InteractionState) String() string {
	if s == Connecting {
		return "connecting"
	}
	return "idle"
}

// PortRef identifies one port of one module.
type PortRef struct {
	ModuleID string
	Handle   string
}

// EdgePath is the drawable geometry of one connection.
type EdgePath struct {
	ConnectionID string
	Start        Point
	End          Point
	MidX         float64
	D            string
}

// HitPart says which part of a node a point landed on.
type HitPart int

const (
	HitNone HitPart = iota
	HitBody
	HitInput
	HitOutput
)

// Hit is the result of a hit test.
type Hit struct {
	ModuleID string
	Part     HitPart
}

// Canvas turns pointer events into editor mutations.
type Canvas struct {
	editor     *Editor
	origin     Point
	dropOffset Point
	log        zerolog.Logger

	pending  *PortRef
	dragging string
	dragFrom Point
	panel    *Panel
}

// CanvasOption configures a Canvas.
type CanvasOption func(*Canvas)

// WithOrigin sets the client coordinate of the canvas' top-left corner.
func WithOrigin(p Point) CanvasOption {
	return func(c *Canvas) { c.origin = p }
}

// WithCanvasLogger sets the canvas logger.
func WithCanvasLogger(l zerolog.Logger) CanvasOption {
	return func(c *Canvas) { c.log = l }
}

// NewCanvas binds a canvas to an editor.
func NewCanvas(e *Editor, opts ...CanvasOption) *Canvas {
	c := &Canvas{
		editor:     e,
		dropOffset: Point{X: NodeWidth / 2, Y: NodeHeight / 2},
		log:        log.Logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the connection gesture state.
func (c *Canvas) State() InteractionState {
	if c.pending != nil {
		return Connecting
	}
	return Idle
}

// Pending returns the output port a connection is being drawn from.
func (c *Canvas) Pending() (PortRef, bool) {
	if c.pending == nil {
		return PortRef{}, false
	}
	return *c.pending, true
}

// Drop places the module named in the drag data so that the pointer lands
// near the node's center. ok is false when the type is not in the catalog and
// nothing was placed.
func (c *Canvas) Drop(data []byte, client Point) (ModuleInstance, bool, error) {
	var p DropPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Warn().Err(err).Msg("failed to parse drop data")
		return ModuleInstance{}, false, fmt.Errorf("%w: %v", ErrInvalidDropPayload, err)
	}
	if p.ModuleType == "" {
		c.log.Warn().Msg("drop data has no module type")
		return ModuleInstance{}, false, fmt.Errorf("%w: missing moduleType", ErrInvalidDropPayload)
	}
	pos := Position{
		X: client.X - c.origin.X - c.dropOffset.X,
		Y: client.Y - c.origin.Y - c.dropOffset.Y,
	}
	m, ok := c.editor.AddModule(p.ModuleType, pos)
	return m, ok, nil
}

// BeginDrag starts moving a module. The offset between the pointer and the
// node's position is kept for the rest of the drag.
func (c *Canvas) BeginDrag(moduleID string, pointer Point) error {
	m, ok := c.editor.Module(moduleID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrModuleNotFound, moduleID)
	}
	var pos Position
	if m.Position != nil {
		pos = *m.Position
	}
	c.dragging = moduleID
	c.dragFrom = Point{X: pointer.X - pos.X, Y: pointer.Y - pos.Y}
	return nil
}

// Dragging returns the id of the module being dragged.
func (c *Canvas) Dragging() (string, bool) {
	return c.dragging, c.dragging != ""
}

// PointerMove repositions the dragged module, clamping to the canvas origin.
// Each move is written through to the editor immediately.
func (c *Canvas) PointerMove(pointer Point) {
	if c.dragging == "" {
		return
	}
	pos := Position{
		X: math.Max(0, pointer.X-c.dragFrom.X),
		Y: math.Max(0, pointer.Y-c.dragFrom.Y),
	}
	if !c.editor.UpdateModule(c.dragging, ModulePatch{Position: &pos}) {
		// The module went away mid-drag.
		c.dragging = ""
	}
}

// EndDrag releases the dragged module.
func (c *Canvas) EndDrag() {
	c.dragging = ""
}

// OutputPort starts a connection from moduleID.
func (c *Canvas) OutputPort(moduleID, handle string) {
	c.pending = &PortRef{ModuleID: moduleID, Handle: handle}
}

// InputPort completes a pending connection onto moduleID. Clicking the input
// of the module the connection started from cancels it. The gesture always
// returns to Idle.
func (c *Canvas) InputPort(moduleID, handle string) (Connection, bool, error) {
	from := c.pending
	c.pending = nil
	if from == nil || from.ModuleID == moduleID {
		return Connection{}, false, nil
	}
	conn, err := c.editor.Connect(ConnectionRequest{
		Source:       from.ModuleID,
		Target:       moduleID,
		SourceHandle: from.Handle,
		TargetHandle: handle,
	})
	if err != nil {
		return Connection{}, false, err
	}
	return conn, true, nil
}

// BackgroundClick cancels any pending connection.
func (c *Canvas) BackgroundClick() {
	c.pending = nil
}

// Click routes a click at p to the port or background under it.
func (c *Canvas) Click(p Point) (Connection, bool, error) {
	hit := c.HitTest(p)
	switch hit.Part {
	case HitOutput:
		c.OutputPort(hit.ModuleID, HandleOutput)
	case HitInput:
		return c.InputPort(hit.ModuleID, HandleInput)
	case HitNone:
		c.BackgroundClick()
	}
	return Connection{}, false, nil
}

// Select opens the configuration panel for moduleID, replacing any panel
// already open.
func (c *Canvas) Select(moduleID string) (*Panel, error) {
	p, err := OpenPanel(c.editor, moduleID)
	if err != nil {
		return nil, err
	}
	if c.panel != nil {
		c.panel.Close()
	}
	c.panel = p
	return p, nil
}

// Panel returns the open configuration panel, if any.
func (c *Canvas) Panel() (*Panel, bool) {
	if c.panel == nil || !c.panel.IsOpen() {
		return nil, false
	}
	return c.panel, true
}

// Delete removes a module and closes its configuration panel if open.
func (c *Canvas) Delete(moduleID string) bool {
	if !c.editor.DeleteModule(moduleID) {
		return false
	}
	if c.panel != nil && c.panel.ModuleID() == moduleID {
		c.panel.Close()
		c.panel = nil
	}
	if c.dragging == moduleID {
		c.dragging = ""
	}
	if c.pending != nil && c.pending.ModuleID == moduleID {
		c.pending = nil
	}
	return true
}

// HitTest finds the topmost node under p, in canvas coordinates. Nodes drawn
// later are on top.
func (c *Canvas) HitTest(p Point) Hit {
	modules := c.editor.wf.Modules
	for i := len(modules) - 1; i >= 0; i-- {
		m := modules[i]
		if m.Position == nil {
			continue
		}
		pos := *m.Position
		in := Point{X: pos.X, Y: pos.Y + NodeHeight/2}
		out := Point{X: pos.X + NodeWidth, Y: pos.Y + NodeHeight/2}
		switch {
		case within(p, out, HandleRadius):
			return Hit{ModuleID: m.ID, Part: HitOutput}
		case within(p, in, HandleRadius):
			return Hit{ModuleID: m.ID, Part: HitInput}
		case p.X >= pos.X && p.X <= pos.X+NodeWidth && p.Y >= pos.Y && p.Y <= pos.Y+NodeHeight:
			return Hit{ModuleID: m.ID, Part: HitBody}
		}
	}
	return Hit{}
}

// Edges returns the drawable path of every connection whose endpoints are both
// placed. Connections with a missing endpoint are skipped.
func (c *Canvas) Edges() []EdgePath {
	modules := c.editor.wf.Modules
	var out []EdgePath
	for _, conn := range c.editor.wf.Connections {
		si := indexOfModule(modules, conn.Source)
		ti := indexOfModule(modules, conn.Target)
		if si < 0 || ti < 0 || modules[si].Position == nil || modules[ti].Position == nil {
			continue
		}
		src, tgt := *modules[si].Position, *modules[ti].Position
		start := Point{X: src.X + NodeWidth, Y: src.Y + NodeHeight/2}
		end := Point{X: tgt.X, Y: tgt.Y + NodeHeight/2}
		mid := (start.X + end.X) / 2
		out = append(out, EdgePath{
			ConnectionID: conn.ID,
			Start:        start,
			End:          end,
			MidX:         mid,
			D: fmt.Sprintf("M %s %s C %s %s %s %s %s %s",
				num(start.X), num(start.Y), num(mid), num(start.Y), num(mid), num(end.Y), num(end.X), num(end.Y)),
		})
	}
	return out
}

func within(p, center Point, r float64) bool {
	dx, dy := p.X-center.X, p.Y-center.Y
	return dx*dx+dy*dy <= r*r
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

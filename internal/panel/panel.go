// Package panel holds the page's route controls: one checkbox per route and
// a master checkbox whose tri-state is always derived from the others.
package panel

import (
	"sync"

	"routemap/internal/domain"
)

type MasterState string

const (
	MasterUnchecked     MasterState = "unchecked"
	MasterChecked       MasterState = "checked"
	MasterIndeterminate MasterState = "indeterminate"
)

// DeriveMasterState maps a checked count onto the master tri-state. A panel
// without routes is unchecked.
func DeriveMasterState(checked, total int) MasterState {
	switch {
	case checked == 0:
		return MasterUnchecked
	case checked == total:
		return MasterChecked
	default:
		return MasterIndeterminate
	}
}

type ControlState struct {
	RelationID string `json:"relationId"`
	Checked    bool   `json:"checked"`
	Disabled   bool   `json:"disabled"`
}

type MasterStatus struct {
	State    MasterState `json:"state"`
	Disabled bool        `json:"disabled"`
}

// Listener is told about every visible state change so the page can mirror it
type Listener interface {
	ControlChanged(state ControlState)
	MasterChanged(status MasterStatus)
}

type Control struct {
	route domain.Route
	panel *Panel

	mu       sync.Mutex
	checked  bool
	disabled bool
}

func (c *Control) Route() domain.Route {
	return c.route
}

func (c *Control) Checked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checked
}

func (c *Control) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

func (c *Control) SetChecked(checked bool) {
	c.mu.Lock()
	changed := c.checked != checked
	c.checked = checked
	state := c.stateLocked()
	c.mu.Unlock()

	if changed {
		c.panel.notifyControl(state)
	}
}

func (c *Control) SetDisabled(disabled bool) {
	c.mu.Lock()
	changed := c.disabled != disabled
	c.disabled = disabled
	state := c.stateLocked()
	c.mu.Unlock()

	if changed {
		c.panel.notifyControl(state)
	}
}

// TryDisable disables an enabled control and reports whether it did.
func (c *Control) TryDisable() bool {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return false
	}
	c.disabled = true
	state := c.stateLocked()
	c.mu.Unlock()

	c.panel.notifyControl(state)
	return true
}

func (c *Control) State() ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Control) stateLocked() ControlState {
	return ControlState{
		RelationID: c.route.RelationID,
		Checked:    c.checked,
		Disabled:   c.disabled,
	}
}

type Panel struct {
	controls []*Control
	byID     map[string]*Control
	listener Listener

	masterMu       sync.Mutex
	masterDisabled bool
}

// New builds a panel with every route unchecked, in manifest order.
func New(routes []domain.Route, listener Listener) *Panel {
	p := &Panel{
		controls: make([]*Control, 0, len(routes)),
		byID:     make(map[string]*Control, len(routes)),
		listener: listener,
	}
	for _, r := range routes {
		if _, dup := p.byID[r.RelationID]; dup {
			continue
		}
		c := &Control{route: r, panel: p}
		p.controls = append(p.controls, c)
		p.byID[r.RelationID] = c
	}
	return p
}

func (p *Panel) Controls() []*Control {
	return p.controls
}

func (p *Panel) Control(relationID string) (*Control, bool) {
	c, ok := p.byID[relationID]
	return c, ok
}

func (p *Panel) CheckedCount() int {
	n := 0
	for _, c := range p.controls {
		if c.Checked() {
			n++
		}
	}
	return n
}

func (p *Panel) MasterState() MasterState {
	return DeriveMasterState(p.CheckedCount(), len(p.controls))
}

func (p *Panel) Master() MasterStatus {
	p.masterMu.Lock()
	disabled := p.masterDisabled
	p.masterMu.Unlock()

	return MasterStatus{State: p.MasterState(), Disabled: disabled}
}

// TryDisableMaster disables the master control unless it already is, in
// which case a batch is running and false is returned.
func (p *Panel) TryDisableMaster() bool {
	p.masterMu.Lock()
	if p.masterDisabled {
		p.masterMu.Unlock()
		return false
	}
	p.masterDisabled = true
	p.masterMu.Unlock()

	p.RefreshMaster()
	return true
}

func (p *Panel) EnableMaster() {
	p.masterMu.Lock()
	p.masterDisabled = false
	p.masterMu.Unlock()
}

// RefreshMaster recomputes the master tri-state and publishes it.
func (p *Panel) RefreshMaster() MasterStatus {
	status := p.Master()
	if p.listener != nil {
		p.listener.MasterChanged(status)
	}
	return status
}

func (p *Panel) Snapshot() []ControlState {
	states := make([]ControlState, len(p.controls))
	for i, c := range p.controls {
		states[i] = c.State()
	}
	return states
}

func (p *Panel) notifyControl(state ControlState) {
	if p.listener != nil {
		p.listener.ControlChanged(state)
	}
}

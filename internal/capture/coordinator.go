// Package capture intercepts the traced program's standard-output writes
// (p, puts, print) and fans each write out to the registered recording
// sessions before forwarding it to the original operation.
package capture

import (
	"slices"
	"sync"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/source"
)

// Client receives one RecordEvent per intercepted write.
type Client interface {
	RecordEvent(path string, line int64, content string)
}

// WriteFunc performs one output operation issued at loc.
type WriteFunc func(loc source.Location, args []Arg)

// Ops is the table of interceptable output operations.
type Ops struct {
	P     WriteFunc
	Puts  WriteFunc
	Print WriteFunc
}

// Coordinator owns the registry of clients and the active Ops table.
// While at least one client is registered the table holds wrappers around
// the base operations; once the last client leaves the base table is
// restored exactly.
type Coordinator struct {
	mu      sync.Mutex
	clients []Client
	base    Ops
	active  Ops
}

// NewCoordinator returns a coordinator forwarding to base. Nil entries of
// base are replaced by no-ops.
func NewCoordinator(base Ops) *Coordinator {
	base = base.orNop()
	return &Coordinator{base: base, active: base}
}

func (o Ops) orNop() Ops {
	nop := func(source.Location, []Arg) {}
	if o.P == nil {
		o.P = nop
	}
	if o.Puts == nil {
		o.Puts = nop
	}
	if o.Print == nil {
		o.Print = nop
	}
	return o
}

// Register adds c. Registering the same client twice has no effect.
func (c *Coordinator) Register(client Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(c.clients, client) {
		return
	}
	c.clients = append(c.clients, client)
	if len(c.clients) == 1 {
		c.install()
	}
}

// Unregister removes c; unknown clients are ignored.
func (c *Coordinator) Unregister(client Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := slices.Index(c.clients, client)
	if idx < 0 {
		return
	}
	c.clients = slices.Delete(c.clients, idx, idx+1)
	if len(c.clients) == 0 {
		c.active = c.base
	}
}

// Reset drops every client and restores the base operations.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = nil
	c.active = c.base
}

// Installed reports whether the wrappers are in place.
func (c *Coordinator) Installed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients) > 0
}

// Clients returns the number of registered clients.
func (c *Coordinator) Clients() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// Ops returns the currently active operation table.
func (c *Coordinator) Ops() Ops {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Base returns the operations the coordinator forwards to.
func (c *Coordinator) Base() Ops { return c.base }

func (c *Coordinator) P(loc source.Location, args []Arg)     { c.Ops().P(loc, args) }
func (c *Coordinator) Puts(loc source.Location, args []Arg)  { c.Ops().Puts(loc, args) }
func (c *Coordinator) Print(loc source.Location, args []Arg) { c.Ops().Print(loc, args) }

// install swaps in the wrappers; c.mu is held.
func (c *Coordinator) install() {
	c.active = Ops{
		P:     c.wrap(RenderP, c.base.P),
		Puts:  c.wrap(RenderPuts, c.base.Puts),
		Print: c.wrap(RenderPrint, c.base.Print),
	}
}

func (c *Coordinator) wrap(render func([]Arg) string, next WriteFunc) WriteFunc {
	return func(loc source.Location, args []Arg) {
		content := render(args)
		// clients may unregister from inside RecordEvent
		c.mu.Lock()
		clients := slices.Clone(c.clients)
		c.mu.Unlock()
		for _, cl := range clients {
			cl.RecordEvent(loc.Path, loc.Line, content)
		}
		next(loc, args)
	}
}

package evaluator

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/funvibe/automa/internal/config"
	"github.com/funvibe/automa/internal/mainloop"
	"github.com/funvibe/automa/internal/value"
)

// Clock supplies wall time to time-aware builtins, injectable for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// GeoLocation is consumed by the sunrise/sunset builtins.
type GeoLocation struct {
	Latitude  float64
	Longitude float64
}

// GlobalStore persists domain globals across restarts.
type GlobalStore interface {
	LoadAll() (map[string]value.Value, error)
	Save(name string, v value.Value) error
	Delete(name string) error
}

// Domain is the shared root scope of a family of contexts: global
// variables, the builtin function registry, the event loop everything
// runs on, and the host services builtins need. It tolerates concurrent
// access from contexts driven on different goroutines; atomicity is per
// named slot.
type Domain struct {
	mu       sync.RWMutex
	globals  map[string]value.Value
	registry map[string]*Builtin
	loop     *mainloop.Loop
	clock    Clock
	geo      *GeoLocation
	store    GlobalStore
	out      io.Writer
	trace    bool
	limits   config.Limits
}

func NewDomain(loop *mainloop.Loop) *Domain {
	return &Domain{
		globals:  make(map[string]value.Value),
		registry: make(map[string]*Builtin),
		loop:     loop,
		clock:    systemClock{},
		out:      os.Stderr,
		limits:   config.DefaultLimits(),
	}
}

func (d *Domain) Loop() *mainloop.Loop { return d.loop }

func (d *Domain) Clock() Clock { return d.clock }

func (d *Domain) SetClock(c Clock) { d.clock = c }

func (d *Domain) Geo() *GeoLocation { return d.geo }

func (d *Domain) SetGeo(g *GeoLocation) { d.geo = g }

func (d *Domain) SetOutput(w io.Writer) { d.out = w }

func (d *Domain) Output() io.Writer { return d.out }

func (d *Domain) SetTrace(on bool) { d.trace = on }

func (d *Domain) Limits() config.Limits { return d.limits }

func (d *Domain) SetLimits(l config.Limits) { d.limits = l }

// AttachStore connects a persistent globals store and loads its
// contents into the domain scope.
func (d *Domain) AttachStore(s GlobalStore) error {
	saved, err := s.LoadAll()
	if err != nil {
		return err
	}
	d.mu.Lock()
	for name, v := range saved {
		d.globals[name] = v
	}
	d.store = s
	d.mu.Unlock()
	return nil
}

// Register adds a builtin function descriptor, replacing any previous
// one of the same name.
func (d *Domain) Register(b *Builtin) {
	d.mu.Lock()
	d.registry[b.Name] = b
	d.mu.Unlock()
}

// RegisterAll adds a whole descriptor table.
func (d *Domain) RegisterAll(table map[string]*Builtin) {
	d.mu.Lock()
	for name, b := range table {
		d.registry[name] = b
	}
	d.mu.Unlock()
}

func (d *Domain) builtin(name string) (*Builtin, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.registry[name]
	return b, ok
}

// Global reads a domain-scope variable.
func (d *Domain) Global(name string) (value.Value, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.globals[name]
	return v, ok
}

// SetGlobal writes a domain-scope variable. With onlyCreate set an
// existing variable is left untouched (re-running a glob declaration
// must not clobber persisted state).
func (d *Domain) SetGlobal(name string, v value.Value, onlyCreate bool) {
	d.mu.Lock()
	if onlyCreate {
		if _, exists := d.globals[name]; exists {
			d.mu.Unlock()
			return
		}
	}
	d.globals[name] = v
	store := d.store
	d.mu.Unlock()
	if store != nil {
		if err := store.Save(name, v); err != nil {
			d.logf("cannot persist global '%s': %v", name, err)
		}
	}
}

// UnsetGlobal removes a domain-scope variable.
func (d *Domain) UnsetGlobal(name string) {
	d.mu.Lock()
	delete(d.globals, name)
	store := d.store
	d.mu.Unlock()
	if store != nil {
		if err := store.Delete(name); err != nil {
			d.logf("cannot remove persisted global '%s': %v", name, err)
		}
	}
}

func (d *Domain) logf(format string, args ...any) {
	if d.trace && d.out != nil {
		fmt.Fprintf(d.out, format+"\n", args...)
	}
}

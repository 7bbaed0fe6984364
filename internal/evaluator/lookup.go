package evaluator

import (
	"sync"

	"github.com/funvibe/automa/internal/value"
)

// Lookup is a pluggable namespace consulted during identifier
// resolution. Implementations report "not found" by returning false so
// resolution can fall through to the next layer.
type Lookup interface {
	LookupMember(name string) (value.Value, bool)
}

// MutableLookup is a namespace that also accepts assignments.
type MutableLookup interface {
	Lookup
	SetMember(name string, v value.Value) bool
}

// SimpleLookup is a map-backed namespace, handy for hosts that just want
// to expose a bag of named values.
type SimpleLookup struct {
	mu       sync.RWMutex
	members  map[string]value.Value
	writable bool
}

func NewSimpleLookup(writable bool) *SimpleLookup {
	return &SimpleLookup{members: make(map[string]value.Value), writable: writable}
}

func (l *SimpleLookup) LookupMember(name string) (value.Value, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.members[name]
	return v, ok
}

func (l *SimpleLookup) SetMember(name string, v value.Value) bool {
	if !l.writable {
		return false
	}
	l.mu.Lock()
	l.members[name] = v
	l.mu.Unlock()
	return true
}

// Preset stores a member regardless of writability, for host-side setup.
func (l *SimpleLookup) Preset(name string, v value.Value) {
	l.mu.Lock()
	l.members[name] = v
	l.mu.Unlock()
}

// FuncLookup resolves names through a host callback.
type FuncLookup func(name string) (value.Value, bool)

func (f FuncLookup) LookupMember(name string) (value.Value, bool) { return f(name) }

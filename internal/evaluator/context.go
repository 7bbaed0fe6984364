package evaluator

import (
	"sync"
	"time"

	"github.com/funvibe/automa/internal/source"
	"github.com/funvibe/automa/internal/value"
)

// Callback delivers the final result of an evaluation. It always
// receives a value; "no usable result" arrives as an annotated null.
type Callback func(result value.Value)

// Code is one compiled program: a cursor into its source container, the
// scope it runs in, and the freeze store for its stateful call sites.
type Code struct {
	name   string
	cursor source.Cursor
	flags  Flags
	freeze freezeStore
}

func NewCode(name string, cur source.Cursor, flags Flags) *Code {
	return &Code{name: name, cursor: cur, flags: flags}
}

func (c *Code) Name() string { return c.name }

func (c *Code) Cursor() source.Cursor { return c.cursor }

// TakeNextEval returns and clears the earliest re-evaluation time
// requested by frozen timed functions during the last run.
func (c *Code) TakeNextEval() time.Time { return c.freeze.takeNextEval() }

// varFlags qualify an assignment or declaration target.
type varFlags uint8

const (
	vfCreate     varFlags = 1 << iota // create in local scope if missing
	vfOnlyCreate                      // leave an existing variable untouched
	vfGlobal                          // target the domain scope
	vfUnset                           // delete instead of assign
)

// CodeContext owns the local variables and the running/queued threads of
// one script or function invocation. Contexts form a chain through the
// enclosing main context up to the shared domain.
type CodeContext struct {
	mu          sync.Mutex
	domain      *Domain
	main        *MainContext
	vars        map[string]value.Value
	threads     []*Thread
	queued      []*Thread
	syncRunning bool
}

func (c *CodeContext) Domain() *Domain { return c.domain }

// MainContext additionally holds script-declared functions, registered
// namespaces and the optional "this" object; it is the member-visibility
// root for all its child contexts.
type MainContext struct {
	CodeContext
	fnMu      sync.RWMutex
	functions map[string]*ScriptFunction
	lookups   []Lookup
	instance  Lookup
}

func NewMainContext(d *Domain, instance Lookup) *MainContext {
	m := &MainContext{
		functions: make(map[string]*ScriptFunction),
		instance:  instance,
	}
	m.CodeContext.domain = d
	m.CodeContext.main = m
	m.CodeContext.vars = make(map[string]value.Value)
	return m
}

// RegisterLookup adds a namespace; the most recently registered one is
// consulted first.
func (m *MainContext) RegisterLookup(l Lookup) {
	m.fnMu.Lock()
	m.lookups = append([]Lookup{l}, m.lookups...)
	m.fnMu.Unlock()
}

func (m *MainContext) defineFunction(f *ScriptFunction) {
	m.fnMu.Lock()
	m.functions[f.name] = f
	m.fnMu.Unlock()
}

func (m *MainContext) function(name string) (*ScriptFunction, bool) {
	m.fnMu.RLock()
	defer m.fnMu.RUnlock()
	f, ok := m.functions[name]
	return f, ok
}

// NewChildContext creates the execution context for one call into a
// script-defined function.
func (m *MainContext) NewChildContext() *CodeContext {
	return &CodeContext{
		domain: m.domain,
		main:   m,
		vars:   make(map[string]value.Value),
	}
}

// lookupMember resolves an identifier for reading: locals, then
// functions of the enclosing main, then the "this" object, then
// registered namespaces (most recent first), then builtins, then domain
// globals.
func (c *CodeContext) lookupMember(name string) (value.Value, bool) {
	c.mu.Lock()
	v, ok := c.vars[name]
	c.mu.Unlock()
	if ok {
		return v, true
	}
	if m := c.main; m != nil {
		if f, ok := m.function(name); ok {
			return value.Func(f), true
		}
		m.fnMu.RLock()
		instance := m.instance
		lookups := m.lookups
		m.fnMu.RUnlock()
		if instance != nil {
			if v, ok := instance.LookupMember(name); ok {
				return v, true
			}
		}
		for _, l := range lookups {
			if v, ok := l.LookupMember(name); ok {
				return v, true
			}
		}
	}
	if b, ok := c.domain.builtin(name); ok {
		return value.Func(&builtinCallable{fn: b}), true
	}
	if g, ok := c.domain.Global(name); ok {
		return g, true
	}
	return value.Value{}, false
}

// assignMember resolves an assignment target and writes it. Locals win,
// then the "this" object if writable, then mutable namespaces; the
// domain scope is only reachable with the global flag, otherwise
// existing globals are read-only from statement context.
func (c *CodeContext) assignMember(name string, fl varFlags, v value.Value) value.Value {
	if fl&vfUnset != 0 {
		c.mu.Lock()
		if _, ok := c.vars[name]; ok {
			delete(c.vars, name)
			c.mu.Unlock()
			return value.NullReason("unset")
		}
		c.mu.Unlock()
		if _, ok := c.domain.Global(name); ok {
			c.domain.UnsetGlobal(name)
		}
		return value.NullReason("unset")
	}
	if fl&vfGlobal != 0 {
		c.domain.SetGlobal(name, v, fl&vfOnlyCreate != 0)
		return v
	}
	if fl&vfCreate != 0 {
		c.mu.Lock()
		c.vars[name] = v
		c.mu.Unlock()
		return v
	}
	c.mu.Lock()
	if _, ok := c.vars[name]; ok {
		c.vars[name] = v
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()
	if m := c.main; m != nil {
		m.fnMu.RLock()
		instance := m.instance
		lookups := m.lookups
		m.fnMu.RUnlock()
		if ml, ok := instance.(MutableLookup); ok && instance != nil {
			if _, exists := instance.LookupMember(name); exists && ml.SetMember(name, v) {
				return v
			}
		}
		for _, l := range lookups {
			if ml, ok := l.(MutableLookup); ok {
				if _, exists := l.LookupMember(name); exists && ml.SetMember(name, v) {
					return v
				}
			}
		}
	}
	if _, ok := c.domain.Global(name); ok {
		return value.NewError(value.ErrImmutable, "'%s' is a global - use 'glob' to assign it", name)
	}
	return value.NewError(value.ErrNotFound, "'%s' unknown - use 'var' to declare", name)
}

// Evaluating reports whether any thread of this context is running or
// queued.
func (c *CodeContext) Evaluating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.threads) > 0 || len(c.queued) > 0
}

// ClearVars drops all local variables.
func (c *CodeContext) ClearVars() {
	c.mu.Lock()
	c.vars = make(map[string]value.Value)
	c.mu.Unlock()
}

// SetVar sets a local variable from host code.
func (c *CodeContext) SetVar(name string, v value.Value) {
	c.mu.Lock()
	c.vars[name] = v
	c.mu.Unlock()
}

// Var reads a local variable from host code.
func (c *CodeContext) Var(name string) (value.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vars[name]
	return v, ok
}

// Execute starts (or queues, or refuses) a run of code in this context,
// per the concurrency policy in the flags. The callback fires exactly
// once with the final result.
func (c *CodeContext) Execute(code *Code, flags Flags, cb Callback, maxRunTime time.Duration) {
	if flags&scopeMask == 0 {
		flags |= code.flags & scopeMask
	}
	if flags&FlagKeepVars == 0 {
		c.ClearVars()
	}
	t := c.newThreadFrom(code, code.cursor, flags, cb, maxRunTime)
	if t != nil {
		t.Run()
	}
}

// ExecuteSynchronously runs code to completion on the caller, refusing
// async builtins and re-entrant evaluation of the same context.
func (c *CodeContext) ExecuteSynchronously(code *Code, flags Flags, maxRunTime time.Duration) value.Value {
	c.mu.Lock()
	if c.syncRunning {
		c.mu.Unlock()
		return value.NewError(value.ErrCyclicReference, "context is already evaluating")
	}
	c.syncRunning = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.syncRunning = false
		c.mu.Unlock()
	}()
	res := value.NewError(value.ErrInternal, "synchronous evaluation did not complete")
	done := false
	c.Execute(code, flags|FlagSynchronously, func(v value.Value) {
		res = v
		done = true
	}, maxRunTime)
	if !done {
		return value.NewError(value.ErrInternal, "synchronous evaluation suspended")
	}
	return res
}

// newThreadFrom applies the concurrency policy and creates the thread
// (nil when refused or queued).
func (c *CodeContext) newThreadFrom(code *Code, cur source.Cursor, flags Flags, cb Callback, maxRunTime time.Duration) *Thread {
	c.mu.Lock()
	if len(c.threads) > 0 && flags&FlagConcurrently == 0 {
		switch {
		case flags&FlagStopRunning != 0:
			running := append([]*Thread(nil), c.threads...)
			queued := c.queued
			c.queued = nil
			c.mu.Unlock()
			res := value.NewError(value.ErrAborted, "pre-empted by new evaluation")
			for _, t := range queued {
				t.Abort(res)
			}
			for _, t := range running {
				t.Abort(res)
			}
			c.mu.Lock()
		case flags&FlagQueue != 0:
			t := newThread(c, code, cur, flags, cb, maxRunTime)
			c.queued = append(c.queued, t)
			c.mu.Unlock()
			return nil
		default:
			c.mu.Unlock()
			if cb != nil {
				cb(value.NewError(value.ErrBusy, "context is busy executing"))
			}
			return nil
		}
	}
	t := newThread(c, code, cur, flags, cb, maxRunTime)
	c.threads = append(c.threads, t)
	c.mu.Unlock()
	return t
}

// threadTerminated removes a finished thread and promotes the next
// queued one when the context becomes idle.
func (c *CodeContext) threadTerminated(t *Thread) {
	c.mu.Lock()
	for i, rt := range c.threads {
		if rt == t {
			c.threads = append(c.threads[:i], c.threads[i+1:]...)
			break
		}
	}
	for i, qt := range c.queued {
		if qt == t {
			c.queued = append(c.queued[:i], c.queued[i+1:]...)
			break
		}
	}
	var next *Thread
	if len(c.threads) == 0 && len(c.queued) > 0 {
		next = c.queued[0]
		c.queued = c.queued[1:]
		c.threads = append(c.threads, next)
	}
	c.mu.Unlock()
	if next != nil {
		next.Run()
	}
}

// AbortThreads aborts every queued and running thread of this context
// with the given result.
func (c *CodeContext) AbortThreads(res value.Value) {
	c.mu.Lock()
	queued := c.queued
	c.queued = nil
	running := append([]*Thread(nil), c.threads...)
	c.mu.Unlock()
	for _, t := range queued {
		t.Abort(res)
	}
	for _, t := range running {
		t.Abort(res)
	}
}

// ScriptFunction is a function declared in script source; it executes
// its body block in a fresh child context of the declaring main.
type ScriptFunction struct {
	name   string
	params []string
	code   *Code
}

func (f *ScriptFunction) FuncName() string { return f.name }

func (f *ScriptFunction) argumentInfo(i int) (ArgDesc, bool) {
	if i < len(f.params) {
		return ArgDesc{Types: TypeAny, Optional: true}, true
	}
	return ArgDesc{}, false
}

func (f *ScriptFunction) contextForCall(t *Thread) (callContext, value.Value) {
	main := t.owner.main
	if main == nil {
		return nil, value.NewError(value.ErrInternal, "function '%s' has no main context", f.name)
	}
	return &funcCallContext{fn: f, ctx: main.NewChildContext(), caller: t}, value.Value{}
}

type funcCallContext struct {
	fn        *ScriptFunction
	ctx       *CodeContext
	caller    *Thread
	nArgs     int
	undefined bool
}

func (fc *funcCallContext) numArgs() int { return fc.nArgs }

func (fc *funcCallContext) setArg(i int, v value.Value) {
	if i < len(fc.fn.params) {
		fc.ctx.SetVar(fc.fn.params[i], v)
	}
	fc.nArgs++
}

func (fc *funcCallContext) setUndefinedResult() { fc.undefined = true }

func (fc *funcCallContext) execute(flags Flags, cb Callback) {
	if fc.undefined {
		cb(value.NullReason("undefined function argument"))
		return
	}
	fc.ctx.Execute(fc.fn.code, flags, cb, 0)
}

func (fc *funcCallContext) abort(res value.Value) {
	fc.ctx.AbortThreads(res)
}

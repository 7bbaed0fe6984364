package evaluator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/funvibe/automa/internal/config"
	"github.com/funvibe/automa/internal/mainloop"
	"github.com/funvibe/automa/internal/source"
	"github.com/funvibe/automa/internal/value"
)

// state tags one stack frame of the interpreter. Each state has a
// handler in step(); the explicit stack replaces the native call stack
// so a thread can suspend mid-expression and resume from a callback.
type state uint8

const (
	stDead state = iota

	// statement level
	stBody
	stBlock
	stOneStatement
	stNoStatement
	stIfCondition
	stIfTrueStatement
	stWhileCondition
	stWhileStatement
	stTryStatement

	// expression level
	stAssignmentExpression
	stExpression
	stSubExpression
	stGroupedExpression
	stExprFirstTerm
	stExprLeftSide
	stExprRightSide
	stSimpleTerm
	stMember
	stSubscriptArg
	stNextSubscript

	// function calls
	stFuncContext
	stFuncArg
	stFuncExec

	// assignment
	stAssignVar

	// completion
	stResult
	stNothrowResult
	stUncheckedResult
	stComplete
)

// frame is one element of the explicit execution stack. It stores the
// values to restore when popped; the state tells the handler to return
// to.
type frame struct {
	st          state
	pos         source.Pos
	skipping    bool
	result      *value.Value
	precedence  int
	op          source.Operator
	callCtx     callContext
	assignName  string
	assignFlags varFlags
}

// Thread is one suspendable run of a compiled program within a context.
type Thread struct {
	id    string
	owner *CodeContext
	code  *Code
	flags Flags
	cb    Callback

	maxBlockTime time.Duration
	maxRunTime   time.Duration
	runningSince time.Time

	src         source.Cursor
	st          state
	stack       []frame
	result      *value.Value
	olderResult *value.Value
	poppedPos   source.Pos
	identifier  string
	skipping    bool
	precedence  int
	pendingOp   source.Operator
	callCtx     callContext
	childCtx    callContext
	assignName  string
	assignFlags varFlags

	aborted  bool
	resuming bool
	resumed  bool
	dead     bool

	autoResume    mainloop.Ticket
	hasAutoResume bool
}

func newThread(c *CodeContext, code *Code, cur source.Cursor, flags Flags, cb Callback, maxRunTime time.Duration) *Thread {
	limits := c.domain.limits
	t := &Thread{
		id:           uuid.NewString(),
		owner:        c,
		code:         code,
		flags:        flags,
		cb:           cb,
		src:          cur,
		maxBlockTime: limits.MaxBlockTime,
		maxRunTime:   maxRunTime,
	}
	if t.maxRunTime == 0 {
		t.maxRunTime = limits.MaxRunTime
	}
	if flags&FlagSynchronously != 0 {
		if t.maxRunTime == 0 {
			t.maxRunTime = config.DefaultSyncRunTime
		}
		// in synchronous mode the run budget governs; blocking is the point
		t.maxBlockTime = t.maxRunTime
	}
	return t
}

// ThreadID makes a Thread usable as a thread-reference value payload.
func (t *Thread) ThreadID() string { return t.id }

// Running reports whether the thread has not yet terminated.
func (t *Thread) Running() bool { return !t.dead }

func (t *Thread) loop() *mainloop.Loop { return t.owner.domain.loop }

// Run starts processing. The completion callback fires exactly once,
// possibly before Run returns when nothing suspends.
func (t *Thread) Run() {
	t.runningSince = time.Now()
	t.owner.domain.logf("thread %.8s starting at %s", t.id, t.src.Describe())
	t.start()
}

func (t *Thread) start() {
	t.stack = nil
	t.skipping = false
	switch {
	case t.flags&FlagExpression != 0:
		t.st = stExpression
	case t.flags&FlagScriptBody != 0:
		t.st = stBody
	case t.flags&FlagBlock != 0:
		t.st = stBlock
	default:
		e := value.NewError(value.ErrInternal, "no processing scope defined")
		t.complete(&e)
		return
	}
	t.push(stComplete, false)
	t.result = nil
	t.olderResult = nil
	t.resuming = false
	t.resume(nil)
}

// resume re-enters the step loop with an optional externally supplied
// result. When called while already inside the loop (a synchronous
// continuation), it only flags the resumption and returns, so native
// stack depth stays O(1) regardless of script call depth.
func (t *Thread) resume(res *value.Value) {
	if res != nil {
		t.result = res
	}
	if t.resuming {
		t.resumed = true
		return
	}
	if t.aborted {
		t.complete(t.result)
		return
	}
	t.resuming = true
	t.stepLoop()
	t.resuming = false
}

// stepLoop drives the state machine, checking time budgets on every
// iteration: the overall run limit terminates the thread, the block
// limit either terminates (synchronous mode) or yields to the event
// loop with a scheduled auto-resume.
func (t *Thread) stepLoop() {
	loopingSince := time.Now()
	for {
		now := time.Now()
		if t.maxRunTime > 0 && now.Sub(t.runningSince) > t.maxRunTime {
			e := t.errorAt(value.ErrTimeout, "aborted because of overall execution limit")
			t.complete(&e)
			return
		}
		if t.maxBlockTime > 0 && now.Sub(loopingSince) > t.maxBlockTime {
			if t.flags&FlagSynchronously != 0 || t.loop() == nil {
				e := t.errorAt(value.ErrTimeout, "aborted because of synchronous execution limit")
				t.complete(&e)
				return
			}
			t.autoResume = t.loop().ExecuteOnce(func() { t.resume(nil) }, 2*t.maxBlockTime)
			t.hasAutoResume = true
			return
		}
		t.resumed = false
		t.step()
		if !t.resumed || t.aborted {
			return
		}
	}
}

func (t *Thread) step() {
	switch t.st {
	case stDead:
		t.complete(t.result)
	case stBody:
		t.sBody()
	case stBlock:
		t.sBlock()
	case stOneStatement:
		t.sOneStatement()
	case stNoStatement:
		t.sNoStatement()
	case stIfCondition:
		t.sIfCondition()
	case stIfTrueStatement:
		t.sIfTrueStatement()
	case stWhileCondition:
		t.sWhileCondition()
	case stWhileStatement:
		t.sWhileStatement()
	case stTryStatement:
		t.sTryStatement()
	case stAssignmentExpression:
		t.sAssignmentExpression()
	case stExpression:
		t.sExpression()
	case stSubExpression:
		t.sSubExpression()
	case stGroupedExpression:
		t.sGroupedExpression()
	case stExprFirstTerm:
		t.sExprFirstTerm()
	case stExprLeftSide:
		t.sExprLeftSide()
	case stExprRightSide:
		t.sExprRightSide()
	case stSimpleTerm:
		t.sSimpleTerm()
	case stMember:
		t.sMember()
	case stSubscriptArg:
		t.sSubscriptArg()
	case stNextSubscript:
		t.sNextSubscript()
	case stFuncContext:
		t.sFuncContext()
	case stFuncArg:
		t.sFuncArg()
	case stFuncExec:
		t.sFuncExec()
	case stAssignVar:
		t.sAssignVar()
	case stResult:
		t.popWithResult(true)
	case stNothrowResult:
		t.popWithResult(false)
	case stUncheckedResult:
		t.pop()
		t.resume(nil)
	case stComplete:
		t.complete(t.result)
	default:
		e := value.NewError(value.ErrInternal, "unhandled interpreter state")
		t.complete(&e)
	}
}

func (t *Thread) setState(s state) { t.st = s }

func (t *Thread) resumeAt(s state) {
	t.st = s
	t.resume(nil)
}

// checkAndResume throws unthrown error results (routing them to a
// try/catch or terminating), otherwise continues.
func (t *Thread) checkAndResume() {
	if t.result != nil && t.result.IsError() && !t.result.Thrown() {
		t.throwOrComplete(*t.result)
		return
	}
	t.resume(nil)
}

func (t *Thread) checkAndResumeAt(s state) {
	t.st = s
	t.checkAndResume()
}

// push saves the current machine registers in a new frame whose state
// says where to continue after the matching pop.
func (t *Thread) push(returnTo state, usePoppedPos bool) {
	if len(t.stack) >= t.owner.domain.limits.MaxStackDepth {
		e := t.errorAt(value.ErrInternal, "evaluation stack depth exceeded")
		t.complete(&e)
		return
	}
	pos := t.src.Pos
	if usePoppedPos {
		pos = t.poppedPos
	}
	t.stack = append(t.stack, frame{
		st:          returnTo,
		pos:         pos,
		skipping:    t.skipping,
		result:      t.result,
		precedence:  t.precedence,
		op:          t.pendingOp,
		callCtx:     t.callCtx,
		assignName:  t.assignName,
		assignFlags: t.assignFlags,
	})
}

// pop restores the saved registers; the popped frame's result becomes
// olderResult while the current result carries through to the restored
// state.
func (t *Thread) pop() {
	if len(t.stack) == 0 {
		e := value.NewError(value.ErrInternal, "stack empty - cannot pop")
		t.complete(&e)
		return
	}
	fr := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	t.skipping = fr.skipping
	t.precedence = fr.precedence
	t.pendingOp = fr.op
	t.callCtx = fr.callCtx
	t.assignName = fr.assignName
	t.assignFlags = fr.assignFlags
	t.poppedPos = fr.pos
	t.olderResult = fr.result
	t.setState(fr.st)
}

func (t *Thread) popWithResult(throwErrors bool) {
	t.pop()
	if throwErrors {
		t.checkAndResume()
		return
	}
	t.resume(nil)
}

// unwindStackTo discards everything above the newest frame returning to
// the given state, then pops it ("continue" semantics).
func (t *Thread) unwindStackTo(target state) bool {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.stack[i].st == target {
			t.stack = t.stack[:i+1]
			t.pop()
			return true
		}
	}
	return false
}

// skipUntilReaching puts the newest frame returning to the given state,
// and everything above it, into skip mode so execution parses its way
// out without side effects ("break" and throw-to-catch semantics).
func (t *Thread) skipUntilReaching(target state, throwVal *value.Value) bool {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.stack[i].st == target {
			if throwVal != nil {
				t.stack[i].result = throwVal
			}
			for j := i; j < len(t.stack); j++ {
				t.stack[j].skipping = true
			}
			t.skipping = true
			return true
		}
	}
	return false
}

func (t *Thread) errorAt(code value.ErrorCode, format string, args ...any) value.Value {
	return value.NewError(code, "%s (at %s)", fmt.Sprintf(format, args...), t.src.Describe())
}

func (t *Thread) exitWithSyntaxError(format string, args ...any) {
	t.throwOrComplete(t.errorAt(value.ErrSyntax, format, args...))
}

func isFatal(code value.ErrorCode) bool {
	switch code {
	case value.ErrSyntax, value.ErrInternal, value.ErrAborted, value.ErrTimeout, value.ErrAsyncNotAllowed:
		return true
	}
	return false
}

// throwOrComplete raises an error value: fatal errors terminate the
// thread, others unwind to the nearest try statement or terminate when
// uncaught.
func (t *Thread) throwOrComplete(errVal value.Value) {
	e := errVal.WithThrown(true)
	t.result = &e
	if isFatal(e.Code()) {
		t.complete(&e)
		return
	}
	if !t.skipping {
		if !t.skipUntilReaching(stTryStatement, &e) {
			t.complete(&e)
			return
		}
	}
	t.resume(nil)
}

// complete terminates the thread: cancels any auto-resume timer, fires
// the completion callback exactly once, and notifies the owning context.
func (t *Thread) complete(final *value.Value) {
	if t.dead {
		return
	}
	if t.hasAutoResume {
		t.loop().Cancel(t.autoResume)
		t.hasAutoResume = false
	}
	t.resumed = false
	t.result = final
	if t.result != nil && !t.result.IsError() && t.flags&FlagExpression != 0 {
		t.src.SkipNonCode()
		if !t.src.EOT() {
			e := t.errorAt(value.ErrSyntax, "trailing garbage")
			t.result = &e
		}
	}
	if t.result == nil {
		n := value.NullReason("execution produced no result")
		t.result = &n
	}
	t.stack = nil
	t.st = stDead
	t.dead = true
	t.owner.domain.logf("thread %.8s complete at %s with %s", t.id, t.src.Describe(), t.result.Str())
	if t.cb != nil {
		cb := t.cb
		t.cb = nil
		cb(*t.result)
	}
	t.owner.threadTerminated(t)
}

// Abort cooperatively cancels the thread. A pending child execution
// (builtin or script function call) is aborted first so inner resources
// unwind before the thread finalizes; its callback then completes this
// thread.
func (t *Thread) Abort(res value.Value) {
	if t.dead {
		return
	}
	r := res
	if r.Kind() != value.KindError {
		r = value.NewError(value.ErrAborted, "aborted")
	}
	t.result = &r
	t.aborted = true
	if t.childCtx != nil {
		t.childCtx.abort(r)
		return
	}
	t.complete(t.result)
}

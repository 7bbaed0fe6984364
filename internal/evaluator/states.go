package evaluator

import (
	"strings"

	"github.com/funvibe/automa/internal/source"
	"github.com/funvibe/automa/internal/value"
)

// The handlers below are the per-state continuations of the interpreter.
// They run with the thread's registers (cursor, result, skipping,
// precedence, pending operator) restored to the frame that was popped to
// reach them, and end by pushing/popping frames and resuming.

func keyword(id, kw string) bool { return strings.EqualFold(id, kw) }

// checkKeyword consumes an identifier when it equals the keyword.
func (t *Thread) checkKeyword(kw string) bool {
	id, n := t.src.CheckIdentifier()
	if n > 0 && keyword(id, kw) {
		t.src.Advance(n)
		return true
	}
	return false
}

// MARK: statement level

func (t *Thread) sNoStatement() {
	t.src.NextIf(';')
	t.pop()
	t.checkAndResume()
}

func (t *Thread) sOneStatement() {
	t.setState(stNoStatement)
	t.processStatement()
}

func (t *Thread) sBlock() {
	t.processStatement()
}

func (t *Thread) sBody() {
	t.processStatement()
}

func (t *Thread) processStatement() {
	// the statement just finished may have left an unraised error behind
	// (uncaught throw, refused async call); raise it before going on
	if t.result != nil && t.result.IsError() && !t.result.Thrown() {
		t.throwOrComplete(*t.result)
		return
	}
	t.src.SkipNonCode()
	if t.src.EOT() {
		if t.st != stBody {
			t.exitWithSyntaxError("unexpected end of code")
			return
		}
		t.complete(t.result)
		return
	}
	if t.src.NextIf('{') {
		// new block starts
		t.push(t.st, false)
		t.resumeAt(stBlock)
		return
	}
	if t.src.NextIf('}') {
		if t.st == stBlock {
			t.pop()
			t.checkAndResume()
			return
		}
		t.exitWithSyntaxError("unexpected '}'")
		return
	}
	if t.src.NextIf(';') {
		if t.st == stOneStatement {
			// the separator alone is the one statement we were waiting for
			t.checkAndResume()
			return
		}
		t.src.SkipNonCode()
	}
	// beginning of a statement: no result yet (matters for if/else and try/catch)
	t.result = nil
	memPos := t.src.Pos
	if id, ok := t.src.ParseIdentifier(); ok {
		t.identifier = id
		t.src.SkipNonCode()
		if keyword(id, "if") {
			if !t.src.NextIf('(') {
				t.exitWithSyntaxError("missing '(' after 'if'")
				return
			}
			t.push(t.st, false)
			t.push(stIfCondition, false)
			t.resumeAt(stExpression)
			return
		}
		if keyword(id, "while") {
			if !t.src.NextIf('(') {
				t.exitWithSyntaxError("missing '(' after 'while'")
				return
			}
			t.push(t.st, false)
			t.push(stWhileCondition, false)
			t.resumeAt(stExpression)
			return
		}
		if keyword(id, "break") {
			if !t.skipping {
				if !t.skipUntilReaching(stWhileStatement, nil) {
					t.exitWithSyntaxError("'break' must be within 'while' statement")
					return
				}
				t.checkAndResume()
				return
			}
		}
		if keyword(id, "continue") {
			if !t.skipping {
				if !t.unwindStackTo(stWhileStatement) {
					t.exitWithSyntaxError("'continue' must be within 'while' statement")
					return
				}
				t.checkAndResume()
				return
			}
		}
		if keyword(id, "return") {
			if !t.src.EOT() && t.src.C(0) != ';' {
				if t.skipping {
					// parse over the return expression, then continue
					t.push(t.st, false)
					t.push(stResult, false)
				} else {
					// once the return expression completes, the thread completes
					t.push(stComplete, false)
				}
				t.checkAndResumeAt(stExpression)
				return
			}
			if !t.skipping {
				n := value.NullReason("return nothing")
				t.complete(&n)
				return
			}
			t.checkAndResume()
			return
		}
		if keyword(id, "try") {
			t.push(t.st, false)
			t.push(stTryStatement, false)
			t.resumeAt(stOneStatement)
			return
		}
		if keyword(id, "catch") {
			t.exitWithSyntaxError("'catch' without preceding 'try'")
			return
		}
		if keyword(id, "concurrent") {
			// concurrent [as threadvar] { ... }
			t.src.SkipNonCode()
			varName := ""
			if t.checkKeyword("as") {
				t.src.SkipNonCode()
				if n, ok := t.src.ParseIdentifier(); ok {
					varName = n
					t.src.SkipNonCode()
				}
			}
			if !t.src.NextIf('{') {
				t.exitWithSyntaxError("missing '{' to start concurrent block")
				return
			}
			t.push(t.st, false)
			t.setState(stBlock)
			if !t.skipping {
				t.skipping = true // this thread just parses over the block
				t.startBlockThread(varName)
				return
			}
			t.checkAndResume()
			return
		}
		if keyword(id, "var") {
			t.processVarDefs(vfCreate, true)
			return
		}
		if keyword(id, "glob") || keyword(id, "global") {
			t.processVarDefs(vfCreate|vfOnlyCreate|vfGlobal, true)
			return
		}
		if keyword(id, "let") {
			t.processVarDefs(0, true)
			return
		}
		if keyword(id, "unset") {
			t.processVarDefs(vfUnset, false)
			return
		}
		if keyword(id, "function") {
			t.processFunctionDeclaration()
			return
		}
		if keyword(id, "else") {
			t.exitWithSyntaxError("'else' without preceding 'if'")
			return
		}
		// not a keyword, rewind
		t.src.Pos = memPos
	}
	// expression or assignment statement
	t.push(t.st, false)
	t.resumeAt(stAssignmentExpression)
}

func (t *Thread) processVarDefs(fl varFlags, allowInitializer bool) {
	t.src.SkipNonCode()
	name, ok := t.src.ParseIdentifier()
	if !ok {
		t.exitWithSyntaxError("missing variable name after '%s'", t.identifier)
		return
	}
	t.push(t.st, false) // return here when the definition statement finishes
	t.src.SkipNonCode()
	op := t.src.ParseOperator()
	switch {
	case op == source.OpAssign || op == source.OpAssignOrEq:
		if !allowInitializer {
			t.exitWithSyntaxError("no initializer allowed")
			return
		}
		t.assignName = name
		t.assignFlags = fl
		t.push(stAssignVar, false)
		t.resumeAt(stExpression)
	case op == source.OpNone:
		if fl&vfUnset != 0 {
			if !t.skipping {
				t.owner.assignMember(name, fl, value.Null())
			}
			n := value.NullReason("unset")
			t.result = &n
			t.popWithResult(false)
			return
		}
		// create and initialize with null, unless already existing
		if !t.skipping {
			if fl&vfGlobal != 0 {
				t.owner.domain.SetGlobal(name, value.NullReason("uninitialized global"), true)
			} else if _, exists := t.owner.Var(name); !exists {
				t.owner.SetVar(name, value.NullReason("uninitialized variable"))
			}
		}
		n := value.NullReason("uninitialized variable")
		t.result = &n
		t.popWithResult(false)
	default:
		t.exitWithSyntaxError("assignment or end of statement expected")
	}
}

// processFunctionDeclaration captures "function name(a,b) { ... }" and
// registers it with the main context; the body is skipped over now and
// executed in a child context when called.
func (t *Thread) processFunctionDeclaration() {
	t.src.SkipNonCode()
	name, ok := t.src.ParseIdentifier()
	if !ok {
		t.exitWithSyntaxError("missing function name")
		return
	}
	t.src.SkipNonCode()
	if !t.src.NextIf('(') {
		t.exitWithSyntaxError("missing '(' after function name")
		return
	}
	var params []string
	t.src.SkipNonCode()
	if !t.src.NextIf(')') {
		for {
			t.src.SkipNonCode()
			p, ok := t.src.ParseIdentifier()
			if !ok {
				t.exitWithSyntaxError("missing parameter name")
				return
			}
			params = append(params, p)
			t.src.SkipNonCode()
			if t.src.NextIf(',') {
				continue
			}
			if t.src.NextIf(')') {
				break
			}
			t.exitWithSyntaxError("missing ',' or ')' in parameter list")
			return
		}
	}
	t.src.SkipNonCode()
	if !t.src.NextIf('{') {
		t.exitWithSyntaxError("missing '{' to start function body")
		return
	}
	body := t.src // cursor right after '{'
	if !t.skipBlock() {
		t.exitWithSyntaxError("unterminated function body")
		return
	}
	if !t.skipping {
		if m := t.owner.main; m != nil {
			m.defineFunction(&ScriptFunction{
				name:   name,
				params: params,
				code:   NewCode("function:"+name, body, FlagBlock),
			})
		}
	}
	t.checkAndResume()
}

// skipBlock scans past a balanced {...} whose opening brace was already
// consumed, respecting strings and comments.
func (t *Thread) skipBlock() bool {
	depth := 1
	for depth > 0 {
		t.src.SkipNonCode()
		if t.src.EOT() {
			return false
		}
		switch t.src.C(0) {
		case '{':
			depth++
			t.src.Next()
		case '}':
			depth--
			t.src.Next()
		case '"', '\'':
			t.src.ParseStringLiteral()
		default:
			t.src.Next()
		}
	}
	return true
}

// startBlockThread forks a thread of the same context running the
// concurrent block the current thread is skipping over.
func (t *Thread) startBlockThread(varName string) {
	nt := t.owner.newThreadFrom(t.code, t.src, FlagConcurrently|FlagBlock, nil, 0)
	if nt != nil {
		if varName != "" {
			t.owner.assignMember(varName, vfCreate, value.Thread(nt))
		}
		nt.Run()
	}
	t.checkAndResume()
}

func (t *Thread) sIfCondition() {
	// condition evaluated; a nil result marks the whole else-chain as decided
	if !t.src.NextIf(')') {
		t.exitWithSyntaxError("missing ')' after 'if' condition")
		return
	}
	if !t.skipping {
		cond := t.result != nil && t.result.Bool()
		t.skipping = !cond
		if cond {
			t.result = nil // an executed branch cuts all following else branches
		}
	} else {
		t.result = nil
	}
	t.push(stIfTrueStatement, false)
	t.resumeAt(stOneStatement)
}

func (t *Thread) sIfTrueStatement() {
	// branch executed or skipped; olderResult non-nil means the else
	// chain is still live
	t.src.SkipNonCode()
	if t.checkKeyword("else") {
		t.skipping = t.olderResult == nil
		t.src.SkipNonCode()
		if t.checkKeyword("if") {
			t.src.SkipNonCode()
			if !t.src.NextIf('(') {
				t.exitWithSyntaxError("missing '(' after 'else if'")
				return
			}
			t.result = t.olderResult // carry the chain-decided marker
			t.push(stIfCondition, false)
			t.resumeAt(stExpression)
			return
		}
		t.resumeAt(stOneStatement)
		return
	}
	t.pop()
	t.resume(nil)
}

func (t *Thread) sWhileCondition() {
	// poppedPos is the start of the condition, needed to loop back
	if !t.src.NextIf(')') {
		t.exitWithSyntaxError("missing ')' after 'while' condition")
		return
	}
	if !t.skipping {
		t.skipping = t.result == nil || !t.result.Bool()
	}
	t.push(stWhileStatement, true) // push the loopback position
	t.checkAndResumeAt(stOneStatement)
}

func (t *Thread) sWhileStatement() {
	if t.skipping {
		// condition was false, or break put the stack into skip mode
		t.pop()
		t.checkAndResume()
		return
	}
	t.src.Pos = t.poppedPos
	t.push(stWhileCondition, false)
	t.resumeAt(stExpression)
}

func (t *Thread) sTryStatement() {
	// try statement done; olderResult holds a thrown error when one occurred
	t.src.SkipNonCode()
	if !t.checkKeyword("catch") {
		t.exitWithSyntaxError("missing 'catch' after 'try'")
		return
	}
	caught := t.olderResult != nil && t.olderResult.IsError()
	t.skipping = !caught
	t.src.SkipNonCode()
	t.setState(stOneStatement)
	if t.checkKeyword("as") {
		t.src.SkipNonCode()
		name, ok := t.src.ParseIdentifier()
		if !ok {
			t.exitWithSyntaxError("missing error variable name after 'as'")
			return
		}
		if !t.skipping {
			// the caught error is handled now, it travels as a plain value
			t.owner.assignMember(name, vfCreate, t.olderResult.WithThrown(true))
		}
	}
	if caught {
		t.result = nil // the error is handled
	}
	t.checkAndResume()
}

// MARK: expression level

func (t *Thread) sAssignmentExpression() {
	t.precedence = 0 // the first term may be an assignment target
	t.processExpression()
}

func (t *Thread) sExpression() {
	t.precedence = 1 // first term is not assignable
	t.processExpression()
}

func (t *Thread) sSubExpression() {
	// precedence carried over from the enclosing operator
	t.processExpression()
}

func (t *Thread) processExpression() {
	// optional unary operator
	t.pendingOp = t.src.ParseOperator()
	if t.pendingOp != source.OpNone && t.pendingOp != source.OpSubtract &&
		t.pendingOp != source.OpAdd && t.pendingOp != source.OpNot {
		t.exitWithSyntaxError("invalid unary operator")
		return
	}
	if t.pendingOp != source.OpNone && t.precedence == 0 {
		t.precedence = 1
	}
	if t.src.NextIf('(') {
		t.push(stGroupedExpression, false)
		t.resumeAt(stExpression)
		return
	}
	t.push(stExprFirstTerm, false)
	t.resumeAt(stSimpleTerm)
}

func (t *Thread) sGroupedExpression() {
	if !t.src.NextIf(')') {
		t.exitWithSyntaxError("missing ')'")
		return
	}
	t.push(stExprFirstTerm, false)
	t.resumeAt(stMember) // the grouped result may have members
}

func (t *Thread) sExprFirstTerm() {
	if !t.skipping && t.result != nil && t.result.Defined() {
		switch t.pendingOp {
		case source.OpNot:
			v := value.Bool(!t.result.Bool())
			t.result = &v
		case source.OpSubtract:
			v := value.Number(-t.result.Num())
			t.result = &v
		}
	}
	t.resumeAt(stExprLeftSide)
}

func (t *Thread) sExprLeftSide() {
	opos := t.src.Pos
	t.src.SkipNonCode()
	binop := t.src.ParseOperator()
	if binop == source.OpNot {
		t.exitWithSyntaxError("'!' cannot be used as binary operator")
		return
	}
	newPrecedence := binop.Precedence()
	// done when no operator follows, or one not binding stronger than
	// the enclosing level
	if binop == source.OpNone || newPrecedence <= t.precedence {
		t.src.Pos = opos
		t.popWithResult(false)
		return
	}
	t.pendingOp = binop
	t.push(stExprRightSide, false) // saves the old precedence
	t.precedence = newPrecedence
	t.resumeAt(stSubExpression)
}

func (t *Thread) sExprRightSide() {
	// olderResult is the left side, result the right side
	if !t.skipping {
		left := value.Null()
		if t.olderResult != nil {
			left = *t.olderResult
		}
		right := value.Null()
		if t.result != nil {
			right = *t.result
		}
		var res value.Value
		switch t.pendingOp {
		case source.OpEqual, source.OpAssignOrEq:
			res = value.Bool(left.Equal(right))
		case source.OpNotEqual:
			res = value.Bool(!left.Equal(right))
		default:
			switch {
			case left.Defined() && right.Defined():
				switch t.pendingOp {
				case source.OpAssign:
					t.exitWithSyntaxError("nested assignment not allowed")
					return
				case source.OpDivide:
					res = left.Div(right)
				case source.OpModulo:
					res = left.Mod(right)
				case source.OpMultiply:
					res = left.Mul(right)
				case source.OpAdd:
					res = left.Add(right)
				case source.OpSubtract:
					res = left.Sub(right)
				case source.OpLess:
					res = value.Bool(left.Less(right))
				case source.OpGreater:
					res = value.Bool(right.Less(left))
				case source.OpLessEq:
					res = value.Bool(!right.Less(left))
				case source.OpGreaterEq:
					res = value.Bool(!left.Less(right))
				case source.OpAnd:
					res = value.Bool(left.Bool() && right.Bool())
				case source.OpOr:
					res = value.Bool(left.Bool() || right.Bool())
				default:
					t.exitWithSyntaxError("operator not allowed here")
					return
				}
			case left.IsError():
				res = left
			case right.IsError():
				res = right
			default:
				res = value.NullReason("operation between undefined values")
			}
		}
		t.result = &res
	}
	t.resumeAt(stExprLeftSide) // more chained operators may follow
}

// MARK: terms and member access

func (t *Thread) sSimpleTerm() {
	c := t.src.C(0)
	if c == '"' || c == '\'' {
		v := t.src.ParseStringLiteral()
		t.result = &v
		t.src.SkipNonCode()
		t.resumeAt(stMember) // subscripts may follow the literal
		return
	}
	if c == '{' || c == '[' {
		v := t.src.ParseJSONLiteral()
		t.result = &v
		t.src.SkipNonCode()
		t.resumeAt(stMember) // members/subscripts may follow the literal
		return
	}
	id, ok := t.src.ParseIdentifier()
	if !ok {
		// statement separators can legitimately end up here; anything
		// else must be a numeric/time/date literal
		if !t.src.EOT() && c != '}' && c != ';' {
			v := t.src.ParseNumericLiteral()
			t.result = &v
		}
		t.popWithResult(false)
		return
	}
	t.identifier = id
	t.result = nil // lookup from context scope
	t.olderResult = nil
	t.src.SkipNonCode()
	if t.skipping {
		// assignments parse the same as expressions, no need to check
		t.resumeAt(stMember)
		return
	}
	nc := t.src.C(0)
	if nc != '(' && nc != '.' && nc != '[' {
		// non-overridable constants
		switch {
		case keyword(id, "true") || keyword(id, "yes"):
			v := value.Bool(true)
			t.result = &v
			t.popWithResult(false)
			return
		case keyword(id, "false") || keyword(id, "no"):
			v := value.Bool(false)
			t.result = &v
			t.popWithResult(false)
			return
		case keyword(id, "null") || keyword(id, "undefined"):
			v := value.NullReason("%s", id)
			t.result = &v
			t.popWithResult(false)
			return
		}
		t.assignOrAccess(true)
		return
	}
	t.assignOrAccess(false)
}

// assignOrAccess resolves the identifier in t.identifier either as an
// assignment target (statement position, precedence 0) or as a value.
func (t *Thread) assignOrAccess(allowAssign bool) {
	if !t.skipping {
		if allowAssign && t.precedence == 0 && t.result == nil {
			t.src.SkipNonCode()
			opos := t.src.Pos
			op := t.src.ParseOperator()
			if op == source.OpAssign || op == source.OpAssignOrEq {
				// this IS an assignment; evaluate the right side, then store
				t.assignName = t.identifier
				t.assignFlags = 0
				if op == source.OpAssign {
					t.assignFlags = vfCreate // ':=' declares on assignment
				}
				t.push(stAssignVar, false)
				t.resumeAt(stExpression)
				return
			}
			t.src.Pos = opos
		}
		t.setState(stMember)
		t.memberByIdentifier()
		return
	}
	t.setState(stMember)
	t.resume(nil)
}

func (t *Thread) sMember() {
	// result holds the value just resolved; see whether a member chain
	// or a call follows
	if t.src.NextIf('.') {
		t.src.SkipNonCode()
		id, ok := t.src.ParseIdentifier()
		if !ok {
			t.exitWithSyntaxError("missing identifier after '.'")
			return
		}
		t.identifier = id
		t.src.SkipNonCode()
		t.assignOrAccess(true)
		return
	}
	if t.src.NextIf('[') {
		t.src.SkipNonCode()
		t.push(stSubscriptArg, false)
		t.resumeAt(stExpression)
		return
	}
	if t.src.NextIf('(') {
		if t.precedence == 0 {
			t.precedence = 1 // no longer an assignment candidate
		}
		t.src.SkipNonCode()
		t.setState(stFuncContext)
		if !t.skipping {
			t.newFunctionCallContext()
			return
		}
		t.resume(nil)
		return
	}
	// leaf value
	t.popWithResult(false)
}

func (t *Thread) sSubscriptArg() {
	// result is the subscript, olderResult the object it applies to
	t.src.SkipNonCode()
	if t.src.NextIf(']') {
		t.setState(stMember)
	} else if t.src.NextIf(',') {
		t.src.SkipNonCode()
		t.setState(stNextSubscript)
	} else {
		t.exitWithSyntaxError("missing , or ] after subscript")
		return
	}
	if t.skipping {
		t.checkAndResume()
		return
	}
	sub := value.Null()
	if t.result != nil {
		sub = *t.result
	}
	t.result = t.olderResult // object to access a member of
	if sub.Kind() == value.KindNumber {
		t.memberByIndex(int(sub.Int()))
		return
	}
	t.identifier = sub.Str()
	t.memberByIdentifier()
}

func (t *Thread) sNextSubscript() {
	// result is the object the next subscript applies to
	t.push(stSubscriptArg, false)
	t.checkAndResumeAt(stExpression)
}

// memberByIdentifier resolves t.identifier against the current result
// (member access) or the context scope chain. A missing member of a
// value reads as annotated null; an unresolvable identifier is a
// NotFound error.
func (t *Thread) memberByIdentifier() {
	if t.result != nil {
		v, ok := memberOfValue(*t.result, t.identifier)
		if !ok {
			v = value.NullReason("no member '%s'", t.identifier)
		}
		t.result = &v
		t.resume(nil)
		return
	}
	v, ok := t.owner.lookupMember(t.identifier)
	if !ok {
		// overridable convenience constants
		weekdays := [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}
		for w, wd := range weekdays {
			if keyword(t.identifier, wd) {
				v = value.Int(int64(w))
				ok = true
				break
			}
		}
	}
	if !ok {
		e := t.errorAt(value.ErrNotFound, "'%s' unknown here", t.identifier)
		t.result = &e
	} else {
		t.result = &v
	}
	t.resume(nil)
}

func (t *Thread) memberByIndex(i int) {
	if t.result != nil {
		v, ok := elementOfValue(*t.result, i)
		if !ok {
			v = value.NullReason("no element %d", i)
		}
		t.result = &v
		t.resume(nil)
		return
	}
	e := t.errorAt(value.ErrNotFound, "array element %d unknown here", i)
	t.result = &e
	t.resume(nil)
}

// memberOfValue reads a named member of a structured value.
func memberOfValue(v value.Value, name string) (value.Value, bool) {
	if v.Kind() == value.KindJSON {
		if m, ok := v.JSONData().(map[string]any); ok {
			if child, ok := m[name]; ok {
				return jsonChild(child), true
			}
		}
	}
	return value.Value{}, false
}

// elementOfValue reads an indexed element of a structured value.
func elementOfValue(v value.Value, i int) (value.Value, bool) {
	if v.Kind() == value.KindJSON {
		if a, ok := v.JSONData().([]any); ok && i >= 0 && i < len(a) {
			return jsonChild(a[i]), true
		}
	}
	if v.Kind() == value.KindString {
		s := v.Str()
		if i >= 0 && i < len(s) {
			return value.String(string(s[i])), true
		}
	}
	return value.Value{}, false
}

func jsonChild(data any) value.Value {
	switch d := data.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(d)
	case float64:
		return value.Number(d)
	case string:
		return value.String(d)
	default:
		return value.JSON(d)
	}
}

// MARK: function calls

func (t *Thread) newFunctionCallContext() {
	if t.result != nil {
		if c, ok := t.result.Callable().(callable); ok {
			cc, errv := c.contextForCall(t)
			if errv.IsError() {
				t.result = &errv
			} else {
				t.callCtx = cc
			}
		}
	}
	if t.callCtx == nil && (t.result == nil || !t.result.IsError()) {
		e := t.errorAt(value.ErrNotCallable, "not a function")
		t.result = &e
	}
	t.checkAndResume()
}

func (t *Thread) sFuncContext() {
	if t.src.NextIf(')') {
		t.resumeAt(stFuncExec)
		return
	}
	t.push(stFuncArg, false)
	t.resumeAt(stExpression)
}

func (t *Thread) sFuncArg() {
	// result is the argument value, olderResult the function
	arg := t.result
	t.result = t.olderResult
	t.src.SkipNonCode()
	if t.src.NextIf(')') {
		t.setState(stFuncExec)
	} else if t.src.NextIf(',') {
		t.src.SkipNonCode()
		t.push(stFuncArg, false)
		t.setState(stExpression)
	} else {
		t.exitWithSyntaxError("missing , or ) after function argument")
		return
	}
	if t.skipping {
		t.checkAndResume()
		return
	}
	t.pushFunctionArgument(arg)
}

func (t *Thread) pushFunctionArgument(arg *value.Value) {
	if t.callCtx != nil {
		a := value.Null()
		if arg != nil {
			a = *arg
		}
		callee, _ := t.result.Callable().(callable)
		if errVal := checkAndSetArg(t.callCtx, callee, t.callCtx.numArgs(), &a); errVal != nil {
			t.result = errVal
		}
	}
	t.checkAndResume()
}

func (t *Thread) sFuncExec() {
	t.setState(stMember) // the call result may have members
	if t.skipping {
		t.checkAndResume()
		return
	}
	t.executeResult()
}

// executeResult dispatches the prepared call context; completion (maybe
// much later, for async functions) resumes this thread with the result.
func (t *Thread) executeResult() {
	if t.callCtx != nil && t.result != nil {
		callee, _ := t.result.Callable().(callable)
		if errVal := checkAndSetArg(t.callCtx, callee, t.callCtx.numArgs(), nil); errVal != nil {
			t.result = errVal
			t.checkAndResume()
			return
		}
		t.childCtx = t.callCtx
		cc := t.callCtx
		cc.execute((t.flags&^scopeMask)|FlagKeepVars, func(v value.Value) {
			t.executedResult(v)
		})
		return
	}
	e := t.errorAt(value.ErrInternal, "cannot execute object")
	t.result = &e
	t.checkAndResume()
}

func (t *Thread) executedResult(v value.Value) {
	t.childCtx = nil
	r := v
	t.resume(&r)
}

// MARK: assignment

func (t *Thread) sAssignVar() {
	// result is the value to assign, target name and flags are restored
	// from the frame
	if t.result != nil && t.result.IsError() && !t.result.Thrown() {
		t.throwOrComplete(*t.result)
		return
	}
	t.setState(stResult)
	if !t.skipping {
		v := value.Null()
		if t.result != nil {
			v = *t.result
		}
		res := t.owner.assignMember(t.assignName, t.assignFlags, v)
		t.result = &res
	}
	t.resume(nil)
}

package value

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Kind identifies which variant a Value holds. A Value holds exactly one.
type Kind uint8

const (
	KindNull Kind = iota
	KindError
	KindNumber
	KindString
	KindJSON
	KindFunction
	KindThread
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindError:
		return "error"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindJSON:
		return "json"
	case KindFunction:
		return "function"
	case KindThread:
		return "thread"
	}
	return "invalid"
}

// ErrorCode classifies script-level failures.
type ErrorCode int

const (
	ErrNone ErrorCode = iota
	ErrUser
	ErrSyntax
	ErrDivisionByZero
	ErrCyclicReference
	ErrInvalid
	ErrInternal
	ErrBusy
	ErrNotFound
	ErrNotCreated
	ErrImmutable
	ErrNotCallable
	ErrAborted
	ErrTimeout
	ErrAsyncNotAllowed
)

var errorCodeNames = map[ErrorCode]string{
	ErrNone:            "OK",
	ErrUser:            "User",
	ErrSyntax:          "Syntax",
	ErrDivisionByZero:  "DivisionByZero",
	ErrCyclicReference: "CyclicReference",
	ErrInvalid:         "Invalid",
	ErrInternal:        "Internal",
	ErrBusy:            "Busy",
	ErrNotFound:        "NotFound",
	ErrNotCreated:      "NotCreated",
	ErrImmutable:       "Immutable",
	ErrNotCallable:     "NotCallable",
	ErrAborted:         "Aborted",
	ErrTimeout:         "Timeout",
	ErrAsyncNotAllowed: "AsyncNotAllowed",
}

func (c ErrorCode) String() string {
	if n, ok := errorCodeNames[c]; ok {
		return n
	}
	return "Unknown"
}

// Callable is implemented by executable references (script functions,
// builtins) stored in a Value. The concrete call protocol lives in the
// evaluator; Value only transports the reference.
type Callable interface {
	FuncName() string
}

// ThreadRef is implemented by references to running script threads.
type ThreadRef interface {
	ThreadID() string
}

// Value is a tagged variant: null (with an annotation saying why), error
// (with code and message), number, string, JSON data, callable reference
// or thread reference. Values are immutable once constructed.
type Value struct {
	kind   Kind
	num    float64
	str    string // string payload, null annotation, or error message
	code   ErrorCode
	thrown bool
	data   any // decoded JSON payload
	fn     Callable
	thr    ThreadRef
}

func Null() Value { return Value{kind: KindNull, str: "undefined"} }

// NullReason makes a null that remembers why there is no value.
func NullReason(format string, args ...any) Value {
	return Value{kind: KindNull, str: fmt.Sprintf(format, args...)}
}

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }

func Bool(b bool) Value {
	if b {
		return Value{kind: KindNumber, num: 1}
	}
	return Value{kind: KindNumber, num: 0}
}

func String(s string) Value { return Value{kind: KindString, str: s} }

// JSON wraps an already-decoded JSON payload (map[string]any, []any,
// float64, string, bool or nil).
func JSON(data any) Value { return Value{kind: KindJSON, data: data} }

func NewError(code ErrorCode, format string, args ...any) Value {
	return Value{kind: KindError, code: code, str: fmt.Sprintf(format, args...)}
}

// ErrorFromGo wraps a Go error as a script error value.
func ErrorFromGo(err error) Value {
	return Value{kind: KindError, code: ErrInternal, str: err.Error()}
}

func Func(fn Callable) Value { return Value{kind: KindFunction, fn: fn} }

func Thread(t ThreadRef) Value { return Value{kind: KindThread, thr: t} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsError() bool { return v.kind == KindError }

// Defined reports whether the value represents an actual result, i.e. is
// neither null nor an error.
func (v Value) Defined() bool { return v.kind != KindNull && v.kind != KindError }

func (v Value) Code() ErrorCode {
	if v.kind == KindError {
		return v.code
	}
	return ErrNone
}

func (v Value) ErrorMessage() string {
	if v.kind == KindError {
		return v.str
	}
	return ""
}

// Annotation returns the reason attached to a null value.
func (v Value) Annotation() string {
	if v.kind == KindNull {
		return v.str
	}
	return ""
}

// Thrown reports whether this error value has already been thrown (and
// caught or delivered). Such errors travel as plain values; a fresh,
// unthrown error aborts the evaluation that produces it.
func (v Value) Thrown() bool { return v.kind == KindError && v.thrown }

func (v Value) WithThrown(t bool) Value {
	v.thrown = t && v.kind == KindError
	return v
}

func (v Value) Callable() Callable { return v.fn }

func (v Value) ThreadRef() ThreadRef { return v.thr }

// JSONData returns the decoded payload of a JSON value, or nil.
func (v Value) JSONData() any {
	if v.kind == KindJSON {
		return v.data
	}
	return nil
}

// Err converts an error value into a Go error, nil for everything else.
func (v Value) Err() error {
	if v.kind != KindError {
		return nil
	}
	return fmt.Errorf("%s: %s", v.code, v.str)
}

// Num coerces to a number. Strings are parsed with the full numeric
// literal grammar (including hh:mm[:ss] clock times and dd.mm. dates);
// unparseable strings, nulls and errors coerce to 0.
func (v Value) Num() float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		n, err := ParseLiteralNumber(v.str)
		if err != nil {
			return 0
		}
		return n
	case KindJSON:
		switch d := v.data.(type) {
		case float64:
			return d
		case bool:
			if d {
				return 1
			}
			return 0
		case string:
			n, err := ParseLiteralNumber(d)
			if err != nil {
				return 0
			}
			return n
		}
	}
	return 0
}

func (v Value) Int() int64 { return int64(v.Num()) }

// Bool coerces to a truth value: numbers by non-zero, strings by
// non-emptiness, JSON by non-null/non-empty, null and errors are false.
func (v Value) Bool() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0
	case KindString:
		return len(v.str) > 0
	case KindJSON:
		switch d := v.data.(type) {
		case nil:
			return false
		case bool:
			return d
		case float64:
			return d != 0
		case string:
			return len(d) > 0
		case []any:
			return len(d) > 0
		case map[string]any:
			return len(d) > 0
		}
		return true
	case KindFunction, KindThread:
		return true
	}
	return false
}

// Str coerces to a string. Numbers render as locale-independent decimals,
// null renders as "undefined", errors as "error: message".
func (v Value) Str() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindString:
		return v.str
	case KindNull:
		return "undefined"
	case KindError:
		return fmt.Sprintf("error (%s): %s", v.code, v.str)
	case KindJSON:
		b, err := json.Marshal(v.data)
		if err != nil {
			return ""
		}
		return string(b)
	case KindFunction:
		if v.fn != nil {
			return "function: " + v.fn.FuncName()
		}
		return "function"
	case KindThread:
		if v.thr != nil {
			return "thread: " + v.thr.ThreadID()
		}
		return "thread"
	}
	return ""
}

// FormatNumber renders a float the way script output expects: integers
// without a decimal point, everything else in shortest form.
func FormatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// Equal implements script equality: two nulls are equal (both mean "no
// value"), a null never equals a defined value, errors compare by code,
// and otherwise operands are compared numerically when either side is a
// number, else textually.
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == KindNull && o.kind == KindNull
	}
	if v.kind == KindError || o.kind == KindError {
		return v.kind == KindError && o.kind == KindError && v.code == o.code
	}
	switch {
	case v.kind == KindNumber || o.kind == KindNumber:
		return v.Num() == o.Num()
	case v.kind == KindString && o.kind == KindString:
		return v.str == o.str
	case v.kind == KindJSON && o.kind == KindJSON:
		return reflect.DeepEqual(v.data, o.data)
	case v.kind == KindFunction && o.kind == KindFunction:
		return v.fn == o.fn
	case v.kind == KindThread && o.kind == KindThread:
		return v.thr == o.thr
	}
	return false
}

// Less implements script ordering. Non-orderable operands (nulls, errors,
// mismatched kinds without a numeric side) compare as false rather than
// raising.
func (v Value) Less(o Value) bool {
	if !v.Defined() || !o.Defined() {
		return false
	}
	if v.kind == KindString && o.kind == KindString {
		return v.str < o.str
	}
	if v.kind == KindNumber || o.kind == KindNumber {
		return v.Num() < o.Num()
	}
	return false
}

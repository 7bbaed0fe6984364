package value

import "math"

// propagate returns the operand that pre-empts a binary operation: an
// error on either side wins (left first), then a null on either side.
func propagate(a, b Value) (Value, bool) {
	if a.kind == KindError {
		return a, true
	}
	if b.kind == KindError {
		return b, true
	}
	if a.kind == KindNull {
		return a, true
	}
	if b.kind == KindNull {
		return b, true
	}
	return Value{}, false
}

// Add is numeric addition, or concatenation when either operand is a
// string.
func (v Value) Add(o Value) Value {
	if p, ok := propagate(v, o); ok {
		return p
	}
	if v.kind == KindString || o.kind == KindString {
		return String(v.Str() + o.Str())
	}
	return Number(v.Num() + o.Num())
}

func (v Value) Sub(o Value) Value {
	if p, ok := propagate(v, o); ok {
		return p
	}
	return Number(v.Num() - o.Num())
}

func (v Value) Mul(o Value) Value {
	if p, ok := propagate(v, o); ok {
		return p
	}
	return Number(v.Num() * o.Num())
}

// Div yields a DivisionByZero error value for a zero divisor instead of
// an infinity.
func (v Value) Div(o Value) Value {
	if p, ok := propagate(v, o); ok {
		return p
	}
	d := o.Num()
	if d == 0 {
		return NewError(ErrDivisionByZero, "division by zero")
	}
	return Number(v.Num() / d)
}

func (v Value) Mod(o Value) Value {
	if p, ok := propagate(v, o); ok {
		return p
	}
	d := o.Num()
	if d == 0 {
		return NewError(ErrDivisionByZero, "modulo by zero")
	}
	return Number(math.Mod(v.Num(), d))
}

func (v Value) Neg() Value {
	if v.kind == KindError || v.kind == KindNull {
		return v
	}
	return Number(-v.Num())
}

func (v Value) Not() Value {
	if v.kind == KindError {
		return v
	}
	return Bool(!v.Bool())
}

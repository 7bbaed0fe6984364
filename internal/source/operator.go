package source

// Operator encodes identity and binding strength in one byte: the low 3
// bits are the precedence used by the precedence-climbing evaluator, the
// high bits identify the operator.
type Operator uint8

const PrecedenceMask Operator = 0x07

const (
	OpNone       Operator = 0<<3 + 7
	OpNot        Operator = 1<<3 + 7
	OpMultiply   Operator = 2<<3 + 6
	OpDivide     Operator = 3<<3 + 6
	OpModulo     Operator = 4<<3 + 6
	OpAdd        Operator = 5<<3 + 5
	OpSubtract   Operator = 6<<3 + 5
	OpEqual      Operator = 7<<3 + 4
	OpAssignOrEq Operator = 8<<3 + 4 // '=' in flexible mode: assignment or comparison by position
	OpNotEqual   Operator = 9<<3 + 4
	OpLess       Operator = 10<<3 + 4
	OpGreater    Operator = 11<<3 + 4
	OpLessEq     Operator = 12<<3 + 4
	OpGreaterEq  Operator = 13<<3 + 4
	OpAnd        Operator = 14<<3 + 3
	OpOr         Operator = 15<<3 + 2
	OpAssign     Operator = 16<<3 + 0
)

func (o Operator) Precedence() int { return int(o & PrecedenceMask) }

// ParseOperator scans an operator (longest match), consuming it and any
// surrounding non-code. Returns OpNone without advancing past the
// operator position when none is present.
func (cu *Cursor) ParseOperator() Operator {
	cu.SkipNonCode()
	op := OpNone
	o := 0
	switch cu.C(0) {
	case ':':
		if cu.C(1) != '=' {
			return OpNone
		}
		o = 2
		op = OpAssign
	case '=':
		if cu.C(1) == '=' {
			o = 2
			op = OpEqual
		} else {
			o = 1
			op = OpAssignOrEq
		}
	case '*':
		o = 1
		op = OpMultiply
	case '/':
		o = 1
		op = OpDivide
	case '%':
		o = 1
		op = OpModulo
	case '+':
		o = 1
		op = OpAdd
	case '-':
		o = 1
		op = OpSubtract
	case '&':
		o = 1
		op = OpAnd
		if cu.C(1) == '&' {
			o = 2
		}
	case '|':
		o = 1
		op = OpOr
		if cu.C(1) == '|' {
			o = 2
		}
	case '<':
		switch cu.C(1) {
		case '=':
			o = 2
			op = OpLessEq
		case '>':
			o = 2
			op = OpNotEqual
		default:
			o = 1
			op = OpLess
		}
	case '>':
		if cu.C(1) == '=' {
			o = 2
			op = OpGreaterEq
		} else {
			o = 1
			op = OpGreater
		}
	case '!':
		if cu.C(1) == '=' {
			o = 2
			op = OpNotEqual
		} else {
			o = 1
			op = OpNot
		}
	default:
		return OpNone
	}
	cu.Advance(o)
	cu.SkipNonCode()
	return op
}

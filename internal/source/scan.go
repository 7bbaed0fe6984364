package source

import (
	"encoding/json"
	"strings"

	"github.com/funvibe/automa/internal/value"
)

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isAlphaNum(b byte) bool {
	return isAlpha(b) || (b >= '0' && b <= '9')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// SkipNonCode skips whitespace and // and /* */ comments until the
// cursor rests on code (or end of text).
func (cu *Cursor) SkipNonCode() {
	for {
		for isSpace(cu.C(0)) {
			cu.Next()
		}
		if cu.C(0) == '/' && cu.C(1) == '/' {
			for !cu.EOT() && cu.C(0) != '\n' {
				cu.Next()
			}
			continue
		}
		if cu.C(0) == '/' && cu.C(1) == '*' {
			cu.Advance(2)
			for !cu.EOT() && !(cu.C(0) == '*' && cu.C(1) == '/') {
				cu.Next()
			}
			cu.Advance(2)
			continue
		}
		return
	}
}

// CheckIdentifier peeks an identifier at the cursor without consuming it,
// returning the identifier and its length (0 when none).
func (cu *Cursor) CheckIdentifier() (string, int) {
	if !isAlpha(cu.C(0)) {
		return "", 0
	}
	n := 1
	for isAlphaNum(cu.C(n)) {
		n++
	}
	return cu.Source.text[cu.Pos.Offset : cu.Pos.Offset+n], n
}

// ParseIdentifier scans and consumes an identifier.
func (cu *Cursor) ParseIdentifier() (string, bool) {
	id, n := cu.CheckIdentifier()
	if n == 0 {
		return "", false
	}
	cu.Advance(n)
	return id, true
}

// ParseNumericLiteral scans a number, clock time or date literal into a
// value. On failure the cursor stays put and a syntax error value is
// returned.
func (cu *Cursor) ParseNumericLiteral() value.Value {
	n, used, err := value.ScanLiteralNumber(cu.Rest())
	if err != nil {
		return value.NewError(value.ErrSyntax, "%s (at %s)", err.Error(), cu.Describe())
	}
	cu.Advance(used)
	return value.Number(n)
}

// ParseStringLiteral scans a string literal. Double-quoted strings use
// backslash escapes; single-quoted strings have no escapes but allow the
// delimiter to be doubled.
func (cu *Cursor) ParseStringLiteral() value.Value {
	delim := cu.C(0)
	if delim != '"' && delim != '\'' {
		return value.NewError(value.ErrSyntax, "invalid string literal (at %s)", cu.Describe())
	}
	cu.Next()
	var b strings.Builder
	for {
		sc := cu.C(0)
		if sc == delim {
			if delim == '\'' && cu.C(1) == delim {
				b.WriteByte(delim)
				cu.Advance(2)
				continue
			}
			cu.Next()
			return value.String(b.String())
		}
		if cu.EOT() {
			return value.NewError(value.ErrSyntax, "unterminated string (at %s)", cu.Describe())
		}
		if delim == '"' && sc == '\\' {
			cu.Next()
			ec := cu.C(0)
			if cu.EOT() {
				return value.NewError(value.ErrSyntax, "incomplete escape (at %s)", cu.Describe())
			}
			switch ec {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'x':
				h := 0
				n := 0
				for n < 2 {
					d := hexVal(cu.C(n + 1))
					if d < 0 {
						break
					}
					h = h*16 + d
					n++
				}
				if n == 0 {
					return value.NewError(value.ErrSyntax, "invalid hex escape (at %s)", cu.Describe())
				}
				b.WriteByte(byte(h))
				cu.Advance(n)
			default:
				b.WriteByte(ec)
			}
			cu.Next()
			continue
		}
		b.WriteByte(sc)
		cu.Next()
	}
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}

// ParseJSONLiteral decodes one {...} or [...] literal using the JSON
// library, consuming exactly the bytes of the literal.
func (cu *Cursor) ParseJSONLiteral() value.Value {
	if cu.C(0) != '{' && cu.C(0) != '[' {
		return value.NewError(value.ErrSyntax, "invalid JSON literal (at %s)", cu.Describe())
	}
	dec := json.NewDecoder(strings.NewReader(cu.Rest()))
	var data any
	if err := dec.Decode(&data); err != nil {
		return value.NewError(value.ErrSyntax, "invalid JSON literal: %v (at %s)", err, cu.Describe())
	}
	cu.Advance(int(dec.InputOffset()))
	return value.JSON(data)
}

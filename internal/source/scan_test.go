package source

import (
	"testing"
)

func cursorFor(text string) Cursor {
	return NewCursor(NewContainer("test", text))
}

func TestSkipNonCode(t *testing.T) {
	cu := cursorFor("  // line comment\n\t/* block\ncomment */  x")
	cu.SkipNonCode()
	if cu.C(0) != 'x' {
		t.Errorf("cursor rests on %q, want 'x'", cu.C(0))
	}
	if cu.Pos.Line != 2 {
		t.Errorf("line accounting = %d, want 2", cu.Pos.Line)
	}
}

func TestParseIdentifier(t *testing.T) {
	cu := cursorFor("some_var1 + 2")
	id, ok := cu.ParseIdentifier()
	if !ok || id != "some_var1" {
		t.Fatalf("ParseIdentifier = %q, %v", id, ok)
	}
	if cu.C(0) != ' ' {
		t.Errorf("cursor not advanced past identifier")
	}
	cu = cursorFor("1abc")
	if _, ok := cu.ParseIdentifier(); ok {
		t.Error("identifier must not start with a digit")
	}
}

func TestCheckIdentifierDoesNotConsume(t *testing.T) {
	cu := cursorFor("foo(")
	id, n := cu.CheckIdentifier()
	if id != "foo" || n != 3 {
		t.Fatalf("CheckIdentifier = %q, %d", id, n)
	}
	if cu.Pos.Offset != 0 {
		t.Error("CheckIdentifier moved the cursor")
	}
}

func TestParseStringLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"plain"`, "plain"},
		{`"a\nb\tc"`, "a\nb\tc"},
		{`"\x41\x42"`, "AB"},
		{`"quote \" inside"`, `quote " inside`},
		{`'no \escapes'`, `no \escapes`},
		{`'it''s'`, "it's"},
	}
	for _, tt := range tests {
		cu := cursorFor(tt.in)
		v := cu.ParseStringLiteral()
		if v.IsError() {
			t.Errorf("ParseStringLiteral(%s): %s", tt.in, v.Str())
			continue
		}
		if v.Str() != tt.want {
			t.Errorf("ParseStringLiteral(%s) = %q, want %q", tt.in, v.Str(), tt.want)
		}
		if !cu.EOT() {
			t.Errorf("ParseStringLiteral(%s) left %q unconsumed", tt.in, cu.Rest())
		}
	}
}

func TestParseStringLiteralUnterminated(t *testing.T) {
	cu := cursorFor(`"never ends`)
	if v := cu.ParseStringLiteral(); !v.IsError() {
		t.Errorf("unterminated string parsed as %q", v.Str())
	}
}

func TestParseNumericLiteral(t *testing.T) {
	cu := cursorFor("14:57:42;")
	v := cu.ParseNumericLiteral()
	if v.IsError() {
		t.Fatalf("unexpected error: %s", v.Str())
	}
	if v.Num() != 53862 {
		t.Errorf("time literal = %v, want 53862", v.Num())
	}
	if cu.C(0) != ';' {
		t.Errorf("cursor should rest on ';', is on %q", cu.C(0))
	}
}

func TestParseJSONLiteral(t *testing.T) {
	cu := cursorFor(`{"a":[1,2],"b":"x"}.a`)
	v := cu.ParseJSONLiteral()
	if v.IsError() {
		t.Fatalf("unexpected error: %s", v.Str())
	}
	m, ok := v.JSONData().(map[string]any)
	if !ok {
		t.Fatalf("payload is %T, want map", v.JSONData())
	}
	if m["b"] != "x" {
		t.Errorf("field b = %v", m["b"])
	}
	if cu.Rest() != ".a" {
		t.Errorf("rest after literal = %q, want \".a\"", cu.Rest())
	}
}

func TestCursorLineTracking(t *testing.T) {
	cu := cursorFor("ab\ncd")
	for !cu.EOT() {
		cu.Next()
	}
	if cu.Pos.Line != 1 {
		t.Errorf("line = %d, want 1", cu.Pos.Line)
	}
	if cu.Col() != 2 {
		t.Errorf("col = %d, want 2", cu.Col())
	}
}

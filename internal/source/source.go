// Package source holds script source text and the forward-only scanning
// cursor the interpreter reads it through. Cursors are small value types;
// every stack frame of a running thread stores one, all sharing the same
// immutable Container.
package source

import "fmt"

// Container owns one immutable piece of source text plus a label naming
// where it came from (file name, "repl", host object id). Compiled code
// and stack frames reference positions in it, so replacing a script's
// text means building a new Container and dropping everything that points
// into the old one.
type Container struct {
	origin string
	text   string
}

func NewContainer(origin, text string) *Container {
	return &Container{origin: origin, text: text}
}

func (c *Container) Origin() string { return c.origin }

func (c *Container) Text() string { return c.text }

// Pos is a location in a Container: byte offset plus line bookkeeping for
// error reporting.
type Pos struct {
	Offset    int
	Line      int // 0-based
	LineStart int // offset of the first byte of the current line
}

// Cursor is a forward-only scanner over a Container. It is copied freely
// (frames keep their own), so all methods use pointer receivers only to
// mutate the local copy.
type Cursor struct {
	Source *Container
	Pos    Pos
}

func NewCursor(c *Container) Cursor {
	return Cursor{Source: c}
}

// C returns the byte at the given lookahead offset, or 0 at end of text.
func (cu *Cursor) C(off int) byte {
	i := cu.Pos.Offset + off
	if cu.Source == nil || i >= len(cu.Source.text) || i < 0 {
		return 0
	}
	return cu.Source.text[i]
}

func (cu *Cursor) EOT() bool {
	return cu.Source == nil || cu.Pos.Offset >= len(cu.Source.text)
}

// Next advances one byte, maintaining line accounting.
func (cu *Cursor) Next() {
	if cu.EOT() {
		return
	}
	if cu.Source.text[cu.Pos.Offset] == '\n' {
		cu.Pos.Line++
		cu.Pos.LineStart = cu.Pos.Offset + 1
	}
	cu.Pos.Offset++
}

func (cu *Cursor) Advance(n int) {
	for i := 0; i < n && !cu.EOT(); i++ {
		cu.Next()
	}
}

// NextIf consumes the next byte when it matches.
func (cu *Cursor) NextIf(b byte) bool {
	if cu.C(0) == b {
		cu.Next()
		return true
	}
	return false
}

func (cu *Cursor) Col() int { return cu.Pos.Offset - cu.Pos.LineStart }

// Rest returns the unscanned remainder of the text.
func (cu *Cursor) Rest() string {
	if cu.Source == nil || cu.Pos.Offset >= len(cu.Source.text) {
		return ""
	}
	return cu.Source.text[cu.Pos.Offset:]
}

// Describe renders the position for error messages.
func (cu *Cursor) Describe() string {
	origin := "unknown"
	if cu.Source != nil {
		origin = cu.Source.origin
	}
	return fmt.Sprintf("%s:%d:%d", origin, cu.Pos.Line+1, cu.Col()+1)
}

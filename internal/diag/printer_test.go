package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if p.color {
		t.Fatal("a bytes.Buffer destination must never be colorized")
	}
	if len(p.Tag) != 8 {
		t.Fatalf("tag %q has length %d, want 8", p.Tag, len(p.Tag))
	}

	p.Print(Typecheck("bad call to %s", "add"))

	got := buf.String()
	want := "[" + p.Tag + "] typecheck_error: bad call to add\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPrinterTagsAreIndependentPerCompilation(t *testing.T) {
	var a, b bytes.Buffer
	pa := NewPrinter(&a)
	pb := NewPrinter(&b)
	if pa.Tag == pb.Tag {
		t.Fatalf("two printers produced the same correlation tag %q", pa.Tag)
	}
}

func TestErrorKindStrings(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{LexError, "lex_error"},
		{ParseError, "parse_error"},
		{ResolutionError, "resolution_error"},
		{TypecheckError, "typecheck_error"},
		{LinkError, "link_error"},
	}
	for _, c := range cases {
		if got := c.kind.String(); got != c.want {
			t.Errorf("Kind(%d).String() = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestConstructorsSetKind(t *testing.T) {
	if err := Resolution("undeclared name %q", "x"); err.Kind != ResolutionError || !strings.Contains(err.Message, "x") {
		t.Errorf("Resolution() = %+v", err)
	}
	if err := Typecheck("mismatch"); err.Kind != TypecheckError {
		t.Errorf("Typecheck() = %+v", err)
	}
	if err := Link("bad label"); err.Kind != LinkError {
		t.Errorf("Link() = %+v", err)
	}
}

package loc

import "testing"

type fakeBC struct {
	section string
	offset  uint64
	known   bool
}

func (f *fakeBC) Section() string       { return f.section }
func (f *fakeBC) Index() int            { return 0 }
func (f *fakeBC) Offset() (uint64, bool) { return f.offset, f.known }

func TestOffsetUnresolvedUntilBytecodeKnown(t *testing.T) {
	bc := &fakeBC{section: "text", known: false}
	l := New(bc, 4)
	if _, ok := l.Offset(); ok {
		t.Fatal("expected Offset to fail before the bytecode is resolved")
	}
	bc.offset, bc.known = 100, true
	off, ok := l.Offset()
	if !ok || off != 104 {
		t.Fatalf("got off=%d ok=%v, want 104,true", off, ok)
	}
}

func TestSameSection(t *testing.T) {
	a := New(&fakeBC{section: "text"}, 0)
	b := New(&fakeBC{section: "text"}, 8)
	c := New(&fakeBC{section: "data"}, 0)
	if !a.SameSection(b) {
		t.Fatal("expected same-section locations to match")
	}
	if a.SameSection(c) {
		t.Fatal("expected different-section locations to not match")
	}
}

func TestInvalidLocation(t *testing.T) {
	var l Location
	if l.IsValid() {
		t.Fatal("zero-value Location should be invalid")
	}
	if l.Section() != "" {
		t.Fatalf("zero-value Location.Section() = %q, want empty", l.Section())
	}
}

func TestEqual(t *testing.T) {
	bc := &fakeBC{section: "text"}
	a := New(bc, 4)
	b := New(bc, 4)
	c := New(bc, 8)
	if !a.Equal(b) {
		t.Fatal("expected equal locations to compare equal")
	}
	if a.Equal(c) {
		t.Fatal("expected different offsets to compare unequal")
	}
}

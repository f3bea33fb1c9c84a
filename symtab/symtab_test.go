package symtab

import (
	"testing"

	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
	"github.com/intuitionamiga/ieasm/loc"
)

type fakeBC struct {
	section string
	index   int
	offset  uint64
	known   bool
}

func (f *fakeBC) Section() string          { return f.section }
func (f *fakeBC) Index() int                { return f.index }
func (f *fakeBC) Offset() (uint64, bool)    { return f.offset, f.known }

func TestLookupOrCreateIdempotent(t *testing.T) {
	tbl := New()
	a := tbl.LookupOrCreate("foo")
	b := tbl.LookupOrCreate("foo")
	if a != b {
		t.Fatal("LookupOrCreate returned distinct handles for the same name")
	}
}

func TestDefineLabelOnce(t *testing.T) {
	tbl := New()
	s := tbl.LookupOrCreate("start")
	bc := &fakeBC{section: "text", index: 0, offset: 0, known: true}
	l := loc.New(bc, 0)
	if err := tbl.DefineLabel(s, l, nil); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateLabel {
		t.Fatalf("state = %s, want label", s.State())
	}
	if err := tbl.DefineLabel(s, l, nil); err != nil {
		t.Fatalf("idempotent redefinition to the same location failed: %v", err)
	}
	other := loc.New(&fakeBC{section: "text", index: 1, offset: 8, known: true}, 0)
	if err := tbl.DefineLabel(s, other, nil); err == nil {
		t.Fatal("expected redefinition error for a different location")
	}
}

func TestDefineEquThenLabelConflicts(t *testing.T) {
	tbl := New()
	s := tbl.LookupOrCreate("x")
	val := expr.Int(intOf(5))
	if err := tbl.DefineEqu(s, val, nil); err != nil {
		t.Fatal(err)
	}
	bc := &fakeBC{section: "text", known: true}
	if err := tbl.DefineLabel(s, loc.New(bc, 0), nil); err == nil {
		t.Fatal("expected error redefining an equ as a label")
	}
}

func TestSpecialSymbolNotRedefinable(t *testing.T) {
	tbl := New()
	special := &Symbol{name: "$", state: StateLabel, assocData: map[interface{}]interface{}{}}
	tbl.RegisterSpecial("$", special)
	if err := tbl.DefineEqu(tbl.LookupOrCreate("$"), expr.Int(intOf(1)), nil); err == nil {
		t.Fatal("expected ErrSpecialSymbol")
	}
}

func TestResolveValueEqu(t *testing.T) {
	tbl := New()
	s := tbl.LookupOrCreate("answer")
	if err := tbl.DefineEqu(s, expr.Int(intOf(42)), nil); err != nil {
		t.Fatal(err)
	}
	v, err := s.ResolveValue(expr.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != ValueInt || v.Int == nil {
		t.Fatalf("got %+v, want a resolved int", v)
	}
	n, ok := v.Int.AsInt()
	if !ok || n.Int64() != 42 {
		t.Fatalf("got %v, want 42", n)
	}
}

func TestResolveValueUndefined(t *testing.T) {
	tbl := New()
	s := tbl.LookupOrCreate("missing")
	v, err := s.ResolveValue(expr.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != ValueUnresolved {
		t.Fatalf("got %v, want unresolved", v.Kind)
	}
}

func intOf(n int64) *bigint.Int { return bigint.FromInt64(n) }

package directive

import (
	"errors"
	"testing"

	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
)

type fakeSymbolRef string

func (f fakeSymbolRef) SymbolName() string { return string(f) }

type fakeResolver struct{ seen []string }

func (r *fakeResolver) ResolveIdent(name string) (expr.SymbolRef, error) {
	r.seen = append(r.seen, name)
	return fakeSymbolRef(name), nil
}

func TestNameValueAsExprPromotesIdentThroughResolver(t *testing.T) {
	r := &fakeResolver{}
	nv := NameValue{Kind: ValueIdent, Ident: "foo"}
	e, err := nv.AsExpr(r)
	if err != nil {
		t.Fatal(err)
	}
	sym, ok := e.AsSymbol()
	if !ok || sym.SymbolName() != "foo" {
		t.Fatalf("AsExpr did not produce a symbol leaf for foo")
	}
	if len(r.seen) != 1 || r.seen[0] != "foo" {
		t.Fatalf("resolver was not consulted: %v", r.seen)
	}
}

func TestNameValueAsExprPassesThroughExprValue(t *testing.T) {
	want := expr.Int(bigint.FromInt64(42))
	nv := NameValue{Kind: ValueExpr, Expr: want}
	got, err := nv.AsExpr(&fakeResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatal("AsExpr did not return the Expr value verbatim")
	}
}

func TestNameValueAsExprFailsOnString(t *testing.T) {
	nv := NameValue{Kind: ValueString, Str: "x"}
	if _, err := nv.AsExpr(&fakeResolver{}); err == nil {
		t.Fatal("expected an error converting a string NameValue to Expr")
	}
}

func TestNameValueAsIDStripsNothingButRejectsNonIdent(t *testing.T) {
	nv := NameValue{Kind: ValueIdent, Ident: "label1"}
	id, err := nv.AsID()
	if err != nil || id != "label1" {
		t.Fatalf("AsID() = %q, %v, want label1, nil", id, err)
	}
	if _, err := (NameValue{Kind: ValueString, Str: "x"}).AsID(); err == nil {
		t.Fatal("expected AsID to fail on a string NameValue")
	}
}

func TestNameValueAsStringAcceptsIdentOrString(t *testing.T) {
	if s, err := (NameValue{Kind: ValueIdent, Ident: "raw"}).AsString(); err != nil || s != "raw" {
		t.Fatalf("AsString() on ident = %q, %v", s, err)
	}
	if s, err := (NameValue{Kind: ValueString, Str: "lit"}).AsString(); err != nil || s != "lit" {
		t.Fatalf("AsString() on string = %q, %v", s, err)
	}
	if _, err := (NameValue{Kind: ValueExpr, Expr: expr.Int(bigint.Zero())}).AsString(); err == nil {
		t.Fatal("expected AsString to fail on an Expr NameValue")
	}
}

func TestManagerCallDispatchesRegisteredHandler(t *testing.T) {
	m := New()
	var got string
	m.Register("section", "test", FlagFirstMustBeID, func(info Info) error {
		id, err := info.NameValues[0].AsID()
		if err != nil {
			return err
		}
		got = id
		return nil
	})
	err := m.Call("section", "test", Info{NameValues: []NameValue{{Kind: ValueIdent, Ident: ".text"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got != ".text" {
		t.Fatalf("handler saw %q, want .text", got)
	}
}

func TestManagerCallUnknownDirectiveFails(t *testing.T) {
	m := New()
	err := m.Call("bogus", "test", Info{})
	var unknown *ErrUnknownDirective
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want *ErrUnknownDirective", err)
	}
}

func TestManagerCallEnforcesArgRequiredFlag(t *testing.T) {
	m := New()
	m.Register("global", "test", FlagArgRequired, func(info Info) error { return nil })
	err := m.Call("global", "test", Info{})
	var argErr *ErrArgError
	if !errors.As(err, &argErr) {
		t.Fatalf("err = %v, want *ErrArgError", err)
	}
}

func TestManagerCallEnforcesFirstMustBeIDFlag(t *testing.T) {
	m := New()
	m.Register("extern", "test", FlagFirstMustBeID, func(info Info) error { return nil })
	err := m.Call("extern", "test", Info{NameValues: []NameValue{{Kind: ValueString, Str: "not an id"}}})
	var argErr *ErrArgError
	if !errors.As(err, &argErr) {
		t.Fatalf("err = %v, want *ErrArgError", err)
	}
}

func TestManagerRegisterOverridesSameKey(t *testing.T) {
	m := New()
	calls := 0
	m.Register("equ", "test", FlagAny, func(info Info) error { calls = 1; return nil })
	m.Register("equ", "test", FlagAny, func(info Info) error { calls = 2; return nil })
	if err := m.Call("equ", "test", Info{}); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (second Register should win)", calls)
	}
}

func TestManagerLookupIsKeyedByParserKeywordToo(t *testing.T) {
	m := New()
	m.Register("section", "syntaxA", FlagAny, func(info Info) error { return nil })
	if _, _, err := m.Lookup("section", "syntaxB"); err == nil {
		t.Fatal("expected Lookup to fail for a different parser keyword")
	}
	if _, _, err := m.Lookup("section", "syntaxA"); err != nil {
		t.Fatal(err)
	}
}

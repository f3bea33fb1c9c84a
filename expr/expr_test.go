package expr

import (
	"testing"

	"github.com/intuitionamiga/ieasm/bigint"
)

func mustInt(n int64) *Expr { return Int(bigint.FromInt64(n)) }

func TestNewArity(t *testing.T) {
	cases := []struct {
		name string
		op   Op
		n    int
		ok   bool
	}{
		{"ident needs 1", OpIdent, 1, true},
		{"ident rejects 2", OpIdent, 2, false},
		{"neg needs 1", OpNeg, 1, true},
		{"neg rejects 0", OpNeg, 0, false},
		{"sub needs 2", OpSub, 2, true},
		{"sub rejects 1", OpSub, 1, false},
		{"sub rejects 3", OpSub, 3, false},
		{"cond needs 3", OpCond, 3, true},
		{"cond rejects 2", OpCond, 2, false},
		{"add accepts 1", OpAdd, 1, true},
		{"add accepts 5", OpAdd, 5, true},
		{"add rejects 0", OpAdd, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			terms := make([]*Expr, c.n)
			for i := range terms {
				terms[i] = mustInt(int64(i))
			}
			_, err := New(c.op, terms...)
			if (err == nil) != c.ok {
				t.Fatalf("New(%s, %d terms): err=%v, wanted ok=%v", c.op, c.n, err, c.ok)
			}
		})
	}
}

func TestCloneIndependence(t *testing.T) {
	e := MustNew(OpAdd, mustInt(1), mustInt(2))
	c := e.Clone()
	c.Terms[0].Expr.Terms[0].Int = bigint.FromInt64(99)
	if orig, _ := e.Terms[0].Expr.AsInt(); orig.Int64() != 1 {
		t.Fatalf("mutating clone affected original: got %v", orig)
	}
}

func TestSubstitute(t *testing.T) {
	tmpl := MustNew(OpAdd, Placeholder(0), Placeholder(1))
	out, err := tmpl.Substitute([]*Expr{mustInt(10), mustInt(20)})
	if err != nil {
		t.Fatal(err)
	}
	simplified, err := out.Simplify(Options{})
	if err != nil {
		t.Fatal(err)
	}
	v, ok := simplified.AsInt()
	if !ok || v.Int64() != 30 {
		t.Fatalf("got %v, want 30", simplified)
	}
}

func TestSubstituteOutOfRange(t *testing.T) {
	tmpl := Placeholder(5)
	if _, err := tmpl.Substitute([]*Expr{mustInt(1)}); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestContains(t *testing.T) {
	var r Register = regStub("r0")
	e := MustNew(OpAdd, RegisterLeaf(r), mustInt(1))
	if !e.Contains(TermRegister) {
		t.Fatal("expected Contains(TermRegister) true")
	}
	if e.Contains(TermSymbol) {
		t.Fatal("expected Contains(TermSymbol) false")
	}
}

type regStub string

func (r regStub) RegName() string { return string(r) }

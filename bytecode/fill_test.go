package bytecode

import (
	"testing"

	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
)

func TestFillCalcLenAndEmit(t *testing.T) {
	f := &Fill{Length: expr.Int(bigint.FromInt64(5)), Value: 0x77}
	if err := f.Finalize(nil, FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	n, err := f.CalcLen(nil, func(int, *expr.Expr, int64, int64) {})
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("CalcLen = %d, want 5", n)
	}
	out := make([]byte, 5)
	if err := f.Emit(nil, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	for _, b := range out {
		if b != 0x77 {
			t.Fatalf("Emit = %x, want all 0x77", out)
		}
	}
}

func TestFillUnresolvedLengthFails(t *testing.T) {
	f := &Fill{Length: expr.RegisterLeaf(regStub("r0"))}
	if err := f.Finalize(nil, FinalizeContext{}); err == nil {
		t.Fatal("expected an error for a symbolic fill length")
	}
}

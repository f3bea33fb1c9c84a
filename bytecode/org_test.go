package bytecode

import (
	"testing"

	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
)

func TestOrgFinalizeUnresolvedTargetFails(t *testing.T) {
	o := &Org{Target: expr.RegisterLeaf(regStub("r0"))}
	if err := o.Finalize(nil, FinalizeContext{}); err == nil {
		t.Fatal("expected an error for a symbolic org target")
	}
}

func TestOrgCalcLenComputesGap(t *testing.T) {
	o := &Org{Target: expr.Int(bigint.FromInt64(100))}
	if err := o.Finalize(nil, FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	bc := &Bytecode{}
	bc.SetOffset(80)
	n, err := o.CalcLen(bc, func(int, *expr.Expr, int64, int64) {})
	if err != nil {
		t.Fatal(err)
	}
	if n != 20 {
		t.Fatalf("CalcLen gap = %d, want 20", n)
	}
}

func TestOrgCalcLenBacktrackFails(t *testing.T) {
	o := &Org{Target: expr.Int(bigint.FromInt64(10))}
	if err := o.Finalize(nil, FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	bc := &Bytecode{}
	bc.SetOffset(20)
	if _, err := o.CalcLen(bc, func(int, *expr.Expr, int64, int64) {}); err == nil {
		t.Fatal("expected an OrgBacktrackError when offset already exceeds target")
	}
}

func TestOrgEmitFillsGap(t *testing.T) {
	o := &Org{Fill: 0xaa}
	out := make([]byte, 4)
	if err := o.Emit(nil, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	for _, b := range out {
		if b != 0xaa {
			t.Fatalf("Emit did not fill with 0xaa: %x", out)
		}
	}
}

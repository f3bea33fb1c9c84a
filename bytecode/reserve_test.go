package bytecode

import (
	"testing"

	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
)

func TestReserveCalcLen(t *testing.T) {
	r := &Reserve{Count: expr.Int(bigint.FromInt64(10)), ItemSize: 4}
	if err := r.Finalize(nil, FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	n, err := r.CalcLen(nil, func(int, *expr.Expr, int64, int64) {})
	if err != nil {
		t.Fatal(err)
	}
	if n != 40 {
		t.Fatalf("CalcLen = %d, want 40", n)
	}
}

func TestReserveFinalizeUnresolvedCountFails(t *testing.T) {
	r := &Reserve{Count: expr.RegisterLeaf(regStub("r0")), ItemSize: 1}
	if err := r.Finalize(nil, FinalizeContext{}); err == nil {
		t.Fatal("expected an error for a symbolic reserve count")
	}
}

func TestReserveEmitZeroFills(t *testing.T) {
	r := &Reserve{Count: expr.Int(bigint.FromInt64(3)), ItemSize: 1}
	if err := r.Finalize(nil, FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	out := []byte{0xff, 0xff, 0xff}
	if err := r.Emit(nil, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	for _, b := range out {
		if b != 0 {
			t.Fatalf("Emit did not zero-fill: %x", out)
		}
	}
}

func TestReserveSpecialKindIsReservation(t *testing.T) {
	r := &Reserve{}
	if r.SpecialKind() != KindReservation {
		t.Fatal("Reserve must report KindReservation")
	}
}

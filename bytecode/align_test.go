package bytecode

import (
	"testing"

	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
)

func TestAlignFinalizeRejectsNonPowerOfTwo(t *testing.T) {
	a := &Align{Boundary: expr.Int(bigint.FromInt64(6))}
	if err := a.Finalize(nil, FinalizeContext{}); err == nil {
		t.Fatal("expected an error for a non-power-of-two boundary")
	}
}

func TestAlignPadFor(t *testing.T) {
	a := &Align{Boundary: expr.Int(bigint.FromInt64(16))}
	if err := a.Finalize(nil, FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		off  uint64
		want int
	}{
		{0, 0},
		{1, 15},
		{15, 1},
		{16, 0},
		{17, 15},
	}
	for _, c := range cases {
		got := a.padFor(c.off)
		if got != c.want {
			t.Errorf("padFor(%d) = %d, want %d", c.off, got, c.want)
		}
	}
}

func TestAlignCalcLenUnknownOffsetAssumesWorstCase(t *testing.T) {
	a := &Align{Boundary: expr.Int(bigint.FromInt64(8))}
	if err := a.Finalize(nil, FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	bc := &Bytecode{}
	n, err := a.CalcLen(bc, func(int, *expr.Expr, int64, int64) {})
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Fatalf("CalcLen with unknown offset = %d, want 7", n)
	}
}

func TestAlignEmitUsesNOPFillWhenNoExplicitFill(t *testing.T) {
	a := &Align{NOPFill: []byte{0x90}}
	out := make([]byte, 3)
	if err := a.Emit(nil, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	for _, b := range out {
		if b != 0x90 {
			t.Fatalf("Emit did not use NOPFill: %x", out)
		}
	}
}

func TestAlignMaxSkipSuppressesPadding(t *testing.T) {
	a := &Align{Boundary: expr.Int(bigint.FromInt64(16)), MaxSkip: 4}
	if err := a.Finalize(nil, FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	bc := &Bytecode{}
	bc.SetOffset(1) // needs 15 bytes of padding, over MaxSkip
	n, err := a.CalcLen(bc, func(int, *expr.Expr, int64, int64) {})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("CalcLen over MaxSkip = %d, want 0", n)
	}
}

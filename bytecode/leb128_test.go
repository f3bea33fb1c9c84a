package bytecode

import (
	"math/big"
	"testing"

	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
)

func TestLeb128UnsignedLen(t *testing.T) {
	cases := []struct {
		v    int64
		want int
	}{
		{0, 1},
		{1, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
	}
	for _, c := range cases {
		got := leb128UnsignedLen(big.NewInt(c.v))
		if got != c.want {
			t.Errorf("leb128UnsignedLen(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestLeb128SignedLen(t *testing.T) {
	cases := []struct {
		v    int64
		want int
	}{
		{0, 1},
		{63, 1},
		{64, 2},
		{-1, 1},
		{-64, 1},
		{-65, 2},
	}
	for _, c := range cases {
		got := leb128SignedLen(big.NewInt(c.v))
		if got != c.want {
			t.Errorf("leb128SignedLen(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestLeb128PaddedRoundTrip(t *testing.T) {
	v := big.NewInt(300)
	minimal := leb128UnsignedLen(v)
	padded := encodeUnsignedPadded(v, minimal+3)
	if len(padded) != minimal+3 {
		t.Fatalf("padded length = %d, want %d", len(padded), minimal+3)
	}
	got := decodeUnsignedLEB(padded)
	if got.Cmp(v) != 0 {
		t.Fatalf("round trip via padded encoding = %s, want %s", got, v)
	}
}

func TestLeb128SignedPaddedRoundTripNegative(t *testing.T) {
	v := big.NewInt(-300)
	minimal := leb128SignedLen(v)
	padded := encodeSignedPadded(v, minimal+4)
	if len(padded) != minimal+4 {
		t.Fatalf("padded length = %d, want %d", len(padded), minimal+4)
	}
	got := decodeSignedLEB(padded)
	if got.Cmp(v) != 0 {
		t.Fatalf("round trip via padded encoding = %s, want %s", got, v)
	}
}

func TestLEB128CalcLenConstantIsMinimal(t *testing.T) {
	l := &LEB128{Values: []*expr.Expr{expr.Int(bigint.FromInt64(128))}, Signed: false}
	n, err := l.CalcLen(nil, func(int, *expr.Expr, int64, int64) {})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("CalcLen for constant 128 = %d, want 2", n)
	}
}

type regStub string

func (r regStub) RegName() string { return string(r) }

func TestLEB128CalcLenSymbolicIsWorstCase(t *testing.T) {
	reg := expr.RegisterLeaf(regStub("r0"))
	l := &LEB128{Values: []*expr.Expr{reg}, Signed: false}
	n, err := l.CalcLen(nil, func(int, *expr.Expr, int64, int64) {})
	if err != nil {
		t.Fatal(err)
	}
	if n != leb128MaxLen {
		t.Fatalf("CalcLen for symbolic value = %d, want %d", n, leb128MaxLen)
	}
}

func TestLEB128EmitPadsToReservedLength(t *testing.T) {
	l := &LEB128{Values: []*expr.Expr{expr.Int(bigint.FromInt64(5))}, Signed: false}
	if _, err := l.CalcLen(nil, func(int, *expr.Expr, int64, int64) {}); err != nil {
		t.Fatal(err)
	}
	l.lens[0] = 4 // simulate a worst-case reservation larger than the minimal encoding
	out := make([]byte, 4)
	if err := l.Emit(nil, out, nil, nil); err != nil {
		t.Fatal(err)
	}
	got := decodeUnsignedLEB(out)
	if got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("padded emit decodes to %s, want 5", got)
	}
	if out[len(out)-1]&0x80 != 0 {
		t.Fatalf("last padded byte must not carry the continuation bit: %x", out)
	}
}

// decodeUnsignedLEB and decodeSignedLEB are minimal test-only decoders that
// tolerate padding bytes, mirroring what a real consumer would do.
func decodeUnsignedLEB(b []byte) *big.Int {
	result := new(big.Int)
	shift := uint(0)
	for _, byt := range b {
		chunk := big.NewInt(int64(byt & 0x7f))
		chunk.Lsh(chunk, shift)
		result.Or(result, chunk)
		shift += 7
		if byt&0x80 == 0 {
			break
		}
	}
	return result
}

func decodeSignedLEB(b []byte) *big.Int {
	result := new(big.Int)
	shift := uint(0)
	var last byte
	for _, byt := range b {
		chunk := big.NewInt(int64(byt & 0x7f))
		chunk.Lsh(chunk, shift)
		result.Or(result, chunk)
		shift += 7
		last = byt
		if byt&0x80 == 0 {
			break
		}
	}
	if last&0x40 != 0 {
		mask := new(big.Int).Lsh(big.NewInt(1), shift)
		result.Sub(result, mask)
	}
	return result
}

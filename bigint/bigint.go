// Package bigint implements the arbitrary-precision signed integer used as
// an Expr leaf and for section-offset overflow checks.
//
// Constant folding has to support arbitrary-size values (large immediates,
// 64-bit section offsets, shift chains) without silently wrapping, so
// values are carried as arbitrary-precision rather than a machine word.
// math/big is the standard-library choice here (see DESIGN.md).
package bigint

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrDivisionByZero is returned by Div, SignMod, UnsignedDiv and
// UnsignedMod when the divisor is zero.
var ErrDivisionByZero = errors.New("division by zero")

// Int wraps math/big.Int with the operator set Expr's rewrite pipeline and
// bytecode emission need.
type Int struct {
	v big.Int
}

// Zero, One and MinusOne are convenience constants. They return a fresh
// value on every call.
func Zero() *Int     { return FromInt64(0) }
func One() *Int      { return FromInt64(1) }
func MinusOne() *Int { return FromInt64(-1) }

// FromInt64 builds an Int from a machine int64.
func FromInt64(n int64) *Int {
	i := &Int{}
	i.v.SetInt64(n)
	return i
}

// FromUint64 builds an Int from a machine uint64.
func FromUint64(n uint64) *Int {
	i := &Int{}
	i.v.SetUint64(n)
	return i
}

// FromString parses a decimal, hex (0x/$), octal (0o) or binary (0b)
// literal.
func FromString(s string) (*Int, error) {
	i := &Int{}
	base := 0
	switch {
	case len(s) > 1 && s[0] == '$':
		s, base = s[1:], 16
	case len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X"):
		s, base = s[2:], 16
	case len(s) > 2 && (s[:2] == "0b" || s[:2] == "0B"):
		s, base = s[2:], 2
	case len(s) > 2 && (s[:2] == "0o" || s[:2] == "0O"):
		s, base = s[2:], 8
	}
	if _, ok := i.v.SetString(s, base); !ok {
		return nil, fmt.Errorf("bigint: malformed integer literal %q", s)
	}
	return i, nil
}

// Clone returns a deep copy.
func (a *Int) Clone() *Int {
	r := &Int{}
	r.v.Set(&a.v)
	return r
}

// Sign returns -1, 0 or 1.
func (a *Int) Sign() int { return a.v.Sign() }

// IsZero reports whether the value is exactly zero.
func (a *Int) IsZero() bool { return a.v.Sign() == 0 }

// IsNegOne reports whether the value is exactly -1 (absorbing element for
// bitwise OR under identity elimination).
func (a *Int) IsNegOne() bool { return a.v.Cmp(big.NewInt(-1)) == 0 }

// IsOne reports whether the value is exactly 1.
func (a *Int) IsOne() bool { return a.v.Cmp(big.NewInt(1)) == 0 }

// Cmp compares two Ints the way big.Int.Cmp does.
func (a *Int) Cmp(b *Int) int { return a.v.Cmp(&b.v) }

// Equal reports value equality.
func (a *Int) Equal(b *Int) bool { return a.v.Cmp(&b.v) == 0 }

// String renders the decimal form.
func (a *Int) String() string { return a.v.String() }

// Int64 returns the value truncated into an int64 (used only by callers
// that have already range-checked, e.g. shift amounts).
func (a *Int) Int64() int64 { return a.v.Int64() }

// BigInt returns an independent math/big.Int copy of the value, for
// callers (variable-length integer encoders) that need to drive
// math/big's shift/mask operations directly.
func (a *Int) BigInt() *big.Int { return new(big.Int).Set(&a.v) }

// --- Binary arithmetic ------------------------------------------------

func Add(a, b *Int) *Int { r := &Int{}; r.v.Add(&a.v, &b.v); return r }
func Sub(a, b *Int) *Int { r := &Int{}; r.v.Sub(&a.v, &b.v); return r }
func Mul(a, b *Int) *Int { r := &Int{}; r.v.Mul(&a.v, &b.v); return r }

// Div implements truncated (C-like) division: the quotient rounds toward
// zero, matching the `signdiv` operator's semantics. Quo/Rem on
// math/big.Int already truncate toward zero.
func Div(a, b *Int) (*Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	r := &Int{}
	r.v.Quo(&a.v, &b.v)
	return r, nil
}

// SignMod is the truncated-division remainder (sign follows the dividend).
func SignMod(a, b *Int) (*Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	r := &Int{}
	r.v.Rem(&a.v, &b.v)
	return r, nil
}

// UnsignedDiv implements the unsigned `div` operator: both operands are
// treated as unsigned for the purpose of the division, per NASM/yasm
// semantics (division on the 2's-complement bit pattern reinterpreted
// unsigned when either operand is negative).
func UnsignedDiv(a, b *Int) (*Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	ua, ub := toUnsigned(&a.v), toUnsigned(&b.v)
	r := &Int{}
	r.v.Quo(ua, ub)
	return r, nil
}

// UnsignedMod implements the unsigned `mod` operator, the dual of
// UnsignedDiv.
func UnsignedMod(a, b *Int) (*Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	ua, ub := toUnsigned(&a.v), toUnsigned(&b.v)
	r := &Int{}
	r.v.Rem(ua, ub)
	return r, nil
}

func toUnsigned(v *big.Int) *big.Int {
	if v.Sign() >= 0 {
		return v
	}
	// Reinterpret the sign via the value's own bit length, rounded up to
	// a byte, mirroring yasm's unsigned-div-of-negative behaviour which
	// operates on the two's complement pattern at the expression's
	// natural width.
	bits := v.BitLen() + 1
	bytes := (bits + 7) / 8
	mod := new(big.Int).Lsh(big.NewInt(1), uint(bytes*8))
	u := new(big.Int).Add(v, mod)
	return u
}

func Neg(a *Int) *Int { r := &Int{}; r.v.Neg(&a.v); return r }

// Not is one's complement (bitwise NOT). math/big has no native ^x; NOT(x)
// == -(x)-1 for two's-complement semantics.
func Not(a *Int) *Int {
	r := &Int{}
	r.v.Add(&a.v, big.NewInt(1))
	r.v.Neg(&r.v)
	return r
}

func And(a, b *Int) *Int { r := &Int{}; r.v.And(&a.v, &b.v); return r }
func Or(a, b *Int) *Int  { r := &Int{}; r.v.Or(&a.v, &b.v); return r }
func Xor(a, b *Int) *Int { r := &Int{}; r.v.Xor(&a.v, &b.v); return r }

// Xnor, Nor are derived (not native to math/big), used for effective-address
// and flag manipulation idioms.
func Xnor(a, b *Int) *Int { return Not(Xor(a, b)) }
func Nor(a, b *Int) *Int  { return Not(Or(a, b)) }

// Shl, Shr: shift amount must fit a non-negative uint; callers clamp via
// ShiftCount first.
func Shl(a *Int, n uint) *Int { r := &Int{}; r.v.Lsh(&a.v, n); return r }

// Shr is an arithmetic (sign-preserving) right shift, matching the `>>`
// operator as yasm implements it for signed constant folding.
func Shr(a *Int, n uint) *Int { r := &Int{}; r.v.Rsh(&a.v, n); return r }

// ShiftCount validates and returns a shift amount from an Int, failing if
// it is negative or implausibly large (guards against a pathological
// `1 << (2**64)` DoS via constant folding).
func ShiftCount(a *Int) (uint, error) {
	if a.Sign() < 0 {
		return 0, fmt.Errorf("bigint: negative shift count %s", a.String())
	}
	if !a.v.IsUint64() || a.v.Uint64() > (1<<20) {
		return 0, fmt.Errorf("bigint: shift count %s out of range", a.String())
	}
	return uint(a.v.Uint64()), nil
}

// --- Comparison operators (produce 0/1: eq/ne/lt/le/gt/ge) ---------------

func BoolInt(v bool) *Int {
	if v {
		return One()
	}
	return Zero()
}

func Eq(a, b *Int) *Int { return BoolInt(a.Cmp(b) == 0) }
func Ne(a, b *Int) *Int { return BoolInt(a.Cmp(b) != 0) }
func Lt(a, b *Int) *Int { return BoolInt(a.Cmp(b) < 0) }
func Le(a, b *Int) *Int { return BoolInt(a.Cmp(b) <= 0) }
func Gt(a, b *Int) *Int { return BoolInt(a.Cmp(b) > 0) }
func Ge(a, b *Int) *Int { return BoolInt(a.Cmp(b) >= 0) }

// --- Logical operators (non-zero-as-true) --------------------------------

func LNot(a *Int) *Int     { return BoolInt(a.IsZero()) }
func LAnd(a, b *Int) *Int  { return BoolInt(!a.IsZero() && !b.IsZero()) }
func LOr(a, b *Int) *Int   { return BoolInt(!a.IsZero() || !b.IsZero()) }
func LXor(a, b *Int) *Int  { return BoolInt(!a.IsZero() != !b.IsZero()) }
func LXnor(a, b *Int) *Int { return BoolInt(!a.IsZero() == !b.IsZero()) }
func LNor(a, b *Int) *Int  { return BoolInt(a.IsZero() && b.IsZero()) }

// Overflow classifies the result of truncating a value to a fixed bit
// width, distinguishing the signed and unsigned interpretations so
// bytecode emission can pick the warning message independently of which
// one the directive intended.
type Overflow struct {
	SignedOverflow   bool
	UnsignedOverflow bool
}

// ToTwosComplement truncates the value to `bits` bits (any width; the
// reduction is done with big.Int arithmetic) and returns the
// little-endian-agnostic unsigned magnitude
// alongside overflow classification against both the signed and unsigned
// ranges of that width.
func (a *Int) ToTwosComplement(bits uint) (value *big.Int, ov Overflow) {
	mod := new(big.Int).Lsh(big.NewInt(1), bits)
	v := new(big.Int).Mod(&a.v, mod) // Euclidean mod: always in [0, mod)
	if v.Sign() < 0 {
		v.Add(v, mod)
	}

	maxUnsigned := new(big.Int).Sub(mod, big.NewInt(1))
	halfBits := bits - 1
	maxSigned := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), halfBits), big.NewInt(1))
	minSigned := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), halfBits))

	ov.UnsignedOverflow = a.v.Sign() < 0 || a.v.Cmp(maxUnsigned) > 0
	ov.SignedOverflow = a.v.Cmp(maxSigned) > 0 || a.v.Cmp(minSigned) < 0
	return v, ov
}

// PutLittleEndian writes the low len(dst) bytes of the two's-complement
// form into dst, least-significant byte first.
func PutLittleEndian(v *big.Int, dst []byte) {
	bs := v.Bytes() // big-endian, no sign
	for i := range dst {
		dst[i] = 0
	}
	for i := 0; i < len(bs) && i < len(dst); i++ {
		dst[i] = bs[len(bs)-1-i]
	}
}

// PutBigEndian writes the low len(dst) bytes of the two's-complement form
// into dst, most-significant byte first.
func PutBigEndian(v *big.Int, dst []byte) {
	bs := v.Bytes()
	for i := range dst {
		dst[i] = 0
	}
	n := len(dst)
	for i := 0; i < len(bs) && i < n; i++ {
		dst[n-1-i] = bs[len(bs)-1-i]
	}
}

package expr

import (
	"fmt"
	"sort"
)

// termKindRank gives TermKind a stable sort precedence: integers first
// (so folded constants drift to a predictable position), then floats,
// registers, symbols, locations, placeholders, then nested expressions.
var termKindRank = map[TermKind]int{
	TermInt: 0, TermFloat: 1, TermRegister: 2, TermSymbol: 3,
	TermLocation: 4, TermPlaceholder: 5, TermExpr: 6,
}

// key renders a deterministic string for a term, used both to order
// commutative associative nodes and to compare two simplified trees
// structurally.
func (t Term) key() string {
	switch t.Kind {
	case TermInt:
		return t.Int.String()
	case TermFloat:
		return fmt.Sprintf("%x", t.Float.To64Bits())
	case TermRegister:
		return t.Register.RegName()
	case TermSymbol:
		return t.Symbol.SymbolName()
	case TermLocation:
		if off, ok := t.Location.Offset(); ok {
			return fmt.Sprintf("%s+%d", t.Location.Section(), off)
		}
		return fmt.Sprintf("loc:%p+%d", t.Location.BC, t.Location.Off)
	case TermPlaceholder:
		return fmt.Sprintf("ph%d", t.Placeholder)
	case TermExpr:
		return t.Expr.key()
	default:
		return ""
	}
}

// key renders a deterministic structural string for the whole subtree.
func (e *Expr) key() string {
	if e == nil {
		return "<nil>"
	}
	s := e.Op.String() + "("
	for i, t := range e.Terms {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d:%s", termKindRank[t.Kind], t.key())
	}
	return s + ")"
}

// commutativeOps are the associative ops for which operand order carries
// no semantic meaning and so is sorted into canonical form.
var commutativeOps = associativeOps

// orderTerms stable-sorts the terms of a commutative associative node by
// (variant-tag, key), so two semantically equal Exprs compare structurally
// equal after Simplify.
func orderTerms(e *Expr) {
	if !commutativeOps[e.Op] {
		return
	}
	keys := make([]string, len(e.Terms))
	for i, t := range e.Terms {
		keys[i] = fmt.Sprintf("%d:%s", termKindRank[t.Kind], t.key())
	}
	idx := make([]int, len(e.Terms))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return keys[idx[i]] < keys[idx[j]] })
	out := make([]Term, len(e.Terms))
	for i, j := range idx {
		out[i] = e.Terms[j]
	}
	e.Terms = out
}

// Equal reports structural equality: same operator and term-for-term
// equal terms in the same order. Two Exprs that are equivalent modulo the
// rewrite rules but were never run through Simplify may differ
// structurally even though Equal would return true after simplification;
// Equal itself does not simplify: canonical equality is a property of
// Simplify's output, not of Equal.
func (e *Expr) Equal(other *Expr) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.key() == other.key()
}

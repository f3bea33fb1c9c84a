package expr

import "github.com/intuitionamiga/ieasm/bigint"

// Options controls the rewrite pipeline.
type Options struct {
	// Aggressive disables the bounded 1*Register preservation exception:
	// when true, `1*x` always simplifies to `x` even if x contains a
	// register.
	Aggressive bool
}

// Simplify applies the rewrite pipeline in place and returns the
// (possibly re-rooted) canonical form; applying it twice produces the
// same tree as applying it once.
func (e *Expr) Simplify(opts Options) (*Expr, error) {
	return simplifyNode(e, opts)
}

func simplifyNode(e *Expr, opts Options) (*Expr, error) {
	if e == nil {
		return nil, nil
	}
	for i, t := range e.Terms {
		if t.Kind == TermExpr {
			se, err := simplifyNode(t.Expr, opts)
			if err != nil {
				return nil, err
			}
			e.Terms[i] = exprTerm(se)
		}
	}

	var err error
	e, err = distributeNegation(e, opts)
	if err != nil {
		return nil, err
	}
	e = level(e)
	e, err = foldConstants(e)
	if err != nil {
		return nil, err
	}
	e = eliminateIdentities(e, opts)
	e = specialProjections(e)
	e = normalizeSingleton(e)
	orderTerms(e)
	return e, nil
}

// --- Step 1: negation distribution ---------------------------------------

func distributeNegation(e *Expr, opts Options) (*Expr, error) {
	switch e.Op {
	case OpNeg:
		inner := e.Terms[0]
		if inner.Kind == TermExpr && inner.Expr.Op == OpNeg {
			// double negation collapses to IDENT
			return &Expr{Op: OpIdent, Terms: []Term{inner.Expr.Terms[0]}}, nil
		}
		if inner.Kind == TermExpr && inner.Expr.Op == OpIdent && len(inner.Expr.Terms) == 1 && inner.Expr.Terms[0].Kind == TermFloat {
			// Floats under NEG are negated in place.
			f := inner.Expr.Terms[0].Float.Clone().Neg()
			return &Expr{Op: OpIdent, Terms: []Term{floatTerm(f)}}, nil
		}
		if inner.Kind == TermFloat {
			f := inner.Float.Clone().Neg()
			return &Expr{Op: OpIdent, Terms: []Term{floatTerm(f)}}, nil
		}
		if inner.Kind == TermExpr && inner.Expr.Op == OpAdd {
			// NEG inside ADD distributes through all terms: NEG(ADD(a,b))
			// -> ADD(NEG(a), NEG(b)); each new NEG-as-MUL term is fully
			// simplified immediately so the fold in the reassembled ADD
			// sees already-collapsed constants.
			newTerms := make([]Term, len(inner.Expr.Terms))
			for i, t := range inner.Expr.Terms {
				mul := &Expr{Op: OpMul, Terms: []Term{intTerm(bigint.MinusOne()), t}}
				sm, err := simplifyNode(mul, opts)
				if err != nil {
					return nil, err
				}
				newTerms[i] = exprTerm(sm)
			}
			return &Expr{Op: OpAdd, Terms: newTerms}, nil
		}
		// NEG x -> MUL(-1, x)
		mul := &Expr{Op: OpMul, Terms: []Term{intTerm(bigint.MinusOne()), inner}}
		return simplifyNode(mul, opts)
	case OpSub:
		// SUB(a, b) -> ADD(a, MUL(-1, b))
		a, b := e.Terms[0], e.Terms[1]
		mul := &Expr{Op: OpMul, Terms: []Term{intTerm(bigint.MinusOne()), b}}
		sb, err := simplifyNode(mul, opts)
		if err != nil {
			return nil, err
		}
		return &Expr{Op: OpAdd, Terms: []Term{a, exprTerm(sb)}}, nil
	default:
		return e, nil
	}
}

// --- Step 2: leveling -----------------------------------------------------

func level(e *Expr) *Expr {
	changed := true
	terms := e.Terms
	for changed {
		changed = false
		out := make([]Term, 0, len(terms))
		for _, t := range terms {
			if t.Kind == TermExpr && t.Expr.Op == OpIdent && len(t.Expr.Terms) == 1 {
				out = append(out, t.Expr.Terms[0])
				changed = true
				continue
			}
			if t.Kind == TermExpr && IsAssociative(e.Op) && t.Expr.Op == e.Op {
				out = append(out, t.Expr.Terms...)
				changed = true
				continue
			}
			out = append(out, t)
		}
		terms = out
	}
	e.Terms = terms
	return e
}

// --- Step 3: constant folding ----------------------------------------------

// unaryIntOps computes an operator directly on a single BigInt leaf.
var unaryIntOps = map[Op]func(*bigint.Int) *bigint.Int{
	OpNeg:  bigint.Neg,
	OpNot:  bigint.Not,
	OpLNot: bigint.LNot,
}

// binaryIntOps computes a fixed-arity-2 operator on two BigInt leaves.
var binaryIntOps = map[Op]func(a, b *bigint.Int) (*bigint.Int, error){
	OpDiv:     func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.UnsignedDiv(a, b) },
	OpSignDiv: bigint.Div,
	OpMod:     func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.UnsignedMod(a, b) },
	OpSignMod: bigint.SignMod,
	OpEq:      func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.Eq(a, b), nil },
	OpNe:      func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.Ne(a, b), nil },
	OpLt:      func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.Lt(a, b), nil },
	OpLe:      func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.Le(a, b), nil },
	OpGt:      func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.Gt(a, b), nil },
	OpGe:      func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.Ge(a, b), nil },
	OpXnor:    func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.Xnor(a, b), nil },
	OpNor:     func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.Nor(a, b), nil },
	OpLXnor:   func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.LXnor(a, b), nil },
	OpLNor:    func(a, b *bigint.Int) (*bigint.Int, error) { return bigint.LNor(a, b), nil },
	OpShl: func(a, b *bigint.Int) (*bigint.Int, error) {
		n, err := bigint.ShiftCount(b)
		if err != nil {
			return nil, err
		}
		return bigint.Shl(a, n), nil
	},
	OpShr: func(a, b *bigint.Int) (*bigint.Int, error) {
		n, err := bigint.ShiftCount(b)
		if err != nil {
			return nil, err
		}
		return bigint.Shr(a, n), nil
	},
}

// naryIntOps folds an arbitrary count of BigInt leaves within an
// associative node.
var naryIntOps = map[Op]func(a, b *bigint.Int) *bigint.Int{
	OpAdd:  bigint.Add,
	OpMul:  bigint.Mul,
	OpOr:   bigint.Or,
	OpAnd:  bigint.And,
	OpXor:  bigint.Xor,
	OpLOr:  bigint.LOr,
	OpLAnd: bigint.LAnd,
	OpLXor: bigint.LXor,
}

// nonNumericOps never fold: their operands stay symbolic regardless of
// whether they reduce to constants.
var nonNumericOps = map[Op]bool{OpSeg: true, OpWrt: true, OpSegOff: true, OpCond: true, OpSubst: true}

func foldConstants(e *Expr) (*Expr, error) {
	if nonNumericOps[e.Op] {
		return e, nil
	}

	if fn, ok := unaryIntOps[e.Op]; ok && len(e.Terms) == 1 {
		if e.Terms[0].Kind == TermInt {
			return &Expr{Op: OpIdent, Terms: []Term{intTerm(fn(e.Terms[0].Int))}}, nil
		}
		return e, nil
	}

	if fn, ok := binaryIntOps[e.Op]; ok && len(e.Terms) == 2 {
		a, b := e.Terms[0], e.Terms[1]
		if a.Kind == TermInt && b.Kind == TermInt {
			r, err := fn(a.Int, b.Int)
			if err != nil {
				return nil, err
			}
			return &Expr{Op: OpIdent, Terms: []Term{intTerm(r)}}, nil
		}
		return e, nil
	}

	if fn, ok := naryIntOps[e.Op]; ok {
		var acc *bigint.Int
		accIdx := -1
		out := make([]Term, 0, len(e.Terms))
		for _, t := range e.Terms {
			if t.Kind == TermInt {
				if acc == nil {
					acc = t.Int.Clone()
					accIdx = len(out)
					out = append(out, t) // placeholder, replaced below
				} else {
					acc = fn(acc, t.Int)
				}
				continue
			}
			out = append(out, t)
		}
		if acc != nil {
			out[accIdx] = intTerm(acc)
			e.Terms = out
		}
		return e, nil
	}

	return e, nil
}

// --- Step 4: identity elimination -----------------------------------------

func isIntValue(t Term, v int64) bool {
	return t.Kind == TermInt && t.Int.Equal(bigint.FromInt64(v))
}

func removeMatching(terms []Term, match func(Term) bool) []Term {
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if match(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func termContainsRegister(t Term) bool {
	if t.Kind == TermRegister {
		return true
	}
	if t.Kind == TermExpr {
		return t.Expr.Contains(TermRegister)
	}
	return false
}

func eliminateIdentities(e *Expr, opts Options) *Expr {
	switch e.Op {
	case OpMul:
		for _, t := range e.Terms {
			if isIntValue(t, 0) {
				return &Expr{Op: OpIdent, Terms: []Term{intTerm(bigint.Zero())}}
			}
		}
		if !opts.Aggressive && len(e.Terms) == 2 {
			// Bounded exception: 1*Register is preserved.
			for i, t := range e.Terms {
				if isIntValue(t, 1) && termContainsRegister(e.Terms[1-i]) {
					return e
				}
			}
		}
		e.Terms = removeMatching(e.Terms, func(t Term) bool { return isIntValue(t, 1) })
	case OpAnd:
		for _, t := range e.Terms {
			if isIntValue(t, 0) {
				return &Expr{Op: OpIdent, Terms: []Term{intTerm(bigint.Zero())}}
			}
		}
		e.Terms = removeMatching(e.Terms, func(t Term) bool { return isIntValue(t, -1) })
	case OpLAnd:
		for _, t := range e.Terms {
			if isIntValue(t, 0) {
				return &Expr{Op: OpIdent, Terms: []Term{intTerm(bigint.Zero())}}
			}
		}
		e.Terms = removeMatching(e.Terms, func(t Term) bool {
			return t.Kind == TermInt && !t.Int.IsZero()
		})
	case OpOr:
		for _, t := range e.Terms {
			if isIntValue(t, -1) {
				return &Expr{Op: OpIdent, Terms: []Term{intTerm(bigint.MinusOne())}}
			}
		}
		e.Terms = removeMatching(e.Terms, func(t Term) bool { return isIntValue(t, 0) })
	case OpAdd:
		e.Terms = removeMatching(e.Terms, func(t Term) bool { return isIntValue(t, 0) })
	case OpLOr:
		e.Terms = removeMatching(e.Terms, func(t Term) bool { return isIntValue(t, 0) })
	case OpDiv, OpSignDiv:
		if isIntValue(e.Terms[1], 1) {
			return &Expr{Op: OpIdent, Terms: []Term{e.Terms[0]}}
		}
	case OpShl, OpShr:
		if isIntValue(e.Terms[1], 0) {
			return &Expr{Op: OpIdent, Terms: []Term{e.Terms[0]}}
		}
	}
	return e
}

// --- Step 5: special projections -------------------------------------------

func specialProjections(e *Expr) *Expr {
	if e.Op == OpSeg && len(e.Terms) == 1 && e.Terms[0].Kind == TermExpr && e.Terms[0].Expr.Op == OpSegOff {
		// SEG(SEGOFF(a, b)) collapses to a.
		inner := e.Terms[0].Expr
		return &Expr{Op: OpIdent, Terms: []Term{inner.Terms[0]}}
	}
	return e
}

// ExtractSegOff splits a root-level SEGOFF(a, b) into (a, b) sibling
// expressions, replacing the original with its left operand under IDENT.
// Returns ok=false if e is not a SEGOFF node.
func ExtractSegOff(e *Expr) (seg, off *Expr, rest *Expr, ok bool) {
	if e.Op != OpSegOff || len(e.Terms) != 2 {
		return nil, nil, e, false
	}
	seg = wrapTerm(e.Terms[0])
	off = wrapTerm(e.Terms[1])
	rest = &Expr{Op: OpIdent, Terms: []Term{e.Terms[0]}}
	return seg, off, rest, true
}

// ExtractWrt splits a root-level WRT(a, b) the same way ExtractSegOff does.
func ExtractWrt(e *Expr) (base, wrt *Expr, rest *Expr, ok bool) {
	if e.Op != OpWrt || len(e.Terms) != 2 {
		return nil, nil, e, false
	}
	base = wrapTerm(e.Terms[0])
	wrt = wrapTerm(e.Terms[1])
	rest = &Expr{Op: OpIdent, Terms: []Term{e.Terms[0]}}
	return base, wrt, rest, true
}

// ExtractDeepSegOff descends through ADD nodes to find a buried SEGOFF,
// not only a root one, grounded on yasm's Expr::extract_deep_segoff.
// Returns ok=false if none is found.
func ExtractDeepSegOff(e *Expr) (seg, off *Expr, ok bool) {
	if e.Op == OpSegOff && len(e.Terms) == 2 {
		return wrapTerm(e.Terms[0]), wrapTerm(e.Terms[1]), true
	}
	if e.Op == OpAdd {
		for _, t := range e.Terms {
			if t.Kind == TermExpr {
				if seg, off, ok := ExtractDeepSegOff(t.Expr); ok {
					return seg, off, ok
				}
			}
		}
	}
	return nil, nil, false
}

func wrapTerm(t Term) *Expr {
	if t.Kind == TermExpr {
		return t.Expr
	}
	return &Expr{Op: OpIdent, Terms: []Term{t}}
}

// --- normalization: collapse singleton nodes to IDENT ---------------------

func normalizeSingleton(e *Expr) *Expr {
	if e.Op != OpIdent && len(e.Terms) == 1 && !nonNumericOps[e.Op] {
		return &Expr{Op: OpIdent, Terms: []Term{e.Terms[0]}}
	}
	return e
}

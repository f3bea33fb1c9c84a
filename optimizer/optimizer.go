// Package optimizer implements the span-driven fixed-point length
// resolver: it converges every bytecode's (offset, length) pair across
// every section of an assembly, expanding variable-length content only
// as far as the spans it registers actually require.
//
// The teacher has no equivalent: assembler/ie64asm.go's resolveLabel
// (ie64asm.go:2537) is a single-pass fixup because IE64 has no
// short/long instruction forms at all (every instruction is a fixed 8
// bytes — see arch/ie64). This package generalizes that single pass into
// the iterative span convergence a variable-length ISA would need,
// grounded on the algorithm description rather than any teacher code.
package optimizer

import (
	"fmt"

	"github.com/intuitionamiga/ieasm/bytecode"
	"github.com/intuitionamiga/ieasm/expr"
	"github.com/intuitionamiga/ieasm/section"
)

// DefaultOscillationConstant is the default multiplier C in the
// iteration cap C*N (N = total bytecode count) the optimizer treats as
// evidence of a non-terminating expansion loop.
const DefaultOscillationConstant = 8

// Config controls the optimizer run.
type Config struct {
	// OscillationConstant overrides DefaultOscillationConstant; zero
	// means use the default.
	OscillationConstant int
}

func (c Config) oscillationConstant() int {
	if c.OscillationConstant <= 0 {
		return DefaultOscillationConstant
	}
	return c.OscillationConstant
}

// Span is one length-dependency edge from a bytecode to a dependent
// Expr evaluated against final offsets. A nil Dependent marks a
// self-referential span (Align/Org): it has no value to test against a
// window and instead is retried on every offset shift of its own
// section.
type Span struct {
	BC       *bytecode.Bytecode
	Section  string
	ID       int
	Dependent *expr.Expr
	NegThres, PosThres int64
	LastVal  int64
	Alive    bool
}

func (s *Span) self() bool { return s.Dependent == nil }

// Trace records one expansion step, kept for oscillation diagnostics per
// yasm's bc_resolve overflow reporting.
type Trace struct {
	BytecodeSection string
	BytecodeIndex   int
	SpanID          int
	Delta           int
}

// Result is what a converged run reports back.
type Result struct {
	// SectionSizes is the final total byte length of each section, keyed
	// by section name.
	SectionSizes map[string]int
	// Trace is the ordered sequence of expansions applied, for debugging
	// an InternalConsistency failure or just auditing convergence.
	Trace []Trace
}

// UnresolvableSpanError is returned when a span's dependent Expr still
// cannot be evaluated to a concrete displacement after finalize — e.g.
// it touches a Location whose bytecode never got assigned an offset, or
// a symbol that survived finalize still undefined.
type UnresolvableSpanError struct {
	Section string
	SpanID  int
}

func (e *UnresolvableSpanError) Error() string {
	return fmt.Sprintf("optimizer: span %d in section %q did not resolve to a concrete value", e.SpanID, e.Section)
}

// InternalConsistencyError is returned when the expansion loop exceeds
// its iteration cap without draining, which should never happen given
// monotone growth and a finite per-bytecode maximum size.
type InternalConsistencyError struct {
	Iterations int
	Cap        int
	Trace      []Trace
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("optimizer: expansion loop exceeded its iteration cap (%d > %d); possible threshold oscillation", e.Iterations, e.Cap)
}

// SectionOverflowError is returned when a section's converged size exceeds
// its declared maximum.
type SectionOverflowError struct {
	Section string
	Size    int
	Max     int
}

func (e *SectionOverflowError) Error() string {
	return fmt.Sprintf("optimizer: section %q size %d exceeds its declared maximum of %d", e.Section, e.Size, e.Max)
}

// Run drives the full Pass0-3 pipeline over sections in the order given
// (Object-declared order). ctx supplies the symbol-resolution callback
// and simplify options every content's Finalize needs.
func Run(sections []*section.Section, ctx bytecode.FinalizeContext, cfg Config) (*Result, error) {
	if err := finalizeAll(sections, ctx); err != nil {
		return nil, err
	}

	spans, totalBytecodes, err := initialSizing(sections)
	if err != nil {
		return nil, err
	}

	queue, err := evaluateSpans(spans)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*section.Section, len(sections))
	for _, s := range sections {
		byName[s.Name()] = s
	}

	trace, err := expand(queue, spans, byName, cfg.oscillationConstant()*max(totalBytecodes, 1))
	if err != nil {
		return nil, err
	}

	sizes := make(map[string]int, len(sections))
	for _, s := range sections {
		size := sectionTotalLen(s)
		if max := s.MaxSize(); max > 0 && size > max {
			return nil, &SectionOverflowError{Section: s.Name(), Size: size, Max: max}
		}
		sizes[s.Name()] = size
	}

	return &Result{SectionSizes: sizes, Trace: trace}, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// finalizeAll is Pass 0: walk each section, finalize every content.
// Indices are already assigned by Section.Append, so this pass only
// drives finalize.
func finalizeAll(sections []*section.Section, ctx bytecode.FinalizeContext) error {
	for _, s := range sections {
		for _, bc := range s.All() {
			if err := bc.Finalize(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// initialSizing is Pass 1: calc_len every bytecode at its minimum
// length, assign a running offset per section, and collect every span
// registered along the way.
func initialSizing(sections []*section.Section) ([]*Span, int, error) {
	var spans []*Span
	total := 0
	for _, s := range sections {
		offset := uint64(0)
		for _, bc := range s.All() {
			total++
			bc.SetOffset(offset)

			var localSpans []*Span
			addSpan := func(id int, dependent *expr.Expr, negThres, posThres int64) {
				localSpans = append(localSpans, &Span{
					BC: bc, Section: s.Name(), ID: id,
					Dependent: dependent, NegThres: negThres, PosThres: posThres,
					Alive: true,
				})
			}
			n, err := bc.CalcLen(addSpan)
			if err != nil {
				return nil, 0, err
			}
			bc.SetTailLen(n)

			eff, err := bc.EffectiveLen()
			if err != nil {
				return nil, 0, err
			}
			offset += uint64(eff)

			spans = append(spans, localSpans...)
		}
	}
	return spans, total, nil
}

// spanCurrentValue evaluates a span's dependent Expr against current
// offsets, or for a self-referential span returns its own bytecode's
// current start offset.
func spanCurrentValue(s *Span) (int64, bool) {
	if s.self() {
		off, ok := s.BC.Offset()
		if !ok {
			return 0, false
		}
		return int64(off), true
	}
	return evalIntLike(s.Dependent)
}

func inWindow(val, neg, pos int64) bool { return val >= neg && val <= pos }

// evaluateSpans is Pass 2: evaluate every span once against the initial
// offsets, seeding the expansion queue with whatever needs to grow.
func evaluateSpans(spans []*Span) ([]*Span, error) {
	var queue []*Span
	for _, s := range spans {
		val, ok := spanCurrentValue(s)
		if !ok {
			return nil, &UnresolvableSpanError{Section: s.Section, SpanID: s.ID}
		}
		s.LastVal = val
		if s.self() || !inWindow(val, s.NegThres, s.PosThres) {
			queue = append(queue, s)
		}
	}
	return queue, nil
}

// expand is Pass 3: the monotone fixed-point expansion loop. It
// re-scans every still-alive span each round (rather than tracking a
// precise shifted-Location dependency graph) since Location leaves
// reference their owning bytecode by weak pointer, so a scan always
// observes the current post-shift offsets without any bookkeeping of
// which spans a given expansion could possibly have affected.
func expand(queue []*Span, all []*Span, byName map[string]*section.Section, iterCap int) ([]Trace, error) {
	var trace []Trace
	iterations := 0
	for {
		changed := false
		for _, s := range all {
			if !s.Alive {
				continue
			}
			val, ok := spanCurrentValue(s)
			if !ok {
				return trace, &UnresolvableSpanError{Section: s.Section, SpanID: s.ID}
			}
			// Negative ids expand on every value change; other ids only
			// when the value leaves the threshold window.
			if !s.self() && ((s.ID < 0 && val == s.LastVal) || (s.ID >= 0 && inWindow(val, s.NegThres, s.PosThres))) {
				s.LastVal = val
				continue
			}

			oldVal := s.LastVal
			s.LastVal = val
			keep, negT, posT, delta, err := s.BC.Expand(s.ID, oldVal, val)
			if err != nil {
				return trace, err
			}
			if !keep {
				s.Alive = false
			} else {
				s.NegThres, s.PosThres = negT, posT
			}
			if delta == 0 {
				continue
			}

			changed = true
			trace = append(trace, Trace{BytecodeSection: s.Section, BytecodeIndex: s.BC.Index(), SpanID: s.ID, Delta: delta})

			mult, ok := s.BC.ConstantMultiple()
			if !ok {
				mult = 1
			}
			s.BC.SetTailLen(s.BC.TailLen() + delta)
			propagate(byName[s.Section], s.BC.Index(), int64(delta*mult))
		}

		iterations++
		if iterations > iterCap {
			return trace, &InternalConsistencyError{Iterations: iterations, Cap: iterCap, Trace: trace}
		}
		if !changed {
			return trace, nil
		}
	}
}

// propagate shifts the start offset of every bytecode after index within
// sec by delta.
func propagate(sec *section.Section, index int, delta int64) {
	if sec == nil {
		return
	}
	all := sec.All()
	for i := index + 1; i < len(all); i++ {
		off, _ := all[i].Offset()
		all[i].SetOffset(uint64(int64(off) + delta))
	}
}

func sectionTotalLen(s *section.Section) int {
	all := s.All()
	if len(all) == 0 {
		return 0
	}
	last := all[len(all)-1]
	off, _ := last.Offset()
	eff, _ := last.EffectiveLen()
	return int(off) + eff
}

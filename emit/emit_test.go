package emit

import (
	"io"
	"testing"

	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/arch/ie64"
	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/bytecode"
	"github.com/intuitionamiga/ieasm/expr"
	"github.com/intuitionamiga/ieasm/objfmt"
	"github.com/intuitionamiga/ieasm/section"
)

type fakeFormat struct{}

func (fakeFormat) Name() string                            { return "fake" }
func (fakeFormat) SectionPolicy() objfmt.SectionPolicy      { return objfmt.SectionPolicy{} }
func (fakeFormat) Write(sink io.Writer) error               { return nil }
func (fakeFormat) EmitReloc(sym expr.SymbolRef, dest []byte, valueSizeBits int, warnMode int) error {
	return nil
}
func (fakeFormat) EmitValue(value *expr.Expr, dest []byte, byteOrder arch.ByteOrder, warnMode int) error {
	iv, ok := value.AsInt()
	if !ok {
		return nil
	}
	n := iv.Int64()
	for i := range dest {
		dest[i] = byte(n >> (8 * i))
	}
	return nil
}

type fakeSink struct {
	writes []writeCall
	gaps   []gapCall
}
type writeCall struct {
	Section string
	Offset  uint64
	Data    []byte
}
type gapCall struct {
	Section string
	Offset  uint64
	Length  int
}

func (s *fakeSink) WriteBytes(sectionName string, offset uint64, data []byte) error {
	cp := append([]byte(nil), data...)
	s.writes = append(s.writes, writeCall{sectionName, offset, cp})
	return nil
}
func (s *fakeSink) WriteGap(sectionName string, offset uint64, length int) error {
	s.gaps = append(s.gaps, gapCall{sectionName, offset, length})
	return nil
}

func noopAddSpan(id int, dependent *expr.Expr, negThres, posThres int64) {}

func TestRunEmitsFillBytesRepeatedByMultiple(t *testing.T) {
	bc := bytecode.New(&bytecode.Fill{Length: expr.Int(bigint.FromInt64(2)), Value: 0xAA}, nil)
	bc.Multiple = expr.Int(bigint.FromInt64(3))
	if err := bc.Finalize(bytecode.FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	n, err := bc.CalcLen(noopAddSpan)
	if err != nil {
		t.Fatal(err)
	}
	bc.SetTailLen(n)
	bc.SetOffset(0)

	s := section.New(".data", section.Attrs{}, 0)
	s.Append(bc, 1)

	sink := &fakeSink{}
	e := New(ie64.New(), fakeFormat{})
	if err := e.Run([]*section.Section{s}, sink); err != nil {
		t.Fatal(err)
	}
	if len(sink.writes) != 3 {
		t.Fatalf("writes = %d, want 3", len(sink.writes))
	}
	for i, w := range sink.writes {
		if w.Offset != uint64(i*2) {
			t.Fatalf("write %d offset = %d, want %d", i, w.Offset, i*2)
		}
		if len(w.Data) != 2 || w.Data[0] != 0xAA || w.Data[1] != 0xAA {
			t.Fatalf("write %d data = %x, want aaaa", i, w.Data)
		}
	}
}

func TestRunReportsGapForReserve(t *testing.T) {
	bc := bytecode.New(&bytecode.Reserve{Count: expr.Int(bigint.FromInt64(5)), ItemSize: 1}, nil)
	if err := bc.Finalize(bytecode.FinalizeContext{}); err != nil {
		t.Fatal(err)
	}
	n, err := bc.CalcLen(noopAddSpan)
	if err != nil {
		t.Fatal(err)
	}
	bc.SetTailLen(n)
	bc.SetOffset(0)

	s := section.New(".bss", section.Attrs{BSS: true}, 0)
	s.Append(bc, 1)

	sink := &fakeSink{}
	e := New(ie64.New(), fakeFormat{})
	if err := e.Run([]*section.Section{s}, sink); err != nil {
		t.Fatal(err)
	}
	if len(sink.writes) != 0 {
		t.Fatalf("writes = %d, want 0", len(sink.writes))
	}
	if len(sink.gaps) != 1 || sink.gaps[0].Length != 5 {
		t.Fatalf("gaps = %+v, want one gap of length 5", sink.gaps)
	}
}

type fakeSymbolRef string

func (f fakeSymbolRef) SymbolName() string { return string(f) }

type relocContent struct{}

func (relocContent) SpecialKind() bytecode.SpecialKind { return bytecode.KindNone }
func (relocContent) Finalize(bc *bytecode.Bytecode, ctx bytecode.FinalizeContext) error {
	return nil
}
func (relocContent) CalcLen(bc *bytecode.Bytecode, addSpan bytecode.AddSpanFunc) (int, error) {
	return 8, nil
}
func (relocContent) Expand(bc *bytecode.Bytecode, spanID int, oldVal, newVal int64) (bool, int64, int64, int, error) {
	return false, 0, 0, 0, nil
}
func (relocContent) Emit(bc *bytecode.Bytecode, out []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	if err := emitValue(expr.Int(bigint.FromInt64(0x1234)), out[0:4], 0); err != nil {
		return err
	}
	return emitReloc(fakeSymbolRef("target"), out[4:8], 32, 0)
}

func TestRunTracksRelocOffsetAfterPrecedingEmitValue(t *testing.T) {
	bc := bytecode.New(relocContent{}, nil)
	bc.SetTailLen(8)
	bc.SetOffset(0)

	s := section.New(".text", section.Attrs{Code: true}, 0)
	s.Append(bc, 1)

	sink := &fakeSink{}
	e := New(ie64.New(), fakeFormat{})
	if err := e.Run([]*section.Section{s}, sink); err != nil {
		t.Fatal(err)
	}
	if len(sink.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(sink.writes))
	}
	want := []byte{0x34, 0x12, 0, 0, 0, 0, 0, 0}
	got := sink.writes[0].Data
	if len(got) != 8 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("data = %x, want prefix %x", got, want)
	}

	relocs := s.Relocs()
	if len(relocs) != 1 {
		t.Fatalf("relocs = %d, want 1", len(relocs))
	}
	if relocs[0].Offset != 4 || relocs[0].Symbol != "target" {
		t.Fatalf("reloc = %+v, want offset 4 symbol target", relocs[0])
	}
}

func TestRunFailsOnUnresolvedMultiple(t *testing.T) {
	bc := bytecode.New(&bytecode.Fill{Length: expr.Int(bigint.Zero()), Value: 0}, nil)
	bc.Multiple = expr.SymbolLeaf(fakeSymbolRef("N"))
	bc.SetTailLen(0)
	bc.SetOffset(0)

	s := section.New(".text", section.Attrs{}, 0)
	s.Append(bc, 1)

	sink := &fakeSink{}
	e := New(ie64.New(), fakeFormat{})
	if err := e.Run([]*section.Section{s}, sink); err == nil {
		t.Fatal("expected an UnresolvedMultipleError")
	}
}

package ie64

import (
	"github.com/intuitionamiga/ieasm/arch"
	"github.com/intuitionamiga/ieasm/bigint"
	"github.com/intuitionamiga/ieasm/expr"
)

// Instr is the opaque, fully-encoded-shape instruction state
// arch.Instruction requires. Every IE64 opcode is a fixed 8 bytes, so an
// Instr never grows: Spans is always empty and Expand never reports
// growth.
type Instr struct {
	opcode byte
	rd, rs, rt byte
	size byte
	xbit byte
	// imm is the 32-bit immediate/displacement field, nil when unused (a
	// pure register-to-register form leaves the field zero).
	imm *expr.Expr
}

func (i *Instr) Len() int                        { return instrLen }
func (i *Instr) Spans() []arch.InstructionSpan   { return nil }
func (i *Instr) Expand(spanID int, newVal int64) (bool, int64, int64) { return false, 0, 0 }

func (i *Instr) Encode(dest []byte, emitValue arch.EmitValueFunc, emitReloc arch.EmitRelocFunc) error {
	dest[0] = i.opcode
	dest[1] = (i.rd << 3) | (i.size << 1) | i.xbit
	dest[2] = i.rs << 3
	dest[3] = i.rt << 3
	if i.imm == nil {
		dest[4], dest[5], dest[6], dest[7] = 0, 0, 0, 0
		return nil
	}
	return emitValue(i.imm, dest[4:8], 0)
}

func reg(op arch.Operand) (byte, bool) {
	r, ok := op.Register.(Reg)
	if !ok {
		return 0, false
	}
	return r.num, true
}

func zeroDisp() *expr.Expr { return expr.Int(bigint.Zero()) }

// NewInstruction dispatches on mnemonic (after stripping a size suffix)
// to build an Instr, the same switch shape as the teacher's
// assembleInstruction (ie64asm.go:2039) with each asmXxx helper folded
// into a case. The FP opcodes share the integer ALU2/ALU3 register-field
// layout (only the opcode byte differs between e.g. add and fadd), so
// they reuse the same two encoder shapes rather than duplicating them.
func (a *Arch) NewInstruction(spec arch.InstructionSpec) (arch.Instruction, error) {
	base, size := parseSizeSuffix(spec.Mnemonic)
	ops := spec.Operands

	switch base {
	case "move":
		return encodeMove(base, size, ops)
	case "movt":
		return encodeImmOnly(base, opMOVT, sizeQ, ops)
	case "moveq":
		return encodeImmOnly(base, opMOVEQ, sizeQ, ops)
	case "lea":
		return encodeMemRD(base, opLEA, sizeQ, ops)
	case "load":
		return encodeLoadStore(base, opLOAD, size, ops)
	case "store":
		return encodeLoadStore(base, opSTORE, size, ops)
	case "add", "fadd":
		return encodeALU3(base, pick(base, opADD, opFADD), size, ops)
	case "sub", "fsub":
		return encodeALU3(base, pick(base, opSUB, opFSUB), size, ops)
	case "mulu":
		return encodeALU3(base, opMULU, size, ops)
	case "muls", "fmul":
		return encodeALU3(base, pick(base, opMULS, opFMUL), size, ops)
	case "divu":
		return encodeALU3(base, opDIVU, size, ops)
	case "divs", "fdiv":
		return encodeALU3(base, pick(base, opDIVS, opFDIV), size, ops)
	case "mod", "fmod":
		return encodeALU3(base, pick(base, opMOD, opFMOD), size, ops)
	case "fpow":
		return encodeALU3(base, opFPOW, size, ops)
	case "fcmp":
		return encodeALU3(base, opFCMP, size, ops)
	case "neg", "fneg":
		return encodeALU2(base, pick(base, opNEG, opFNEG), size, ops)
	case "and":
		return encodeALU3(base, opAND, size, ops)
	case "or":
		return encodeALU3(base, opOR, size, ops)
	case "eor":
		return encodeALU3(base, opEOR, size, ops)
	case "not":
		return encodeALU2(base, opNOT, size, ops)
	case "lsl":
		return encodeALU3(base, opLSL, size, ops)
	case "lsr":
		return encodeALU3(base, opLSR, size, ops)
	case "asr":
		return encodeALU3(base, opASR, size, ops)
	case "clz":
		return encodeALU2(base, opCLZ, size, ops)
	case "fmov", "fabs", "fsqrt", "fint", "fsin", "fcos", "ftan", "fatan", "flog", "fexp",
		"fcvtif", "fcvtfi", "fmovi", "fmovo":
		return encodeALU2(base, fpUnaryOpcode(base), size, ops)
	case "bra":
		return encodeBranch0(base, opBRA, ops)
	case "beq":
		return encodeBranch2(base, opBEQ, ops)
	case "bne":
		return encodeBranch2(base, opBNE, ops)
	case "blt":
		return encodeBranch2(base, opBLT, ops)
	case "bge":
		return encodeBranch2(base, opBGE, ops)
	case "bgt":
		return encodeBranch2(base, opBGT, ops)
	case "ble":
		return encodeBranch2(base, opBLE, ops)
	case "bhi":
		return encodeBranch2(base, opBHI, ops)
	case "bls":
		return encodeBranch2(base, opBLS, ops)
	case "jmp":
		return encodeJmp(base, ops)
	case "jsr":
		return encodeJsr(base, ops)
	case "rts":
		return &Instr{opcode: opRTS}, nil
	case "push":
		return encodePushPop(base, opPUSH, ops)
	case "pop":
		return encodePushPop(base, opPOP, ops)
	case "fload":
		return encodeMemRD(base, opFLOAD, sizeQ, ops)
	case "fstore":
		return encodeMemRD(base, opFSTORE, sizeQ, ops)
	case "fmovecr":
		return encodeImmOnly(base, opFMOVECR, sizeQ, ops)
	case "fmovsr":
		return encodeALU2(base, opFMOVSR, sizeQ, ops)
	case "fmovcr":
		return encodeALU2(base, opFMOVCR, sizeQ, ops)
	case "fmovsc":
		return encodeALU2(base, opFMOVSC, sizeQ, ops)
	case "fmovcc":
		return encodeALU2(base, opFMOVCC, sizeQ, ops)
	case "nop":
		return &Instr{opcode: opNOP}, nil
	case "halt":
		return &Instr{opcode: opHALT}, nil
	case "sei":
		return &Instr{opcode: opSEI}, nil
	case "cli":
		return &Instr{opcode: opCLI}, nil
	case "rti":
		return &Instr{opcode: opRTI}, nil
	case "wait":
		return encodeImmOnly(base, opWAIT, 0, ops)
	default:
		return nil, &unknownMnemonicError{Mnemonic: base}
	}
}

// pick returns opInt for an integer mnemonic and opFP for its
// floating-point counterpart, dispatched on whether the mnemonic starts
// with 'f'.
func pick(mnemonic string, opInt, opFP byte) byte {
	if len(mnemonic) > 0 && mnemonic[0] == 'f' {
		return opFP
	}
	return opInt
}

func fpUnaryOpcode(base string) byte {
	switch base {
	case "fmov":
		return opFMOV
	case "fabs":
		return opFABS
	case "fsqrt":
		return opFSQRT
	case "fint":
		return opFINT
	case "fsin":
		return opFSIN
	case "fcos":
		return opFCOS
	case "ftan":
		return opFTAN
	case "fatan":
		return opFATAN
	case "flog":
		return opFLOG
	case "fexp":
		return opFEXP
	case "fcvtif":
		return opFCVTIF
	case "fcvtfi":
		return opFCVTFI
	case "fmovi":
		return opFMOVI
	case "fmovo":
		return opFMOVO
	}
	return 0
}

// encodeMove handles: move.s rd, rs | move.s rd, #imm (ie64asm.go:2227).
func encodeMove(mnemonic string, size byte, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 2 {
		return nil, &operandError{mnemonic, "requires 2 operands (rd, rs/#imm)"}
	}
	rd, ok := reg(ops[0])
	if !ok {
		return nil, &operandError{mnemonic, "invalid destination register"}
	}
	if ops[1].Value != nil && ops[1].Register == nil {
		return &Instr{opcode: opMOVE, rd: rd, size: size, xbit: 1, imm: ops[1].Value}, nil
	}
	rs, ok := reg(ops[1])
	if !ok {
		return nil, &operandError{mnemonic, "invalid source register"}
	}
	return &Instr{opcode: opMOVE, rd: rd, size: size, rs: rs}, nil
}

// encodeImmOnly handles rd, #imm forms: movt, moveq, wait (which has no
// destination register), fmovecr.
func encodeImmOnly(mnemonic string, opcode byte, size byte, ops []arch.Operand) (*Instr, error) {
	switch len(ops) {
	case 1:
		if ops[0].Value == nil {
			return nil, &operandError{mnemonic, "requires an immediate operand"}
		}
		return &Instr{opcode: opcode, size: size, xbit: 1, imm: ops[0].Value}, nil
	case 2:
		rd, ok := reg(ops[0])
		if !ok {
			return nil, &operandError{mnemonic, "invalid destination register"}
		}
		if ops[1].Value == nil {
			return nil, &operandError{mnemonic, "requires an immediate operand"}
		}
		return &Instr{opcode: opcode, rd: rd, size: size, xbit: 1, imm: ops[1].Value}, nil
	default:
		return nil, &operandError{mnemonic, "wrong operand count"}
	}
}

// encodeMemRD handles: op rd, disp(rs) | op rd, (rs) — lea, fload, fstore
// (ie64asm.go:2312,2714).
func encodeMemRD(mnemonic string, opcode byte, size byte, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 2 {
		return nil, &operandError{mnemonic, "requires 2 operands (rd, disp(rs))"}
	}
	rd, ok := reg(ops[0])
	if !ok {
		return nil, &operandError{mnemonic, "invalid destination register"}
	}
	rs, ok := reg(ops[1])
	if !ok {
		return nil, &operandError{mnemonic, "invalid base register"}
	}
	disp := ops[1].Value
	if disp == nil {
		disp = zeroDisp()
	}
	return &Instr{opcode: opcode, rd: rd, size: size, xbit: 1, rs: rs, imm: disp}, nil
}

// encodeLoadStore handles: load.s/store.s rd, disp(rs) (ie64asm.go:2365).
func encodeLoadStore(mnemonic string, opcode byte, size byte, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 2 {
		return nil, &operandError{mnemonic, "requires 2 operands"}
	}
	rd, ok := reg(ops[0])
	if !ok {
		return nil, &operandError{mnemonic, "invalid register"}
	}
	rs, ok := reg(ops[1])
	if !ok {
		return nil, &operandError{mnemonic, "invalid base register"}
	}
	if ops[1].Value == nil {
		return &Instr{opcode: opcode, rd: rd, size: size, rs: rs}, nil
	}
	return &Instr{opcode: opcode, rd: rd, size: size, xbit: 1, rs: rs, imm: ops[1].Value}, nil
}

// encodeALU3 handles: op.s rd, rs, rt | op.s rd, rs, #imm (ie64asm.go:2388).
func encodeALU3(mnemonic string, opcode byte, size byte, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 3 {
		return nil, &operandError{mnemonic, "requires 3 operands (rd, rs, rt/#imm)"}
	}
	rd, ok := reg(ops[0])
	if !ok {
		return nil, &operandError{mnemonic, "invalid destination register"}
	}
	rs, ok := reg(ops[1])
	if !ok {
		return nil, &operandError{mnemonic, "invalid source register"}
	}
	if ops[2].Value != nil && ops[2].Register == nil {
		return &Instr{opcode: opcode, rd: rd, size: size, xbit: 1, rs: rs, imm: ops[2].Value}, nil
	}
	rt, ok := reg(ops[2])
	if !ok {
		return nil, &operandError{mnemonic, "invalid third operand"}
	}
	return &Instr{opcode: opcode, rd: rd, size: size, rs: rs, rt: rt}, nil
}

// encodeALU2 handles: op.s rd, rs (ie64asm.go:2419).
func encodeALU2(mnemonic string, opcode byte, size byte, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 2 {
		return nil, &operandError{mnemonic, "requires 2 operands (rd, rs)"}
	}
	rd, ok := reg(ops[0])
	if !ok {
		return nil, &operandError{mnemonic, "invalid destination register"}
	}
	rs, ok := reg(ops[1])
	if !ok {
		return nil, &operandError{mnemonic, "invalid source register"}
	}
	return &Instr{opcode: opcode, rd: rd, size: size, rs: rs}, nil
}

// encodeBranch0 handles: bra label — imm32 carries a PC-relative
// displacement Expr, resolved by the core's symbol/location machinery
// rather than the teacher's direct resolveLabel call (ie64asm.go:2435).
func encodeBranch0(mnemonic string, opcode byte, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 1 || ops[0].Value == nil {
		return nil, &operandError{mnemonic, "requires 1 operand (label)"}
	}
	return &Instr{opcode: opcode, size: sizeQ, imm: ops[0].Value}, nil
}

// encodeBranch2 handles: bcc rs, rt, label (ie64asm.go:2448).
func encodeBranch2(mnemonic string, opcode byte, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 3 || ops[2].Value == nil {
		return nil, &operandError{mnemonic, "requires 3 operands (rs, rt, label)"}
	}
	rs, ok := reg(ops[0])
	if !ok {
		return nil, &operandError{mnemonic, "invalid register"}
	}
	rt, ok := reg(ops[1])
	if !ok {
		return nil, &operandError{mnemonic, "invalid register"}
	}
	return &Instr{opcode: opcode, size: sizeQ, rs: rs, rt: rt, imm: ops[2].Value}, nil
}

// encodeJmp handles: jmp disp(rs) (ie64asm.go:2469).
func encodeJmp(mnemonic string, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 1 {
		return nil, &operandError{mnemonic, "requires 1 operand (register-indirect)"}
	}
	rs, ok := reg(ops[0])
	if !ok {
		return nil, &operandError{mnemonic, "requires register-indirect operand"}
	}
	disp := ops[0].Value
	if disp == nil {
		disp = zeroDisp()
	}
	return &Instr{opcode: opJMP, rs: rs, imm: disp}, nil
}

// encodeJsr handles: jsr label (PC-relative) | jsr disp(rs) or jsr (rs)
// (register-indirect) (ie64asm.go:2481). The two forms are disambiguated
// on whether the operand carries a register (register-indirect) or not
// (a pure label expression), since the parser collaborator has already
// classified it rather than this package re-parsing a raw string.
func encodeJsr(mnemonic string, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 1 {
		return nil, &operandError{mnemonic, "requires 1 operand"}
	}
	if ops[0].Register != nil {
		rs, _ := reg(ops[0])
		disp := ops[0].Value
		if disp == nil {
			disp = zeroDisp()
		}
		return &Instr{opcode: opJSRIND, rs: rs, imm: disp}, nil
	}
	if ops[0].Value == nil {
		return nil, &operandError{mnemonic, "requires a label or register-indirect operand"}
	}
	return &Instr{opcode: opJSR, size: sizeQ, imm: ops[0].Value}, nil
}

// encodePushPop handles: push rs | pop rd (ie64asm.go:2503). push reads
// the rs field, pop writes the rd field, matching which field the
// teacher's CPU interpreter reads for each.
func encodePushPop(mnemonic string, opcode byte, ops []arch.Operand) (*Instr, error) {
	if len(ops) != 1 {
		return nil, &operandError{mnemonic, "requires 1 operand (register)"}
	}
	r, ok := reg(ops[0])
	if !ok {
		return nil, &operandError{mnemonic, "invalid register"}
	}
	if opcode == opPUSH {
		return &Instr{opcode: opcode, size: sizeQ, rs: r}, nil
	}
	return &Instr{opcode: opcode, rd: r, size: sizeQ}, nil
}

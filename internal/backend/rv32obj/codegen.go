package rv32obj

import (
	"fmt"

	"github.com/lightplayer/lp/internal/q32lower"
	"github.com/lightplayer/lp/internal/ssair"
)

// RV32 general-purpose register numbers (RISC-V calling convention names in
// comments). Only the subset this backend's instruction selection needs.
const (
	regZero = 0
	regRA   = 1
	regSP   = 2
	regT0   = 5
	regT1   = 6
	regT2   = 7
	regA0   = 10
	regT3   = 28
)

const wordSize = 4

// Compile lowers mod (Q32-lowering it first if it hasn't been already) into
// one Object containing every function's machine code in a single .text
// section, with OpCall/OpCallExtern sites recorded as RelocCallPLT
// relocations against the callee's symbol name so a later link step
// (internal/riscv/elf.Link) resolves them against
// whichever object ultimately defines lpfx_*/__lp_fixed32_* and any other
// module function.
//
// Scope: this is a register-starved, spill-everything code generator — every
// SSA value round-trips through its own stack slot between instructions,
// matching the stack-machine shape q32lower.Lower already assumes when it
// says float ops become "backend-specific" bit manipulation. Vector and
// matrix typed values are out of scope for this tier (shader preview and
// development run through internal/backend/hostjit, which is vector-complete);
// Compile returns an error if it encounters one, rather than silently
// mis-codegenning it.
func Compile(mod *ssair.Module) (*Object, error) {
	if mod.DecimalFormat != "q32" {
		mod = q32lower.Lower(mod)
	}

	obj := New("module")
	textIdx := obj.AddSection(SecText, nil, 4)
	var code []byte

	for _, fn := range mod.Functions {
		if err := checkNoVectors(fn); err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Sig.Name, err)
		}
		fnCode, relocs, err := compileFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Sig.Name, err)
		}
		start := uint32(len(code))
		obj.AddSymbol(fn.Sig.Name, textIdx, start, BindGlobal)
		for _, r := range relocs {
			r.Section = textIdx
			r.Offset += start
			obj.AddRelocation(r)
		}
		code = append(code, fnCode...)
	}

	obj.Sections[textIdx].Data = code
	return obj, nil
}

func checkNoVectors(fn *ssair.Function) error {
	for _, slot := range fn.StackSlots {
		if slot.Type.Kind == ssair.Vec || slot.Type.Kind == ssair.Mat {
			return fmt.Errorf("stack slot %q: vector/matrix locals are unsupported on the rv32 backend", slot.Name)
		}
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op == ssair.OpVecMake || in.Op == ssair.OpVecExtract || in.Op == ssair.OpVecInsert {
				return fmt.Errorf("block %q: vector ops are unsupported on the rv32 backend", b.Name)
			}
			if in.Type.Kind == ssair.Vec || in.Type.Kind == ssair.Mat {
				return fmt.Errorf("block %q: vector/matrix-typed value is unsupported on the rv32 backend", b.Name)
			}
		}
	}
	return nil
}

// frameLayout computes the stack frame offsets (all relative to the
// post-prologue sp) for one function: one word per SSA value, one word per
// stack-slot element, the saved return address, and a small out-parameter
// writeback area the caller reads after the call returns (this backend's
// ABI substitute for the host JIT's out-of-band outs slice).
type frameLayout struct {
	slotOffset []uint32 // per StackSlot index, in bytes
	raOffset   uint32
	outBase    uint32
	frameSize  uint32
}

func valueOffset(v ssair.Value) uint32 { return uint32(v) * wordSize }

func computeFrame(fn *ssair.Function) frameLayout {
	valuesBytes := uint32(fn.NumValues) * wordSize
	slotOffsets := make([]uint32, len(fn.StackSlots))
	cursor := valuesBytes
	for i, s := range fn.StackSlots {
		slotOffsets[i] = cursor
		width := uint32(1)
		if s.ArrayLen > 0 {
			width = uint32(s.ArrayLen)
		}
		cursor += width * wordSize
	}
	raOffset := cursor
	outBase := raOffset + wordSize
	numOuts := uint32(len(fn.Sig.Params))
	frameSize := alignUp(outBase+numOuts*wordSize, 16)
	return frameLayout{slotOffset: slotOffsets, raOffset: raOffset, outBase: outBase, frameSize: frameSize}
}

// compileFunction emits one function's machine code (prologue, every block
// in order, epilogue folded into each TermReturn) and returns the relocations
// its call sites need, with Offset relative to the start of this function's
// code (Compile adds the function's base offset in afterward).
func compileFunction(fn *ssair.Function) ([]byte, []Relocation, error) {
	fl := computeFrame(fn)
	if fl.frameSize > 2048 {
		// Every stack access here is sp-relative through a 12-bit signed
		// I/S-type immediate (max +2047). A bigger frame would need a
		// second base register or multi-instruction offsets; neither is
		// implemented, so refuse rather than silently truncate the offset.
		return nil, nil, fmt.Errorf("stack frame of %d bytes exceeds the rv32 backend's 2048-byte limit", fl.frameSize)
	}

	// Pass 1: block layout. instrWords/termWords are pure functions of the
	// instruction data, independent of block addresses, so the byte length
	// of a block doesn't depend on knowing any other block's address yet.
	blockOffset := map[string]uint32{}
	cursor := uint32(2 * wordSize) // pass 2 emits the prologue (addi sp; sw ra) before the first block
	for _, b := range fn.Blocks {
		blockOffset[b.Name] = cursor
		for _, in := range b.Instrs {
			n, err := instrWords(in)
			if err != nil {
				return nil, nil, err
			}
			cursor += uint32(n) * wordSize
		}
		cursor += uint32(termWords(b.Term)) * wordSize
	}

	// Pass 2: real emission, now that every block's function-relative start
	// address is known.
	a := &asm{fn: fn, fl: fl, blockOffset: blockOffset}

	a.emitRaw(encodeI(negImm(int32(fl.frameSize)), regSP, 0, regSP, opOPIMM)) // addi sp, sp, -frameSize
	a.emitStore(regRA, regSP, fl.raOffset)

	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if err := a.emitInstr(in); err != nil {
				return nil, nil, err
			}
		}
		a.emitTerm(b.Term)
	}

	return a.code, a.relocs, nil
}

// asm accumulates one function's machine code and the relocations its call
// sites need; offsets recorded here are function-relative.
type asm struct {
	fn          *ssair.Function
	fl          frameLayout
	blockOffset map[string]uint32
	code        []byte
	relocs      []Relocation
}

func (a *asm) off() uint32 { return uint32(len(a.code)) }

func (a *asm) emitRaw(word uint32) {
	a.code = append(a.code,
		byte(word), byte(word>>8), byte(word>>16), byte(word>>24))
}

func (a *asm) emitLoad(rd, rs1 int, imm uint32) {
	a.emitRaw(encodeI(int32(imm), rs1, 2, rd, opLOAD)) // lw
}

func (a *asm) emitStore(rs2, rs1 int, imm uint32) {
	a.emitRaw(encodeS(int32(imm), rs2, rs1, 2, opSTORE)) // sw
}

// loadValue/storeValue move an SSA value between its stack slot and a
// scratch register.
func (a *asm) loadValue(rd int, v ssair.Value) { a.emitLoad(rd, regSP, valueOffset(v)) }
func (a *asm) storeValue(rs int, v ssair.Value) { a.emitStore(rs, regSP, valueOffset(v)) }

// li loads a 32-bit immediate into rd, using lui+addi only when it doesn't
// fit in addi's 12-bit signed immediate alone. The word count this produces
// must match what instrWords predicted for the same instruction.
func (a *asm) li(rd int, val int32) {
	if val >= -2048 && val <= 2047 {
		a.emitRaw(encodeI(val, regZero, 0, rd, opOPIMM)) // addi rd, x0, val
		return
	}
	upper, lower := splitImm32(val)
	a.emitRaw(encodeU(upper, rd, opLUI))
	if lower != 0 {
		a.emitRaw(encodeI(lower, rd, 0, rd, opOPIMM))
	}
}

func liWords(val int32) int {
	if val >= -2048 && val <= 2047 {
		return 1
	}
	_, lower := splitImm32(val)
	if lower != 0 {
		return 2
	}
	return 1
}

// splitImm32 computes the lui/addi decomposition of a 32-bit constant: upper
// is the 20-bit field passed to lui (pre-shift), lower is addi's signed
// 12-bit immediate, chosen so that (upper<<12)+signExtend12(lower) == val.
func splitImm32(val int32) (upper int32, lower int32) {
	lower = val << 20 >> 20 // sign-extend low 12 bits
	upper = (val - lower) >> 12
	return upper, lower
}

func negImm(v int32) int32 { return -v }

// instrWords reports how many 4-byte RV32 instructions emitInstr will
// produce for in, without needing block addresses.
func instrWords(in ssair.Instr) (int, error) {
	switch in.Op {
	case ssair.OpConstInt, ssair.OpConstBool:
		var v int32
		if in.Op == ssair.OpConstBool {
			if in.ImmBool {
				v = 1
			}
		} else {
			v = int32(in.ImmInt)
		}
		return liWords(v) + 1, nil // + store
	case ssair.OpConstFloat:
		return 0, fmt.Errorf("unlowered OpConstFloat reached rv32 codegen")
	case ssair.OpAdd, ssair.OpSub, ssair.OpMul, ssair.OpDiv, ssair.OpMod,
		ssair.OpAnd, ssair.OpOr:
		return 4, nil // load, load, op, store
	case ssair.OpNeg, ssair.OpNot:
		return 3, nil // load, op, store
	case ssair.OpAbs:
		return 5, nil // load, srai, xor, sub, store
	case ssair.OpMin, ssair.OpMax:
		return 8, nil
	case ssair.OpCmpEq, ssair.OpCmpNe, ssair.OpCmpGe, ssair.OpCmpLe:
		return 5, nil
	case ssair.OpCmpLt, ssair.OpCmpGt:
		return 4, nil
	case ssair.OpSelect:
		return 8, nil
	case ssair.OpConvertSIntToFloat, ssair.OpConvertUIntToFloat,
		ssair.OpConvertFloatToSInt, ssair.OpConvertFloatToUInt:
		return 3, nil
	case ssair.OpConvertIntToUint, ssair.OpConvertUintToInt:
		return 2, nil
	case ssair.OpFloor:
		return 4, nil
	case ssair.OpCeil:
		return 6, nil
	case ssair.OpTrunc:
		return 9, nil
	case ssair.OpNearest, ssair.OpRound:
		return 6, nil
	case ssair.OpSqrt:
		return 0, fmt.Errorf("unlowered OpSqrt reached rv32 codegen")
	case ssair.OpAlloca:
		return 2, nil
	case ssair.OpLoad:
		return 3, nil
	case ssair.OpStore:
		return 3, nil
	case ssair.OpLoadIndexed:
		return 6, nil
	case ssair.OpStoreIndexed:
		return 6, nil
	case ssair.OpBoundsCheck:
		return 7, nil
	case ssair.OpCallExtern, ssair.OpCall:
		if len(in.Args) > 8 {
			return 0, fmt.Errorf("call to %s: more than 8 arguments unsupported on rv32 backend", in.Callee)
		}
		return len(in.Args) + 3, nil // per-arg load, auipc, jalr, result store
	case ssair.OpParam:
		if in.Index >= 8 {
			return 0, fmt.Errorf("param index %d exceeds the 8-register rv32 ABI", in.Index)
		}
		return 1, nil
	case ssair.OpParamWriteback:
		return 2, nil
	}
	return 0, fmt.Errorf("unhandled op %v in rv32 codegen", in.Op)
}

func termWords(t ssair.Terminator) int {
	switch t.Kind {
	case ssair.TermJump:
		return 1
	case ssair.TermBranch:
		return 3
	case ssair.TermReturn:
		if t.HasRet {
			return 4
		}
		return 3
	case ssair.TermTrap:
		return 2
	}
	return 0
}

func (a *asm) emitInstr(in ssair.Instr) error {
	switch in.Op {
	case ssair.OpConstInt, ssair.OpConstBool:
		var v int32
		if in.Op == ssair.OpConstBool {
			if in.ImmBool {
				v = 1
			}
		} else {
			v = int32(in.ImmInt)
		}
		a.li(regT0, v)
		a.storeValue(regT0, in.Result)

	case ssair.OpAdd, ssair.OpSub, ssair.OpMul, ssair.OpDiv, ssair.OpMod, ssair.OpAnd, ssair.OpOr:
		a.loadValue(regT0, in.Args[0])
		a.loadValue(regT1, in.Args[1])
		a.emitRaw(binOpEncoding(in.Op, regT0, regT0, regT1))
		a.storeValue(regT0, in.Result)

	case ssair.OpNeg:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeR(0x20, regT0, regZero, 0, regT0, opOP)) // sub t0, x0, t0
		a.storeValue(regT0, in.Result)

	case ssair.OpNot:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeI(1, regT0, 4, regT0, opOPIMM)) // xori t0, t0, 1
		a.storeValue(regT0, in.Result)

	case ssair.OpAbs:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeI(shiftImm(true, 31), regT0, 5, regT1, opOPIMM)) // srai t1, t0, 31
		a.emitRaw(encodeR(0, regT1, regT0, 4, regT0, opOP))              // xor t0, t0, t1
		a.emitRaw(encodeR(0, regT1, regT0, 0, regT0, opOP))              // sub t0, t0, t1
		a.storeValue(regT0, in.Result)

	case ssair.OpMin, ssair.OpMax:
		a.loadValue(regT0, in.Args[0])
		a.loadValue(regT1, in.Args[1])
		if in.Op == ssair.OpMin {
			a.emitRaw(encodeR(0, regT1, regT0, 2, regT2, opOP)) // slt t2, t0, t1
		} else {
			a.emitRaw(encodeR(0, regT0, regT1, 2, regT2, opOP)) // slt t2, t1, t0
		}
		a.emitRaw(encodeR(0x20, regT2, regZero, 0, regT2, opOP)) // sub t2, x0, t2
		a.emitRaw(encodeR(0, regT1, regT0, 4, regT3, opOP))      // xor t3, t0, t1
		a.emitRaw(encodeR(0, regT2, regT3, 7, regT3, opOP))      // and t3, t3, t2
		a.emitRaw(encodeR(0, regT3, regT1, 4, regT0, opOP))      // xor t0, t1, t3
		a.storeValue(regT0, in.Result)

	case ssair.OpCmpEq, ssair.OpCmpNe, ssair.OpCmpLt, ssair.OpCmpLe, ssair.OpCmpGt, ssair.OpCmpGe:
		a.loadValue(regT0, in.Args[0])
		a.loadValue(regT1, in.Args[1])
		switch in.Op {
		case ssair.OpCmpEq:
			a.emitRaw(encodeR(0, regT1, regT0, 4, regT0, opOP))    // xor t0, t0, t1
			a.emitRaw(encodeI(1, regT0, 3, regT0, opOPIMM))        // sltiu t0, t0, 1
		case ssair.OpCmpNe:
			a.emitRaw(encodeR(0, regT1, regT0, 4, regT0, opOP)) // xor t0, t0, t1
			a.emitRaw(encodeR(0, regT0, regZero, 3, regT0, opOP)) // sltu t0, x0, t0
		case ssair.OpCmpLt:
			a.emitRaw(encodeR(0, regT1, regT0, 2, regT0, opOP)) // slt t0, t0, t1
		case ssair.OpCmpLe:
			a.emitRaw(encodeR(0, regT0, regT1, 2, regT0, opOP)) // slt t0, t1, t0
			a.emitRaw(encodeI(1, regT0, 4, regT0, opOPIMM))     // xori t0, t0, 1
		case ssair.OpCmpGt:
			a.emitRaw(encodeR(0, regT0, regT1, 2, regT0, opOP)) // slt t0, t1, t0
		case ssair.OpCmpGe:
			a.emitRaw(encodeR(0, regT1, regT0, 2, regT0, opOP)) // slt t0, t0, t1
			a.emitRaw(encodeI(1, regT0, 4, regT0, opOPIMM))     // xori t0, t0, 1
		}
		a.storeValue(regT0, in.Result)

	case ssair.OpSelect:
		a.loadValue(regT0, in.Args[0]) // cond
		a.loadValue(regT1, in.Args[1]) // a
		a.loadValue(regT2, in.Args[2]) // b
		a.emitRaw(encodeR(0x20, regT0, regZero, 0, regT0, opOP)) // sub t0, x0, cond (mask)
		a.emitRaw(encodeR(0, regT2, regT1, 4, regT3, opOP))      // xor t3, a, b
		a.emitRaw(encodeR(0, regT0, regT3, 7, regT3, opOP))      // and t3, t3, mask
		a.emitRaw(encodeR(0, regT3, regT2, 4, regT0, opOP))      // xor t0, b, t3
		a.storeValue(regT0, in.Result)

	case ssair.OpConvertSIntToFloat, ssair.OpConvertUIntToFloat:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeI(16, regT0, 1, regT0, opOPIMM)) // slli t0, t0, 16
		a.storeValue(regT0, in.Result)

	case ssair.OpConvertFloatToSInt:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeI(shiftImm(true, 16), regT0, 5, regT0, opOPIMM)) // srai t0, t0, 16
		a.storeValue(regT0, in.Result)

	case ssair.OpConvertFloatToUInt:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeI(shiftImm(false, 16), regT0, 5, regT0, opOPIMM)) // srli t0, t0, 16
		a.storeValue(regT0, in.Result)

	case ssair.OpConvertIntToUint, ssair.OpConvertUintToInt:
		a.loadValue(regT0, in.Args[0])
		a.storeValue(regT0, in.Result)

	case ssair.OpFloor:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeU(0xFFFF0, regT1, opLUI)) // lui t1, 0xFFFF0 -> t1 = 0xFFFF0000
		a.emitRaw(encodeR(0, regT1, regT0, 7, regT0, opOP))
		a.storeValue(regT0, in.Result)

	case ssair.OpCeil:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeR(0x20, regT0, regZero, 0, regT0, opOP)) // sub t0, x0, t0
		a.emitRaw(encodeU(0xFFFF0, regT1, opLUI))
		a.emitRaw(encodeR(0, regT1, regT0, 7, regT0, opOP)) // and t0, t0, t1
		a.emitRaw(encodeR(0x20, regT0, regZero, 0, regT0, opOP)) // sub t0, x0, t0
		a.storeValue(regT0, in.Result)

	case ssair.OpTrunc:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeI(shiftImm(true, 31), regT0, 5, regT1, opOPIMM)) // srai t1, t0, 31
		a.emitRaw(encodeU(0x10, regT2, opLUI))                      // lui t2, 0x10 -> 0x10000
		a.emitRaw(encodeI(negImm(1), regT2, 0, regT2, opOPIMM))     // addi t2, t2, -1 -> 0xFFFF
		a.emitRaw(encodeR(0, regT2, regT1, 7, regT1, opOP))         // and t1, t1, t2
		a.emitRaw(encodeR(0, regT1, regT0, 0, regT0, opOP))         // add t0, t0, t1
		a.emitRaw(encodeU(0xFFFF0, regT3, opLUI))
		a.emitRaw(encodeR(0, regT3, regT0, 7, regT0, opOP)) // and t0, t0, t3
		a.storeValue(regT0, in.Result)

	case ssair.OpNearest, ssair.OpRound:
		a.loadValue(regT0, in.Args[0])
		a.emitRaw(encodeU(0x8, regT1, opLUI)) // lui t1, 0x8 -> 0x8000 (Q32 one-half)
		a.emitRaw(encodeR(0, regT1, regT0, 0, regT0, opOP))
		a.emitRaw(encodeU(0xFFFF0, regT2, opLUI))
		a.emitRaw(encodeR(0, regT2, regT0, 7, regT0, opOP))
		a.storeValue(regT0, in.Result)

	case ssair.OpAlloca:
		if in.Index < 0 || in.Index >= len(a.fl.slotOffset) {
			return fmt.Errorf("alloca: stack slot index %d out of range", in.Index)
		}
		off := a.fl.slotOffset[in.Index]
		a.emitRaw(encodeI(int32(off), regSP, 0, regT0, opOPIMM)) // addi t0, sp, off
		a.storeValue(regT0, in.Result)

	case ssair.OpLoad:
		a.loadValue(regT0, in.Args[0])
		a.emitLoad(regT1, regT0, 0)
		a.storeValue(regT1, in.Result)

	case ssair.OpStore:
		a.loadValue(regT0, in.Args[0]) // ptr
		a.loadValue(regT1, in.Args[1]) // val
		a.emitStore(regT1, regT0, uint32(in.Index*wordSize))

	case ssair.OpLoadIndexed:
		a.loadValue(regT0, in.Args[0]) // ptr
		a.loadValue(regT1, in.Args[1]) // index
		a.emitRaw(encodeI(2, regT1, 1, regT1, opOPIMM))    // slli t1, t1, 2
		a.emitRaw(encodeR(0, regT1, regT0, 0, regT0, opOP)) // add t0, t0, t1
		a.emitLoad(regT2, regT0, 0)
		a.storeValue(regT2, in.Result)

	case ssair.OpStoreIndexed:
		a.loadValue(regT0, in.Args[0]) // ptr
		a.loadValue(regT1, in.Args[1]) // index
		a.loadValue(regT2, in.Args[2]) // val
		a.emitRaw(encodeI(2, regT1, 1, regT1, opOPIMM))
		a.emitRaw(encodeR(0, regT1, regT0, 0, regT0, opOP))
		a.emitStore(regT2, regT0, 0)

	case ssair.OpBoundsCheck:
		// lw, lw, blt, bge, jal, li, ecall: trap target sits right after the
		// jal that skips over it on the in-range path.
		a.loadValue(regT0, in.Args[0]) // index
		a.loadValue(regT1, in.Args[1]) // length
		a.emitRaw(encodeB(12, regZero, regT0, 4, opBRANCH)) // blt t0, x0, trap
		a.emitRaw(encodeB(8, regT1, regT0, 5, opBRANCH))    // bge t0, t1, trap
		a.emitRaw(encodeJ(12, regZero, opJAL))              // jal x0, ok (skip trap)
		a.li(regA0, 1)
		a.emitRaw(encodeI(0, regZero, 0, regZero, opSYSTEM)) // ecall

	case ssair.OpCallExtern, ssair.OpCall:
		for i, arg := range in.Args {
			a.loadValue(regA0+i, arg)
		}
		// auipc+jalr, not a plain jal: the linker writes the rounded upper
		// part of the PC-relative delta into the AUIPC word's bits[31:12] and
		// the low 12 bits into the JALR's immediate; it cannot patch a jal's
		// scattered J-type immediate bits.
		a.relocs = append(a.relocs, Relocation{Type: RelocCallPLT, Offset: a.off(), Symbol: in.Callee})
		a.emitRaw(encodeU(0, regT1, opAUIPC))     // auipc t1, 0 (patched by the linker)
		a.emitRaw(encodeI(0, regT1, 0, regRA, opJALR)) // jalr ra, t1, 0
		a.storeValue(regA0, in.Result)

	case ssair.OpParam:
		a.storeValue(regA0+in.Index, in.Result)

	case ssair.OpParamWriteback:
		a.loadValue(regT0, in.Args[0])
		a.emitStore(regT0, regSP, a.fl.outBase+uint32(in.Index)*wordSize)

	default:
		return fmt.Errorf("unhandled op %v in rv32 codegen", in.Op)
	}
	return nil
}

func (a *asm) emitTerm(t ssair.Terminator) {
	switch t.Kind {
	case ssair.TermJump:
		target := a.blockOffset[t.Targets[0]]
		a.emitRaw(encodeJ(int32(target)-int32(a.off()), regZero, opJAL))

	case ssair.TermBranch:
		a.loadValue(regT0, t.Cond)
		thenOff := int32(a.blockOffset[t.Targets[0]])
		elseOff := int32(a.blockOffset[t.Targets[1]])
		// bne t0, x0, then (relative to the bne instruction itself)
		a.emitRaw(encodeB(thenOff-int32(a.off()), regZero, regT0, 1, opBRANCH))
		a.emitRaw(encodeJ(elseOff-int32(a.off()), regZero, opJAL))

	case ssair.TermReturn:
		if t.HasRet {
			a.loadValue(regA0, t.RetVal)
		}
		a.emitLoad(regRA, regSP, a.fl.raOffset)
		a.emitRaw(encodeI(int32(a.fl.frameSize), regSP, 0, regSP, opOPIMM)) // addi sp, sp, frameSize
		a.emitRaw(encodeI(0, regRA, 0, regZero, opJALR))                   // jalr x0, ra, 0 (ret)

	case ssair.TermTrap:
		a.li(regA0, 1)
		a.emitRaw(encodeI(0, regZero, 0, regZero, opSYSTEM))
	}
}

// binOpEncoding returns the R-type word for the four-operand binary ops that
// share the load/load/op/store shape.
func binOpEncoding(op ssair.Op, rd, rs1, rs2 int) uint32 {
	switch op {
	case ssair.OpAdd:
		return encodeR(0, rs2, rs1, 0, rd, opOP)
	case ssair.OpSub:
		return encodeR(0x20, rs2, rs1, 0, rd, opOP)
	case ssair.OpMul:
		return encodeR(0x01, rs2, rs1, 0, rd, opOP)
	case ssair.OpDiv:
		return encodeR(0x01, rs2, rs1, 4, rd, opOP)
	case ssair.OpMod:
		return encodeR(0x01, rs2, rs1, 6, rd, opOP)
	case ssair.OpAnd:
		return encodeR(0, rs2, rs1, 7, rd, opOP)
	case ssair.OpOr:
		return encodeR(0, rs2, rs1, 6, rd, opOP)
	}
	return 0
}

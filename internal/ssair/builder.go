package ssair

// Builder provides an append-only construction API for one Function, used
// by internal/glsl/codegen while lowering an ast.Func.
type Builder struct {
	fn   *Function
	cur  *Block
	next Value
}

func NewBuilder(sig Signature) *Builder {
	fn := &Function{Sig: sig}
	b := &Builder{fn: fn}
	b.cur = b.NewBlock("entry")
	return b
}

func (b *Builder) Function() *Function {
	b.fn.NumValues = int(b.next)
	return b.fn
}

func (b *Builder) NewBlock(name string) *Block {
	blk := &Block{Name: name}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

func (b *Builder) SetBlock(blk *Block) { b.cur = blk }
func (b *Builder) CurrentBlock() *Block { return b.cur }

func (b *Builder) alloc() Value {
	v := b.next
	b.next++
	return v
}

func (b *Builder) emit(i Instr) Value {
	i.Result = b.alloc()
	b.cur.Instrs = append(b.cur.Instrs, i)
	return i.Result
}

func (b *Builder) ConstInt(v int64, t Type) Value {
	return b.emit(Instr{Op: OpConstInt, Type: t, ImmInt: v})
}

func (b *Builder) ConstFloat(v float64) Value {
	return b.emit(Instr{Op: OpConstFloat, Type: ScalarF32(), ImmFloat: v})
}

func (b *Builder) ConstBool(v bool) Value {
	return b.emit(Instr{Op: OpConstBool, Type: ScalarBool(), ImmBool: v})
}

func (b *Builder) BinOp(op Op, t Type, x, y Value) Value {
	return b.emit(Instr{Op: op, Type: t, Args: []Value{x, y}})
}

func (b *Builder) UnOp(op Op, t Type, x Value) Value {
	return b.emit(Instr{Op: op, Type: t, Args: []Value{x}})
}

func (b *Builder) Select(t Type, cond, x, y Value) Value {
	return b.emit(Instr{Op: OpSelect, Type: t, Args: []Value{cond, x, y}})
}

func (b *Builder) Convert(op Op, t Type, x Value) Value {
	return b.emit(Instr{Op: op, Type: t, Args: []Value{x}})
}

func (b *Builder) VecMake(t Type, parts ...Value) Value {
	return b.emit(Instr{Op: OpVecMake, Type: t, Args: parts})
}

func (b *Builder) VecExtract(t Type, v Value, idx int) Value {
	return b.emit(Instr{Op: OpVecExtract, Type: t, Args: []Value{v}, Index: idx})
}

func (b *Builder) VecInsert(t Type, v, elem Value, idx int) Value {
	return b.emit(Instr{Op: OpVecInsert, Type: t, Args: []Value{v, elem}, Index: idx})
}

// Alloca declares a new stack slot and returns a Ptr value naming it by
// index into fn.StackSlots (carried in Instr.Index).
func (b *Builder) Alloca(name string, t Type, arrayLen int) Value {
	idx := len(b.fn.StackSlots)
	b.fn.StackSlots = append(b.fn.StackSlots, StackSlot{Name: name, Type: t, ArrayLen: arrayLen})
	return b.emit(Instr{Op: OpAlloca, Type: PtrType(), Index: idx})
}

func (b *Builder) Load(t Type, ptr Value) Value {
	return b.emit(Instr{Op: OpLoad, Type: t, Args: []Value{ptr}})
}

// Store writes val to *ptr at an optional element Index (used for array
// slots); it has no result value of its own interest, but we still hand out
// an id for uniformity with the interpreter's value table.
func (b *Builder) Store(ptr, val Value, index int) {
	b.emit(Instr{Op: OpStore, Args: []Value{ptr, val}, Index: index})
}

// LoadIndexed loads the element at a runtime-computed index within an array
// stack slot, used when the index is not a compile-time constant.
func (b *Builder) LoadIndexed(t Type, ptr, index Value) Value {
	return b.emit(Instr{Op: OpLoadIndexed, Type: t, Args: []Value{ptr, index}})
}

// StoreIndexed stores val at a runtime-computed index within an array stack
// slot (the counterpart of Store's compile-time-constant Index field).
func (b *Builder) StoreIndexed(ptr, index, val Value) {
	b.emit(Instr{Op: OpStoreIndexed, Args: []Value{ptr, index, val}})
}

func (b *Builder) BoundsCheck(index, length Value, trapCode string) Value {
	return b.emit(Instr{Op: OpBoundsCheck, Args: []Value{index, length}, TrapCode: trapCode})
}

func (b *Builder) CallExtern(name string, t Type, args ...Value) Value {
	return b.emit(Instr{Op: OpCallExtern, Type: t, Callee: name, Args: args})
}

func (b *Builder) Call(name string, t Type, args ...Value) Value {
	return b.emit(Instr{Op: OpCall, Type: t, Callee: name, Args: args})
}

func (b *Builder) Param(t Type, index int) Value {
	return b.emit(Instr{Op: OpParam, Type: t, Index: index})
}

func (b *Builder) ParamWriteback(index int, val Value) {
	b.emit(Instr{Op: OpParamWriteback, Args: []Value{val}, Index: index})
}

func (b *Builder) Jump(target string) {
	b.cur.Term = Terminator{Kind: TermJump, Targets: []string{target}}
}

func (b *Builder) Branch(cond Value, then, els string) {
	b.cur.Term = Terminator{Kind: TermBranch, Cond: cond, Targets: []string{then, els}}
}

func (b *Builder) Return(v Value, has bool) {
	b.cur.Term = Terminator{Kind: TermReturn, RetVal: v, HasRet: has}
}

func (b *Builder) Trap(code string) {
	b.cur.Term = Terminator{Kind: TermTrap, TrapCode: code}
}

// HasTerm reports whether the current block already has a terminator (a
// stray fallthrough, e.g. a missing `return` at the end of a void function,
// is filled in by codegen with an implicit TermReturn).
func (b *Builder) HasTerm() bool {
	return b.cur.Term.Targets != nil || b.cur.Term.Kind == TermReturn || b.cur.Term.Kind == TermTrap
}

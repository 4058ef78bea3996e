package ssair

import "testing"

func TestBuilderEmitsSequentialValues(t *testing.T) {
	b := NewBuilder(Signature{Name: "main", Ret: ScalarF32()})
	a := b.ConstFloat(1)
	c := b.ConstFloat(2)
	sum := b.BinOp(OpAdd, ScalarF32(), a, c)
	b.Return(sum, true)

	fn := b.Function()
	if len(fn.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(fn.Blocks))
	}
	entry := fn.Blocks[0]
	if entry.Name != "entry" {
		t.Fatalf("entry block name = %q, want entry", entry.Name)
	}
	if len(entry.Instrs) != 3 {
		t.Fatalf("instrs = %d, want 3", len(entry.Instrs))
	}
	if entry.Instrs[2].Op != OpAdd || len(entry.Instrs[2].Args) != 2 {
		t.Fatalf("third instr = %+v, want OpAdd(a, c)", entry.Instrs[2])
	}
	if entry.Term.Kind != TermReturn || entry.Term.RetVal != sum {
		t.Fatalf("terminator = %+v, want Return(sum)", entry.Term)
	}
	if fn.NumValues != int(sum)+1 {
		t.Fatalf("NumValues = %d, want %d", fn.NumValues, sum+1)
	}
}

func TestBuilderBranchingBlocks(t *testing.T) {
	b := NewBuilder(Signature{Name: "branchy"})
	cond := b.ConstBool(true)
	b.Branch(cond, "then", "else")

	thenBlk := b.NewBlock("then")
	b.SetBlock(thenBlk)
	b.Jump("join")

	elseBlk := b.NewBlock("else")
	b.SetBlock(elseBlk)
	b.Jump("join")

	joinBlk := b.NewBlock("join")
	b.SetBlock(joinBlk)
	b.Return(0, false)

	fn := b.Function()
	if fn.Block("then") == nil || fn.Block("else") == nil || fn.Block("join") == nil {
		t.Fatal("expected then/else/join blocks to exist")
	}
	if fn.Block("missing") != nil {
		t.Fatal("Block should return nil for an unknown name")
	}
}

func TestHasTermDistinguishesUnterminatedBlocks(t *testing.T) {
	b := NewBuilder(Signature{Name: "f"})
	if b.HasTerm() {
		t.Fatal("a fresh block must report HasTerm() == false")
	}
	b.Jump("somewhere")
	if !b.HasTerm() {
		t.Fatal("a block with a Jump terminator must report HasTerm() == true")
	}
}

func TestAllocaRecordsStackSlot(t *testing.T) {
	b := NewBuilder(Signature{Name: "f"})
	ptr := b.Alloca("buf", ScalarF32(), 4)
	fn := b.Function()
	if len(fn.StackSlots) != 1 {
		t.Fatalf("stack slots = %d, want 1", len(fn.StackSlots))
	}
	slot := fn.StackSlots[0]
	if slot.Name != "buf" || slot.ArrayLen != 4 {
		t.Fatalf("slot = %+v, want {buf, _, 4}", slot)
	}
	if fn.Blocks[0].Instrs[0].Index != 0 || fn.Blocks[0].Instrs[0].Op != OpAlloca {
		t.Fatalf("alloca instr = %+v", fn.Blocks[0].Instrs[0])
	}
	_ = ptr
}

func TestModuleFuncLookup(t *testing.T) {
	b := NewBuilder(Signature{Name: "helper"})
	b.Return(0, false)
	mod := &Module{Functions: []*Function{b.Function()}}
	if mod.Func("helper") == nil {
		t.Fatal("expected to find helper")
	}
	if mod.Func("nope") != nil {
		t.Fatal("Func should return nil for an unknown name")
	}
}

func TestTypeIsFloatAndToInt(t *testing.T) {
	if !ScalarF32().IsFloat() {
		t.Fatal("F32 scalar must be IsFloat")
	}
	if ScalarI32().IsFloat() {
		t.Fatal("I32 scalar must not be IsFloat")
	}
	vf := VecType(F32, 3)
	if !vf.IsFloat() {
		t.Fatal("a float-element vector must be IsFloat")
	}
	vi := vf.ToInt()
	if vi.Kind != Vec || vi.Elem != I32 || vi.N != 3 {
		t.Fatalf("ToInt() = %+v, want Vec<I32,3>", vi)
	}
	if ScalarI32().ToInt().Kind != I32 {
		t.Fatal("ToInt on a non-float type must be a no-op")
	}
}

func TestTypeComponents(t *testing.T) {
	cases := []struct {
		t    Type
		want int
	}{
		{ScalarF32(), 1},
		{VecType(F32, 4), 4},
		{MatType(F32, 3), 9},
	}
	for _, c := range cases {
		if got := c.t.Components(); got != c.want {
			t.Errorf("Components(%+v) = %d, want %d", c.t, got, c.want)
		}
	}
}

// Package codegen lowers a semantically-checked ast.File into an
// ssair.Module (spec §4.C "AST to SSA lowering"). Callers must run
// internal/glsl/sema.Check first and only lower files with zero
// diagnostics — codegen does not re-validate type compatibility, it trusts
// sema's judgment and focuses purely on shape translation.
package codegen

import (
	"fmt"

	"github.com/lightplayer/lp/internal/glsl/ast"
	"github.com/lightplayer/lp/internal/ssair"
)

// Compile lowers every function in file and tags the module with
// decimalFormat. Callers in this repository pass "f32"; the back-ends
// (hostjit, rv32obj) run internal/q32lower on any module not tagged "q32".
func Compile(file *ast.File, decimalFormat string) (*ssair.Module, error) {
	mod := &ssair.Module{DecimalFormat: decimalFormat}
	g := &gen{mod: mod, funcSigs: map[string]ast.Func{}}
	for _, f := range file.Funcs {
		g.funcSigs[f.Name] = *f
	}
	for _, f := range file.Funcs {
		fn, err := g.lowerFunc(f)
		if err != nil {
			return nil, err
		}
		mod.Functions = append(mod.Functions, fn)
	}
	mod.Externs = g.externs
	return mod, nil
}

type gen struct {
	mod      *ssair.Module
	funcSigs map[string]ast.Func
	externs  []ssair.ExternFunc
}

type local struct {
	ptr    ssair.Value
	typ    ast.Type
	out    bool
	index  int
}

type fnCtx struct {
	b        *ssair.Builder
	locals   map[string]local
	retType  ast.Type
	outs     []int // param indices that are out/inout, in declaration order
	loopExit []string
	loopCont []string
	blockNum int
}

func (g *gen) lowerFunc(f *ast.Func) (*ssair.Function, error) {
	sig := ssair.Signature{Name: f.Name, Ret: toSSA(f.Return)}
	for _, p := range f.Params {
		sig.Params = append(sig.Params, ssair.Param{
			Name: p.Name,
			Type: toSSA(p.Type),
			Out:  p.Qualifier != ast.QualIn,
		})
	}
	b := ssair.NewBuilder(sig)
	fc := &fnCtx{b: b, locals: map[string]local{}, retType: f.Return}

	for i, p := range f.Params {
		t := toSSA(p.Type)
		val := b.Param(t, i)
		ptr := b.Alloca(p.Name, t, 0)
		b.Store(ptr, val, 0)
		fc.locals[p.Name] = local{ptr: ptr, typ: p.Type, out: p.Qualifier != ast.QualIn, index: i}
		if p.Qualifier != ast.QualIn {
			fc.outs = append(fc.outs, i)
		}
	}

	if err := g.lowerBlock(fc, f.Body); err != nil {
		return nil, err
	}
	if !b.HasTerm() {
		g.emitReturn(fc, nil)
	}
	return b.Function(), nil
}

func (g *gen) newBlockName(fc *fnCtx, prefix string) string {
	fc.blockNum++
	return fmt.Sprintf("%s%d", prefix, fc.blockNum)
}

func (g *gen) lowerBlock(fc *fnCtx, blk *ast.Block) error {
	for _, st := range blk.Stmts {
		if fc.b.HasTerm() {
			break // unreachable code after a terminator
		}
		if err := g.lowerStmt(fc, st); err != nil {
			return err
		}
	}
	return nil
}

func (g *gen) lowerStmt(fc *fnCtx, st ast.Stmt) error {
	switch n := st.(type) {
	case *ast.VarDecl:
		t := toSSA(n.Type)
		ptr := fc.b.Alloca(n.Name, elemTypeOf(t), arrayLenOf(n.Type))
		fc.locals[n.Name] = local{ptr: ptr, typ: n.Type}
		if n.Init != nil {
			if lit, ok := n.Init.(*ast.ArrayLit); ok {
				for i, el := range lit.Elems {
					v, err := g.lowerExpr(fc, el, lit.ElemType)
					if err != nil {
						return err
					}
					fc.b.Store(ptr, v, i)
				}
				return nil
			}
			v, err := g.lowerExpr(fc, n.Init, n.Type)
			if err != nil {
				return err
			}
			fc.b.Store(ptr, v, 0)
		}
		return nil

	case *ast.ExprStmt:
		_, err := g.lowerExprAny(fc, n.X)
		return err

	case *ast.BlockStmt:
		return g.lowerBlock(fc, n.Body)

	case *ast.IfStmt:
		cond, err := g.lowerExpr(fc, n.Cond, ast.Type{Base: ast.TBool})
		if err != nil {
			return err
		}
		thenName := g.newBlockName(fc, "if.then")
		elseName := g.newBlockName(fc, "if.else")
		endName := g.newBlockName(fc, "if.end")
		fc.b.Branch(cond, thenName, elseName)

		thenBlk := fc.b.NewBlock(thenName)
		fc.b.SetBlock(thenBlk)
		if err := g.lowerBlock(fc, n.Then); err != nil {
			return err
		}
		if !fc.b.HasTerm() {
			fc.b.Jump(endName)
		}

		elseBlk := fc.b.NewBlock(elseName)
		fc.b.SetBlock(elseBlk)
		if n.Else != nil {
			if err := g.lowerBlock(fc, n.Else); err != nil {
				return err
			}
		}
		if !fc.b.HasTerm() {
			fc.b.Jump(endName)
		}

		endBlk := fc.b.NewBlock(endName)
		fc.b.SetBlock(endBlk)
		return nil

	case *ast.ForStmt:
		if n.Init != nil {
			if err := g.lowerStmt(fc, n.Init); err != nil {
				return err
			}
		}
		return g.lowerLoop(fc, n.Cond, n.Post, n.Body)

	case *ast.WhileStmt:
		return g.lowerLoop(fc, n.Cond, nil, n.Body)

	case *ast.DoWhileStmt:
		headName := g.newBlockName(fc, "do.head")
		condName := g.newBlockName(fc, "do.cond")
		exitName := g.newBlockName(fc, "do.exit")
		fc.b.Jump(headName)

		headBlk := fc.b.NewBlock(headName)
		fc.b.SetBlock(headBlk)
		fc.loopExit = append(fc.loopExit, exitName)
		fc.loopCont = append(fc.loopCont, condName)
		if err := g.lowerBlock(fc, n.Body); err != nil {
			return err
		}
		fc.loopExit = fc.loopExit[:len(fc.loopExit)-1]
		fc.loopCont = fc.loopCont[:len(fc.loopCont)-1]
		if !fc.b.HasTerm() {
			fc.b.Jump(condName)
		}

		condBlk := fc.b.NewBlock(condName)
		fc.b.SetBlock(condBlk)
		cond, err := g.lowerExpr(fc, n.Cond, ast.Type{Base: ast.TBool})
		if err != nil {
			return err
		}
		fc.b.Branch(cond, headName, exitName)

		exitBlk := fc.b.NewBlock(exitName)
		fc.b.SetBlock(exitBlk)
		return nil

	case *ast.ReturnStmt:
		if n.X == nil {
			g.emitReturn(fc, nil)
			return nil
		}
		v, err := g.lowerExpr(fc, n.X, fc.retType)
		if err != nil {
			return err
		}
		g.emitReturn(fc, &v)
		return nil

	case *ast.BreakStmt:
		fc.b.Jump(fc.loopExit[len(fc.loopExit)-1])
		return nil

	case *ast.ContinueStmt:
		fc.b.Jump(fc.loopCont[len(fc.loopCont)-1])
		return nil
	}
	return fmt.Errorf("codegen: unhandled statement %T", st)
}

// lowerLoop shares the while/for control-flow shape: cond block, body block
// (with continue target = post-or-cond block), exit block.
func (g *gen) lowerLoop(fc *fnCtx, cond, post ast.Expr, body *ast.Block) error {
	condName := g.newBlockName(fc, "loop.cond")
	bodyName := g.newBlockName(fc, "loop.body")
	postName := g.newBlockName(fc, "loop.post")
	exitName := g.newBlockName(fc, "loop.exit")
	fc.b.Jump(condName)

	condBlk := fc.b.NewBlock(condName)
	fc.b.SetBlock(condBlk)
	if cond != nil {
		c, err := g.lowerExpr(fc, cond, ast.Type{Base: ast.TBool})
		if err != nil {
			return err
		}
		fc.b.Branch(c, bodyName, exitName)
	} else {
		fc.b.Jump(bodyName)
	}

	bodyBlk := fc.b.NewBlock(bodyName)
	fc.b.SetBlock(bodyBlk)
	fc.loopExit = append(fc.loopExit, exitName)
	fc.loopCont = append(fc.loopCont, postName)
	if err := g.lowerBlock(fc, body); err != nil {
		return err
	}
	fc.loopExit = fc.loopExit[:len(fc.loopExit)-1]
	fc.loopCont = fc.loopCont[:len(fc.loopCont)-1]
	if !fc.b.HasTerm() {
		fc.b.Jump(postName)
	}

	postBlk := fc.b.NewBlock(postName)
	fc.b.SetBlock(postBlk)
	if post != nil {
		if _, err := g.lowerExprAny(fc, post); err != nil {
			return err
		}
	}
	if !fc.b.HasTerm() {
		fc.b.Jump(condName)
	}

	exitBlk := fc.b.NewBlock(exitName)
	fc.b.SetBlock(exitBlk)
	return nil
}

// emitReturn writes back every out/inout parameter before terminating, per
// spec §4.C's out-parameter convention.
func (g *gen) emitReturn(fc *fnCtx, v *ssair.Value) {
	for _, idx := range fc.outs {
		for _, l := range fc.locals {
			if l.index == idx && l.out {
				loaded := fc.b.Load(toSSA(l.typ), l.ptr)
				fc.b.ParamWriteback(idx, loaded)
			}
		}
	}
	if v != nil {
		fc.b.Return(*v, true)
	} else {
		fc.b.Return(0, false)
	}
}

func arrayLenOf(t ast.Type) int { return t.Array }

func elemTypeOf(t ssair.Type) ssair.Type { return t }

func toSSA(t ast.Type) ssair.Type {
	switch t.Base {
	case ast.TBool:
		return ssair.ScalarBool()
	case ast.TInt:
		return ssair.ScalarI32()
	case ast.TUint:
		return ssair.ScalarU32()
	case ast.TFloat:
		return ssair.ScalarF32()
	case ast.TVec2:
		return ssair.VecType(ssair.F32, 2)
	case ast.TVec3:
		return ssair.VecType(ssair.F32, 3)
	case ast.TVec4:
		return ssair.VecType(ssair.F32, 4)
	case ast.TMat2:
		return ssair.MatType(ssair.F32, 2)
	case ast.TMat3:
		return ssair.MatType(ssair.F32, 3)
	case ast.TMat4:
		return ssair.MatType(ssair.F32, 4)
	}
	return ssair.Type{}
}

package codegen

import (
	"fmt"

	"github.com/lightplayer/lp/internal/glsl/ast"
	"github.com/lightplayer/lp/internal/glsl/token"
	"github.com/lightplayer/lp/internal/ssair"
)

// lowerExpr lowers e and implicitly converts the result to want, following
// the widening lattice int -> uint -> float (spec §4.B, already validated by
// sema — codegen applies the conversion sema decided was legal).
func (g *gen) lowerExpr(fc *fnCtx, e ast.Expr, want ast.Type) (ssair.Value, error) {
	v, have, err := g.lowerExprTyped(fc, e)
	if err != nil {
		return 0, err
	}
	return g.convert(fc, v, have, want), nil
}

func (g *gen) lowerExprAny(fc *fnCtx, e ast.Expr) (ssair.Value, error) {
	v, _, err := g.lowerExprTyped(fc, e)
	return v, err
}

func (g *gen) convert(fc *fnCtx, v ssair.Value, have, want ast.Type) ssair.Value {
	if have.Base == want.Base {
		return v
	}
	wt := toSSA(want)
	switch {
	case have.Base == ast.TInt && want.Base == ast.TUint:
		return fc.b.Convert(ssair.OpConvertIntToUint, wt, v)
	case have.Base == ast.TUint && want.Base == ast.TInt:
		return fc.b.Convert(ssair.OpConvertUintToInt, wt, v)
	case have.Base == ast.TInt && want.Base == ast.TFloat:
		return fc.b.Convert(ssair.OpConvertSIntToFloat, wt, v)
	case have.Base == ast.TUint && want.Base == ast.TFloat:
		return fc.b.Convert(ssair.OpConvertUIntToFloat, wt, v)
	default:
		return v
	}
}

// lowerExprTyped lowers e and also returns its natural (unconverted) ast.Type.
func (g *gen) lowerExprTyped(fc *fnCtx, e ast.Expr) (ssair.Value, ast.Type, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return fc.b.ConstInt(n.Value, ssair.ScalarI32()), ast.Type{Base: ast.TInt}, nil
	case *ast.FloatLit:
		return fc.b.ConstFloat(n.Value), ast.Type{Base: ast.TFloat}, nil
	case *ast.BoolLit:
		return fc.b.ConstBool(n.Value), ast.Type{Base: ast.TBool}, nil

	case *ast.Ident:
		l, ok := fc.locals[n.Name]
		if !ok {
			return 0, ast.Type{}, fmt.Errorf("codegen: undeclared identifier %q", n.Name)
		}
		return fc.b.Load(toSSA(l.typ), l.ptr), l.typ, nil

	case *ast.UnaryExpr:
		v, t, err := g.lowerExprTyped(fc, n.X)
		if err != nil {
			return 0, ast.Type{}, err
		}
		switch n.Op {
		case token.Minus:
			return fc.b.UnOp(ssair.OpNeg, toSSA(t), v), t, nil
		case token.Bang:
			return fc.b.UnOp(ssair.OpNot, ssair.ScalarBool(), v), ast.Type{Base: ast.TBool}, nil
		}
		return v, t, nil

	case *ast.BinaryExpr:
		return g.lowerBinary(fc, n)

	case *ast.AssignExpr:
		return g.lowerAssign(fc, n)

	case *ast.TernaryExpr:
		cond, err := g.lowerExpr(fc, n.Cond, ast.Type{Base: ast.TBool})
		if err != nil {
			return 0, ast.Type{}, err
		}
		_, tt, err := g.lowerExprTyped(fc, n.Then)
		if err != nil {
			return 0, ast.Type{}, err
		}
		thenV, err := g.lowerExpr(fc, n.Then, tt)
		if err != nil {
			return 0, ast.Type{}, err
		}
		elseV, err := g.lowerExpr(fc, n.Else, tt)
		if err != nil {
			return 0, ast.Type{}, err
		}
		return fc.b.Select(toSSA(tt), cond, thenV, elseV), tt, nil

	case *ast.CallExpr:
		return g.lowerCall(fc, n)

	case *ast.FieldExpr:
		return g.lowerSwizzleRead(fc, n)

	case *ast.IndexExpr:
		return g.lowerIndex(fc, n)

	case *ast.ArrayLit:
		return 0, ast.Type{}, fmt.Errorf("codegen: array literal only valid as a variable initializer")
	}
	return 0, ast.Type{}, fmt.Errorf("codegen: unhandled expression %T", e)
}

func (g *gen) lowerBinary(fc *fnCtx, n *ast.BinaryExpr) (ssair.Value, ast.Type, error) {
	xv, xt, err := g.lowerExprTyped(fc, n.X)
	if err != nil {
		return 0, ast.Type{}, err
	}
	yv, yt, err := g.lowerExprTyped(fc, n.Y)
	if err != nil {
		return 0, ast.Type{}, err
	}

	if isLogical(n.Op) {
		xv = g.convert(fc, xv, xt, ast.Type{Base: ast.TBool})
		yv = g.convert(fc, yv, yt, ast.Type{Base: ast.TBool})
		op := map[token.Kind]ssair.Op{token.AmpAmp: ssair.OpAnd, token.PipePipe: ssair.OpOr}[n.Op]
		return fc.b.BinOp(op, ssair.ScalarBool(), xv, yv), ast.Type{Base: ast.TBool}, nil
	}

	// Determine the common operand type via the widening lattice, matching
	// sema's checkBinary: wider scalar wins, vector beats scalar broadcast.
	result := xt
	if wider(xt, yt) {
		result = yt
	}
	if xt.IsVector() {
		result = xt
	} else if yt.IsVector() {
		result = yt
	}
	xv = g.convert(fc, xv, xt, result)
	yv = g.convert(fc, yv, yt, result)
	rt := toSSA(result)

	if isComparison(n.Op) {
		op := comparisonOp(n.Op)
		return fc.b.BinOp(op, ssair.ScalarBool(), xv, yv), ast.Type{Base: ast.TBool}, nil
	}

	op, ok := arithOp(n.Op)
	if !ok {
		return 0, ast.Type{}, fmt.Errorf("codegen: unsupported binary operator")
	}
	return fc.b.BinOp(op, rt, xv, yv), result, nil
}

func wider(a, b ast.Type) bool {
	rank := map[ast.BaseType]int{ast.TInt: 0, ast.TUint: 1, ast.TFloat: 2}
	return rank[b.Base] > rank[a.Base]
}

func isLogical(k token.Kind) bool { return k == token.AmpAmp || k == token.PipePipe }

func isComparison(k token.Kind) bool {
	switch k {
	case token.EqEq, token.NotEq, token.Less, token.Greater, token.LessEq, token.GreaterEq:
		return true
	}
	return false
}

func comparisonOp(k token.Kind) ssair.Op {
	switch k {
	case token.EqEq:
		return ssair.OpCmpEq
	case token.NotEq:
		return ssair.OpCmpNe
	case token.Less:
		return ssair.OpCmpLt
	case token.Greater:
		return ssair.OpCmpGt
	case token.LessEq:
		return ssair.OpCmpLe
	case token.GreaterEq:
		return ssair.OpCmpGe
	}
	return ssair.OpCmpEq
}

func arithOp(k token.Kind) (ssair.Op, bool) {
	switch k {
	case token.Plus:
		return ssair.OpAdd, true
	case token.Minus:
		return ssair.OpSub, true
	case token.Star:
		return ssair.OpMul, true
	case token.Slash:
		return ssair.OpDiv, true
	case token.Percent:
		return ssair.OpMod, true
	}
	return 0, false
}

// lowerAssign handles '=' and compound forms against the three l-value
// shapes this front-end supports: plain identifiers, swizzles, and array
// indices (spec §4.B "l-value resolution").
func (g *gen) lowerAssign(fc *fnCtx, n *ast.AssignExpr) (ssair.Value, ast.Type, error) {
	rhs, rt, err := g.lowerExprTyped(fc, n.RHS)
	if err != nil {
		return 0, ast.Type{}, err
	}

	switch lhs := n.LHS.(type) {
	case *ast.Ident:
		l, ok := fc.locals[lhs.Name]
		if !ok {
			return 0, ast.Type{}, fmt.Errorf("codegen: undeclared identifier %q", lhs.Name)
		}
		val := rhs
		if n.Op != token.Assign {
			cur := fc.b.Load(toSSA(l.typ), l.ptr)
			val = g.applyCompound(fc, n.Op, cur, g.convert(fc, rhs, rt, l.typ), toSSA(l.typ))
		} else {
			val = g.convert(fc, rhs, rt, l.typ)
		}
		fc.b.Store(l.ptr, val, 0)
		return val, l.typ, nil

	case *ast.IndexExpr:
		id, ok := lhs.X.(*ast.Ident)
		if !ok {
			return 0, ast.Type{}, fmt.Errorf("codegen: only simple array names support indexed assignment")
		}
		l := fc.locals[id.Name]
		idxLit, isConst := lhs.Index.(*ast.IntLit)
		elemT := l.typ
		elemT.Array = 0
		val := g.convert(fc, rhs, rt, elemT)
		if isConst {
			fc.b.Store(l.ptr, val, int(idxLit.Value))
		} else {
			idxVal, err := g.lowerExpr(fc, lhs.Index, ast.Type{Base: ast.TInt})
			if err != nil {
				return 0, ast.Type{}, err
			}
			length := fc.b.ConstInt(int64(l.typ.Array), ssair.ScalarI32())
			fc.b.BoundsCheck(idxVal, length, "array-index-out-of-range")
			fc.b.StoreIndexed(l.ptr, idxVal, val)
		}
		return val, elemT, nil

	case *ast.FieldExpr:
		id, ok := lhs.X.(*ast.Ident)
		if !ok {
			return 0, ast.Type{}, fmt.Errorf("codegen: only simple vector names support swizzle assignment")
		}
		l := fc.locals[id.Name]
		cur := fc.b.Load(toSSA(l.typ), l.ptr)
		elemT := ast.Type{Base: ast.TFloat}
		rhsConv := g.convert(fc, rhs, rt, elemT)
		for i, r := range lhs.Field {
			comp := rhsConv
			if len(lhs.Field) > 1 {
				comp = fc.b.VecExtract(ssair.ScalarF32(), rhs, i)
			}
			idx, _ := swizzleComponentIndex(r)
			cur = fc.b.VecInsert(toSSA(l.typ), cur, comp, idx)
		}
		fc.b.Store(l.ptr, cur, 0)
		return cur, l.typ, nil
	}
	return 0, ast.Type{}, fmt.Errorf("codegen: unsupported assignment target %T", n.LHS)
}

func (g *gen) applyCompound(fc *fnCtx, op token.Kind, cur, rhs ssair.Value, t ssair.Type) ssair.Value {
	var arith token.Kind
	switch op {
	case token.PlusAssign:
		arith = token.Plus
	case token.MinusAssign:
		arith = token.Minus
	case token.StarAssign:
		arith = token.Star
	case token.SlashAssign:
		arith = token.Slash
	}
	ssaOp, _ := arithOp(arith)
	return fc.b.BinOp(ssaOp, t, cur, rhs)
}

func swizzleComponentIndex(r rune) (int, bool) {
	sets := [][]rune{{'x', 'y', 'z', 'w'}, {'r', 'g', 'b', 'a'}, {'s', 't', 'p', 'q'}}
	for _, set := range sets {
		for i, c := range set {
			if c == r {
				return i, true
			}
		}
	}
	return 0, false
}

func (g *gen) lowerSwizzleRead(fc *fnCtx, n *ast.FieldExpr) (ssair.Value, ast.Type, error) {
	v, t, err := g.lowerExprTyped(fc, n.X)
	if err != nil {
		return 0, ast.Type{}, err
	}
	if len(n.Field) == 1 {
		idx, _ := swizzleComponentIndex(rune(n.Field[0]))
		return fc.b.VecExtract(ssair.ScalarF32(), v, idx), ast.Type{Base: ast.TFloat}, nil
	}
	resultT := ast.Type{Base: ast.TVec2}
	if len(n.Field) == 3 {
		resultT = ast.Type{Base: ast.TVec3}
	} else if len(n.Field) == 4 {
		resultT = ast.Type{Base: ast.TVec4}
	}
	var parts []ssair.Value
	for _, r := range n.Field {
		idx, _ := swizzleComponentIndex(r)
		parts = append(parts, fc.b.VecExtract(ssair.ScalarF32(), v, idx))
	}
	_ = t
	return fc.b.VecMake(toSSA(resultT), parts...), resultT, nil
}

func (g *gen) lowerIndex(fc *fnCtx, n *ast.IndexExpr) (ssair.Value, ast.Type, error) {
	id, ok := n.X.(*ast.Ident)
	if !ok {
		return 0, ast.Type{}, fmt.Errorf("codegen: only simple array names support indexing")
	}
	l := fc.locals[id.Name]
	elemT := l.typ
	elemT.Array = 0
	ssaElem := toSSA(elemT)

	if lit, ok := n.Index.(*ast.IntLit); ok {
		if lit.Value < 0 || int(lit.Value) >= l.typ.Array {
			return 0, ast.Type{}, fmt.Errorf("codegen: constant array index %d out of range [0,%d)", lit.Value, l.typ.Array)
		}
		idx := fc.b.ConstInt(lit.Value, ssair.ScalarI32())
		return fc.b.LoadIndexed(ssaElem, l.ptr, idx), elemT, nil
	}

	idxVal, err := g.lowerExpr(fc, n.Index, ast.Type{Base: ast.TInt})
	if err != nil {
		return 0, ast.Type{}, err
	}
	length := fc.b.ConstInt(int64(l.typ.Array), ssair.ScalarI32())
	fc.b.BoundsCheck(idxVal, length, "array-index-out-of-range")
	return fc.b.LoadIndexed(ssaElem, l.ptr, idxVal), elemT, nil
}

// lowerCall resolves n.Callee against, in order: a vector/matrix/scalar
// constructor, a built-in math function (lowered to OpCallExtern against an
// "lpfx_"-prefixed symbol resolved later by the target back-end), or a
// user-defined function in the same module.
func (g *gen) lowerCall(fc *fnCtx, n *ast.CallExpr) (ssair.Value, ast.Type, error) {
	if t, ok := constructorAstType(n.Callee); ok {
		return g.lowerConstructor(fc, n, t)
	}

	if fn, ok := g.funcSigs[n.Callee]; ok {
		var args []ssair.Value
		for i, a := range n.Args {
			v, err := g.lowerExpr(fc, a, fn.Params[i].Type)
			if err != nil {
				return 0, ast.Type{}, err
			}
			args = append(args, v)
		}
		return fc.b.Call(n.Callee, toSSA(fn.Return), args...), fn.Return, nil
	}

	// Built-in: every argument promoted to float, matching this system's
	// float-only math library (spec §4.A).
	var args []ssair.Value
	var argT ast.Type = ast.Type{Base: ast.TFloat}
	for _, a := range n.Args {
		_, t, err := g.lowerExprTyped(fc, a)
		if err != nil {
			return 0, ast.Type{}, err
		}
		if t.IsVector() {
			argT = t
		}
	}
	for _, a := range n.Args {
		v, err := g.lowerExpr(fc, a, argT)
		if err != nil {
			return 0, ast.Type{}, err
		}
		args = append(args, v)
	}
	symbol := "lpfx_" + n.Callee
	g.declareExtern(symbol, toSSA(argT), len(args))
	return fc.b.CallExtern(symbol, toSSA(argT), args...), argT, nil
}

func (g *gen) declareExtern(name string, t ssair.Type, argc int) {
	for _, e := range g.externs {
		if e.Name == name {
			return
		}
	}
	sig := ssair.Signature{Name: name, Ret: t}
	for i := 0; i < argc; i++ {
		sig.Params = append(sig.Params, ssair.Param{Name: fmt.Sprintf("a%d", i), Type: t})
	}
	g.externs = append(g.externs, ssair.ExternFunc{Name: name, Sig: sig})
}

func constructorAstType(name string) (ast.Type, bool) {
	switch name {
	case "float":
		return ast.Type{Base: ast.TFloat}, true
	case "int":
		return ast.Type{Base: ast.TInt}, true
	case "uint":
		return ast.Type{Base: ast.TUint}, true
	case "bool":
		return ast.Type{Base: ast.TBool}, true
	case "vec2":
		return ast.Type{Base: ast.TVec2}, true
	case "vec3":
		return ast.Type{Base: ast.TVec3}, true
	case "vec4":
		return ast.Type{Base: ast.TVec4}, true
	case "mat2":
		return ast.Type{Base: ast.TMat2}, true
	case "mat3":
		return ast.Type{Base: ast.TMat3}, true
	case "mat4":
		return ast.Type{Base: ast.TMat4}, true
	}
	return ast.Type{}, false
}

func (g *gen) lowerConstructor(fc *fnCtx, n *ast.CallExpr, t ast.Type) (ssair.Value, ast.Type, error) {
	if t.IsScalar() {
		if len(n.Args) != 1 {
			return 0, ast.Type{}, fmt.Errorf("codegen: scalar constructor %s takes exactly one argument", n.Callee)
		}
		v, err := g.lowerExpr(fc, n.Args[0], t)
		return v, t, err
	}
	if t.IsVector() {
		arity := t.VecArity()
		var parts []ssair.Value
		// A single scalar argument broadcasts to every component
		// (vec3(1.0) == vec3(1.0, 1.0, 1.0)), GLSL's splat constructor form.
		if len(n.Args) == 1 {
			v, err := g.lowerExpr(fc, n.Args[0], ast.Type{Base: ast.TFloat})
			if err != nil {
				return 0, ast.Type{}, err
			}
			for i := 0; i < arity; i++ {
				parts = append(parts, v)
			}
			return fc.b.VecMake(toSSA(t), parts...), t, nil
		}
		for _, a := range n.Args {
			_, at, err := g.lowerExprTyped(fc, a)
			if err != nil {
				return 0, ast.Type{}, err
			}
			if at.IsVector() {
				v, err := g.lowerExpr(fc, a, at)
				if err != nil {
					return 0, ast.Type{}, err
				}
				for i := 0; i < at.VecArity(); i++ {
					parts = append(parts, fc.b.VecExtract(ssair.ScalarF32(), v, i))
				}
				continue
			}
			v, err := g.lowerExpr(fc, a, ast.Type{Base: ast.TFloat})
			if err != nil {
				return 0, ast.Type{}, err
			}
			parts = append(parts, v)
		}
		if len(parts) != arity {
			return 0, ast.Type{}, fmt.Errorf("codegen: %s constructor expects %d components, got %d", n.Callee, arity, len(parts))
		}
		return fc.b.VecMake(toSSA(t), parts...), t, nil
	}
	// Matrix constructors: column-major list of N*N scalars, the only form
	// this system's node shaders use (no matrix-from-vectors form).
	arity := t.MatArity()
	var parts []ssair.Value
	for _, a := range n.Args {
		v, err := g.lowerExpr(fc, a, ast.Type{Base: ast.TFloat})
		if err != nil {
			return 0, ast.Type{}, err
		}
		parts = append(parts, v)
	}
	if len(parts) != arity*arity {
		return 0, ast.Type{}, fmt.Errorf("codegen: %s constructor expects %d components, got %d", n.Callee, arity*arity, len(parts))
	}
	return fc.b.VecMake(toSSA(t), parts...), t, nil
}

// Package sema implements semantic analysis over a parsed ast.File: scope
// resolution, the implicit numeric conversion lattice, call arity checks,
// and swizzle validation (spec §4.B). There is no overload resolution: a
// second function with an already-declared name is rejected (E0200). Array
// indices are not range-checked here; internal/glsl/codegen rejects an
// out-of-range constant index when the element is read.
//
// Errors are collected rather than raised, matching spec's "errors do not
// abort the pass — the compiler collects them and fails at phase boundary."
package sema

import (
	"fmt"

	"github.com/lightplayer/lp/internal/glsl/ast"
	"github.com/lightplayer/lp/internal/glsl/token"
)

type Diagnostic struct {
	Code    string
	Message string
	Span    token.Span
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.Code, d.Span.Line, d.Span.Col, d.Message)
}

type scope struct {
	vars   map[string]ast.Type
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: map[string]ast.Type{}, parent: parent}
}

func (s *scope) lookup(name string) (ast.Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return ast.Type{}, false
}

func (s *scope) declare(name string, t ast.Type) { s.vars[name] = t }

type checker struct {
	file  *ast.File
	funcs map[string]*ast.Func
	diags []Diagnostic
	ret   ast.Type
}

// Check performs semantic analysis over file and returns every diagnostic
// found. An empty slice means the file is safe to pass to
// internal/glsl/codegen.
func Check(file *ast.File) []Diagnostic {
	c := &checker{file: file, funcs: map[string]*ast.Func{}}
	for _, f := range file.Funcs {
		if _, exists := c.funcs[f.Name]; exists {
			c.errorf("E0200", f.Span, "function %q redeclared", f.Name)
			continue
		}
		c.funcs[f.Name] = f
	}
	for _, f := range file.Funcs {
		c.checkFunc(f)
	}
	return c.diags
}

func (c *checker) errorf(code string, sp token.Span, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Span: sp})
}

func (c *checker) checkFunc(f *ast.Func) {
	c.ret = f.Return
	s := newScope(nil)
	for _, p := range f.Params {
		s.declare(p.Name, p.Type)
	}
	c.checkBlock(f.Body, s)
}

func (c *checker) checkBlock(b *ast.Block, parent *scope) {
	s := newScope(parent)
	for _, st := range b.Stmts {
		c.checkStmt(st, s)
	}
}

func (c *checker) checkStmt(st ast.Stmt, s *scope) {
	switch n := st.(type) {
	case *ast.VarDecl:
		if n.Init != nil {
			it := c.typeOf(n.Init, s)
			if !assignable(it, n.Type) {
				c.errorf("E0201", n.Span, "cannot initialize %s with %s", n.Type, it)
			}
		}
		s.declare(n.Name, n.Type)
	case *ast.ExprStmt:
		c.typeOf(n.X, s)
	case *ast.IfStmt:
		ct := c.typeOf(n.Cond, s)
		if ct.Base != ast.TBool {
			c.errorf("E0202", n.Cond.SourceSpan(), "if condition must be bool, got %s", ct)
		}
		c.checkBlock(n.Then, s)
		if n.Else != nil {
			c.checkBlock(n.Else, s)
		}
	case *ast.ForStmt:
		fs := newScope(s)
		if n.Init != nil {
			c.checkStmt(n.Init, fs)
		}
		if n.Cond != nil {
			c.typeOf(n.Cond, fs)
		}
		if n.Post != nil {
			c.typeOf(n.Post, fs)
		}
		c.checkBlock(n.Body, fs)
	case *ast.WhileStmt:
		c.typeOf(n.Cond, s)
		c.checkBlock(n.Body, s)
	case *ast.DoWhileStmt:
		c.checkBlock(n.Body, s)
		c.typeOf(n.Cond, s)
	case *ast.ReturnStmt:
		if n.X != nil {
			rt := c.typeOf(n.X, s)
			if !assignable(rt, c.ret) {
				c.errorf("E0203", n.X.SourceSpan(), "return type mismatch: function returns %s, got %s", c.ret, rt)
			}
		} else if c.ret.Base != ast.TVoid {
			c.errorf("E0204", token.Span{}, "missing return value for non-void function")
		}
	case *ast.BlockStmt:
		c.checkBlock(n.Body, s)
	case *ast.BreakStmt, *ast.ContinueStmt:
		// always valid in this subset; a stricter checker would verify loop nesting
	}
}

// conversion lattice: int -> uint -> float, widening only (spec §4.B).
func widensTo(from, to ast.BaseType) bool {
	if from == to {
		return true
	}
	switch from {
	case ast.TInt:
		return to == ast.TUint || to == ast.TFloat
	case ast.TUint:
		return to == ast.TFloat
	}
	return false
}

func assignable(from, to ast.Type) bool {
	if from.Array != to.Array {
		return false
	}
	if from.Base == to.Base {
		return true
	}
	if isScalarNumeric(from.Base) && isScalarNumeric(to.Base) {
		return widensTo(from.Base, to.Base)
	}
	return false
}

// isScalarNumeric reports whether b is int, uint, or float.
func isScalarNumeric(b ast.BaseType) bool {
	return b == ast.TInt || b == ast.TUint || b == ast.TFloat
}

func (c *checker) typeOf(e ast.Expr, s *scope) ast.Type {
	switch n := e.(type) {
	case *ast.IntLit:
		return ast.Type{Base: ast.TInt}
	case *ast.FloatLit:
		return ast.Type{Base: ast.TFloat}
	case *ast.BoolLit:
		return ast.Type{Base: ast.TBool}
	case *ast.Ident:
		if t, ok := s.lookup(n.Name); ok {
			return t
		}
		c.errorf("E0205", n.Span, "undeclared identifier %q", n.Name)
		return ast.Type{Base: ast.TFloat}
	case *ast.BinaryExpr:
		xt := c.typeOf(n.X, s)
		yt := c.typeOf(n.Y, s)
		return c.checkBinary(n, xt, yt)
	case *ast.UnaryExpr:
		return c.typeOf(n.X, s)
	case *ast.AssignExpr:
		lt := c.typeOf(n.LHS, s)
		rt := c.typeOf(n.RHS, s)
		if !assignable(rt, lt) {
			c.errorf("E0206", n.Span, "cannot assign %s to %s", rt, lt)
		}
		c.checkLValue(n.LHS, s)
		return lt
	case *ast.TernaryExpr:
		ct := c.typeOf(n.Cond, s)
		if ct.Base != ast.TBool {
			c.errorf("E0207", n.Span, "ternary condition must be bool")
		}
		tt := c.typeOf(n.Then, s)
		c.typeOf(n.Else, s)
		return tt
	case *ast.CallExpr:
		return c.checkCall(n, s)
	case *ast.FieldExpr:
		return c.checkSwizzleRead(n, s)
	case *ast.IndexExpr:
		xt := c.typeOf(n.X, s)
		c.typeOf(n.Index, s)
		if xt.Array > 0 {
			xt.Array = 0
			return xt
		}
		return ast.Type{Base: ast.TFloat}
	case *ast.ArrayLit:
		for _, el := range n.Elems {
			c.typeOf(el, s)
		}
		t := n.ElemType
		t.Array = n.Size
		return t
	}
	return ast.Type{Base: ast.TFloat}
}

func (c *checker) checkBinary(n *ast.BinaryExpr, xt, yt ast.Type) ast.Type {
	switch n.Op {
	case token.EqEq, token.NotEq, token.Less, token.Greater, token.LessEq, token.GreaterEq,
		token.AmpAmp, token.PipePipe:
		return ast.Type{Base: ast.TBool}
	}
	if xt.Base == yt.Base {
		return xt
	}
	if isScalarNumeric(xt.Base) && isScalarNumeric(yt.Base) {
		if widensTo(xt.Base, yt.Base) {
			return yt
		}
		if widensTo(yt.Base, xt.Base) {
			return xt
		}
	}
	// vector <op> scalar broadcasts
	if xt.IsVector() && yt.IsScalar() {
		return xt
	}
	if yt.IsVector() && xt.IsScalar() {
		return yt
	}
	c.errorf("E0208", n.Span, "incompatible operand types %s and %s", xt, yt)
	return xt
}

func (c *checker) checkLValue(e ast.Expr, s *scope) {
	switch n := e.(type) {
	case *ast.Ident:
		if _, ok := s.lookup(n.Name); !ok {
			c.errorf("E0209", n.Span, "assignment to undeclared identifier %q", n.Name)
		}
	case *ast.FieldExpr:
		if !validSwizzleLValue(n.Field) {
			c.errorf("E0210", n.Span, "swizzle %q repeats a component and cannot be an assignment target", n.Field)
		}
		c.checkLValue(n.X, s)
	case *ast.IndexExpr:
		c.checkLValue(n.X, s)
	default:
		c.errorf("E0211", e.SourceSpan(), "expression is not assignable")
	}
}

func validSwizzleLValue(field string) bool {
	seen := map[rune]bool{}
	for _, r := range field {
		if seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}

var swizzleSets = [][]rune{{'x', 'y', 'z', 'w'}, {'r', 'g', 'b', 'a'}, {'s', 't', 'p', 'q'}}

func swizzleIndex(r rune) (int, bool) {
	for _, set := range swizzleSets {
		for i, c := range set {
			if c == r {
				return i, true
			}
		}
	}
	return 0, false
}

func (c *checker) checkSwizzleRead(n *ast.FieldExpr, s *scope) ast.Type {
	xt := c.typeOf(n.X, s)
	if !xt.IsVector() {
		c.errorf("E0212", n.Span, "cannot swizzle non-vector type %s", xt)
		return xt
	}
	arity := xt.VecArity()
	for _, r := range n.Field {
		idx, ok := swizzleIndex(r)
		if !ok || idx >= arity {
			c.errorf("E0213", n.Span, "component %q out of range for %s", string(r), xt)
		}
	}
	switch len(n.Field) {
	case 1:
		return ast.Type{Base: elemBaseOf(xt)}
	case 2:
		return ast.Type{Base: ast.TVec2}
	case 3:
		return ast.Type{Base: ast.TVec3}
	case 4:
		return ast.Type{Base: ast.TVec4}
	}
	c.errorf("E0214", n.Span, "swizzle %q has invalid length", n.Field)
	return xt
}

func elemBaseOf(t ast.Type) ast.BaseType {
	// This front-end only has float-element vectors, matching spec's GLSL
	// type list (vectors are built over float/int/uint scalars generically
	// in full GLSL; node shaders in this system only ever use float vectors).
	return ast.TFloat
}

func (c *checker) checkCall(n *ast.CallExpr, s *scope) ast.Type {
	for _, a := range n.Args {
		c.typeOf(a, s)
	}
	if t, ok := constructorType(n.Callee); ok {
		return t
	}
	if ret, ok := builtinReturn(n.Callee, len(n.Args)); ok {
		return ret
	}
	if fn, ok := c.funcs[n.Callee]; ok {
		if len(fn.Params) != len(n.Args) {
			c.errorf("E0215", n.Span, "function %q expects %d arguments, got %d", n.Callee, len(fn.Params), len(n.Args))
		}
		return fn.Return
	}
	c.errorf("E0216", n.Span, "call to undeclared function %q", n.Callee)
	return ast.Type{Base: ast.TFloat}
}

func constructorType(name string) (ast.Type, bool) {
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

// builtinReturn resolves the small set of GLSL/lpfx built-ins this
// implementation supports by name alone (argc is not checked), rather than
// by overload resolution over every GLSL standard-library signature —
// documented as a scope reduction in DESIGN.md.
func builtinReturn(name string, argc int) (ast.Type, bool) {
	scalarOrVec := ast.Type{Base: ast.TFloat} // resolved precisely at codegen time from arg types
	switch name {
	case "sin", "cos", "tan", "asin", "acos", "atan", "exp", "exp2", "log", "log2",
		"sqrt", "inversesqrt", "floor", "ceil", "fract", "trunc", "round", "roundEven",
		"abs", "sign", "normalize", "length":
		return scalarOrVec, true
	case "mod", "pow", "min", "max", "step", "atan2", "distance", "dot", "reflect", "cross":
		return scalarOrVec, true
	case "mix", "clamp", "smoothstep":
		return scalarOrVec, true
	case "lpfx_snoise", "lpfx_worley":
		return ast.Type{Base: ast.TFloat}, true
	}
	return ast.Type{}, false
}

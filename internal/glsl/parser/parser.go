// Package parser builds an ast.File from a token stream. Conventional
// recursive descent, as spec §4.B describes ("Lexer, parser, and AST are
// conventional; the interesting contract is semantic analysis").
package parser

import (
	"fmt"

	"github.com/lightplayer/lp/internal/glsl/ast"
	"github.com/lightplayer/lp/internal/glsl/lexer"
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

type Parser struct {
	toks  []token.Token
	pos   int
	diags []Diagnostic
}

// Parse lexes and parses src, returning whatever File it could build plus
// every diagnostic collected along the way. Per spec §4.B, parse errors do
// not abort the pass — they accumulate and the caller decides at a phase
// boundary whether to proceed to semantic analysis.
func Parse(src string) (*ast.File, []Diagnostic) {
	lx := lexer.New(src)
	toks := lx.Tokenize()
	p := &Parser{toks: toks}
	for _, d := range lx.Diagnostics() {
		p.diags = append(p.diags, Diagnostic{Code: d.Code, Message: d.Message, Span: d.Span})
	}
	f := p.parseFile()
	return f, p.diags
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peekKind() token.Kind { return p.toks[p.pos].Kind }

func (p *Parser) peekAhead(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(code, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Span: p.cur().Span})
}

func (p *Parser) expect(k token.Kind, what string) token.Token {
	if p.peekKind() != k {
		p.errorf("E0100", "expected %s, got %q", what, p.cur().Text)
		return p.cur()
	}
	return p.advance()
}

func (p *Parser) parseFile() *ast.File {
	f := &ast.File{}
	for p.peekKind() != token.EOF {
		fn := p.parseFunc()
		if fn != nil {
			f.Funcs = append(f.Funcs, fn)
		} else if p.peekKind() != token.EOF {
			p.advance() // resync
		}
	}
	return f
}

func isTypeTok(k token.Kind) bool {
	switch k {
	case token.KwVoid, token.KwBool, token.KwInt, token.KwUint, token.KwFloat,
		token.KwVec2, token.KwVec3, token.KwVec4, token.KwMat2, token.KwMat3, token.KwMat4:
		return true
	}
	return false
}

func parseBaseType(k token.Kind) ast.BaseType {
	switch k {
	case token.KwVoid:
		return ast.TVoid
	case token.KwBool:
		return ast.TBool
	case token.KwInt:
		return ast.TInt
	case token.KwUint:
		return ast.TUint
	case token.KwFloat:
		return ast.TFloat
	case token.KwVec2:
		return ast.TVec2
	case token.KwVec3:
		return ast.TVec3
	case token.KwVec4:
		return ast.TVec4
	case token.KwMat2:
		return ast.TMat2
	case token.KwMat3:
		return ast.TMat3
	case token.KwMat4:
		return ast.TMat4
	}
	return ast.TVoid
}

func (p *Parser) parseType() ast.Type {
	t := ast.Type{Base: parseBaseType(p.cur().Kind)}
	p.advance()
	return t
}

func (p *Parser) parseFunc() *ast.Func {
	if !isTypeTok(p.peekKind()) {
		p.errorf("E0101", "expected a type to start a function declaration")
		return nil
	}
	sp := p.cur().Span
	ret := p.parseType()
	name := p.expect(token.Ident, "function name").Text
	p.expect(token.LParen, "(")
	var params []ast.Param
	for p.peekKind() != token.RParen && p.peekKind() != token.EOF {
		q := ast.QualIn
		switch p.peekKind() {
		case token.KwIn:
			p.advance()
		case token.KwOut:
			q = ast.QualOut
			p.advance()
		case token.KwInout:
			q = ast.QualInout
			p.advance()
		case token.KwConst:
			p.advance()
		}
		pt := p.parseType()
		pname := p.expect(token.Ident, "parameter name").Text
		params = append(params, ast.Param{Name: pname, Type: pt, Qualifier: q})
		if p.peekKind() == token.Comma {
			p.advance()
		}
	}
	p.expect(token.RParen, ")")
	body := p.parseBlock()
	return &ast.Func{Name: name, Return: ret, Params: params, Body: body, Span: sp}
}

func (p *Parser) parseBlock() *ast.Block {
	p.expect(token.LBrace, "{")
	b := &ast.Block{}
	for p.peekKind() != token.RBrace && p.peekKind() != token.EOF {
		s := p.parseStmt()
		if s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	p.expect(token.RBrace, "}")
	return b
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peekKind() {
	case token.LBrace:
		return &ast.BlockStmt{Body: p.parseBlock()}
	case token.KwIf:
		return p.parseIf()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwDo:
		return p.parseDoWhile()
	case token.KwReturn:
		return p.parseReturn()
	case token.KwBreak:
		p.advance()
		p.expect(token.Semi, ";")
		return &ast.BreakStmt{}
	case token.KwContinue:
		p.advance()
		p.expect(token.Semi, ";")
		return &ast.ContinueStmt{}
	}
	if isTypeTok(p.peekKind()) {
		return p.parseVarDecl()
	}
	e := p.parseExpr()
	p.expect(token.Semi, ";")
	return &ast.ExprStmt{X: e}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	sp := p.cur().Span
	t := p.parseType()
	name := p.expect(token.Ident, "variable name").Text
	t = p.parseArraySuffix(t)
	var init ast.Expr
	if p.peekKind() == token.Assign {
		p.advance()
		init = p.parseExpr()
	}
	p.expect(token.Semi, ";")
	return &ast.VarDecl{Name: name, Type: t, Init: init, Span: sp}
}

// parseArraySuffix handles GLSL's postfix array-size syntax: `int a[4]`.
// The declared size is folded into t.Array; the element count itself is
// validated against any initializer at sema time.
func (p *Parser) parseArraySuffix(t ast.Type) ast.Type {
	if p.peekKind() != token.LBracket {
		return t
	}
	p.advance()
	size := 0
	if p.peekKind() == token.IntLit {
		size = int(parseInt(p.cur().Text))
		p.advance()
	}
	p.expect(token.RBracket, "]")
	t.Array = size
	return t
}

func (p *Parser) parseIf() ast.Stmt {
	p.advance()
	p.expect(token.LParen, "(")
	cond := p.parseExpr()
	p.expect(token.RParen, ")")
	then := p.parseBlock()
	var els *ast.Block
	if p.peekKind() == token.KwElse {
		p.advance()
		if p.peekKind() == token.KwIf {
			els = &ast.Block{Stmts: []ast.Stmt{p.parseIf()}}
		} else {
			els = p.parseBlock()
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseFor() ast.Stmt {
	p.advance()
	p.expect(token.LParen, "(")
	var init ast.Stmt
	if p.peekKind() != token.Semi {
		if isTypeTok(p.peekKind()) {
			init = p.parseVarDeclNoSemi()
		} else {
			init = &ast.ExprStmt{X: p.parseExpr()}
		}
	}
	p.expect(token.Semi, ";")
	var cond ast.Expr
	if p.peekKind() != token.Semi {
		cond = p.parseExpr()
	}
	p.expect(token.Semi, ";")
	var post ast.Expr
	if p.peekKind() != token.RParen {
		post = p.parseExpr()
	}
	p.expect(token.RParen, ")")
	body := p.parseBlock()
	return &ast.ForStmt{Init: init, Cond: cond, Post: post, Body: body}
}

func (p *Parser) parseVarDeclNoSemi() ast.Stmt {
	sp := p.cur().Span
	t := p.parseType()
	name := p.expect(token.Ident, "variable name").Text
	t = p.parseArraySuffix(t)
	var init ast.Expr
	if p.peekKind() == token.Assign {
		p.advance()
		init = p.parseExpr()
	}
	return &ast.VarDecl{Name: name, Type: t, Init: init, Span: sp}
}

func (p *Parser) parseWhile() ast.Stmt {
	p.advance()
	p.expect(token.LParen, "(")
	cond := p.parseExpr()
	p.expect(token.RParen, ")")
	body := p.parseBlock()
	return &ast.WhileStmt{Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	p.advance()
	body := p.parseBlock()
	p.expect(token.KwWhile, "while")
	p.expect(token.LParen, "(")
	cond := p.parseExpr()
	p.expect(token.RParen, ")")
	p.expect(token.Semi, ";")
	return &ast.DoWhileStmt{Body: body, Cond: cond}
}

func (p *Parser) parseReturn() ast.Stmt {
	p.advance()
	var x ast.Expr
	if p.peekKind() != token.Semi {
		x = p.parseExpr()
	}
	p.expect(token.Semi, ";")
	return &ast.ReturnStmt{X: x}
}

// Expression parsing: precedence-climbing.

func (p *Parser) parseExpr() ast.Expr { return p.parseAssign() }

func (p *Parser) parseAssign() ast.Expr {
	lhs := p.parseTernary()
	switch p.peekKind() {
	case token.Assign, token.PlusAssign, token.MinusAssign, token.StarAssign, token.SlashAssign:
		sp := p.cur().Span
		op := p.advance().Kind
		rhs := p.parseAssign()
		return &ast.AssignExpr{Op: op, LHS: lhs, RHS: rhs, Span: sp}
	}
	return lhs
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseLogicalOr()
	if p.peekKind() == token.Question {
		sp := p.cur().Span
		p.advance()
		then := p.parseExpr()
		p.expect(token.Colon, ":")
		els := p.parseAssign()
		return &ast.TernaryExpr{Cond: cond, Then: then, Else: els, Span: sp}
	}
	return cond
}

func (p *Parser) parseLogicalOr() ast.Expr {
	x := p.parseLogicalAnd()
	for p.peekKind() == token.PipePipe {
		sp := p.cur().Span
		op := p.advance().Kind
		y := p.parseLogicalAnd()
		x = &ast.BinaryExpr{Op: op, X: x, Y: y, Span: sp}
	}
	return x
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	x := p.parseEquality()
	for p.peekKind() == token.AmpAmp {
		sp := p.cur().Span
		op := p.advance().Kind
		y := p.parseEquality()
		x = &ast.BinaryExpr{Op: op, X: x, Y: y, Span: sp}
	}
	return x
}

func (p *Parser) parseEquality() ast.Expr {
	x := p.parseRelational()
	for p.peekKind() == token.EqEq || p.peekKind() == token.NotEq {
		sp := p.cur().Span
		op := p.advance().Kind
		y := p.parseRelational()
		x = &ast.BinaryExpr{Op: op, X: x, Y: y, Span: sp}
	}
	return x
}

func (p *Parser) parseRelational() ast.Expr {
	x := p.parseAdditive()
	for p.peekKind() == token.Less || p.peekKind() == token.Greater || p.peekKind() == token.LessEq || p.peekKind() == token.GreaterEq {
		sp := p.cur().Span
		op := p.advance().Kind
		y := p.parseAdditive()
		x = &ast.BinaryExpr{Op: op, X: x, Y: y, Span: sp}
	}
	return x
}

func (p *Parser) parseAdditive() ast.Expr {
	x := p.parseMultiplicative()
	for p.peekKind() == token.Plus || p.peekKind() == token.Minus {
		sp := p.cur().Span
		op := p.advance().Kind
		y := p.parseMultiplicative()
		x = &ast.BinaryExpr{Op: op, X: x, Y: y, Span: sp}
	}
	return x
}

func (p *Parser) parseMultiplicative() ast.Expr {
	x := p.parseUnary()
	for p.peekKind() == token.Star || p.peekKind() == token.Slash || p.peekKind() == token.Percent {
		sp := p.cur().Span
		op := p.advance().Kind
		y := p.parseUnary()
		x = &ast.BinaryExpr{Op: op, X: x, Y: y, Span: sp}
	}
	return x
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.peekKind() {
	case token.Minus, token.Bang, token.PlusPlus, token.MinusMinus:
		sp := p.cur().Span
		op := p.advance().Kind
		x := p.parseUnary()
		return &ast.UnaryExpr{Op: op, X: x, Span: sp}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.peekKind() {
		case token.Dot:
			sp := p.cur().Span
			p.advance()
			field := p.expect(token.Ident, "field/swizzle").Text
			x = &ast.FieldExpr{X: x, Field: field, Span: sp}
		case token.LBracket:
			sp := p.cur().Span
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket, "]")
			x = &ast.IndexExpr{X: x, Index: idx, Span: sp}
		default:
			return x
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.IntLit:
		p.advance()
		return &ast.IntLit{Value: parseInt(t.Text), Span: t.Span}
	case token.FloatLit:
		p.advance()
		return &ast.FloatLit{Value: parseFloat(t.Text), Span: t.Span}
	case token.KwTrue:
		p.advance()
		return &ast.BoolLit{Value: true, Span: t.Span}
	case token.KwFalse:
		p.advance()
		return &ast.BoolLit{Value: false, Span: t.Span}
	case token.LParen:
		p.advance()
		x := p.parseExpr()
		p.expect(token.RParen, ")")
		return x
	case token.Ident:
		p.advance()
		if p.peekKind() == token.LParen {
			return p.parseCall(t.Text, t.Span)
		}
		return &ast.Ident{Name: t.Text, Span: t.Span}
	}
	if isTypeTok(t.Kind) {
		elemType := ast.Type{Base: parseBaseType(t.Kind)}
		p.advance()
		if p.peekKind() == token.LBracket {
			p.advance()
			size := 0
			if p.peekKind() == token.IntLit {
				size = int(parseInt(p.cur().Text))
				p.advance()
			}
			p.expect(token.RBracket, "]")
			p.expect(token.LParen, "(")
			var elems []ast.Expr
			for p.peekKind() != token.RParen && p.peekKind() != token.EOF {
				elems = append(elems, p.parseAssign())
				if p.peekKind() == token.Comma {
					p.advance()
				}
			}
			p.expect(token.RParen, ")")
			return &ast.ArrayLit{ElemType: elemType, Size: size, Elems: elems, Span: t.Span}
		}
		name := typeTokName(t.Kind)
		if p.peekKind() == token.LParen {
			return p.parseCall(name, t.Span)
		}
		p.errorf("E0102", "unexpected type name %q", name)
		return &ast.Ident{Name: name, Span: t.Span}
	}
	p.errorf("E0103", "unexpected token %q", t.Text)
	p.advance()
	return &ast.Ident{Name: "<error>", Span: t.Span}
}

func (p *Parser) parseCall(name string, sp token.Span) ast.Expr {
	p.expect(token.LParen, "(")
	var args []ast.Expr
	for p.peekKind() != token.RParen && p.peekKind() != token.EOF {
		args = append(args, p.parseAssign())
		if p.peekKind() == token.Comma {
			p.advance()
		}
	}
	p.expect(token.RParen, ")")
	return &ast.CallExpr{Callee: name, Args: args, Span: sp}
}

func typeTokName(k token.Kind) string {
	switch k {
	case token.KwVoid:
		return "void"
	case token.KwBool:
		return "bool"
	case token.KwInt:
		return "int"
	case token.KwUint:
		return "uint"
	case token.KwFloat:
		return "float"
	case token.KwVec2:
		return "vec2"
	case token.KwVec3:
		return "vec3"
	case token.KwVec4:
		return "vec4"
	case token.KwMat2:
		return "mat2"
	case token.KwMat3:
		return "mat3"
	case token.KwMat4:
		return "mat4"
	}
	return "?"
}

func parseInt(s string) int64 {
	var v int64
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		v = v*10 + int64(r-'0')
	}
	return v
}

func parseFloat(s string) float64 {
	var whole, frac int64
	var fracDigits int
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		whole = whole*10 + int64(s[i]-'0')
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			frac = frac*10 + int64(s[i]-'0')
			fracDigits++
			i++
		}
	}
	v := float64(whole)
	if fracDigits > 0 {
		div := 1.0
		for j := 0; j < fracDigits; j++ {
			div *= 10
		}
		v += float64(frac) / div
	}
	// an exponent suffix (e/E) is ignored: the value comes from the whole and
	// fraction digits only
	return v
}

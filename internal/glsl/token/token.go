// Package token defines the lexical tokens of the GLSL subset accepted by
// the front-end (spec §4.B).
package token

// Span identifies a source range for diagnostics (spec §4.B: "diagnostics
// carry source span and a stable error code").
type Span struct {
	Line, Col int
	Offset    int
}

type Kind int

const (
	EOF Kind = iota
	Ident
	IntLit
	FloatLit

	// Keywords
	KwVoid
	KwBool
	KwInt
	KwUint
	KwFloat
	KwVec2
	KwVec3
	KwVec4
	KwMat2
	KwMat3
	KwMat4
	KwIf
	KwElse
	KwFor
	KwWhile
	KwDo
	KwReturn
	KwBreak
	KwContinue
	KwTrue
	KwFalse
	KwIn
	KwOut
	KwInout
	KwConst
	KwStruct

	// Punctuation / operators
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Dot
	Question
	Colon

	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign

	Plus
	Minus
	Star
	Slash
	Percent

	EqEq
	NotEq
	Less
	Greater
	LessEq
	GreaterEq
	AmpAmp
	PipePipe
	Bang

	PlusPlus
	MinusMinus
)

var keywords = map[string]Kind{
	"void": KwVoid, "bool": KwBool, "int": KwInt, "uint": KwUint, "float": KwFloat,
	"vec2": KwVec2, "vec3": KwVec3, "vec4": KwVec4,
	"mat2": KwMat2, "mat3": KwMat3, "mat4": KwMat4,
	"if": KwIf, "else": KwElse, "for": KwFor, "while": KwWhile, "do": KwDo,
	"return": KwReturn, "break": KwBreak, "continue": KwContinue,
	"true": KwTrue, "false": KwFalse,
	"in": KwIn, "out": KwOut, "inout": KwInout, "const": KwConst, "struct": KwStruct,
}

// Lookup returns the keyword Kind for ident, or (Ident, false) if ident is
// not reserved.
func Lookup(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

type Token struct {
	Kind Kind
	Text string
	Span Span
}

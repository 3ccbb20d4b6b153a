package vm

import "golang.org/x/exp/slices"

type TokenType int

const (
	// Punctuation.
	TLParen TokenType = iota
	TRParen
	TLBrace
	TRBrace
	TComma
	TDot
	TMinus
	TPlus
	TSemi
	TSlash
	TStar

	// Operators.
	TBang
	TBangEqual
	TEqual
	TEqualEqual
	TGreater
	TGreaterEqual
	TLess
	TLessEqual
	TAnd
	TOr

	// Literals.
	TIdent
	TChar
	TStr
	TInt
	TFloat

	// Type-declaration keywords.
	TInt8
	TInt16
	TInt32
	TInt64
	TTyFloat
	TTyDouble
	TTyChar
	TTyString
	TTyBool
	TVar

	// Control keywords. Reserved: no control-flow or OOP statements are
	// parsed by this core, but the scanner still recognizes them as
	// keywords rather than identifiers.
	TClass
	TElse
	TFalse
	TFor
	TIf
	TReturn
	TSuper
	TThis
	TTrue
	TWhile

	// Terminals.
	TErr
	TEOF
)

// Token is a single lexeme produced by the Scanner, together with the
// source line the Scanner was on when the lexeme ended (for a string
// literal spanning lines, its last line). For TErr, Runes carries the error message
// rather than source text.
type Token struct {
	Type  TokenType
	Line  int
	Runes []rune
}

func (t Token) String() string  { return string(t.Runes) }
func (t Token) Eq(u Token) bool { return t.Type == u.Type && slices.Equal(t.Runes, u.Runes) }

// keywords maps a scanned identifier lexeme to its reserved TokenType.
// Built once; the Scanner does a single map lookup per identifier instead
// of a hand-rolled trie, since Iliad's keyword set is wider than Lox's
// (it also carries the ten type-declaration keywords).
var keywords = map[string]TokenType{
	"class":  TClass,
	"else":   TElse,
	"false":  TFalse,
	"for":    TFor,
	"if":     TIf,
	"return": TReturn,
	"super":  TSuper,
	"this":   TThis,
	"true":   TTrue,
	"var":    TVar,
	"while":  TWhile,

	"int8":   TInt8,
	"int16":  TInt16,
	"int32":  TInt32,
	"int64":  TInt64,
	"float":  TTyFloat,
	"double": TTyDouble,
	"char":   TTyChar,
	"string": TTyString,
	"bool":   TTyBool,
}

// typeKeywordValue reports the ValueType a type-declaration keyword token
// denotes, e.g. TInt32 -> Int32. TVar is not a type-declaration keyword in
// this sense and is handled separately by the compiler (its declared type
// is inferred from the initializer).
func typeKeywordValue(ty TokenType) (ValueType, bool) {
	switch ty {
	case TInt8:
		return ValInt8, true
	case TInt16:
		return ValInt16, true
	case TInt32:
		return ValInt32, true
	case TInt64:
		return ValInt64, true
	case TTyFloat:
		return ValFloat, true
	case TTyDouble:
		return ValDouble, true
	case TTyChar:
		return ValChar, true
	case TTyString:
		return ValString, true
	case TTyBool:
		return ValBool, true
	default:
		return ValInvalid, false
	}
}

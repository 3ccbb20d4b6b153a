package vm

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/iliad-lang/iliad/debug"
	e "github.com/iliad-lang/iliad/errors"
	"github.com/iliad-lang/iliad/utils"
	"github.com/josharian/intern"
	"github.com/sirupsen/logrus"
)

// Parser is a single-pass Pratt parser, static type checker and bytecode
// emitter rolled into one traversal: by the time parsePrec returns from an
// expression, that expression's instructions are already in the chunk and
// its static type is sitting in currentExpression.
//
// Source is eagerly tokenized into tokens up front; prev/curr are a
// two-token window over that array, advanced by pos.
type Parser struct {
	tokens     []Token
	pos        int
	prev, curr Token

	chunk *Chunk

	// declaredVariables tracks every name declared so far in this compile
	// unit, global-only (Iliad has no block scoping). Reset at the start of
	// every Compile call; re-declaring within one call is a compile error,
	// but the VM's globals persist across separate Compile calls in a REPL,
	// so re-declaring across calls is instead a runtime error.
	declaredVariables map[string]ValueType
	// currentExpression is the one-slot "type stack" a tree-walking checker
	// would otherwise need a whole stack for: it always holds the static
	// type of the expression whose bytecode was most recently emitted.
	currentExpression ValueType

	errors   *multierror.Error
	warnings *multierror.Error
	// panicMode is set once by a compile error and cleared by sync(); while
	// set, every further error is suppressed.
	panicMode bool
}

func NewParser() *Parser { return &Parser{} }

func tokenize(src string) []Token {
	sc := NewScanner(src)
	var toks []Token
	for {
		t := sc.ScanToken()
		toks = append(toks, t)
		if t.Type == TEOF {
			return toks
		}
	}
}

// Compile resets the Parser's per-call state (everything except nothing —
// there is no cross-call state on Parser; that lives in the VM's globals)
// and compiles src into a fresh Chunk. Compile errors are returned combined
// via a *multierror.Error; any warnings raised along the way are available
// afterwards from Warnings, whether or not compilation ultimately failed.
func (p *Parser) Compile(src string) (*Chunk, error) {
	p.tokens = tokenize(src)
	p.pos = 0
	p.chunk = NewChunk()
	p.declaredVariables = map[string]ValueType{}
	p.currentExpression = ValInvalid
	p.errors = nil
	p.warnings = nil
	p.panicMode = false

	p.advance()
	for !p.match(TEOF) {
		p.declaration()
	}
	p.endCompiler()
	return p.chunk, p.errors.ErrorOrNil()
}

func (p *Parser) Warnings() error { return p.warnings.ErrorOrNil() }

func (p *Parser) endCompiler() {
	p.emitBytes(byte(OpReturn))
	if debug.DEBUG {
		logrus.Debugln(p.chunk.Disassemble("<script>"))
	}
}

/* Grammar: program := declaration* EOF */

func (p *Parser) declaration() {
	switch {
	case p.matchAny(TInt8, TInt16, TInt32, TInt64, TTyFloat, TTyDouble, TTyChar, TTyString, TTyBool, TVar):
		p.varDeclaration()
	default:
		p.statement()
	}
	p.currentExpression = ValInvalid
	if p.panicMode {
		p.sync()
	}
}

func (p *Parser) matchAny(tys ...TokenType) bool {
	for _, ty := range tys {
		if p.match(ty) {
			return true
		}
	}
	return false
}

// varDeclaration := (Int8|Int16|Int32|Int64|Float|Double|Char|String|Bool|Var) Identifier ('=' expr)? ';'
func (p *Parser) varDeclaration() {
	declaredType := ValNull
	if t, ok := typeKeywordValue(p.prev.Type); ok {
		declaredType = t
	}

	nameTok := p.consume(TIdent, "Expect variable name.")
	if nameTok == nil {
		return
	}
	name := *nameTok
	lexeme := name.String()

	if _, exists := p.declaredVariables[lexeme]; exists {
		p.Error(fmt.Sprintf("Variable %s already declared.", lexeme))
		// Keep consuming the rest of the statement so the token stream
		// stays in sync for whatever follows.
		if p.match(TEqual) {
			p.expr()
		}
		p.consume(TSemi, "Expect ';' after variable declaration.")
		return
	}
	p.declaredVariables[lexeme] = declaredType
	nameIdx := p.identConst(&name)

	switch {
	case p.match(TEqual):
		finalType := p.assignVar(declaredType, name)
		p.declaredVariables[lexeme] = finalType
		p.emitBytes(byte(OpVarDeclarAndAssign), nameIdx)
	case declaredType == ValNull:
		p.Error("Variables declared with 'var' keyword must be assigned at declaration.")
	default:
		p.emitBytes(byte(OpVarDeclar), byte(declaredType), nameIdx)
	}
	p.consume(TSemi, "Expect ';' after variable declaration.")
}

// assignVar parses the initializer/RHS expression of an assignment (var
// declaration or plain `name = expr`) and reconciles its inferred type
// against declaredType, returning the variable's resulting type. An
// explicit target of Null means "infer it", e.g. a `var` declaration.
//
// Any numeric-to-numeric mismatch is accepted, with a warning when the
// target is narrower than the source, and an OpCast is emitted right after
// the expression's own bytecode so the value actually stored has the
// target's type.
func (p *Parser) assignVar(declaredType ValueType, name Token) ValueType {
	p.expr()
	inferred := p.currentExpression

	switch {
	case declaredType == ValNull:
		return inferred
	case declaredType == inferred:
		return declaredType
	case declaredType.IsNumber() && inferred.IsNumber():
		if declaredType < inferred {
			p.Warning(fmt.Sprintf("Possible loss of data in conversion of %s to %s.", inferred, declaredType))
		}
		p.emitBytes(byte(OpCast), byte(declaredType))
		return declaredType
	default:
		p.Error(fmt.Sprintf("Cannot assign %s to %s.", inferred, declaredType))
		return declaredType
	}
}

// statement := exprStatement
func (p *Parser) statement() { p.exprStatement() }

func (p *Parser) exprStatement() {
	p.expr()
	p.consume(TSemi, "Expect ';' after expression.")
}

/* Expressions */

func (p *Parser) expr() { p.parsePrec(PrecAssign) }

func (p *Parser) integer(_ bool) {
	val, err := strconv.ParseInt(p.prev.String(), 10, 32)
	if err != nil {
		p.Error("Invalid integer literal.")
	}
	p.emitConstant(OpIntLiteral, NewInt32(int32(val)))
	p.currentExpression = ValInt32
}

func (p *Parser) _float(_ bool) {
	val, err := strconv.ParseFloat(p.prev.String(), 32)
	if err != nil {
		p.Error("Invalid float literal.")
	}
	p.emitConstant(OpFloatLiteral, NewFloat(float32(val)))
	p.currentExpression = ValFloat
}

func (p *Parser) character(_ bool) {
	p.emitConstant(OpCharLiteral, NewChar(decodedChar(p.prev.Runes)))
	p.currentExpression = ValChar
}

func (p *Parser) string_(_ bool) {
	runes := p.prev.Runes
	unquoted := string(runes[1 : len(runes)-1]) // strip the surrounding quotes
	p.emitConstant(OpStringLiteral, NewString(unquoted))
	p.currentExpression = ValString
}

func (p *Parser) literals(_ bool) {
	switch p.prev.Type {
	case TTrue:
		p.emitConstant(OpTrueLiteral, NewBool(true))
	case TFalse:
		p.emitConstant(OpFalseLiteral, NewBool(false))
	default:
		panic(e.Unreachable)
	}
	p.currentExpression = ValBool
}

func (p *Parser) grouping(_ bool) {
	p.expr()
	p.consume(TRParen, "Expect ')' after expression.")
}

func (p *Parser) unary(_ bool) {
	op := p.prev.Type
	p.parsePrec(PrecUnary)
	switch op {
	case TBang:
		p.emitBytes(byte(OpNot))
		p.currentExpression = ValBool
	case TMinus:
		if !p.currentExpression.IsNumber() {
			p.Error(fmt.Sprintf("Cannot negate %s.", p.currentExpression))
		}
		p.emitBytes(byte(OpNegate))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) variable(canAssign bool) {
	name := p.prev
	lexeme := name.String()
	declaredType, known := p.declaredVariables[lexeme]
	if !known {
		p.Error(fmt.Sprintf("Unknown variable '%s'.", lexeme))
	}
	nameIdx := p.identConst(&name)

	if canAssign && p.match(TEqual) {
		finalType := p.assignVar(declaredType, name)
		p.declaredVariables[lexeme] = finalType
		p.emitBytes(byte(OpVarAssign), nameIdx)
		p.currentExpression = finalType
		return
	}

	p.emitBytes(byte(OpVar), nameIdx)
	p.currentExpression = declaredType
}

// binary handles every infix operator reachable through the parse table,
// including And/Or: the precedence table routes them here like any other
// infix operator (there is no sensible "prefix and/or"), but there is no
// opcode for either in the ISA, so they fall through to the default case
// and raise a compile error instead of panicking.
func (p *Parser) binary(_ bool) {
	opTok := p.prev
	op := opTok.Type
	rule := parseRules[op]
	lhs := p.currentExpression
	p.parsePrec(rule.Prec + 1)
	rhs := p.currentExpression

	switch op {
	case TEqualEqual:
		p.emitBytes(byte(OpEqual))
		p.currentExpression = ValBool
	case TBangEqual:
		p.emitBytes(byte(OpNotEqual))
		p.currentExpression = ValBool
	case TGreater, TGreaterEqual, TLess, TLessEqual:
		if !lhs.IsNumber() || !rhs.IsNumber() {
			p.Error(fmt.Sprintf("Cannot compare %s and %s.", lhs, rhs))
		}
		switch op {
		case TGreater:
			p.emitBytes(byte(OpGreater))
		case TGreaterEqual:
			p.emitBytes(byte(OpGreaterEqual))
		case TLess:
			p.emitBytes(byte(OpLess))
		default:
			p.emitBytes(byte(OpLessEqual))
		}
		p.currentExpression = ValBool
	case TMinus, TStar, TSlash:
		if !lhs.IsNumber() || !rhs.IsNumber() {
			p.Error(fmt.Sprintf("Cannot apply an arithmetic operator to %s and %s.", lhs, rhs))
		}
		switch op {
		case TMinus:
			p.emitBytes(byte(OpSubtract))
		case TStar:
			p.emitBytes(byte(OpMultiply))
		default:
			p.emitBytes(byte(OpDivide))
		}
		p.currentExpression = smallestTypeNeeded(lhs, rhs)
	case TPlus:
		if lhs == ValString {
			if rhs != ValString {
				p.Error(fmt.Sprintf("Cannot concatenate string and %s.", rhs))
			}
			p.emitBytes(byte(OpConcatenate))
			p.currentExpression = ValString
		} else {
			if !lhs.IsNumber() || !rhs.IsNumber() {
				p.Error(fmt.Sprintf("Cannot add %s and %s.", lhs, rhs))
			}
			p.emitBytes(byte(OpAdd))
			p.currentExpression = smallestTypeNeeded(lhs, rhs)
		}
	default:
		p.Error(fmt.Sprintf("'%s' is not a supported operator.", opTok))
		p.currentExpression = ValInvalid
	}
}

/* Pratt dispatch table */

type ParseFn func(p *Parser, canAssign bool)

type ParseRule struct {
	Prefix, Infix ParseFn
	Prec          Prec
}

var parseRules []ParseRule

func init() {
	parseRules = make([]ParseRule, TEOF+1)
	set := func(ty TokenType, prefix, infix ParseFn, prec Prec) {
		parseRules[ty] = ParseRule{prefix, infix, prec}
	}

	set(TLParen, (*Parser).grouping, nil, PrecNone)
	set(TMinus, (*Parser).unary, (*Parser).binary, PrecTerm)
	set(TPlus, nil, (*Parser).binary, PrecTerm)
	set(TSlash, nil, (*Parser).binary, PrecFactor)
	set(TStar, nil, (*Parser).binary, PrecFactor)
	set(TBang, (*Parser).unary, nil, PrecNone)
	set(TBangEqual, nil, (*Parser).binary, PrecEqual)
	set(TEqualEqual, nil, (*Parser).binary, PrecEqual)
	set(TGreater, nil, (*Parser).binary, PrecComp)
	set(TGreaterEqual, nil, (*Parser).binary, PrecComp)
	set(TLess, nil, (*Parser).binary, PrecComp)
	set(TLessEqual, nil, (*Parser).binary, PrecComp)
	set(TAnd, nil, (*Parser).binary, PrecAnd)
	set(TOr, nil, (*Parser).binary, PrecOr)
	set(TIdent, (*Parser).variable, nil, PrecNone)
	set(TChar, (*Parser).character, nil, PrecNone)
	set(TStr, (*Parser).string_, nil, PrecNone)
	set(TInt, (*Parser).integer, nil, PrecNone)
	set(TFloat, (*Parser)._float, nil, PrecNone)
	set(TTrue, (*Parser).literals, nil, PrecNone)
	set(TFalse, (*Parser).literals, nil, PrecNone)
}

func (p *Parser) parsePrec(prec Prec) {
	p.advance()
	prefix := parseRules[p.prev.Type].Prefix
	if prefix == nil {
		p.Error("Expected expression.")
		return
	}
	canAssign := prec <= PrecAssign
	prefix(p, canAssign)

	for prec <= parseRules[p.curr.Type].Prec {
		p.advance()
		infix := parseRules[p.prev.Type].Infix
		infix(p, canAssign)
	}
}

type Prec int

const (
	PrecNone   Prec = iota
	PrecAssign      // =
	PrecOr          // ||
	PrecAnd         // &&
	PrecEqual       // == !=
	PrecComp        // < > <= >=
	PrecTerm        // + -
	PrecFactor      // * /
	PrecUnary       // ! -
	PrecCall        // reserved
	PrecPrimary
)

/* Token cursor */

func (p *Parser) check(ty TokenType) bool     { return p.curr.Type == ty }
func (p *Parser) checkPrev(ty TokenType) bool { return p.prev.Type == ty }

func (p *Parser) advance() {
	p.prev = p.curr
	for {
		if p.pos < len(p.tokens) {
			p.curr = p.tokens[p.pos]
			p.pos++
		} else {
			p.curr = p.tokens[len(p.tokens)-1] // stable trailing EOF
		}
		if p.curr.Type != TErr {
			return
		}
		p.ErrorAtCurr(p.curr.String())
	}
}

func (p *Parser) match(ty TokenType) (matched bool) {
	if !p.check(ty) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(ty TokenType, errorMsg string) *Token {
	if !p.check(ty) {
		p.ErrorAtCurr(errorMsg)
		return nil
	}
	p.advance()
	return utils.Box(p.prev)
}

/* Emitting */

func (p *Parser) emitBytes(bs ...byte) {
	for _, b := range bs {
		p.chunk.Write(b, p.prev.Line)
	}
}

func (p *Parser) emitConstant(op OpCode, v Value) { p.emitBytes(byte(op), p.makeConstant(v)) }

func (p *Parser) makeConstant(v Value) byte {
	idx := p.chunk.AddConstant(v)
	if idx > math.MaxUint8 {
		p.Error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

// identConst interns name's lexeme and stores it as a String constant,
// returning its pool index. Every reference to the same identifier within
// one chunk shares the interned string, so repeated variable references
// don't allocate a fresh string each time.
func (p *Parser) identConst(name *Token) byte {
	return p.makeConstant(NewString(intern.String(name.String())))
}

/* Error handling */

// sync discards tokens until it finds a declaration boundary: a ';' it just
// consumed, or a token that starts a new var declaration. There's no
// control-flow keyword to synchronize on since this grammar has none.
func (p *Parser) sync() {
	p.panicMode = false
	for !p.check(TEOF) && !p.checkPrev(TSemi) {
		switch p.curr.Type {
		case TInt8, TInt16, TInt32, TInt64, TTyFloat, TTyDouble, TTyChar, TTyString, TTyBool, TVar:
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) ErrorAt(tk Token, reason string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	err := &e.CompilationError{Line: tk.Line, At: tokenAtText(tk), Reason: reason}
	logrus.Debugln(err)
	p.errors = multierror.Append(p.errors, err)
}

func (p *Parser) Error(reason string)       { p.ErrorAt(p.prev, reason) }
func (p *Parser) ErrorAtCurr(reason string) { p.ErrorAt(p.curr, reason) }
func (p *Parser) HadError() bool            { return p.errors != nil }

func (p *Parser) WarningAt(tk Token, reason string) {
	w := &e.CompilationWarning{Line: tk.Line, At: tokenAtText(tk), Reason: reason}
	logrus.Warnln(w)
	p.warnings = multierror.Append(p.warnings, w)
}

func (p *Parser) Warning(reason string) { p.WarningAt(p.prev, reason) }

func tokenAtText(tk Token) string {
	switch tk.Type {
	case TEOF:
		return "end"
	case TErr:
		return ""
	default:
		return tk.String()
	}
}

package vm_test

import (
	"testing"

	"github.com/iliad-lang/iliad/vm"
	"github.com/stretchr/testify/assert"
)

func scanAll(src string) (types []vm.TokenType) {
	sc := vm.NewScanner(src)
	for {
		tok := sc.ScanToken()
		types = append(types, tok.Type)
		if tok.Type == vm.TEOF {
			return
		}
	}
}

func TestScannerPunctuationAndOperators(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		[]vm.TokenType{vm.TInt, vm.TPlus, vm.TInt, vm.TBangEqual, vm.TInt, vm.TEOF},
		scanAll("1 + 2 != 3"),
	)
}

func TestScannerAndOrRequireBothChars(t *testing.T) {
	t.Parallel()
	sc := vm.NewScanner("&&")
	assert.Equal(t, vm.TAnd, sc.ScanToken().Type)

	sc = vm.NewScanner("&")
	tok := sc.ScanToken()
	assert.Equal(t, vm.TErr, tok.Type)
	assert.Equal(t, "Expected another '&'", tok.String())
}

func TestScannerTypeKeywords(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		[]vm.TokenType{vm.TInt8, vm.TIdent, vm.TSemi, vm.TEOF},
		scanAll("int8 a;"),
	)
}

func TestScannerFloatVsInt(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []vm.TokenType{vm.TInt, vm.TEOF}, scanAll("42"))
	assert.Equal(t, []vm.TokenType{vm.TFloat, vm.TEOF}, scanAll("4.2"))
	// A trailing dot is consumed unconditionally once digits have been seen.
	assert.Equal(t, []vm.TokenType{vm.TFloat, vm.TEOF}, scanAll("4."))
}

func TestScannerEmptyCharLiteralRejected(t *testing.T) {
	t.Parallel()
	sc := vm.NewScanner("''")
	tok := sc.ScanToken()
	assert.Equal(t, vm.TErr, tok.Type)
}

func TestScannerCharEscape(t *testing.T) {
	t.Parallel()
	sc := vm.NewScanner(`'\n'`)
	tok := sc.ScanToken()
	assert.Equal(t, vm.TChar, tok.Type)
}

func TestScannerUnterminatedString(t *testing.T) {
	t.Parallel()
	sc := vm.NewScanner(`"unterminated`)
	tok := sc.ScanToken()
	assert.Equal(t, vm.TErr, tok.Type)
}

func TestScannerSkipsLineComments(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		[]vm.TokenType{vm.TInt, vm.TEOF},
		scanAll("1 // this is a comment\n"),
	)
}

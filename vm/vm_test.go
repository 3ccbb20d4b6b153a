package vm_test

import (
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/iliad-lang/iliad/vm"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func init() { logrus.SetLevel(logrus.DebugLevel) }

// TestPrecedence exercises the end-to-end scenario 1 from the precedence
// and associativity invariants: `1 + 2 * 3` must bind as `1 + (2 * 3)`.
func TestPrecedence(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	assert.NoError(t, vm_.Interpret("1 + 2 * 3;"))
	top, ok := vm_.Top()
	assert.True(t, ok)
	assert.Equal(t, vm.ValInt32, top.Type)
	assert.Equal(t, int64(7), top.AsInt64())
}

func TestPrecedenceTable(t *testing.T) {
	t.Parallel()
	cases := []struct {
		src  string
		want bool
	}{
		{"(1 + 2) * 3 == 9;", true},
		{"-2 * 3 == -6;", true},
		{"!true == false;", true},
		{"2 < 3 == true;", true},
		{"2 == 2.0;", true},
	}
	for _, c := range cases {
		vm_ := vm.NewVM()
		assert.NoError(t, vm_.Interpret(c.src))
		top, ok := vm_.Top()
		assert.True(t, ok)
		assert.Equal(t, vm.ValBool, top.Type)
		assert.Equal(t, c.want, top.AsBool(), "src: %s", c.src)
	}
}

// TestVarDeclarationAndUse is end-to-end scenario 2: after running
// `int32 x = 5; x + 1;`, globals contain x = Int32(5) and the top of the
// stack before Return holds Int32(6).
func TestVarDeclarationAndUse(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	assert.NoError(t, vm_.Interpret("int32 x = 5; x + 1;"))

	x, ok := vm_.Global("x")
	assert.True(t, ok)
	assert.Equal(t, vm.ValInt32, x.Type)
	assert.Equal(t, int64(5), x.AsInt64())

	top, ok := vm_.Top()
	assert.True(t, ok)
	assert.Equal(t, int64(6), top.AsInt64())
}

// TestVarRequiresInitializer is end-to-end scenario 3.
func TestVarRequiresInitializer(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	err := vm_.Interpret("var y;")
	assert.ErrorContains(t, err, "Variables declared with 'var' keyword must be assigned at declaration.")
}

// TestAssignTypeMismatch is end-to-end scenario 4.
func TestAssignTypeMismatch(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	err := vm_.Interpret("bool b = 1;")
	assert.ErrorContains(t, err, "Cannot assign int32 to bool.")
}

// TestStringConcat is end-to-end scenario 5.
func TestStringConcat(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	assert.NoError(t, vm_.Interpret(`"hi" + "!";`))
	top, ok := vm_.Top()
	assert.True(t, ok)
	assert.Equal(t, vm.ValString, top.Type)
	assert.Equal(t, "hi!", top.AsString())
}

func TestStringPlusNonStringFailsAtCompileTime(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	err := vm_.Interpret(`"a" + 1;`)
	assert.Error(t, err)
}

// TestNarrowingAssignment is end-to-end scenario 6: the warning is raised
// at compile time and the runtime value is the low byte of 300.
func TestNarrowingAssignment(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	assert.NoError(t, vm_.Interpret("int8 a = 300;"))

	a, ok := vm_.Global("a")
	assert.True(t, ok)
	assert.Equal(t, vm.ValInt8, a.Type)
	assert.Equal(t, int64(44), a.AsInt64())
}

func TestVariableLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("uninitialized read is a runtime error", func(t *testing.T) {
		vm_ := vm.NewVM()
		// declaredVariables (the compile-time type table) doesn't survive
		// across Interpret calls, only the VM's globals do — so the
		// declaration and the read need to share one compile unit here.
		err := vm_.Interpret("int32 x; x;")
		assert.ErrorContains(t, err, "uninitialized")
	})

	t.Run("redeclaring a global across Interpret calls is a runtime error", func(t *testing.T) {
		vm_ := vm.NewVM()
		assert.NoError(t, vm_.Interpret("int32 x = 1;"))
		err := vm_.Interpret("int32 x = 2;")
		assert.ErrorContains(t, err, "already declared")
	})

	t.Run("redeclaring within one compile unit is a compile error", func(t *testing.T) {
		vm_ := vm.NewVM()
		err := vm_.Interpret("int32 x = 1; int32 x = 2;")
		assert.ErrorContains(t, err, "already declared")
		_, ok := vm_.Global("x")
		assert.False(t, ok, "a failed compile must not have run far enough to touch globals")
	})
}

// TestGlobalsPersistAcrossInterpretCalls: the VM's globals table is the one
// piece of state a long-lived REPL session carries between Interpret calls
// (declaredVariables, the compiler's own name/type table, is not — it's
// rebuilt fresh every call, which is exactly why the same name can't be
// re-declared within one call but can across two without the compiler
// noticing until the VM does).
func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	assert.NoError(t, vm_.Interpret("int32 x = 2;"))

	x, ok := vm_.Global("x")
	assert.True(t, ok)
	assert.Equal(t, int64(2), x.AsInt64())

	err := vm_.Interpret("int32 x = 99;")
	assert.ErrorContains(t, err, "already declared")

	x, ok = vm_.Global("x")
	assert.True(t, ok)
	assert.Equal(t, int64(2), x.AsInt64(), "a rejected redeclaration must not clobber the existing global")
}

func TestDivisionByZero(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	err := vm_.Interpret("1 / 0;")
	assert.ErrorContains(t, err, "Division by zero.")
}

func TestFloatDivisionByZeroIsHostDefined(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	assert.NoError(t, vm_.Interpret("1.0 / 0.0;"))
	top, ok := vm_.Top()
	assert.True(t, ok)
	assert.True(t, top.AsFloat64() > 0) // +Inf
}

func TestMultilineExpressionMissingOperandFails(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	err := vm_.Interpret(heredoc.Doc(`
		int32 x = 1;
		x +
	`))
	assert.Error(t, err) // unterminated: missing operand and ';'
}

func TestAndOrAreReservedNotOperators(t *testing.T) {
	t.Parallel()
	vm_ := vm.NewVM()
	err := vm_.Interpret("true && false;")
	assert.Error(t, err)
}

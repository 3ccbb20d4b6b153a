package debug

import "fmt"

// DEBUG gates assertions and the verbose trace logging in vm.VM.run and
// vm.Parser.endCompiler. Flip to true when chasing a miscompiled chunk.
const DEBUG = false

func Assertf(b bool, format string, a ...any) {
	if DEBUG && !b {
		panic(fmt.Sprintf(format, a...))
	}
}

func AssertEq[T comparable](expected, got T) { Assertf(expected == got, "%v != %v", expected, got) }

// Package disasm drives the bytecode disassembler. It lives outside vm
// because vm already imports debug for its assertions, and debug can't
// import vm back without a cycle — so the disassembly driver, which needs
// both a Chunk to read and (optionally) debug's gating, gets its own
// package instead.
package disasm

import "github.com/iliad-lang/iliad/vm"

// Instruction renders the single instruction at offset, returning the
// offset of the one that follows it.
func Instruction(c *vm.Chunk, offset int) (string, int) { return c.DisassembleInst(offset) }

// Chunk renders every instruction in c, prefixed by name.
func Chunk(c *vm.Chunk, name string) string { return c.Disassemble(name) }

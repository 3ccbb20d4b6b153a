package vm

import (
	"io"

	"github.com/chzyer/readline"
	"github.com/iliad-lang/iliad/debug"
	e "github.com/iliad-lang/iliad/errors"
	"github.com/sirupsen/logrus"
)

// VM executes one Chunk at a time against a growable operand stack and a
// globals table that outlives any single Interpret call — re-running
// Interpret on the same VM (as the REPL does) sees the same globals.
type VM struct {
	chunk *Chunk
	ip    int
	stack []Value

	globals map[string]Value
}

func NewVM() *VM { return &VM{globals: map[string]Value{}} }

func (vm *VM) push(val Value) { vm.stack = append(vm.stack, val) }

func (vm *VM) pop() (last Value) {
	n := len(vm.stack)
	vm.stack, last = vm.stack[:n-1], vm.stack[n-1]
	return
}

// REPL reads lines with history/editing via readline and interprets each
// one against this VM's persistent globals, printing compile/runtime
// errors and compile warnings without aborting the session.
func (vm *VM) REPL() error {
	rl, err := readline.New("IL> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if err := vm.Interpret(line); err != nil {
			logrus.Error(err)
		}
	}
}

// Interpret compiles src against a fresh Parser (so declaredVariables and
// any leftover panic-mode state never leak between calls) and, if
// compilation succeeds, runs the resulting Chunk against this VM's
// globals. Compile warnings are logged regardless of whether compilation
// or execution ultimately fails.
func (vm *VM) Interpret(src string) error {
	p := NewParser()
	chunk, err := p.Compile(src)
	if w := p.Warnings(); w != nil {
		logrus.Warn(w)
	}
	if err != nil {
		return err
	}

	vm.chunk = chunk
	vm.ip = 0
	vm.stack = vm.stack[:0]
	return vm.run()
}

func (vm *VM) run() error {
	if vm.chunk == nil {
		return &e.RuntimeError{Line: -1, Reason: "chunk uninitialized"}
	}

	readByte := func() (res byte) {
		res = vm.chunk.code[vm.ip]
		vm.ip++
		return
	}

	for {
		opOffset := vm.ip
		if debug.DEBUG {
			logrus.Debugln(vm.stackTrace())
			instDump, _ := vm.chunk.DisassembleInst(opOffset)
			logrus.Debugln(instDump)
		}

		switch inst := OpCode(readByte()); inst {
		case OpReturn:
			return nil

		case OpIntLiteral, OpFloatLiteral, OpTrueLiteral, OpFalseLiteral, OpCharLiteral, OpStringLiteral:
			vm.push(vm.chunk.consts[readByte()])

		case OpNull:
			vm.push(Null())

		case OpEqual:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(NewBool(Eq(lhs, rhs)))
		case OpNotEqual:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(NewBool(!Eq(lhs, rhs)))
		case OpGreater:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(NewBool(Cmp(lhs, rhs) > 0))
		case OpGreaterEqual:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(NewBool(Cmp(lhs, rhs) >= 0))
		case OpLess:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(NewBool(Cmp(lhs, rhs) < 0))
		case OpLessEqual:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(NewBool(Cmp(lhs, rhs) <= 0))

		case OpAdd:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(Arith(OpArithAdd, lhs, rhs))
		case OpSubtract:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(Arith(OpArithSub, lhs, rhs))
		case OpMultiply:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(Arith(OpArithMul, lhs, rhs))
		case OpDivide:
			rhs, lhs := vm.pop(), vm.pop()
			if rhs.Type.IsIntegral() && rhs.AsInt64() == 0 {
				return vm.runtimeError(opOffset, "Division by zero.")
			}
			vm.push(Arith(OpArithDiv, lhs, rhs))
		case OpConcatenate:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(Concat(lhs, rhs))

		case OpNot:
			vm.push(NewBool(!Truthy(vm.pop())))
		case OpNegate:
			vm.push(Negate(vm.pop()))

		case OpCast:
			target := ValueType(readByte())
			vm.push(Narrow(target, vm.pop()))

		case OpVarDeclar:
			tyTag := readByte()
			name := vm.chunk.consts[readByte()].AsString()
			if _, exists := vm.globals[name]; exists {
				return vm.runtimeError(opOffset, "Variable '"+name+"' already declared.")
			}
			vm.globals[name] = Uninit(ValueType(tyTag))

		case OpVarDeclarAndAssign:
			name := vm.chunk.consts[readByte()].AsString()
			val := vm.pop()
			if _, exists := vm.globals[name]; exists {
				return vm.runtimeError(opOffset, "Variable '"+name+"' already declared.")
			}
			vm.globals[name] = val
			vm.push(val)

		case OpVarAssign:
			name := vm.chunk.consts[readByte()].AsString()
			val := vm.pop()
			slot, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError(opOffset, "Undefined variable '"+name+"'.")
			}
			val.Type = slot.Type // the tag is the slot's, never the incoming value's
			vm.globals[name] = val
			vm.push(val)

		case OpVar:
			name := vm.chunk.consts[readByte()].AsString()
			slot, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError(opOffset, "Undefined variable '"+name+"'.")
			}
			if !slot.Initialized {
				return vm.runtimeError(opOffset, "Identifier '"+name+"' uninitialized.")
			}
			vm.push(slot)

		default:
			return vm.runtimeError(opOffset, "Unknown instruction.")
		}
	}
}

// Top returns the value left on the operand stack when the last Interpret
// call's Chunk hit Return, without popping it.
func (vm *VM) Top() (Value, bool) {
	if len(vm.stack) == 0 {
		return Value{}, false
	}
	return vm.stack[len(vm.stack)-1], true
}

// Global looks up a global by name, for tests and tooling; it never
// mutates VM state the way a Var/VarAssign opcode would.
func (vm *VM) Global(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

func (vm *VM) runtimeError(offset int, reason string) error {
	return &e.RuntimeError{Line: vm.chunk.LineAt(offset), Reason: reason}
}

func (vm *VM) stackTrace() string {
	res := "          "
	for _, slot := range vm.stack {
		res += "[ " + slot.String() + " ]"
	}
	return res
}

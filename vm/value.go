package vm

import (
	"fmt"
	"math"

	"github.com/iliad-lang/iliad/debug"
	"github.com/iliad-lang/iliad/utils"
)

type ValueType int8

const (
	ValInvalid ValueType = iota
	ValNull
	ValBool
	ValInt8
	ValInt16
	ValInt32
	ValInt64
	ValFloat
	ValDouble
	ValChar
	ValString
)

// String renders a ValueType the way it appears in source: the keyword a
// declaration would spell it with. Used verbatim in the compiler's
// diagnostic text ("Cannot assign int32 to bool.").
func (t ValueType) String() string {
	switch t {
	case ValNull:
		return "null"
	case ValBool:
		return "bool"
	case ValInt8:
		return "int8"
	case ValInt16:
		return "int16"
	case ValInt32:
		return "int32"
	case ValInt64:
		return "int64"
	case ValFloat:
		return "float"
	case ValDouble:
		return "double"
	case ValChar:
		return "char"
	case ValString:
		return "string"
	default:
		return "invalid"
	}
}

// IsNumber, IsIntegral and IsDecimal mirror the ordinal range checks the
// original implementation did directly on the enum (Char..Double is
// numeric, Char..Long is integral, Float..Double is decimal); here the
// ordinals run Int8..Double instead.
func (t ValueType) IsNumber() bool   { return t >= ValInt8 && t <= ValDouble }
func (t ValueType) IsIntegral() bool { return t >= ValInt8 && t <= ValInt64 }
func (t ValueType) IsDecimal() bool  { return t == ValFloat || t == ValDouble }
func (t ValueType) IsValid() bool    { return t != ValInvalid }

// smallestTypeNeeded is the coercion rule shared by the compiler's static
// checker and the VM's runtime arithmetic: the wider of two numeric
// ValueTypes, by ordinal. Both a and b must be numeric.
func smallestTypeNeeded(a, b ValueType) ValueType {
	if a > b {
		return a
	}
	return b
}

// payload is the per-variant native representation backing a Value. Unlike
// the original's byte-vector-plus-tag encoding, arithmetic and comparisons
// operate on these native Go values; ToBytes/FromBytes are the only place
// the big-endian byte encoding spec.md requires gets materialized.
type payload interface {
	valueType() ValueType
	String() string
}

type pBool bool
type pInt8 int8
type pInt16 int16
type pInt32 int32
type pInt64 int64
type pFloat float32
type pDouble float64
type pChar byte
type pString string

func (pBool) valueType() ValueType   { return ValBool }
func (pInt8) valueType() ValueType   { return ValInt8 }
func (pInt16) valueType() ValueType  { return ValInt16 }
func (pInt32) valueType() ValueType  { return ValInt32 }
func (pInt64) valueType() ValueType  { return ValInt64 }
func (pFloat) valueType() ValueType  { return ValFloat }
func (pDouble) valueType() ValueType { return ValDouble }
func (pChar) valueType() ValueType   { return ValChar }
func (pString) valueType() ValueType { return ValString }

func (v pBool) String() string   { return fmt.Sprintf("%t", bool(v)) }
func (v pInt8) String() string   { return fmt.Sprintf("%d", int8(v)) }
func (v pInt16) String() string  { return fmt.Sprintf("%d", int16(v)) }
func (v pInt32) String() string  { return fmt.Sprintf("%d", int32(v)) }
func (v pInt64) String() string  { return fmt.Sprintf("%d", int64(v)) }
func (v pFloat) String() string  { return fmt.Sprintf("%g", float32(v)) }
func (v pDouble) String() string { return fmt.Sprintf("%g", float64(v)) }
func (v pChar) String() string   { return fmt.Sprintf("%q", rune(v)) }
func (v pString) String() string { return fmt.Sprintf("%q", string(v)) }

// Value is a tagged scalar. Type is immutable once constructed; the only
// mutation a slot ever sees is replacing payload (and flipping Initialized)
// on assignment, never changing Type. An uninitialized typed slot (a
// declared-but-unassigned variable) carries payload == nil.
type Value struct {
	Type        ValueType
	payload     payload
	Initialized bool
}

func Invalid() Value { return Value{Type: ValInvalid} }
func Null() Value    { return Value{Type: ValNull, Initialized: true} }

// Uninit constructs the uninitialized slot VarDeclar installs for a
// variable declared with an explicit type but no initializer.
func Uninit(t ValueType) Value { return Value{Type: t} }

func NewBool(b bool) Value      { return Value{Type: ValBool, payload: pBool(b), Initialized: true} }
func NewInt8(i int8) Value      { return Value{Type: ValInt8, payload: pInt8(i), Initialized: true} }
func NewInt16(i int16) Value    { return Value{Type: ValInt16, payload: pInt16(i), Initialized: true} }
func NewInt32(i int32) Value    { return Value{Type: ValInt32, payload: pInt32(i), Initialized: true} }
func NewInt64(i int64) Value    { return Value{Type: ValInt64, payload: pInt64(i), Initialized: true} }
func NewFloat(f float32) Value  { return Value{Type: ValFloat, payload: pFloat(f), Initialized: true} }
func NewDouble(f float64) Value { return Value{Type: ValDouble, payload: pDouble(f), Initialized: true} }
func NewChar(c byte) Value      { return Value{Type: ValChar, payload: pChar(c), Initialized: true} }
func NewString(s string) Value  { return Value{Type: ValString, payload: pString(s), Initialized: true} }

func (v Value) String() string {
	switch {
	case v.Type == ValInvalid:
		return "<invalid>"
	case v.Type == ValNull:
		return "null"
	case !v.Initialized:
		return "<uninitialized>"
	default:
		return v.payload.String()
	}
}

// AsBool, AsInt64 and AsFloat64 widen an initialized numeric payload for
// arithmetic and comparison. Callers must check Type first; a mismatch here
// means the static checker let something through it shouldn't have.
func (v Value) AsBool() bool {
	b, ok := v.payload.(pBool)
	debug.Assertf(ok, "value %s (tag %v) is not a bool", v, v.Type)
	return bool(b)
}

func (v Value) AsInt64() int64 {
	switch p := v.payload.(type) {
	case pInt8:
		return int64(p)
	case pInt16:
		return int64(p)
	case pInt32:
		return int64(p)
	case pInt64:
		return int64(p)
	default:
		debug.Assertf(false, "value %s (tag %v) is not integral", v, v.Type)
		return 0
	}
}

func (v Value) AsFloat64() float64 {
	switch p := v.payload.(type) {
	case pInt8:
		return float64(p)
	case pInt16:
		return float64(p)
	case pInt32:
		return float64(p)
	case pInt64:
		return float64(p)
	case pFloat:
		return float64(p)
	case pDouble:
		return float64(p)
	default:
		debug.Assertf(false, "value %s (tag %v) is not numeric", v, v.Type)
		return 0
	}
}

func (v Value) AsChar() byte {
	c, ok := v.payload.(pChar)
	debug.Assertf(ok, "value %s (tag %v) is not a char", v, v.Type)
	return byte(c)
}

func (v Value) AsString() string {
	s, ok := v.payload.(pString)
	debug.Assertf(ok, "value %s (tag %v) is not a string", v, v.Type)
	return string(s)
}

// Truthy coerces a Value to bool the way a condition or `!` operand would:
// Null is falsy, Bool follows its own value, everything else is truthy.
func Truthy(v Value) bool {
	switch v.Type {
	case ValBool:
		return v.AsBool()
	case ValNull:
		return false
	default:
		return true
	}
}

// Eq implements value equality, including the documented special cases:
// Invalid never equals anything (not even another Invalid), and equality
// between numeric types of different widths compares by value.
func Eq(a, b Value) bool {
	if a.Type == ValInvalid || b.Type == ValInvalid {
		return false
	}
	switch {
	case a.Type.IsNumber() && b.Type.IsNumber():
		if a.Type.IsDecimal() || b.Type.IsDecimal() {
			return a.AsFloat64() == b.AsFloat64()
		}
		return a.AsInt64() == b.AsInt64()
	case a.Type == ValBool && b.Type == ValBool:
		return a.AsBool() == b.AsBool()
	case a.Type == ValChar && b.Type == ValChar:
		return a.AsChar() == b.AsChar()
	case a.Type == ValString && b.Type == ValString:
		return a.AsString() == b.AsString()
	case a.Type == ValNull && b.Type == ValNull:
		return true
	default:
		return false
	}
}

// Cmp compares two numeric Values, returning -1/0/1. Both must be numeric;
// callers (the compiler's static checker, the VM's comparison opcodes)
// enforce that before calling Cmp.
func Cmp(a, b Value) int {
	if a.Type.IsDecimal() || b.Type.IsDecimal() {
		af, bf := a.AsFloat64(), b.AsFloat64()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	ai, bi := a.AsInt64(), b.AsInt64()
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

type ArithOp int

const (
	OpArithAdd ArithOp = iota
	OpArithSub
	OpArithMul
	OpArithDiv
)

// Arith implements the four binary arithmetic operators for numeric
// operands. The result's width is smallestTypeNeeded(a.Type, b.Type), per
// both the compiler's static rule and this runtime's dynamic one.
func Arith(op ArithOp, a, b Value) Value {
	rt := smallestTypeNeeded(a.Type, b.Type)
	if rt.IsDecimal() {
		r := applyArithFloat(op, a.AsFloat64(), b.AsFloat64())
		if rt == ValFloat {
			return NewFloat(float32(r))
		}
		return NewDouble(r)
	}
	return narrowInt(rt, applyArithInt(op, a.AsInt64(), b.AsInt64()))
}

func applyArithFloat(op ArithOp, a, b float64) float64 {
	switch op {
	case OpArithAdd:
		return a + b
	case OpArithSub:
		return a - b
	case OpArithMul:
		return a * b
	case OpArithDiv:
		return a / b
	default:
		panic("unreachable arith op")
	}
}

func applyArithInt(op ArithOp, a, b int64) int64 {
	switch op {
	case OpArithAdd:
		return a + b
	case OpArithSub:
		return a - b
	case OpArithMul:
		return a * b
	case OpArithDiv:
		return a / b // host-defined on division by zero, per spec.md §4.3.
	default:
		panic("unreachable arith op")
	}
}

// narrowInt builds a Value of integral type t from a 64-bit result,
// truncating (with natural two's-complement wraparound) to t's width. This
// is also the path that realizes "Possible loss of data" narrowing
// assignments, e.g. int8(300) == 44.
func narrowInt(t ValueType, v int64) Value {
	switch t {
	case ValInt8:
		return NewInt8(int8(v))
	case ValInt16:
		return NewInt16(int16(v))
	case ValInt32:
		return NewInt32(int32(v))
	default:
		return NewInt64(v)
	}
}

// Narrow converts an already-evaluated Value to the target numeric type,
// used by OpCast whenever an assignment's numeric source type differs from
// its target (narrowing or widening).
func Narrow(t ValueType, v Value) Value {
	if t.IsDecimal() {
		if t == ValFloat {
			return NewFloat(float32(v.AsFloat64()))
		}
		return NewDouble(v.AsFloat64())
	}
	if v.Type.IsDecimal() {
		return narrowInt(t, int64(v.AsFloat64()))
	}
	return narrowInt(t, v.AsInt64())
}

// Concat implements string concatenation for the '+' operator when the LHS
// is a String; the compiler requires the RHS to also be String.
func Concat(a, b Value) Value { return NewString(a.AsString() + b.AsString()) }

// Negate implements unary '-': same width in, same width out.
func Negate(v Value) Value {
	if v.Type.IsDecimal() {
		if v.Type == ValFloat {
			return NewFloat(-float32(v.AsFloat64()))
		}
		return NewDouble(-v.AsFloat64())
	}
	return narrowInt(v.Type, -v.AsInt64())
}

// ToBytes renders a Value's payload as the big-endian byte sequence
// spec.md's constant-pool and wire format require. Byte 0 is always the
// most-significant byte.
func (v Value) ToBytes() []byte {
	switch v.Type {
	case ValInvalid, ValNull:
		return nil
	case ValBool:
		return []byte{utils.BoolToInt[byte](v.AsBool())}
	case ValInt8:
		return []byte{byte(int8(v.AsInt64()))}
	case ValInt16:
		return beUint(uint64(uint16(v.AsInt64())), 2)
	case ValInt32:
		return beUint(uint64(uint32(v.AsInt64())), 4)
	case ValInt64:
		return beUint(uint64(v.AsInt64()), 8)
	case ValFloat:
		bits := math.Float32bits(float32(v.AsFloat64()))
		return beUint(uint64(bits), 4)
	case ValDouble:
		bits := math.Float64bits(v.AsFloat64())
		return beUint(bits, 8)
	case ValChar:
		return []byte{v.AsChar()}
	case ValString:
		return []byte(v.AsString())
	default:
		return nil
	}
}

func beUint(v uint64, size int) []byte {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		shift := 8 * (size - i - 1)
		out[i] = byte(v >> shift)
	}
	return out
}

func beUintDecode(bs []byte) uint64 {
	var v uint64
	for _, b := range bs {
		v = v<<8 | uint64(b)
	}
	return v
}

// FromBytes decodes a big-endian payload back into a Value of type t. It is
// the inverse of ToBytes. The constant pool itself stores Values directly and
// does not go through either function.
func FromBytes(t ValueType, data []byte) Value {
	switch t {
	case ValBool:
		return NewBool(len(data) > 0 && utils.IntToBool(data[0]))
	case ValInt8:
		return NewInt8(int8(data[0]))
	case ValInt16:
		return NewInt16(int16(beUintDecode(data)))
	case ValInt32:
		return NewInt32(int32(beUintDecode(data)))
	case ValInt64:
		return NewInt64(int64(beUintDecode(data)))
	case ValFloat:
		return NewFloat(math.Float32frombits(uint32(beUintDecode(data))))
	case ValDouble:
		return NewDouble(math.Float64frombits(beUintDecode(data)))
	case ValChar:
		return NewChar(data[0])
	case ValString:
		return NewString(string(data))
	case ValNull:
		return Null()
	default:
		return Invalid()
	}
}

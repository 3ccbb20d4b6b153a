package vm_test

import (
	"testing"

	"github.com/iliad-lang/iliad/vm"
	"github.com/stretchr/testify/assert"
)

func TestValueEqualityAcrossWidths(t *testing.T) {
	t.Parallel()
	assert.True(t, vm.Eq(vm.NewInt32(2), vm.NewDouble(2.0)))
	assert.True(t, vm.Eq(vm.NewInt8(5), vm.NewInt64(5)))
	assert.False(t, vm.Eq(vm.NewInt32(2), vm.NewInt32(3)))
}

func TestInvalidNeverEqual(t *testing.T) {
	t.Parallel()
	assert.False(t, vm.Eq(vm.Invalid(), vm.Invalid()))
	assert.False(t, vm.Eq(vm.Invalid(), vm.Null()))
}

func TestArithPicksWiderResult(t *testing.T) {
	t.Parallel()
	r := vm.Arith(vm.OpArithAdd, vm.NewInt8(1), vm.NewInt32(2))
	assert.Equal(t, vm.ValInt32, r.Type)
	assert.Equal(t, int32(3), int32(r.AsInt64()))

	r = vm.Arith(vm.OpArithAdd, vm.NewInt32(1), vm.NewFloat(2.5))
	assert.Equal(t, vm.ValFloat, r.Type)
}

func TestNarrowIntTruncates(t *testing.T) {
	t.Parallel()
	r := vm.Narrow(vm.ValInt8, vm.NewInt32(300))
	assert.Equal(t, vm.ValInt8, r.Type)
	assert.Equal(t, int64(44), r.AsInt64())
}

func TestToBytesIsBigEndian(t *testing.T) {
	t.Parallel()
	bs := vm.NewInt32(1).ToBytes()
	assert.Equal(t, []byte{0, 0, 0, 1}, bs)
}

func TestBytesRoundTrip(t *testing.T) {
	t.Parallel()
	for _, v := range []vm.Value{
		vm.NewInt64(-1234567890),
		vm.NewDouble(3.25),
		vm.NewChar('z'),
		vm.NewString("hello"),
		vm.NewBool(true),
	} {
		got := vm.FromBytes(v.Type, v.ToBytes())
		assert.True(t, vm.Eq(v, got), "round trip of %s produced %s", v, got)
	}
}

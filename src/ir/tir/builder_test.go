package tir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tlc/src/ir/tir/types"
)

// helperFunction creates a module with one function of the given signature and a builder positioned in its entry
// block.
func helperFunction(t *testing.T, ret types.DataType, params ...types.DataType) (*Module, *Function, *Builder) {
	t.Helper()
	m := CreateModule("m", nil)
	if ret == nil {
		ret = m.Types().Void()
	}
	f := m.GetOrInsertFunction("f", m.Types().Function(ret, params))
	bd := NewBuilder(m)
	bd.SetInsertPoint(f.CreateBlock("entry"))
	return m, f, bd
}

func TestModuleString(t *testing.T) {
	m := CreateModule("m", nil)
	ctx := m.Types()
	f := m.GetOrInsertFunction("f", ctx.Function(ctx.Int32(), []types.DataType{ctx.Int32()}))
	f.Params()[0].SetName("x")
	bd := NewBuilder(m)
	bd.SetInsertPoint(f.CreateBlock("entry"))

	a := bd.CreateAlloca(ctx.Int32(), "x.addr")
	bd.CreateStore(a, f.Params()[0])
	l := bd.CreateLoad(a)
	s := bd.CreateBinOp(types.Add, l, m.ConstInt(ctx.Int32(), 1))
	bd.CreateRet(s)

	exp := "module m\n\n" +
		"define i32 @f(i32 %x) {\n" +
		"entry:\n" +
		"  %x.addr = alloca i32\n" +
		"  store i32 %x, ptr<i32, 0> %x.addr\n" +
		"  %4 = load i32, ptr<i32, 0> %x.addr\n" +
		"  %5 = add i32 %4, i32 1\n" +
		"  ret i32 %5\n" +
		"}\n"
	assert.Equal(t, exp, m.String())
	assert.True(t, f.Entry().IsTerminated())
}

func TestDeclarationString(t *testing.T) {
	m := CreateModule("", nil)
	ctx := m.Types()
	f := m.GetOrInsertFunction("g", ctx.Function(ctx.Void(), []types.DataType{ctx.Pointer(ctx.Float(32), 1)}))
	f.Params()[0].AddAttr(Attribute{Kind: Aligned, Value: 16})
	f.Params()[0].AddAttr(Attribute{Kind: NoAlias})
	f.Params()[0].AddAttr(Attribute{Kind: Aligned, Value: 32})
	assert.True(t, f.IsDeclaration())
	assert.Equal(t, "declare void @g(ptr<f32, 1> %arg0 aligned(32) noalias)", f.String())

	same := m.GetOrInsertFunction("g", ctx.Function(ctx.Void(), []types.DataType{ctx.Pointer(ctx.Float(32), 1)}))
	assert.Same(t, f, same)
	assert.Panics(t, func() { m.GetOrInsertFunction("g", ctx.Function(ctx.Int32(), nil)) })
}

func TestAllocaPlacement(t *testing.T) {
	m, f, bd := helperFunction(t, nil)
	ctx := m.Types()
	a := bd.CreateAlloca(ctx.Int32(), "i")
	bd.CreateStore(a, m.ConstInt(ctx.Int32(), 0))
	loop := f.CreateBlock("loop")
	bd.CreateBr(loop)
	bd.SetInsertPoint(loop)
	b := bd.CreateAlloca(ctx.Int32(), "i")
	bd.CreateRet(nil)

	entry := f.Entry().Instructions()
	require.Len(t, entry, 4)
	assert.Same(t, a, entry[0])
	assert.Same(t, b, entry[1])
	assert.Equal(t, "%i.1", b.Name())
	assert.Len(t, loop.Instructions(), 1)
}

func TestTerminatedBlock(t *testing.T) {
	_, _, bd := helperFunction(t, nil)
	bd.CreateRet(nil)
	assert.Panics(t, func() { bd.CreateBarrier() })
}

func TestOperandChecks(t *testing.T) {
	m, _, bd := helperFunction(t, nil)
	ctx := m.Types()
	i32 := m.ConstInt(ctx.Int32(), 1)
	f32 := m.ConstFloat(ctx.Float(32), 1)
	a := bd.CreateAlloca(ctx.Int32(), "a")

	assert.Panics(t, func() { bd.CreateBinOp(types.Add, i32, f32) })
	assert.Panics(t, func() { bd.CreateBinOp(types.FAdd, i32, i32) })
	assert.Panics(t, func() { bd.CreateStore(a, f32) })
	assert.Panics(t, func() { bd.CreateLoad(i32) })
	assert.Panics(t, func() { bd.CreateCondBr(i32, nil, nil) })
	assert.Panics(t, func() { bd.CreateRet(i32) })
	assert.Panics(t, func() { m.ConstInt(ctx.Float(32), 1) })
}

func TestTileInstructions(t *testing.T) {
	m, _, bd := helperFunction(t, nil)
	ctx := m.Types()
	f32 := ctx.Float(32)

	r := m.Range(0, 16)
	assert.Equal(t, "tile<16, i32> range(0, 16)", r.String())

	s := bd.CreateSplat(m.ConstFloat(f32, 0.5), []int{1, 16})
	assert.Equal(t, "tile<1x16, f32>", s.DataType().String())
	assert.Equal(t, types.SplatInstruction, s.Type())

	b := bd.CreateBroadcast(s, []int{8, 16})
	assert.Equal(t, []int{8, 16}, types.Shape(b.DataType()))
	assert.Panics(t, func() { bd.CreateBroadcast(b, []int{4, 16}) })

	tr := bd.CreateTrans(b, []int{1, 0})
	assert.Equal(t, []int{16, 8}, types.Shape(tr.DataType()))
	assert.Panics(t, func() { bd.CreateTrans(b, []int{0, 0}) })

	rs := bd.CreateReshape(tr, []int{128})
	assert.Equal(t, []int{128}, types.Shape(rs.DataType()))
	assert.Panics(t, func() { bd.CreateReshape(tr, []int{100}) })

	red := bd.CreateReduce(types.ReduceFMax, b, 1)
	assert.Equal(t, []int{8}, types.Shape(red.DataType()))
	scalar := bd.CreateReduce(types.ReduceFAdd, red, 0)
	assert.Same(t, f32, scalar.DataType())

	acc := bd.CreateSplat(m.ConstFloat(f32, 0), []int{8, 8})
	d := bd.CreateDot(b, tr, acc)
	assert.Same(t, acc.DataType(), d.DataType())
	assert.Panics(t, func() { bd.CreateDot(b, b, acc) })

	cmp := bd.CreateCmp(types.FCmpOLT, b, b)
	assert.Equal(t, "tile<8x16, i1>", cmp.DataType().String())
	sel := bd.CreateSelect(cmp, b, b)
	assert.Same(t, b.DataType(), sel.DataType())
}

func TestMemoryInstructions(t *testing.T) {
	m, _, bd := helperFunction(t, nil)
	ctx := m.Types()
	f32 := ctx.Float(32)
	g := m.GetOrInsertFunction("k", ctx.Function(ctx.Void(), []types.DataType{ctx.Pointer(f32, 1)}))
	bd.SetInsertPoint(g.CreateBlock("entry"))

	ptrs := bd.CreateGEP(g.Params()[0], m.Range(0, 16))
	assert.Equal(t, "tile<16, ptr<f32, 1>>", ptrs.DataType().String())

	mask := bd.CreateCmp(types.ICmpSLT, m.Range(0, 16), bd.CreateSplat(m.ConstInt(ctx.Int32(), 10), []int{16}))
	ld := bd.CreateMaskedLoad(ptrs, mask, m.Undef(ctx.Tile(f32, []int{16})))
	assert.Equal(t, types.MaskedLoadInstruction, ld.Type())
	assert.Equal(t, "tile<16, f32>", ld.DataType().String())

	st := bd.CreateMaskedStore(ptrs, ld, mask)
	assert.Equal(t, []Value{ld, ptrs, mask}, st.Operands())
	assert.Panics(t, func() { bd.CreateMaskedStore(ptrs, mask, mask) })

	gather := bd.CreateLoad(ptrs)
	assert.Same(t, ld.DataType(), gather.DataType())

	pid := bd.CreateProgramId(0)
	pid.SetMetadata(MetadataMultipleOf, 8)
	assert.Equal(t, "%8 = get_program_id 0, !multiple_of 8", pid.String())
	assert.Panics(t, func() { bd.CreateProgramId(3) })
}

func TestStructAndArrayGEP(t *testing.T) {
	m, _, bd := helperFunction(t, nil)
	ctx := m.Types()
	st := ctx.Struct([]types.DataType{ctx.Int32(), ctx.Float(64)}, []int{0, 8}, true)
	a := bd.CreateAlloca(st, "s")
	fld := bd.CreateStructGEP(a, 1)
	assert.Equal(t, "ptr<f64, 0>", fld.DataType().String())
	assert.Equal(t, "%2 = getelementptr ptr<<{i32, f64}>, 0> %s, 0, field 1", fld.String())
	assert.Panics(t, func() { bd.CreateStructGEP(a, 2) })

	arr := bd.CreateAlloca(ctx.Array(ctx.Int32(), 4), "arr")
	el := bd.CreateArrayGEP(arr, m.ConstInt(ctx.Int32(), 2))
	assert.Equal(t, "ptr<i32, 0>", el.DataType().String())
}

func TestCall(t *testing.T) {
	m, _, bd := helperFunction(t, nil)
	ctx := m.Types()
	callee := m.GetOrInsertFunction("h", ctx.Function(ctx.Int32(), []types.DataType{ctx.Int32()}))
	c := bd.CreateCall(callee, []Value{m.ConstInt(ctx.Int32(), 7)})
	assert.Equal(t, "%1 = call i32 @h(i32 7)", c.String())
	assert.Panics(t, func() { bd.CreateCall(callee, nil) })
	assert.Panics(t, func() { bd.CreateCall(callee, []Value{m.ConstFloat(ctx.Float(32), 1)}) })
}

func TestConstantNames(t *testing.T) {
	m := CreateModule("m", nil)
	ctx := m.Types()
	assert.Equal(t, "true", m.ConstBool(true).Name())
	assert.Equal(t, "-1", m.AllOnes(ctx.Int32()).Name())
	assert.Equal(t, "2.0", m.ConstFloat(ctx.Float(32), 2).Name())
	assert.Equal(t, "0.25", m.ConstFloat(ctx.Float(32), 0.25).Name())
	assert.True(t, m.NullValue(ctx.Float(64)).IsZero())
	assert.Panics(t, func() { m.Range(4, 4) })
}

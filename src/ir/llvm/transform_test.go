package llvm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tlc/src/ast"
	"tlc/src/codegen"
	"tlc/src/ir/tir"
	"tlc/src/ir/tir/types"
)

// genDoc lowers the translation unit document name of the code generator's test data to tile IR.
func genDoc(t *testing.T, name string) *tir.Module {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "codegen", "testdata", "docs", name+".yaml"))
	require.NoError(t, err)
	tu, err := ast.DecodeBytes(name, data)
	require.NoError(t, err)
	m, err := codegen.Gen(tu, nil)
	require.NoError(t, err)
	return m
}

func TestIndexHelpers(t *testing.T) {
	shape := []int{2, 3, 4}
	for i1 := 0; i1 < 24; i1++ {
		assert.Equal(t, i1, flatten(unflatten(i1, shape), shape))
	}
	assert.Equal(t, []int{1, 2, 3}, unflatten(23, shape))

	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, broadcastMask([]int{1, 3}, []int{2, 3}))
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, broadcastMask([]int{2, 1}, []int{2, 3}))
	assert.Equal(t, []int{0, 3, 1, 4, 2, 5}, transMask([]int{2, 3}, []int{1, 0}))
	assert.Equal(t, []int{0, 1, 2, 3}, transMask([]int{4}, []int{0}))
}

func TestBare(t *testing.T) {
	assert.Equal(t, "x.addr", bare("%x.addr"))
	assert.Equal(t, "", bare("%12"))
	assert.Equal(t, "f", bare("@f"))
	assert.Equal(t, "", bare(""))
}

func TestScalarFunction(t *testing.T) {
	ir, err := GenLLVM(genDoc(t, "scalar"), nil)
	require.NoError(t, err)
	assert.Contains(t, ir, "define i32 @f(i32 %x)")
	assert.Contains(t, ir, "%x.addr = alloca i32")
	assert.Contains(t, ir, "ret i32")
}

func TestMaskedKernel(t *testing.T) {
	ir, err := GenLLVM(genDoc(t, "scale"), nil)
	require.NoError(t, err)
	assert.Contains(t, ir, "define void @scale(float addrspace(1)*")
	assert.Contains(t, ir, "align 16")
	assert.Contains(t, ir, "@llvm.masked.gather.v16f32.v16p1f32")
	assert.Contains(t, ir, "@llvm.masked.scatter.v16f32.v16p1f32")
	assert.Contains(t, ir, "shufflevector")
	assert.Contains(t, ir, "getelementptr float, float addrspace(1)*")
}

func TestScalarMaskedAccess(t *testing.T) {
	m := tir.CreateModule("scalar_mask", nil)
	ctx := m.Types()
	f32 := ctx.Float(32)
	f := m.GetOrInsertFunction("pick", ctx.Function(f32, []types.DataType{ctx.Pointer(f32, 1), ctx.Int1()}))
	f.Params()[0].SetName("p")
	f.Params()[1].SetName("c")
	bd := tir.NewBuilder(m)
	bd.SetInsertPoint(f.CreateBlock("entry"))

	v := bd.CreateMaskedLoad(f.Params()[0], f.Params()[1], m.ConstFloat(f32, 0))
	bd.CreateMaskedStore(f.Params()[0], v, f.Params()[1])
	bd.CreateRet(v)

	ir, err := GenLLVM(m, nil)
	require.NoError(t, err)
	assert.Contains(t, ir, "@llvm.masked.gather.v1f32.v1p1f32")
	assert.Contains(t, ir, "@llvm.masked.scatter.v1f32.v1p1f32")
	assert.Contains(t, ir, "extractelement <1 x float>")
	assert.Contains(t, ir, "insertelement <1 x float addrspace(1)*> undef")
}

func TestTileOperations(t *testing.T) {
	m := tir.CreateModule("tiles", nil)
	ctx := m.Types()
	f32, i32 := ctx.Float(32), ctx.Int32()
	ptr := ctx.Pointer(f32, 1)
	f := m.GetOrInsertFunction("k", ctx.Function(f32, []types.DataType{ptr}))
	f.Params()[0].SetName("P")
	f.Params()[0].AddAttr(tir.Attribute{Kind: tir.NoAlias})
	f.Params()[0].AddAttr(tir.Attribute{Kind: tir.MultipleOf, Value: 16})
	bd := tir.NewBuilder(m)
	bd.SetInsertPoint(f.CreateBlock("entry"))

	pid := bd.CreateProgramId(0)
	pid.SetMetadata(tir.MetadataMultipleOf, 4)
	bd.CreateBarrier()
	row := bd.CreateReshape(bd.CreateCast(types.SIToFP, m.Range(0, 4), ctx.Tile(f32, []int{4})), []int{1, 4})
	mat := bd.CreateBroadcast(row, []int{2, 4})
	tr := bd.CreateTrans(mat, []int{1, 0})
	acc := bd.CreateSplat(m.ConstFloat(f32, 0), []int{2, 2})
	dot := bd.CreateDot(mat, tr, acc)
	red := bd.CreateReduce(types.ReduceFMax, dot, 1)
	sum := bd.CreateReduce(types.ReduceFAdd, red, 0)
	old := bd.CreateAtomic(types.AtomicFAdd, f.Params()[0], nil, sum)
	bd.CreateAtomic(types.AtomicXchg, bd.CreateAlloca(i32, "slot"), nil, pid)
	bd.CreateRet(bd.CreateMath(types.Sqrt, old))

	ir, err := GenLLVM(m, nil)
	require.NoError(t, err)
	assert.Contains(t, ir, "call i32 @tlc.program_id(i32 0)")
	assert.Contains(t, ir, "!tlc.multiple_of")
	assert.Contains(t, ir, "call void @tlc.barrier()")
	assert.Contains(t, ir, "\"tlc.multiple_of\"=\"16\"")
	assert.Contains(t, ir, "atomic.loop:")
	assert.Contains(t, ir, "cmpxchg")
	assert.Contains(t, ir, "atomicrmw xchg")
	assert.Contains(t, ir, "@llvm.sqrt.f32")
}

func TestControlFlowOrder(t *testing.T) {
	m := tir.CreateModule("loop", nil)
	ctx := m.Types()
	i32 := ctx.Int32()
	f := m.GetOrInsertFunction("count", ctx.Function(i32, []types.DataType{i32}))
	bd := tir.NewBuilder(m)
	entry := f.CreateBlock("entry")
	exit := f.CreateBlock("exit")
	body := f.CreateBlock("body")

	bd.SetInsertPoint(entry)
	v := bd.CreateBinOp(types.Add, f.Params()[0], m.ConstInt(i32, 1))
	bd.CreateBr(body)
	// exit precedes body in block order but uses a value body defines.
	bd.SetInsertPoint(body)
	w := bd.CreateBinOp(types.Mul, v, m.ConstInt(i32, 2))
	bd.CreateBr(exit)
	bd.SetInsertPoint(exit)
	bd.CreateRet(w)
	f.CreateBlock("dead")

	order := blockOrder(f)
	require.Len(t, order, 4)
	assert.Equal(t, []string{"entry", "body", "exit", "dead"},
		[]string{order[0].Name(), order[1].Name(), order[2].Name(), order[3].Name()})
}

func TestVerifyFailure(t *testing.T) {
	m := tir.CreateModule("bad", nil)
	ctx := m.Types()
	f := m.GetOrInsertFunction("f", ctx.Function(ctx.Void(), nil))
	f.CreateBlock("entry")

	_, err := GenLLVM(m, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module bad")

	_, err = GenLLVM(nil, nil)
	assert.Error(t, err)
}

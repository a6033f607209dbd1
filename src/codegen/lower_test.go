package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tlc/src/ast"
	"tlc/src/ir/tir"
	"tlc/src/ir/tir/types"
)

// newSession returns a Generator positioned in the entry block of an empty void function f, with one scope open.
func newSession(t *testing.T) *Generator {
	t.Helper()
	g := New(tir.CreateModule("test", nil), nil)
	fd := &ast.FuncDef{Name: "f", Typ: &ast.FuncType{Ret: voidT}}
	fn, err := g.declare(fd)
	require.NoError(t, err)
	g.fn, g.fd = fn, fd
	g.named = make(map[string]*tir.Block)
	g.bld.SetInsertPoint(fn.CreateBlock("entry"))
	t.Cleanup(g.pushScope())
	return g
}

// declare allocates storage for a local object of type typ and returns a reference to it.
func declare(t *testing.T, g *Generator, name string, typ ast.Type) *ast.Identifier {
	t.Helper()
	_, err := g.allocObject(&ast.Object{Name: name, Typ: typ}, name)
	require.NoError(t, err)
	return ast.Ident(name, typ)
}

// undef returns an undefined value of the lowered type typ.
func undef(t *testing.T, g *Generator, typ ast.Type) tir.Value {
	t.Helper()
	it, err := g.irType(typ)
	require.NoError(t, err)
	return g.mod.Undef(it)
}

func TestBroadcast(t *testing.T) {
	g := newSession(t)

	v := undef(t, g, ast.Tile(floatT, 4, 8))
	res, err := g.GenBroadcastOp(v, []int{4, 8})
	require.NoError(t, err)
	assert.Equal(t, v, res)
	assert.Empty(t, g.fn.Instructions())

	res, err = g.GenBroadcastOp(undef(t, g, floatT), []int{4, 8})
	require.NoError(t, err)
	assert.Equal(t, types.SplatInstruction, res.Type())

	res, err = g.GenBroadcastOp(undef(t, g, ast.Tile(floatT, 8)), []int{4, 8})
	require.NoError(t, err)
	assert.Equal(t, types.BroadcastInstruction, res.Type())
	assert.Equal(t, types.ReshapeInstruction, res.Operands()[0].Type())
	assert.Equal(t, "tile<4x8, f32>", res.DataType().String())

	res, err = g.GenBroadcastOp(undef(t, g, ast.Tile(floatT, 4, 1, 8)), []int{4, 8})
	assert.Nil(t, res)
	assert.True(t, IsInternal(err))

	_, err = g.GenBroadcastOp(undef(t, g, ast.Tile(floatT, 3)), []int{4})
	assert.True(t, IsInternal(err))
}

func TestBroadcastBothOperands(t *testing.T) {
	g := newSession(t)
	a := declare(t, g, "a", ast.Tile(floatT, 1, 8))
	b := declare(t, g, "b", ast.Tile(floatT, 4, 1))

	v, err := g.lowerExpr(ast.MustBinary(ast.Add, a, b))
	require.NoError(t, err)
	assert.Equal(t, "tile<4x8, f32>", v.DataType().String())
	assert.Equal(t, 2, count(g.fn, types.BroadcastInstruction))

	c := declare(t, g, "c", ast.Tile(floatT, 1, 8))
	before := count(g.fn, types.BroadcastInstruction)
	_, err = g.lowerExpr(ast.MustBinary(ast.Mul, a, c))
	require.NoError(t, err)
	assert.Equal(t, before, count(g.fn, types.BroadcastInstruction))
	assert.Zero(t, count(g.fn, types.SplatInstruction))
}

func TestNumcast(t *testing.T) {
	ptrT := ast.Pointer(floatT)
	tests := []struct {
		src, dst ast.Type
		op       types.CastOperation
	}{
		{intT, floatT, types.SIToFP},
		{ast.Arith(ast.UInt), floatT, types.UIToFP},
		{floatT, intT, types.FPToSI},
		{floatT, ast.Arith(ast.ULong), types.FPToUI},
		{ast.Arith(ast.Double), floatT, types.FPTrunc},
		{ast.Arith(ast.Half), floatT, types.FPExt},
		{intT, ast.Arith(ast.Long), types.SExt},
		{ast.Arith(ast.UShort), intT, types.ZExt},
		{boolT, intT, types.ZExt},
		{ast.Arith(ast.Long), ast.Arith(ast.Char), types.Trunc},
		{ptrT, ast.Arith(ast.Long), types.PtrToInt},
		{ast.Arith(ast.Long), ptrT, types.IntToPtr},
		{ptrT, ast.Pointer(intT), types.BitCast},
	}
	for _, e1 := range tests {
		g := newSession(t)
		v, err := g.GenNumcastOp(undef(t, g, e1.src), e1.src, e1.dst)
		require.NoError(t, err)
		cast, ok := v.(*tir.CastInstruction)
		require.True(t, ok, "%s to %s", e1.src.String(), e1.dst.String())
		assert.Equal(t, e1.op, cast.Operation(), "%s to %s", e1.src.String(), e1.dst.String())
	}

	g := newSession(t)
	v := undef(t, g, intT)
	res, err := g.GenNumcastOp(v, intT, ast.Arith(ast.UInt))
	require.NoError(t, err)
	assert.Equal(t, v, res)

	res, err = g.GenNumcastOp(undef(t, g, ast.Tile(floatT, 16)), ast.Tile(floatT, 16), ast.Tile(boolT, 16))
	require.NoError(t, err)
	assert.Equal(t, types.CompareInstruction, res.Type())
	assert.Equal(t, "tile<16, i1>", res.DataType().String())

	res, err = g.GenNumcastOp(undef(t, g, ptrT), ptrT, boolT)
	require.NoError(t, err)
	assert.Equal(t, types.CompareInstruction, res.Type())
	assert.Equal(t, types.CastInstruction, res.Operands()[0].Type())
}

func TestSemCast(t *testing.T) {
	g := newSession(t)
	v, err := g.GenSemCastOp(undef(t, g, intT), intT, ast.Tile(floatT, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, "tile<2x2, f32>", v.DataType().String())
	assert.Equal(t, types.CastInstruction, v.Type())
	assert.Equal(t, types.SplatInstruction, v.Operands()[0].Type())
}

func TestIncDec(t *testing.T) {
	tests := []struct {
		op    ast.UnaryOpKind
		typ   ast.Type
		arith types.InstructionType
		old   bool
	}{
		{ast.PostInc, intT, types.DataInstruction, true},
		{ast.PreInc, intT, types.DataInstruction, false},
		{ast.PostDec, floatT, types.DataInstruction, true},
		{ast.PreDec, ast.Pointer(floatT), types.GEPInstruction, false},
	}
	for _, e1 := range tests {
		g := newSession(t)
		x := declare(t, g, "x", e1.typ)
		v, err := g.lowerExpr(ast.MustUnary(e1.op, x))
		require.NoError(t, err)

		assert.Equal(t, 1, count(g.fn, types.LoadInstruction))
		assert.Equal(t, 1, count(g.fn, e1.arith))
		assert.Equal(t, 1, count(g.fn, types.StoreInstruction))
		if e1.old {
			assert.Equal(t, types.LoadInstruction, v.Type())
		} else {
			assert.Equal(t, e1.arith, v.Type())
		}
	}
}

func TestChainedAssign(t *testing.T) {
	g := newSession(t)
	a := declare(t, g, "a", intT)
	b := declare(t, g, "b", intT)
	c := declare(t, g, "c", intT)

	v, err := g.lowerExpr(ast.MustBinary(ast.Assign, a, ast.MustBinary(ast.Assign, b, c)))
	require.NoError(t, err)
	assert.Equal(t, 2, count(g.fn, types.StoreInstruction))
	assert.Equal(t, 1, count(g.fn, types.LoadInstruction))
	assert.Equal(t, types.LoadInstruction, v.Type())
}

func TestNotAnLValue(t *testing.T) {
	g := newSession(t)
	a := declare(t, g, "a", intT)
	one := ast.IntConst(1, ast.Int)

	tl := declare(t, g, "tl", ast.Tile(intT, 2, 4))
	tr, err := ast.Trans(tl, []int{1, 0})
	require.NoError(t, err)
	cond, err := ast.Conditional(ast.BoolConst(true), a, one)
	require.NoError(t, err)

	targets := []struct {
		expr ast.Expr
		name string
	}{
		{ast.MustBinary(ast.Add, a, one), "binary operator +"},
		{ast.MustUnary(ast.Neg, a), "unary operator"},
		{one, "constant"},
		{ast.Call("get_program_id", intT, one), "call of get_program_id"},
		{cond, "conditional"},
		{tr, "trans"},
		{&ast.TempVar{Name: "t0", Init: one}, "temporary t0"},
		{&ast.Enumerator{Name: "RED", Value: 1, Typ: intT}, "enumerator RED"},
	}
	for _, e1 := range targets {
		_, err := g.assigner.Assign(e1.expr, g.mod.ConstInt(g.ctx.Int32(), 1))
		require.Error(t, err, e1.name)
		assert.True(t, IsInternal(err), e1.name)
		assert.Contains(t, err.Error(), e1.name)
		assert.Contains(t, err.Error(), "cannot be lvalue")
	}
	_, err = g.GenAssignOp(one, g.mod.ConstInt(g.ctx.Int32(), 1), intT)
	assert.True(t, IsInternal(err))
	assert.Zero(t, count(g.fn, types.StoreInstruction))
	assert.Zero(t, count(g.fn, types.MaskedStoreInstruction))
}

func TestLValueEvaluatedOnce(t *testing.T) {
	g := newSession(t)
	p := declare(t, g, "p", ast.Pointer(floatT))
	i := declare(t, g, "i", intT)

	elem := ast.MustBinary(ast.Subscript, p, ast.MustUnary(ast.PostInc, i))
	_, err := g.lowerExpr(ast.MustBinary(ast.AddAssign, elem, ast.FloatConst(1, ast.Float)))
	require.NoError(t, err)
	// i is incremented by one store, the element is updated by the other.
	assert.Equal(t, 2, count(g.fn, types.StoreInstruction))
	assert.Equal(t, 1, count(g.fn, types.GEPInstruction))
	assert.Equal(t, 3, count(g.fn, types.LoadInstruction))

	g = newSession(t)
	q := declare(t, g, "q", ast.Pointer(intT))
	v, err := g.lowerExpr(ast.MustUnary(ast.PostInc, ast.MustUnary(ast.Deref, q)))
	require.NoError(t, err)
	assert.Equal(t, types.LoadInstruction, v.Type())
	assert.Equal(t, 2, count(g.fn, types.LoadInstruction))
	assert.Equal(t, 1, count(g.fn, types.StoreInstruction))
}

func TestMaskedCompoundAssign(t *testing.T) {
	g := newSession(t)
	m := declare(t, g, "m", ast.Tile(boolT, 16))
	ptrs := declare(t, g, "ptrs", ast.Tile(ast.Pointer(floatT), 16))

	lv := ast.MustBinary(ast.MaskedDeref, m, ptrs)
	_, err := g.lowerExpr(ast.MustBinary(ast.MulAssign, lv, ast.FloatConst(2, ast.Float)))
	require.NoError(t, err)
	assert.Equal(t, 1, count(g.fn, types.MaskedLoadInstruction))
	assert.Equal(t, 1, count(g.fn, types.MaskedStoreInstruction))
	// Mask and pointers are loaded once.
	assert.Equal(t, 2, count(g.fn, types.LoadInstruction))
}

func TestValueBindingRebind(t *testing.T) {
	g := newSession(t)
	first := g.mod.ConstInt(g.ctx.Int32(), 1)
	g.bindValue("k", first)
	outer := g.current()

	pop := g.pushScope()
	second := g.mod.ConstInt(g.ctx.Int32(), 2)
	_, err := g.assigner.Assign(ast.Ident("k", intT), second)
	require.NoError(t, err)
	_, inner := g.current().values["k"]
	assert.False(t, inner)
	pop()

	assert.Equal(t, tir.Value(second), outer.values["k"].val)
	assert.Zero(t, count(g.fn, types.StoreInstruction))
}

func TestScopeBalance(t *testing.T) {
	g := newSession(t)
	depth := g.scopes.Size()

	bad := &ast.CompoundStmt{Stmts: []ast.Stmt{
		&ast.Declaration{Obj: &ast.Object{Name: "i", Typ: intT}},
		&ast.CompoundStmt{Stmts: []ast.Stmt{ast.Ident("nope", intT)}},
	}}
	require.Error(t, g.genStmt(bad))
	assert.Equal(t, depth, g.scopes.Size())

	loop := &ast.ForStmt{
		Init: ast.Decl(&ast.Object{Name: "j", Typ: intT}, ast.IntConst(0, ast.Int)),
		Body: &ast.CompoundStmt{Stmts: []ast.Stmt{ast.StrConst("x")}},
	}
	require.Error(t, g.genStmt(loop))
	assert.Equal(t, depth, g.scopes.Size())
	assert.Zero(t, g.loops.Size())

	ok := &ast.CompoundStmt{Stmts: []ast.Stmt{&ast.Declaration{Obj: &ast.Object{Name: "k", Typ: floatT}}}}
	require.NoError(t, g.genStmt(ok))
	assert.Equal(t, depth, g.scopes.Size())
	_, found := g.lookupType("k")
	assert.False(t, found)
}

func TestScopeShadowing(t *testing.T) {
	g := newSession(t)
	declare(t, g, "x", intT)
	pop := g.pushScope()
	declare(t, g, "x", floatT)
	typ, ok := g.lookupType("x")
	require.True(t, ok)
	assert.Equal(t, "f32", typ.String())
	pop()
	typ, _ = g.lookupType("x")
	assert.Equal(t, "i32", typ.String())
}

func TestDeclarationMetadata(t *testing.T) {
	g := newSession(t)
	pid := &ast.Object{Name: "pid", Typ: intT, Attrs: []ast.Attr{{Kind: ast.MultipleOf, Value: 8}}}
	require.NoError(t, g.genStmt(ast.Decl(pid, ast.Call("get_program_id", intT, ast.IntConst(0, ast.Int)))))

	insts := g.fn.Instructions()
	var prog tir.Instruction
	for _, e1 := range insts {
		if e1.Type() == types.ProgramIdInstruction {
			prog = e1
		}
	}
	require.NotNil(t, prog)
	v, ok := prog.Metadata(tir.MetadataMultipleOf)
	require.True(t, ok)
	assert.Equal(t, 8, v)
}

func TestAggregateInitializers(t *testing.T) {
	g := newSession(t)
	pair := &ast.StructType{Name: "pair", Fields: []ast.Field{{Name: "lo", Type: intT}, {Name: "hi", Type: ast.Arith(ast.Long)}}}
	obj := &ast.Object{Name: "p", Typ: pair}
	decl := &ast.Declaration{Obj: obj, Inits: []ast.Initializer{
		{Offset: 0, Typ: intT, Expr: ast.IntConst(1, ast.Int)},
		{Offset: 8, Typ: ast.Arith(ast.Long), Expr: ast.IntConst(2, ast.Int)},
	}}
	require.NoError(t, g.genStmt(decl))
	assert.Equal(t, 2, count(g.fn, types.GEPInstruction))
	assert.Equal(t, 2, count(g.fn, types.StoreInstruction))

	arr := &ast.Object{Name: "a", Typ: &ast.ArrayType{Elem: floatT, Len: 4}}
	decl = &ast.Declaration{Obj: arr, Inits: []ast.Initializer{
		{Offset: 12, Typ: floatT, Expr: ast.FloatConst(1, ast.Float)},
	}}
	require.NoError(t, g.genStmt(decl))
	insts := g.fn.Entry().Instructions()
	gep, ok := insts[len(insts)-2].(*tir.GEPInstruction)
	require.True(t, ok)
	assert.Equal(t, tir.GEPArray, gep.Kind())
	idx, _ := gep.Operands()[1].(*tir.Constant).Int()
	assert.Equal(t, int64(3), idx)
}

func TestMaskedConditional(t *testing.T) {
	g := newSession(t)
	ptrs := declare(t, g, "p", ast.Tile(ast.Pointer(floatT), 16))
	m := declare(t, g, "m", ast.Tile(boolT, 16))

	c, err := ast.Conditional(m, ast.MustUnary(ast.Deref, ptrs), ast.FloatConst(0, ast.Float))
	require.NoError(t, err)
	v, err := g.lowerExpr(c)
	require.NoError(t, err)
	assert.Equal(t, types.MaskedLoadInstruction, v.Type())
	assert.Zero(t, count(g.fn, types.SelectInstruction))
	assert.Equal(t, 2, count(g.fn, types.LoadInstruction))

	x := declare(t, g, "x", ast.Tile(floatT, 16))
	c, err = ast.Conditional(m, x, ast.FloatConst(0, ast.Float))
	require.NoError(t, err)
	v, err = g.lowerExpr(c)
	require.NoError(t, err)
	assert.Equal(t, types.SelectInstruction, v.Type())
}

func TestMatMul(t *testing.T) {
	g := newSession(t)
	a := declare(t, g, "a", ast.Tile(ast.Arith(ast.Half), 4, 8))
	b := declare(t, g, "b", ast.Tile(floatT, 8, 2))

	v, err := g.lowerExpr(ast.MustBinary(ast.MatMul, a, b))
	require.NoError(t, err)
	assert.Equal(t, types.DotInstruction, v.Type())
	assert.Equal(t, "tile<4x2, f32>", v.DataType().String())
	assert.Equal(t, 1, count(g.fn, types.CastInstruction))
	assert.Equal(t, 1, count(g.fn, types.SplatInstruction))
}

func TestIntrinsics(t *testing.T) {
	g := newSession(t)
	p := declare(t, g, "p", ast.Pointer(floatT))
	one := ast.IntConst(1, ast.Int)

	v, err := g.lowerExpr(ast.Call("atomic_add", floatT, p, one))
	require.NoError(t, err)
	assert.Equal(t, types.AtomicFAdd, v.(*tir.AtomicInstruction).Operation())

	v, err = g.lowerExpr(ast.Call("atomic_cas", floatT, p, one, one))
	require.NoError(t, err)
	assert.Equal(t, types.AtomicCAS, v.(*tir.AtomicInstruction).Operation())

	v, err = g.lowerExpr(ast.Call("get_num_programs", intT, ast.IntConst(2, ast.Int)))
	require.NoError(t, err)
	assert.Equal(t, types.NumProgramsInstruction, v.Type())

	_, err = g.lowerExpr(ast.Call("get_program_id", intT, ast.Ident("p", p.Typ)))
	assert.True(t, IsInternal(err))

	v, err = g.lowerExpr(ast.Call("__debug_barrier", voidT))
	require.NoError(t, err)
	assert.Equal(t, types.BarrierInstruction, v.Type())

	x := declare(t, g, "x", ast.Tile(ast.Arith(ast.UInt), 16))
	v, err = g.lowerExpr(ast.Call("min", ast.Arith(ast.UInt), x))
	require.NoError(t, err)
	assert.Equal(t, types.ReduceUMin, v.(*tir.ReduceInstruction).Operation())

	f := declare(t, g, "f", floatT)
	v, err = g.lowerExpr(ast.Call("sqrtf", floatT, f))
	require.NoError(t, err)
	assert.Equal(t, types.MathInstruction, v.Type())
}

func TestUnaryOperators(t *testing.T) {
	g := newSession(t)
	x := declare(t, g, "x", ast.Tile(intT, 8))
	p := declare(t, g, "p", ast.Pointer(floatT))

	v, err := g.lowerExpr(ast.MustUnary(ast.Neg, x))
	require.NoError(t, err)
	assert.Equal(t, types.SplatInstruction, v.Operands()[0].Type())

	v, err = g.lowerExpr(ast.MustUnary(ast.BitNot, x))
	require.NoError(t, err)
	assert.Equal(t, types.Xor, v.(*tir.DataInstruction).Operation())

	v, err = g.lowerExpr(ast.MustUnary(ast.LogicalNot, p))
	require.NoError(t, err)
	assert.Equal(t, types.ICmpEQ, v.(*tir.CompareInstruction).Predicate())
	assert.Equal(t, types.CastInstruction, v.Operands()[0].Type())

	f := declare(t, g, "f", floatT)
	v, err = g.lowerExpr(ast.MustUnary(ast.Addr, f))
	require.NoError(t, err)
	assert.Equal(t, "ptr<f32, 1>", v.DataType().String())
	assert.Equal(t, types.BitCast, v.(*tir.CastInstruction).Operation())

	v, err = g.lowerExpr(ast.BitCastTo(f, intT))
	require.NoError(t, err)
	assert.Equal(t, types.BitCast, v.(*tir.CastInstruction).Operation())

	_, err = g.lowerExpr(ast.BitCastTo(f, ast.Arith(ast.Long)))
	assert.True(t, IsInternal(err))

	tr, err := ast.Trans(declare(t, g, "t", ast.Tile(floatT, 2, 4)), nil)
	require.NoError(t, err)
	v, err = g.lowerExpr(tr)
	require.NoError(t, err)
	assert.Equal(t, "tile<4x2, f32>", v.DataType().String())
}

func TestPointerArithmetic(t *testing.T) {
	g := newSession(t)
	p := declare(t, g, "p", ast.Pointer(floatT))
	q := declare(t, g, "q", ast.Pointer(floatT))
	n := declare(t, g, "n", intT)

	v, err := g.lowerExpr(ast.MustBinary(ast.Sub, p, n))
	require.NoError(t, err)
	assert.Equal(t, types.GEPInstruction, v.Type())
	assert.Equal(t, types.Sub, v.Operands()[1].(*tir.DataInstruction).Operation())

	v, err = g.lowerExpr(ast.MustBinary(ast.Sub, p, q))
	require.NoError(t, err)
	assert.Equal(t, types.SDiv, v.(*tir.DataInstruction).Operation())
	assert.Equal(t, "i64", v.DataType().String())

	v, err = g.lowerExpr(ast.MustBinary(ast.Lt, p, q))
	require.NoError(t, err)
	assert.Equal(t, types.ICmpULT, v.(*tir.CompareInstruction).Predicate())
}

func TestLogicalOperators(t *testing.T) {
	g := newSession(t)
	m := declare(t, g, "m", ast.Tile(boolT, 16))
	i := declare(t, g, "i", intT)
	f := declare(t, g, "f", floatT)

	v, err := g.lowerExpr(ast.MustBinary(ast.LogicalAnd, m, i))
	require.NoError(t, err)
	require.Equal(t, types.DataInstruction, v.Type())
	assert.Equal(t, types.And, v.(*tir.DataInstruction).Operation())
	assert.Equal(t, "tile<16, i1>", v.DataType().String())
	assert.Equal(t, 1, count(g.fn, types.CompareInstruction))
	assert.Equal(t, 1, count(g.fn, types.SplatInstruction))

	v, err = g.lowerExpr(ast.MustBinary(ast.LogicalOr, i, f))
	require.NoError(t, err)
	assert.Equal(t, types.Or, v.(*tir.DataInstruction).Operation())
	assert.Equal(t, "i1", v.DataType().String())
	assert.Equal(t, 3, count(g.fn, types.CompareInstruction))
	// Both operands are evaluated in the entry block.
	assert.Len(t, g.fn.Blocks(), 1)
}

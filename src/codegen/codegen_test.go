package codegen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tlc/src/ast"
	"tlc/src/ir/tir"
	"tlc/src/ir/tir/types"
	"tlc/src/util"
)

var (
	intT   = ast.Arith(ast.Int)
	floatT = ast.Arith(ast.Float)
	boolT  = ast.Arith(ast.Bool)
	voidT  = &ast.VoidType{}
)

// scalarUnit returns: int f(int x) { int i = 0; i += x; return i; }
func scalarUnit() *ast.TranslationUnit {
	x := &ast.Object{Name: "x", Typ: intT}
	i := &ast.Object{Name: "i", Typ: intT}
	body := &ast.CompoundStmt{Stmts: []ast.Stmt{
		ast.Decl(i, ast.IntConst(0, ast.Int)),
		ast.MustBinary(ast.AddAssign, ast.Ident("i", intT), ast.Ident("x", intT)),
		&ast.ReturnStmt{Expr: ast.Ident("i", intT)},
	}}
	fd := &ast.FuncDef{
		Name:   "f",
		Typ:    &ast.FuncType{Ret: intT, Params: []ast.Type{intT}},
		Params: []*ast.Object{x},
		Body:   body,
	}
	return &ast.TranslationUnit{Name: "scalar", Funcs: []*ast.FuncDef{fd}}
}

// scaleUnit returns a kernel scaling the first n of 16 floats at X by two under a mask.
func scaleUnit() *ast.TranslationUnit {
	pX := &ast.Object{Name: "X", Typ: ast.Pointer(floatT)}
	pn := &ast.Object{Name: "n", Typ: intT}
	off := &ast.Object{Name: "off", Typ: ast.Tile(intT, 16)}
	m := &ast.Object{Name: "m", Typ: ast.Tile(boolT, 16)}
	masked := func() ast.Expr {
		ptrs := ast.MustBinary(ast.Add, ast.Ident("X", pX.Typ), ast.Ident("off", off.Typ))
		return ast.MustBinary(ast.MaskedDeref, ast.Ident("m", m.Typ), ptrs)
	}
	body := &ast.CompoundStmt{Stmts: []ast.Stmt{
		ast.Decl(off, ast.MustBinary(ast.Ellipsis, ast.IntConst(0, ast.Int), ast.IntConst(16, ast.Int))),
		ast.Decl(m, ast.MustBinary(ast.Lt, ast.Ident("off", off.Typ), ast.Ident("n", intT))),
		ast.MustBinary(ast.Assign, masked(), ast.MustBinary(ast.Mul, masked(), ast.FloatConst(2, ast.Float))),
	}}
	fd := &ast.FuncDef{
		Name:   "scale",
		Typ:    &ast.FuncType{Ret: voidT, Params: []ast.Type{pX.Typ, intT}},
		Params: []*ast.Object{pX, pn},
		Body:   body,
	}
	return &ast.TranslationUnit{Name: "scale", Funcs: []*ast.FuncDef{fd}}
}

// count returns the number of instructions of type typ in fn.
func count(fn *tir.Function, typ types.InstructionType) int {
	return lo.CountBy(fn.Instructions(), func(inst tir.Instruction) bool { return inst.Type() == typ })
}

// genUnit lowers tu and returns its module.
func genUnit(t *testing.T, tu *ast.TranslationUnit) *tir.Module {
	t.Helper()
	m, err := Gen(tu, nil)
	require.NoError(t, err)
	return m
}

func TestGolden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	for _, tu := range []*ast.TranslationUnit{scalarUnit(), scaleUnit()} {
		t.Run(tu.Name, func(t *testing.T) {
			g.Assert(t, tu.Name, []byte(genUnit(t, tu).String()))
		})
	}
}

func TestDecodedUnitsMatch(t *testing.T) {
	for _, tu := range []*ast.TranslationUnit{scalarUnit(), scaleUnit()} {
		t.Run(tu.Name, func(t *testing.T) {
			b, err := os.ReadFile(filepath.Join("testdata", "docs", tu.Name+".yaml"))
			require.NoError(t, err)
			doc, err := ast.DecodeBytes(tu.Name, b)
			require.NoError(t, err)
			assert.Equal(t, genUnit(t, tu).String(), genUnit(t, doc).String())
		})
	}
}

func TestScalarCompoundAssign(t *testing.T) {
	i := &ast.Object{Name: "i", Typ: intT}
	fd := &ast.FuncDef{
		Name: "f",
		Typ:  &ast.FuncType{Ret: voidT},
		Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
			ast.Decl(i, ast.IntConst(0, ast.Int)),
			ast.MustBinary(ast.AddAssign, ast.Ident("i", intT), ast.IntConst(1, ast.Int)),
		}},
	}
	m := genUnit(t, &ast.TranslationUnit{Name: "t", Funcs: []*ast.FuncDef{fd}})
	fn, ok := m.Function("f")
	require.True(t, ok)

	assert.Equal(t, 1, count(fn, types.DeclareInstruction))
	assert.Equal(t, 2, count(fn, types.StoreInstruction))
	assert.Equal(t, 1, count(fn, types.LoadInstruction))
	assert.Equal(t, 1, count(fn, types.DataInstruction))
	assert.Zero(t, count(fn, types.BroadcastInstruction))
	assert.Zero(t, count(fn, types.SplatInstruction))
	assert.Equal(t, 1, count(fn, types.ReturnInstruction))
}

func TestSoftmaxKernel(t *testing.T) {
	pX := &ast.Object{Name: "X", Typ: ast.Pointer(floatT)}
	pY := &ast.Object{Name: "Y", Typ: &ast.PointerType{Elem: floatT, Restrict: true}}
	pn := &ast.Object{Name: "n", Typ: intT}
	off := &ast.Object{Name: "off", Typ: ast.Tile(intT, 4, 16)}
	msk := &ast.Object{Name: "m", Typ: ast.Tile(boolT, 4, 16)}
	x := &ast.Object{Name: "x", Typ: ast.Tile(floatT, 4, 16)}
	mx := &ast.Object{Name: "mx", Typ: ast.Tile(floatT, 4)}
	e := &ast.Object{Name: "e", Typ: ast.Tile(floatT, 4, 16)}
	s := &ast.Object{Name: "s", Typ: ast.Tile(floatT, 4)}
	id := func(o *ast.Object) ast.Expr { return ast.Ident(o.Name, o.Typ) }
	column := func(o *ast.Object) ast.Expr {
		r, err := ast.Reshape(id(o), []int{4, 1})
		require.NoError(t, err)
		return r
	}

	diff := ast.MustBinary(ast.Sub, id(x), column(mx))
	body := &ast.CompoundStmt{Stmts: []ast.Stmt{
		&ast.Declaration{Obj: off},
		ast.Decl(msk, ast.MustBinary(ast.Lt, id(off), id(pn))),
		ast.Decl(x, ast.MustUnary(ast.Deref, ast.MustBinary(ast.Add, id(pX), id(off)))),
		ast.Decl(mx, ast.Call("max", mx.Typ, id(x), ast.IntConst(1, ast.Int))),
		ast.Decl(e, ast.MustUnary(ast.Exp, diff)),
		ast.Decl(s, ast.Call("sum", s.Typ, id(e), ast.IntConst(1, ast.Int))),
		ast.MustBinary(ast.Assign,
			ast.MustBinary(ast.MaskedDeref, id(msk), ast.MustBinary(ast.Add, id(pY), id(off))),
			ast.MustBinary(ast.Div, id(e), column(s))),
	}}
	fd := &ast.FuncDef{
		Name:   "softmax",
		Typ:    &ast.FuncType{Ret: voidT, Params: []ast.Type{pX.Typ, pY.Typ, intT}},
		Params: []*ast.Object{pX, pY, pn},
		Body:   body,
	}
	m := genUnit(t, &ast.TranslationUnit{Name: "softmax", Funcs: []*ast.FuncDef{fd}})
	fn, _ := m.Function("softmax")

	assert.Equal(t, 2, count(fn, types.ReduceInstruction))
	assert.Equal(t, 2, count(fn, types.ReshapeInstruction))
	assert.Equal(t, 2, count(fn, types.BroadcastInstruction))
	assert.Equal(t, 1, count(fn, types.SplatInstruction))
	assert.Equal(t, 1, count(fn, types.MathInstruction))
	assert.Equal(t, 1, count(fn, types.MaskedStoreInstruction))

	y := fn.Params()[1]
	_, ok := y.Attr(tir.NoAlias)
	assert.True(t, ok)
	a, ok := y.Attr(tir.Aligned)
	require.True(t, ok)
	assert.Equal(t, 16, a.Value)
}

func TestControlFlow(t *testing.T) {
	i := &ast.Object{Name: "i", Typ: intT}
	n := &ast.Object{Name: "n", Typ: intT}
	iRef := ast.Ident("i", intT)
	ifEq := func(v int64, kind ast.JumpKind) ast.Stmt {
		return &ast.IfStmt{
			Cond: ast.MustBinary(ast.Eq, iRef, ast.IntConst(v, ast.Int)),
			Then: &ast.JumpStmt{Kind: kind},
		}
	}
	loop := &ast.ForStmt{
		Init: ast.Decl(i, ast.IntConst(0, ast.Int)),
		Cond: ast.MustBinary(ast.Lt, iRef, ast.Ident("n", intT)),
		Step: ast.MustUnary(ast.PostInc, iRef),
		Body: &ast.CompoundStmt{Stmts: []ast.Stmt{ifEq(3, ast.Continue), ifEq(7, ast.Break)}},
	}
	fd := &ast.FuncDef{
		Name:   "f",
		Typ:    &ast.FuncType{Ret: voidT, Params: []ast.Type{intT}},
		Params: []*ast.Object{n},
		Body:   &ast.CompoundStmt{Stmts: []ast.Stmt{loop}},
	}
	m := genUnit(t, &ast.TranslationUnit{Name: "loop", Funcs: []*ast.FuncDef{fd}})
	fn, _ := m.Function("f")

	names := lo.Map(fn.Blocks(), func(b *tir.Block, _ int) string { return b.Name() })
	assert.Equal(t, []string{"entry", "loop", "postloop", "then", "endif", "then1", "endif1"}, names)
	for _, e1 := range fn.Blocks() {
		assert.True(t, e1.IsTerminated(), e1.Name())
	}
	assert.Equal(t, 5, count(fn, types.ConditionalBranchInstruction))
	assert.Equal(t, 1, count(fn, types.BranchInstruction))
	assert.Equal(t, 1, count(fn, types.ReturnInstruction))
}

func TestUnreachableAfterReturn(t *testing.T) {
	i := &ast.Object{Name: "i", Typ: intT}
	fd := &ast.FuncDef{
		Name: "f",
		Typ:  &ast.FuncType{Ret: voidT},
		Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
			&ast.Declaration{Obj: i},
			&ast.ReturnStmt{},
			ast.MustBinary(ast.Assign, ast.Ident("i", intT), ast.IntConst(1, ast.Int)),
		}},
	}
	m := genUnit(t, &ast.TranslationUnit{Name: "t", Funcs: []*ast.FuncDef{fd}})
	fn, _ := m.Function("f")

	require.Len(t, fn.Blocks(), 2)
	dead := fn.Blocks()[1]
	assert.Regexp(t, `^block\d+$`, dead.Name())
	assert.Equal(t, types.StoreInstruction, dead.Instructions()[0].Type())
	assert.True(t, dead.IsTerminated())
}

func TestGotoLabel(t *testing.T) {
	fd := &ast.FuncDef{
		Name: "f",
		Typ:  &ast.FuncType{Ret: voidT},
		Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
			&ast.JumpStmt{Kind: ast.Goto, Label: "done"},
			&ast.LabelStmt{Label: "done", Stmt: &ast.ReturnStmt{}},
		}},
	}
	m := genUnit(t, &ast.TranslationUnit{Name: "t", Funcs: []*ast.FuncDef{fd}})
	fn, _ := m.Function("f")

	names := lo.Map(fn.Blocks(), func(b *tir.Block, _ int) string { return b.Name() })
	assert.Equal(t, []string{"entry", "done"}, names)
	assert.Equal(t, "br label %done", fn.Blocks()[0].Terminator().String())
}

func TestUndefinedLabel(t *testing.T) {
	unit := func(stmts ...ast.Stmt) *ast.TranslationUnit {
		fd := &ast.FuncDef{Name: "f", Typ: &ast.FuncType{Ret: voidT}, Body: &ast.CompoundStmt{Stmts: stmts}}
		return &ast.TranslationUnit{Name: "t", Funcs: []*ast.FuncDef{fd}}
	}

	_, err := Gen(unit(
		&ast.JumpStmt{Kind: ast.Goto, Label: "out"},
		&ast.JumpStmt{Kind: ast.Goto, Label: "again"},
	), nil)
	require.Error(t, err)
	assert.True(t, IsInternal(err))
	assert.Contains(t, err.Error(), "undefined label again, out")

	_, err = Gen(unit(
		&ast.LabelStmt{Label: "top", Stmt: &ast.EmptyStmt{}},
		&ast.LabelStmt{Label: "top", Stmt: &ast.EmptyStmt{}},
	), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate label top")
}

func TestUserCallAndPrototypes(t *testing.T) {
	v := &ast.Object{Name: "v", Typ: floatT}
	r := &ast.Object{Name: "r", Typ: floatT}
	caller := &ast.FuncDef{
		Name: "caller",
		Typ:  &ast.FuncType{Ret: voidT},
		Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
			ast.Decl(r, ast.Call("h", floatT, ast.IntConst(1, ast.Int))),
		}},
	}
	h := &ast.FuncDef{
		Name:   "h",
		Typ:    &ast.FuncType{Ret: floatT, Params: []ast.Type{floatT}},
		Params: []*ast.Object{v},
	}
	m := genUnit(t, &ast.TranslationUnit{Name: "t", Funcs: []*ast.FuncDef{caller, h}})
	fn, _ := m.Function("caller")
	hf, ok := m.Function("h")
	require.True(t, ok)
	assert.True(t, hf.IsDeclaration())

	assert.Equal(t, 1, count(fn, types.CallInstruction))
	casts := lo.Filter(fn.Instructions(), func(inst tir.Instruction, _ int) bool {
		return inst.Type() == types.CastInstruction
	})
	require.Len(t, casts, 1)
	assert.Equal(t, types.SIToFP, casts[0].(*tir.CastInstruction).Operation())
}

func TestErrors(t *testing.T) {
	unit := func(stmts ...ast.Stmt) *ast.TranslationUnit {
		fd := &ast.FuncDef{Name: "f", Typ: &ast.FuncType{Ret: voidT}, Body: &ast.CompoundStmt{Stmts: stmts}}
		return &ast.TranslationUnit{Name: "t", Funcs: []*ast.FuncDef{fd}}
	}

	_, err := Gen(unit(ast.Ident("nope", intT)), nil)
	require.Error(t, err)
	assert.True(t, IsInternal(err))
	assert.Contains(t, err.Error(), "function f")
	assert.Contains(t, err.Error(), "unresolved identifier nope")

	_, err = Gen(unit(ast.StrConst("hello")), nil)
	require.Error(t, err)
	assert.True(t, IsNotImplemented(err))
	assert.False(t, IsInternal(err))

	_, err = Gen(unit(ast.Call("missing", intT)), nil)
	assert.True(t, IsInternal(err))

	_, err = Gen(unit(&ast.JumpStmt{Kind: ast.Break}), nil)
	assert.True(t, IsInternal(err))

	variadic := &ast.FuncDef{Name: "v", Typ: &ast.FuncType{Ret: voidT, Variadic: true}}
	_, err = Gen(&ast.TranslationUnit{Name: "t", Funcs: []*ast.FuncDef{variadic}}, nil)
	assert.True(t, IsNotImplemented(err))
}

func TestGenerateUnits(t *testing.T) {
	units := make([]*ast.TranslationUnit, 8)
	want := make([]string, len(units))
	for i1 := range units {
		if i1%2 == 0 {
			units[i1] = scalarUnit()
		} else {
			units[i1] = scaleUnit()
		}
		want[i1] = genUnit(t, units[i1]).String()
	}

	mods, err := GenerateUnits(context.Background(), util.Options{Threads: 4}, units, nil)
	require.NoError(t, err)
	require.Len(t, mods, len(units))
	for i1, e1 := range mods {
		assert.Equal(t, want[i1], e1.String())
	}

	bad := &ast.FuncDef{Name: "f", Typ: &ast.FuncType{Ret: voidT},
		Body: &ast.CompoundStmt{Stmts: []ast.Stmt{ast.Ident("nope", intT)}}}
	units[3] = &ast.TranslationUnit{Name: "bad", Funcs: []*ast.FuncDef{bad}}
	_, err = GenerateUnits(context.Background(), util.Options{Threads: 2}, units, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit bad")
	assert.True(t, IsInternal(err))
}

package codegen

import (
	"tlc/src/ast"
	"tlc/src/ir/tir"
	"tlc/src/ir/tir/types"
)

// lowerExpr lowers the expression e and returns its value.
func (g *Generator) lowerExpr(e ast.Expr) (tir.Value, error) {
	switch x := e.(type) {
	case *ast.BinaryOp:
		return g.genBinaryOp(x)
	case *ast.UnaryOp:
		return g.genUnaryOp(x)
	case *ast.TransOp:
		return g.genTransOp(x)
	case *ast.ConditionalOp:
		return g.genConditionalOp(x)
	case *ast.FuncCall:
		return g.genFuncCall(x)
	case *ast.Object:
		return g.genName(x.Name)
	case *ast.Identifier:
		return g.genName(x.Name)
	case *ast.Enumerator:
		t, err := g.irType(x.Typ)
		if err != nil {
			return nil, err
		}
		return g.mod.ConstInt(t, x.Value), nil
	case *ast.Constant:
		return g.genConstant(x)
	case *ast.TempVar:
		return g.genTempVar(x)
	case nil:
		return nil, internalf("missing expression")
	}
	return nil, internalf("unexpected expression %s", ast.Describe(e))
}

// genName returns the value bound to name. Storage is loaded.
func (g *Generator) genName(name string) (tir.Value, error) {
	b, _, ok := g.lookup(name)
	if !ok {
		return nil, internalf("unresolved identifier %s", name)
	}
	if b.storage {
		return g.bld.CreateLoad(b.val), nil
	}
	return b.val, nil
}

// genConstant returns the constant of literal c.
func (g *Generator) genConstant(c *ast.Constant) (tir.Value, error) {
	if c.IsStr {
		return nil, notImplementedf("string literal %q", c.Str)
	}
	t, err := g.irType(c.Typ)
	if err != nil {
		return nil, err
	}
	switch {
	case types.IsTile(t):
		return nil, internalf("literal of tile type %s", c.Typ.String())
	case types.IsFloat(t):
		return g.mod.ConstFloat(t, c.Float), nil
	case types.IsInteger(t):
		return g.mod.ConstInt(t, c.Int), nil
	}
	return nil, internalf("literal of type %s", c.Typ.String())
}

// genTempVar lowers the initializer of the temporary on first use and reuses its value afterwards.
func (g *Generator) genTempVar(x *ast.TempVar) (tir.Value, error) {
	if b, _, ok := g.lookup(x.Name); ok && !b.storage {
		return b.val, nil
	}
	v, err := g.lowerExpr(x.Init)
	if err != nil {
		return nil, err
	}
	g.bindValue(x.Name, v)
	return v, nil
}

// ----------------------------
// ----- Binary operators -----
// ----------------------------

// genBinaryOp lowers a binary operation.
func (g *Generator) genBinaryOp(e *ast.BinaryOp) (tir.Value, error) {
	if e.Op.IsAssign() {
		return g.genAssign(e)
	}
	switch e.Op {
	case ast.Comma:
		if _, err := g.lowerExpr(e.LHS); err != nil {
			return nil, err
		}
		return g.lowerExpr(e.RHS)
	case ast.Ellipsis:
		first, fok := e.LHS.(*ast.Constant)
		last, lok := e.RHS.(*ast.Constant)
		if !fok || !lok || last.Int <= first.Int {
			return nil, internalf("range bounds are not increasing integer constants")
		}
		return g.mod.Range(first.Int, last.Int), nil
	case ast.MaskedDeref:
		return g.genMaskedLoad(e.LHS, e.RHS, nil, e.Typ)
	case ast.Subscript, ast.Member:
		addr, err := g.genAddr(e)
		if err != nil {
			return nil, err
		}
		return g.bld.CreateLoad(addr), nil
	case ast.LogicalAnd, ast.LogicalOr:
		return g.genLogical(e)
	case ast.MatMul:
		return g.genMatMul(e)
	}
	lhs, err := g.lowerExpr(e.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := g.lowerExpr(e.RHS)
	if err != nil {
		return nil, err
	}
	return g.genArith(e.Op, lhs, e.LHS.Type(), rhs, e.RHS.Type(), e.Typ)
}

// genArith combines the lowered operands lhs and rhs with the arithmetic, bitwise, comparison or pointer
// operator op. The operands are reconciled to the result type res first.
func (g *Generator) genArith(op ast.BinOpKind, lhs tir.Value, lt ast.Type, rhs tir.Value, rt ast.Type,
	res ast.Type) (tir.Value, error) {
	shape := ast.ShapeOf(res)
	lp, rp := ast.IsPointer(lt), ast.IsPointer(rt)
	switch {
	case op.IsComparison():
		return g.genCompare(op, lhs, lt, rhs, rt, shape)
	case lp && rp && op == ast.Sub:
		return g.genPtrDiff(lhs, lt, rhs, shape)
	case lp && (op == ast.Add || op == ast.Sub):
		return g.genPtrOffset(lhs, rhs, shape, op == ast.Sub)
	case rp && op == ast.Add:
		return g.genPtrOffset(rhs, lhs, shape, false)
	case lp || rp:
		return nil, internalf("operator %s on pointer operands", op.String())
	}
	lhs, err := g.GenSemCastOp(lhs, lt, res)
	if err != nil {
		return nil, err
	}
	rhs, err = g.GenSemCastOp(rhs, rt, res)
	if err != nil {
		return nil, err
	}
	aop, err := arithOp(op, res)
	if err != nil {
		return nil, err
	}
	return g.bld.CreateBinOp(aop, lhs, rhs), nil
}

// arithOp selects the instruction of op for operands of type t.
func arithOp(op ast.BinOpKind, t ast.Type) (types.ArithmeticOperation, error) {
	f, u := ast.IsFloat(t), ast.IsUnsigned(t)
	pick := func(fop, uop, sop types.ArithmeticOperation) types.ArithmeticOperation {
		switch {
		case f:
			return fop
		case u:
			return uop
		}
		return sop
	}
	switch op {
	case ast.Add:
		return pick(types.FAdd, types.Add, types.Add), nil
	case ast.Sub:
		return pick(types.FSub, types.Sub, types.Sub), nil
	case ast.Mul:
		return pick(types.FMul, types.Mul, types.Mul), nil
	case ast.Div:
		return pick(types.FDiv, types.UDiv, types.SDiv), nil
	case ast.Mod:
		return pick(types.FRem, types.URem, types.SRem), nil
	}
	if f {
		return 0, internalf("operator %s on %s", op.String(), t.String())
	}
	switch op {
	case ast.Shl:
		return types.Shl, nil
	case ast.Shr:
		if u {
			return types.LShr, nil
		}
		return types.AShr, nil
	case ast.And:
		return types.And, nil
	case ast.Or:
		return types.Or, nil
	case ast.Xor:
		return types.Xor, nil
	}
	return 0, internalf("unexpected arithmetic operator %s", op.String())
}

// genCompare compares lhs and rhs after reconciling them to their common type and the shape shape.
func (g *Generator) genCompare(op ast.BinOpKind, lhs tir.Value, lt ast.Type, rhs tir.Value, rt ast.Type,
	shape []int) (tir.Value, error) {
	var common ast.Type
	if ast.IsPointer(lt) && ast.IsPointer(rt) {
		common = ast.ScalarOf(lt)
	} else {
		at, aok := ast.ArithOf(lt)
		bt, bok := ast.ArithOf(rt)
		if !aok || !bok {
			return nil, internalf("cannot compare %s and %s", lt.String(), rt.String())
		}
		common = ast.UsualArithConv(at, bt)
	}
	ct := ast.WithShape(common, shape)
	lhs, err := g.GenSemCastOp(lhs, lt, ct)
	if err != nil {
		return nil, err
	}
	rhs, err = g.GenSemCastOp(rhs, rt, ct)
	if err != nil {
		return nil, err
	}
	pred, err := cmpPred(op, common)
	if err != nil {
		return nil, err
	}
	return g.bld.CreateCmp(pred, lhs, rhs), nil
}

// cmpPred selects the predicate of the comparison op on operands of type t. Pointers compare unsigned.
func cmpPred(op ast.BinOpKind, t ast.Type) (types.CmpPredicate, error) {
	var preds [6]types.CmpPredicate
	switch {
	case ast.IsFloat(t):
		preds = [6]types.CmpPredicate{types.FCmpOEQ, types.FCmpONE, types.FCmpOLT, types.FCmpOLE, types.FCmpOGT,
			types.FCmpOGE}
	case ast.IsUnsigned(t) || ast.IsPointer(t) || ast.IsBool(t):
		preds = [6]types.CmpPredicate{types.ICmpEQ, types.ICmpNE, types.ICmpULT, types.ICmpULE, types.ICmpUGT,
			types.ICmpUGE}
	default:
		preds = [6]types.CmpPredicate{types.ICmpEQ, types.ICmpNE, types.ICmpSLT, types.ICmpSLE, types.ICmpSGT,
			types.ICmpSGE}
	}
	if !op.IsComparison() {
		return 0, internalf("unexpected comparison operator %s", op.String())
	}
	return preds[op-ast.Eq], nil
}

// genPtrOffset offsets ptr by idx elements, or by -idx if neg is set, broadcasting both to shape.
func (g *Generator) genPtrOffset(ptr, idx tir.Value, shape []int, neg bool) (tir.Value, error) {
	var err error
	if len(shape) > 0 {
		if idx, err = g.GenBroadcastOp(idx, shape); err != nil {
			return nil, err
		}
		if types.IsTile(ptr.DataType()) {
			if ptr, err = g.GenBroadcastOp(ptr, shape); err != nil {
				return nil, err
			}
		}
	}
	if !types.IsInteger(idx.DataType()) {
		return nil, internalf("pointer offset of type %s", idx.DataType().String())
	}
	if neg {
		idx = g.bld.CreateBinOp(types.Sub, g.zeroLike(idx), idx)
	}
	return g.bld.CreateGEP(ptr, idx), nil
}

// genPtrDiff returns the number of elements between the pointers lhs and rhs as a long.
func (g *Generator) genPtrDiff(lhs tir.Value, lt ast.Type, rhs tir.Value, shape []int) (tir.Value, error) {
	long := ast.WithShape(ast.Arith(ast.Long), shape)
	lt = ast.WithShape(lt, shape)
	var err error
	if lhs, err = g.GenSemCastOp(lhs, ast.ScalarOf(lt), long); err != nil {
		return nil, err
	}
	if rhs, err = g.GenSemCastOp(rhs, ast.ScalarOf(lt), long); err != nil {
		return nil, err
	}
	diff := g.bld.CreateBinOp(types.Sub, lhs, rhs)
	size := ast.ScalarOf(lt).(*ast.PointerType).Elem.Size()
	if size == 1 {
		return diff, nil
	}
	return g.bld.CreateBinOp(types.SDiv, diff, g.constLike(diff, int64(size))), nil
}

// genLogical lowers && and || over the truth values of both operands. Both operands are evaluated.
func (g *Generator) genLogical(e *ast.BinaryOp) (tir.Value, error) {
	shape := ast.ShapeOf(e.Typ)
	ops := make([]tir.Value, 2)
	for i1, e1 := range []ast.Expr{e.LHS, e.RHS} {
		v, err := g.lowerExpr(e1)
		if err != nil {
			return nil, err
		}
		if v, err = g.genTruth(v, e1.Type()); err != nil {
			return nil, err
		}
		if ops[i1], err = g.GenBroadcastOp(v, shape); err != nil {
			return nil, err
		}
	}
	if e.Op == ast.LogicalAnd {
		return g.bld.CreateBinOp(types.And, ops[0], ops[1]), nil
	}
	return g.bld.CreateBinOp(types.Or, ops[0], ops[1]), nil
}

// genMatMul lowers a @ b to a dot product accumulated onto a zero tile.
func (g *Generator) genMatMul(e *ast.BinaryOp) (tir.Value, error) {
	elem := ast.ScalarOf(e.Typ)
	ops := make([]tir.Value, 2)
	for i1, e1 := range []ast.Expr{e.LHS, e.RHS} {
		v, err := g.lowerExpr(e1)
		if err != nil {
			return nil, err
		}
		if ops[i1], err = g.GenNumcastOp(v, e1.Type(), ast.WithShape(elem, ast.ShapeOf(e1.Type()))); err != nil {
			return nil, err
		}
	}
	et, err := g.irType(elem)
	if err != nil {
		return nil, err
	}
	acc := g.bld.CreateSplat(g.mod.NullValue(et), ast.ShapeOf(e.Typ))
	return g.bld.CreateDot(ops[0], ops[1], acc), nil
}

// genMaskedLoad loads through ptrExpr where maskExpr holds. Elsewhere the result is fill, or undef if fill is
// <nil>. Mask and pointers are broadcast to the shape of res.
func (g *Generator) genMaskedLoad(maskExpr, ptrExpr, fillExpr ast.Expr, res ast.Type) (tir.Value, error) {
	shape := ast.ShapeOf(res)
	mask, err := g.lowerExpr(maskExpr)
	if err != nil {
		return nil, err
	}
	if mask, err = g.genTruth(mask, maskExpr.Type()); err != nil {
		return nil, err
	}
	if mask, err = g.GenBroadcastOp(mask, shape); err != nil {
		return nil, err
	}
	ptr, err := g.lowerExpr(ptrExpr)
	if err != nil {
		return nil, err
	}
	if ptr, err = g.GenBroadcastOp(ptr, shape); err != nil {
		return nil, err
	}
	rt, err := g.irType(res)
	if err != nil {
		return nil, err
	}
	var fill tir.Value = g.mod.Undef(rt)
	if fillExpr != nil {
		if fill, err = g.lowerExpr(fillExpr); err != nil {
			return nil, err
		}
		if fill, err = g.GenSemCastOp(fill, fillExpr.Type(), res); err != nil {
			return nil, err
		}
	}
	return g.bld.CreateMaskedLoad(ptr, mask, fill), nil
}

// ---------------------------
// ----- Unary operators -----
// ---------------------------

// genUnaryOp lowers a unary operation.
func (g *Generator) genUnaryOp(e *ast.UnaryOp) (tir.Value, error) {
	switch e.Op {
	case ast.PreInc, ast.PreDec, ast.PostInc, ast.PostDec:
		return g.genIncDec(e)
	case ast.Addr:
		return g.genAddrOf(e)
	}
	v, err := g.lowerExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	ot := e.Operand.Type()
	switch e.Op {
	case ast.Neg:
		if ast.IsPointer(ot) {
			return nil, internalf("negation of pointer %s", ot.String())
		}
		if ast.IsFloat(ot) {
			return g.bld.CreateBinOp(types.FSub, g.zeroLike(v), v), nil
		}
		return g.bld.CreateBinOp(types.Sub, g.zeroLike(v), v), nil
	case ast.BitNot:
		return g.bld.CreateBinOp(types.Xor, v, g.constLike(v, -1)), nil
	case ast.LogicalNot:
		if ast.IsPointer(ot) {
			v = g.bld.CreateCast(types.PtrToInt, v, g.ctx.TileSameShape(g.ctx.Int64(), v.DataType()))
		}
		if types.IsFloat(v.DataType()) {
			return g.bld.CreateCmp(types.FCmpOEQ, v, g.zeroLike(v)), nil
		}
		return g.bld.CreateCmp(types.ICmpEQ, v, g.zeroLike(v)), nil
	case ast.Deref:
		if !types.IsPointer(v.DataType()) {
			return nil, internalf("dereference of %s", ot.String())
		}
		return g.bld.CreateLoad(v), nil
	case ast.Cast:
		return g.GenSemCastOp(v, ot, e.Typ)
	case ast.BitCast:
		return g.GenBitCastOp(v, e.Typ)
	case ast.Exp:
		return g.bld.CreateMath(types.Exp, v), nil
	case ast.Log:
		return g.bld.CreateMath(types.Log, v), nil
	case ast.Sqrt:
		return g.bld.CreateMath(types.Sqrt, v), nil
	case ast.Reduce:
		return g.genReduce(e.Reduce, v, ot, e.Axis)
	}
	return nil, internalf("unexpected unary operator %s", e.Op.String())
}

// genReduce reduces the tile v of type t along axis.
func (g *Generator) genReduce(kind ast.ReduceKind, v tir.Value, t ast.Type, axis int) (tir.Value, error) {
	if !types.IsTile(v.DataType()) {
		return nil, internalf("reduction of scalar %s", t.String())
	}
	f, u := ast.IsFloat(t), ast.IsUnsigned(t)
	var op types.ReduceOperation
	switch {
	case kind == ast.ReduceSum && f:
		op = types.ReduceFAdd
	case kind == ast.ReduceSum:
		op = types.ReduceAdd
	case kind == ast.ReduceMax && f:
		op = types.ReduceFMax
	case kind == ast.ReduceMax && u:
		op = types.ReduceUMax
	case kind == ast.ReduceMax:
		op = types.ReduceMax
	case kind == ast.ReduceMin && f:
		op = types.ReduceFMin
	case kind == ast.ReduceMin && u:
		op = types.ReduceUMin
	case kind == ast.ReduceMin:
		op = types.ReduceMin
	default:
		return nil, internalf("unexpected reduction %s", kind.String())
	}
	return g.bld.CreateReduce(op, v, axis), nil
}

// genIncDec lowers ++ and --: one load, one add, sub or pointer offset, and one store through the assignment path.
// Prefix forms yield the new value, postfix forms the old one.
func (g *Generator) genIncDec(e *ast.UnaryOp) (tir.Value, error) {
	tg, err := g.assigner.resolve(e.Operand)
	if err != nil {
		return nil, err
	}
	old, err := g.assigner.load(tg)
	if err != nil {
		return nil, err
	}
	dec := e.Op == ast.PreDec || e.Op == ast.PostDec
	var upd tir.Value
	switch {
	case types.IsPointer(old.DataType()):
		step := int64(1)
		if dec {
			step = -1
		}
		idx := g.mod.ConstInt(g.ctx.Int64(), step)
		if shape := types.Shape(old.DataType()); len(shape) > 0 {
			upd = g.bld.CreateGEP(old, g.bld.CreateSplat(idx, shape))
		} else {
			upd = g.bld.CreateGEP(old, idx)
		}
	case types.IsFloat(old.DataType()):
		op := types.FAdd
		if dec {
			op = types.FSub
		}
		upd = g.bld.CreateBinOp(op, old, g.constLike(old, 1))
	default:
		op := types.Add
		if dec {
			op = types.Sub
		}
		upd = g.bld.CreateBinOp(op, old, g.constLike(old, 1))
	}
	g.assigner.store(tg, upd)
	if e.Op == ast.PostInc || e.Op == ast.PostDec {
		return old, nil
	}
	return upd, nil
}

// genAddrOf returns the address of the operand of e, typed like the pointer e yields.
func (g *Generator) genAddrOf(e *ast.UnaryOp) (tir.Value, error) {
	addr, err := g.genAddr(e.Operand)
	if err != nil {
		return nil, err
	}
	t, err := g.irType(e.Typ)
	if err != nil {
		return nil, err
	}
	if addr.DataType() != t {
		return g.bld.CreateCast(types.BitCast, addr, t), nil
	}
	return addr, nil
}

// genAddr returns the address of the lvalue e.
func (g *Generator) genAddr(e ast.Expr) (tir.Value, error) {
	switch x := e.(type) {
	case *ast.Identifier:
		return g.storageOf(x.Name)
	case *ast.Object:
		return g.storageOf(x.Name)
	case *ast.UnaryOp:
		if x.Op == ast.Deref {
			return g.lowerExpr(x.Operand)
		}
	case *ast.BinaryOp:
		switch x.Op {
		case ast.Subscript:
			return g.genElemAddr(x)
		case ast.Member:
			return g.genFieldAddr(x)
		}
	}
	return nil, internalf("%s cannot be lvalue", construct(e))
}

// storageOf returns the storage address bound to name.
func (g *Generator) storageOf(name string) (tir.Value, error) {
	b, _, ok := g.lookup(name)
	switch {
	case !ok:
		return nil, internalf("unresolved identifier %s", name)
	case !b.storage:
		return nil, internalf("%s has no storage", name)
	}
	return b.val, nil
}

// genElemAddr returns the address of the element selected by subscript e.
func (g *Generator) genElemAddr(e *ast.BinaryOp) (tir.Value, error) {
	if _, ok := e.LHS.Type().(*ast.ArrayType); ok {
		base, err := g.genAddr(e.LHS)
		if err != nil {
			return nil, err
		}
		idx, err := g.lowerExpr(e.RHS)
		if err != nil {
			return nil, err
		}
		return g.bld.CreateArrayGEP(base, idx), nil
	}
	ptr, err := g.lowerExpr(e.LHS)
	if err != nil {
		return nil, err
	}
	idx, err := g.lowerExpr(e.RHS)
	if err != nil {
		return nil, err
	}
	return g.genPtrOffset(ptr, idx, ast.ShapeOf(e.Typ), false)
}

// genFieldAddr returns the address of the field selected by member access e.
func (g *Generator) genFieldAddr(e *ast.BinaryOp) (tir.Value, error) {
	st, ok := e.LHS.Type().(*ast.StructType)
	id, iok := e.RHS.(*ast.Identifier)
	if !ok || !iok {
		return nil, internalf("member access on %s", e.LHS.Type().String())
	}
	i, ok := st.FieldIndex(id.Name)
	if !ok {
		return nil, internalf("%s has no field %s", st.String(), id.Name)
	}
	base, err := g.genAddr(e.LHS)
	if err != nil {
		return nil, err
	}
	return g.bld.CreateStructGEP(base, i), nil
}

// ------------------------------
// ----- Other expressions ------
// ------------------------------

// genTransOp permutes the dimensions of a tile, or reshapes it when no permutation is given.
func (g *Generator) genTransOp(e *ast.TransOp) (tir.Value, error) {
	v, err := g.lowerExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	if !types.IsTile(v.DataType()) {
		return nil, internalf("trans of scalar %s", e.Operand.Type().String())
	}
	if len(e.Perm) == 0 {
		return g.bld.CreateReshape(v, ast.ShapeOf(e.Typ)), nil
	}
	return g.bld.CreateTrans(v, e.Perm), nil
}

// genConditionalOp lowers cond ? then : else to a select. If then dereferences a pointer, the load is masked by
// the condition and else is the fill value.
func (g *Generator) genConditionalOp(e *ast.ConditionalOp) (tir.Value, error) {
	if d, ok := e.Then.(*ast.UnaryOp); ok && d.Op == ast.Deref {
		return g.genMaskedLoad(e.Cond, d.Operand, e.Else, e.Typ)
	}
	return g.genSelect(e.Cond, e.Then, e.Else, e.Typ)
}

// genSelect evaluates cond, t and f and picks t where cond holds. All three are reconciled to res.
func (g *Generator) genSelect(cond, t, f ast.Expr, res ast.Type) (tir.Value, error) {
	c, err := g.lowerExpr(cond)
	if err != nil {
		return nil, err
	}
	if c, err = g.genTruth(c, cond.Type()); err != nil {
		return nil, err
	}
	if c, err = g.GenBroadcastOp(c, ast.ShapeOf(res)); err != nil {
		return nil, err
	}
	ops := make([]tir.Value, 2)
	for i1, e1 := range []ast.Expr{t, f} {
		v, err := g.lowerExpr(e1)
		if err != nil {
			return nil, err
		}
		if ops[i1], err = g.GenSemCastOp(v, e1.Type(), res); err != nil {
			return nil, err
		}
	}
	return g.bld.CreateSelect(c, ops[0], ops[1]), nil
}

// construct names the kind of node e for diagnostics.
func construct(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.BinaryOp:
		return "binary operator " + x.Op.String()
	case *ast.UnaryOp:
		return "unary operator " + x.Op.String()
	case *ast.TransOp:
		return "trans"
	case *ast.ConditionalOp:
		return "conditional"
	case *ast.FuncCall:
		return "call of " + x.Callee
	case *ast.Constant:
		return "constant"
	case *ast.Enumerator:
		return "enumerator " + x.Name
	case *ast.TempVar:
		return "temporary " + x.Name
	}
	return "expression"
}

package codegen

import (
	"slices"

	"tlc/src/ast"
	"tlc/src/ir/tir"
	"tlc/src/ir/tir/types"
)

// GenBroadcastOp gives v the tile shape shape. Scalars are splatted; lower rank tiles are reshaped with leading
// ones before dimensions of extent one are broadcast. v is returned unchanged if it already has the shape.
func (g *Generator) GenBroadcastOp(v tir.Value, shape []int) (tir.Value, error) {
	src := types.Shape(v.DataType())
	switch {
	case slices.Equal(src, shape):
		return v, nil
	case len(shape) == 0:
		return nil, internalf("cannot broadcast %s to a scalar", v.DataType().String())
	case len(src) == 0:
		return g.bld.CreateSplat(v, shape), nil
	case len(src) > len(shape):
		return nil, internalf("cannot broadcast %s to %s", v.DataType().String(), types.ShapeString(shape))
	}
	padded := ast.PadShape(src, len(shape))
	for i1, e1 := range padded {
		if e1 != shape[i1] && e1 != 1 {
			return nil, internalf("cannot broadcast %s to %s", v.DataType().String(), types.ShapeString(shape))
		}
	}
	if len(src) < len(shape) {
		v = g.bld.CreateReshape(v, padded)
	}
	if slices.Equal(padded, shape) {
		return v, nil
	}
	return g.bld.CreateBroadcast(v, shape), nil
}

// GenNumcastOp converts the scalars of v from the scalar type of src to the scalar type of dst. The shape of v is
// kept. Conversions to bool compare against zero.
func (g *Generator) GenNumcastOp(v tir.Value, src, dst ast.Type) (tir.Value, error) {
	st, dt := ast.ScalarOf(src), ast.ScalarOf(dst)
	sir, err := g.irType(st)
	if err != nil {
		return nil, err
	}
	dir, err := g.irType(dt)
	if err != nil {
		return nil, err
	}
	if sir == dir {
		return v, nil
	}
	typ := g.ctx.TileSameShape(dir, v.DataType())
	sp, dp := ast.IsPointer(st), ast.IsPointer(dt)
	switch {
	case ast.IsBool(dt):
		return g.genTruth(v, st)
	case sp && dp:
		return g.bld.CreateCast(types.BitCast, v, typ), nil
	case sp && ast.IsInteger(dt):
		return g.bld.CreateCast(types.PtrToInt, v, typ), nil
	case ast.IsInteger(st) && dp:
		return g.bld.CreateCast(types.IntToPtr, v, typ), nil
	case ast.IsInteger(st) && ast.IsInteger(dt):
		sb, db := types.BitWidth(sir), types.BitWidth(dir)
		switch {
		case sb > db:
			return g.bld.CreateCast(types.Trunc, v, typ), nil
		case sb == db:
			return v, nil
		case ast.IsUnsigned(st) || ast.IsBool(st):
			return g.bld.CreateCast(types.ZExt, v, typ), nil
		}
		return g.bld.CreateCast(types.SExt, v, typ), nil
	case ast.IsInteger(st) && ast.IsFloat(dt):
		if ast.IsUnsigned(st) || ast.IsBool(st) {
			return g.bld.CreateCast(types.UIToFP, v, typ), nil
		}
		return g.bld.CreateCast(types.SIToFP, v, typ), nil
	case ast.IsFloat(st) && ast.IsInteger(dt):
		if ast.IsUnsigned(dt) {
			return g.bld.CreateCast(types.FPToUI, v, typ), nil
		}
		return g.bld.CreateCast(types.FPToSI, v, typ), nil
	case ast.IsFloat(st) && ast.IsFloat(dt):
		if types.BitWidth(sir) > types.BitWidth(dir) {
			return g.bld.CreateCast(types.FPTrunc, v, typ), nil
		}
		return g.bld.CreateCast(types.FPExt, v, typ), nil
	}
	return nil, internalf("cannot convert %s to %s", src.String(), dst.String())
}

// GenSemCastOp converts v of type src to type dst: a broadcast to the shape of dst followed by a numeric cast.
func (g *Generator) GenSemCastOp(v tir.Value, src, dst ast.Type) (tir.Value, error) {
	v, err := g.GenBroadcastOp(v, ast.ShapeOf(dst))
	if err != nil {
		return nil, err
	}
	return g.GenNumcastOp(v, ast.WithShape(src, ast.ShapeOf(dst)), dst)
}

// GenBitCastOp reinterprets the bits of v as type dst, which must have the bit width of v.
func (g *Generator) GenBitCastOp(v tir.Value, dst ast.Type) (tir.Value, error) {
	dt, err := g.irType(ast.ScalarOf(dst))
	if err != nil {
		return nil, err
	}
	st := types.Scalar(v.DataType())
	if st == dt {
		return v, nil
	}
	if types.BitWidth(st) != types.BitWidth(dt) {
		return nil, internalf("bitcast between %s and %s of different width", st.String(), dt.String())
	}
	return g.bld.CreateCast(types.BitCast, v, g.ctx.TileSameShape(dt, v.DataType())), nil
}

// genTruth converts v of scalar type src to i1 by comparing it against zero. Booleans are returned unchanged.
func (g *Generator) genTruth(v tir.Value, src ast.Type) (tir.Value, error) {
	s := ast.ScalarOf(src)
	switch {
	case ast.IsBool(s):
		return v, nil
	case ast.IsPointer(s):
		v = g.bld.CreateCast(types.PtrToInt, v, g.ctx.TileSameShape(g.ctx.Int64(), v.DataType()))
		return g.bld.CreateCmp(types.ICmpNE, v, g.zeroLike(v)), nil
	case ast.IsFloat(s):
		return g.bld.CreateCmp(types.FCmpONE, v, g.zeroLike(v)), nil
	case ast.IsInteger(s):
		return g.bld.CreateCmp(types.ICmpNE, v, g.zeroLike(v)), nil
	}
	return nil, internalf("%s cannot be used as a condition", src.String())
}

// genCond lowers the scalar condition e to an i1.
func (g *Generator) genCond(e ast.Expr) (tir.Value, error) {
	if ast.IsTile(e.Type()) {
		return nil, internalf("condition of type %s is not scalar", e.Type().String())
	}
	v, err := g.lowerExpr(e)
	if err != nil {
		return nil, err
	}
	return g.genTruth(v, e.Type())
}

// constLike returns the constant c of the scalar type of v, splatted to the shape of v.
func (g *Generator) constLike(v tir.Value, c int64) tir.Value {
	st := types.Scalar(v.DataType())
	var k tir.Value
	if types.IsFloat(st) {
		k = g.mod.ConstFloat(st, float64(c))
	} else {
		k = g.mod.ConstInt(st, c)
	}
	if shape := types.Shape(v.DataType()); len(shape) > 0 {
		return g.bld.CreateSplat(k, shape)
	}
	return k
}

// zeroLike returns zero of the type of v.
func (g *Generator) zeroLike(v tir.Value) tir.Value {
	return g.constLike(v, 0)
}

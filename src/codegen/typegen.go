package codegen

import (
	"tlc/src/ast"
	"tlc/src/ir/tir/types"
)

// GenIRType lowers a surface type to its tile IR data type.
func GenIRType(t ast.Type, ctx *types.Context) (types.DataType, error) {
	switch st := t.(type) {
	case *ast.ArithmType:
		return GenIRArithmType(st, ctx)
	case *ast.VoidType:
		return ctx.Void(), nil
	case *ast.PointerType:
		return GenIRPointerType(st, ctx)
	case *ast.ArrayType:
		return GenIRArrayType(st, ctx)
	case *ast.TileType:
		return GenIRTileType(st, ctx)
	case *ast.FuncType:
		return GenIRFuncType(st, ctx)
	case *ast.StructType:
		return GenIRStructType(st, ctx)
	case nil:
		return nil, internalf("untyped expression")
	}
	return nil, internalf("unexpected type %s", t.String())
}

// GenIRArithmType lowers booleans to i1, integers to their bit width and floating point types to f16, f32 or f64.
func GenIRArithmType(t *ast.ArithmType, ctx *types.Context) (types.DataType, error) {
	switch t.Kind {
	case ast.Bool:
		return ctx.Int1(), nil
	case ast.Char, ast.UChar, ast.Short, ast.UShort, ast.Int, ast.UInt, ast.Long, ast.ULong:
		return ctx.Int(t.Kind.Bits()), nil
	case ast.Half, ast.Float, ast.Double:
		return ctx.Float(t.Kind.Bits()), nil
	}
	return nil, internalf("unexpected arithmetic type %s", t.String())
}

// GenIRArrayType lowers an array to an array of its lowered element type.
func GenIRArrayType(t *ast.ArrayType, ctx *types.Context) (types.DataType, error) {
	elem, err := GenIRType(t.Elem, ctx)
	if err != nil {
		return nil, err
	}
	return ctx.Array(elem, t.Len), nil
}

// GenIRTileType lowers a tile keeping its element type and full shape.
func GenIRTileType(t *ast.TileType, ctx *types.Context) (types.DataType, error) {
	elem, err := GenIRType(t.Elem, ctx)
	if err != nil {
		return nil, err
	}
	if len(t.Shape) == 0 {
		return nil, internalf("tile %s without shape", t.String())
	}
	return ctx.Tile(elem, t.Shape), nil
}

// GenIRFuncType lowers a function signature.
func GenIRFuncType(t *ast.FuncType, ctx *types.Context) (*types.FunctionType, error) {
	if t.Variadic {
		return nil, notImplementedf("variadic function type %s", t.String())
	}
	ret, err := GenIRType(t.Ret, ctx)
	if err != nil {
		return nil, err
	}
	params := make([]types.DataType, len(t.Params))
	for i1, e1 := range t.Params {
		if params[i1], err = GenIRType(e1, ctx); err != nil {
			return nil, err
		}
	}
	return ctx.Function(ret, params), nil
}

// GenIRPointerType lowers a pointer into global memory, or constant memory if the pointee is const qualified.
// Pointers to void point to i8.
func GenIRPointerType(t *ast.PointerType, ctx *types.Context) (types.DataType, error) {
	var elem types.DataType = ctx.Int(8)
	if !ast.IsVoid(t.Elem) {
		var err error
		if elem, err = GenIRType(t.Elem, ctx); err != nil {
			return nil, err
		}
	}
	if t.Const {
		return ctx.Pointer(elem, types.ConstantAddrSpace), nil
	}
	return ctx.Pointer(elem, types.GlobalAddrSpace), nil
}

// GenIRStructType lowers a struct keeping field order and the source byte offsets.
func GenIRStructType(t *ast.StructType, ctx *types.Context) (types.DataType, error) {
	fields := make([]types.DataType, len(t.Fields))
	for i1, e1 := range t.Fields {
		f, err := GenIRType(e1.Type, ctx)
		if err != nil {
			return nil, err
		}
		fields[i1] = f
	}
	return ctx.Struct(fields, t.Offsets(), t.Packed), nil
}

// irType lowers t in the generator's type context.
func (g *Generator) irType(t ast.Type) (types.DataType, error) {
	return GenIRType(t, g.ctx)
}

package codegen

import (
	"tlc/src/ast"
	"tlc/src/ir/tir"
	"tlc/src/ir/tir/types"
)

// reductions maps the reduction intrinsics to their operator.
var reductions = map[string]ast.ReduceKind{
	"sum": ast.ReduceSum,
	"max": ast.ReduceMax,
	"min": ast.ReduceMin,
}

// genFuncCall lowers a call of an intrinsic or of a function declared in the module.
func (g *Generator) genFuncCall(e *ast.FuncCall) (tir.Value, error) {
	switch e.Callee {
	case "get_program_id", "get_num_programs":
		if err := argCount(e, 1); err != nil {
			return nil, err
		}
		axis, err := constArg(e, 0)
		if err != nil {
			return nil, err
		}
		if axis < 0 || axis > 2 {
			return nil, internalf("%s: axis %d out of range", e.Callee, axis)
		}
		if e.Callee == "get_program_id" {
			return g.bld.CreateProgramId(axis), nil
		}
		return g.bld.CreateNumPrograms(axis), nil
	case "__debug_barrier":
		if err := argCount(e, 0); err != nil {
			return nil, err
		}
		return g.bld.CreateBarrier(), nil
	case "sqrtf", "exp", "log":
		if err := argCount(e, 1); err != nil {
			return nil, err
		}
		v, err := g.lowerExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
		if !types.IsFloat(v.DataType()) {
			return nil, internalf("%s of %s", e.Callee, e.Args[0].Type().String())
		}
		switch e.Callee {
		case "exp":
			return g.bld.CreateMath(types.Exp, v), nil
		case "log":
			return g.bld.CreateMath(types.Log, v), nil
		}
		return g.bld.CreateMath(types.Sqrt, v), nil
	case "select":
		if err := argCount(e, 3); err != nil {
			return nil, err
		}
		return g.genSelect(e.Args[0], e.Args[1], e.Args[2], e.Typ)
	case "atomic_cas", "atomic_xchg", "atomic_add":
		return g.genAtomic(e)
	case "max", "min", "sum":
		if len(e.Args) != 1 && len(e.Args) != 2 {
			return nil, internalf("%s: unexpected number of arguments %d", e.Callee, len(e.Args))
		}
		axis := 0
		if len(e.Args) == 2 {
			var err error
			if axis, err = constArg(e, 1); err != nil {
				return nil, err
			}
		}
		v, err := g.lowerExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
		return g.genReduce(reductions[e.Callee], v, e.Args[0].Type(), axis)
	}
	return g.genUserCall(e)
}

// genUserCall calls a function declared in the module with its arguments cast to the parameter types.
func (g *Generator) genUserCall(e *ast.FuncCall) (tir.Value, error) {
	fn, ok := g.mod.Function(e.Callee)
	fd, dok := g.protos[e.Callee]
	if !ok || !dok {
		return nil, internalf("call of undeclared function %s", e.Callee)
	}
	if err := argCount(e, len(fd.Typ.Params)); err != nil {
		return nil, err
	}
	args := make([]tir.Value, len(e.Args))
	for i1, e1 := range e.Args {
		v, err := g.lowerExpr(e1)
		if err != nil {
			return nil, err
		}
		if args[i1], err = g.GenSemCastOp(v, e1.Type(), fd.Typ.Params[i1]); err != nil {
			return nil, err
		}
	}
	return g.bld.CreateCall(fn, args), nil
}

// genAtomic lowers atomic_cas(ptr, cmp, val), atomic_xchg(ptr, val) and atomic_add(ptr, val). The operands are
// cast to the pointee type and the old value is returned.
func (g *Generator) genAtomic(e *ast.FuncCall) (tir.Value, error) {
	n := 2
	if e.Callee == "atomic_cas" {
		n = 3
	}
	if err := argCount(e, n); err != nil {
		return nil, err
	}
	ptr, err := g.lowerExpr(e.Args[0])
	if err != nil {
		return nil, err
	}
	if !types.IsPointer(ptr.DataType()) {
		return nil, internalf("%s through %s", e.Callee, e.Args[0].Type().String())
	}
	ops := make([]tir.Value, n-1)
	for i1, e1 := range e.Args[1:] {
		v, err := g.lowerExpr(e1)
		if err != nil {
			return nil, err
		}
		if ops[i1], err = g.GenSemCastOp(v, e1.Type(), e.Typ); err != nil {
			return nil, err
		}
	}
	switch {
	case e.Callee == "atomic_cas":
		return g.bld.CreateAtomic(types.AtomicCAS, ptr, ops[0], ops[1]), nil
	case e.Callee == "atomic_xchg":
		return g.bld.CreateAtomic(types.AtomicXchg, ptr, nil, ops[0]), nil
	case ast.IsFloat(e.Typ):
		return g.bld.CreateAtomic(types.AtomicFAdd, ptr, nil, ops[0]), nil
	}
	return g.bld.CreateAtomic(types.AtomicAdd, ptr, nil, ops[0]), nil
}

// argCount checks that e passes n arguments.
func argCount(e *ast.FuncCall, n int) error {
	if len(e.Args) != n {
		return internalf("%s: expected %d arguments, got %d", e.Callee, n, len(e.Args))
	}
	return nil
}

// constArg returns argument i of e, which must be an integer constant.
func constArg(e *ast.FuncCall, i int) (int, error) {
	c, ok := e.Args[i].(*ast.Constant)
	if !ok || c.IsStr || !ast.IsInteger(c.Typ) {
		return 0, internalf("%s: argument %d must be an integer constant", e.Callee, i)
	}
	return int(c.Int), nil
}

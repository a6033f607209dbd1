package codegen

import (
	"tlc/src/ast"
	"tlc/src/ir/tir"
)

// LValueAssigner stores values into assignment targets.
type LValueAssigner struct {
	g *Generator // Generator owning the builder and scopes.
}

// target is an assignment target whose address subexpressions have been evaluated once.
type target struct {
	addr  tir.Value // Address or tile of addresses stored through, <nil> for a value binding.
	mask  tir.Value // Predicate of a masked store, <nil> if unmasked.
	name  string    // Name of a value binding.
	frame *scope    // Frame defining the value binding.
	val   tir.Value // Current value of the value binding.
	typ   ast.Type  // Type of the target.
}

// Assign stores v, already of the type of lv, into lv and returns v. Nodes that do not denote an lvalue are
// rejected without emitting a store.
func (a *LValueAssigner) Assign(lv ast.Expr, v tir.Value) (tir.Value, error) {
	tg, err := a.resolve(lv)
	if err != nil {
		return nil, err
	}
	return a.store(tg, v), nil
}

// resolve evaluates the address of lv.
func (a *LValueAssigner) resolve(lv ast.Expr) (target, error) {
	g := a.g
	switch x := lv.(type) {
	case *ast.Identifier:
		return a.resolveName(x.Name, lv.Type())
	case *ast.Object:
		return a.resolveName(x.Name, lv.Type())
	case *ast.UnaryOp:
		if x.Op != ast.Deref {
			break
		}
		ptr, err := g.lowerExpr(x.Operand)
		if err != nil {
			return target{}, err
		}
		return target{addr: ptr, typ: lv.Type()}, nil
	case *ast.BinaryOp:
		switch x.Op {
		case ast.Subscript, ast.Member:
			addr, err := g.genAddr(x)
			if err != nil {
				return target{}, err
			}
			return target{addr: addr, typ: lv.Type()}, nil
		case ast.MaskedDeref:
			return a.resolveMasked(x)
		}
	}
	return target{}, internalf("%s cannot be lvalue", construct(lv))
}

// resolveName returns the storage of name, or its value binding and defining frame.
func (a *LValueAssigner) resolveName(name string, t ast.Type) (target, error) {
	b, sc, ok := a.g.lookup(name)
	switch {
	case !ok:
		return target{}, internalf("unresolved identifier %s", name)
	case b.storage:
		return target{addr: b.val, typ: t}, nil
	}
	return target{name: name, frame: sc, val: b.val, typ: t}, nil
}

// resolveMasked evaluates the mask and the pointers of mask ?* ptr, both broadcast to the shape of x.
func (a *LValueAssigner) resolveMasked(x *ast.BinaryOp) (target, error) {
	g := a.g
	shape := ast.ShapeOf(x.Typ)
	mask, err := g.lowerExpr(x.LHS)
	if err != nil {
		return target{}, err
	}
	if mask, err = g.genTruth(mask, x.LHS.Type()); err != nil {
		return target{}, err
	}
	if mask, err = g.GenBroadcastOp(mask, shape); err != nil {
		return target{}, err
	}
	ptr, err := g.lowerExpr(x.RHS)
	if err != nil {
		return target{}, err
	}
	if ptr, err = g.GenBroadcastOp(ptr, shape); err != nil {
		return target{}, err
	}
	return target{addr: ptr, mask: mask, typ: x.Typ}, nil
}

// load returns the current value of tg. Masked targets yield undef where the mask is clear.
func (a *LValueAssigner) load(tg target) (tir.Value, error) {
	g := a.g
	switch {
	case tg.addr == nil:
		return tg.val, nil
	case tg.mask == nil:
		return g.bld.CreateLoad(tg.addr), nil
	}
	t, err := g.irType(tg.typ)
	if err != nil {
		return nil, err
	}
	return g.bld.CreateMaskedLoad(tg.addr, tg.mask, g.mod.Undef(t)), nil
}

// store writes v to tg, rebinding value bindings in their defining frame. v is returned.
func (a *LValueAssigner) store(tg target, v tir.Value) tir.Value {
	g := a.g
	switch {
	case tg.addr == nil:
		tg.frame.values[tg.name] = binding{val: v}
	case tg.mask != nil:
		g.bld.CreateMaskedStore(tg.addr, v, tg.mask)
	default:
		g.bld.CreateStore(tg.addr, v)
	}
	return v
}

// GenAssignOp casts rhs of type rt to the type of lvalue and stores it. The stored value is returned.
func (g *Generator) GenAssignOp(lvalue ast.Expr, rhs tir.Value, rt ast.Type) (tir.Value, error) {
	v, err := g.GenSemCastOp(rhs, rt, lvalue.Type())
	if err != nil {
		return nil, err
	}
	return g.assigner.Assign(lvalue, v)
}

// genAssign lowers = and the compound assignments. The right hand side is evaluated first; compound forms then
// evaluate the target address once, load through it and combine both.
func (g *Generator) genAssign(e *ast.BinaryOp) (tir.Value, error) {
	rhs, err := g.lowerExpr(e.RHS)
	if err != nil {
		return nil, err
	}
	op, compound := e.Op.Compound()
	if e.Op != ast.Assign && !compound {
		return nil, internalf("unexpected assignment operator %s", e.Op.String())
	}
	if !compound {
		return g.GenAssignOp(e.LHS, rhs, e.RHS.Type())
	}
	comb, err := ast.Binary(op, e.LHS, e.RHS)
	if err != nil {
		return nil, internalf("%v", err)
	}
	tg, err := g.assigner.resolve(e.LHS)
	if err != nil {
		return nil, err
	}
	cur, err := g.assigner.load(tg)
	if err != nil {
		return nil, err
	}
	v, err := g.genArith(op, cur, e.LHS.Type(), rhs, e.RHS.Type(), comb.Typ)
	if err != nil {
		return nil, err
	}
	if v, err = g.GenSemCastOp(v, comb.Typ, e.LHS.Type()); err != nil {
		return nil, err
	}
	return g.assigner.store(tg, v), nil
}

package ast

import (
	"fmt"
	"slices"
)

// ---------------------
// ----- Functions -----
// ---------------------

// Ident returns an identifier referencing name of type t.
func Ident(name string, t Type) *Identifier {
	return &Identifier{Name: name, Typ: t}
}

// IntConst returns an integer literal of kind k.
func IntConst(v int64, k ArithKind) *Constant {
	return &Constant{Int: v, Typ: Arith(k)}
}

// FloatConst returns a floating point literal of kind k.
func FloatConst(v float64, k ArithKind) *Constant {
	return &Constant{Float: v, Typ: Arith(k)}
}

// BoolConst returns a boolean literal.
func BoolConst(v bool) *Constant {
	c := &Constant{Typ: Arith(Bool)}
	if v {
		c.Int = 1
	}
	return c
}

// StrConst returns a string literal.
func StrConst(s string) *Constant {
	return &Constant{Str: s, IsStr: true, Typ: &PointerType{Elem: Arith(Char), Const: true}}
}

// Decl returns the declaration of obj initialized with init, if init is not <nil>.
func Decl(obj *Object, init Expr) *Declaration {
	d := &Declaration{Obj: obj}
	if init != nil {
		d.Inits = []Initializer{{Offset: 0, Typ: obj.Typ, Expr: init}}
	}
	return d
}

// Call returns a call of the function name returning ret.
func Call(name string, ret Type, args ...Expr) *FuncCall {
	return &FuncCall{Callee: name, Args: args, Typ: ret}
}

// CastTo returns the semantic cast of x to t.
func CastTo(x Expr, t Type) *UnaryOp {
	return &UnaryOp{Op: Cast, Operand: x, Typ: t}
}

// BitCastTo returns the reinterpretation of the bits of x as t.
func BitCastTo(x Expr, t Type) *UnaryOp {
	return &UnaryOp{Op: BitCast, Operand: x, Typ: t}
}

// Binary returns the binary operation lhs op rhs typed by the usual arithmetic conversions and tile broadcasting.
func Binary(op BinOpKind, lhs, rhs Expr) (*BinaryOp, error) {
	t, err := binaryType(op, lhs, rhs)
	if err != nil {
		return nil, fmt.Errorf("operator %s: %w", op.String(), err)
	}
	return &BinaryOp{Op: op, LHS: lhs, RHS: rhs, Typ: t}, nil
}

// MustBinary is like Binary but panics on ill-typed operands.
func MustBinary(op BinOpKind, lhs, rhs Expr) *BinaryOp {
	e, err := Binary(op, lhs, rhs)
	if err != nil {
		panic(err)
	}
	return e
}

// binaryType returns the result type of lhs op rhs.
func binaryType(op BinOpKind, lhs, rhs Expr) (Type, error) {
	lt, rt := lhs.Type(), rhs.Type()
	switch {
	case op.IsAssign() || op == Comma:
		if op == Comma {
			return rt, nil
		}
		return lt, nil
	case op == Ellipsis:
		lo, lok := lhs.(*Constant)
		hi, hok := rhs.(*Constant)
		if !lok || !hok || !IsInteger(lt) || !IsInteger(rt) || hi.Int <= lo.Int {
			return nil, fmt.Errorf("range bounds must be increasing integer constants")
		}
		return Tile(Arith(Int), int(hi.Int-lo.Int)), nil
	case op == MaskedDeref:
		pt, ok := ScalarOf(rt).(*PointerType)
		if !ok || !IsBool(lt) {
			return nil, fmt.Errorf("expected bool mask and pointer, got %s and %s", lt.String(), rt.String())
		}
		shape, err := BroadcastShape(ShapeOf(lt), ShapeOf(rt))
		if err != nil {
			return nil, err
		}
		return WithShape(pt.Elem, shape), nil
	case op == Subscript:
		switch bt := lt.(type) {
		case *ArrayType:
			return bt.Elem, nil
		case *PointerType:
			return WithShape(bt.Elem, ShapeOf(rt)), nil
		}
		return nil, fmt.Errorf("cannot subscript %s", lt.String())
	case op == Member:
		st, ok := lt.(*StructType)
		id, iok := rhs.(*Identifier)
		if !ok || !iok {
			return nil, fmt.Errorf("member access requires a struct and a field name")
		}
		i, ok := st.FieldIndex(id.Name)
		if !ok {
			return nil, fmt.Errorf("%s has no field %s", st.String(), id.Name)
		}
		return st.Fields[i].Type, nil
	case op == MatMul:
		sa, sb := ShapeOf(lt), ShapeOf(rt)
		if len(sa) != 2 || len(sb) != 2 || sa[1] != sb[0] {
			return nil, fmt.Errorf("incompatible matrix shapes %s and %s", lt.String(), rt.String())
		}
		at, aok := ArithOf(lt)
		bt, bok := ArithOf(rt)
		if !aok || !bok {
			return nil, fmt.Errorf("expected arithmetic tiles")
		}
		return Tile(UsualArithConv(at, bt), sa[0], sb[1]), nil
	}

	shape, err := BroadcastShape(ShapeOf(lt), ShapeOf(rt))
	if err != nil {
		return nil, err
	}
	if op.IsComparison() || op == LogicalAnd || op == LogicalOr {
		return WithShape(Arith(Bool), shape), nil
	}
	lp, rp := IsPointer(lt), IsPointer(rt)
	switch {
	case lp && rp && op == Sub:
		return WithShape(Arith(Long), shape), nil
	case lp && IsInteger(rt) && (op == Add || op == Sub):
		return WithShape(ScalarOf(lt), shape), nil
	case rp && IsInteger(lt) && op == Add:
		return WithShape(ScalarOf(rt), shape), nil
	}
	at, aok := ArithOf(lt)
	bt, bok := ArithOf(rt)
	if !aok || !bok {
		return nil, fmt.Errorf("invalid operands %s and %s", lt.String(), rt.String())
	}
	res := UsualArithConv(at, bt)
	if res.Kind.IsFloat() && (op == Shl || op == Shr || op == And || op == Or || op == Xor) {
		return nil, fmt.Errorf("bitwise operation on %s", res.String())
	}
	return WithShape(res, shape), nil
}

// Unary returns the unary operation op x. Casts and reductions use CastTo, BitCastTo and ReduceExpr.
func Unary(op UnaryOpKind, x Expr) (*UnaryOp, error) {
	t := x.Type()
	e := &UnaryOp{Op: op, Operand: x, Typ: t}
	switch op {
	case Neg, PreInc, PreDec, PostInc, PostDec:
		if _, ok := ArithOf(t); !ok && !IsPointer(t) {
			return nil, fmt.Errorf("operator %s: invalid operand %s", op.String(), t.String())
		}
	case BitNot:
		if !IsInteger(t) {
			return nil, fmt.Errorf("operator %s: invalid operand %s", op.String(), t.String())
		}
	case LogicalNot:
		e.Typ = WithShape(Arith(Bool), ShapeOf(t))
	case Deref:
		pt, ok := ScalarOf(t).(*PointerType)
		if !ok {
			return nil, fmt.Errorf("operator %s: cannot dereference %s", op.String(), t.String())
		}
		e.Typ = WithShape(pt.Elem, ShapeOf(t))
	case Addr:
		e.Typ = Pointer(t)
	case Exp, Log, Sqrt:
		if !IsFloat(t) {
			return nil, fmt.Errorf("operator %s: expected floating point operand, got %s", op.String(), t.String())
		}
	default:
		return nil, fmt.Errorf("operator %s requires a target type", op.String())
	}
	return e, nil
}

// MustUnary is like Unary but panics on ill-typed operands.
func MustUnary(op UnaryOpKind, x Expr) *UnaryOp {
	e, err := Unary(op, x)
	if err != nil {
		panic(err)
	}
	return e
}

// ReduceExpr returns the reduction of tile x along axis.
func ReduceExpr(kind ReduceKind, x Expr, axis int) (*UnaryOp, error) {
	shape := ShapeOf(x.Type())
	if axis < 0 || axis >= len(shape) {
		return nil, fmt.Errorf("reduce %s: axis %d out of range for %s", kind.String(), axis, x.Type().String())
	}
	res := slices.Delete(slices.Clone(shape), axis, axis+1)
	return &UnaryOp{Op: Reduce, Operand: x, Reduce: kind, Axis: axis, Typ: WithShape(x.Type(), res)}, nil
}

// Trans returns the permutation of tile x. A <nil> perm reverses the dimensions.
func Trans(x Expr, perm []int) (*TransOp, error) {
	shape := ShapeOf(x.Type())
	if perm == nil {
		perm = make([]int, len(shape))
		for i1 := range perm {
			perm[i1] = len(shape) - 1 - i1
		}
	}
	if len(perm) != len(shape) {
		return nil, fmt.Errorf("trans: permutation %v does not match %s", perm, x.Type().String())
	}
	res := make([]int, len(perm))
	for i1, e1 := range perm {
		if e1 < 0 || e1 >= len(shape) {
			return nil, fmt.Errorf("trans: invalid permutation %v", perm)
		}
		res[i1] = shape[e1]
	}
	return &TransOp{Operand: x, Perm: perm, Typ: Tile(x.Type(), res...)}, nil
}

// Reshape returns tile x reinterpreted with shape.
func Reshape(x Expr, shape []int) (*TransOp, error) {
	if NumElements(ShapeOf(x.Type())) != NumElements(shape) {
		return nil, fmt.Errorf("reshape: cannot reshape %s to %v", x.Type().String(), shape)
	}
	return &TransOp{Operand: x, Typ: Tile(x.Type(), shape...)}, nil
}

// Conditional returns cond ? t : e typed by the usual arithmetic conversions and tile broadcasting.
func Conditional(cond, t, e Expr) (*ConditionalOp, error) {
	shape, err := BroadcastShape(ShapeOf(cond.Type()), ShapeOf(t.Type()))
	if err == nil {
		shape, err = BroadcastShape(shape, ShapeOf(e.Type()))
	}
	if err != nil {
		return nil, fmt.Errorf("conditional: %w", err)
	}
	at, aok := ArithOf(t.Type())
	bt, bok := ArithOf(e.Type())
	var res Type
	switch {
	case aok && bok:
		res = UsualArithConv(at, bt)
	case Equal(ScalarOf(t.Type()), ScalarOf(e.Type())):
		res = ScalarOf(t.Type())
	default:
		return nil, fmt.Errorf("conditional: incompatible operands %s and %s", t.Type().String(), e.Type().String())
	}
	return &ConditionalOp{Cond: cond, Then: t, Else: e, Typ: WithShape(res, shape)}, nil
}

package ast

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------
// ----- Functions -----
// ---------------------

// Describe returns a print friendly one line description of Node n.
func Describe(n Node) string {
	switch e := n.(type) {
	case nil:
		return "---> NIL"
	case *BinaryOp:
		return fmt.Sprintf("BinaryOp [%s] : %s", e.Op.String(), typeString(e.Typ))
	case *UnaryOp:
		switch e.Op {
		case Reduce:
			return fmt.Sprintf("UnaryOp [reduce %s, axis %d] : %s", e.Reduce.String(), e.Axis, typeString(e.Typ))
		}
		return fmt.Sprintf("UnaryOp [%s] : %s", e.Op.String(), typeString(e.Typ))
	case *TransOp:
		if len(e.Perm) == 0 {
			return fmt.Sprintf("TransOp [reshape] : %s", typeString(e.Typ))
		}
		return fmt.Sprintf("TransOp %v : %s", e.Perm, typeString(e.Typ))
	case *ConditionalOp:
		return fmt.Sprintf("ConditionalOp : %s", typeString(e.Typ))
	case *FuncCall:
		return fmt.Sprintf("FuncCall [%q] : %s", e.Callee, typeString(e.Typ))
	case *Object:
		if len(e.Attrs) > 0 {
			attrs := make([]string, len(e.Attrs))
			for i1, e1 := range e.Attrs {
				attrs[i1] = e1.String()
			}
			return fmt.Sprintf("Object [%q] %s : %s", e.Name, strings.Join(attrs, " "), typeString(e.Typ))
		}
		return fmt.Sprintf("Object [%q] : %s", e.Name, typeString(e.Typ))
	case *Enumerator:
		return fmt.Sprintf("Enumerator [%q = %d] : %s", e.Name, e.Value, typeString(e.Typ))
	case *Identifier:
		return fmt.Sprintf("Identifier [%q] : %s", e.Name, typeString(e.Typ))
	case *Constant:
		switch {
		case e.IsStr:
			return fmt.Sprintf("Constant [%q] : %s", e.Str, typeString(e.Typ))
		case IsFloat(e.Typ):
			return fmt.Sprintf("Constant [%g] : %s", e.Float, typeString(e.Typ))
		}
		return fmt.Sprintf("Constant [%d] : %s", e.Int, typeString(e.Typ))
	case *TempVar:
		return fmt.Sprintf("TempVar [%q] : %s", e.Name, typeString(e.Type()))
	case *Declaration:
		return "Declaration"
	case *EmptyStmt:
		return "EmptyStmt"
	case *IfStmt:
		return "IfStmt"
	case *ForStmt:
		return "ForStmt"
	case *JumpStmt:
		if e.Kind == Goto {
			return fmt.Sprintf("JumpStmt [goto %q]", e.Label)
		}
		return fmt.Sprintf("JumpStmt [%s]", e.Kind.String())
	case *ReturnStmt:
		return "ReturnStmt"
	case *LabelStmt:
		return fmt.Sprintf("LabelStmt [%q]", e.Label)
	case *CompoundStmt:
		return "CompoundStmt"
	case *FuncDef:
		return fmt.Sprintf("FuncDef [%q] : %s", e.Name, typeString(e.Typ))
	case *TranslationUnit:
		return fmt.Sprintf("TranslationUnit [%q]", e.Name)
	}
	return fmt.Sprintf("---> UNKNOWN NODE [%T]", n)
}

// Children returns the child nodes of Node n in evaluation order. Absent optional children are <nil>.
func Children(n Node) []Node {
	switch e := n.(type) {
	case *BinaryOp:
		return []Node{e.LHS, e.RHS}
	case *UnaryOp:
		return []Node{e.Operand}
	case *TransOp:
		return []Node{e.Operand}
	case *ConditionalOp:
		return []Node{e.Cond, e.Then, e.Else}
	case *FuncCall:
		res := make([]Node, len(e.Args))
		for i1, e1 := range e.Args {
			res[i1] = e1
		}
		return res
	case *TempVar:
		return []Node{e.Init}
	case *Declaration:
		res := []Node{e.Obj}
		for _, e1 := range e.Inits {
			res = append(res, e1.Expr)
		}
		return res
	case *IfStmt:
		if e.Else == nil {
			return []Node{e.Cond, e.Then}
		}
		return []Node{e.Cond, e.Then, e.Else}
	case *ForStmt:
		return []Node{optional(e.Init), optionalExpr(e.Cond), optionalExpr(e.Step), e.Body}
	case *ReturnStmt:
		if e.Expr == nil {
			return nil
		}
		return []Node{e.Expr}
	case *LabelStmt:
		return []Node{e.Stmt}
	case *CompoundStmt:
		res := make([]Node, len(e.Stmts))
		for i1, e1 := range e.Stmts {
			res[i1] = e1
		}
		return res
	case *FuncDef:
		res := make([]Node, 0, len(e.Params)+1)
		for _, e1 := range e.Params {
			res = append(res, e1)
		}
		if e.Body != nil {
			res = append(res, e.Body)
		}
		return res
	case *TranslationUnit:
		res := make([]Node, len(e.Funcs))
		for i1, e1 := range e.Funcs {
			res[i1] = e1
		}
		return res
	}
	return nil
}

// Print recursively writes Node n and all its children to w while indenting for every recursive call.
// depth is the number of times nodes are padded to the right, having the root node with padding 0.
func Print(w io.Writer, n Node, depth int) {
	if depth < 0 {
		depth = 0
	}
	_, _ = fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), Describe(n))
	for _, e := range Children(n) {
		Print(w, e, depth+1)
	}
}

// typeString returns the spelling of t, tolerating <nil>.
func typeString(t Type) string {
	if t == nil {
		return "<untyped>"
	}
	return t.String()
}

// optional converts an absent statement into an untyped <nil> node.
func optional(s Stmt) Node {
	if s == nil {
		return nil
	}
	return s
}

// optionalExpr converts an absent expression into an untyped <nil> node.
func optionalExpr(e Expr) Node {
	if e == nil {
		return nil
	}
	return e
}

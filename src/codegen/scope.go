package codegen

import (
	"fmt"

	"tlc/src/ast"
	"tlc/src/ir/tir"
	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// binding is a value bound to a name. Storage bindings hold the address of the object and are loaded on use.
type binding struct {
	val     tir.Value // Bound value or storage address.
	storage bool      // Set true if val is the address of the object's storage.
}

// scope is one lexical frame. Types and values are independent namespaces.
type scope struct {
	types  map[string]types.DataType // Lowered types of the objects declared in the frame.
	values map[string]binding        // Values bound in the frame.
}

// ---------------------
// ----- Functions -----
// ---------------------

// pushScope opens a new lexical frame and returns the function that closes it. Use as defer g.pushScope()().
func (g *Generator) pushScope() func() {
	g.scopes.Push(&scope{
		types:  make(map[string]types.DataType, 8),
		values: make(map[string]binding, 8),
	})
	depth := g.scopes.Size()
	return func() {
		if g.scopes.Size() != depth {
			panic(fmt.Sprintf("unbalanced scope: closing frame %d at depth %d", depth, g.scopes.Size()))
		}
		g.scopes.Pop()
	}
}

// current returns the innermost frame.
func (g *Generator) current() *scope {
	sc, _ := g.scopes.Peek()
	return sc
}

// lookup returns the binding of name, searching from the innermost frame outwards, and the frame it lives in.
func (g *Generator) lookup(name string) (binding, *scope, bool) {
	for i1 := 1; i1 <= g.scopes.Size(); i1++ {
		sc, _ := g.scopes.Get(i1)
		if b, ok := sc.values[name]; ok {
			return b, sc, true
		}
	}
	return binding{}, nil, false
}

// lookupType returns the lowered type of the object name.
func (g *Generator) lookupType(name string) (types.DataType, bool) {
	for i1 := 1; i1 <= g.scopes.Size(); i1++ {
		sc, _ := g.scopes.Get(i1)
		if t, ok := sc.types[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// bindValue binds v to name in the innermost frame.
func (g *Generator) bindValue(name string, v tir.Value) {
	g.current().values[name] = binding{val: v}
}

// AllocObjects allocates storage for every object of a scope and binds their names in the innermost frame. If
// params is not <nil>, object i is a parameter and params[i] is stored into its storage.
func (g *Generator) AllocObjects(objs []*ast.Object, params []*tir.Param) error {
	for i1, e1 := range objs {
		name := e1.Name
		if params != nil {
			name += ".addr"
		}
		st, err := g.allocObject(e1, name)
		if err != nil {
			return err
		}
		if params != nil {
			g.bld.CreateStore(st, params[i1])
		}
	}
	return nil
}

// allocObject allocates storage named name for obj in the current function and binds obj in the innermost frame.
func (g *Generator) allocObject(obj *ast.Object, name string) (tir.Value, error) {
	t, err := g.irType(obj.Typ)
	if err != nil {
		return nil, err
	}
	st := g.bld.CreateAlloca(t, name)
	sc := g.current()
	sc.types[obj.Name] = t
	sc.values[obj.Name] = binding{val: st, storage: true}
	return st, nil
}

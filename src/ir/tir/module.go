package tir

import (
	"fmt"
	"strings"
	"sync"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Module defines a program that contains functions.
type Module struct {
	Name       string               // Name of module.
	ctx        *types.Context       // Data type context owning every type used by the module.
	functions  []*Function          // Functions in declaration order.
	fnIdx      map[string]*Function // Functions by name.
	seq        int                  // Sequence number used for assigning unique identifiers to every child of module.
	sync.Mutex                      // Mutex for synchronising access to the module.
}

// ---------------------
// ----- Functions -----
// ---------------------

// CreateModule creates a new empty module with the given optional name. A new type context is created if ctx is nil.
func CreateModule(name string, ctx *types.Context) *Module {
	if ctx == nil {
		ctx = types.NewContext()
	}
	m := Module{
		ctx:       ctx,
		functions: make([]*Function, 0, 8),
		fnIdx:     make(map[string]*Function, 8),
	}
	if len(name) > 0 {
		m.Name = name
	} else {
		m.Name = "module"
	}
	return &m
}

// Types returns the data type context of the module.
func (m *Module) Types() *types.Context {
	return m.ctx
}

// String returns a textual representation of the module.
func (m *Module) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("module %s\n", m.Name))
	for _, e1 := range m.functions {
		sb.WriteRune('\n')
		sb.WriteString(e1.String())
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Functions returns the functions of the module in declaration order.
func (m *Module) Functions() []*Function {
	return m.functions
}

// Function returns the function with the given name.
func (m *Module) Function(name string) (*Function, bool) {
	f, ok := m.fnIdx[name]
	return f, ok
}

// GetOrInsertFunction returns the function named name, creating a declaration of type typ if it does not exist.
// An existing function with a different type is a programming error.
func (m *Module) GetOrInsertFunction(name string, typ *types.FunctionType) *Function {
	m.Lock()
	defer m.Unlock()
	if f, ok := m.fnIdx[name]; ok {
		if f.typ != typ {
			panic(fmt.Sprintf("function %s redeclared with type %s, previously %s", name, typ.String(), f.typ.String()))
		}
		return f
	}
	f := &Function{
		m:      m,
		id:     m.seq,
		name:   name,
		typ:    typ,
		params: make([]*Param, len(typ.Params())),
		blocks: make([]*Block, 0, 8),
		names:  make(map[string]int, 16),
	}
	m.seq++
	for i1, e1 := range typ.Params() {
		f.params[i1] = &Param{
			f:     f,
			id:    f.getId(),
			index: i1,
			typ:   e1,
		}
	}
	m.functions = append(m.functions, f)
	m.fnIdx[name] = f
	return f
}

// getId returns a unique identifier for module level values.
func (m *Module) getId() int {
	m.Lock()
	defer m.Unlock()
	id := m.seq
	m.seq++
	return id
}

// --------------------------------
// ----- Constant constructors -----
// --------------------------------

// ConstInt returns an integer constant of scalar integer type typ.
func (m *Module) ConstInt(typ types.DataType, v int64) *Constant {
	if !types.IsInteger(typ) || types.IsTile(typ) {
		panic(fmt.Sprintf("cannot create integer constant of type %s", typ.String()))
	}
	return &Constant{id: m.getId(), typ: typ, val: v}
}

// ConstFloat returns a floating point constant of scalar floating point type typ.
func (m *Module) ConstFloat(typ types.DataType, v float64) *Constant {
	if !types.IsFloat(typ) || types.IsTile(typ) {
		panic(fmt.Sprintf("cannot create floating point constant of type %s", typ.String()))
	}
	return &Constant{id: m.getId(), typ: typ, val: v}
}

// ConstBool returns the i1 constant true or false.
func (m *Module) ConstBool(v bool) *Constant {
	if v {
		return m.ConstInt(m.ctx.Int1(), 1)
	}
	return m.ConstInt(m.ctx.Int1(), 0)
}

// NullValue returns the zero constant of scalar integer or floating point type typ.
func (m *Module) NullValue(typ types.DataType) *Constant {
	if types.IsFloat(typ) {
		return m.ConstFloat(typ, 0)
	}
	return m.ConstInt(typ, 0)
}

// AllOnes returns the integer constant with every bit set.
func (m *Module) AllOnes(typ types.DataType) *Constant {
	return m.ConstInt(typ, -1)
}

// Undef returns an undefined value of type typ.
func (m *Module) Undef(typ types.DataType) *UndefValue {
	return &UndefValue{id: m.getId(), typ: typ}
}

// Range returns the constant i32 tile [first, last).
func (m *Module) Range(first, last int64) *RangeValue {
	if last <= first {
		panic(fmt.Sprintf("empty range [%d, %d)", first, last))
	}
	return &RangeValue{
		id:    m.getId(),
		typ:   m.ctx.Tile(m.ctx.Int32(), []int{int(last - first)}),
		first: first,
		last:  last,
	}
}

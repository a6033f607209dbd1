package tir

import (
	"fmt"
	"strings"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Function represents a function. It has a name, a function type, parameters and basic blocks. A function without
// basic blocks is a declaration. Using a function as a Value references it as the callee of a call.
type Function struct {
	m      *Module             // Parent module.
	id     int                 // Unique identifier assigned to this function.
	name   string              // Name of function.
	typ    *types.FunctionType // Signature of function.
	params []*Param            // Parameters of function.
	blocks []*Block            // Basic blocks in function body. The first block is the entry block.
	seq    int                 // Sequence number for generating unique identifiers for all children of function.
	names  map[string]int      // Use count of value and block names, for uniquing.
}

// Param represents a function parameter.
type Param struct {
	f     *Function      // Parent function.
	id    int            // Unique identifier of parameter.
	index int            // Position in the parameter list.
	name  string         // Optional name of parameter.
	typ   types.DataType // Data type of parameter.
	attrs []Attribute    // Attributes attached to the parameter.
}

// ---------------------
// ----- Constants -----
// ---------------------

// labelParamPrefix defines the name prefix of unnamed parameters.
const labelParamPrefix = "arg"

// ---------------------
// ----- Functions -----
// ---------------------

// ----------------------------
// ----- Function methods -----
// ----------------------------

// Id returns the unique sequence number assigned to Function f when it was created.
func (f *Function) Id() int {
	return f.id
}

// Name returns the global reference of Function f, e.g. @softmax.
func (f *Function) Name() string {
	return "@" + f.name
}

// Ident returns the bare name of Function f.
func (f *Function) Ident() string {
	return f.name
}

// Type returns types.Function.
func (f *Function) Type() types.InstructionType {
	return types.Function
}

// DataType returns the function type of Function f.
func (f *Function) DataType() types.DataType {
	return f.typ
}

// Signature returns the function type of Function f.
func (f *Function) Signature() *types.FunctionType {
	return f.typ
}

// Operands returns <nil> for Function f.
func (f *Function) Operands() []Value {
	return nil
}

// Module returns the parent module of Function f.
func (f *Function) Module() *Module {
	return f.m
}

// String returns the textual tile IR representation of Function f.
func (f *Function) String() string {
	sb := strings.Builder{}
	if f.IsDeclaration() {
		sb.WriteString("declare ")
	} else {
		sb.WriteString("define ")
	}
	sb.WriteString(fmt.Sprintf("%s %s(", f.typ.Ret().String(), f.Name()))
	for i1, e1 := range f.params {
		sb.WriteString(e1.String())
		if i1 < len(f.params)-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteRune(')')

	if len(f.blocks) > 0 {
		sb.WriteString(" {\n")
		for i1, e1 := range f.blocks {
			if i1 > 0 {
				sb.WriteRune('\n')
			}
			sb.WriteString(e1.String())
		}
		sb.WriteRune('}')
	}
	return sb.String()
}

// IsDeclaration returns true if Function f has no body.
func (f *Function) IsDeclaration() bool {
	return len(f.blocks) == 0
}

// Params returns the parameters of Function f.
func (f *Function) Params() []*Param {
	return f.params
}

// Blocks returns the basic blocks of Function f.
func (f *Function) Blocks() []*Block {
	return f.blocks
}

// Entry returns the entry block of Function f, or <nil> for a declaration.
func (f *Function) Entry() *Block {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

// CreateBlock creates a new Block named name and appends it to Function f.
func (f *Function) CreateBlock(name string) *Block {
	b := &Block{
		f:            f,
		id:           f.getId(),
		name:         f.uniqueName(name),
		instructions: make([]Instruction, 0, 16),
	}
	f.blocks = append(f.blocks, b)
	return b
}

// Instructions returns every instruction of Function f in block order.
func (f *Function) Instructions() []Instruction {
	res := make([]Instruction, 0, 64)
	for _, e1 := range f.blocks {
		res = append(res, e1.instructions...)
	}
	return res
}

// getId returns a unique identifier within Function f.
func (f *Function) getId() int {
	id := f.seq
	f.seq++
	return id
}

// uniqueName returns name if it's not yet used in Function f, otherwise name suffixed with a use count.
func (f *Function) uniqueName(name string) string {
	if len(name) == 0 {
		return ""
	}
	n, ok := f.names[name]
	f.names[name] = n + 1
	if !ok {
		return name
	}
	return fmt.Sprintf("%s.%d", name, n)
}

// -------------------------
// ----- Param methods -----
// -------------------------

// Id returns the unique id of Param p.
func (p *Param) Id() int {
	return p.id
}

// Name returns the textual reference of Param p.
func (p *Param) Name() string {
	if len(p.name) > 0 {
		return labelValuePrefix + p.name
	}
	return fmt.Sprintf("%s%s%d", labelValuePrefix, labelParamPrefix, p.index)
}

// SetName names Param p.
func (p *Param) SetName(name string) {
	p.name = p.f.uniqueName(name)
}

// Type returns types.Param.
func (p *Param) Type() types.InstructionType {
	return types.Param
}

// DataType returns the data type of Param p.
func (p *Param) DataType() types.DataType {
	return p.typ
}

// String returns the textual declaration of Param p including its attributes.
func (p *Param) String() string {
	sb := strings.Builder{}
	sb.WriteString(ref(p))
	for _, e1 := range p.attrs {
		sb.WriteRune(' ')
		sb.WriteString(e1.String())
	}
	return sb.String()
}

// Operands returns <nil> for Param p.
func (p *Param) Operands() []Value {
	return nil
}

// Index returns the position of Param p in the parameter list.
func (p *Param) Index() int {
	return p.index
}

// AddAttr attaches an attribute to Param p. An attribute of the same kind replaces the previous one.
func (p *Param) AddAttr(a Attribute) {
	for i1, e1 := range p.attrs {
		if e1.Kind == a.Kind {
			p.attrs[i1] = a
			return
		}
	}
	p.attrs = append(p.attrs, a)
}

// Attrs returns the attributes of Param p.
func (p *Param) Attrs() []Attribute {
	return p.attrs
}

// Attr returns the attribute of the given kind attached to Param p.
func (p *Param) Attr(kind AttributeKind) (Attribute, bool) {
	for _, e1 := range p.attrs {
		if e1.Kind == kind {
			return e1, true
		}
	}
	return Attribute{}, false
}

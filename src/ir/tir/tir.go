// Package tir provides structures and functions for creating tile intermediate representation: an SSA-style,
// typed IR whose values may be scalars or compile-time shaped tiles.
package tir

import (
	"fmt"
	"sort"
	"strings"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Value defines a tile IR operand. Constants, parameters, functions and every instruction that produces a
// result are values.
type Value interface {
	Id() int                     // Unique identifier assigned to Value when it's created.
	Name() string                // Textual reference to Value, e.g. %3 or 0.
	Type() types.InstructionType // Kind of Value.
	DataType() types.DataType    // Data type of the Value.
	String() string              // Textual tile IR representation of Value.
	Operands() []Value           // Values the Value depends on.
}

// Instruction is a Value that lives in a basic block.
type Instruction interface {
	Value
	Parent() *Block                         // Basic block owning the instruction.
	IsTerminator() bool                     // True for branches and returns.
	SetName(name string)                    // Name the result of the instruction.
	SetMetadata(kind MetadataKind, v int)   // Attach analysis hint to the instruction.
	Metadata(kind MetadataKind) (int, bool) // Retrieve analysis hint.
}

// instr holds the state shared by all instructions.
type instr struct {
	b    *Block               // b is the basic block element that owns this instruction.
	id   int                  // id is the unique identifier of this instruction in function body.
	name string               // Optional name of the result.
	typ  types.DataType       // Data type of the result.
	md   map[MetadataKind]int // Metadata attached to the instruction.
}

// ---------------------
// ----- Constants -----
// ---------------------

// labelValuePrefix defines the virtual register prefix of instruction results.
const labelValuePrefix = "%"

// ---------------------
// ----- Functions -----
// ---------------------

// Id returns the unique identifier of the instruction.
func (inst *instr) Id() int {
	return inst.id
}

// Name returns the textual reference of the instruction's result.
func (inst *instr) Name() string {
	if len(inst.name) > 0 {
		return labelValuePrefix + inst.name
	}
	return fmt.Sprintf("%s%d", labelValuePrefix, inst.id)
}

// SetName names the result of the instruction. Names are uniqued within the parent function.
func (inst *instr) SetName(name string) {
	inst.name = inst.b.f.uniqueName(name)
}

// DataType returns the data type of the instruction's result.
func (inst *instr) DataType() types.DataType {
	return inst.typ
}

// Parent returns the basic block owning the instruction.
func (inst *instr) Parent() *Block {
	return inst.b
}

// IsTerminator returns false. Branch instructions override it.
func (inst *instr) IsTerminator() bool {
	return false
}

// SetMetadata attaches metadata of the given kind to the instruction.
func (inst *instr) SetMetadata(kind MetadataKind, v int) {
	if inst.md == nil {
		inst.md = make(map[MetadataKind]int, 2)
	}
	inst.md[kind] = v
}

// Metadata returns the metadata of the given kind, if attached.
func (inst *instr) Metadata(kind MetadataKind) (int, bool) {
	v, ok := inst.md[kind]
	return v, ok
}

// metadataString returns the textual suffix listing the instruction's metadata in a stable order.
func (inst *instr) metadataString() string {
	if len(inst.md) == 0 {
		return ""
	}
	kinds := make([]int, 0, len(inst.md))
	for k := range inst.md {
		kinds = append(kinds, int(k))
	}
	sort.Ints(kinds)
	sb := strings.Builder{}
	for _, e1 := range kinds {
		sb.WriteString(fmt.Sprintf(", !%s %d", MetadataKind(e1).String(), inst.md[MetadataKind(e1)]))
	}
	return sb.String()
}

// ref returns the typed textual reference of an operand, e.g. "i32 %3".
func ref(v Value) string {
	return fmt.Sprintf("%s %s", v.DataType().String(), v.Name())
}

// refs returns the comma separated typed references of values.
func refs(vs []Value) string {
	s := make([]string, len(vs))
	for i1, e1 := range vs {
		s[i1] = ref(e1)
	}
	return strings.Join(s, ", ")
}

// def returns the "%x = " prefix of an instruction producing a value.
func def(inst Value) string {
	return fmt.Sprintf("%s = ", inst.Name())
}

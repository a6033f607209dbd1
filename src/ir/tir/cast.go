package tir

import (
	"fmt"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// CastInstruction converts a value to another data type of the same shape.
type CastInstruction struct {
	instr
	op  types.CastOperation // Conversion performed.
	src Value               // Value to convert.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Type returns types.CastInstruction.
func (inst *CastInstruction) Type() types.InstructionType {
	return types.CastInstruction
}

// String returns the textual tile IR representation of the CastInstruction.
func (inst *CastInstruction) String() string {
	return fmt.Sprintf("%s%s %s to %s%s", def(inst), inst.op.String(), ref(inst.src), inst.typ.String(),
		inst.metadataString())
}

// Operands returns the converted value.
func (inst *CastInstruction) Operands() []Value {
	return []Value{inst.src}
}

// Operation returns the conversion performed by the CastInstruction.
func (inst *CastInstruction) Operation() types.CastOperation {
	return inst.op
}

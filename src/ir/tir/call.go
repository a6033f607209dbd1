package tir

import (
	"fmt"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// CallInstruction calls a function of the module.
type CallInstruction struct {
	instr
	fn   *Function // Callee.
	args []Value   // Arguments, typed like the callee's parameters.
}

// ProgramInstruction queries the launch grid: the program id along an axis, or the number of programs along it.
type ProgramInstruction struct {
	instr
	kind types.InstructionType // ProgramIdInstruction or NumProgramsInstruction.
	axis int                   // Grid axis: 0, 1 or 2.
}

// BarrierInstruction synchronises all threads of a program.
type BarrierInstruction struct {
	instr
}

// ---------------------
// ----- Functions -----
// ---------------------

// Type returns types.CallInstruction.
func (inst *CallInstruction) Type() types.InstructionType {
	return types.CallInstruction
}

// String returns the textual tile IR representation of the CallInstruction.
func (inst *CallInstruction) String() string {
	res := ""
	if inst.typ.ID() != types.VoidTyID {
		res = def(inst)
	}
	return fmt.Sprintf("%scall %s %s(%s)%s", res, inst.typ.String(), inst.fn.Name(), refs(inst.args),
		inst.metadataString())
}

// Operands returns the arguments of the call.
func (inst *CallInstruction) Operands() []Value {
	return inst.args
}

// Callee returns the called function.
func (inst *CallInstruction) Callee() *Function {
	return inst.fn
}

// Type returns the kind of the ProgramInstruction.
func (inst *ProgramInstruction) Type() types.InstructionType {
	return inst.kind
}

// String returns the textual tile IR representation of the ProgramInstruction.
func (inst *ProgramInstruction) String() string {
	op := "get_program_id"
	if inst.kind == types.NumProgramsInstruction {
		op = "get_num_programs"
	}
	return fmt.Sprintf("%s%s %d%s", def(inst), op, inst.axis, inst.metadataString())
}

// Operands returns <nil> for the ProgramInstruction.
func (inst *ProgramInstruction) Operands() []Value {
	return nil
}

// Axis returns the queried grid axis.
func (inst *ProgramInstruction) Axis() int {
	return inst.axis
}

// Type returns types.BarrierInstruction.
func (inst *BarrierInstruction) Type() types.InstructionType {
	return types.BarrierInstruction
}

// String returns the textual tile IR representation of the BarrierInstruction.
func (inst *BarrierInstruction) String() string {
	return "barrier"
}

// Operands returns <nil> for the BarrierInstruction.
func (inst *BarrierInstruction) Operands() []Value {
	return nil
}

package tir

import (
	"fmt"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// DataInstruction defines a binary arithmetic or bitwise instruction. Both operands and the result share one
// data type, scalar or tile.
type DataInstruction struct {
	instr
	op  types.ArithmeticOperation // Arithmetic operation.
	op1 Value                     // Left hand side operand.
	op2 Value                     // Right hand side operand.
}

// CompareInstruction compares two operands of the same data type and produces an i1 of the operands' shape.
type CompareInstruction struct {
	instr
	pred types.CmpPredicate // Comparison predicate.
	op1  Value              // Left hand side operand.
	op2  Value              // Right hand side operand.
}

// SelectInstruction picks, elementwise, the true or false operand depending on an i1 condition.
type SelectInstruction struct {
	instr
	cond Value // i1 condition of the same shape as the operands.
	t    Value // Value picked where cond is set.
	f    Value // Value picked where cond is clear.
}

// MathInstruction applies an elementwise transcendental function to a floating point operand.
type MathInstruction struct {
	instr
	op  types.MathOperation // Function applied.
	op1 Value               // Operand.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Type returns types.DataInstruction.
func (inst *DataInstruction) Type() types.InstructionType {
	return types.DataInstruction
}

// String returns the textual tile IR representation of the DataInstruction.
func (inst *DataInstruction) String() string {
	return fmt.Sprintf("%s%s %s, %s%s", def(inst), inst.op.String(), ref(inst.op1), ref(inst.op2), inst.metadataString())
}

// Operands returns the two operands of the DataInstruction.
func (inst *DataInstruction) Operands() []Value {
	return []Value{inst.op1, inst.op2}
}

// Operation returns the arithmetic operation of the DataInstruction.
func (inst *DataInstruction) Operation() types.ArithmeticOperation {
	return inst.op
}

// Type returns types.CompareInstruction.
func (inst *CompareInstruction) Type() types.InstructionType {
	return types.CompareInstruction
}

// String returns the textual tile IR representation of the CompareInstruction.
func (inst *CompareInstruction) String() string {
	return fmt.Sprintf("%s%s %s, %s%s", def(inst), inst.pred.String(), ref(inst.op1), ref(inst.op2), inst.metadataString())
}

// Operands returns the two compared operands.
func (inst *CompareInstruction) Operands() []Value {
	return []Value{inst.op1, inst.op2}
}

// Predicate returns the comparison predicate.
func (inst *CompareInstruction) Predicate() types.CmpPredicate {
	return inst.pred
}

// Type returns types.SelectInstruction.
func (inst *SelectInstruction) Type() types.InstructionType {
	return types.SelectInstruction
}

// String returns the textual tile IR representation of the SelectInstruction.
func (inst *SelectInstruction) String() string {
	return fmt.Sprintf("%sselect %s, %s, %s%s", def(inst), ref(inst.cond), ref(inst.t), ref(inst.f), inst.metadataString())
}

// Operands returns the condition, the true operand and the false operand.
func (inst *SelectInstruction) Operands() []Value {
	return []Value{inst.cond, inst.t, inst.f}
}

// Type returns types.MathInstruction.
func (inst *MathInstruction) Type() types.InstructionType {
	return types.MathInstruction
}

// String returns the textual tile IR representation of the MathInstruction.
func (inst *MathInstruction) String() string {
	return fmt.Sprintf("%s%s %s%s", def(inst), inst.op.String(), ref(inst.op1), inst.metadataString())
}

// Operands returns the operand of the MathInstruction.
func (inst *MathInstruction) Operands() []Value {
	return []Value{inst.op1}
}

// Operation returns the function applied by the MathInstruction.
func (inst *MathInstruction) Operation() types.MathOperation {
	return inst.op
}

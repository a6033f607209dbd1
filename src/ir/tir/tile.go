package tir

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ShapeInstruction changes the shape of a value without changing its elements' type: splat turns a scalar into a
// tile, broadcast expands dimensions of size 1, and reshape reinterprets the shape with the same element count.
type ShapeInstruction struct {
	instr
	kind types.InstructionType // SplatInstruction, BroadcastInstruction or ReshapeInstruction.
	src  Value                 // Reshaped value.
}

// TransInstruction permutes the dimensions of a tile.
type TransInstruction struct {
	instr
	src  Value // Permuted tile.
	perm []int // Result dimension i is source dimension perm[i].
}

// ReduceInstruction reduces a tile along one axis with an associative operator. Reducing a one dimensional tile
// yields a scalar.
type ReduceInstruction struct {
	instr
	op   types.ReduceOperation // Associative operator.
	src  Value                 // Reduced tile.
	axis int                   // Reduced dimension.
}

// DotInstruction computes the matrix product a @ b + c of two dimensional tiles.
type DotInstruction struct {
	instr
	a Value // M x K tile.
	b Value // K x N tile.
	c Value // M x N accumulator.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Type returns the kind of the ShapeInstruction.
func (inst *ShapeInstruction) Type() types.InstructionType {
	return inst.kind
}

// String returns the textual tile IR representation of the ShapeInstruction.
func (inst *ShapeInstruction) String() string {
	var op string
	switch inst.kind {
	case types.SplatInstruction:
		op = "splat"
	case types.BroadcastInstruction:
		op = "broadcast"
	default:
		op = "reshape"
	}
	return fmt.Sprintf("%s%s %s to %s%s", def(inst), op, ref(inst.src), inst.typ.String(), inst.metadataString())
}

// Operands returns the reshaped value.
func (inst *ShapeInstruction) Operands() []Value {
	return []Value{inst.src}
}

// Type returns types.TransInstruction.
func (inst *TransInstruction) Type() types.InstructionType {
	return types.TransInstruction
}

// String returns the textual tile IR representation of the TransInstruction.
func (inst *TransInstruction) String() string {
	perm := lo.Map(inst.perm, func(p int, _ int) string { return fmt.Sprint(p) })
	return fmt.Sprintf("%strans %s, perm(%s)%s", def(inst), ref(inst.src), strings.Join(perm, ", "),
		inst.metadataString())
}

// Operands returns the permuted tile.
func (inst *TransInstruction) Operands() []Value {
	return []Value{inst.src}
}

// Perm returns the dimension permutation.
func (inst *TransInstruction) Perm() []int {
	return inst.perm
}

// Type returns types.ReduceInstruction.
func (inst *ReduceInstruction) Type() types.InstructionType {
	return types.ReduceInstruction
}

// String returns the textual tile IR representation of the ReduceInstruction.
func (inst *ReduceInstruction) String() string {
	return fmt.Sprintf("%sreduce %s %s, axis %d%s", def(inst), inst.op.String(), ref(inst.src), inst.axis,
		inst.metadataString())
}

// Operands returns the reduced tile.
func (inst *ReduceInstruction) Operands() []Value {
	return []Value{inst.src}
}

// Operation returns the associative operator of the reduction.
func (inst *ReduceInstruction) Operation() types.ReduceOperation {
	return inst.op
}

// Axis returns the reduced dimension.
func (inst *ReduceInstruction) Axis() int {
	return inst.axis
}

// Type returns types.DotInstruction.
func (inst *DotInstruction) Type() types.InstructionType {
	return types.DotInstruction
}

// String returns the textual tile IR representation of the DotInstruction.
func (inst *DotInstruction) String() string {
	return fmt.Sprintf("%sdot %s, %s, %s%s", def(inst), ref(inst.a), ref(inst.b), ref(inst.c), inst.metadataString())
}

// Operands returns both factors and the accumulator.
func (inst *DotInstruction) Operands() []Value {
	return []Value{inst.a, inst.b, inst.c}
}

package tir

import (
	"fmt"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// BranchInstruction terminates a basic block: an unconditional branch, a conditional branch or a return.
type BranchInstruction struct {
	instr
	kind types.InstructionType // BranchInstruction, ConditionalBranchInstruction or ReturnInstruction.
	next *Block                // Target of unconditional branch, or target when cond is true.
	els  *Block                // Target when cond is false.
	val  Value                 // Branch condition, or returned value. <nil> for void returns.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Type returns the kind of the BranchInstruction.
func (inst *BranchInstruction) Type() types.InstructionType {
	return inst.kind
}

// IsTerminator returns true.
func (inst *BranchInstruction) IsTerminator() bool {
	return true
}

// String returns the textual tile IR representation of the BranchInstruction.
func (inst *BranchInstruction) String() string {
	switch inst.kind {
	case types.ConditionalBranchInstruction:
		return fmt.Sprintf("br %s, %s, %s", ref(inst.val), inst.next.ref(), inst.els.ref())
	case types.ReturnInstruction:
		if inst.val == nil {
			return "ret void"
		}
		return fmt.Sprintf("ret %s", ref(inst.val))
	}
	return fmt.Sprintf("br %s", inst.next.ref())
}

// Operands returns the condition or returned value, if any.
func (inst *BranchInstruction) Operands() []Value {
	if inst.val == nil {
		return nil
	}
	return []Value{inst.val}
}

// Successors returns the blocks the BranchInstruction may transfer control to.
func (inst *BranchInstruction) Successors() []*Block {
	switch inst.kind {
	case types.ConditionalBranchInstruction:
		return []*Block{inst.next, inst.els}
	case types.BranchInstruction:
		return []*Block{inst.next}
	}
	return nil
}

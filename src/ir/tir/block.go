package tir

import (
	"fmt"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Block defines a basic block. A basic block is a sequence of instructions that is terminated by a branch
// or return instruction.
type Block struct {
	f            *Function     // Parent function that owns the basic block.
	id           int           // Unique identifier of basic block.
	name         string        // Label of the basic block.
	term         Instruction   // Branch instruction or return instruction.
	instructions []Instruction // Instructions in the basic block.
}

// ---------------------
// ----- Constants -----
// ---------------------

// labelBlockPrefix defines the label of unnamed basic blocks.
const labelBlockPrefix = "block"

// ---------------------
// ----- Functions -----
// ---------------------

// Id returns the uniquely assigned identifier of Block b.
func (b *Block) Id() int {
	return b.id
}

// Name returns the label of Block b.
func (b *Block) Name() string {
	if len(b.name) > 0 {
		return b.name
	}
	return fmt.Sprintf("%s%d", labelBlockPrefix, b.id)
}

// Parent returns the function owning Block b.
func (b *Block) Parent() *Function {
	return b.f
}

// String returns the textual tile IR representation of all instructions in Block b.
func (b *Block) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%s:\n", b.Name()))
	for _, e1 := range b.instructions {
		sb.WriteString("  ")
		sb.WriteString(e1.String())
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Instructions returns the instructions of the basic Block b.
func (b *Block) Instructions() []Instruction {
	return b.instructions
}

// Terminator returns the branch or return instruction of Block b, or <nil> if it's not yet terminated.
func (b *Block) Terminator() Instruction {
	return b.term
}

// IsTerminated returns true if Block b ends with a branch or return instruction.
func (b *Block) IsTerminated() bool {
	return b.term != nil
}

// ref returns the label operand reference of Block b.
func (b *Block) ref() string {
	return "label %" + b.Name()
}

// append adds inst to the end of Block b. Terminators close the block.
func (b *Block) append(inst Instruction) {
	if b.term != nil {
		panic(fmt.Sprintf("function %s, block %s: cannot append %s after terminator",
			b.f.name, b.Name(), inst.Type().String()))
	}
	b.instructions = append(b.instructions, inst)
	if inst.IsTerminator() {
		b.term = inst
	}
}

// insertAt inserts inst at position i of Block b.
func (b *Block) insertAt(i int, inst Instruction) {
	b.instructions = append(b.instructions, nil)
	copy(b.instructions[i+1:], b.instructions[i:])
	b.instructions[i] = inst
}

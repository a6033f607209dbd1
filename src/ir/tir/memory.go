package tir

import (
	"fmt"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// DeclareInstruction allocates function local storage for one value of its element type. The result is a private
// (address space 0) pointer to the storage.
type DeclareInstruction struct {
	instr
	elem types.DataType // Type of the allocated value.
}

// LoadInstruction reads the value a pointer points to. A tile of pointers loads a tile of values.
type LoadInstruction struct {
	instr
	src Value // Pointer or tile of pointers.
}

// StoreInstruction writes a value through a pointer. A tile of pointers stores a tile of values.
type StoreInstruction struct {
	instr
	dst Value // Pointer or tile of pointers.
	val Value // Stored value.
}

// MaskedLoadInstruction reads a tile of values through a tile of pointers where the mask is set, and yields the
// fill value elsewhere.
type MaskedLoadInstruction struct {
	instr
	src  Value // Tile of pointers.
	mask Value // i1 tile of the pointers' shape.
	fill Value // Value yielded where mask is clear.
}

// MaskedStoreInstruction writes a tile of values through a tile of pointers where the mask is set.
type MaskedStoreInstruction struct {
	instr
	dst  Value // Tile of pointers.
	val  Value // Stored tile.
	mask Value // i1 tile of the pointers' shape.
}

// GEPKind differentiates the address computations of a GEPInstruction.
type GEPKind int

// GEPInstruction computes an address: pointer offset, array element or struct field.
type GEPInstruction struct {
	instr
	kind  GEPKind // Kind of address computation.
	base  Value   // Base pointer.
	idx   Value   // Element offset, for GEPPointer and GEPArray.
	field int     // Field index, for GEPStruct.
}

// AtomicInstruction performs a read-modify-write on memory and yields the old value.
type AtomicInstruction struct {
	instr
	op  types.AtomicOperation // Operation performed.
	ptr Value                 // Pointer or tile of pointers.
	cmp Value                 // Expected value, only for AtomicCAS.
	val Value                 // Operand of the operation.
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	GEPPointer GEPKind = iota // Pointer arithmetic: base + idx elements.
	GEPArray                  // Address of element idx of the array base points to.
	GEPStruct                 // Address of field of the struct base points to.
)

// ---------------------
// ----- Functions -----
// ---------------------

// Type returns types.DeclareInstruction.
func (inst *DeclareInstruction) Type() types.InstructionType {
	return types.DeclareInstruction
}

// String returns the textual tile IR representation of the DeclareInstruction.
func (inst *DeclareInstruction) String() string {
	return fmt.Sprintf("%salloca %s%s", def(inst), inst.elem.String(), inst.metadataString())
}

// Operands returns <nil> for the DeclareInstruction.
func (inst *DeclareInstruction) Operands() []Value {
	return nil
}

// Elem returns the type of the allocated value.
func (inst *DeclareInstruction) Elem() types.DataType {
	return inst.elem
}

// Type returns types.LoadInstruction.
func (inst *LoadInstruction) Type() types.InstructionType {
	return types.LoadInstruction
}

// String returns the textual tile IR representation of the LoadInstruction.
func (inst *LoadInstruction) String() string {
	return fmt.Sprintf("%sload %s, %s%s", def(inst), inst.typ.String(), ref(inst.src), inst.metadataString())
}

// Operands returns the pointer read from.
func (inst *LoadInstruction) Operands() []Value {
	return []Value{inst.src}
}

// Type returns types.StoreInstruction.
func (inst *StoreInstruction) Type() types.InstructionType {
	return types.StoreInstruction
}

// String returns the textual tile IR representation of the StoreInstruction.
func (inst *StoreInstruction) String() string {
	return fmt.Sprintf("store %s, %s%s", ref(inst.val), ref(inst.dst), inst.metadataString())
}

// Operands returns the stored value and the pointer written to.
func (inst *StoreInstruction) Operands() []Value {
	return []Value{inst.val, inst.dst}
}

// Type returns types.MaskedLoadInstruction.
func (inst *MaskedLoadInstruction) Type() types.InstructionType {
	return types.MaskedLoadInstruction
}

// String returns the textual tile IR representation of the MaskedLoadInstruction.
func (inst *MaskedLoadInstruction) String() string {
	return fmt.Sprintf("%smasked_load %s, %s, %s, %s%s", def(inst), inst.typ.String(), ref(inst.src), ref(inst.mask),
		ref(inst.fill), inst.metadataString())
}

// Operands returns the pointers, the mask and the fill value.
func (inst *MaskedLoadInstruction) Operands() []Value {
	return []Value{inst.src, inst.mask, inst.fill}
}

// Type returns types.MaskedStoreInstruction.
func (inst *MaskedStoreInstruction) Type() types.InstructionType {
	return types.MaskedStoreInstruction
}

// String returns the textual tile IR representation of the MaskedStoreInstruction.
func (inst *MaskedStoreInstruction) String() string {
	return fmt.Sprintf("masked_store %s, %s, %s%s", ref(inst.val), ref(inst.dst), ref(inst.mask), inst.metadataString())
}

// Operands returns the stored value, the pointers and the mask.
func (inst *MaskedStoreInstruction) Operands() []Value {
	return []Value{inst.val, inst.dst, inst.mask}
}

// Type returns types.GEPInstruction.
func (inst *GEPInstruction) Type() types.InstructionType {
	return types.GEPInstruction
}

// String returns the textual tile IR representation of the GEPInstruction.
func (inst *GEPInstruction) String() string {
	switch inst.kind {
	case GEPArray:
		return fmt.Sprintf("%sgetelementptr %s, 0, %s%s", def(inst), ref(inst.base), ref(inst.idx), inst.metadataString())
	case GEPStruct:
		return fmt.Sprintf("%sgetelementptr %s, 0, field %d%s", def(inst), ref(inst.base), inst.field,
			inst.metadataString())
	}
	return fmt.Sprintf("%sgetelementptr %s, %s%s", def(inst), ref(inst.base), ref(inst.idx), inst.metadataString())
}

// Operands returns the base pointer and, if any, the element offset.
func (inst *GEPInstruction) Operands() []Value {
	if inst.kind == GEPStruct {
		return []Value{inst.base}
	}
	return []Value{inst.base, inst.idx}
}

// Kind returns the kind of address computation.
func (inst *GEPInstruction) Kind() GEPKind {
	return inst.kind
}

// Field returns the field index of a struct GEPInstruction.
func (inst *GEPInstruction) Field() int {
	return inst.field
}

// Type returns types.AtomicInstruction.
func (inst *AtomicInstruction) Type() types.InstructionType {
	return types.AtomicInstruction
}

// String returns the textual tile IR representation of the AtomicInstruction.
func (inst *AtomicInstruction) String() string {
	if inst.op == types.AtomicCAS {
		return fmt.Sprintf("%satomic_%s %s, %s, %s%s", def(inst), inst.op.String(), ref(inst.ptr), ref(inst.cmp),
			ref(inst.val), inst.metadataString())
	}
	return fmt.Sprintf("%satomic_%s %s, %s%s", def(inst), inst.op.String(), ref(inst.ptr), ref(inst.val),
		inst.metadataString())
}

// Operands returns the pointer, the expected value for compare-and-swap, and the operand.
func (inst *AtomicInstruction) Operands() []Value {
	if inst.op == types.AtomicCAS {
		return []Value{inst.ptr, inst.cmp, inst.val}
	}
	return []Value{inst.ptr, inst.val}
}

// Operation returns the read-modify-write operation.
func (inst *AtomicInstruction) Operation() types.AtomicOperation {
	return inst.op
}

package tir

import (
	"fmt"
	"slices"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Builder creates instructions at the end of its current insertion block. Operand misuse is a programming error
// and makes the Builder panic.
type Builder struct {
	m   *Module // Module owning the created instructions.
	blk *Block  // Current insertion block.
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewBuilder returns a Builder for Module m without insertion block.
func NewBuilder(m *Module) *Builder {
	return &Builder{m: m}
}

// Module returns the module the Builder creates instructions for.
func (bd *Builder) Module() *Module {
	return bd.m
}

// Types returns the data type context of the Builder's module.
func (bd *Builder) Types() *types.Context {
	return bd.m.ctx
}

// SetInsertPoint makes b the insertion block.
func (bd *Builder) SetInsertPoint(b *Block) {
	bd.blk = b
}

// InsertBlock returns the current insertion block.
func (bd *Builder) InsertBlock() *Block {
	return bd.blk
}

// insert assigns an identifier to inst and appends it to the insertion block.
func (bd *Builder) insert(inst Instruction, base *instr) {
	if bd.blk == nil {
		panic(fmt.Sprintf("no insertion block for %s", inst.Type().String()))
	}
	base.b = bd.blk
	base.id = bd.blk.f.getId()
	bd.blk.append(inst)
}

// mustSameType panics unless a and b have the same data type.
func mustSameType(op string, a, b Value) {
	if a.DataType() != b.DataType() {
		panic(fmt.Sprintf("%s: operand types differ: %s and %s", op, a.DataType().String(), b.DataType().String()))
	}
}

// mustTile panics unless v is a tile.
func mustTile(op string, v Value) *types.TileType {
	t, ok := v.DataType().(*types.TileType)
	if !ok {
		panic(fmt.Sprintf("%s: expected tile operand, got %s", op, v.DataType().String()))
	}
	return t
}

// -------------------------------
// ----- Memory instructions -----
// -------------------------------

// CreateAlloca allocates storage for one value of type elem. Allocations are placed at the start of the entry
// block of the insertion block's function, after previous allocations.
func (bd *Builder) CreateAlloca(elem types.DataType, name string) *DeclareInstruction {
	if bd.blk == nil {
		panic("no insertion block for alloca")
	}
	f := bd.blk.f
	entry := f.Entry()
	inst := &DeclareInstruction{elem: elem}
	inst.b = entry
	inst.id = f.getId()
	inst.typ = bd.m.ctx.Pointer(elem, 0)
	inst.name = f.uniqueName(name)
	pos := 0
	for pos < len(entry.instructions) && entry.instructions[pos].Type() == types.DeclareInstruction {
		pos++
	}
	entry.insertAt(pos, inst)
	return inst
}

// pointee returns the data type loaded through ptr: the pointee for a pointer, a tile of pointees for a tile of
// pointers.
func (bd *Builder) pointee(op string, ptr Value) types.DataType {
	pt, ok := types.Scalar(ptr.DataType()).(*types.PointerType)
	if !ok {
		panic(fmt.Sprintf("%s: expected pointer operand, got %s", op, ptr.DataType().String()))
	}
	return bd.m.ctx.TileSameShape(pt.Elem(), ptr.DataType())
}

// CreateLoad reads the value ptr points to.
func (bd *Builder) CreateLoad(ptr Value) *LoadInstruction {
	inst := &LoadInstruction{src: ptr}
	inst.typ = bd.pointee("load", ptr)
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateStore writes val through ptr.
func (bd *Builder) CreateStore(ptr, val Value) *StoreInstruction {
	if t := bd.pointee("store", ptr); t != val.DataType() {
		panic(fmt.Sprintf("store: cannot store %s through %s", val.DataType().String(), ptr.DataType().String()))
	}
	inst := &StoreInstruction{dst: ptr, val: val}
	inst.typ = bd.m.ctx.Void()
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateMaskedLoad reads through the tile of pointers ptr where mask is set and yields fill elsewhere.
func (bd *Builder) CreateMaskedLoad(ptr, mask, fill Value) *MaskedLoadInstruction {
	t := bd.pointee("masked_load", ptr)
	if !types.IsBool(mask.DataType()) || !types.SameShape(mask.DataType(), ptr.DataType()) {
		panic(fmt.Sprintf("masked_load: invalid mask %s for %s", mask.DataType().String(), ptr.DataType().String()))
	}
	if fill.DataType() != t {
		panic(fmt.Sprintf("masked_load: fill value %s does not match %s", fill.DataType().String(), t.String()))
	}
	inst := &MaskedLoadInstruction{src: ptr, mask: mask, fill: fill}
	inst.typ = t
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateMaskedStore writes val through the tile of pointers ptr where mask is set.
func (bd *Builder) CreateMaskedStore(ptr, val, mask Value) *MaskedStoreInstruction {
	if t := bd.pointee("masked_store", ptr); t != val.DataType() {
		panic(fmt.Sprintf("masked_store: cannot store %s through %s", val.DataType().String(), ptr.DataType().String()))
	}
	if !types.IsBool(mask.DataType()) || !types.SameShape(mask.DataType(), ptr.DataType()) {
		panic(fmt.Sprintf("masked_store: invalid mask %s for %s", mask.DataType().String(), ptr.DataType().String()))
	}
	inst := &MaskedStoreInstruction{dst: ptr, val: val, mask: mask}
	inst.typ = bd.m.ctx.Void()
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateGEP offsets the pointer base by idx elements. A scalar base with a tile offset yields a tile of
// pointers; otherwise tile operands must share their shape.
func (bd *Builder) CreateGEP(base, idx Value) *GEPInstruction {
	if !types.IsPointer(base.DataType()) || !types.IsInteger(idx.DataType()) {
		panic(fmt.Sprintf("getelementptr: invalid operands %s and %s", base.DataType().String(),
			idx.DataType().String()))
	}
	typ := base.DataType()
	switch {
	case types.IsTile(idx.DataType()) && !types.IsTile(base.DataType()):
		typ = bd.m.ctx.TileSameShape(base.DataType(), idx.DataType())
	case types.IsTile(idx.DataType()) && !types.SameShape(base.DataType(), idx.DataType()):
		panic(fmt.Sprintf("getelementptr: shapes differ: %s and %s", base.DataType().String(),
			idx.DataType().String()))
	}
	inst := &GEPInstruction{kind: GEPPointer, base: base, idx: idx}
	inst.typ = typ
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateArrayGEP returns the address of element idx of the array ptr points to.
func (bd *Builder) CreateArrayGEP(ptr, idx Value) *GEPInstruction {
	pt, ok := ptr.DataType().(*types.PointerType)
	if !ok {
		panic(fmt.Sprintf("getelementptr: expected pointer to array, got %s", ptr.DataType().String()))
	}
	at, ok := pt.Elem().(*types.ArrayType)
	if !ok || !types.IsInteger(idx.DataType()) || types.IsTile(idx.DataType()) {
		panic(fmt.Sprintf("getelementptr: invalid array access %s[%s]", pt.Elem().String(), idx.DataType().String()))
	}
	inst := &GEPInstruction{kind: GEPArray, base: ptr, idx: idx}
	inst.typ = bd.m.ctx.Pointer(at.Elem(), pt.AddrSpace())
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateStructGEP returns the address of field of the struct ptr points to.
func (bd *Builder) CreateStructGEP(ptr Value, field int) *GEPInstruction {
	pt, ok := ptr.DataType().(*types.PointerType)
	if !ok {
		panic(fmt.Sprintf("getelementptr: expected pointer to struct, got %s", ptr.DataType().String()))
	}
	st, ok := pt.Elem().(*types.StructType)
	if !ok || field < 0 || field >= len(st.Fields()) {
		panic(fmt.Sprintf("getelementptr: invalid field %d of %s", field, pt.Elem().String()))
	}
	inst := &GEPInstruction{kind: GEPStruct, base: ptr, field: field}
	inst.typ = bd.m.ctx.Pointer(st.Fields()[field], pt.AddrSpace())
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateAtomic performs a read-modify-write through ptr and yields the old value. cmp is only used by
// types.AtomicCAS.
func (bd *Builder) CreateAtomic(op types.AtomicOperation, ptr, cmp, val Value) *AtomicInstruction {
	t := bd.pointee("atomic", ptr)
	if val.DataType() != t || (op == types.AtomicCAS && (cmp == nil || cmp.DataType() != t)) {
		panic(fmt.Sprintf("atomic_%s: operands do not match %s", op.String(), t.String()))
	}
	inst := &AtomicInstruction{op: op, ptr: ptr, cmp: cmp, val: val}
	inst.typ = t
	bd.insert(inst, &inst.instr)
	return inst
}

// -----------------------------------
// ----- Arithmetic instructions -----
// -----------------------------------

// CreateBinOp creates the instruction a = op1 <op> op2.
func (bd *Builder) CreateBinOp(op types.ArithmeticOperation, op1, op2 Value) *DataInstruction {
	mustSameType(op.String(), op1, op2)
	if op.IsFloat() != types.IsFloat(op1.DataType()) || types.IsPointer(op1.DataType()) {
		panic(fmt.Sprintf("%s: invalid operand type %s", op.String(), op1.DataType().String()))
	}
	inst := &DataInstruction{op: op, op1: op1, op2: op2}
	inst.typ = op1.DataType()
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateCmp compares op1 and op2 and yields an i1 of their shape.
func (bd *Builder) CreateCmp(pred types.CmpPredicate, op1, op2 Value) *CompareInstruction {
	mustSameType(pred.String(), op1, op2)
	if pred.IsFloat() != types.IsFloat(op1.DataType()) {
		panic(fmt.Sprintf("%s: invalid operand type %s", pred.String(), op1.DataType().String()))
	}
	inst := &CompareInstruction{pred: pred, op1: op1, op2: op2}
	inst.typ = bd.m.ctx.TileSameShape(bd.m.ctx.Int1(), op1.DataType())
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateSelect picks t where cond is set and f elsewhere.
func (bd *Builder) CreateSelect(cond, t, f Value) *SelectInstruction {
	mustSameType("select", t, f)
	if !types.IsBool(cond.DataType()) || !types.SameShape(cond.DataType(), t.DataType()) {
		panic(fmt.Sprintf("select: invalid condition %s for %s", cond.DataType().String(), t.DataType().String()))
	}
	inst := &SelectInstruction{cond: cond, t: t, f: f}
	inst.typ = t.DataType()
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateMath applies a transcendental function to the floating point operand op1.
func (bd *Builder) CreateMath(op types.MathOperation, op1 Value) *MathInstruction {
	if !types.IsFloat(op1.DataType()) {
		panic(fmt.Sprintf("%s: expected floating point operand, got %s", op.String(), op1.DataType().String()))
	}
	inst := &MathInstruction{op: op, op1: op1}
	inst.typ = op1.DataType()
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateCast converts src to typ, which must have the shape of src.
func (bd *Builder) CreateCast(op types.CastOperation, src Value, typ types.DataType) *CastInstruction {
	if !types.SameShape(src.DataType(), typ) {
		panic(fmt.Sprintf("%s: cannot convert %s to %s", op.String(), src.DataType().String(), typ.String()))
	}
	inst := &CastInstruction{op: op, src: src}
	inst.typ = typ
	bd.insert(inst, &inst.instr)
	return inst
}

// -----------------------------
// ----- Tile instructions -----
// -----------------------------

// CreateSplat creates a tile of the given shape with every element set to the scalar src.
func (bd *Builder) CreateSplat(src Value, shape []int) *ShapeInstruction {
	if types.IsTile(src.DataType()) {
		panic(fmt.Sprintf("splat: expected scalar operand, got %s", src.DataType().String()))
	}
	inst := &ShapeInstruction{kind: types.SplatInstruction, src: src}
	inst.typ = bd.m.ctx.Tile(src.DataType(), shape)
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateBroadcast expands the dimensions of size 1 of tile src to shape. Both shapes have the same rank.
func (bd *Builder) CreateBroadcast(src Value, shape []int) *ShapeInstruction {
	t := mustTile("broadcast", src)
	from := t.Shape()
	if len(from) != len(shape) {
		panic(fmt.Sprintf("broadcast: rank differs: %s to %s", types.ShapeString(from), types.ShapeString(shape)))
	}
	for i1, e1 := range from {
		if e1 != shape[i1] && e1 != 1 {
			panic(fmt.Sprintf("broadcast: incompatible shapes %s and %s", types.ShapeString(from),
				types.ShapeString(shape)))
		}
	}
	inst := &ShapeInstruction{kind: types.BroadcastInstruction, src: src}
	inst.typ = bd.m.ctx.Tile(t.Elem(), shape)
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateReshape reinterprets tile src with shape. Both shapes have the same number of elements.
func (bd *Builder) CreateReshape(src Value, shape []int) *ShapeInstruction {
	t := mustTile("reshape", src)
	if t.NumElements() != types.NumElements(shape) {
		panic(fmt.Sprintf("reshape: cannot reshape %s to %s", types.ShapeString(t.Shape()), types.ShapeString(shape)))
	}
	inst := &ShapeInstruction{kind: types.ReshapeInstruction, src: src}
	inst.typ = bd.m.ctx.Tile(t.Elem(), shape)
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateTrans permutes the dimensions of tile src. Result dimension i is source dimension perm[i].
func (bd *Builder) CreateTrans(src Value, perm []int) *TransInstruction {
	t := mustTile("trans", src)
	from := t.Shape()
	sorted := slices.Clone(perm)
	slices.Sort(sorted)
	for i1, e1 := range sorted {
		if e1 != i1 {
			panic(fmt.Sprintf("trans: invalid permutation %v of %s", perm, types.ShapeString(from)))
		}
	}
	if len(perm) != len(from) {
		panic(fmt.Sprintf("trans: invalid permutation %v of %s", perm, types.ShapeString(from)))
	}
	shape := make([]int, len(perm))
	for i1, e1 := range perm {
		shape[i1] = from[e1]
	}
	inst := &TransInstruction{src: src, perm: slices.Clone(perm)}
	inst.typ = bd.m.ctx.Tile(t.Elem(), shape)
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateReduce reduces tile src along axis. Reducing the only dimension yields a scalar.
func (bd *Builder) CreateReduce(op types.ReduceOperation, src Value, axis int) *ReduceInstruction {
	t := mustTile("reduce", src)
	shape := t.Shape()
	if axis < 0 || axis >= len(shape) {
		panic(fmt.Sprintf("reduce: axis %d out of range for %s", axis, types.ShapeString(shape)))
	}
	inst := &ReduceInstruction{op: op, src: src, axis: axis}
	if len(shape) == 1 {
		inst.typ = t.Elem()
	} else {
		inst.typ = bd.m.ctx.Tile(t.Elem(), slices.Delete(shape, axis, axis+1))
	}
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateDot computes a @ b + c for the tiles a (M x K), b (K x N) and c (M x N).
func (bd *Builder) CreateDot(a, b, c Value) *DotInstruction {
	sa, sb, sc := mustTile("dot", a).Shape(), mustTile("dot", b).Shape(), mustTile("dot", c).Shape()
	if len(sa) != 2 || len(sb) != 2 || len(sc) != 2 || sa[1] != sb[0] || sc[0] != sa[0] || sc[1] != sb[1] {
		panic(fmt.Sprintf("dot: incompatible shapes %s, %s and %s", types.ShapeString(sa), types.ShapeString(sb),
			types.ShapeString(sc)))
	}
	inst := &DotInstruction{a: a, b: b, c: c}
	inst.typ = c.DataType()
	bd.insert(inst, &inst.instr)
	return inst
}

// -----------------------------
// ----- Call instructions -----
// -----------------------------

// CreateCall calls fn with args, which must match the parameter types of fn.
func (bd *Builder) CreateCall(fn *Function, args []Value) *CallInstruction {
	params := fn.typ.Params()
	if len(params) != len(args) {
		panic(fmt.Sprintf("call %s: expected %d arguments, got %d", fn.Name(), len(params), len(args)))
	}
	for i1, e1 := range args {
		if e1.DataType() != params[i1] {
			panic(fmt.Sprintf("call %s: argument %d is %s, expected %s", fn.Name(), i1, e1.DataType().String(),
				params[i1].String()))
		}
	}
	inst := &CallInstruction{fn: fn, args: slices.Clone(args)}
	inst.typ = fn.typ.Ret()
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateProgramId yields the i32 id of the running program along axis.
func (bd *Builder) CreateProgramId(axis int) *ProgramInstruction {
	return bd.createProgram(types.ProgramIdInstruction, axis)
}

// CreateNumPrograms yields the i32 number of programs along axis.
func (bd *Builder) CreateNumPrograms(axis int) *ProgramInstruction {
	return bd.createProgram(types.NumProgramsInstruction, axis)
}

// createProgram creates a launch grid query.
func (bd *Builder) createProgram(kind types.InstructionType, axis int) *ProgramInstruction {
	if axis < 0 || axis > 2 {
		panic(fmt.Sprintf("%s: axis %d out of range", kind.String(), axis))
	}
	inst := &ProgramInstruction{kind: kind, axis: axis}
	inst.typ = bd.m.ctx.Int32()
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateBarrier synchronises the threads of the running program.
func (bd *Builder) CreateBarrier() *BarrierInstruction {
	inst := &BarrierInstruction{}
	inst.typ = bd.m.ctx.Void()
	bd.insert(inst, &inst.instr)
	return inst
}

// -------------------------------
// ----- Branch instructions -----
// -------------------------------

// CreateBr creates an unconditional branch to dst, terminating the insertion block.
func (bd *Builder) CreateBr(dst *Block) *BranchInstruction {
	inst := &BranchInstruction{kind: types.BranchInstruction, next: dst}
	inst.typ = bd.m.ctx.Void()
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateCondBr branches to thn if the scalar i1 cond is set and to els otherwise.
func (bd *Builder) CreateCondBr(cond Value, thn, els *Block) *BranchInstruction {
	if cond.DataType() != bd.m.ctx.Int1() {
		panic(fmt.Sprintf("br: condition must be i1, got %s", cond.DataType().String()))
	}
	inst := &BranchInstruction{kind: types.ConditionalBranchInstruction, next: thn, els: els, val: cond}
	inst.typ = bd.m.ctx.Void()
	bd.insert(inst, &inst.instr)
	return inst
}

// CreateRet returns val from the function. A <nil> val returns void.
func (bd *Builder) CreateRet(val Value) *BranchInstruction {
	if bd.blk == nil {
		panic("no insertion block for ret")
	}
	ret := bd.blk.f.typ.Ret()
	if (val == nil && ret.ID() != types.VoidTyID) || (val != nil && val.DataType() != ret) {
		panic(fmt.Sprintf("ret: function %s returns %s", bd.blk.f.Name(), ret.String()))
	}
	inst := &BranchInstruction{kind: types.ReturnInstruction, val: val}
	inst.typ = bd.m.ctx.Void()
	bd.insert(inst, &inst.instr)
	return inst
}

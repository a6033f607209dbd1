// Package llvm lowers tile IR modules to LLVM IR for the system installed LLVM runtime. Tiles become flat vectors in
// row-major order; tile shape operations become vector shuffles.
package llvm

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"tinygo.org/x/go-llvm"

	"tlc/src/ir/tir"
	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// generator holds the LLVM state of one module under construction. A generator is not safe for concurrent use;
// every module gets its own LLVM context.
type generator struct {
	ctx    llvm.Context                   // LLVM context owning every type and value of the module.
	m      llvm.Module                    // Module under construction.
	b      llvm.Builder                   // Builder positioned in the block being lowered.
	fn     llvm.Value                     // Function being lowered.
	funcs  map[*tir.Function]llvm.Value   // Lowered function declarations.
	blocks map[*tir.Block]llvm.BasicBlock // Basic blocks of the function being lowered.
	vals   map[tir.Value]llvm.Value       // Lowered parameters and instructions of the function being lowered.
	log    *slog.Logger                   // Logger.
}

// binOp creates an LLVM arithmetic instruction.
type binOp func(b llvm.Builder, lhs, rhs llvm.Value, name string) llvm.Value

// castOp creates an LLVM conversion instruction.
type castOp func(b llvm.Builder, val llvm.Value, t llvm.Type, name string) llvm.Value

// ---------------------
// ----- Constants -----
// ---------------------

const (
	programIdFunc   = "tlc.program_id"     // Runtime function returning the program index along an axis.
	numProgramsFunc = "tlc.num_programs"   // Runtime function returning the number of programs along an axis.
	barrierFunc     = "tlc.barrier"        // Runtime function synchronising all threads of a program.
	mdMultipleOf    = "tlc.multiple_of"    // Metadata kind of the multiple_of hint.
	mdMaxContiguous = "tlc.max_contiguous" // Metadata kind of the max_contiguous hint.
)

// -------------------
// ----- Globals -----
// -------------------

// binOps maps tile IR arithmetic operations to LLVM instructions.
var binOps = map[types.ArithmeticOperation]binOp{
	types.Add:  llvm.Builder.CreateAdd,
	types.FAdd: llvm.Builder.CreateFAdd,
	types.Sub:  llvm.Builder.CreateSub,
	types.FSub: llvm.Builder.CreateFSub,
	types.Mul:  llvm.Builder.CreateMul,
	types.FMul: llvm.Builder.CreateFMul,
	types.SDiv: llvm.Builder.CreateSDiv,
	types.UDiv: llvm.Builder.CreateUDiv,
	types.FDiv: llvm.Builder.CreateFDiv,
	types.SRem: llvm.Builder.CreateSRem,
	types.URem: llvm.Builder.CreateURem,
	types.FRem: llvm.Builder.CreateFRem,
	types.Shl:  llvm.Builder.CreateShl,
	types.LShr: llvm.Builder.CreateLShr,
	types.AShr: llvm.Builder.CreateAShr,
	types.And:  llvm.Builder.CreateAnd,
	types.Or:   llvm.Builder.CreateOr,
	types.Xor:  llvm.Builder.CreateXor,
}

// castOps maps tile IR conversions to LLVM instructions.
var castOps = map[types.CastOperation]castOp{
	types.Trunc:    llvm.Builder.CreateTrunc,
	types.ZExt:     llvm.Builder.CreateZExt,
	types.SExt:     llvm.Builder.CreateSExt,
	types.FPTrunc:  llvm.Builder.CreateFPTrunc,
	types.FPExt:    llvm.Builder.CreateFPExt,
	types.SIToFP:   llvm.Builder.CreateSIToFP,
	types.UIToFP:   llvm.Builder.CreateUIToFP,
	types.FPToSI:   llvm.Builder.CreateFPToSI,
	types.FPToUI:   llvm.Builder.CreateFPToUI,
	types.PtrToInt: llvm.Builder.CreatePtrToInt,
	types.IntToPtr: llvm.Builder.CreateIntToPtr,
	types.BitCast:  llvm.Builder.CreateBitCast,
}

// intPreds maps integer comparisons to LLVM predicates.
var intPreds = map[types.CmpPredicate]llvm.IntPredicate{
	types.ICmpEQ:  llvm.IntEQ,
	types.ICmpNE:  llvm.IntNE,
	types.ICmpSLT: llvm.IntSLT,
	types.ICmpSLE: llvm.IntSLE,
	types.ICmpSGT: llvm.IntSGT,
	types.ICmpSGE: llvm.IntSGE,
	types.ICmpULT: llvm.IntULT,
	types.ICmpULE: llvm.IntULE,
	types.ICmpUGT: llvm.IntUGT,
	types.ICmpUGE: llvm.IntUGE,
}

// floatPreds maps floating point comparisons to LLVM predicates.
var floatPreds = map[types.CmpPredicate]llvm.FloatPredicate{
	types.FCmpOEQ: llvm.FloatOEQ,
	types.FCmpONE: llvm.FloatONE,
	types.FCmpOLT: llvm.FloatOLT,
	types.FCmpOLE: llvm.FloatOLE,
	types.FCmpOGT: llvm.FloatOGT,
	types.FCmpOGE: llvm.FloatOGE,
}

// mathIntrinsics maps elementwise math operations to the LLVM intrinsic family implementing them.
var mathIntrinsics = map[types.MathOperation]string{
	types.Exp:  "llvm.exp",
	types.Log:  "llvm.log",
	types.Sqrt: "llvm.sqrt",
}

// ---------------------
// ----- Functions -----
// ---------------------

// GenLLVM lowers the tile IR module m to LLVM IR, verifies it and returns its textual representation.
func GenLLVM(m *tir.Module, log *slog.Logger) (string, error) {
	if m == nil {
		return "", errors.New("tile IR module is <nil>")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	g := &generator{
		ctx:   ctx,
		m:     ctx.NewModule(m.Name),
		b:     ctx.NewBuilder(),
		funcs: make(map[*tir.Function]llvm.Value, len(m.Functions())),
		log:   log,
	}
	defer g.b.Dispose()
	defer g.m.Dispose()

	// Declare every function before lowering bodies, so calls may reference later functions.
	for _, e1 := range m.Functions() {
		if err := g.declare(e1); err != nil {
			return "", errors.Wrapf(err, "function %s", e1.Ident())
		}
	}
	for _, e1 := range m.Functions() {
		if e1.IsDeclaration() {
			continue
		}
		if err := g.genBody(e1); err != nil {
			return "", errors.Wrapf(err, "function %s", e1.Ident())
		}
	}
	if err := llvm.VerifyModule(g.m, llvm.ReturnStatusAction); err != nil {
		return "", errors.Wrapf(err, "module %s", m.Name)
	}
	log.Debug("lowered module to LLVM", "module", m.Name, "functions", len(m.Functions()))
	return g.m.String(), nil
}

// declare adds the LLVM declaration of f, naming its parameters and attaching their attributes.
func (g *generator) declare(f *tir.Function) error {
	ft, err := g.typ(f.Signature())
	if err != nil {
		return err
	}
	fn := llvm.AddFunction(g.m, f.Ident(), ft)
	for i1, e1 := range f.Params() {
		fn.Param(i1).SetName(bare(e1.Name()))
		for _, e2 := range e1.Attrs() {
			g.paramAttr(fn, i1, e2)
		}
	}
	g.funcs[f] = fn
	return nil
}

// paramAttr attaches the tile IR attribute a to parameter i of fn. Hints without an LLVM counterpart become
// string attributes.
func (g *generator) paramAttr(fn llvm.Value, i int, a tir.Attribute) {
	var attr llvm.Attribute
	switch a.Kind {
	case tir.NoAlias:
		attr = g.ctx.CreateEnumAttribute(llvm.AttributeKindID("noalias"), 0)
	case tir.Aligned:
		attr = g.ctx.CreateEnumAttribute(llvm.AttributeKindID("align"), uint64(a.Value))
	case tir.ReadOnly:
		attr = g.ctx.CreateEnumAttribute(llvm.AttributeKindID("readonly"), 0)
	case tir.WriteOnly:
		attr = g.ctx.CreateEnumAttribute(llvm.AttributeKindID("writeonly"), 0)
	case tir.MultipleOf:
		attr = g.ctx.CreateStringAttribute(mdMultipleOf, strconv.Itoa(a.Value))
	default:
		attr = g.ctx.CreateStringAttribute("tlc."+a.Kind.String(), "")
	}
	fn.AddAttributeAtIndex(i+1, attr)
}

// genBody lowers the blocks of f. Blocks are lowered in reverse postorder so definitions precede their uses;
// unreachable blocks follow in source order.
func (g *generator) genBody(f *tir.Function) error {
	g.fn = g.funcs[f]
	g.blocks = make(map[*tir.Block]llvm.BasicBlock, len(f.Blocks()))
	g.vals = make(map[tir.Value]llvm.Value, 64)
	for i1, e1 := range f.Params() {
		g.vals[e1] = g.fn.Param(i1)
	}
	for _, e1 := range f.Blocks() {
		g.blocks[e1] = g.ctx.AddBasicBlock(g.fn, e1.Name())
	}
	for _, e1 := range blockOrder(f) {
		g.b.SetInsertPointAtEnd(g.blocks[e1])
		for _, e2 := range e1.Instructions() {
			if err := g.genInst(e2); err != nil {
				return errors.Wrapf(err, "%s: %s", e1.Name(), e2.String())
			}
		}
	}
	return nil
}

// blockOrder returns the blocks of f in reverse postorder from the entry block, followed by unreachable blocks.
func blockOrder(f *tir.Function) []*tir.Block {
	seen := make(map[*tir.Block]bool, len(f.Blocks()))
	post := make([]*tir.Block, 0, len(f.Blocks()))
	var visit func(b *tir.Block)
	visit = func(b *tir.Block) {
		seen[b] = true
		if br, ok := b.Terminator().(*tir.BranchInstruction); ok {
			for _, e1 := range br.Successors() {
				if !seen[e1] {
					visit(e1)
				}
			}
		}
		post = append(post, b)
	}
	visit(f.Entry())
	slices.Reverse(post)
	return append(post, lo.Filter(f.Blocks(), func(b *tir.Block, _ int) bool { return !seen[b] })...)
}

// ------------------------
// ----- Instructions -----
// ------------------------

// genInst lowers one instruction at the end of the current block.
func (g *generator) genInst(inst tir.Instruction) error {
	ops := make([]llvm.Value, 0, 3)
	for _, e1 := range inst.Operands() {
		v, err := g.value(e1)
		if err != nil {
			return err
		}
		ops = append(ops, v)
	}
	name := bare(inst.Name())
	var res llvm.Value
	var err error

	switch x := inst.(type) {
	case *tir.DeclareInstruction:
		t, terr := g.typ(x.Elem())
		if terr != nil {
			return terr
		}
		res = g.b.CreateAlloca(t, name)
	case *tir.LoadInstruction:
		res = g.b.CreateLoad(ops[0], name)
	case *tir.StoreInstruction:
		g.b.CreateStore(ops[0], ops[1])
		return nil
	case *tir.MaskedLoadInstruction:
		res, err = g.genMaskedLoad(x, ops[0], ops[1], ops[2], name)
	case *tir.MaskedStoreInstruction:
		return g.genMaskedStore(x, ops[0], ops[1], ops[2])
	case *tir.GEPInstruction:
		switch x.Kind() {
		case tir.GEPStruct:
			res = g.b.CreateStructGEP(ops[0], x.Field(), name)
		case tir.GEPArray:
			res = g.b.CreateGEP(ops[0], []llvm.Value{llvm.ConstInt(g.ctx.Int64Type(), 0, false), ops[1]}, name)
		default:
			res = g.b.CreateGEP(ops[0], []llvm.Value{ops[1]}, name)
		}
	case *tir.AtomicInstruction:
		res, err = g.genAtomic(x, ops, name)
	case *tir.DataInstruction:
		op, ok := binOps[x.Operation()]
		if !ok {
			return errors.Errorf("unexpected arithmetic operation %s", x.Operation().String())
		}
		res = op(g.b, ops[0], ops[1], name)
	case *tir.CompareInstruction:
		res, err = g.genCmp(x.Predicate(), ops[0], ops[1], name)
	case *tir.SelectInstruction:
		res = g.b.CreateSelect(ops[0], ops[1], ops[2], name)
	case *tir.MathInstruction:
		t := ops[0].Type()
		fn := g.intrinsic(mathIntrinsics[x.Operation()]+"."+mangle(t), llvm.FunctionType(t, []llvm.Type{t}, false))
		res = g.b.CreateCall(fn, ops, name)
	case *tir.CastInstruction:
		t, terr := g.typ(x.DataType())
		if terr != nil {
			return terr
		}
		res = castOps[x.Operation()](g.b, ops[0], t, name)
	case *tir.ShapeInstruction:
		res, err = g.genShape(x, ops[0], name)
	case *tir.TransInstruction:
		src := types.Shape(x.Operands()[0].DataType())
		res = g.shuffle(ops[0], transMask(src, x.Perm()), name)
	case *tir.ReduceInstruction:
		res, err = g.genReduce(x, ops[0], name)
	case *tir.DotInstruction:
		res, err = g.genDot(x, ops[0], ops[1], ops[2], name)
	case *tir.CallInstruction:
		if x.DataType().ID() == types.VoidTyID {
			name = ""
		}
		res = g.b.CreateCall(g.funcs[x.Callee()], ops, name)
	case *tir.ProgramInstruction:
		fname := programIdFunc
		if x.Type() == types.NumProgramsInstruction {
			fname = numProgramsFunc
		}
		i32 := g.ctx.Int32Type()
		fn := g.intrinsic(fname, llvm.FunctionType(i32, []llvm.Type{i32}, false))
		res = g.b.CreateCall(fn, []llvm.Value{llvm.ConstInt(i32, uint64(x.Axis()), false)}, name)
	case *tir.BarrierInstruction:
		fn := g.intrinsic(barrierFunc, llvm.FunctionType(g.ctx.VoidType(), nil, false))
		res = g.b.CreateCall(fn, nil, "")
	case *tir.BranchInstruction:
		return g.genBranch(x, ops)
	default:
		return errors.Errorf("unexpected instruction %s", inst.Type().String())
	}
	if err != nil {
		return err
	}
	g.setMetadata(inst, res)
	g.vals[inst] = res
	return nil
}

// genBranch lowers branches and returns.
func (g *generator) genBranch(br *tir.BranchInstruction, ops []llvm.Value) error {
	succ := br.Successors()
	switch br.Type() {
	case types.BranchInstruction:
		g.b.CreateBr(g.blocks[succ[0]])
	case types.ConditionalBranchInstruction:
		g.b.CreateCondBr(ops[0], g.blocks[succ[0]], g.blocks[succ[1]])
	case types.ReturnInstruction:
		if len(ops) == 0 {
			g.b.CreateRetVoid()
		} else {
			g.b.CreateRet(ops[0])
		}
	default:
		return errors.Errorf("unexpected terminator %s", br.Type().String())
	}
	return nil
}

// genCmp compares lhs and rhs with the integer or floating point predicate pred.
func (g *generator) genCmp(pred types.CmpPredicate, lhs, rhs llvm.Value, name string) (llvm.Value, error) {
	if p, ok := intPreds[pred]; ok {
		return g.b.CreateICmp(p, lhs, rhs, name), nil
	}
	if p, ok := floatPreds[pred]; ok {
		return g.b.CreateFCmp(p, lhs, rhs, name), nil
	}
	return llvm.Value{}, errors.Errorf("unexpected predicate %s", pred.String())
}

// genMaskedLoad lowers a masked load to the masked gather intrinsic. A scalar load gathers one element.
func (g *generator) genMaskedLoad(inst *tir.MaskedLoadInstruction, ptrs, mask, fill llvm.Value,
	name string) (llvm.Value, error) {
	scalar := ptrs.Type().TypeKind() != llvm.VectorTypeKind
	if scalar {
		ptrs, mask, fill = g.vec1(ptrs), g.vec1(mask), g.vec1(fill)
	}
	t := fill.Type()
	ft := llvm.FunctionType(t, []llvm.Type{ptrs.Type(), g.ctx.Int32Type(), mask.Type(), t}, false)
	fn := g.intrinsic("llvm.masked.gather."+mangle(t)+"."+mangle(ptrs.Type()), ft)
	align := llvm.ConstInt(g.ctx.Int32Type(), uint64(alignOf(types.Scalar(inst.DataType()))), false)
	if scalar {
		v := g.b.CreateCall(fn, []llvm.Value{ptrs, align, mask, fill}, "")
		return g.b.CreateExtractElement(v, llvm.ConstInt(g.ctx.Int32Type(), 0, false), name), nil
	}
	return g.b.CreateCall(fn, []llvm.Value{ptrs, align, mask, fill}, name), nil
}

// genMaskedStore lowers a masked store to the masked scatter intrinsic. A scalar store scatters one element.
func (g *generator) genMaskedStore(inst *tir.MaskedStoreInstruction, val, ptrs, mask llvm.Value) error {
	if ptrs.Type().TypeKind() != llvm.VectorTypeKind {
		val, ptrs, mask = g.vec1(val), g.vec1(ptrs), g.vec1(mask)
	}
	t := val.Type()
	ft := llvm.FunctionType(g.ctx.VoidType(), []llvm.Type{t, ptrs.Type(), g.ctx.Int32Type(), mask.Type()}, false)
	fn := g.intrinsic("llvm.masked.scatter."+mangle(t)+"."+mangle(ptrs.Type()), ft)
	align := llvm.ConstInt(g.ctx.Int32Type(), uint64(alignOf(types.Scalar(inst.Operands()[0].DataType()))), false)
	g.b.CreateCall(fn, []llvm.Value{val, ptrs, align, mask}, "")
	return nil
}

// genAtomic lowers read-modify-write operations. The old value is returned. Floating point addition loops on a
// compare and exchange of the value's bits.
func (g *generator) genAtomic(inst *tir.AtomicInstruction, ops []llvm.Value, name string) (llvm.Value, error) {
	const order = llvm.AtomicOrderingSequentiallyConsistent
	if ops[0].Type().TypeKind() != llvm.PointerTypeKind {
		return llvm.Value{}, errors.New("atomic operation through a tile of pointers")
	}
	switch inst.Operation() {
	case types.AtomicAdd:
		return g.b.CreateAtomicRMW(llvm.AtomicRMWBinOpAdd, ops[0], ops[1], order, false), nil
	case types.AtomicXchg:
		return g.b.CreateAtomicRMW(llvm.AtomicRMWBinOpXchg, ops[0], ops[1], order, false), nil
	case types.AtomicCAS:
		pair := g.b.CreateAtomicCmpXchg(ops[0], ops[1], ops[2], order, order, false)
		return g.b.CreateExtractValue(pair, 0, name), nil
	case types.AtomicFAdd:
	default:
		return llvm.Value{}, errors.Errorf("unexpected atomic operation %s", inst.Operation().String())
	}

	ptr, val := ops[0], ops[1]
	ft := val.Type()
	it := g.ctx.IntType(types.BitWidth(inst.DataType()))
	iptr := g.b.CreateBitCast(ptr, llvm.PointerType(it, ptr.Type().PointerAddressSpace()), "")
	prev := g.b.GetInsertBlock()
	loop := g.ctx.AddBasicBlock(g.fn, "atomic.loop")
	done := g.ctx.AddBasicBlock(g.fn, "atomic.done")
	init := g.b.CreateLoad(ptr, "")
	g.b.CreateBr(loop)

	g.b.SetInsertPointAtEnd(loop)
	old := g.b.CreatePHI(ft, name)
	sum := g.b.CreateFAdd(old, val, "")
	pair := g.b.CreateAtomicCmpXchg(iptr, g.b.CreateBitCast(old, it, ""), g.b.CreateBitCast(sum, it, ""), order,
		order, false)
	cur := g.b.CreateBitCast(g.b.CreateExtractValue(pair, 0, ""), ft, "")
	old.AddIncoming([]llvm.Value{init, cur}, []llvm.BasicBlock{prev, loop})
	g.b.CreateCondBr(g.b.CreateExtractValue(pair, 1, ""), done, loop)

	g.b.SetInsertPointAtEnd(done)
	return old, nil
}

// ---------------------------
// ----- Tile operations -----
// ---------------------------

// genShape lowers splat, broadcast and reshape. Tiles are flat, so reshapes keep the vector.
func (g *generator) genShape(inst *tir.ShapeInstruction, src llvm.Value, name string) (llvm.Value, error) {
	dst := types.Shape(inst.DataType())
	switch inst.Type() {
	case types.SplatInstruction:
		vt := llvm.VectorType(src.Type(), types.NumElements(dst))
		zero := llvm.ConstInt(g.ctx.Int32Type(), 0, false)
		v := g.b.CreateInsertElement(llvm.Undef(vt), src, zero, "")
		return g.b.CreateShuffleVector(v, llvm.Undef(vt), llvm.ConstNull(llvm.VectorType(g.ctx.Int32Type(),
			types.NumElements(dst))), name), nil
	case types.BroadcastInstruction:
		return g.shuffle(src, broadcastMask(types.Shape(inst.Operands()[0].DataType()), dst), name), nil
	case types.ReshapeInstruction:
		return src, nil
	}
	return llvm.Value{}, errors.Errorf("unexpected shape instruction %s", inst.Type().String())
}

// shuffle selects the elements of the vector v at the indices of mask.
func (g *generator) shuffle(v llvm.Value, mask []int, name string) llvm.Value {
	i32 := g.ctx.Int32Type()
	idx := lo.Map(mask, func(i int, _ int) llvm.Value { return llvm.ConstInt(i32, uint64(i), false) })
	return g.b.CreateShuffleVector(v, llvm.Undef(v.Type()), llvm.ConstVector(idx, false), name)
}

// genReduce folds the tile src along the reduced axis element by element.
func (g *generator) genReduce(inst *tir.ReduceInstruction, src llvm.Value, name string) (llvm.Value, error) {
	shape := types.Shape(inst.Operands()[0].DataType())
	axis := inst.Axis()
	res := slices.Delete(slices.Clone(shape), axis, axis+1)
	n := types.NumElements(res)

	rt, err := g.typ(inst.DataType())
	if err != nil {
		return llvm.Value{}, err
	}
	out := llvm.Undef(rt)
	for i1 := 0; i1 < n; i1++ {
		idx := slices.Insert(unflatten(i1, res), axis, 0)
		acc := g.extract(src, flatten(idx, shape))
		for i2 := 1; i2 < shape[axis]; i2++ {
			idx[axis] = i2
			acc = g.combine(inst.Operation(), acc, g.extract(src, flatten(idx, shape)))
		}
		if len(res) == 0 {
			acc.SetName(name)
			return acc, nil
		}
		out = g.b.CreateInsertElement(out, acc, llvm.ConstInt(g.ctx.Int32Type(), uint64(i1), false), "")
	}
	out.SetName(name)
	return out, nil
}

// combine applies the reduction operator op to two scalars.
func (g *generator) combine(op types.ReduceOperation, a, b llvm.Value) llvm.Value {
	switch op {
	case types.ReduceAdd:
		return g.b.CreateAdd(a, b, "")
	case types.ReduceFAdd:
		return g.b.CreateFAdd(a, b, "")
	case types.ReduceMax:
		return g.b.CreateSelect(g.b.CreateICmp(llvm.IntSGT, a, b, ""), a, b, "")
	case types.ReduceUMax:
		return g.b.CreateSelect(g.b.CreateICmp(llvm.IntUGT, a, b, ""), a, b, "")
	case types.ReduceFMax:
		return g.b.CreateSelect(g.b.CreateFCmp(llvm.FloatOGT, a, b, ""), a, b, "")
	case types.ReduceMin:
		return g.b.CreateSelect(g.b.CreateICmp(llvm.IntSLT, a, b, ""), a, b, "")
	case types.ReduceUMin:
		return g.b.CreateSelect(g.b.CreateICmp(llvm.IntULT, a, b, ""), a, b, "")
	}
	return g.b.CreateSelect(g.b.CreateFCmp(llvm.FloatOLT, a, b, ""), a, b, "")
}

// genDot computes c + a @ b one output element at a time.
func (g *generator) genDot(inst *tir.DotInstruction, a, b, c llvm.Value, name string) (llvm.Value, error) {
	sa := types.Shape(inst.Operands()[0].DataType())
	sc := types.Shape(inst.DataType())
	if len(sa) != 2 || len(sc) != 2 {
		return llvm.Value{}, errors.Errorf("dot of %s and %s", inst.Operands()[0].DataType().String(),
			inst.Operands()[1].DataType().String())
	}
	m, k, n := sa[0], sa[1], sc[1]
	float := types.IsFloat(inst.DataType())
	out := c
	for i1 := 0; i1 < m; i1++ {
		for i2 := 0; i2 < n; i2++ {
			acc := g.extract(c, i1*n+i2)
			for i3 := 0; i3 < k; i3++ {
				x, y := g.extract(a, i1*k+i3), g.extract(b, i3*n+i2)
				if float {
					acc = g.b.CreateFAdd(acc, g.b.CreateFMul(x, y, ""), "")
				} else {
					acc = g.b.CreateAdd(acc, g.b.CreateMul(x, y, ""), "")
				}
			}
			out = g.b.CreateInsertElement(out, acc, llvm.ConstInt(g.ctx.Int32Type(), uint64(i1*n+i2), false), "")
		}
	}
	out.SetName(name)
	return out, nil
}

// extract returns element i of the vector v.
func (g *generator) extract(v llvm.Value, i int) llvm.Value {
	return g.b.CreateExtractElement(v, llvm.ConstInt(g.ctx.Int32Type(), uint64(i), false), "")
}

// vec1 returns the scalar v as a one-element vector.
func (g *generator) vec1(v llvm.Value) llvm.Value {
	vt := llvm.VectorType(v.Type(), 1)
	return g.b.CreateInsertElement(llvm.Undef(vt), v, llvm.ConstInt(g.ctx.Int32Type(), 0, false), "")
}

// ------------------------
// ----- Values/types -----
// ------------------------

// value returns the LLVM value of the tile IR value v. Constants are created on use.
func (g *generator) value(v tir.Value) (llvm.Value, error) {
	switch x := v.(type) {
	case *tir.Constant:
		t, err := g.typ(x.DataType())
		if err != nil {
			return llvm.Value{}, err
		}
		if x.IsZero() {
			return llvm.ConstNull(t), nil
		}
		switch c := x.Value().(type) {
		case int64:
			return llvm.ConstInt(t, uint64(c), true), nil
		case float64:
			return llvm.ConstFloat(t, c), nil
		}
		return llvm.Value{}, errors.Errorf("constant %s of unexpected kind", x.Name())
	case *tir.UndefValue:
		t, err := g.typ(x.DataType())
		if err != nil {
			return llvm.Value{}, err
		}
		return llvm.Undef(t), nil
	case *tir.RangeValue:
		first, last := x.Bounds()
		i32 := g.ctx.Int32Type()
		elems := lo.Map(lo.RangeFrom(first, int(last-first)), func(i int64, _ int) llvm.Value {
			return llvm.ConstInt(i32, uint64(i), true)
		})
		return llvm.ConstVector(elems, false), nil
	case *tir.Function:
		return g.funcs[x], nil
	}
	if lv, ok := g.vals[v]; ok {
		return lv, nil
	}
	return llvm.Value{}, errors.Errorf("use of %s before its definition", v.Name())
}

// typ lowers a tile IR data type. Tiles become vectors of their element count.
func (g *generator) typ(t types.DataType) (llvm.Type, error) {
	switch tt := t.(type) {
	case *types.VoidType:
		return g.ctx.VoidType(), nil
	case *types.IntType:
		return g.ctx.IntType(tt.Bits()), nil
	case *types.FloatType:
		switch tt.Bits() {
		case 32:
			return g.ctx.FloatType(), nil
		case 64:
			return g.ctx.DoubleType(), nil
		}
		return llvm.Type{}, errors.Errorf("unsupported floating point type %s", tt.String())
	case *types.PointerType:
		elem, err := g.typ(tt.Elem())
		if err != nil {
			return llvm.Type{}, err
		}
		return llvm.PointerType(elem, tt.AddrSpace()), nil
	case *types.ArrayType:
		elem, err := g.typ(tt.Elem())
		if err != nil {
			return llvm.Type{}, err
		}
		return llvm.ArrayType(elem, tt.Len()), nil
	case *types.TileType:
		elem, err := g.typ(tt.Elem())
		if err != nil {
			return llvm.Type{}, err
		}
		return llvm.VectorType(elem, tt.NumElements()), nil
	case *types.StructType:
		fields := make([]llvm.Type, len(tt.Fields()))
		for i1, e1 := range tt.Fields() {
			ft, err := g.typ(e1)
			if err != nil {
				return llvm.Type{}, err
			}
			fields[i1] = ft
		}
		return g.ctx.StructType(fields, tt.Packed()), nil
	case *types.FunctionType:
		ret, err := g.typ(tt.Ret())
		if err != nil {
			return llvm.Type{}, err
		}
		params := make([]llvm.Type, len(tt.Params()))
		for i1, e1 := range tt.Params() {
			if params[i1], err = g.typ(e1); err != nil {
				return llvm.Type{}, err
			}
		}
		return llvm.FunctionType(ret, params, false), nil
	}
	return llvm.Type{}, errors.Errorf("unsupported data type %s", t.String())
}

// intrinsic returns the function name of type ft, declaring it on first use.
func (g *generator) intrinsic(name string, ft llvm.Type) llvm.Value {
	if fn := g.m.NamedFunction(name); !fn.IsNil() {
		return fn
	}
	return llvm.AddFunction(g.m, name, ft)
}

// setMetadata attaches the analysis hints of inst to the LLVM instruction v.
func (g *generator) setMetadata(inst tir.Instruction, v llvm.Value) {
	if v.IsNil() || v.IsAInstruction().IsNil() {
		return
	}
	for kind, md := range map[tir.MetadataKind]string{
		tir.MetadataMultipleOf:    mdMultipleOf,
		tir.MetadataMaxContiguous: mdMaxContiguous,
	} {
		n, ok := inst.Metadata(kind)
		if !ok {
			continue
		}
		node := g.ctx.MDNode([]llvm.Metadata{llvm.ConstInt(g.ctx.Int32Type(), uint64(n), false).ConstantAsMetadata()})
		v.SetMetadata(g.ctx.MDKindID(md), node)
	}
}

// bare returns the name of a tile IR value without its sigil, or "" for numbered values.
func bare(name string) string {
	name = strings.TrimLeft(name, "%@")
	if len(name) == 0 || (name[0] >= '0' && name[0] <= '9') {
		return ""
	}
	return name
}

// mangle returns the overload suffix of an LLVM intrinsic for type t, e.g. v16f32 or v16p1f32.
func mangle(t llvm.Type) string {
	switch t.TypeKind() {
	case llvm.IntegerTypeKind:
		return fmt.Sprintf("i%d", t.IntTypeWidth())
	case llvm.FloatTypeKind:
		return "f32"
	case llvm.DoubleTypeKind:
		return "f64"
	case llvm.PointerTypeKind:
		return fmt.Sprintf("p%d%s", t.PointerAddressSpace(), mangle(t.ElementType()))
	case llvm.VectorTypeKind:
		return fmt.Sprintf("v%d%s", t.VectorSize(), mangle(t.ElementType()))
	}
	return t.String()
}

// alignOf returns the natural alignment in bytes of the scalar type t.
func alignOf(t types.DataType) int {
	if types.IsPointer(t) {
		return 8
	}
	return max(types.BitWidth(t)/8, 1)
}

// -------------------------
// ----- Index helpers -----
// -------------------------

// flatten returns the row-major offset of the multi-index idx in shape.
func flatten(idx, shape []int) int {
	off := 0
	for i1, e1 := range shape {
		off = off*e1 + idx[i1]
	}
	return off
}

// unflatten returns the multi-index of the row-major offset off in shape.
func unflatten(off int, shape []int) []int {
	idx := make([]int, len(shape))
	for i1 := len(shape) - 1; i1 >= 0; i1-- {
		idx[i1] = off % shape[i1]
		off /= shape[i1]
	}
	return idx
}

// broadcastMask returns the source offset of every element of a tile of shape dst broadcast from shape src of
// equal rank.
func broadcastMask(src, dst []int) []int {
	mask := make([]int, types.NumElements(dst))
	for i1 := range mask {
		idx := unflatten(i1, dst)
		for i2, e2 := range src {
			if e2 == 1 {
				idx[i2] = 0
			}
		}
		mask[i1] = flatten(idx, src)
	}
	return mask
}

// transMask returns the source offset of every element of the permutation perm of a tile of shape src.
func transMask(src, perm []int) []int {
	dst := lo.Map(perm, func(p int, _ int) int { return src[p] })
	mask := make([]int, types.NumElements(dst))
	idx := make([]int, len(src))
	for i1 := range mask {
		for i2, e2 := range unflatten(i1, dst) {
			idx[perm[i2]] = e2
		}
		mask[i1] = flatten(idx, src)
	}
	return mask
}

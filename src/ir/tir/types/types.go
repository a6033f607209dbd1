// Package types defines tile IR instruction types, operators and data types.
package types

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// InstructionType defines different type of tile IR values and instructions.
type InstructionType uint

// ArithmeticOperation defines a binary arithmetic or bitwise operation.
type ArithmeticOperation uint

// CmpPredicate defines the predicate of an integer or floating point comparison.
type CmpPredicate uint

// CastOperation defines a conversion between two data types.
type CastOperation uint

// ReduceOperation defines the associative operator of a tile reduction.
type ReduceOperation uint

// AtomicOperation defines a read-modify-write memory operation.
type AtomicOperation uint

// MathOperation defines an elementwise transcendental operation.
type MathOperation uint

// ---------------------
// ----- Constants -----
// ---------------------

const (
	Constant InstructionType = iota
	Undef
	Range
	Param
	Function
	DeclareInstruction
	DataInstruction
	CompareInstruction
	CastInstruction
	LoadInstruction
	StoreInstruction
	MaskedLoadInstruction
	MaskedStoreInstruction
	GEPInstruction
	SplatInstruction
	BroadcastInstruction
	ReshapeInstruction
	TransInstruction
	ReduceInstruction
	DotInstruction
	SelectInstruction
	MathInstruction
	CallInstruction
	ProgramIdInstruction
	NumProgramsInstruction
	AtomicInstruction
	BarrierInstruction
	BranchInstruction
	ConditionalBranchInstruction
	ReturnInstruction
)

const (
	Add  ArithmeticOperation = iota // Add identifies the integer operation a = b + c.
	FAdd                            // FAdd identifies the floating point operation a = b + c.
	Sub                             // Sub identifies the integer operation a = b - c.
	FSub                            // FSub identifies the floating point operation a = b - c.
	Mul                             // Mul identifies the integer operation a = b * c.
	FMul                            // FMul identifies the floating point operation a = b * c.
	SDiv                            // SDiv identifies the signed integer operation a = b / c.
	UDiv                            // UDiv identifies the unsigned integer operation a = b / c.
	FDiv                            // FDiv identifies the floating point operation a = b / c.
	SRem                            // SRem identifies the signed integer operation a = b % c.
	URem                            // URem identifies the unsigned integer operation a = b % c.
	FRem                            // FRem identifies the floating point operation a = b % c.
	Shl                             // Shl identifies the operation a = b << c.
	LShr                            // LShr identifies the logical shift a = b >> c.
	AShr                            // AShr identifies the arithmetic shift a = b >> c.
	And                             // And identifies the bitwise operation a = b & c.
	Or                              // Or identifies the bitwise operation a = b | c.
	Xor                             // Xor identifies the bitwise operation a = b ^ c.
)

const (
	ICmpEQ CmpPredicate = iota
	ICmpNE
	ICmpSLT
	ICmpSLE
	ICmpSGT
	ICmpSGE
	ICmpULT
	ICmpULE
	ICmpUGT
	ICmpUGE
	FCmpOEQ
	FCmpONE
	FCmpOLT
	FCmpOLE
	FCmpOGT
	FCmpOGE
)

const (
	Trunc CastOperation = iota
	ZExt
	SExt
	FPTrunc
	FPExt
	SIToFP
	UIToFP
	FPToSI
	FPToUI
	PtrToInt
	IntToPtr
	BitCast
)

const (
	ReduceAdd ReduceOperation = iota
	ReduceFAdd
	ReduceMax
	ReduceUMax
	ReduceFMax
	ReduceMin
	ReduceUMin
	ReduceFMin
)

const (
	AtomicCAS AtomicOperation = iota
	AtomicXchg
	AtomicAdd
	AtomicFAdd
)

const (
	Exp MathOperation = iota
	Log
	Sqrt
)

// -------------------
// ----- Globals -----
// -------------------

// iTyp provides string literals for InstructionType constants.
var iTyp = [...]string{
	"Constant",
	"Undef",
	"Range",
	"Param",
	"Function",
	"DeclareInstruction",
	"DataInstruction",
	"CompareInstruction",
	"CastInstruction",
	"LoadInstruction",
	"StoreInstruction",
	"MaskedLoadInstruction",
	"MaskedStoreInstruction",
	"GEPInstruction",
	"SplatInstruction",
	"BroadcastInstruction",
	"ReshapeInstruction",
	"TransInstruction",
	"ReduceInstruction",
	"DotInstruction",
	"SelectInstruction",
	"MathInstruction",
	"CallInstruction",
	"ProgramIdInstruction",
	"NumProgramsInstruction",
	"AtomicInstruction",
	"BarrierInstruction",
	"BranchInstruction",
	"ConditionalBranchInstruction",
	"ReturnInstruction",
}

// aTyp provides string literals for ArithmeticOperation constants.
var aTyp = [...]string{
	"add",
	"fadd",
	"sub",
	"fsub",
	"mul",
	"fmul",
	"sdiv",
	"udiv",
	"fdiv",
	"srem",
	"urem",
	"frem",
	"shl",
	"lshr",
	"ashr",
	"and",
	"or",
	"xor",
}

// cTyp provides string literals for CmpPredicate constants.
var cTyp = [...]string{
	"icmp eq",
	"icmp ne",
	"icmp slt",
	"icmp sle",
	"icmp sgt",
	"icmp sge",
	"icmp ult",
	"icmp ule",
	"icmp ugt",
	"icmp uge",
	"fcmp oeq",
	"fcmp one",
	"fcmp olt",
	"fcmp ole",
	"fcmp ogt",
	"fcmp oge",
}

// castTyp provides string literals for CastOperation constants.
var castTyp = [...]string{
	"trunc",
	"zext",
	"sext",
	"fptrunc",
	"fpext",
	"sitofp",
	"uitofp",
	"fptosi",
	"fptoui",
	"ptrtoint",
	"inttoptr",
	"bitcast",
}

// rTyp provides string literals for ReduceOperation constants.
var rTyp = [...]string{
	"add",
	"fadd",
	"max",
	"umax",
	"fmax",
	"min",
	"umin",
	"fmin",
}

// atTyp provides string literals for AtomicOperation constants.
var atTyp = [...]string{
	"cas",
	"xchg",
	"add",
	"fadd",
}

// mTyp provides string literals for MathOperation constants.
var mTyp = [...]string{
	"exp",
	"log",
	"sqrt",
}

// ---------------------
// ----- Functions -----
// ---------------------

// String provides a print friendly string representation of the InstructionType.
func (inst InstructionType) String() string {
	return iTyp[inst]
}

// String provides a print friendly string representation of the ArithmeticOperation.
func (op ArithmeticOperation) String() string {
	return aTyp[op]
}

// IsFloat returns true if the ArithmeticOperation operates on floating point operands.
func (op ArithmeticOperation) IsFloat() bool {
	return op == FAdd || op == FSub || op == FMul || op == FDiv || op == FRem
}

// String provides a print friendly string representation of the CmpPredicate.
func (p CmpPredicate) String() string {
	return cTyp[p]
}

// IsFloat returns true if the CmpPredicate compares floating point operands.
func (p CmpPredicate) IsFloat() bool {
	return p >= FCmpOEQ
}

// String provides a print friendly string representation of the CastOperation.
func (op CastOperation) String() string {
	return castTyp[op]
}

// String provides a print friendly string representation of the ReduceOperation.
func (op ReduceOperation) String() string {
	return rTyp[op]
}

// String provides a print friendly string representation of the AtomicOperation.
func (op AtomicOperation) String() string {
	return atTyp[op]
}

// String provides a print friendly string representation of the MathOperation.
func (op MathOperation) String() string {
	return mTyp[op]
}

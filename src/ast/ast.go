// Package ast defines the checked syntax tree of the kernel language consumed by the code generator. Every
// expression carries its surface type; trees are built in Go or decoded from YAML documents.
package ast

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Node is a node of the syntax tree. The set of nodes is closed.
type Node interface {
	node()
}

// Stmt is a node that can appear in a statement list. Expressions are statements.
type Stmt interface {
	Node
	stmt()
}

// Expr is a node that produces a value of its checked type.
type Expr interface {
	Stmt
	Type() Type
}

// BinOpKind differentiates binary operators.
type BinOpKind int

// UnaryOpKind differentiates unary operators.
type UnaryOpKind int

// ReduceKind differentiates the operators of a reduction.
type ReduceKind int

// JumpKind differentiates jump statements.
type JumpKind int

// BinaryOp is a binary operation, including assignments, subscripts, member accesses and masked dereferences.
type BinaryOp struct {
	Op  BinOpKind // Operator.
	LHS Expr      // Left hand side operand. The mask of a masked dereference.
	RHS Expr      // Right hand side operand. The field name identifier of a member access.
	Typ Type      // Checked result type.
}

// UnaryOp is a unary operation.
type UnaryOp struct {
	Op      UnaryOpKind // Operator.
	Operand Expr        // Operand.
	Reduce  ReduceKind  // Operator of a reduction.
	Axis    int         // Reduced dimension of a reduction.
	Typ     Type        // Checked result type. The target type of casts.
}

// TransOp permutes the dimensions of a tile, or reshapes it to its result type if Perm is empty.
type TransOp struct {
	Operand Expr  // Tile operand.
	Perm    []int // Result dimension i is operand dimension Perm[i].
	Typ     Type  // Checked result type.
}

// ConditionalOp is the ternary operator cond ? then : else.
type ConditionalOp struct {
	Cond Expr // Condition.
	Then Expr // Value where the condition holds.
	Else Expr // Value where the condition does not hold.
	Typ  Type // Checked result type.
}

// FuncCall calls an intrinsic or a user function by name.
type FuncCall struct {
	Callee string // Name of function.
	Args   []Expr // Arguments.
	Typ    Type   // Checked result type.
}

// Object is a declared variable or parameter. Used as an expression it denotes the object's value.
type Object struct {
	Name  string // Name of object. Unique within its scope.
	Typ   Type   // Declared type.
	Attrs []Attr // Attributes of the object.
}

// Enumerator is a named integer constant.
type Enumerator struct {
	Name  string // Name of enumerator.
	Value int64  // Value of enumerator.
	Typ   Type   // Integer type of the enumerator.
}

// Identifier references a declared object, parameter or field by name.
type Identifier struct {
	Name string // Referenced name.
	Typ  Type   // Checked type of the referenced entity.
}

// Constant is a literal: integer, boolean, floating point or string.
type Constant struct {
	Int   int64   // Value of integer and boolean literals.
	Float float64 // Value of floating point literals.
	Str   string  // Value of string literals.
	IsStr bool    // Set true for string literals.
	Typ   Type    // Type of the literal.
}

// TempVar is an expression evaluated once: the first evaluation lowers Init, later evaluations reuse its value.
type TempVar struct {
	Name string // Unique name of the temporary.
	Init Expr   // Initializer.
}

// Initializer stores one value at a byte offset of a declared object.
type Initializer struct {
	Offset int  // Byte offset within the object.
	Typ    Type // Type of the initialized element.
	Expr   Expr // Initial value.
}

// Declaration declares an object and optionally initializes it.
type Declaration struct {
	Obj   *Object       // Declared object.
	Inits []Initializer // Initializers ordered by offset.
}

// EmptyStmt does nothing.
type EmptyStmt struct{}

// IfStmt executes Then if Cond holds, otherwise Else.
type IfStmt struct {
	Cond Expr // Scalar condition.
	Then Stmt // Executed if Cond holds.
	Else Stmt // Optional. Executed if Cond does not hold.
}

// ForStmt is the loop for (Init; Cond; Step) Body.
type ForStmt struct {
	Init Stmt // Optional initialization. A Declaration or an expression.
	Cond Expr // Optional scalar condition. A missing condition always holds.
	Step Expr // Optional step expression.
	Body Stmt // Loop body.
}

// JumpStmt is break, continue or goto.
type JumpStmt struct {
	Kind  JumpKind // Kind of jump.
	Label string   // Target label of goto.
}

// ReturnStmt returns from the current function.
type ReturnStmt struct {
	Expr Expr // Optional returned value.
}

// LabelStmt names the statement that follows it.
type LabelStmt struct {
	Label string // Label name.
	Stmt  Stmt   // Labelled statement.
}

// CompoundStmt is a block that opens a scope.
type CompoundStmt struct {
	Stmts []Stmt // Statements of the block.
}

// FuncDef defines a function. A definition without Body is a prototype.
type FuncDef struct {
	Name   string        // Name of function.
	Typ    *FuncType     // Signature.
	Params []*Object     // Named parameters, typed like Typ.Params.
	Body   *CompoundStmt // Optional body.
}

// TranslationUnit is a compiled document: a set of functions.
type TranslationUnit struct {
	Name  string     // Name of translation unit, used as module name.
	Funcs []*FuncDef // Functions in source order.
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	Add BinOpKind = iota
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	And
	Or
	Xor
	LogicalAnd
	LogicalOr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	MatMul
	Ellipsis
	MaskedDeref
	Subscript
	Member
	Comma
	Assign
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	ModAssign
	ShlAssign
	ShrAssign
	AndAssign
	OrAssign
	XorAssign
)

const (
	Neg UnaryOpKind = iota
	BitNot
	LogicalNot
	PreInc
	PreDec
	PostInc
	PostDec
	Deref
	Addr
	Cast
	BitCast
	Exp
	Log
	Sqrt
	Reduce
)

const (
	ReduceSum ReduceKind = iota
	ReduceMax
	ReduceMin
)

const (
	Break JumpKind = iota
	Continue
	Goto
)

// -------------------
// ----- Globals -----
// -------------------

// binOps provides the source spelling of BinOpKind constants.
var binOps = [...]string{
	"+", "-", "*", "/", "%", "<<", ">>", "&", "|", "^", "&&", "||",
	"==", "!=", "<", "<=", ">", ">=", "@", "...", "?*", "[]", ".", ",",
	"=", "+=", "-=", "*=", "/=", "%=", "<<=", ">>=", "&=", "|=", "^=",
}

// unaryOps provides the source spelling of UnaryOpKind constants.
var unaryOps = [...]string{
	"-", "~", "!", "++x", "--x", "x++", "x--", "*", "&", "cast", "bitcast", "exp", "log", "sqrt", "reduce",
}

// reduceOps provides the source spelling of ReduceKind constants.
var reduceOps = [...]string{"sum", "max", "min"}

// jumps provides the source spelling of JumpKind constants.
var jumps = [...]string{"break", "continue", "goto"}

// ---------------------
// ----- Functions -----
// ---------------------

func (*BinaryOp) node()        {}
func (*UnaryOp) node()         {}
func (*TransOp) node()         {}
func (*ConditionalOp) node()   {}
func (*FuncCall) node()        {}
func (*Object) node()          {}
func (*Enumerator) node()      {}
func (*Identifier) node()      {}
func (*Constant) node()        {}
func (*TempVar) node()         {}
func (*Declaration) node()     {}
func (*EmptyStmt) node()       {}
func (*IfStmt) node()          {}
func (*ForStmt) node()         {}
func (*JumpStmt) node()        {}
func (*ReturnStmt) node()      {}
func (*LabelStmt) node()       {}
func (*CompoundStmt) node()    {}
func (*FuncDef) node()         {}
func (*TranslationUnit) node() {}

func (*BinaryOp) stmt()      {}
func (*UnaryOp) stmt()       {}
func (*TransOp) stmt()       {}
func (*ConditionalOp) stmt() {}
func (*FuncCall) stmt()      {}
func (*Object) stmt()        {}
func (*Enumerator) stmt()    {}
func (*Identifier) stmt()    {}
func (*Constant) stmt()      {}
func (*TempVar) stmt()       {}
func (*Declaration) stmt()   {}
func (*EmptyStmt) stmt()     {}
func (*IfStmt) stmt()        {}
func (*ForStmt) stmt()       {}
func (*JumpStmt) stmt()      {}
func (*ReturnStmt) stmt()    {}
func (*LabelStmt) stmt()     {}
func (*CompoundStmt) stmt()  {}

func (e *BinaryOp) Type() Type      { return e.Typ }
func (e *UnaryOp) Type() Type       { return e.Typ }
func (e *TransOp) Type() Type       { return e.Typ }
func (e *ConditionalOp) Type() Type { return e.Typ }
func (e *FuncCall) Type() Type      { return e.Typ }
func (e *Object) Type() Type        { return e.Typ }
func (e *Enumerator) Type() Type    { return e.Typ }
func (e *Identifier) Type() Type    { return e.Typ }
func (e *Constant) Type() Type      { return e.Typ }
func (e *TempVar) Type() Type       { return e.Init.Type() }

// String returns the source spelling of the BinOpKind.
func (k BinOpKind) String() string {
	if k < 0 || int(k) >= len(binOps) {
		return "?"
	}
	return binOps[k]
}

// IsAssign returns true for the assignment operators.
func (k BinOpKind) IsAssign() bool {
	return k >= Assign
}

// Compound returns the arithmetic operator of a compound assignment, e.g. Add for AddAssign.
func (k BinOpKind) Compound() (BinOpKind, bool) {
	if k <= Assign {
		return k, false
	}
	return [...]BinOpKind{Add, Sub, Mul, Div, Mod, Shl, Shr, And, Or, Xor}[k-AddAssign], true
}

// IsComparison returns true for the relational and equality operators.
func (k BinOpKind) IsComparison() bool {
	return k >= Eq && k <= Ge
}

// String returns the source spelling of the UnaryOpKind.
func (k UnaryOpKind) String() string {
	if k < 0 || int(k) >= len(unaryOps) {
		return "?"
	}
	return unaryOps[k]
}

// String returns the source spelling of the ReduceKind.
func (k ReduceKind) String() string {
	if k < 0 || int(k) >= len(reduceOps) {
		return "?"
	}
	return reduceOps[k]
}

// String returns the source spelling of the JumpKind.
func (k JumpKind) String() string {
	return jumps[k]
}

// Objects returns the objects declared directly in the CompoundStmt, in declaration order.
func (s *CompoundStmt) Objects() []*Object {
	res := make([]*Object, 0, 4)
	for _, e1 := range s.Stmts {
		if d, ok := e1.(*Declaration); ok {
			res = append(res, d.Obj)
		}
	}
	return res
}

// Lookup returns the function named name.
func (tu *TranslationUnit) Lookup(name string) (*FuncDef, bool) {
	for _, e1 := range tu.Funcs {
		if e1.Name == name {
			return e1, true
		}
	}
	return nil, false
}

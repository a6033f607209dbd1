package ast

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Document is the YAML form of a translation unit.
type Document struct {
	// Name of the translation unit. Defaults to the source name.
	Name string `yaml:"name"`

	// Structs declares struct types referenced as "struct <name>".
	Structs []StructDoc `yaml:"structs,omitempty"`

	// Functions lists function definitions and prototypes in source order.
	Functions []FuncDoc `yaml:"functions"`
}

// StructDoc declares a struct type.
type StructDoc struct {
	Name   string     `yaml:"name"`
	Packed bool       `yaml:"packed,omitempty"`
	Fields []FieldDoc `yaml:"fields"`
}

// FieldDoc declares a struct field.
type FieldDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// FuncDoc declares a function. A function without body is a prototype.
type FuncDoc struct {
	Name     string    `yaml:"name"`
	Ret      string    `yaml:"ret"`
	Params   []ObjDoc  `yaml:"params,omitempty"`
	Variadic bool      `yaml:"variadic,omitempty"`
	Body     []StmtDoc `yaml:"body,omitempty"`
}

// ObjDoc declares a parameter or local object.
type ObjDoc struct {
	Name  string    `yaml:"name"`
	Type  string    `yaml:"type"`
	Attrs []AttrDoc `yaml:"attrs,omitempty"`
}

// AttrDoc is an attribute of an object, e.g. {kind: aligned, value: 16}.
type AttrDoc struct {
	Kind  string `yaml:"kind"`
	Value int    `yaml:"value,omitempty"`
}

// StmtDoc is a statement. Exactly one field is set.
type StmtDoc struct {
	Decl     *DeclDoc   `yaml:"decl,omitempty"`
	Expr     *ExprDoc   `yaml:"expr,omitempty"`
	If       *IfDoc     `yaml:"if,omitempty"`
	For      *ForDoc    `yaml:"for,omitempty"`
	Block    []StmtDoc  `yaml:"block,omitempty"`
	Return   *ReturnDoc `yaml:"return,omitempty"`
	Break    bool       `yaml:"break,omitempty"`
	Continue bool       `yaml:"continue,omitempty"`
	Goto     string     `yaml:"goto,omitempty"`
	Label    *LabelDoc  `yaml:"label,omitempty"`
	Empty    bool       `yaml:"empty,omitempty"`
}

// DeclDoc declares a local object with an optional initial value, or per offset initializers for aggregates.
type DeclDoc struct {
	ObjDoc `yaml:",inline"`
	Init   *ExprDoc  `yaml:"init,omitempty"`
	Inits  []InitDoc `yaml:"inits,omitempty"`
}

// InitDoc initializes an element of an aggregate at a byte offset.
type InitDoc struct {
	Offset int     `yaml:"offset"`
	Type   string  `yaml:"type"`
	Value  ExprDoc `yaml:"value"`
}

// IfDoc is an if statement.
type IfDoc struct {
	Cond ExprDoc   `yaml:"cond"`
	Then []StmtDoc `yaml:"then"`
	Else []StmtDoc `yaml:"else,omitempty"`
}

// ForDoc is a for loop.
type ForDoc struct {
	Init *StmtDoc  `yaml:"init,omitempty"`
	Cond *ExprDoc  `yaml:"cond,omitempty"`
	Step *ExprDoc  `yaml:"step,omitempty"`
	Body []StmtDoc `yaml:"body"`
}

// ReturnDoc is a return statement with an optional value.
type ReturnDoc struct {
	Value *ExprDoc `yaml:"value,omitempty"`
}

// LabelDoc labels a statement.
type LabelDoc struct {
	Name string  `yaml:"name"`
	Stmt StmtDoc `yaml:"stmt"`
}

// ExprDoc is an expression. The set field selects the kind of expression.
type ExprDoc struct {
	Ident  string     `yaml:"ident,omitempty"`
	Int    *int64     `yaml:"int,omitempty"`
	Float  *float64   `yaml:"float,omitempty"`
	Bool   *bool      `yaml:"bool,omitempty"`
	Str    *string    `yaml:"string,omitempty"`
	Type   string     `yaml:"type,omitempty"`
	Binary string     `yaml:"binary,omitempty"`
	LHS    *ExprDoc   `yaml:"lhs,omitempty"`
	RHS    *ExprDoc   `yaml:"rhs,omitempty"`
	Unary  string     `yaml:"unary,omitempty"`
	X      *ExprDoc   `yaml:"x,omitempty"`
	Axis   int        `yaml:"axis,omitempty"`
	Call   string     `yaml:"call,omitempty"`
	Args   []*ExprDoc `yaml:"args,omitempty"`
	Cond   *ExprDoc   `yaml:"cond,omitempty"`
	Then   *ExprDoc   `yaml:"then,omitempty"`
	Else   *ExprDoc   `yaml:"else,omitempty"`
	Trans  *ExprDoc   `yaml:"trans,omitempty"`
	Perm   []int      `yaml:"perm,omitempty"`
	Shape  []int      `yaml:"shape,omitempty"`
	Enum   string     `yaml:"enum,omitempty"`
	Value  int64      `yaml:"value,omitempty"`
	Temp   string     `yaml:"temp,omitempty"`
	Init   *ExprDoc   `yaml:"init,omitempty"`
}

// decoder resolves names and types while converting a Document into a TranslationUnit.
type decoder struct {
	structs map[string]*StructType // Declared structs by tag.
	funcs   map[string]*FuncType   // Declared function signatures by name.
	scopes  []map[string]Type      // Lexical scopes, innermost last.
	temps   map[string]*TempVar    // Temporaries of the current function by name.
}

// -------------------
// ----- Globals -----
// -------------------

// unaryNames maps the YAML spelling of unary operators to their kind.
var unaryNames = map[string]UnaryOpKind{
	"-":       Neg,
	"~":       BitNot,
	"!":       LogicalNot,
	"++x":     PreInc,
	"--x":     PreDec,
	"x++":     PostInc,
	"x--":     PostDec,
	"*":       Deref,
	"&":       Addr,
	"cast":    Cast,
	"bitcast": BitCast,
	"exp":     Exp,
	"log":     Log,
	"sqrt":    Sqrt,
}

// reduceNames maps the YAML spelling of reductions to their kind.
var reduceNames = map[string]ReduceKind{
	"sum": ReduceSum,
	"max": ReduceMax,
	"min": ReduceMin,
}

// ---------------------
// ----- Functions -----
// ---------------------

// Decode reads a YAML document from r and converts it into a TranslationUnit. Unknown fields are rejected.
// name is used as translation unit name if the document does not provide one.
func Decode(name string, r io.Reader) (*TranslationUnit, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(doc.Name) == 0 {
		doc.Name = name
	}
	tu, err := doc.TranslationUnit()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Name, err)
	}
	return tu, nil
}

// DecodeBytes is like Decode for an in-memory document.
func DecodeBytes(name string, data []byte) (*TranslationUnit, error) {
	return Decode(name, bytes.NewReader(data))
}

// TranslationUnit converts the Document into a checked TranslationUnit.
func (doc *Document) TranslationUnit() (*TranslationUnit, error) {
	d := &decoder{
		structs: make(map[string]*StructType, len(doc.Structs)),
		funcs:   make(map[string]*FuncType, len(doc.Functions)),
	}
	for _, e1 := range doc.Structs {
		st := &StructType{Name: e1.Name, Packed: e1.Packed}
		d.structs[e1.Name] = st
		for _, e2 := range e1.Fields {
			t, err := ParseType(e2.Type, d.structs)
			if err != nil {
				return nil, fmt.Errorf("struct %s, field %s: %w", e1.Name, e2.Name, err)
			}
			st.Fields = append(st.Fields, Field{Name: e2.Name, Type: t})
		}
	}

	// Signatures first, so that calls may reference functions defined later.
	tu := &TranslationUnit{Name: doc.Name, Funcs: make([]*FuncDef, len(doc.Functions))}
	for i1, e1 := range doc.Functions {
		fd, err := d.signature(e1)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", e1.Name, err)
		}
		if prev, ok := d.funcs[e1.Name]; ok && !Equal(prev, fd.Typ) {
			return nil, fmt.Errorf("function %s: conflicting declarations", e1.Name)
		}
		d.funcs[e1.Name] = fd.Typ
		tu.Funcs[i1] = fd
	}
	for i1, e1 := range doc.Functions {
		if e1.Body == nil {
			continue
		}
		fd := tu.Funcs[i1]
		d.temps = make(map[string]*TempVar, 4)
		d.push()
		for _, e2 := range fd.Params {
			d.bind(e2.Name, e2.Typ)
		}
		body, err := d.block(e1.Body)
		d.pop()
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", e1.Name, err)
		}
		fd.Body = body
	}
	return tu, nil
}

// signature converts the prototype part of a function.
func (d *decoder) signature(doc FuncDoc) (*FuncDef, error) {
	ret, err := ParseType(doc.Ret, d.structs)
	if err != nil {
		return nil, err
	}
	fd := &FuncDef{Name: doc.Name, Typ: &FuncType{Ret: ret, Variadic: doc.Variadic}}
	for _, e1 := range doc.Params {
		obj, err := d.object(e1)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", e1.Name, err)
		}
		fd.Params = append(fd.Params, obj)
		fd.Typ.Params = append(fd.Typ.Params, obj.Typ)
	}
	return fd, nil
}

// object converts an object declaration.
func (d *decoder) object(doc ObjDoc) (*Object, error) {
	t, err := ParseType(doc.Type, d.structs)
	if err != nil {
		return nil, err
	}
	obj := &Object{Name: doc.Name, Typ: t}
	for _, e1 := range doc.Attrs {
		k, err := ParseAttrKind(e1.Kind)
		if err != nil {
			return nil, err
		}
		obj.Attrs = append(obj.Attrs, Attr{Kind: k, Value: e1.Value})
	}
	return obj, nil
}

func (d *decoder) push() {
	d.scopes = append(d.scopes, make(map[string]Type, 8))
}

func (d *decoder) pop() {
	d.scopes = d.scopes[:len(d.scopes)-1]
}

func (d *decoder) bind(name string, t Type) {
	d.scopes[len(d.scopes)-1][name] = t
}

// lookup resolves name from the innermost scope outwards.
func (d *decoder) lookup(name string) (Type, bool) {
	for i1 := len(d.scopes) - 1; i1 >= 0; i1-- {
		if t, ok := d.scopes[i1][name]; ok {
			return t, true
		}
	}
	return nil, false
}

// block converts a statement list into a CompoundStmt with its own scope.
func (d *decoder) block(docs []StmtDoc) (*CompoundStmt, error) {
	d.push()
	defer d.pop()
	res := &CompoundStmt{Stmts: make([]Stmt, 0, len(docs))}
	for _, e1 := range docs {
		s, err := d.stmt(e1)
		if err != nil {
			return nil, err
		}
		res.Stmts = append(res.Stmts, s)
	}
	return res, nil
}

// stmt converts a statement.
func (d *decoder) stmt(doc StmtDoc) (Stmt, error) {
	switch {
	case doc.Decl != nil:
		return d.declaration(doc.Decl)
	case doc.Expr != nil:
		return d.expr(doc.Expr)
	case doc.If != nil:
		cond, err := d.expr(&doc.If.Cond)
		if err != nil {
			return nil, err
		}
		s := &IfStmt{Cond: cond}
		if s.Then, err = d.block(doc.If.Then); err != nil {
			return nil, err
		}
		if doc.If.Else != nil {
			if s.Else, err = d.block(doc.If.Else); err != nil {
				return nil, err
			}
		}
		return s, nil
	case doc.For != nil:
		return d.forStmt(doc.For)
	case doc.Block != nil:
		return d.block(doc.Block)
	case doc.Return != nil:
		if doc.Return.Value == nil {
			return &ReturnStmt{}, nil
		}
		e, err := d.expr(doc.Return.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Expr: e}, nil
	case doc.Break:
		return &JumpStmt{Kind: Break}, nil
	case doc.Continue:
		return &JumpStmt{Kind: Continue}, nil
	case len(doc.Goto) > 0:
		return &JumpStmt{Kind: Goto, Label: doc.Goto}, nil
	case doc.Label != nil:
		s, err := d.stmt(doc.Label.Stmt)
		if err != nil {
			return nil, err
		}
		return &LabelStmt{Label: doc.Label.Name, Stmt: s}, nil
	case doc.Empty:
		return &EmptyStmt{}, nil
	}
	return nil, fmt.Errorf("empty statement document")
}

// forStmt converts a for loop. The loop opens a scope for its init declaration.
func (d *decoder) forStmt(doc *ForDoc) (Stmt, error) {
	d.push()
	defer d.pop()
	s := &ForStmt{}
	var err error
	if doc.Init != nil {
		if s.Init, err = d.stmt(*doc.Init); err != nil {
			return nil, err
		}
	}
	if doc.Cond != nil {
		if s.Cond, err = d.expr(doc.Cond); err != nil {
			return nil, err
		}
	}
	if doc.Step != nil {
		if s.Step, err = d.expr(doc.Step); err != nil {
			return nil, err
		}
	}
	if s.Body, err = d.block(doc.Body); err != nil {
		return nil, err
	}
	return s, nil
}

// declaration converts a local declaration and binds its name in the current scope.
func (d *decoder) declaration(doc *DeclDoc) (*Declaration, error) {
	obj, err := d.object(doc.ObjDoc)
	if err != nil {
		return nil, fmt.Errorf("declaration %s: %w", doc.Name, err)
	}
	decl := &Declaration{Obj: obj}
	if doc.Init != nil {
		e, err := d.expr(doc.Init)
		if err != nil {
			return nil, fmt.Errorf("declaration %s: %w", doc.Name, err)
		}
		decl.Inits = append(decl.Inits, Initializer{Offset: 0, Typ: obj.Typ, Expr: e})
	}
	for _, e1 := range doc.Inits {
		t, err := ParseType(e1.Type, d.structs)
		if err != nil {
			return nil, fmt.Errorf("declaration %s: %w", doc.Name, err)
		}
		e, err := d.expr(&e1.Value)
		if err != nil {
			return nil, fmt.Errorf("declaration %s: %w", doc.Name, err)
		}
		decl.Inits = append(decl.Inits, Initializer{Offset: e1.Offset, Typ: t, Expr: e})
	}
	d.bind(obj.Name, obj.Typ)
	return decl, nil
}

// literalKind returns the arithmetic kind named by a literal's type field, or def if it's empty.
func (d *decoder) literalKind(spelling string, def ArithKind) (ArithKind, error) {
	if len(spelling) == 0 {
		return def, nil
	}
	t, err := ParseType(spelling, d.structs)
	if err != nil {
		return 0, err
	}
	at, ok := t.(*ArithmType)
	if !ok {
		return 0, fmt.Errorf("invalid literal type %s", t.String())
	}
	return at.Kind, nil
}

// expr converts an expression.
func (d *decoder) expr(doc *ExprDoc) (Expr, error) {
	if doc == nil {
		return nil, fmt.Errorf("missing expression")
	}
	switch {
	case len(doc.Ident) > 0:
		t, ok := d.lookup(doc.Ident)
		if !ok {
			return nil, fmt.Errorf("undeclared identifier %q", doc.Ident)
		}
		return Ident(doc.Ident, t), nil
	case doc.Int != nil:
		k, err := d.literalKind(doc.Type, Int)
		if err != nil {
			return nil, err
		}
		if k.IsFloat() {
			return FloatConst(float64(*doc.Int), k), nil
		}
		return IntConst(*doc.Int, k), nil
	case doc.Float != nil:
		k, err := d.literalKind(doc.Type, Float)
		if err != nil {
			return nil, err
		}
		return FloatConst(*doc.Float, k), nil
	case doc.Bool != nil:
		return BoolConst(*doc.Bool), nil
	case doc.Str != nil:
		return StrConst(*doc.Str), nil
	case len(doc.Enum) > 0:
		k, err := d.literalKind(doc.Type, Int)
		if err != nil {
			return nil, err
		}
		return &Enumerator{Name: doc.Enum, Value: doc.Value, Typ: Arith(k)}, nil
	case len(doc.Binary) > 0:
		return d.binary(doc)
	case len(doc.Unary) > 0:
		return d.unary(doc)
	case len(doc.Call) > 0:
		args := make([]Expr, len(doc.Args))
		for i1, e1 := range doc.Args {
			a, err := d.expr(e1)
			if err != nil {
				return nil, fmt.Errorf("call %s, argument %d: %w", doc.Call, i1, err)
			}
			args[i1] = a
		}
		return d.call(doc.Call, args)
	case doc.Cond != nil:
		c, err := d.expr(doc.Cond)
		if err != nil {
			return nil, err
		}
		t, err := d.expr(doc.Then)
		if err != nil {
			return nil, err
		}
		e, err := d.expr(doc.Else)
		if err != nil {
			return nil, err
		}
		return Conditional(c, t, e)
	case doc.Trans != nil:
		x, err := d.expr(doc.Trans)
		if err != nil {
			return nil, err
		}
		if doc.Shape != nil {
			return Reshape(x, doc.Shape)
		}
		return Trans(x, doc.Perm)
	case len(doc.Temp) > 0:
		if tv, ok := d.temps[doc.Temp]; ok {
			return tv, nil
		}
		init, err := d.expr(doc.Init)
		if err != nil {
			return nil, fmt.Errorf("temporary %s: %w", doc.Temp, err)
		}
		tv := &TempVar{Name: doc.Temp, Init: init}
		d.temps[doc.Temp] = tv
		return tv, nil
	}
	return nil, fmt.Errorf("empty expression document")
}

// binary converts a binary operation.
func (d *decoder) binary(doc *ExprDoc) (Expr, error) {
	op := BinOpKind(-1)
	for i1, e1 := range binOps {
		if e1 == doc.Binary {
			op = BinOpKind(i1)
		}
	}
	if op < 0 {
		return nil, fmt.Errorf("unknown binary operator %q", doc.Binary)
	}
	lhs, err := d.expr(doc.LHS)
	if err != nil {
		return nil, err
	}
	if op == Member {
		st, ok := lhs.Type().(*StructType)
		if !ok || doc.RHS == nil {
			return nil, fmt.Errorf("member access on %s", lhs.Type().String())
		}
		i, ok := st.FieldIndex(doc.RHS.Ident)
		if !ok {
			return nil, fmt.Errorf("%s has no field %q", st.String(), doc.RHS.Ident)
		}
		return Binary(op, lhs, Ident(doc.RHS.Ident, st.Fields[i].Type))
	}
	rhs, err := d.expr(doc.RHS)
	if err != nil {
		return nil, err
	}
	return Binary(op, lhs, rhs)
}

// unary converts a unary operation, cast or reduction.
func (d *decoder) unary(doc *ExprDoc) (Expr, error) {
	x, err := d.expr(doc.X)
	if err != nil {
		return nil, err
	}
	if k, ok := reduceNames[doc.Unary]; ok {
		return ReduceExpr(k, x, doc.Axis)
	}
	op, ok := unaryNames[doc.Unary]
	if !ok {
		return nil, fmt.Errorf("unknown unary operator %q", doc.Unary)
	}
	if op == Cast || op == BitCast {
		t, err := ParseType(doc.Type, d.structs)
		if err != nil {
			return nil, err
		}
		if op == Cast {
			return CastTo(x, t), nil
		}
		return BitCastTo(x, t), nil
	}
	return Unary(op, x)
}

// call types a call of an intrinsic or a declared function.
func (d *decoder) call(name string, args []Expr) (Expr, error) {
	t, err := CallType(name, args, d.funcs[name])
	if err != nil {
		return nil, err
	}
	return Call(name, t, args...), nil
}

// CallType returns the result type of calling name with args. Intrinsics are typed by their arguments; any
// other function by its signature sig, which must not be <nil>.
func CallType(name string, args []Expr, sig *FuncType) (Type, error) {
	argc := func(n ...int) error {
		for _, e1 := range n {
			if len(args) == e1 {
				return nil
			}
		}
		return fmt.Errorf("%s: unexpected number of arguments %d", name, len(args))
	}
	switch name {
	case "get_program_id", "get_num_programs":
		return Arith(Int), argc(1)
	case "__debug_barrier":
		return &VoidType{}, argc(0)
	case "sqrtf", "exp", "log":
		if err := argc(1); err != nil {
			return nil, err
		}
		return args[0].Type(), nil
	case "select":
		if err := argc(3); err != nil {
			return nil, err
		}
		c, err := Conditional(args[0], args[1], args[2])
		if err != nil {
			return nil, err
		}
		return c.Typ, nil
	case "atomic_cas", "atomic_xchg", "atomic_add":
		n := 2
		if name == "atomic_cas" {
			n = 3
		}
		if err := argc(n); err != nil {
			return nil, err
		}
		pt, ok := ScalarOf(args[0].Type()).(*PointerType)
		if !ok {
			return nil, fmt.Errorf("%s: expected pointer, got %s", name, args[0].Type().String())
		}
		return WithShape(pt.Elem, ShapeOf(args[0].Type())), nil
	case "max", "min", "sum":
		if err := argc(1, 2); err != nil {
			return nil, err
		}
		axis := 0
		if len(args) == 2 {
			c, ok := args[1].(*Constant)
			if !ok || !IsInteger(c.Typ) {
				return nil, fmt.Errorf("%s: axis must be an integer constant", name)
			}
			axis = int(c.Int)
		}
		e, err := ReduceExpr(reduceNames[name], args[0], axis)
		if err != nil {
			return nil, err
		}
		return e.Typ, nil
	}
	if sig == nil {
		return nil, fmt.Errorf("call of undeclared function %q", name)
	}
	if len(args) != len(sig.Params) && !(sig.Variadic && len(args) > len(sig.Params)) {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", name, len(sig.Params), len(args))
	}
	return sig.Ret, nil
}

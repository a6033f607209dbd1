package ast

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Type is a checked surface type of the kernel language.
type Type interface {
	String() string // Source level spelling of the type.
	Size() int      // Size in bytes.
	Align() int     // Alignment in bytes.
	isType()
}

// ArithKind differentiates the arithmetic types.
type ArithKind int

// ArithmType is a boolean, integer or floating point type.
type ArithmType struct {
	Kind ArithKind // Kind of arithmetic type.
}

// VoidType is the type of expressions without value and functions without return value.
type VoidType struct{}

// PointerType points to an element type. A const qualified element lives in constant memory.
type PointerType struct {
	Elem     Type // Pointee type.
	Const    bool // Set true if the pointee is const qualified.
	Restrict bool // Set true if the pointer is restrict qualified.
}

// ArrayType is a fixed length array.
type ArrayType struct {
	Elem Type // Element type.
	Len  int  // Number of elements.
}

// TileType is a block of scalars with a compile-time shape.
type TileType struct {
	Elem  Type  // Scalar element type.
	Shape []int // Extent of every dimension.
}

// FuncType is the signature of a function.
type FuncType struct {
	Ret      Type   // Return type.
	Params   []Type // Parameter types.
	Variadic bool   // Set true if the function takes a variable number of arguments.
}

// Field is a named member of a struct.
type Field struct {
	Name string // Name of field.
	Type Type   // Type of field.
}

// StructType is an ordered aggregate of named fields.
type StructType struct {
	Name    string  // Tag of the struct.
	Fields  []Field // Fields in declaration order.
	Packed  bool    // Set true to lay out fields without padding.
	offsets []int   // Cached byte offsets of the fields.
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	Bool ArithKind = iota
	Char
	Short
	Int
	Long
	UChar
	UShort
	UInt
	ULong
	Half
	Float
	Double
)

// pointerSize is the size and alignment of pointers in bytes.
const pointerSize = 8

// -------------------
// ----- Globals -----
// -------------------

// arithNames provides the source spelling of ArithKind constants.
var arithNames = [...]string{
	"bool",
	"char",
	"short",
	"int",
	"long",
	"uchar",
	"ushort",
	"uint",
	"ulong",
	"half",
	"float",
	"double",
}

// arithBits provides the bit width of ArithKind constants.
var arithBits = [...]int{1, 8, 16, 32, 64, 8, 16, 32, 64, 16, 32, 64}

// ---------------------
// ----- Functions -----
// ---------------------

// Arith returns the arithmetic type of the given kind.
func Arith(kind ArithKind) *ArithmType {
	return &ArithmType{Kind: kind}
}

// Tile returns a tile of scalar elem with shape. A tile elem is flattened into its scalar type.
func Tile(elem Type, shape ...int) *TileType {
	return &TileType{Elem: ScalarOf(elem), Shape: slices.Clone(shape)}
}

// Pointer returns a pointer to elem.
func Pointer(elem Type) *PointerType {
	return &PointerType{Elem: elem}
}

func (t *ArithmType) isType()  {}
func (t *VoidType) isType()    {}
func (t *PointerType) isType() {}
func (t *ArrayType) isType()   {}
func (t *TileType) isType()    {}
func (t *FuncType) isType()    {}
func (t *StructType) isType()  {}

// String returns the source spelling of the ArithKind.
func (k ArithKind) String() string {
	if k < 0 || int(k) >= len(arithNames) {
		return fmt.Sprintf("arith(%d)", int(k))
	}
	return arithNames[k]
}

// Bits returns the bit width of the ArithKind.
func (k ArithKind) Bits() int {
	return arithBits[k]
}

// IsFloat returns true for floating point kinds.
func (k ArithKind) IsFloat() bool {
	return k >= Half
}

// IsInteger returns true for boolean and integer kinds.
func (k ArithKind) IsInteger() bool {
	return k < Half
}

// IsUnsigned returns true for unsigned integer kinds. Booleans are unsigned.
func (k ArithKind) IsUnsigned() bool {
	return k == Bool || (k >= UChar && k <= ULong)
}

// rank returns the conversion rank of an integer kind.
func (k ArithKind) rank() int {
	switch k {
	case Bool:
		return 0
	case Char, UChar:
		return 1
	case Short, UShort:
		return 2
	case Int, UInt:
		return 3
	}
	return 4
}

// unsigned returns the unsigned counterpart of a signed integer kind.
func (k ArithKind) unsigned() ArithKind {
	switch k {
	case Char:
		return UChar
	case Short:
		return UShort
	case Int:
		return UInt
	case Long:
		return ULong
	}
	return k
}

func (t *ArithmType) String() string { return t.Kind.String() }
func (t *ArithmType) Size() int      { return max(t.Kind.Bits()/8, 1) }
func (t *ArithmType) Align() int     { return t.Size() }

func (t *VoidType) String() string { return "void" }
func (t *VoidType) Size() int      { return 1 }
func (t *VoidType) Align() int     { return 1 }

func (t *PointerType) String() string {
	sb := strings.Builder{}
	if t.Const {
		sb.WriteString("const ")
	}
	sb.WriteString(t.Elem.String())
	sb.WriteRune('*')
	if t.Restrict {
		sb.WriteString(" restrict")
	}
	return sb.String()
}
func (t *PointerType) Size() int  { return pointerSize }
func (t *PointerType) Align() int { return pointerSize }

func (t *ArrayType) String() string { return fmt.Sprintf("array<%s, %d>", t.Elem.String(), t.Len) }
func (t *ArrayType) Size() int      { return t.Elem.Size() * t.Len }
func (t *ArrayType) Align() int     { return t.Elem.Align() }

func (t *TileType) String() string {
	dims := lo.Map(t.Shape, func(d int, _ int) string { return fmt.Sprint(d) })
	return fmt.Sprintf("tile<%s, %s>", t.Elem.String(), strings.Join(dims, ", "))
}
func (t *TileType) Size() int  { return t.Elem.Size() * NumElements(t.Shape) }
func (t *TileType) Align() int { return t.Elem.Align() }

func (t *FuncType) String() string {
	params := lo.Map(t.Params, func(p Type, _ int) string { return p.String() })
	if t.Variadic {
		params = append(params, "...")
	}
	return fmt.Sprintf("%s (%s)", t.Ret.String(), strings.Join(params, ", "))
}
func (t *FuncType) Size() int  { return pointerSize }
func (t *FuncType) Align() int { return pointerSize }

func (t *StructType) String() string { return "struct " + t.Name }

// Offsets returns the byte offset of every field.
func (t *StructType) Offsets() []int {
	if t.offsets == nil {
		t.layout()
	}
	return t.offsets
}

// Size returns the size of the struct including trailing padding.
func (t *StructType) Size() int {
	if len(t.Fields) == 0 {
		return 0
	}
	off := t.Offsets()
	last := t.Fields[len(t.Fields)-1].Type
	return alignTo(off[len(off)-1]+last.Size(), t.Align())
}

// Align returns the largest field alignment, or 1 for packed structs.
func (t *StructType) Align() int {
	if t.Packed {
		return 1
	}
	return lo.Reduce(t.Fields, func(acc int, f Field, _ int) int { return max(acc, f.Type.Align()) }, 1)
}

// FieldIndex returns the position of the named field.
func (t *StructType) FieldIndex(name string) (int, bool) {
	_, i, ok := lo.FindIndexOf(t.Fields, func(f Field) bool { return f.Name == name })
	return i, ok
}

// layout computes the field offsets.
func (t *StructType) layout() {
	t.offsets = make([]int, len(t.Fields))
	off := 0
	for i1, e1 := range t.Fields {
		if !t.Packed {
			off = alignTo(off, e1.Type.Align())
		}
		t.offsets[i1] = off
		off += e1.Type.Size()
	}
}

// alignTo rounds n up to a multiple of a.
func alignTo(n, a int) int {
	return (n + a - 1) / a * a
}

// ------------------------
// ----- Type helpers -----
// ------------------------

// ScalarOf returns the element type of a tile, or t itself for any other type.
func ScalarOf(t Type) Type {
	if tt, ok := t.(*TileType); ok {
		return tt.Elem
	}
	return t
}

// ShapeOf returns the shape of a tile, or nil for any other type.
func ShapeOf(t Type) []int {
	if tt, ok := t.(*TileType); ok {
		return tt.Shape
	}
	return nil
}

// WithShape returns the scalar type of elem shaped like shape. An empty shape yields the scalar type.
func WithShape(elem Type, shape []int) Type {
	if len(shape) == 0 {
		return ScalarOf(elem)
	}
	return Tile(elem, shape...)
}

// IsTile returns true if t is a tile.
func IsTile(t Type) bool {
	_, ok := t.(*TileType)
	return ok
}

// IsPointer returns true if the scalar type of t is a pointer.
func IsPointer(t Type) bool {
	_, ok := ScalarOf(t).(*PointerType)
	return ok
}

// IsVoid returns true if t is void.
func IsVoid(t Type) bool {
	_, ok := t.(*VoidType)
	return ok
}

// ArithOf returns the arithmetic scalar type of t.
func ArithOf(t Type) (*ArithmType, bool) {
	at, ok := ScalarOf(t).(*ArithmType)
	return at, ok
}

// IsFloat returns true if the scalar type of t is floating point.
func IsFloat(t Type) bool {
	at, ok := ArithOf(t)
	return ok && at.Kind.IsFloat()
}

// IsInteger returns true if the scalar type of t is a boolean or an integer.
func IsInteger(t Type) bool {
	at, ok := ArithOf(t)
	return ok && at.Kind.IsInteger()
}

// IsUnsigned returns true if the scalar type of t is an unsigned integer.
func IsUnsigned(t Type) bool {
	at, ok := ArithOf(t)
	return ok && at.Kind.IsUnsigned()
}

// IsBool returns true if the scalar type of t is bool.
func IsBool(t Type) bool {
	at, ok := ArithOf(t)
	return ok && at.Kind == Bool
}

// NumElements returns the product of the dimensions of shape.
func NumElements(shape []int) int {
	return lo.Reduce(shape, func(acc int, d int, _ int) int { return acc * d }, 1)
}

// Equal returns true if a and b denote the same type.
func Equal(a, b Type) bool {
	switch at := a.(type) {
	case *ArithmType:
		bt, ok := b.(*ArithmType)
		return ok && at.Kind == bt.Kind
	case *VoidType:
		_, ok := b.(*VoidType)
		return ok
	case *PointerType:
		bt, ok := b.(*PointerType)
		return ok && at.Const == bt.Const && Equal(at.Elem, bt.Elem)
	case *ArrayType:
		bt, ok := b.(*ArrayType)
		return ok && at.Len == bt.Len && Equal(at.Elem, bt.Elem)
	case *TileType:
		bt, ok := b.(*TileType)
		return ok && slices.Equal(at.Shape, bt.Shape) && Equal(at.Elem, bt.Elem)
	case *FuncType:
		bt, ok := b.(*FuncType)
		return ok && at.Variadic == bt.Variadic && Equal(at.Ret, bt.Ret) &&
			slices.EqualFunc(at.Params, bt.Params, Equal)
	case *StructType:
		bt, ok := b.(*StructType)
		return ok && at == bt
	}
	return false
}

// UsualArithConv returns the common scalar type of two arithmetic types: the wider floating point type if any
// operand is floating point, otherwise the promoted integer type following the signed/unsigned rank rules.
func UsualArithConv(a, b *ArithmType) *ArithmType {
	ka, kb := a.Kind, b.Kind
	switch {
	case ka.IsFloat() && kb.IsFloat():
		if ka.Bits() >= kb.Bits() {
			return Arith(ka)
		}
		return Arith(kb)
	case ka.IsFloat():
		return Arith(ka)
	case kb.IsFloat():
		return Arith(kb)
	}
	ka, kb = promote(ka), promote(kb)
	if ka == kb {
		return Arith(ka)
	}
	if ka.IsUnsigned() == kb.IsUnsigned() {
		if ka.rank() >= kb.rank() {
			return Arith(ka)
		}
		return Arith(kb)
	}
	u, s := ka, kb
	if !u.IsUnsigned() {
		u, s = s, u
	}
	switch {
	case u.rank() >= s.rank():
		return Arith(u)
	case s.Bits() > u.Bits():
		return Arith(s)
	}
	return Arith(s.unsigned())
}

// promote applies integer promotion: integer kinds narrower than int become int.
func promote(k ArithKind) ArithKind {
	if k.IsInteger() && k.rank() < Int.rank() {
		return Int
	}
	return k
}

// BroadcastShape returns the shape both a and b broadcast to. Shapes are right aligned, missing leading
// dimensions count as 1, and every dimension pair must be equal or contain a 1.
func BroadcastShape(a, b []int) ([]int, error) {
	n := max(len(a), len(b))
	pa, pb := PadShape(a, n), PadShape(b, n)
	res := make([]int, n)
	for i1 := 0; i1 < n; i1++ {
		switch {
		case pa[i1] == pb[i1] || pb[i1] == 1:
			res[i1] = pa[i1]
		case pa[i1] == 1:
			res[i1] = pb[i1]
		default:
			return nil, fmt.Errorf("incompatible shapes (%s) and (%s)", shapeString(a), shapeString(b))
		}
	}
	return res, nil
}

// PadShape returns shape with leading 1s prepended up to rank n.
func PadShape(shape []int, n int) []int {
	if len(shape) >= n {
		return slices.Clone(shape)
	}
	return append(lo.Times(n-len(shape), func(int) int { return 1 }), shape...)
}

// shapeString returns the comma separated dimensions of shape.
func shapeString(shape []int) string {
	return strings.Join(lo.Map(shape, func(d int, _ int) string { return fmt.Sprint(d) }), ", ")
}

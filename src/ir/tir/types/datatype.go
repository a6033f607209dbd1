package types

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// TypeID differentiates the kinds of data types.
type TypeID uint

// DataType is a tile IR data type. Data types are uniqued by a Context, so two data types are equal
// if and only if they are the same pointer.
type DataType interface {
	ID() TypeID     // Kind of data type.
	String() string // Textual representation of the data type.
	key() string    // Uniquing key within a Context.
}

// VoidType is the return type of functions that do not return a value.
type VoidType struct{}

// LabelType is the type of basic blocks.
type LabelType struct{}

// IntType is an integer of a fixed bit width. Signedness is a property of operations, not of the type.
type IntType struct {
	bits int // Bit width: 1, 8, 16, 32 or 64.
}

// FloatType is an IEEE floating point type.
type FloatType struct {
	bits int // Bit width: 16, 32 or 64.
}

// PointerType is a pointer to an element type in an address space.
type PointerType struct {
	elem      DataType // Pointee type.
	addrSpace int      // Address space: 1 is global memory, 4 is constant memory.
}

// ArrayType is a fixed length aggregate of one element type.
type ArrayType struct {
	elem DataType // Element type.
	n    int      // Number of elements.
}

// TileType is a compile-time shaped block of scalars processed in parallel.
type TileType struct {
	elem  DataType // Scalar element type.
	shape []int    // Extent of every dimension.
}

// StructType is an ordered aggregate of fields with byte offsets.
type StructType struct {
	fields  []DataType // Field types in declaration order.
	offsets []int      // Byte offset of every field.
	packed  bool       // Set true if the fields follow each other without padding.
}

// FunctionType is the signature of a function.
type FunctionType struct {
	ret    DataType   // Return type.
	params []DataType // Parameter types.
}

// Context owns and uniques data types for one module.
type Context struct {
	types map[string]DataType // Uniqued data types by key.
	mx    sync.Mutex          // Synchronises type creation.
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	VoidTyID TypeID = iota
	LabelTyID
	IntegerTyID
	FloatTyID
	PointerTyID
	ArrayTyID
	TileTyID
	StructTyID
	FunctionTyID
)

// Address spaces used by pointer types.
const (
	GlobalAddrSpace   = 1
	ConstantAddrSpace = 4
)

// ---------------------
// ----- Functions -----
// ---------------------

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{types: make(map[string]DataType, 32)}
}

// get returns the uniqued instance of t.
func (c *Context) get(t DataType) DataType {
	c.mx.Lock()
	defer c.mx.Unlock()
	k := t.key()
	if u, ok := c.types[k]; ok {
		return u
	}
	c.types[k] = t
	return t
}

// Void returns the void type.
func (c *Context) Void() *VoidType { return c.get(&VoidType{}).(*VoidType) }

// Label returns the basic block label type.
func (c *Context) Label() *LabelType { return c.get(&LabelType{}).(*LabelType) }

// Int returns the integer type of the given bit width.
func (c *Context) Int(bits int) *IntType { return c.get(&IntType{bits: bits}).(*IntType) }

// Int1 returns the boolean type.
func (c *Context) Int1() *IntType { return c.Int(1) }

// Int32 returns the 32-bit integer type.
func (c *Context) Int32() *IntType { return c.Int(32) }

// Int64 returns the 64-bit integer type.
func (c *Context) Int64() *IntType { return c.Int(64) }

// Float returns the floating point type of the given bit width.
func (c *Context) Float(bits int) *FloatType { return c.get(&FloatType{bits: bits}).(*FloatType) }

// Pointer returns a pointer to elem in the given address space.
func (c *Context) Pointer(elem DataType, addrSpace int) *PointerType {
	return c.get(&PointerType{elem: elem, addrSpace: addrSpace}).(*PointerType)
}

// Array returns an array of n elements of type elem.
func (c *Context) Array(elem DataType, n int) *ArrayType {
	return c.get(&ArrayType{elem: elem, n: n}).(*ArrayType)
}

// Tile returns a tile of scalar elem with the given shape. A tile of tiles is flattened into its scalar element.
func (c *Context) Tile(elem DataType, shape []int) *TileType {
	return c.get(&TileType{elem: Scalar(elem), shape: slices.Clone(shape)}).(*TileType)
}

// TileSameShape returns elem shaped like like. If like is not a tile the scalar elem is returned.
func (c *Context) TileSameShape(elem DataType, like DataType) DataType {
	if t, ok := like.(*TileType); ok {
		return c.Tile(elem, t.shape)
	}
	return Scalar(elem)
}

// Struct returns a struct of the given field types and byte offsets.
func (c *Context) Struct(fields []DataType, offsets []int, packed bool) *StructType {
	return c.get(&StructType{fields: slices.Clone(fields), offsets: slices.Clone(offsets), packed: packed}).(*StructType)
}

// Function returns the function type ret(params...).
func (c *Context) Function(ret DataType, params []DataType) *FunctionType {
	return c.get(&FunctionType{ret: ret, params: slices.Clone(params)}).(*FunctionType)
}

// ------------------------
// ----- Type methods -----
// ------------------------

func (t *VoidType) ID() TypeID     { return VoidTyID }
func (t *VoidType) String() string { return "void" }
func (t *VoidType) key() string    { return t.String() }

func (t *LabelType) ID() TypeID     { return LabelTyID }
func (t *LabelType) String() string { return "label" }
func (t *LabelType) key() string    { return t.String() }

func (t *IntType) ID() TypeID     { return IntegerTyID }
func (t *IntType) String() string { return fmt.Sprintf("i%d", t.bits) }
func (t *IntType) key() string    { return t.String() }

// Bits returns the bit width of the integer type.
func (t *IntType) Bits() int { return t.bits }

func (t *FloatType) ID() TypeID     { return FloatTyID }
func (t *FloatType) String() string { return fmt.Sprintf("f%d", t.bits) }
func (t *FloatType) key() string    { return t.String() }

// Bits returns the bit width of the floating point type.
func (t *FloatType) Bits() int { return t.bits }

func (t *PointerType) ID() TypeID { return PointerTyID }
func (t *PointerType) String() string {
	return fmt.Sprintf("ptr<%s, %d>", t.elem.String(), t.addrSpace)
}
func (t *PointerType) key() string { return t.String() }

// Elem returns the pointee type.
func (t *PointerType) Elem() DataType { return t.elem }

// AddrSpace returns the address space of the pointer.
func (t *PointerType) AddrSpace() int { return t.addrSpace }

func (t *ArrayType) ID() TypeID     { return ArrayTyID }
func (t *ArrayType) String() string { return fmt.Sprintf("[%d x %s]", t.n, t.elem.String()) }
func (t *ArrayType) key() string    { return t.String() }

// Elem returns the element type of the array.
func (t *ArrayType) Elem() DataType { return t.elem }

// Len returns the number of elements of the array.
func (t *ArrayType) Len() int { return t.n }

func (t *TileType) ID() TypeID { return TileTyID }
func (t *TileType) String() string {
	return fmt.Sprintf("tile<%s, %s>", ShapeString(t.shape), t.elem.String())
}
func (t *TileType) key() string { return t.String() }

// Elem returns the scalar element type of the tile.
func (t *TileType) Elem() DataType { return t.elem }

// Shape returns a copy of the tile's shape.
func (t *TileType) Shape() []int { return slices.Clone(t.shape) }

// NumElements returns the number of scalars held by the tile.
func (t *TileType) NumElements() int { return NumElements(t.shape) }

func (t *StructType) ID() TypeID { return StructTyID }
func (t *StructType) String() string {
	fields := lo.Map(t.fields, func(f DataType, _ int) string { return f.String() })
	if t.packed {
		return fmt.Sprintf("<{%s}>", strings.Join(fields, ", "))
	}
	return fmt.Sprintf("{%s}", strings.Join(fields, ", "))
}
func (t *StructType) key() string {
	return fmt.Sprintf("%s@%v", t.String(), t.offsets)
}

// Fields returns the field types of the struct.
func (t *StructType) Fields() []DataType { return t.fields }

// Offset returns the byte offset of field i.
func (t *StructType) Offset(i int) int { return t.offsets[i] }

// Packed returns true if the struct is packed.
func (t *StructType) Packed() bool { return t.packed }

func (t *FunctionType) ID() TypeID { return FunctionTyID }
func (t *FunctionType) String() string {
	params := lo.Map(t.params, func(p DataType, _ int) string { return p.String() })
	return fmt.Sprintf("%s (%s)", t.ret.String(), strings.Join(params, ", "))
}
func (t *FunctionType) key() string { return t.String() }

// Ret returns the return type.
func (t *FunctionType) Ret() DataType { return t.ret }

// Params returns the parameter types.
func (t *FunctionType) Params() []DataType { return t.params }

// -------------------------
// ----- Type helpers ------
// -------------------------

// Scalar returns the element type of a tile, or t itself for any other type.
func Scalar(t DataType) DataType {
	if tt, ok := t.(*TileType); ok {
		return tt.elem
	}
	return t
}

// Shape returns the shape of a tile, or nil for any other type.
func Shape(t DataType) []int {
	if tt, ok := t.(*TileType); ok {
		return tt.Shape()
	}
	return nil
}

// IsTile returns true if t is a tile.
func IsTile(t DataType) bool {
	_, ok := t.(*TileType)
	return ok
}

// IsInteger returns true if the scalar type of t is an integer.
func IsInteger(t DataType) bool {
	return Scalar(t).ID() == IntegerTyID
}

// IsBool returns true if the scalar type of t is a 1-bit integer.
func IsBool(t DataType) bool {
	it, ok := Scalar(t).(*IntType)
	return ok && it.bits == 1
}

// IsFloat returns true if the scalar type of t is floating point.
func IsFloat(t DataType) bool {
	return Scalar(t).ID() == FloatTyID
}

// IsPointer returns true if the scalar type of t is a pointer.
func IsPointer(t DataType) bool {
	return Scalar(t).ID() == PointerTyID
}

// BitWidth returns the bit width of the scalar type of t, or 0 if it has none.
func BitWidth(t DataType) int {
	switch st := Scalar(t).(type) {
	case *IntType:
		return st.bits
	case *FloatType:
		return st.bits
	case *PointerType:
		return 64
	}
	return 0
}

// NumElements returns the product of the dimensions of shape.
func NumElements(shape []int) int {
	return lo.Reduce(shape, func(acc int, d int, _ int) int { return acc * d }, 1)
}

// SameShape returns true if a and b have identical shapes. Two non-tiles have the same (empty) shape.
func SameShape(a, b DataType) bool {
	return slices.Equal(Shape(a), Shape(b))
}

// ShapeString returns the textual representation of a shape, e.g. 16x16.
func ShapeString(shape []int) string {
	return strings.Join(lo.Map(shape, func(d int, _ int) string { return fmt.Sprint(d) }), "x")
}

package tir

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tlc/src/ir/tir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Constant defines an integer, boolean or floating point scalar constant. Constants do not live in basic blocks.
type Constant struct {
	id  int            // Unique identifier of the constant within its module.
	typ types.DataType // Scalar data type of the constant.
	val interface{}    // Either int64 or float64.
}

// UndefValue is an unspecified value of any data type. Used as fill value of masked loads.
type UndefValue struct {
	id  int            // Unique identifier of the value within its module.
	typ types.DataType // Data type of the value.
}

// RangeValue is the constant integer tile [first, last).
type RangeValue struct {
	id    int            // Unique identifier of the value within its module.
	typ   types.DataType // One dimensional i32 tile of last-first elements.
	first int64          // First element.
	last  int64          // One past the last element.
}

// ---------------------
// ----- Functions -----
// ---------------------

// ----------------------------
// ----- Constant methods -----
// ----------------------------

// Id returns the unique id of the Constant.
func (c *Constant) Id() int {
	return c.id
}

// Name returns the literal of the Constant, e.g. 42, 0.5 or true.
func (c *Constant) Name() string {
	switch v := c.val.(type) {
	case int64:
		if types.IsBool(c.typ) {
			if v != 0 {
				return "true"
			}
			return "false"
		}
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	}
	return "?"
}

// Type returns types.Constant.
func (c *Constant) Type() types.InstructionType {
	return types.Constant
}

// DataType returns the scalar type of the Constant.
func (c *Constant) DataType() types.DataType {
	return c.typ
}

// String returns the typed literal of the Constant.
func (c *Constant) String() string {
	return ref(c)
}

// Operands returns <nil> for the Constant.
func (c *Constant) Operands() []Value {
	return nil
}

// Value returns either the int64 or float64 value of Constant c.
func (c *Constant) Value() interface{} {
	return c.val
}

// Int returns the integer value of Constant c and true, or false if c is a floating point constant.
func (c *Constant) Int() (int64, bool) {
	v, ok := c.val.(int64)
	return v, ok
}

// IsZero returns true if the Constant is integer or floating point zero.
func (c *Constant) IsZero() bool {
	switch v := c.val.(type) {
	case int64:
		return v == 0
	case float64:
		return v == 0
	}
	return false
}

// formatFloat formats f so that it's always recognisable as floating point.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// ---------------------
// ----- Undefined -----
// ---------------------

// Id returns the unique id of the UndefValue.
func (u *UndefValue) Id() int {
	return u.id
}

// Name returns "undef".
func (u *UndefValue) Name() string {
	return "undef"
}

// Type returns types.Undef.
func (u *UndefValue) Type() types.InstructionType {
	return types.Undef
}

// DataType returns the data type of the UndefValue.
func (u *UndefValue) DataType() types.DataType {
	return u.typ
}

// String returns the typed textual representation of the UndefValue.
func (u *UndefValue) String() string {
	return ref(u)
}

// Operands returns <nil> for the UndefValue.
func (u *UndefValue) Operands() []Value {
	return nil
}

// -----------------
// ----- Range -----
// -----------------

// Id returns the unique id of the RangeValue.
func (r *RangeValue) Id() int {
	return r.id
}

// Name returns the textual literal of the range.
func (r *RangeValue) Name() string {
	return fmt.Sprintf("range(%d, %d)", r.first, r.last)
}

// Type returns types.Range.
func (r *RangeValue) Type() types.InstructionType {
	return types.Range
}

// DataType returns the tile type of the range.
func (r *RangeValue) DataType() types.DataType {
	return r.typ
}

// String returns the typed textual representation of the RangeValue.
func (r *RangeValue) String() string {
	return ref(r)
}

// Operands returns <nil> for the RangeValue.
func (r *RangeValue) Operands() []Value {
	return nil
}

// Bounds returns the first element and one past the last element of the range.
func (r *RangeValue) Bounds() (int64, int64) {
	return r.first, r.last
}

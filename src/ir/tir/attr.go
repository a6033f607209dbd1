package tir

import (
	"fmt"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// AttributeKind defines the kind of a function parameter attribute.
type AttributeKind uint

// Attribute is a hint attached to a function parameter.
type Attribute struct {
	Kind  AttributeKind // Kind of attribute.
	Value int           // Argument of the attribute, for aligned and multiple_of.
}

// MetadataKind defines the kind of an instruction metadata hint.
type MetadataKind uint

// ---------------------
// ----- Constants -----
// ---------------------

const (
	Aligned AttributeKind = iota
	MultipleOf
	NoAlias
	ReadOnly
	WriteOnly
	Retune
)

const (
	MetadataMultipleOf MetadataKind = iota
	MetadataMaxContiguous
)

// -------------------
// ----- Globals -----
// -------------------

// attrNames provides string literals for AttributeKind constants.
var attrNames = [...]string{
	"aligned",
	"multiple_of",
	"noalias",
	"readonly",
	"writeonly",
	"retune",
}

// mdNames provides string literals for MetadataKind constants.
var mdNames = [...]string{
	"multiple_of",
	"max_contiguous",
}

// ---------------------
// ----- Functions -----
// ---------------------

// String provides a print friendly string representation of the AttributeKind.
func (k AttributeKind) String() string {
	return attrNames[k]
}

// String returns the textual representation of the Attribute.
func (a Attribute) String() string {
	if a.Kind == Aligned || a.Kind == MultipleOf {
		return fmt.Sprintf("%s(%d)", a.Kind.String(), a.Value)
	}
	return a.Kind.String()
}

// String provides a print friendly string representation of the MetadataKind.
func (k MetadataKind) String() string {
	return mdNames[k]
}

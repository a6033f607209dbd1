package ast

import (
	"fmt"
)

// AttrKind differentiates object attributes.
type AttrKind int

// Attr is an attribute attached to a declared object or parameter, e.g. __aligned(16).
type Attr struct {
	Kind  AttrKind // Kind of attribute.
	Value int      // Argument of aligned and multiple_of.
}

const (
	Aligned AttrKind = iota
	MultipleOf
	NoAlias
	ReadOnly
	WriteOnly
	Retune
)

// attrNames provides the source spelling of AttrKind constants.
var attrNames = [...]string{"aligned", "multiple_of", "noalias", "readonly", "writeonly", "retune"}

// String returns the source spelling of the AttrKind.
func (k AttrKind) String() string {
	if k < 0 || int(k) >= len(attrNames) {
		return fmt.Sprintf("attr(%d)", int(k))
	}
	return attrNames[k]
}

// ParseAttrKind returns the AttrKind spelled s.
func ParseAttrKind(s string) (AttrKind, error) {
	for i1, e1 := range attrNames {
		if e1 == s {
			return AttrKind(i1), nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", s)
}

// String returns the source spelling of the Attr.
func (a Attr) String() string {
	if a.Kind == Aligned || a.Kind == MultipleOf {
		return fmt.Sprintf("%s(%d)", a.Kind.String(), a.Value)
	}
	return a.Kind.String()
}

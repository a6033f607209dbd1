// label.go provides a way of generating basic block labels for branches.

package util

import (
	"fmt"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// LabelType selects the prefix of a generated label.
type LabelType int

// Labels generates unique block labels. Every function being lowered owns its own Labels so that
// label numbering is deterministic regardless of how many units are generated in parallel.
type Labels struct {
	indices [LabelPostLoop + 1]int // Numerical suffix for generated labels of each type.
}

// ---------------------
// ----- Constants -----
// ---------------------

// Labels for conditionals and loops.
const (
	LabelEntry LabelType = iota
	LabelThen
	LabelElse
	LabelEndIf
	LabelLoop
	LabelPostLoop
)

// -------------------
// ----- globals -----
// -------------------

// labelPrefixes stores the string literal prefixes for labels of types.
var labelPrefixes = [LabelPostLoop + 1]string{
	"entry",
	"then",
	"else",
	"endif",
	"loop",
	"postloop",
}

// ---------------------
// ----- functions -----
// ---------------------

// New returns a new label of type typ. The first label of every type has no numeric suffix.
func (l *Labels) New(typ LabelType) string {
	if typ < 0 || int(typ) >= len(l.indices) {
		return "label.error"
	}
	n := l.indices[typ]
	l.indices[typ]++
	if n == 0 {
		return labelPrefixes[typ]
	}
	return fmt.Sprintf("%s%d", labelPrefixes[typ], n)
}

package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseType parses the source spelling of a type, e.g. "int", "const float* restrict", "tile<float, 16, 16>",
// "array<int, 4>" or "struct pair". Struct tags are resolved in structs.
func ParseType(s string, structs map[string]*StructType) (Type, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return nil, fmt.Errorf("empty type")
	}

	// Pointers bind loosest: peel them off the right.
	restrict := false
	if rest, ok := strings.CutSuffix(s, "restrict"); ok && strings.HasSuffix(strings.TrimSpace(rest), "*") {
		s, restrict = strings.TrimSpace(rest), true
	}
	if inner, ok := strings.CutSuffix(s, "*"); ok {
		inner = strings.TrimSpace(inner)
		isConst := false
		if rest, ok := strings.CutPrefix(inner, "const "); ok && !strings.HasSuffix(inner, "*") {
			inner, isConst = rest, true
		}
		elem, err := ParseType(inner, structs)
		if err != nil {
			return nil, err
		}
		return &PointerType{Elem: elem, Const: isConst, Restrict: restrict}, nil
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "const "))

	switch {
	case s == "void":
		return &VoidType{}, nil
	case strings.HasPrefix(s, "struct "):
		name := strings.TrimSpace(strings.TrimPrefix(s, "struct "))
		st, ok := structs[name]
		if !ok {
			return nil, fmt.Errorf("unknown struct %q", name)
		}
		return st, nil
	case strings.HasPrefix(s, "tile<") && strings.HasSuffix(s, ">"):
		args := splitArgs(s[len("tile<") : len(s)-1])
		if len(args) < 2 {
			return nil, fmt.Errorf("tile %q requires an element type and at least one dimension", s)
		}
		elem, err := ParseType(args[0], structs)
		if err != nil {
			return nil, err
		}
		if _, ok := elem.(*ArithmType); !ok {
			if _, ok := elem.(*PointerType); !ok {
				return nil, fmt.Errorf("invalid tile element %s", elem.String())
			}
		}
		shape := make([]int, len(args)-1)
		for i1, e1 := range args[1:] {
			if shape[i1], err = parseDim(e1); err != nil {
				return nil, fmt.Errorf("tile %q: %w", s, err)
			}
		}
		return Tile(elem, shape...), nil
	case strings.HasPrefix(s, "array<") && strings.HasSuffix(s, ">"):
		args := splitArgs(s[len("array<") : len(s)-1])
		if len(args) != 2 {
			return nil, fmt.Errorf("array %q requires an element type and a length", s)
		}
		elem, err := ParseType(args[0], structs)
		if err != nil {
			return nil, err
		}
		n, err := parseDim(args[1])
		if err != nil {
			return nil, fmt.Errorf("array %q: %w", s, err)
		}
		return &ArrayType{Elem: elem, Len: n}, nil
	}

	for i1, e1 := range arithNames {
		if e1 == s {
			return Arith(ArithKind(i1)), nil
		}
	}
	return nil, fmt.Errorf("unknown type %q", s)
}

// parseDim parses a positive dimension.
func parseDim(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	return n, nil
}

// splitArgs splits s at the commas outside angle brackets.
func splitArgs(s string) []string {
	res := make([]string, 0, 3)
	depth, start := 0, 0
	for i1, e1 := range s {
		switch e1 {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				res = append(res, strings.TrimSpace(s[start:i1]))
				start = i1 + 1
			}
		}
	}
	return append(res, strings.TrimSpace(s[start:]))
}

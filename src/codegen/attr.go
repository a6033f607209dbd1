package codegen

import (
	"tlc/src/ast"
	"tlc/src/ir/tir"
)

// GenIRAttr translates an object attribute into the function parameter attribute of the same kind.
func GenIRAttr(a ast.Attr) (tir.Attribute, error) {
	switch a.Kind {
	case ast.Aligned:
		return tir.Attribute{Kind: tir.Aligned, Value: a.Value}, nil
	case ast.MultipleOf:
		return tir.Attribute{Kind: tir.MultipleOf, Value: a.Value}, nil
	case ast.NoAlias:
		return tir.Attribute{Kind: tir.NoAlias}, nil
	case ast.ReadOnly:
		return tir.Attribute{Kind: tir.ReadOnly}, nil
	case ast.WriteOnly:
		return tir.Attribute{Kind: tir.WriteOnly}, nil
	case ast.Retune:
		return tir.Attribute{Kind: tir.Retune}, nil
	}
	return tir.Attribute{}, internalf("unknown attribute %s", a.Kind.String())
}

// SetIRMetadata attaches the analysis hint of an object attribute to the instruction producing the object's
// value. multiple_of becomes multiple_of metadata and aligned becomes max_contiguous metadata. The remaining
// known kinds only apply to parameters and are skipped.
func SetIRMetadata(inst tir.Instruction, a ast.Attr) error {
	switch a.Kind {
	case ast.MultipleOf:
		inst.SetMetadata(tir.MetadataMultipleOf, a.Value)
	case ast.Aligned:
		inst.SetMetadata(tir.MetadataMaxContiguous, a.Value)
	case ast.NoAlias, ast.ReadOnly, ast.WriteOnly, ast.Retune:
	default:
		return internalf("unknown attribute %s", a.Kind.String())
	}
	return nil
}

// genParamAttrs attaches the attributes of parameter obj to p. Pointer parameters are aligned(16) unless an
// alignment is given, and restrict qualified pointers are noalias.
func genParamAttrs(p *tir.Param, obj *ast.Object) error {
	if pt, ok := obj.Typ.(*ast.PointerType); ok {
		p.AddAttr(tir.Attribute{Kind: tir.Aligned, Value: 16})
		if pt.Restrict {
			p.AddAttr(tir.Attribute{Kind: tir.NoAlias})
		}
	}
	for _, e1 := range obj.Attrs {
		a, err := GenIRAttr(e1)
		if err != nil {
			return err
		}
		p.AddAttr(a)
	}
	return nil
}

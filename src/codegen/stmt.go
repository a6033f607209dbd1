package codegen

import (
	"tlc/src/ast"
	"tlc/src/ir/tir"
	"tlc/src/util"
)

// genStmt lowers the statement s. Statements following a terminator are lowered into a fresh unreachable block.
func (g *Generator) genStmt(s ast.Stmt) error {
	if _, ok := s.(*ast.LabelStmt); !ok && g.bld.InsertBlock().IsTerminated() {
		g.bld.SetInsertPoint(g.fn.CreateBlock(""))
	}
	switch x := s.(type) {
	case *ast.Declaration:
		return g.genDeclaration(x)
	case *ast.EmptyStmt:
		return nil
	case *ast.CompoundStmt:
		return g.genCompound(x)
	case *ast.IfStmt:
		return g.genIf(x)
	case *ast.ForStmt:
		return g.genFor(x)
	case *ast.JumpStmt:
		return g.genJump(x)
	case *ast.LabelStmt:
		return g.genLabel(x)
	case *ast.ReturnStmt:
		return g.genReturn(x)
	case ast.Expr:
		_, err := g.lowerExpr(x)
		return err
	}
	return internalf("unexpected statement %T", s)
}

// genCompound lowers a block in its own scope. Storage for the block's objects is allocated before its statements.
func (g *Generator) genCompound(s *ast.CompoundStmt) error {
	defer g.pushScope()()
	if err := g.AllocObjects(s.Objects(), nil); err != nil {
		return err
	}
	for _, e1 := range s.Stmts {
		if err := g.genStmt(e1); err != nil {
			return err
		}
	}
	return nil
}

// genDeclaration allocates the object unless its scope already did, stores the initializers and attaches the
// object's attributes as metadata to the initial values.
func (g *Generator) genDeclaration(d *ast.Declaration) error {
	obj := d.Obj
	b, ok := g.current().values[obj.Name]
	if !ok || !b.storage {
		st, err := g.allocObject(obj, obj.Name)
		if err != nil {
			return err
		}
		b = binding{val: st, storage: true}
	}
	for _, e1 := range d.Inits {
		want := e1.Typ
		if want == nil {
			want = obj.Typ
		}
		addr, et, err := g.offsetAddr(b.val, obj.Typ, e1.Offset, want)
		if err != nil {
			return err
		}
		v, err := g.lowerExpr(e1.Expr)
		if err != nil {
			return err
		}
		if v, err = g.GenSemCastOp(v, e1.Expr.Type(), et); err != nil {
			return err
		}
		g.bld.CreateStore(addr, v)
		inst, ok := v.(tir.Instruction)
		if !ok {
			continue
		}
		for _, e2 := range obj.Attrs {
			if err := SetIRMetadata(inst, e2); err != nil {
				return err
			}
		}
	}
	return nil
}

// offsetAddr returns the address of the element of type want at byte offset off of the object of type t
// stored at ptr, descending through struct fields and array elements.
func (g *Generator) offsetAddr(ptr tir.Value, t ast.Type, off int, want ast.Type) (tir.Value, ast.Type, error) {
	for {
		if off == 0 && ast.Equal(t, want) {
			return ptr, t, nil
		}
		switch tt := t.(type) {
		case *ast.StructType:
			offsets := tt.Offsets()
			i := len(offsets) - 1
			for i >= 0 && offsets[i] > off {
				i--
			}
			if i < 0 {
				return nil, nil, internalf("no field of %s at offset %d", tt.String(), off)
			}
			ptr = g.bld.CreateStructGEP(ptr, i)
			off -= offsets[i]
			t = tt.Fields[i].Type
		case *ast.ArrayType:
			size := tt.Elem.Size()
			i := off / size
			if i >= tt.Len {
				return nil, nil, internalf("offset %d outside %s", off, tt.String())
			}
			ptr = g.bld.CreateArrayGEP(ptr, g.mod.ConstInt(g.ctx.Int64(), int64(i)))
			off -= i * size
			t = tt.Elem
		default:
			return nil, nil, internalf("no %s at offset %d of %s", want.String(), off, t.String())
		}
	}
}

// genIf lowers a conditional statement into then, else and endif blocks.
func (g *Generator) genIf(s *ast.IfStmt) error {
	c, err := g.genCond(s.Cond)
	if err != nil {
		return err
	}
	thn := g.fn.CreateBlock(g.labels.New(util.LabelThen))
	var els *tir.Block
	if s.Else != nil {
		els = g.fn.CreateBlock(g.labels.New(util.LabelElse))
	}
	end := g.fn.CreateBlock(g.labels.New(util.LabelEndIf))
	if els != nil {
		g.bld.CreateCondBr(c, thn, els)
	} else {
		g.bld.CreateCondBr(c, thn, end)
	}

	g.bld.SetInsertPoint(thn)
	if err := g.genStmt(s.Then); err != nil {
		return err
	}
	g.branchTo(end)
	if els != nil {
		g.bld.SetInsertPoint(els)
		if err := g.genStmt(s.Else); err != nil {
			return err
		}
		g.branchTo(end)
	}
	g.bld.SetInsertPoint(end)
	return nil
}

// genFor lowers a loop. The condition is tested before the first iteration and, after the step, at the end of
// every iteration.
func (g *Generator) genFor(s *ast.ForStmt) error {
	defer g.pushScope()()
	if s.Init != nil {
		if err := g.genStmt(s.Init); err != nil {
			return err
		}
	}
	loop := g.fn.CreateBlock(g.labels.New(util.LabelLoop))
	post := g.fn.CreateBlock(g.labels.New(util.LabelPostLoop))
	if err := g.genLoopTest(s, loop, post); err != nil {
		return err
	}

	g.bld.SetInsertPoint(loop)
	g.loops.Push(loopFrame{loop: loop, post: post, stmt: s})
	err := g.genStmt(s.Body)
	g.loops.Pop()
	if err != nil {
		return err
	}
	if !g.bld.InsertBlock().IsTerminated() {
		if err := g.genLatch(s, loop, post); err != nil {
			return err
		}
	}
	g.bld.SetInsertPoint(post)
	return nil
}

// genLatch lowers the step of loop s and tests its condition.
func (g *Generator) genLatch(s *ast.ForStmt, loop, post *tir.Block) error {
	if s.Step != nil {
		if _, err := g.lowerExpr(s.Step); err != nil {
			return err
		}
	}
	return g.genLoopTest(s, loop, post)
}

// genLoopTest branches to loop if the condition of s holds and to post otherwise. A missing condition holds.
func (g *Generator) genLoopTest(s *ast.ForStmt, loop, post *tir.Block) error {
	if s.Cond == nil {
		g.bld.CreateBr(loop)
		return nil
	}
	c, err := g.genCond(s.Cond)
	if err != nil {
		return err
	}
	g.bld.CreateCondBr(c, loop, post)
	return nil
}

// genJump lowers break, continue and goto.
func (g *Generator) genJump(s *ast.JumpStmt) error {
	if s.Kind == ast.Goto {
		g.bld.CreateBr(g.namedBlock(s.Label))
		return nil
	}
	frame, ok := g.loops.Peek()
	if !ok {
		return internalf("%s outside of a loop", s.Kind.String())
	}
	if s.Kind == ast.Break {
		g.bld.CreateBr(frame.post)
		return nil
	}
	return g.genLatch(frame.stmt, frame.loop, frame.post)
}

// genLabel starts the block of a source label, falling through from the current block.
func (g *Generator) genLabel(s *ast.LabelStmt) error {
	blk := g.namedBlock(s.Label)
	if g.defined[s.Label] || len(blk.Instructions()) > 0 || blk == g.bld.InsertBlock() {
		return internalf("duplicate label %s", s.Label)
	}
	g.defined[s.Label] = true
	g.branchTo(blk)
	g.bld.SetInsertPoint(blk)
	return g.genStmt(s.Stmt)
}

// namedBlock returns the block of a source label, creating it on first reference.
func (g *Generator) namedBlock(label string) *tir.Block {
	if b, ok := g.named[label]; ok {
		return b
	}
	b := g.fn.CreateBlock(label)
	g.named[label] = b
	return b
}

// genReturn returns the value of s cast to the return type of the function, or void.
func (g *Generator) genReturn(s *ast.ReturnStmt) error {
	ret := g.fd.Typ.Ret
	if s.Expr == nil {
		if !ast.IsVoid(ret) {
			return internalf("missing return value in function returning %s", ret.String())
		}
		g.bld.CreateRet(nil)
		return nil
	}
	v, err := g.lowerExpr(s.Expr)
	if err != nil {
		return err
	}
	if ast.IsVoid(ret) {
		if !ast.IsVoid(s.Expr.Type()) {
			return internalf("void function returns %s", s.Expr.Type().String())
		}
		g.bld.CreateRet(nil)
		return nil
	}
	if v, err = g.GenSemCastOp(v, s.Expr.Type(), ret); err != nil {
		return err
	}
	g.bld.CreateRet(v)
	return nil
}

// branchTo branches from the insertion block to dst unless the block is already terminated.
func (g *Generator) branchTo(dst *tir.Block) {
	if !g.bld.InsertBlock().IsTerminated() {
		g.bld.CreateBr(dst)
	}
}

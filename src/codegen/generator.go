// Package codegen lowers checked kernel syntax trees into tile IR. One Generator lowers one translation unit
// into one module; independent units are lowered concurrently by GenerateUnits.
package codegen

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"tlc/src/ast"
	"tlc/src/ir/tir"
	"tlc/src/ir/tir/types"
	"tlc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// loopFrame holds the blocks and step of an enclosing loop.
type loopFrame struct {
	loop *tir.Block   // Loop body block.
	post *tir.Block   // Block following the loop.
	stmt *ast.ForStmt // Loop statement whose step and condition end every iteration.
}

// Generator is one lowering session. It is not safe for concurrent use.
type Generator struct {
	mod      *tir.Module             // Module receiving the lowered functions.
	bld      *tir.Builder            // Builder bound to the current insertion block.
	ctx      *types.Context          // Type context of mod.
	log      *slog.Logger            // Debug logger.
	scopes   util.Stack[*scope]      // Scope stack, innermost frame on top.
	loops    util.Stack[loopFrame]   // Enclosing loops, innermost on top.
	labels   util.Labels             // Generated block labels of the current function.
	named    map[string]*tir.Block   // Blocks of source labels in the current function.
	defined  map[string]bool         // Source labels defined by a label statement in the current function.
	protos   map[string]*ast.FuncDef // Declared functions by name.
	fn       *tir.Function           // Function being lowered.
	fd       *ast.FuncDef            // Definition being lowered.
	assigner *LValueAssigner         // Store path of assignments.
}

// ---------------------
// ----- Functions -----
// ---------------------

// New returns a Generator that lowers into m. A <nil> log discards debug output.
func New(m *tir.Module, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	g := &Generator{
		mod:    m,
		bld:    tir.NewBuilder(m),
		ctx:    m.Types(),
		log:    log,
		protos: make(map[string]*ast.FuncDef),
	}
	g.assigner = &LValueAssigner{g: g}
	return g
}

// Gen lowers the translation unit tu into a new module named after it.
func Gen(tu *ast.TranslationUnit, log *slog.Logger) (*tir.Module, error) {
	m := tir.CreateModule(tu.Name, nil)
	if err := New(m, log).GenTranslationUnit(tu); err != nil {
		return nil, err
	}
	return m, nil
}

// Module returns the module the Generator lowers into.
func (g *Generator) Module() *tir.Module {
	return g.mod
}

// GenTranslationUnit declares every function of tu before lowering the function bodies in source order. A panic of
// the IR builder is returned as an internal error.
func (g *Generator) GenTranslationUnit(tu *ast.TranslationUnit) (err error) {
	defer recoverInternal(&err)
	defer g.pushScope()()
	for _, e1 := range tu.Funcs {
		if _, err := g.declare(e1); err != nil {
			return errors.Wrapf(err, "function %s", e1.Name)
		}
	}
	for _, e1 := range tu.Funcs {
		if e1.Body == nil {
			continue
		}
		if err := g.GenFuncDef(e1); err != nil {
			return errors.Wrapf(err, "function %s", e1.Name)
		}
	}
	g.log.Debug("generated unit", "unit", tu.Name, "functions", len(g.mod.Functions()))
	return nil
}

// declare inserts the prototype of fd into the module, naming its parameters and attaching their attributes.
func (g *Generator) declare(fd *ast.FuncDef) (*tir.Function, error) {
	if prev, ok := g.protos[fd.Name]; ok && !ast.Equal(prev.Typ, fd.Typ) {
		return nil, internalf("conflicting declarations of %s", fd.Name)
	}
	if len(fd.Params) != len(fd.Typ.Params) {
		return nil, internalf("%d parameters for signature %s", len(fd.Params), fd.Typ.String())
	}
	ft, err := GenIRFuncType(fd.Typ, g.ctx)
	if err != nil {
		return nil, err
	}
	fn := g.mod.GetOrInsertFunction(fd.Name, ft)
	for i1, e1 := range fn.Params() {
		e1.SetName(fd.Params[i1].Name)
		if err := genParamAttrs(e1, fd.Params[i1]); err != nil {
			return nil, err
		}
	}
	if _, ok := g.protos[fd.Name]; !ok || fd.Body != nil {
		g.protos[fd.Name] = fd
	}
	return fn, nil
}

// GenFuncDef lowers the body of fd into its declared function. Parameters are stored into their own storage in
// the entry block, and every unterminated block returns.
func (g *Generator) GenFuncDef(fd *ast.FuncDef) error {
	fn, ok := g.mod.Function(fd.Name)
	if !ok {
		var err error
		if fn, err = g.declare(fd); err != nil {
			return err
		}
	}
	if !fn.IsDeclaration() {
		return internalf("redefinition of %s", fd.Name)
	}
	g.log.Debug("generating function", "function", fd.Name)

	g.fn, g.fd = fn, fd
	g.labels = util.Labels{}
	g.named = make(map[string]*tir.Block)
	g.defined = make(map[string]bool)
	g.loops = util.Stack[loopFrame]{}
	defer func() {
		g.fn, g.fd = nil, nil
	}()

	g.bld.SetInsertPoint(fn.CreateBlock(g.labels.New(util.LabelEntry)))
	defer g.pushScope()()
	if err := g.AllocObjects(fd.Params, fn.Params()); err != nil {
		return err
	}
	if err := g.genStmt(fd.Body); err != nil {
		return err
	}
	undefined := lo.Filter(lo.Keys(g.named), func(l string, _ int) bool { return !g.defined[l] })
	if len(undefined) > 0 {
		slices.Sort(undefined)
		return internalf("undefined label %s", strings.Join(undefined, ", "))
	}
	return g.terminate()
}

// terminate adds a return to every unterminated block of the current function. Non-void functions return undef.
func (g *Generator) terminate() error {
	ret := g.fn.Signature().Ret()
	for _, e1 := range g.fn.Blocks() {
		if e1.IsTerminated() {
			continue
		}
		g.bld.SetInsertPoint(e1)
		if ret.ID() == types.VoidTyID {
			g.bld.CreateRet(nil)
		} else {
			g.bld.CreateRet(g.mod.Undef(ret))
		}
	}
	return nil
}

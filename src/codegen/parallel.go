package codegen

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"tlc/src/ast"
	"tlc/src/ir/tir"
	"tlc/src/util"
)

// GenerateUnits lowers independent translation units concurrently, one Generator and one module per unit. At
// most opt.Threads units are lowered at once. Modules are returned in the order of units; the first error
// cancels the units not yet started.
func GenerateUnits(ctx context.Context, opt util.Options, units []*ast.TranslationUnit,
	log *slog.Logger) ([]*tir.Module, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	res := make([]*tir.Module, len(units))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opt.ThreadCount(len(units)))
	for i1, e1 := range units {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := Gen(e1, log.With("unit", e1.Name))
			if err != nil {
				return errors.Wrapf(err, "unit %s", e1.Name)
			}
			res[i1] = m
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	log.Debug("generated units", "units", len(units), "threads", opt.ThreadCount(len(units)))
	return res, nil
}

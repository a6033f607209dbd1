// Package cli implements the tlc command tree.
package cli

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tlc/src/ast"
	"tlc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	util.Options
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewRootCommand creates the root command of the tlc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "tlc",
		Short:   "tlc - tile language compiler",
		Long:    "Lowers checked tile language syntax trees, given as YAML documents, to tile IR or LLVM IR.",
		Version: util.AppVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Threads < 1 || opts.Threads > util.MaxThreads {
				return errors.Errorf("invalid thread count %d: must be in [1, %d]", opts.Threads, util.MaxThreads)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug information to stderr")
	cmd.PersistentFlags().IntVarP(&opts.Threads, "threads", "t", 1, "number of documents lowered in parallel")
	cmd.PersistentFlags().StringVarP(&opts.Out, "out", "o", "", "output file, stdout if not given")

	cmd.AddCommand(NewGenCommand(opts))
	cmd.AddCommand(NewLLVMCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))

	return cmd
}

// newLogger returns a text logger writing to w, at debug level if verbose is set.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadUnits reads and decodes the AST documents named by opts, or stdin if none is named. A unit is named after its
// document's file name without extension unless the document names itself.
func loadUnits(opts *RootOptions, cmd *cobra.Command, log *slog.Logger) ([]*ast.TranslationUnit, error) {
	srcs, err := util.ReadSources(opts.Options, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	units := make([]*ast.TranslationUnit, 0, len(srcs))
	for _, e1 := range srcs {
		name := strings.TrimSuffix(e1.Name, filepath.Ext(e1.Name))
		tu, err := ast.DecodeBytes(name, e1.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "document %s", e1.Name)
		}
		log.Debug("decoded document", "document", e1.Name, "unit", tu.Name, "functions", len(tu.Funcs))
		units = append(units, tu)
	}
	return units, nil
}

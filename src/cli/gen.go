package cli

import (
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tlc/src/codegen"
	"tlc/src/ir/llvm"
	"tlc/src/ir/tir"
	"tlc/src/util"
)

// NewGenCommand creates the gen command, which prints the tile IR of AST documents.
func NewGenCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gen [doc.yaml...]",
		Short: "Lower AST documents to tile IR",
		Long: `Lower checked AST documents to tile IR.

Every document is one translation unit and becomes one tile IR module. Documents are
read from stdin if no file is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Src = args
			opts.LLVM = false
			return runGen(opts, cmd)
		},
	}
}

// NewLLVMCommand creates the llvm command, which prints the LLVM IR of AST documents.
func NewLLVMCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "llvm [doc.yaml...]",
		Short: "Lower AST documents to LLVM IR",
		Long: `Lower checked AST documents to tile IR and translate every module to verified LLVM IR.

Tiles become vectors; masked tile memory accesses become masked gather and scatter intrinsics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Src = args
			opts.LLVM = true
			return runGen(opts, cmd)
		},
	}
}

// runGen lowers the documents of opts and writes the modules, separated by blank lines.
func runGen(opts *RootOptions, cmd *cobra.Command) error {
	log := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	units, err := loadUnits(opts, cmd, log)
	if err != nil {
		return err
	}
	mods, err := codegen.GenerateUnits(cmd.Context(), opts.Options, units, log)
	if err != nil {
		return err
	}

	out := make([]string, len(mods))
	for i1, e1 := range mods {
		if out[i1], err = emit(opts.Options, e1, log); err != nil {
			return err
		}
	}
	log.Debug("writing output", "modules", len(mods), "llvm", opts.LLVM)
	return util.WriteOutput(opts.Options, cmd.OutOrStdout(), strings.Join(out, "\n"))
}

// emit returns the textual tile IR of m, or its LLVM IR if requested by opt.
func emit(opt util.Options, m *tir.Module, log *slog.Logger) (string, error) {
	if !opt.LLVM {
		return m.String(), nil
	}
	s, err := llvm.GenLLVM(m, log)
	if err != nil {
		return "", errors.Wrap(err, "LLVM")
	}
	return s, nil
}

package cli

import (
	"github.com/spf13/cobra"

	"tlc/src/ast"
)

// NewDumpCommand creates the dump command, which prints the syntax tree of AST documents.
func NewDumpCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [doc.yaml...]",
		Short: "Print the syntax tree of AST documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Src = args
			log := newLogger(cmd.ErrOrStderr(), opts.Verbose)
			units, err := loadUnits(opts, cmd, log)
			if err != nil {
				return err
			}
			for _, e1 := range units {
				ast.Print(cmd.OutOrStdout(), e1, 0)
			}
			return nil
		},
	}
}

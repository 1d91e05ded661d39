package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-decision-engine/internal/decision"
)

var graphCmd = &cobra.Command{
	Use:   "graph FILE",
	Short: "Print a decision graph in Graphviz DOT format",
	Long: `Compile a decision document and print its graph as DOT.

Example:
  zen graph pricing.json | dot -Tsvg > pricing.svg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readDocument(args[0])
		if err != nil {
			return err
		}
		g, err := decision.NewCompiler().Compile(content)
		if err != nil {
			return err
		}
		dot, err := g.ExportDOT()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), dot)
		return err
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

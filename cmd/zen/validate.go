package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-decision-engine/internal/decision"
	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Compile decision documents without evaluating them",
	Long: `Parse and compile each document, reporting structural problems such as
cycles, dangling edges, unknown node types and invalid expressions.

Referenced sub-decisions are listed but not loaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	compiler := decision.NewCompiler()

	failed := 0
	for _, path := range args {
		content, err := readDocument(path)
		if err == nil {
			var g *decision.Graph
			if g, err = compiler.Compile(content); err == nil {
				fmt.Fprintf(out, "%s %s (%d nodes, %d edges)\n", color.GreenString("ok"), path, len(g.Nodes()), len(g.Edges()))
				for _, key := range g.SubDecisionKeys() {
					fmt.Fprintf(out, "   %s %s\n", color.New(color.Faint).Sprint("uses"), key)
				}
				continue
			}
		}
		failed++
		fmt.Fprintf(out, "%s %s: %v\n", color.RedString("fail"), path, err)
		if node := errs.NodeOf(err); node != "" {
			fmt.Fprintf(out, "   %s %s\n", color.New(color.Faint).Sprint("node"), node)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(args))
	}
	return nil
}

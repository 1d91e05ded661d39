package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-decision-engine/internal/expression"
)

var exprFlags struct {
	context string
	sets    []string
	unary   bool
	check   bool
}

var exprCmd = &cobra.Command{
	Use:   "expr EXPRESSION",
	Short: "Evaluate a standalone expression",
	Long: `Evaluate an expression against a context and print the JSON result.

With --unary the expression is tested against the context's "$" field, the
way decision table cells are. With --check the expression is only compiled
and the identifiers it reads are listed.

Examples:
  zen expr "price * qty" --set price=2.5 --set qty=4
  zen expr "[18..65)" --unary --set '$=30'
  zen expr "customer.age >= minAge" --check`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exprFlags.check {
			return checkExpression(cmd, args[0])
		}
		ctx, err := loadContext(exprFlags.context, exprFlags.sets)
		if err != nil {
			return err
		}
		var out any
		if exprFlags.unary {
			out, err = expression.EvaluateUnary(args[0], ctx)
		} else {
			out, err = expression.Evaluate(args[0], ctx)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var templateFlags struct {
	context string
	sets    []string
}

var templateCmd = &cobra.Command{
	Use:   "template TEMPLATE",
	Short: "Render a {{ }} template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadContext(templateFlags.context, templateFlags.sets)
		if err != nil {
			return err
		}
		out, err := expression.RenderTemplate(args[0], ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	rootCmd.AddCommand(exprCmd, templateCmd)

	exprCmd.Flags().StringVar(&exprFlags.context, "context", "", "context file (JSON or YAML, - for stdin)")
	exprCmd.Flags().StringArrayVar(&exprFlags.sets, "set", nil, "set a context field: path=value (repeatable)")
	exprCmd.Flags().BoolVar(&exprFlags.unary, "unary", false, "evaluate as a unary test against $")
	exprCmd.Flags().BoolVar(&exprFlags.check, "check", false, "compile only and list referenced identifiers")

	templateCmd.Flags().StringVar(&templateFlags.context, "context", "", "context file (JSON or YAML, - for stdin)")
	templateCmd.Flags().StringArrayVar(&templateFlags.sets, "set", nil, "set a context field: path=value (repeatable)")
}

func checkExpression(cmd *cobra.Command, source string) error {
	mode := expression.Standard
	if exprFlags.unary {
		mode = expression.Unary
	}
	if err := expression.Validate(source, mode); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", color.GreenString("ok"), mode)
	if mode != expression.Standard {
		return nil
	}
	refs, err := expression.References(source)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		fmt.Fprintf(out, "   %s %s\n", color.New(color.Faint).Sprint("reads"), ref)
	}
	return nil
}

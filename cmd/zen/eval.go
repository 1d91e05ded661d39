package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-decision-engine/internal/app"
	"github.com/awmpietro/golang-decision-engine/internal/decision"
	"github.com/awmpietro/golang-decision-engine/internal/loader"
	"github.com/awmpietro/golang-decision-engine/internal/value"
)

var evalFlags struct {
	context  string
	sets     []string
	root     string
	trace    bool
	maxDepth int
	timeout  time.Duration
	sel      string
}

var evalCmd = &cobra.Command{
	Use:   "eval FILE",
	Short: "Evaluate a decision document",
	Long: `Evaluate a decision document against a context and print the result.

Decision nodes that reference other decisions by key are resolved from the
--root directory, which defaults to the directory holding FILE.

Examples:
  zen eval pricing.json --context order.json
  zen eval pricing.yaml --set customer.tier=gold --set total=120 --trace
  zen eval pricing.json --context order.json --select result.discount
  cat pricing.json | zen eval - --root decisions/`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalFlags.context, "context", "", "context file (JSON or YAML, - for stdin)")
	evalCmd.Flags().StringArrayVar(&evalFlags.sets, "set", nil, "set a context field: path=value (repeatable)")
	evalCmd.Flags().StringVar(&evalFlags.root, "root", "", "directory sub-decisions are loaded from")
	evalCmd.Flags().BoolVar(&evalFlags.trace, "trace", false, "print the per-node trace to stderr")
	evalCmd.Flags().IntVar(&evalFlags.maxDepth, "max-depth", -1, "maximum sub-decision depth, 0 forbids sub-decisions (-1 uses the default)")
	evalCmd.Flags().DurationVar(&evalFlags.timeout, "timeout", 0, "evaluation timeout, e.g. 2s")
	evalCmd.Flags().StringVar(&evalFlags.sel, "select", "", "print only the result field at this dot path")
}

func runEval(cmd *cobra.Command, args []string) error {
	if evalFlags.context == "-" && args[0] == "-" {
		return fmt.Errorf("decision and context cannot both be read from stdin")
	}
	content, err := readDocument(args[0])
	if err != nil {
		return err
	}
	input, err := loadContext(evalFlags.context, evalFlags.sets)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}

	root := evalFlags.root
	if root == "" && args[0] != "-" {
		root = filepath.Dir(args[0])
	}
	if root == "" {
		root = "."
	}
	engine := app.NewEngine(
		app.WithLoader(loader.NewFilesystem(root)),
		app.WithLogger(logger),
	)

	ctx := cmd.Context()
	if evalFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, evalFlags.timeout)
		defer cancel()
	}

	opts := app.EvaluateOptions{Trace: evalFlags.trace}
	if evalFlags.maxDepth >= 0 {
		opts.MaxDepth = &evalFlags.maxDepth
	}
	resp, err := engine.EvaluateContent(ctx, content, input, opts)
	if err != nil {
		return err
	}
	if evalFlags.trace {
		printTrace(os.Stderr, resp.Trace)
		fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.Faint).Sprint("total"), resp.Performance)
	}
	return printJSON(cmd.OutOrStdout(), value.Get(resp.Result, evalFlags.sel))
}

func printTrace(w io.Writer, trace []decision.NodeTrace) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	for _, nt := range trace {
		name := nt.Name
		if name == "" {
			name = nt.ID
		}
		fmt.Fprintf(w, "%3d  %-24s %-20s %s\n", nt.Order, bold(name), color.CyanString(nt.Kind), faint(nt.Performance))
	}
}

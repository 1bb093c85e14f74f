package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"make24/internal/expr"
	"make24/internal/solver"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "make24",
		Short:        "Solve, check and generate make-24 puzzles",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.AddCommand(newSolveCmd(), newCheckCmd(), newGenerateCmd())
	return root
}

func newSolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "solve a b c d",
		Short: "Find an expression that makes 24",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := parseNumbers(args)
			if err != nil {
				return err
			}
			sol, ok, err := solver.FindSolution(numbers)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no solution for %v", numbers)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sol.Expression)
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check expression a b c d",
		Short: "Validate an expression against four numbers",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := parseNumbers(args[1:])
			if err != nil {
				return err
			}
			res := expr.Validate(args[0], numbers)
			if !res.IsValid {
				return fmt.Errorf("%s (%s)", res.Error, res.Reason)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s = %s\n", args[0], expr.FormatValue(*res.Result))
			return nil
		},
	}
}

func newGenerateCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draw solvable number sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("count must be positive")
			}
			gen := solver.NewGenerator()
			for i := 0; i < count; i++ {
				numbers := gen.Generate()
				sol, _, _ := solver.FindSolution(numbers)
				fmt.Fprintf(cmd.OutOrStdout(), "%v  %s\n", numbers, sol.Expression)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of sets to draw")
	return cmd
}

func parseNumbers(args []string) ([]int, error) {
	numbers := make([]int, 0, len(args))
	for _, arg := range args {
		value, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", arg)
		}
		numbers = append(numbers, value)
	}
	return numbers, nil
}

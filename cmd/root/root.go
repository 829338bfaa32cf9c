package root

import (
	"github.com/spf13/cobra"

	"github.com/operator-framework/bnb/cmd/knapsack"
	"github.com/operator-framework/bnb/cmd/solve"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bnb",
		Short: "bnb is a branch and bound solver for mixed integer programs",
		Long:  `A branch and bound solver for mixed integer programs written in Go.
Constraint handlers, propagators, separators, pricers, relaxators,
branching rules and heuristics plug into a common node processing loop.`,
		SilenceUsage: true,
	}

	// add sub-commands
	rootCmd.AddCommand(solve.NewSolveCommand())
	rootCmd.AddCommand(knapsack.NewKnapsackCommand())

	return rootCmd
}

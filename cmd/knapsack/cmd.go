package knapsack

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/operator-framework/bnb/cmd/solve"
)

func NewKnapsackCommand() *cobra.Command {
	f := &solve.Flags{}
	var (
		items int
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "knapsack",
		Short: "Packs a random knapsack as valuably as possible",
		RunE: func(cmd *cobra.Command, args []string) error {
			if items < 1 {
				return fmt.Errorf("need at least one item, got %d", items)
			}
			f.Maximize = true
			return solve.Run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), Generate(items, seed), f)
		},
	}
	f.Register(cmd)
	cmd.Flags().IntVar(&items, "items", 20, "number of items to choose from")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed of the generator")
	return cmd
}

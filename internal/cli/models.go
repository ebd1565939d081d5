package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tokscope/tokscope/internal/tokenizer"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models with a registered tokenizer",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, m := range tokenizer.NewRegistry().Models() {
				precision := styleApprox.Render("approximate")
				if m.Precise {
					precision = stylePrecise.Render("exact")
				}
				fmt.Fprintf(out, "%-28s %-12s %s\n", m.ID, m.Family, precision)
			}
			return nil
		},
	}
}

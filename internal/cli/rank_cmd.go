package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashureev/virtue-stages/internal/defect"
	"github.com/ashureev/virtue-stages/internal/domain"
)

func newRankCmd() *cobra.Command {
	var ratingsPath string

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank defect ratings by severity tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ratings []domain.DefectRating
			if err := readJSONFile(ratingsPath, &ratings); err != nil {
				return err
			}

			ranked := defect.Rank(ratings)
			if len(ranked) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rated defects.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tDEFECT\tTIER\tFREQUENCY\tHARM")
			for i, d := range ranked {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, d.Name, d.Tier, d.FrequencyLevel, d.HarmLevel)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d defects are significant.\n",
				defect.SignificantCount(ranked), len(ranked))
			return nil
		},
	}

	cmd.Flags().StringVar(&ratingsPath, "ratings", "", "JSON file with a list of defect ratings")
	_ = cmd.MarkFlagRequired("ratings")

	return cmd
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/virtue-stages/internal/domain"
)

func newAssessmentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assessment",
		Short: "Manage stored defect assessments",
	}

	cmd.AddCommand(
		newAssessmentImportCmd(app),
		newAssessmentShowCmd(app),
		newAssessmentPruneCmd(app),
	)

	return cmd
}

func newAssessmentImportCmd(app *App) *cobra.Command {
	var userID, virtueID, ratingsPath, assessedAt string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a set of defect ratings as the latest assessment",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ratings []domain.DefectRating
			if err := readJSONFile(ratingsPath, &ratings); err != nil {
				return err
			}

			a := &domain.Assessment{UserID: userID, VirtueID: virtueID, Ratings: ratings}
			if assessedAt != "" {
				t, err := time.Parse(time.RFC3339, assessedAt)
				if err != nil {
					return fmt.Errorf("--assessed-at: %w", err)
				}
				a.AssessedAt = t.UTC()
			}

			if err := app.Store.SaveAssessment(cmd.Context(), a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored assessment %d for %s/%s with %d ratings\n",
				a.ID, userID, virtueID, len(ratings))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&virtueID, "virtue", "", "Virtue ID")
	cmd.Flags().StringVar(&ratingsPath, "ratings", "", "JSON file with a list of defect ratings")
	cmd.Flags().StringVar(&assessedAt, "assessed-at", "", "Assessment time (RFC 3339), defaults to now")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("virtue")
	_ = cmd.MarkFlagRequired("ratings")

	return cmd
}

func newAssessmentShowCmd(app *App) *cobra.Command {
	var userID, virtueID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the latest assessment for a user and virtue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Store.LatestAssessment(cmd.Context(), userID, virtueID)
			if err != nil {
				return err
			}
			if a == nil {
				return fmt.Errorf("no assessment for %s/%s", userID, virtueID)
			}
			return writeJSON(cmd, a)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&virtueID, "virtue", "", "Virtue ID")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("virtue")

	return cmd
}

func newAssessmentPruneCmd(app *App) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest assessments per user and virtue",
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := app.Store.PruneAssessments(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d assessments\n", deleted)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 5, "Assessments to keep per user and virtue")

	return cmd
}

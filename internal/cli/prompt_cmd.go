package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashureev/virtue-stages/internal/stage"
)

func newPromptCmd(app *App) *cobra.Command {
	var requestPath string
	var textOnly bool

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Generate a dismantling prompt from a request file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req stage.Request
			if err := readJSONFile(requestPath, &req); err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				return err
			}

			if app.NewGenerator == nil {
				return fmt.Errorf("prompt generation is not configured")
			}
			gen, err := app.NewGenerator(cmd.Context())
			if err != nil {
				return err
			}

			res, err := gen.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if textOnly {
				fmt.Fprintln(cmd.OutOrStdout(), res.PromptText)
				return nil
			}
			return writeJSON(cmd, res)
		},
	}

	cmd.Flags().StringVar(&requestPath, "request", "", "JSON file with the prompt request")
	cmd.Flags().BoolVar(&textOnly, "text", false, "Print only the prompt text")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}

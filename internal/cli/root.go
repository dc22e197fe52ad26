// Package cli implements the stagectl command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashureev/virtue-stages/internal/stage"
	"github.com/ashureev/virtue-stages/internal/store"
)

// PromptGenerator produces a dismantling prompt for a request.
type PromptGenerator interface {
	Generate(ctx context.Context, req stage.Request) (*stage.Result, error)
}

// App holds references to the services used by CLI commands.
type App struct {
	Store store.Repository
	// NewGenerator builds the prompt pipeline on first use so commands that
	// only touch the store need no model credentials.
	NewGenerator func(ctx context.Context) (PromptGenerator, error)
}

// NewRootCmd creates the top-level "stagectl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "stagectl",
		Short:         "Inspect defect rankings and generate dismantling prompts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRankCmd(),
		newPromptCmd(app),
		newAssessmentCmd(app),
	)

	return root
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

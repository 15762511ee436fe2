package pullcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/loom/cmd/loom/conf"
)

const pullLongDesc string = `Pull a model onto the active provider.

Only providers with model management (Ollama) support this.

Examples:
  loom pull llama3
  loom pull --config loom.toml mistral`

const pullShortDesc string = "Pull a model"

type pullCommander struct {
	configPath string
}

func NewPullCmd() *cobra.Command {
	cmder := &pullCommander{}

	cmd := &cobra.Command{
		Use:   "pull [model]",
		Short: pullShortDesc,
		Long:  pullLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config")

	return cmd
}

func (c *pullCommander) run(ctx context.Context, cmd *cobra.Command, model string) error {
	cl, err := conf.BuildClient(c.configPath, "", zap.NewNop())
	if err != nil {
		return fmt.Errorf("could not build client: %w", err)
	}
	defer cl.Close()

	ok, err := cl.PullModel(ctx, model)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pulling %s failed", model)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pulled %s\n", model)
	return nil
}

package rmcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/loom/cmd/loom/conf"
)

const rmLongDesc string = `Remove a model from the active provider.

Only providers with model management (Ollama) support this.

Examples:
  loom rm llama3`

const rmShortDesc string = "Remove a model"

type rmCommander struct {
	configPath string
}

func NewRmCmd() *cobra.Command {
	cmder := &rmCommander{}

	cmd := &cobra.Command{
		Use:   "rm [model]",
		Short: rmShortDesc,
		Long:  rmLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config")

	return cmd
}

func (c *rmCommander) run(ctx context.Context, cmd *cobra.Command, model string) error {
	cl, err := conf.BuildClient(c.configPath, "", zap.NewNop())
	if err != nil {
		return fmt.Errorf("could not build client: %w", err)
	}
	defer cl.Close()

	ok, err := cl.DeleteModel(ctx, model)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("removing %s failed", model)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", model)
	return nil
}

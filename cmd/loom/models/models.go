package modelscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/loom/cmd/loom/conf"
)

const modelsLongDesc string = `List the models available on a provider.

Examples:
  loom models
  loom models --provider anthropic`

const modelsShortDesc string = "List available models"

type modelsCommander struct {
	configPath string
	provider   string
}

func NewModelsCmd() *cobra.Command {
	cmder := &modelsCommander{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config")
	cmd.Flags().StringVarP(&cmder.provider, "provider", "p", "", "Provider to list (default: active)")

	return cmd
}

func (c *modelsCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cl, err := conf.BuildClient(c.configPath, c.provider, zap.NewNop())
	if err != nil {
		return fmt.Errorf("could not build client: %w", err)
	}
	defer cl.Close()

	models := cl.ListModels(ctx)
	if len(models) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no models available")
		return nil
	}
	for _, m := range models {
		fmt.Fprintln(cmd.OutOrStdout(), m.Name)
	}
	return nil
}

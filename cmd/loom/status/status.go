package statuscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/loom/cmd/loom/conf"
)

const statusLongDesc string = `Probe a provider's liveness and list its models.

The probe uses a short timeout and never fails the command: an
unreachable backend is reported as offline with the reason attached.

Examples:
  loom status
  loom status --provider openai`

const statusShortDesc string = "Check provider status"

type statusCommander struct {
	configPath string
	provider   string
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config")
	cmd.Flags().StringVarP(&cmder.provider, "provider", "p", "", "Provider to probe (default: active)")

	return cmd
}

func (c *statusCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cl, err := conf.BuildClient(c.configPath, "", zap.NewNop())
	if err != nil {
		return fmt.Errorf("could not build client: %w", err)
	}
	defer cl.Close()

	result := cl.CheckStatus(ctx, c.provider)
	if !result.Online {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): offline", result.Provider, result.Endpoint)
		if result.Error != "" {
			fmt.Fprintf(cmd.OutOrStdout(), " (%s)", result.Error)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): online, %d models\n", result.Provider, result.Endpoint, len(result.Models))
	for _, m := range result.Models {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m.Name)
	}
	return nil
}

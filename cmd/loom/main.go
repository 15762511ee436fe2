package main

import (
	"os"

	"github.com/spf13/cobra"

	modelscmder "github.com/papercomputeco/loom/cmd/loom/models"
	pullcmder "github.com/papercomputeco/loom/cmd/loom/pull"
	rmcmder "github.com/papercomputeco/loom/cmd/loom/rm"
	statuscmder "github.com/papercomputeco/loom/cmd/loom/status"
)

func main() {
	root := &cobra.Command{
		Use:           "loom",
		Short:         "loom talks to local and cloud LLM backends",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(statuscmder.NewStatusCmd())
	root.AddCommand(modelscmder.NewModelsCmd())
	root.AddCommand(pullcmder.NewPullCmd())
	root.AddCommand(rmcmder.NewRmCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

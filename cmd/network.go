package cmd

import (
	"io"

	"github.com/fdngraph/ggk/pipeline"
	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
)

// NetworkMain is wrapped by NewNetworkCommand and only exported for testing
// purposes.
var NetworkMain *pipeline.NetworkMain

// NewNetworkCommand returns a new cobra command wrapping NetworkMain.
func NewNetworkCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	NetworkMain = pipeline.NewNetworkMain()
	networkCommand := &cobra.Command{
		Use:   "network",
		Short: "network - rebuild the network document from an existing dataset",
		Long: `Derives the ego-graph around the central entity from a dataset written
by a previous pipeline run, without refetching or reparsing anything.
Useful for changing the central entity cheaply.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return NetworkMain.Run()
		},
	}
	flags := networkCommand.Flags()
	if err := commandeer.Flags(flags, NetworkMain); err != nil {
		panic(err)
	}
	return networkCommand
}

func init() {
	subcommandFns["network"] = NewNetworkCommand
}

package cmd

import (
	"io"

	"github.com/fdngraph/ggk/serve"
	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
)

// ServeMain is wrapped by NewServeCommand and only exported for testing
// purposes.
var ServeMain *serve.Main

// NewServeCommand returns a new cobra command wrapping ServeMain.
func NewServeCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	ServeMain = serve.NewMain()
	serveCommand := &cobra.Command{
		Use:   "serve",
		Short: "serve - serve the network document and UI to the display layer",
		Long: `Serves the network document over HTTP with an in-memory cache, falling
back to a bundled copy and then a remote copy when the pipeline output
is missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ServeMain.Run()
		},
	}
	flags := serveCommand.Flags()
	if err := commandeer.Flags(flags, ServeMain); err != nil {
		panic(err)
	}
	return serveCommand
}

func init() {
	subcommandFns["serve"] = NewServeCommand
}

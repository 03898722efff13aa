package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"sermonizer/pkg/config"
)

var (
	// Root command flags
	listOnly bool

	// Root command
	rootCmd = &cobra.Command{
		Use:   "sermonizer [flags]",
		Short: "An interactive serial port monitor",
		Long: `Monitor a serial device: received bytes scroll in the upper pane and
lines typed in the input box are sent with the configured line ending.

Without --port the USB serial ports are listed and one is picked,
automatically when there is only one.

Every flag can also be set through the environment as SERMONIZER_<FLAG>,
for example SERMONIZER_BAUD=9600 or SERMONIZER_LINE_ENDING=crlf.`,
		Version:           "1.0.0",
		Args:              cobra.NoArgs,
		RunE:              runRoot,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
	rootCmd.Flags().BoolVar(&listOnly, "list", false, "list USB serial ports and exit")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(connectCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	if listOnly {
		return listUSBPorts(cmd.OutOrStdout())
	}
	return runMonitor(cmd, "")
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"pkt.systems/pslog"

	"sermonizer/pkg/app"
	"sermonizer/pkg/config"
	"sermonizer/pkg/history"
	"sermonizer/pkg/serial"
)

// runMonitor resolves options, opens the port and logs, and runs one
// interactive session. port overrides --port when not empty.
func runMonitor(cmd *cobra.Command, port string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	log := pslog.Ctx(ctx)

	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}
	opts, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if port != "" {
		opts.Serial.Port = port
	}

	if opts.Serial.Port == "" {
		ports, err := serial.GetDetailedPortsList()
		if err != nil {
			return err
		}
		opts.Serial.Port, err = serial.ChoosePort(serial.USBPorts(ports), cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Using port: %s\n", opts.Serial.Port)
	}

	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	printSettings(out, opts)

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the monitor needs an interactive terminal on stdin and stdout")
	}

	sp, err := serial.Open(opts.Serial)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: Failed to open serial port: %v\n", err)
		explainOpenError(cmd.ErrOrStderr(), err)
		return fmt.Errorf("failed to open %s", opts.Serial.Port)
	}
	defer sp.Close()

	sinks, err := history.OpenSinks(opts.RxLogPath, opts.TxLogPath)
	if err != nil {
		return err
	}
	defer sinks.Close()
	if p := sinks.RX.Path(); p != "" {
		fmt.Fprintf(out, "Logging RX to: %s\n", p)
	}
	if p := sinks.TX.Path(); p != "" {
		fmt.Fprintf(out, "Logging TX to: %s\n", p)
	}

	sessionLog, closeLog, err := openSessionLogger(opts.DebugLog)
	if err != nil {
		return err
	}
	defer closeLog()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}

	fmt.Fprintln(out, "Connected. Type to send; press Ctrl-C to exit.")
	log.Debug("starting session", "port", opts.Serial.Port, "debug_log", opts.DebugLog)

	runner := app.NewRunner(opts, sp, screen, sinks)
	runErr := runner.Run(pslog.ContextWithLogger(ctx, sessionLog))

	sp.Close()
	if err := sinks.Close(); err != nil {
		log.Warn("closing logs failed", "error", err)
	}

	app.PrintSummary(out, runner.Session(), sinks)
	if runErr != nil && serial.IsDisconnect(runErr) {
		fmt.Fprintf(out, "\nDevice %s disconnected.\n", opts.Serial.Port)
	}
	fmt.Fprintln(out, "\nDisconnected. Bye!")

	return runErr
}

// printSettings echoes the effective session settings before the UI starts.
func printSettings(w io.Writer, opts config.Options) {
	cfg := opts.Serial
	fmt.Fprintf(w, "Settings: %d %d-%c-%d\n", cfg.BaudRate, cfg.DataBits, parityLetter(cfg.Parity), cfg.StopBits)
	fmt.Fprintf(w, "Line ending: %s\n", opts.LineEnding.Describe())
	if opts.Hex {
		fmt.Fprintln(w, "Display: hex")
	}
	if opts.Timestamps {
		fmt.Fprintln(w, "Timestamps: on")
	}
}

func parityLetter(parity string) rune {
	if parity == "" {
		return 'N'
	}
	r := rune(parity[0])
	if r >= 'a' && r <= 'z' {
		r -= 'a' - 'A'
	}
	return r
}

// openSessionLogger returns the logger used while the UI owns the terminal.
// Without a path nothing is logged, since stderr belongs to the screen.
func openSessionLogger(path string) (pslog.Logger, func(), error) {
	if path == "" {
		return pslog.NewWithOptions(io.Discard, pslog.Options{
			Mode:     pslog.ModeStructured,
			NoColor:  true,
			MinLevel: pslog.ErrorLevel,
		}), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open debug log: %w", err)
	}
	logger := pslog.NewWithOptions(f, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.TraceLevel,
		VerboseFields: true,
	})
	return logger, func() { f.Close() }, nil
}

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	bugst "go.bug.st/serial"

	"sermonizer/pkg/config"
	"sermonizer/pkg/serial"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect [port]",
	Short: "Connect to a serial port",
	Long: `Connect to a serial port and start the monitor.

The port may be given as an argument or with --port. Without either, the
USB serial ports are offered for selection.

Examples:
  # Connect to /dev/ttyUSB0 at 115200 baud, sending LF after each line
  sermonizer connect /dev/ttyUSB0

  # Connect at 9600 baud, CRLF line endings, logging both directions
  sermonizer connect COM3 -b 9600 --line-ending crlf --log rx.log --tx-log tx.log --log-ts`,
	Args:    cobra.MaximumNArgs(1),
	Aliases: []string{"c", "open"},
	RunE: func(cmd *cobra.Command, args []string) error {
		port := ""
		if len(args) == 1 {
			port = args[0]
		}
		return runMonitor(cmd, port)
	},
}

func init() {
	config.RegisterFlags(connectCmd.Flags())
}

// explainOpenError prints likely fixes for a failed open.
func explainOpenError(w io.Writer, err error) {
	code, ok := serial.ErrorCode(err)
	if !ok {
		return
	}

	fmt.Fprintf(w, "\nPossible solutions:\n")
	switch code {
	case bugst.PermissionDenied:
		fmt.Fprintf(w, "  - Check if you have permission to access the port\n")
		fmt.Fprintf(w, "  - On Linux: Add your user to the 'dialout' group: sudo usermod -a -G dialout $USER\n")
	case bugst.PortBusy:
		fmt.Fprintf(w, "  - The port may be in use by another application\n")
		fmt.Fprintf(w, "  - Close other terminal programs or serial monitors\n")
	case bugst.PortNotFound, bugst.InvalidSerialPort:
		fmt.Fprintf(w, "  - The specified port does not exist\n")
		fmt.Fprintf(w, "  - Use 'sermonizer list' to see available ports\n")
	case bugst.InvalidSpeed, bugst.InvalidDataBits, bugst.InvalidParity, bugst.InvalidStopBits:
		fmt.Fprintf(w, "  - The device driver rejected the line settings; try another --baud, --data, --parity or --stop\n")
	default:
		fmt.Fprintf(w, "  - Unplug and reconnect the device, then try again\n")
	}
}

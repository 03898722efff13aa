package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"sermonizer/pkg/serial"
)

var (
	listDetails bool
	listFormat  string
	listAll     bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports found on the system.

Only USB serial ports are shown unless --all is given, since those are the
ones offered when sermonizer picks a port on its own. On different platforms:
  - Windows: Lists COM ports
  - Linux: Lists /dev/tty* devices
  - macOS: Lists /dev/cu.* and /dev/tty.* devices`,
	Aliases: []string{"ls", "ports"},
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listDetails, "details", "d", false, "show detailed port information")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, csv, json)")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include ports that are not USB devices")
}

func runList(cmd *cobra.Command, args []string) error {
	portInfos, err := serial.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("error listing ports: %w", err)
	}
	if !listAll {
		portInfos = serial.USBPorts(portInfos)
	}
	return writePorts(cmd.OutOrStdout(), portInfos, listFormat, listDetails)
}

// listUSBPorts backs the root --list flag.
func listUSBPorts(w io.Writer) error {
	portInfos, err := serial.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("error listing ports: %w", err)
	}
	usb := serial.USBPorts(portInfos)
	if len(usb) == 0 {
		fmt.Fprintln(w, "No USB serial ports found.")
		return nil
	}
	fmt.Fprintln(w, "Available USB serial ports:")
	serial.PrintPorts(w, usb)
	return nil
}

func writePorts(w io.Writer, portInfos []serial.PortInfo, format string, details bool) error {
	switch format {
	case "csv":
		return printPortsCSV(w, portInfos, details)
	case "json":
		return printPortsJSON(w, portInfos, details)
	case "table", "":
		printPortsTable(w, portInfos, details)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table, csv or json)", format)
	}
}

func printPortsTable(w io.Writer, portInfos []serial.PortInfo, details bool) {
	if len(portInfos) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return
	}

	fmt.Fprintf(w, "Found %d serial port(s):\n", len(portInfos))
	for _, portInfo := range portInfos {
		if !details {
			fmt.Fprintf(w, "  %s\n", portInfo.Name)
			continue
		}

		fmt.Fprintf(w, "  %s", portInfo.Name)
		if portInfo.IsUSB {
			fmt.Fprintf(w, " [USB]")
			if portInfo.VID != "" || portInfo.PID != "" {
				fmt.Fprintf(w, " VID:%s PID:%s", portInfo.VID, portInfo.PID)
			}
			if portInfo.Description != "" {
				fmt.Fprintf(w, " - %s", portInfo.Description)
			}
			if portInfo.SerialNumber != "" {
				fmt.Fprintf(w, " (SN: %s)", portInfo.SerialNumber)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nUse 'sermonizer connect <port>' or 'sermonizer -p <port>' to connect.")
}

func printPortsCSV(w io.Writer, portInfos []serial.PortInfo, details bool) error {
	cw := csv.NewWriter(w)
	if details {
		cw.Write([]string{"port", "is_usb", "vid", "pid", "description", "serial_number"})
		for _, p := range portInfos {
			cw.Write([]string{p.Name, strconv.FormatBool(p.IsUSB), p.VID, p.PID, p.Description, p.SerialNumber})
		}
	} else {
		cw.Write([]string{"port"})
		for _, p := range portInfos {
			cw.Write([]string{p.Name})
		}
	}
	cw.Flush()
	return cw.Error()
}

func printPortsJSON(w io.Writer, portInfos []serial.PortInfo, details bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if details {
		if portInfos == nil {
			portInfos = []serial.PortInfo{}
		}
		return enc.Encode(portInfos)
	}

	names := make([]string, 0, len(portInfos))
	for _, p := range portInfos {
		names = append(names, p.Name)
	}
	return enc.Encode(names)
}

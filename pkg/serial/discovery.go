package serial

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ErrNoPorts is returned when port discovery finds nothing to connect to.
var ErrNoPorts = errors.New("no USB serial ports found")

// PortInfo contains information about a serial port
type PortInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// listDetailed is replaced in tests.
var listDetailed = enumerator.GetDetailedPortsList

// GetDetailedPortsList returns detailed information about available serial ports
func GetDetailedPortsList() ([]PortInfo, error) {
	details, err := listDetailed()
	if err != nil {
		return nil, fmt.Errorf("failed to get ports list: %w", err)
	}

	portInfos := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		portInfos = append(portInfos, PortInfo{
			Name:         d.Name,
			Description:  d.Product,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
		})
	}

	return portInfos, nil
}

// ListPorts returns the names of all serial ports on the system
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// USBPorts filters ports down to USB-attached devices, keeping their order.
func USBPorts(ports []PortInfo) []PortInfo {
	var usb []PortInfo
	for _, p := range ports {
		if p.IsUSB {
			usb = append(usb, p)
		}
	}
	return usb
}

// Label renders a one-line human description of the port.
func (p PortInfo) Label() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.IsUSB {
		fmt.Fprintf(&b, "  (USB vid=0x%s pid=0x%s", strings.ToLower(p.VID), strings.ToLower(p.PID))
		if p.Description != "" {
			b.WriteString(" ")
			b.WriteString(p.Description)
		}
		b.WriteString(")")
	}
	return b.String()
}

// PrintPorts writes a numbered list of ports, one per line.
func PrintPorts(w io.Writer, ports []PortInfo) {
	for i, p := range ports {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, p.Label())
	}
}

// ChoosePort picks a port from ports. A sole port is selected without asking.
// With several ports the user is prompted on in; an empty or unparsable answer
// selects the first port and out-of-range numbers are clamped.
func ChoosePort(ports []PortInfo, in io.Reader, out io.Writer) (string, error) {
	switch len(ports) {
	case 0:
		return "", ErrNoPorts
	case 1:
		fmt.Fprintf(out, "Auto-selected port: %s\n", ports[0].Label())
		return ports[0].Name, nil
	}

	fmt.Fprintln(out, "Available USB serial ports:")
	PrintPorts(out, ports)
	fmt.Fprintf(out, "Select port [1-%d] (Enter for 1): ", len(ports))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read port selection: %w", err)
	}

	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		choice = 1
	}
	choice = max(1, min(choice, len(ports)))

	return ports[choice-1].Name, nil
}

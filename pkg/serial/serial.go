// Package serial provides serial port communication functionality
package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultReadTimeout bounds every read so the reader loop can observe shutdown.
const DefaultReadTimeout = 100 * time.Millisecond

// ErrPortClosed is returned by operations on a port that has been closed.
var ErrPortClosed = errors.New("serial port is not open")

// SerialConfig defines the configuration for serial port communication
type SerialConfig struct {
	Port        string        `json:"port"`
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    int           `json:"stop_bits"`
	Parity      string        `json:"parity"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

var validBaudRates = []int{
	300, 600, 1200, 2400, 4800, 9600, 14400, 19200, 38400, 57600,
	115200, 230400, 250000, 460800, 500000, 921600, 1000000, 2000000,
}

// Validate checks if the serial configuration is valid
func (c SerialConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	validBaud := false
	for _, rate := range validBaudRates {
		if c.BaudRate == rate {
			validBaud = true
			break
		}
	}
	if !validBaud {
		return fmt.Errorf("invalid baud rate: %d", c.BaudRate)
	}

	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("data bits must be between 5 and 8, got: %d", c.DataBits)
	}

	if c.StopBits < 1 || c.StopBits > 2 {
		return fmt.Errorf("stop bits must be 1 or 2, got: %d", c.StopBits)
	}

	switch c.Parity {
	case "none", "odd", "even", "mark", "space":
	default:
		return fmt.Errorf("invalid parity: %s", c.Parity)
	}

	if c.ReadTimeout < time.Millisecond || c.ReadTimeout > time.Second {
		return fmt.Errorf("read timeout must be between 1ms and 1s, got: %v", c.ReadTimeout)
	}

	return nil
}

// DefaultConfig returns a default serial configuration
func DefaultConfig() SerialConfig {
	return SerialConfig{
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      "none",
		ReadTimeout: DefaultReadTimeout,
	}
}

// Port is the exclusive handle on an open serial device. Reads and writes
// are serialized by a mutex held only for the duration of each call, so the
// reader goroutine and the keyboard side can share one Port.
type Port struct {
	mu     sync.Mutex
	device serial.Port
	config SerialConfig
}

// openDevice is replaced in tests.
var openDevice = serial.Open

// Open opens the serial port with the given configuration and discards any
// stale input buffered by the driver.
func Open(config SerialConfig) (*Port, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}

	device, err := openDevice(config.Port, mode)
	if err != nil {
		return nil, NewSerialError("open", config.Port, err)
	}

	if err := device.SetReadTimeout(config.ReadTimeout); err != nil {
		device.Close()
		return nil, NewSerialError("set read timeout", config.Port, err)
	}

	if err := device.ResetInputBuffer(); err != nil {
		device.Close()
		return nil, NewSerialError("reset input", config.Port, err)
	}

	return newPort(device, config), nil
}

func newPort(device serial.Port, config SerialConfig) *Port {
	return &Port{device: device, config: config}
}

// ReadWithTimeout reads whatever is available into buf, waiting at most the
// configured read timeout. A timeout yields 0 bytes and a nil error.
func (p *Port) ReadWithTimeout(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return 0, NewSerialError("read", p.config.Port, ErrPortClosed)
	}

	n, err := p.device.Read(buf)
	if err != nil {
		return n, NewSerialError("read", p.config.Port, err)
	}

	return n, nil
}

// WriteAll writes every byte of data and then waits for the driver to drain
// its output buffer.
func (p *Port) WriteAll(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return NewSerialError("write", p.config.Port, ErrPortClosed)
	}

	for len(data) > 0 {
		n, err := p.device.Write(data)
		if err != nil {
			return NewSerialError("write", p.config.Port, err)
		}
		if n == 0 {
			return NewSerialError("write", p.config.Port, io.ErrShortWrite)
		}
		data = data[n:]
	}

	if err := p.device.Drain(); err != nil {
		return NewSerialError("drain", p.config.Port, err)
	}

	return nil
}

// Close closes the serial port. Closing an already closed port is a no-op.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return nil
	}

	err := p.device.Close()
	p.device = nil

	if err != nil {
		return NewSerialError("close", p.config.Port, err)
	}

	return nil
}

// convertStopBits converts our stop bits format to go.bug.st/serial format
func convertStopBits(stopBits int) serial.StopBits {
	switch stopBits {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// convertParity converts our parity format to go.bug.st/serial format
func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

// SerialError represents a serial port specific error
type SerialError struct {
	Operation string
	Port      string
	Cause     error
}

// Error implements the error interface
func (e *SerialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("serial %s operation failed on port %s: %v", e.Operation, e.Port, e.Cause)
	}
	return fmt.Sprintf("serial %s operation failed on port %s", e.Operation, e.Port)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *SerialError) Unwrap() error {
	return e.Cause
}

// NewSerialError creates a new serial error
func NewSerialError(operation, port string, cause error) *SerialError {
	return &SerialError{
		Operation: operation,
		Port:      port,
		Cause:     cause,
	}
}

// IsDisconnect reports whether err means the device went away, as opposed
// to a configuration or permission problem.
func IsDisconnect(err error) bool {
	if errors.Is(err, ErrPortClosed) {
		return true
	}

	code, ok := ErrorCode(err)
	if !ok {
		return false
	}

	switch code {
	case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
		return true
	default:
		return false
	}
}

// ErrorCode extracts the go.bug.st/serial error code from err, if any. The
// library returns PortError both by value and by pointer.
func ErrorCode(err error) (serial.PortErrorCode, bool) {
	var ptr *serial.PortError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code(), true
	}

	var val serial.PortError
	if errors.As(err, &val) {
		return val.Code(), true
	}

	return 0, false
}

// Package config resolves session options from flags and the environment
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sermonizer/pkg/serial"
)

// EnvPrefix prefixes every environment override, e.g. SERMONIZER_BAUD.
const EnvPrefix = "SERMONIZER"

// Flag names shared by the commands and the environment binding.
const (
	FlagPort        = "port"
	FlagBaud        = "baud"
	FlagDataBits    = "data"
	FlagStopBits    = "stop"
	FlagParity      = "parity"
	FlagReadTimeout = "read-timeout"
	FlagLineEnding  = "line-ending"
	FlagRxLog       = "log"
	FlagTxLog       = "tx-log"
	FlagTimestamps  = "log-ts"
	FlagHex         = "hex"
	FlagDebugLog    = "debug-log"
)

// LineEnding is the byte sequence appended to every transmitted line.
type LineEnding int

const (
	LineEndingNone LineEnding = iota
	LineEndingNL
	LineEndingCR
	LineEndingCRLF
)

// ParseLineEnding accepts none, nl, cr or crlf, case-insensitively.
func ParseLineEnding(s string) (LineEnding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return LineEndingNone, nil
	case "nl", "lf":
		return LineEndingNL, nil
	case "cr":
		return LineEndingCR, nil
	case "crlf":
		return LineEndingCRLF, nil
	default:
		return LineEndingNone, fmt.Errorf("invalid line ending %q (want none, nl, cr or crlf)", s)
	}
}

// Bytes returns the bytes sent after each line.
func (l LineEnding) Bytes() []byte {
	switch l {
	case LineEndingNL:
		return []byte{'\n'}
	case LineEndingCR:
		return []byte{'\r'}
	case LineEndingCRLF:
		return []byte{'\r', '\n'}
	default:
		return nil
	}
}

// String returns the flag spelling of l.
func (l LineEnding) String() string {
	switch l {
	case LineEndingNL:
		return "nl"
	case LineEndingCR:
		return "cr"
	case LineEndingCRLF:
		return "crlf"
	default:
		return "none"
	}
}

// Describe returns a human readable name for status output.
func (l LineEnding) Describe() string {
	switch l {
	case LineEndingNL:
		return `LF (\n)`
	case LineEndingCR:
		return `CR (\r)`
	case LineEndingCRLF:
		return `CRLF (\r\n)`
	default:
		return "none"
	}
}

// Set implements pflag.Value.
func (l *LineEnding) Set(s string) error {
	v, err := ParseLineEnding(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Type implements pflag.Value.
func (l *LineEnding) Type() string {
	return "lineEnding"
}

// Options holds everything one monitor session needs.
type Options struct {
	Serial     serial.SerialConfig
	LineEnding LineEnding
	Hex        bool
	Timestamps bool
	RxLogPath  string
	TxLogPath  string
	DebugLog   string
}

// DefaultOptions returns the options used when nothing is overridden.
func DefaultOptions() Options {
	return Options{
		Serial:     serial.DefaultConfig(),
		LineEnding: LineEndingNL,
	}
}

// Validate checks the options. The port may still be empty at this point;
// it is resolved by discovery before the serial config is validated.
func (o Options) Validate() error {
	if o.LineEnding < LineEndingNone || o.LineEnding > LineEndingCRLF {
		return fmt.Errorf("invalid line ending: %d", o.LineEnding)
	}
	if o.Serial.Port == "" {
		return nil
	}
	if err := o.Serial.Validate(); err != nil {
		return fmt.Errorf("invalid serial config: %w", err)
	}
	return nil
}

// RegisterFlags adds the session flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultOptions()
	le := d.LineEnding

	fs.StringP(FlagPort, "p", "", "serial port (prompted from USB ports when empty)")
	fs.IntP(FlagBaud, "b", d.Serial.BaudRate, "baud rate")
	fs.Int(FlagDataBits, d.Serial.DataBits, "data bits (5-8)")
	fs.Int(FlagStopBits, d.Serial.StopBits, "stop bits (1 or 2)")
	fs.String(FlagParity, d.Serial.Parity, "parity (none, odd, even, mark, space)")
	fs.Duration(FlagReadTimeout, d.Serial.ReadTimeout, "serial read timeout")
	fs.Var(&le, FlagLineEnding, "line ending appended on send (none, nl, cr, crlf)")
	fs.String(FlagRxLog, "", "append received bytes to this file")
	fs.String(FlagTxLog, "", "append transmitted bytes to this file")
	fs.Bool(FlagTimestamps, false, "prefix displayed and logged data with timestamps")
	fs.Bool(FlagHex, false, "display received bytes as hex")
	fs.String(FlagDebugLog, "", "write structured debug logs to this file")
}

// NewViper binds fs and SERMONIZER_* environment variables. Flags set on the
// command line win over the environment, which wins over flag defaults.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// FromViper builds Options from a viper instance prepared by NewViper.
func FromViper(v *viper.Viper) (Options, error) {
	o := DefaultOptions()

	if v.IsSet(FlagLineEnding) {
		le, err := ParseLineEnding(v.GetString(FlagLineEnding))
		if err != nil {
			return Options{}, err
		}
		o.LineEnding = le
	}

	o.Serial.Port = v.GetString(FlagPort)
	if v.IsSet(FlagBaud) {
		o.Serial.BaudRate = v.GetInt(FlagBaud)
	}
	if v.IsSet(FlagDataBits) {
		o.Serial.DataBits = v.GetInt(FlagDataBits)
	}
	if v.IsSet(FlagStopBits) {
		o.Serial.StopBits = v.GetInt(FlagStopBits)
	}
	if v.IsSet(FlagParity) {
		o.Serial.Parity = strings.ToLower(v.GetString(FlagParity))
	}
	if v.IsSet(FlagReadTimeout) {
		o.Serial.ReadTimeout = v.GetDuration(FlagReadTimeout)
	}

	o.Hex = v.GetBool(FlagHex)
	o.Timestamps = v.GetBool(FlagTimestamps)
	o.RxLogPath = v.GetString(FlagRxLog)
	o.TxLogPath = v.GetString(FlagTxLog)
	o.DebugLog = v.GetString(FlagDebugLog)

	return o, o.Validate()
}

// Package config holds the YAML configuration of the envsenso tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/envsenso/air"
	"github.com/mklimuk/envsenso/ready"
)

// Supported bus and ready line adapters.
const (
	AdapterGeneric  = "generic"
	AdapterRaspi    = "raspi"
	AdapterNanoPi   = "nanopi"
	AdapterMCP2221  = "mcp2221"
	AdapterMCP23017 = "mcp23017"
	AdapterMock     = "mock"
)

var busAdapters = []string{AdapterGeneric, AdapterRaspi, AdapterNanoPi, AdapterMCP2221, AdapterMock}

var ErrInvalid = errors.New("invalid configuration")

// Byte is a register sized value kept as hex in the file.
type Byte uint8

func (b Byte) MarshalYAML() (any, error) {
	return fmt.Sprintf("%#04x", uint8(b)), nil
}

func (b *Byte) UnmarshalYAML(value *yaml.Node) error {
	v, err := strconv.ParseUint(value.Value, 0, 8)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a byte value", value.Line, value.Value)
	}
	*b = Byte(v)
	return nil
}

type Config struct {
	Bus        Bus        `yaml:"bus"`
	Ready      Ready      `yaml:"ready"`
	Device     Device     `yaml:"device"`
	IoTPlotter IoTPlotter `yaml:"iotplotter"`
	Watch      Watch      `yaml:"watch"`
}

type Bus struct {
	Adapter string `yaml:"adapter"`
	// Device is the i2c-dev path used by the generic adapter.
	Device string `yaml:"device"`
	// Number is the bus number for gobot adaptors, -1 selects the board default.
	Number int `yaml:"number"`
}

type Ready struct {
	// Adapter defaults to the bus adapter when empty.
	Adapter  string        `yaml:"adapter,omitempty"`
	Pin      string        `yaml:"pin,omitempty"`
	Interval time.Duration `yaml:"interval"`
	// Timeout of 0 waits forever.
	Timeout  time.Duration `yaml:"timeout"`
	Expander Expander      `yaml:"expander,omitempty"`
}

// Expander locates the ready line on an MCP23017 sharing the sensor bus.
type Expander struct {
	Address Byte   `yaml:"address"`
	Port    string `yaml:"port"`
	Bit     uint8  `yaml:"bit"`
}

type Device struct {
	Address        Byte          `yaml:"address"`
	ResetCommand   Byte          `yaml:"reset_command"`
	RequestCommand Byte          `yaml:"request_command"`
	DataRegister   Byte          `yaml:"data_register"`
	Settle         time.Duration `yaml:"settle"`
}

type IoTPlotter struct {
	URL     string        `yaml:"url"`
	Feed    string        `yaml:"feed,omitempty"`
	Key     string        `yaml:"key,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

type Watch struct {
	Interval time.Duration `yaml:"interval"`
	Listen   string        `yaml:"listen"`
}

func Default() Config {
	return Config{
		Bus: Bus{
			Adapter: AdapterGeneric,
			Device:  "/dev/i2c-1",
			Number:  -1,
		},
		Ready: Ready{
			Interval: ready.DefaultPollInterval,
			Expander: Expander{Address: 0x21, Port: "A"},
		},
		Device: Device{
			Address:        Byte(air.DefaultAddress),
			ResetCommand:   Byte(air.DefaultResetCommand),
			RequestCommand: Byte(air.DefaultRequestCommand),
			DataRegister:   Byte(air.DefaultDataRegister),
			Settle:         air.DefaultSettleDelay,
		},
		IoTPlotter: IoTPlotter{
			URL:     "http://iotplotter.com/api/v2/feed/",
			Timeout: 10 * time.Second,
		},
		Watch: Watch{
			Interval: time.Minute,
			Listen:   ":8080",
		},
	}
}

// DefaultPath is the per-user configuration file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "envsenso.yaml"
	}
	return filepath.Join(dir, "envsenso", "config.yaml")
}

// Load overlays the file at path onto the defaults. A missing file is reported
// with an error matching fs.ErrNotExist.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("could not open config: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	err = yaml.NewDecoder(f).Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not decode config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg Config) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not create config file: %w", err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	err = enc.Encode(cfg)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("could not encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not encode config: %w", err)
	}
	return f.Close()
}

func (c Config) Validate() error {
	if !slices.Contains(busAdapters, c.Bus.Adapter) {
		return fmt.Errorf("%w: unknown bus adapter %q", ErrInvalid, c.Bus.Adapter)
	}
	if c.ReadyAdapter() != AdapterMCP23017 && !slices.Contains(busAdapters, c.ReadyAdapter()) {
		return fmt.Errorf("%w: unknown ready adapter %q", ErrInvalid, c.Ready.Adapter)
	}
	if c.Ready.Adapter == AdapterMCP23017 {
		if c.Ready.Expander.Port != "A" && c.Ready.Expander.Port != "B" {
			return fmt.Errorf("%w: expander port must be A or B", ErrInvalid)
		}
		if c.Ready.Expander.Bit > 7 {
			return fmt.Errorf("%w: expander bit must be 0-7", ErrInvalid)
		}
	}
	if c.Ready.Interval <= 0 {
		return fmt.Errorf("%w: ready interval must be positive", ErrInvalid)
	}
	if c.Ready.Timeout < 0 || c.Device.Settle < 0 {
		return fmt.Errorf("%w: negative durations are not allowed", ErrInvalid)
	}
	if c.Device.Address > 0x7F {
		return fmt.Errorf("%w: address %#x is not a 7-bit I2C address", ErrInvalid, uint8(c.Device.Address))
	}
	return nil
}

// ReadyAdapter is the adapter serving the ready line.
func (c Config) ReadyAdapter() string {
	if c.Ready.Adapter == "" {
		return c.Bus.Adapter
	}
	return c.Ready.Adapter
}

// ReadyPin returns the configured pin or the usual wiring for the adapter.
func (c Config) ReadyPin() string {
	if c.Ready.Pin != "" {
		return c.Ready.Pin
	}
	switch c.ReadyAdapter() {
	case AdapterRaspi, AdapterNanoPi:
		return "11"
	case AdapterMCP2221:
		return "1"
	default:
		return "GPIO17"
	}
}

func (c Config) Profile() air.Profile {
	return air.Profile{
		Address:        byte(c.Device.Address),
		ResetCommand:   byte(c.Device.ResetCommand),
		RequestCommand: byte(c.Device.RequestCommand),
		DataRegister:   byte(c.Device.DataRegister),
		SettleDelay:    c.Device.Settle,
	}
}

func (c Config) MonitorOpts() []ready.MonitorOpt {
	return []ready.MonitorOpt{
		ready.WithPollInterval(c.Ready.Interval),
		ready.WithTimeout(c.Ready.Timeout),
	}
}

package adapter

import (
	"context"
	"fmt"

	"github.com/mklimuk/envsenso"
)

type GPIOMode byte

const (
	GPIOModeOut         GPIOMode = 0b00000000
	GPIOModeIn          GPIOMode = 0b00001000
	GPIOModeNoOperation GPIOMode = 0xEF
)

func (m GPIOMode) String() string {
	switch m {
	case GPIOModeIn:
		return "INPUT"
	case GPIOModeOut:
		return "OUTPUT"
	default:
		return "NOOP"
	}
}

func (m GPIOMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// GPIODesignation selects the pin function; only plain GPIO operation is
// usable as a ready line.
type GPIODesignation byte

const GPIOOperation GPIODesignation = 0b00000000

const gpioModeMask = 0b00001000
const gpioOperationMask = 0b00000111

// the 0x51 reply holds value/direction pairs for GP0..GP3 from byte 2 on,
// 0xEE marks a pin not configured as GPIO
const gpioNotConfigured = 0xEE

// GPIOPins is the number of general purpose pins on the adapter.
const GPIOPins = 4

type GPIOValue struct {
	Mode  GPIOMode `yaml:"mode"`
	Value byte     `yaml:"value"`
}

type GPIODesign struct {
	Mode        GPIOMode        `yaml:"mode"`
	Designation GPIODesignation `yaml:"designation"`
}

// ReadGPIO returns the current level and direction of every GP pin.
func (d *MCP2221) ReadGPIO(ctx context.Context, id ...int) ([GPIOPins]GPIOValue, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	var res [GPIOPins]GPIOValue
	d.resetBuffers()
	d.request[0] = cmdReadGPIO
	err := d.send(ctx, id...)
	if err != nil {
		return res, fmt.Errorf("read GPIO values command write failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return res, ErrCommandFailed
	}
	for i := range res {
		value, dir := d.response[2+2*i], d.response[3+2*i]
		res[i] = GPIOValue{Mode: GPIOModeNoOperation, Value: value}
		if dir != gpioNotConfigured {
			res[i].Mode = GPIOMode(dir << 3)
		}
	}
	return res, nil
}

// GetGPIOParameters reads the SRAM pin designations.
func (d *MCP2221) GetGPIOParameters(ctx context.Context) ([GPIOPins]GPIODesign, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	var res [GPIOPins]GPIODesign
	d.resetBuffers()
	d.request[0] = cmdGetGPIOParameters
	d.request[1] = 0x01
	err := d.send(ctx)
	if err != nil {
		return res, fmt.Errorf("get GP parameters command write failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return res, ErrCommandUnsupported
	}
	for i := range res {
		b := d.response[4+i]
		res[i] = GPIODesign{Mode: GPIOMode(b & gpioModeMask), Designation: GPIODesignation(b & gpioOperationMask)}
	}
	return res, nil
}

// SetGPIOParameters writes the SRAM pin designations for all GP pins.
func (d *MCP2221) SetGPIOParameters(ctx context.Context, params [GPIOPins]GPIODesign) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdSetGPIOParameters
	d.request[1] = 0x01
	for i, p := range params {
		d.request[2+i] = byte(p.Designation) | byte(p.Mode)
	}
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("set GP parameters command write failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return ErrCommandFailed
	}
	return nil
}

var _ envsenso.LineCloser = &MCP2221Line{}

// MCP2221Line is a ready line wired to one of the adapter GP pins.
type MCP2221Line struct {
	adapter *MCP2221
	pin     int
}

func (d *MCP2221) Line(pin int) (*MCP2221Line, error) {
	if pin < 0 || pin >= GPIOPins {
		return nil, fmt.Errorf("invalid GP pin %d", pin)
	}
	return &MCP2221Line{adapter: d, pin: pin}, nil
}

// Setup configures the pin as a GPIO input keeping the other pins as they are.
func (l *MCP2221Line) Setup(ctx context.Context) error {
	params, err := l.adapter.GetGPIOParameters(ctx)
	if err != nil {
		return err
	}
	params[l.pin] = GPIODesign{Mode: GPIOModeIn, Designation: GPIOOperation}
	return l.adapter.SetGPIOParameters(ctx, params)
}

func (l *MCP2221Line) IsReady(ctx context.Context) (bool, error) {
	values, err := l.adapter.ReadGPIO(ctx)
	if err != nil {
		return false, err
	}
	v := values[l.pin]
	if v.Mode == GPIOModeNoOperation {
		return false, fmt.Errorf("GP%d is not configured as GPIO", l.pin)
	}
	return v.Value == 0, nil
}

func (l *MCP2221Line) Close() error {
	return nil
}

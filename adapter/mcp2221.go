// Package adapter drives the MCP2221 USB to I2C bridge so the sensor can be
// read from a workstation without a board I2C bus.
package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/envsenso"
	"github.com/mklimuk/envsenso/ready"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const reportSize = 64

// HID command codes.
const (
	cmdStatus            = 0x10
	cmdGetI2CData        = 0x40
	cmdReadGPIO          = 0x51
	cmdWriteData         = 0x90
	cmdReadData          = 0x91
	cmdReadDataRepeated  = 0x93
	cmdWriteDataNoStop   = 0x94
	cmdGetGPIOParameters = 0xB0
	cmdSetGPIOParameters = 0xB1
)

// maximum payload of a single 0x40 response
const maxReadChunk = reportSize - 4

var ErrCommandUnsupported = errors.New("unsupported command")
var ErrCommandFailed = errors.New("command failed")

var _ envsenso.BusCloser = &MCP2221{}

// HIDDevice is an opened HID interface exchanging 64 byte reports.
type HIDDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// DeviceOpener opens the adapter with the given enumeration index.
type DeviceOpener func(id ...int) (HIDDevice, error)

type MCP2221 struct {
	mx           sync.Mutex
	open         DeviceOpener
	request      []byte
	response     []byte
	responseWait time.Duration
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type MCP2221Opt func(*MCP2221)

// WithDeviceOpener replaces HID enumeration, mostly for tests.
func WithDeviceOpener(open DeviceOpener) MCP2221Opt {
	return func(d *MCP2221) {
		d.open = open
	}
}

// WithResponseWait sets the delay between sending a report and reading the
// reply.
func WithResponseWait(wait time.Duration) MCP2221Opt {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	d := &MCP2221{
		open:         openHID,
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.write(ctx, cmdWriteData, address, buffer)
	if err != nil {
		return fmt.Errorf("write to %#x failed: %w", address, err)
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	n, err := d.read(ctx, cmdReadData, address, buffer)
	if err != nil {
		return fmt.Errorf("bus read from %#x failed: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("bus read from %#x failed: invalid data size; expected %d, got %d", address, len(buffer), n)
	}
	return nil
}

// ReadRegister writes the register pointer without a stop condition and reads
// the block back with a repeated start. The returned count is what the I2C
// engine actually collected.
func (d *MCP2221) ReadRegister(ctx context.Context, address byte, register byte, buffer []byte) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.write(ctx, cmdWriteDataNoStop, address, []byte{register})
	if err != nil {
		return 0, fmt.Errorf("register %#x select on %#x failed: %w", register, address, err)
	}
	n, err := d.read(ctx, cmdReadDataRepeated, address, buffer)
	if err != nil {
		return n, fmt.Errorf("register %#x read from %#x failed: %w", register, address, err)
	}
	return n, nil
}

func (d *MCP2221) write(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	err := d.send(ctx)
	if err != nil {
		return err
	}
	if d.response[1] == 0x01 {
		slog.Debug("adapter busy", "command", fmt.Sprintf("%#x", cmd))
		return envsenso.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) read(ctx context.Context, cmd byte, address byte, buffer []byte) (int, error) {
	if len(buffer) > maxReadChunk {
		return 0, fmt.Errorf("read of %d bytes exceeds a single report", len(buffer))
	}
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return 0, err
	}
	if d.response[1] == 0x01 {
		return 0, envsenso.ErrBusBusy
	}
	resetBuffer(d.request)
	d.request[0] = cmdGetI2CData
	resetBuffer(d.response)
	err = d.send(ctx)
	if err != nil {
		return 0, fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == 0x41 {
		return 0, fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	size := int(d.response[3])
	if size == 127 {
		return 0, fmt.Errorf("I2C engine reported a read error")
	}
	if size > len(buffer) {
		size = len(buffer)
	}
	return copy(buffer, d.response[4:4+size]), nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9-10: requested I2C transfer length (LE)
		11-12: already transferred number of bytes (LE)
		13: internal I2C data buffer counter
		14: current I2C speed divider
		15: current I2C timeout
		16-17: I2C address being used
		25: read pending
	*/
	return &MCP2221Status{
		I2CDataBufferCounter:   int(buffer[13]),
		I2CSpeedDivider:        int(buffer[14]),
		I2CTimeout:             int(buffer[15]),
		ReadPending:            int(buffer[25]),
		CurrentAddress:         hex.EncodeToString(buffer[16:18]),
		LastWriteRequestedSize: binary.LittleEndian.Uint16(buffer[9:11]),
		LastWriteSentSize:      binary.LittleEndian.Uint16(buffer[11:13]),
	}
}

// Release cancels the current I2C transfer, freeing a stuck engine.
func (d *MCP2221) Release(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	return err
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = 0x10
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("bus release failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// Close is a no-op, the HID handle is opened per report.
func (d *MCP2221) Close() error {
	return nil
}

func (d *MCP2221) send(ctx context.Context, id ...int) error {
	dev, err := d.open(id...)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Debug("could not close adapter handle", "error", err)
		}
	}()
	debug := slog.Default().Enabled(ctx, slog.LevelDebug)
	if debug {
		slog.Debug("sending message to adapter", "report", "\n"+hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	if err := ready.Sleep(ctx, d.responseWait); err != nil {
		return err
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if debug {
		slog.Debug("read message from adapter", "report", "\n"+hex.Dump(d.response))
	}
	return nil
}

func openHID(id ...int) (HIDDevice, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, fmt.Errorf("MCP2221 device not found")
	}
	idx := 0
	if len(id) == 0 {
		if len(devs) > 1 {
			return nil, fmt.Errorf("ambiguous device identification")
		}
	} else {
		idx = id[0]
		if idx < 0 || idx >= len(devs) {
			return nil, fmt.Errorf("no device with id %d", idx)
		}
	}
	dev, err := devs[idx].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}

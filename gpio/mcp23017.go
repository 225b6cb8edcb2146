package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/envsenso"
)

type registry int

const DefaultMCP23017Address = 0x21

const (
	IODIRA registry = iota
	GPPUA
	GPIOA
	IODIRB
	GPPUB
	GPIOB
)

// BankAddr maps registries to addresses for IOCON.BANK = 0 and 1.
var BankAddr = []map[registry]byte{
	{
		IODIRA: 0x00,
		GPPUA:  0x0C,
		GPIOA:  0x12,
		IODIRB: 0x01,
		GPPUB:  0x0D,
		GPIOB:  0x13,
	},
	{
		IODIRA: 0x00,
		GPPUA:  0x06,
		GPIOA:  0x09,
		IODIRB: 0x10,
		GPPUB:  0x16,
		GPIOB:  0x19,
	},
}

// Port selects one of the two 8-bit expander ports.
type Port int

const (
	PortA Port = iota
	PortB
)

func (p Port) String() string {
	if p == PortB {
		return "B"
	}
	return "A"
}

func (p Port) registries() (dir, pull, data registry) {
	if p == PortB {
		return IODIRB, GPPUB, GPIOB
	}
	return IODIRA, GPPUA, GPIOA
}

/*
Steps to read a pin:

1. Set the pin bit in IODIR (input)
2. Optionally enable the pull-up in GPPU
3. Read the port register
*/
type MCP23017 struct {
	mx         sync.Mutex
	transport  envsenso.I2CBus
	bank       int
	address    byte
	retryLimit int
}

func NewMCP23017(bus envsenso.I2CBus, address byte) *MCP23017 {
	return &MCP23017{retryLimit: 3, transport: bus, address: address}
}

// Init sets the IODIR registry of the port to inout (1 = input).
func (m *MCP23017) Init(ctx context.Context, port Port, inout byte) error {
	dir, _, _ := port.registries()
	err := m.retry(ctx, func() error {
		return m.transport.WriteToAddr(ctx, m.address, []byte{BankAddr[m.bank][dir], inout})
	})
	if err != nil {
		return fmt.Errorf("could not initialize gpio %s set: %w", port, err)
	}
	return nil
}

// PullUp sets up pull up resistors on the port.
func (m *MCP23017) PullUp(ctx context.Context, port Port, settings byte) error {
	_, pull, _ := port.registries()
	err := m.retry(ctx, func() error {
		return m.transport.WriteToAddr(ctx, m.address, []byte{BankAddr[m.bank][pull], settings})
	})
	if err != nil {
		return fmt.Errorf("could not set pull-up on gpio %s set: %w", port, err)
	}
	return nil
}

// Read returns the current levels of the port.
func (m *MCP23017) Read(ctx context.Context, port Port) (byte, error) {
	_, _, data := port.registries()
	var res byte
	err := m.retry(ctx, func() error {
		var err error
		res, err = m.readRegistry(ctx, BankAddr[m.bank][data])
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("could not read gpio %s set: %w", port, err)
	}
	return res, nil
}

// Line returns a ready line backed by one input bit of the expander.
func (m *MCP23017) Line(port Port, bit uint8) *ExpanderLine {
	return &ExpanderLine{expander: m, port: port, mask: 1 << (bit & 0x07)}
}

func (m *MCP23017) readRegistry(ctx context.Context, addr byte) (byte, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	buf := make([]byte, 1)
	n, err := m.transport.ReadRegister(ctx, m.address, addr, buf)
	if err != nil {
		return 0x00, fmt.Errorf("could not read registry %#x: %w", addr, err)
	}
	if n != 1 {
		return 0x00, fmt.Errorf("could not read registry %#x: no data", addr)
	}
	return buf[0], nil
}

// retry repeats op while the bus reports busy, releasing it in between.
func (m *MCP23017) retry(ctx context.Context, op func() error) error {
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, envsenso.ErrBusBusy) {
			return err
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return fmt.Errorf("retry limit reached: %w", err)
}

var _ envsenso.LineCloser = &ExpanderLine{}

// ExpanderLine is a ready line wired to an MCP23017 input.
type ExpanderLine struct {
	expander *MCP23017
	port     Port
	mask     byte
}

// Setup configures the line's port as input; other bits of the port are left
// as inputs too.
func (l *ExpanderLine) Setup(ctx context.Context) error {
	return l.expander.Init(ctx, l.port, 0xFF)
}

func (l *ExpanderLine) IsReady(ctx context.Context) (bool, error) {
	levels, err := l.expander.Read(ctx, l.port)
	if err != nil {
		return false, err
	}
	return levels&l.mask == 0, nil
}

func (l *ExpanderLine) Close() error {
	return nil
}

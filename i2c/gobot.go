package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gobotI2C "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/envsenso"
)

var (
	_ envsenso.BusCloser = &GobotBus{}
	_ envsenso.Addresser = &GobotBus{}
)

// GobotBus exposes the I2C bus of a gobot board adaptor (raspi, nanopi...).
// Connections are opened per device address and closed together with the bus.
// The adaptor itself stays owned by the caller.
type GobotBus struct {
	mx      sync.Mutex
	adaptor gobotI2C.Connector
	busNr   int
	conns   map[byte]gobotI2C.Connection
}

// NewGobotBus binds to bus busNr of the adaptor; a negative busNr selects
// the adaptor's default bus.
func NewGobotBus(adaptor gobotI2C.Connector, busNr int) *GobotBus {
	if busNr < 0 {
		busNr = adaptor.DefaultI2cBus()
	}
	return &GobotBus{
		adaptor: adaptor,
		busNr:   busNr,
		conns:   make(map[byte]gobotI2C.Connection),
	}
}

// SetAddress opens the connection to the device so that addressing errors
// surface before any traffic.
func (b *GobotBus) SetAddress(ctx context.Context, address byte) error {
	_, err := b.conn(address)
	return err
}

func (b *GobotBus) conn(address byte) (gobotI2C.Connection, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if c, ok := b.conns[address]; ok {
		return c, nil
	}
	c, err := b.adaptor.GetI2cConnection(int(address), b.busNr)
	if err != nil {
		return nil, fmt.Errorf("could not open connection to %x on bus %d: %w", address, b.busNr, err)
	}
	b.conns[address] = c
	return c, nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	c, err := b.conn(address)
	if err != nil {
		return err
	}
	n, err := c.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from i2c bus %x: got %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	c, err := b.conn(address)
	if err != nil {
		return err
	}
	switch len(buffer) {
	case 0:
		return nil
	case 1:
		err = c.WriteByte(buffer[0])
	default:
		err = c.WriteBytes(buffer)
	}
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) ReadRegister(ctx context.Context, address byte, register byte, buffer []byte) (int, error) {
	c, err := b.conn(address)
	if err != nil {
		return 0, err
	}
	if err := c.ReadBlockData(register, buffer); err != nil {
		return 0, fmt.Errorf("could not read register %#x from i2c bus %x: %w", register, address, err)
	}
	return len(buffer), nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for addr, c := range b.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("connection %x: %w", addr, err))
		}
		delete(b.conns, addr)
	}
	return errors.Join(errs...)
}

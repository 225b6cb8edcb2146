package i2c

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/envsenso"
)

const DefaultDevice = "/dev/i2c-1"

var _ envsenso.BusCloser = &GenericBus{}

// GenericBus is a linux i2c-dev bus driven through periph.
type GenericBus struct {
	bus i2c.BusCloser
}

func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("periph driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus %s: %w", dev, err)
	}
	return &GenericBus{
		bus: bus,
	}, nil
}

// SetSpeed changes the bus clock.
func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	return b.bus.SetSpeed(f)
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

// ReadRegister writes the register pointer and reads the block back in a
// single repeated-start transaction. i2c-dev either fills the buffer or fails.
func (b *GenericBus) ReadRegister(ctx context.Context, address byte, register byte, buffer []byte) (int, error) {
	err := b.bus.Tx(uint16(address), []byte{register}, buffer)
	if err != nil {
		return 0, fmt.Errorf("could not read register %#x from i2c bus %x: %w", register, address, err)
	}
	slog.Debug("i2c register read", "address", address, "register", register, "data", hex.EncodeToString(buffer))
	return len(buffer), nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}

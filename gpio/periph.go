package gpio

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/envsenso"
)

// DefaultReadyPin is BCM GPIO17, header pin 11 on a Raspberry Pi.
const DefaultReadyPin = "GPIO17"

var _ envsenso.LineCloser = &PeriphLine{}

// PeriphLine is a ready line read from a host GPIO through periph.
type PeriphLine struct {
	pin gpio.PinIO
}

// NewPeriphLine looks the pin up by name (e.g. "GPIO17") and configures it as
// an input without touching the pull resistor.
func NewPeriphLine(name string) (*PeriphLine, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %s not found", name)
	}
	if err := pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("could not configure %s as input: %w", name, err)
	}
	return &PeriphLine{pin: pin}, nil
}

// IsReady reports whether the line is low.
func (l *PeriphLine) IsReady(ctx context.Context) (bool, error) {
	return l.pin.Read() == gpio.Low, nil
}

func (l *PeriphLine) Close() error {
	return l.pin.Halt()
}

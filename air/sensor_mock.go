package air

import (
	"context"
	"fmt"
	"sync"
)

// ReadingBehaviorFunc produces a reading or an error.
type ReadingBehaviorFunc func(ctx context.Context) (Reading, error)

// MockAirSensor stands in for a Sensor without requiring hardware.
//
// Example usage:
//
//	sensor := NewMockAirSensor(func(ctx context.Context) (Reading, error) {
//		return Reading{Temperature: 21.5, Humidity: 40}, nil
//	})
type MockAirSensor struct {
	behavior ReadingBehaviorFunc
}

func NewMockAirSensor(behavior ReadingBehaviorFunc) *MockAirSensor {
	return &MockAirSensor{behavior: behavior}
}

func (m *MockAirSensor) Read(ctx context.Context) (Reading, error) {
	return m.behavior(ctx)
}

// MockDevice simulates the sensor on the bus side: it accepts the command
// bytes and answers register reads with a fixed payload. It implements
// envsenso.BusCloser.
type MockDevice struct {
	mx       sync.Mutex
	address  byte
	payload  Payload
	short    int
	commands []byte
	closed   bool
}

func NewMockDevice(address byte, payload Payload) *MockDevice {
	return &MockDevice{address: address, payload: payload, short: PayloadSize}
}

// Truncate makes subsequent register reads return only n bytes.
func (d *MockDevice) Truncate(n int) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.short = n
}

// Commands returns the command bytes received so far.
func (d *MockDevice) Commands() []byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]byte(nil), d.commands...)
}

func (d *MockDevice) Closed() bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.closed
}

func (d *MockDevice) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if address != d.address {
		return fmt.Errorf("no device at %#x", address)
	}
	d.commands = append(d.commands, buffer...)
	return nil
}

func (d *MockDevice) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	_, err := d.ReadRegister(ctx, address, DefaultDataRegister, buffer)
	return err
}

func (d *MockDevice) ReadRegister(ctx context.Context, address byte, register byte, buffer []byte) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if address != d.address {
		return 0, fmt.Errorf("no device at %#x", address)
	}
	n := copy(buffer, d.payload[:d.short])
	return n, nil
}

func (d *MockDevice) Release(ctx context.Context) error {
	return nil
}

func (d *MockDevice) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.closed = true
	return nil
}

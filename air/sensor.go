// Package air drives the combined temperature/humidity/pressure/gas sensor
// that signals readiness on a dedicated digital line.
//
// Typical usage:
//
//	mon := ready.NewMonitor(line)
//	s := air.NewSensor(bus, mon)
//	r, err := s.Read(ctx)
//
// Only one acquisition may be in flight per physical device. A Sensor
// serializes its own callers, but two Sensors sharing a device will
// interleave register state.
package air

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/envsenso"
	"github.com/mklimuk/envsenso/ready"
)

// Waiter blocks until the device signals ready.
type Waiter interface {
	WaitReady(ctx context.Context) error
}

type Sensor struct {
	mx        sync.Mutex
	transport envsenso.I2CBus
	ready     Waiter
	config    Profile
	sleep     ready.SleepFunc
}

func NewSensor(transport envsenso.I2CBus, rdy Waiter, opts ...Opt) *Sensor {
	config := DefaultProfile()
	for _, opt := range opts {
		opt(&config)
	}
	return &Sensor{
		transport: transport,
		ready:     rdy,
		config:    config,
		sleep:     ready.Sleep,
	}
}

// Profile returns the bus settings in use.
func (s *Sensor) Profile() Profile {
	return s.config
}

// Read resets the device, requests a measurement and decodes the result. Any
// failing step aborts the sequence, nothing is retried.
func (s *Sensor) Read(ctx context.Context) (Reading, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	if err := s.ready.WaitReady(ctx); err != nil {
		return Reading{}, fmt.Errorf("air: device not idle: %w", err)
	}
	if err := s.command(ctx, s.config.ResetCommand); err != nil {
		return Reading{}, fmt.Errorf("air: reset: %w", err)
	}
	if err := s.ready.WaitReady(ctx); err != nil {
		return Reading{}, fmt.Errorf("air: waiting for reset: %w", err)
	}
	if err := s.command(ctx, s.config.RequestCommand); err != nil {
		return Reading{}, fmt.Errorf("air: data request: %w", err)
	}
	if err := s.ready.WaitReady(ctx); err != nil {
		return Reading{}, fmt.Errorf("air: waiting for measurement: %w", err)
	}
	p, err := s.readPayload(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("air: %w", err)
	}
	return Decode(p), nil
}

// command writes a single command byte and waits for the device to settle.
func (s *Sensor) command(ctx context.Context, cmd byte) error {
	err := s.transport.WriteToAddr(ctx, s.config.Address, []byte{cmd})
	if err != nil {
		return fmt.Errorf("%w: command %#x: %w", envsenso.ErrBusWrite, cmd, err)
	}
	return s.settle(ctx, s.config.SettleDelay)
}

func (s *Sensor) settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return s.sleep(ctx, d)
}

func (s *Sensor) readPayload(ctx context.Context) (Payload, error) {
	var p Payload
	buf := make([]byte, PayloadSize)
	n, err := s.transport.ReadRegister(ctx, s.config.Address, s.config.DataRegister, buf)
	if err != nil {
		return p, fmt.Errorf("%w: register %#x: %w", envsenso.ErrBusRead, s.config.DataRegister, err)
	}
	if n < PayloadSize {
		return p, fmt.Errorf("%w: short read from register %#x: got %d of %d bytes",
			envsenso.ErrBusRead, s.config.DataRegister, n, PayloadSize)
	}
	copy(p[:], buf)
	return p, nil
}

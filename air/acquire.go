package air

import (
	"context"
	"fmt"

	"github.com/mklimuk/envsenso"
	"github.com/mklimuk/envsenso/ready"
)

type BusOpener func(ctx context.Context) (envsenso.BusCloser, error)

type LineOpener func(ctx context.Context) (envsenso.LineCloser, error)

// Acquirer opens the bus and the ready line for a single reading and releases
// both before returning, whatever the outcome.
type Acquirer struct {
	OpenBus  BusOpener
	OpenLine LineOpener
	Monitor  []ready.MonitorOpt
	Device   []Opt
	// OnCloseError, when set, receives errors from releasing the handles. They
	// never replace the acquisition result.
	OnCloseError func(error)
}

func (a Acquirer) Acquire(ctx context.Context) (Reading, error) {
	profile := DefaultProfile()
	for _, opt := range a.Device {
		opt(&profile)
	}

	bus, err := a.OpenBus(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %w", envsenso.ErrBusUnavailable, err)
	}
	defer a.release("bus", bus.Close)

	if addr, ok := bus.(envsenso.Addresser); ok {
		if err := addr.SetAddress(ctx, profile.Address); err != nil {
			return Reading{}, fmt.Errorf("%w: address %#x: %w", envsenso.ErrBusUnavailable, profile.Address, err)
		}
	}

	line, err := a.OpenLine(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %w", envsenso.ErrIOUnavailable, err)
	}
	defer a.release("ready line", line.Close)

	s := NewSensor(bus, ready.NewMonitor(line, a.Monitor...), WithProfile(profile))
	return s.Read(ctx)
}

func (a Acquirer) release(what string, closeFn func() error) {
	err := closeFn()
	if err != nil && a.OnCloseError != nil {
		a.OnCloseError(fmt.Errorf("could not release %s: %w", what, err))
	}
}

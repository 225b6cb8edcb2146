package air

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/envsenso"
	"github.com/mklimuk/envsenso/ready"
)

type addressedDevice struct {
	*MockDevice
	setErr  error
	setAddr byte
}

func (d *addressedDevice) SetAddress(ctx context.Context, address byte) error {
	d.setAddr = address
	return d.setErr
}

type closeFailLine struct {
	*ready.MockLine
	err error
}

func (l *closeFailLine) Close() error {
	return l.err
}

func fastAcquirer(dev envsenso.BusCloser, line envsenso.LineCloser) Acquirer {
	return Acquirer{
		OpenBus:  func(ctx context.Context) (envsenso.BusCloser, error) { return dev, nil },
		OpenLine: func(ctx context.Context) (envsenso.LineCloser, error) { return line, nil },
		Monitor:  []ready.MonitorOpt{ready.WithPollInterval(time.Millisecond)},
		Device:   []Opt{WithSettleDelay(time.Millisecond)},
	}
}

func TestAcquirer_Success(t *testing.T) {
	dev := NewMockDevice(DefaultAddress, basePayload())
	line := ready.NewBusyLine(2)

	r, err := fastAcquirer(dev, line).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Reading{Temperature: 22.5, Humidity: 55.5, AirPressure: 1, Gas: 42}, r)
	assert.Equal(t, []byte{DefaultResetCommand, DefaultRequestCommand}, dev.Commands())
	assert.True(t, dev.Closed(), "bus must be released")
	assert.Equal(t, 5, line.Polls())
}

func TestAcquirer_BusUnavailable(t *testing.T) {
	openErr := errors.New("/dev/i2c-1: no such file or directory")
	lineOpened := false
	a := Acquirer{
		OpenBus: func(ctx context.Context) (envsenso.BusCloser, error) { return nil, openErr },
		OpenLine: func(ctx context.Context) (envsenso.LineCloser, error) {
			lineOpened = true
			return ready.NewBusyLine(0), nil
		},
	}
	_, err := a.Acquire(context.Background())
	assert.ErrorIs(t, err, envsenso.ErrBusUnavailable)
	assert.ErrorIs(t, err, openErr)
	assert.False(t, lineOpened)
}

func TestAcquirer_AddressFailure(t *testing.T) {
	dev := &addressedDevice{
		MockDevice: NewMockDevice(DefaultAddress, basePayload()),
		setErr:     errors.New("ioctl I2C_SLAVE failed"),
	}
	_, err := fastAcquirer(dev, ready.NewBusyLine(0)).Acquire(context.Background())
	assert.ErrorIs(t, err, envsenso.ErrBusUnavailable)
	assert.Contains(t, err.Error(), "address 0x71")
	assert.Equal(t, DefaultAddress, dev.setAddr)
	assert.True(t, dev.Closed(), "bus must be released on failure")
	assert.Empty(t, dev.Commands())
}

func TestAcquirer_AddressesConfiguredDevice(t *testing.T) {
	dev := &addressedDevice{MockDevice: NewMockDevice(0x44, basePayload())}
	a := fastAcquirer(dev, ready.NewBusyLine(0))
	a.Device = append(a.Device, WithAddress(0x44))

	_, err := a.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(0x44), dev.setAddr)
}

func TestAcquirer_LineUnavailable(t *testing.T) {
	dev := NewMockDevice(DefaultAddress, basePayload())
	a := fastAcquirer(dev, nil)
	a.OpenLine = func(ctx context.Context) (envsenso.LineCloser, error) {
		return nil, errors.New("GPIO17 not found")
	}
	_, err := a.Acquire(context.Background())
	assert.ErrorIs(t, err, envsenso.ErrIOUnavailable)
	assert.True(t, dev.Closed())
}

func TestAcquirer_ShortRead(t *testing.T) {
	dev := NewMockDevice(DefaultAddress, basePayload())
	dev.Truncate(8)

	r, err := fastAcquirer(dev, ready.NewBusyLine(0)).Acquire(context.Background())
	assert.ErrorIs(t, err, envsenso.ErrBusRead)
	assert.Equal(t, Reading{}, r)
	assert.True(t, dev.Closed())
}

func TestAcquirer_ReadyTimeout(t *testing.T) {
	dev := NewMockDevice(DefaultAddress, basePayload())
	line := ready.NewMockLine(func(ctx context.Context) (bool, error) { return false, nil })
	a := fastAcquirer(dev, line)
	a.Monitor = append(a.Monitor, ready.WithTimeout(5*time.Millisecond))

	_, err := a.Acquire(context.Background())
	assert.ErrorIs(t, err, envsenso.ErrTimeout)
	assert.Empty(t, dev.Commands(), "no command before the device is idle")
	assert.True(t, dev.Closed())
}

func TestAcquirer_CloseErrorsReported(t *testing.T) {
	dev := NewMockDevice(DefaultAddress, basePayload())
	closeErr := errors.New("gpio unexport failed")
	line := &closeFailLine{MockLine: ready.NewBusyLine(0), err: closeErr}
	var reported []error
	a := fastAcquirer(dev, line)
	a.OnCloseError = func(err error) { reported = append(reported, err) }

	r, err := a.Acquire(context.Background())
	require.NoError(t, err, "release errors do not invalidate a reading")
	assert.Equal(t, float32(22.5), r.Temperature)
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], closeErr)
	assert.Contains(t, reported[0].Error(), "ready line")
}

package envsenso

import (
	"context"
	"fmt"
	"io"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// RegisterReader performs a combined write-register/read transaction and
// reports how many bytes the device actually returned.
type RegisterReader interface {
	ReadRegister(ctx context.Context, address byte, register byte, buffer []byte) (int, error)
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
	RegisterReader
}

// BusCloser is an I2C bus session owned by a single acquisition.
type BusCloser interface {
	I2CBus
	io.Closer
}

// Addresser is implemented by buses that bind a device address up front
// (e.g. gobot connections) rather than per transaction.
type Addresser interface {
	SetAddress(ctx context.Context, address byte) error
}

// ReadyLine is a digital input signalling that the device is idle.
type ReadyLine interface {
	IsReady(ctx context.Context) (bool, error)
}

type LineCloser interface {
	ReadyLine
	io.Closer
}

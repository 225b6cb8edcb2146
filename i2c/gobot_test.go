package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gobotI2C "gobot.io/x/gobot/v2/drivers/i2c"
)

// fakeConnection records gobot i2c operations; unused methods panic through
// the embedded nil interface.
type fakeConnection struct {
	gobotI2C.Connection
	written  [][]byte
	register byte
	block    []byte
	readErr  error
	closed   bool
}

func (c *fakeConnection) WriteByte(val byte) error {
	c.written = append(c.written, []byte{val})
	return nil
}

func (c *fakeConnection) WriteBytes(b []byte) error {
	c.written = append(c.written, append([]byte(nil), b...))
	return nil
}

func (c *fakeConnection) Read(b []byte) (int, error) {
	return copy(b, c.block), c.readErr
}

func (c *fakeConnection) ReadBlockData(reg uint8, b []byte) error {
	c.register = reg
	if c.readErr != nil {
		return c.readErr
	}
	copy(b, c.block)
	return nil
}

func (c *fakeConnection) Close() error {
	c.closed = true
	return nil
}

type fakeConnector struct {
	gobotI2C.Connector
	conns     map[int]*fakeConnection
	requested []int
	busNr     int
	err       error
}

func (f *fakeConnector) GetI2cConnection(address int, busNr int) (gobotI2C.Connection, error) {
	f.requested = append(f.requested, address)
	f.busNr = busNr
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.conns[address]
	if !ok {
		c = &fakeConnection{}
		f.conns[address] = c
	}
	return c, nil
}

func (f *fakeConnector) DefaultI2cBus() int {
	return 1
}

func TestGobotBus_DefaultBusNumber(t *testing.T) {
	adaptor := &fakeConnector{conns: map[int]*fakeConnection{}}
	bus := NewGobotBus(adaptor, -1)
	require.NoError(t, bus.SetAddress(context.Background(), 0x71))
	assert.Equal(t, 1, adaptor.busNr)

	bus = NewGobotBus(adaptor, 3)
	require.NoError(t, bus.SetAddress(context.Background(), 0x71))
	assert.Equal(t, 3, adaptor.busNr)
}

func TestGobotBus_ConnectionReused(t *testing.T) {
	adaptor := &fakeConnector{conns: map[int]*fakeConnection{}}
	bus := NewGobotBus(adaptor, 1)
	ctx := context.Background()

	require.NoError(t, bus.SetAddress(ctx, 0x71))
	require.NoError(t, bus.WriteToAddr(ctx, 0x71, []byte{0xE2}))
	require.NoError(t, bus.WriteToAddr(ctx, 0x71, []byte{0x01, 0x02}))
	assert.Equal(t, []int{0x71}, adaptor.requested)
	assert.Equal(t, [][]byte{{0xE2}, {0x01, 0x02}}, adaptor.conns[0x71].written)

	require.NoError(t, bus.Close())
	assert.True(t, adaptor.conns[0x71].closed)
}

func TestGobotBus_ReadRegister(t *testing.T) {
	conn := &fakeConnection{block: []byte{1, 2, 3, 4}}
	adaptor := &fakeConnector{conns: map[int]*fakeConnection{0x71: conn}}
	bus := NewGobotBus(adaptor, 1)

	buf := make([]byte, 4)
	n, err := bus.ReadRegister(context.Background(), 0x71, 0x10, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
	assert.Equal(t, byte(0x10), conn.register)
}

func TestGobotBus_Errors(t *testing.T) {
	ctx := context.Background()

	adaptor := &fakeConnector{conns: map[int]*fakeConnection{}, err: errors.New("no bus")}
	bus := NewGobotBus(adaptor, 1)
	assert.ErrorContains(t, bus.SetAddress(ctx, 0x71), "no bus")

	conn := &fakeConnection{readErr: errors.New("remote I/O error")}
	bus = NewGobotBus(&fakeConnector{conns: map[int]*fakeConnection{0x71: conn}}, 1)
	_, err := bus.ReadRegister(ctx, 0x71, 0x10, make([]byte, 12))
	assert.ErrorContains(t, err, "remote I/O error")

	conn = &fakeConnection{block: []byte{1, 2}}
	bus = NewGobotBus(&fakeConnector{conns: map[int]*fakeConnection{0x71: conn}}, 1)
	assert.ErrorContains(t, bus.ReadFromAddr(ctx, 0x71, make([]byte, 4)), "short read")
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	gobotI2C "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/mklimuk/envsenso"
	"github.com/mklimuk/envsenso/adapter"
	"github.com/mklimuk/envsenso/air"
	"github.com/mklimuk/envsenso/config"
	"github.com/mklimuk/envsenso/gpio"
	"github.com/mklimuk/envsenso/i2c"
	"github.com/mklimuk/envsenso/ready"
)

// mockPayload decodes to 22.5 °C, 55.5 %RH, 101325, 42000.
var mockPayload = air.Payload{0x16, 0x05, 0xCD, 0x8B, 0x01, 0x00, 0x37, 0x00, 0x10, 0xA4, 0x00, 0x00}

// boardAdaptor is what raspi and nanopi adaptors have in common.
type boardAdaptor interface {
	gobotI2C.Connector
	gpio.DigitalReader
	Connect() error
	Finalize() error
}

// hardware opens the bus and ready line described by the configuration. The
// gobot board and the MCP2221 handle are shared between acquisitions, the bus
// and line sessions are not.
type hardware struct {
	cfg       config.Config
	board     boardAdaptor
	connected bool
	bridge    *adapter.MCP2221
	// bus opened for the acquisition in progress, the expander line rides on it
	bus envsenso.BusCloser
}

func newHardware(cfg config.Config) *hardware {
	return &hardware{cfg: cfg}
}

func (h *hardware) acquirer() air.Acquirer {
	return air.Acquirer{
		OpenBus:  h.openBus,
		OpenLine: h.openLine,
		Monitor:  h.cfg.MonitorOpts(),
		Device:   []air.Opt{air.WithProfile(h.cfg.Profile())},
		OnCloseError: func(err error) {
			slog.Warn("release error", "error", err)
		},
	}
}

// name identifies the sensor in metrics and logs.
func (h *hardware) name() string {
	return fmt.Sprintf("%s:%#x", h.cfg.Bus.Adapter, uint8(h.cfg.Device.Address))
}

func (h *hardware) openBus(ctx context.Context) (envsenso.BusCloser, error) {
	var bus envsenso.BusCloser
	switch h.cfg.Bus.Adapter {
	case config.AdapterGeneric:
		b, err := i2c.NewGenericBus(h.cfg.Bus.Device)
		if err != nil {
			return nil, err
		}
		bus = b
	case config.AdapterRaspi, config.AdapterNanoPi:
		board, err := h.connectBoard()
		if err != nil {
			return nil, err
		}
		bus = i2c.NewGobotBus(board, h.cfg.Bus.Number)
	case config.AdapterMCP2221:
		bus = h.mcp2221()
	case config.AdapterMock:
		bus = air.NewMockDevice(byte(h.cfg.Device.Address), mockPayload)
	default:
		return nil, fmt.Errorf("unsupported bus adapter %q", h.cfg.Bus.Adapter)
	}
	slog.Debug("bus opened", "adapter", h.cfg.Bus.Adapter)
	h.bus = bus
	return bus, nil
}

func (h *hardware) openLine(ctx context.Context) (envsenso.LineCloser, error) {
	pin := h.cfg.ReadyPin()
	switch h.cfg.ReadyAdapter() {
	case config.AdapterGeneric:
		line, err := gpio.NewPeriphLine(pin)
		if err != nil {
			return nil, err
		}
		return line, nil
	case config.AdapterRaspi, config.AdapterNanoPi:
		board, err := h.connectBoard()
		if err != nil {
			return nil, err
		}
		return gpio.NewGobotLine(board, pin), nil
	case config.AdapterMCP2221:
		gp, err := strconv.Atoi(pin)
		if err != nil {
			return nil, fmt.Errorf("invalid GP pin %q: %w", pin, err)
		}
		line, err := h.mcp2221().Line(gp)
		if err != nil {
			return nil, err
		}
		if err := line.Setup(ctx); err != nil {
			return nil, fmt.Errorf("could not configure GP%d: %w", gp, err)
		}
		return line, nil
	case config.AdapterMCP23017:
		if h.bus == nil {
			return nil, fmt.Errorf("expander line needs an open bus")
		}
		exp := h.cfg.Ready.Expander
		port := gpio.PortA
		if exp.Port == "B" {
			port = gpio.PortB
		}
		line := gpio.NewMCP23017(h.bus, byte(exp.Address)).Line(port, exp.Bit)
		if err := line.Setup(ctx); err != nil {
			return nil, err
		}
		return line, nil
	case config.AdapterMock:
		return ready.NewBusyLine(3), nil
	default:
		return nil, fmt.Errorf("unsupported ready adapter %q", h.cfg.ReadyAdapter())
	}
}

func (h *hardware) connectBoard() (boardAdaptor, error) {
	if h.board == nil {
		if h.cfg.Bus.Adapter == config.AdapterNanoPi || h.cfg.ReadyAdapter() == config.AdapterNanoPi {
			h.board = nanopi.NewNeoAdaptor()
		} else {
			h.board = raspi.NewAdaptor()
		}
	}
	if !h.connected {
		if err := h.board.Connect(); err != nil {
			return nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		h.connected = true
	}
	return h.board, nil
}

func (h *hardware) mcp2221() *adapter.MCP2221 {
	if h.bridge == nil {
		h.bridge = adapter.NewMCP2221()
	}
	return h.bridge
}

// Close finalizes the board adaptor, if one was connected.
func (h *hardware) Close() error {
	h.bus = nil
	if !h.connected {
		return nil
	}
	h.connected = false
	return h.board.Finalize()
}

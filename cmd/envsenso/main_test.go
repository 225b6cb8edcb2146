package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/envsenso"
	"github.com/mklimuk/envsenso/air"
	"github.com/mklimuk/envsenso/config"
	"github.com/mklimuk/envsenso/publish"
)

func mockConfig() config.Config {
	cfg := config.Default()
	cfg.Bus.Adapter = config.AdapterMock
	cfg.Ready.Interval = time.Millisecond
	cfg.Device.Settle = 0
	return cfg
}

func TestHardware_MockAcquisition(t *testing.T) {
	hw := newHardware(mockConfig())
	defer func() {
		assert.NoError(t, hw.Close())
	}()

	r, err := hw.acquirer().Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, air.Reading{Temperature: 22.5, Humidity: 55.5, AirPressure: 101325, Gas: 42000}, r)
	assert.Equal(t, "mock:0x71", hw.name())
}

func TestHardware_MockWrongAddress(t *testing.T) {
	// the mock device answers at the configured address only
	cfg := mockConfig()
	hw := newHardware(cfg)
	acq := hw.acquirer()
	acq.Device = append(acq.Device, air.WithAddress(0x72))
	_, err := acq.Acquire(context.Background())
	assert.ErrorIs(t, err, envsenso.ErrBusWrite)
}

func TestHardware_UnsupportedAdapter(t *testing.T) {
	cfg := mockConfig()
	cfg.Bus.Adapter = "serial"
	_, err := newHardware(cfg).acquirer().Acquire(context.Background())
	assert.ErrorIs(t, err, envsenso.ErrBusUnavailable)
}

func TestHardware_ExpanderNeedsBus(t *testing.T) {
	cfg := mockConfig()
	cfg.Ready.Adapter = config.AdapterMCP23017
	_, err := newHardware(cfg).openLine(context.Background())
	assert.ErrorContains(t, err, "needs an open bus")
}

func gauge(t *testing.T, e *publish.Exporter, name string) (float64, bool) {
	t.Helper()
	families, err := e.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		m := f.GetMetric()[0]
		if m.GetGauge() != nil {
			return m.GetGauge().GetValue(), true
		}
		return m.GetCounter().GetValue(), true
	}
	return 0, false
}

func TestWatcher_Once(t *testing.T) {
	calls := 0
	sensor := air.NewMockAirSensor(func(ctx context.Context) (air.Reading, error) {
		calls++
		if calls == 2 {
			return air.Reading{}, errors.New("ready signal not observed in time")
		}
		return air.Reading{Temperature: 21.5, Humidity: 40, AirPressure: 1000, Gas: 7}, nil
	})
	var posted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posted.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	w := &watcher{
		acquire:   sensor.Read,
		publisher: publish.NewIoTPlotter("1", "k", publish.WithBaseURL(srv.URL)),
		exporter:  publish.NewExporter(),
		device:    "mock",
		interval:  time.Hour,
	}
	ctx := context.Background()
	w.once(ctx)
	w.once(ctx)

	v, ok := gauge(t, w.exporter, "air_temperature")
	require.True(t, ok)
	assert.InDelta(t, 21.5, v, 0.001)
	v, ok = gauge(t, w.exporter, "air_read_errors_total")
	require.True(t, ok)
	assert.Equal(t, float64(1), v)
	assert.Equal(t, int32(1), posted.Load())
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var reads atomic.Int32
	sensor := air.NewMockAirSensor(func(ctx context.Context) (air.Reading, error) {
		if reads.Add(1) == 3 {
			cancel()
		}
		return air.Reading{}, nil
	})
	w := &watcher{
		acquire:  sensor.Read,
		exporter: publish.NewExporter(),
		device:   "mock",
		interval: time.Millisecond,
	}
	done := make(chan struct{})
	go func() {
		w.run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
	assert.Equal(t, int32(3), reads.Load())
}

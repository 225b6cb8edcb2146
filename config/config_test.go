package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/envsenso/air"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, air.DefaultProfile(), cfg.Profile())
	assert.Equal(t, "GPIO17", cfg.ReadyPin())
	assert.Equal(t, AdapterGeneric, cfg.ReadyAdapter())
	assert.Equal(t, 100*time.Millisecond, cfg.Ready.Interval)
	assert.Equal(t, time.Duration(0), cfg.Ready.Timeout)
	assert.Len(t, cfg.MonitorOpts(), 2)
}

func TestReadyPin(t *testing.T) {
	tests := []struct {
		bus, ready, pin string
		expected        string
	}{
		{AdapterGeneric, "", "", "GPIO17"},
		{AdapterRaspi, "", "", "11"},
		{AdapterNanoPi, "", "", "11"},
		{AdapterMCP2221, "", "", "1"},
		{AdapterMCP2221, AdapterGeneric, "", "GPIO17"},
		{AdapterRaspi, "", "13", "13"},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Bus.Adapter = tt.bus
		cfg.Ready.Adapter = tt.ready
		cfg.Ready.Pin = tt.pin
		assert.Equal(t, tt.expected, cfg.ReadyPin(), "%s/%s", tt.bus, tt.ready)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bus:
  adapter: raspi
  number: 0
ready:
  timeout: 5s
device:
  address: 0x72
  settle: 20ms
iotplotter:
  feed: "1234"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, AdapterRaspi, cfg.Bus.Adapter)
	assert.Equal(t, 0, cfg.Bus.Number)
	assert.Equal(t, 5*time.Second, cfg.Ready.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Ready.Interval, "defaults are kept")
	assert.Equal(t, Byte(0x72), cfg.Device.Address)
	assert.Equal(t, Byte(0xE2), cfg.Device.ResetCommand)
	assert.Equal(t, 20*time.Millisecond, cfg.Profile().SettleDelay)
	assert.Equal(t, "1234", cfg.IoTPlotter.Feed)
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"adapter":  "bus:\n  adapter: serial\n",
		"ready":    "ready:\n  adapter: bluetooth\n",
		"port":     "ready:\n  adapter: mcp23017\n  expander:\n    port: C\n",
		"bit":      "ready:\n  adapter: mcp23017\n  expander:\n    bit: 8\n",
		"interval": "ready:\n  interval: 0s\n",
		"address":  "device:\n  address: 0x80\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_BadByte(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  address: 0x1FF\n"), 0o600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "is not a byte value")
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Bus.Adapter = AdapterMCP2221
	cfg.Ready.Timeout = 3 * time.Second
	cfg.IoTPlotter.Key = "secret"
	require.NoError(t, Save(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "0x71")
	assert.Contains(t, string(raw), "timeout: 3s")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

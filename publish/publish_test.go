package publish

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/envsenso/air"
)

var reading = air.Reading{Temperature: 22.5, Humidity: 55.5, AirPressure: 1, Gas: 42}

func TestBody(t *testing.T) {
	body, err := Body(reading)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{
		"temperature":[{"value":22.5}],
		"humidity":[{"value":55.5}],
		"air_pressure":[{"value":1}],
		"gas":[{"value":42}]
	}}`, string(body))
}

func TestIoTPlotter_Publish(t *testing.T) {
	var got struct {
		path, method, key, contentType string
		body                           map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.method = r.Method
		got.key = r.Header.Get("api-key")
		got.contentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p := NewIoTPlotter("1234", "secret", WithBaseURL(srv.URL+"/api/v2/feed"))
	res, err := p.Publish(context.Background(), reading)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, "/api/v2/feed/1234", got.path)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "secret", got.key)
	assert.Equal(t, "application/json", got.contentType)
	assert.Contains(t, got.body, "data")
}

func TestIoTPlotter_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewIoTPlotter("1234", "wrong", WithBaseURL(srv.URL))
	res, err := p.Publish(context.Background(), reading)
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.ErrorContains(t, err, "403")
	assert.Contains(t, res, "invalid api key")
}

func TestIoTPlotter_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	p := NewIoTPlotter("1234", "key", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := p.Publish(context.Background(), reading)
	assert.ErrorIs(t, err, ErrPublishFailed)
}

func TestIoTPlotter_MissingFeed(t *testing.T) {
	_, err := NewIoTPlotter("", "key").Publish(context.Background(), reading)
	assert.ErrorIs(t, err, ErrPublishFailed)
}

func TestIoTPlotter_DefaultURL(t *testing.T) {
	assert.Equal(t, "http://iotplotter.com/api/v2/feed/42", NewIoTPlotter("42", "k").URL())
}

func TestExporter(t *testing.T) {
	e := NewExporter()
	e.Observe("0x71", reading)
	e.Failed("0x71")
	e.Failed("0x71")

	assert.InDelta(t, 22.5, testutil.ToFloat64(e.temperature.WithLabelValues("0x71")), 0.001)
	assert.InDelta(t, 55.5, testutil.ToFloat64(e.humidity.WithLabelValues("0x71")), 0.001)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.pressure.WithLabelValues("0x71")))
	assert.Equal(t, float64(42), testutil.ToFloat64(e.gas.WithLabelValues("0x71")))
	assert.Equal(t, float64(2), testutil.ToFloat64(e.readErrors.WithLabelValues("0x71")))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.readings.WithLabelValues("0x71")))

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()
	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() {
		_ = res.Body.Close()
	}()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `air_temperature{device="0x71"} 22.5`))
}

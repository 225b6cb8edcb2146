// Package publish ships air readings out of the process: to an iotplotter
// feed over HTTP and to Prometheus gauges.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mklimuk/envsenso/air"
)

const (
	DefaultBaseURL = "http://iotplotter.com/api/v2/feed/"
	DefaultTimeout = 10 * time.Second
)

var ErrPublishFailed = errors.New("publish failed")

type sample struct {
	Value float64 `json:"value"`
}

type feedData struct {
	Temperature []sample `json:"temperature"`
	Humidity    []sample `json:"humidity"`
	AirPressure []sample `json:"air_pressure"`
	Gas         []sample `json:"gas"`
}

type feedBody struct {
	Data feedData `json:"data"`
}

// Body renders the iotplotter request body for a reading.
func Body(r air.Reading) ([]byte, error) {
	return json.Marshal(feedBody{Data: feedData{
		Temperature: []sample{{Value: float64(r.Temperature)}},
		Humidity:    []sample{{Value: float64(r.Humidity)}},
		AirPressure: []sample{{Value: float64(r.AirPressure)}},
		Gas:         []sample{{Value: float64(r.Gas)}},
	}})
}

type IoTPlotterOpt func(*IoTPlotter)

func WithBaseURL(url string) IoTPlotterOpt {
	return func(p *IoTPlotter) {
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		p.baseURL = url
	}
}

// WithTimeout is ignored when a custom client is set afterwards.
func WithTimeout(timeout time.Duration) IoTPlotterOpt {
	return func(p *IoTPlotter) {
		p.client.Timeout = timeout
	}
}

func WithHTTPClient(client *http.Client) IoTPlotterOpt {
	return func(p *IoTPlotter) {
		p.client = client
	}
}

// IoTPlotter posts readings to a single iotplotter feed.
type IoTPlotter struct {
	client  *http.Client
	baseURL string
	feed    string
	key     string
}

func NewIoTPlotter(feed, key string, opts ...IoTPlotterOpt) *IoTPlotter {
	p := &IoTPlotter{
		client:  &http.Client{Timeout: DefaultTimeout},
		baseURL: DefaultBaseURL,
		feed:    feed,
		key:     key,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL of the feed endpoint.
func (p *IoTPlotter) URL() string {
	return p.baseURL + p.feed
}

// Publish sends the reading and returns the response body.
func (p *IoTPlotter) Publish(ctx context.Context, r air.Reading) (string, error) {
	if p.feed == "" {
		return "", fmt.Errorf("%w: feed id not set", ErrPublishFailed)
	}
	body, err := Body(r)
	if err != nil {
		return "", fmt.Errorf("could not encode reading: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("api-key", p.key)
	req.Header.Set("Content-Type", "application/json")
	slog.Debug("publishing reading", "url", p.URL(), "body", string(body))
	res, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("could not read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return string(resBody), fmt.Errorf("%w: status %s", ErrPublishFailed, res.Status)
	}
	return string(resBody), nil
}

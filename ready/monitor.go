// Package ready turns a digital ready line into a blocking wait primitive.
package ready

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/envsenso"
)

const DefaultPollInterval = 100 * time.Millisecond

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type MonitorOpts struct {
	PollInterval time.Duration
	// Timeout of 0 waits forever, which is what the device contract asks for.
	Timeout time.Duration
}

type MonitorOpt func(*MonitorOpts)

func WithPollInterval(interval time.Duration) MonitorOpt {
	return func(o *MonitorOpts) {
		o.PollInterval = interval
	}
}

func WithTimeout(timeout time.Duration) MonitorOpt {
	return func(o *MonitorOpts) {
		o.Timeout = timeout
	}
}

// Monitor polls a ready line until it reads low.
type Monitor struct {
	line   envsenso.ReadyLine
	config MonitorOpts
	sleep  SleepFunc
	now    func() time.Time
}

func NewMonitor(line envsenso.ReadyLine, opts ...MonitorOpt) *Monitor {
	config := MonitorOpts{
		PollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Monitor{
		line:   line,
		config: config,
		sleep:  Sleep,
		now:    time.Now,
	}
}

// WaitReady blocks until the line has been observed at the ready level.
// It fails with envsenso.ErrIOUnavailable when the line cannot be read and
// with envsenso.ErrTimeout when a timeout is configured and has elapsed.
func (m *Monitor) WaitReady(ctx context.Context) error {
	var deadline time.Time
	if m.config.Timeout > 0 {
		deadline = m.now().Add(m.config.Timeout)
	}
	for {
		ok, err := m.line.IsReady(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", envsenso.ErrIOUnavailable, err)
		}
		if ok {
			return nil
		}
		if !deadline.IsZero() && !m.now().Before(deadline) {
			return fmt.Errorf("%w: still busy after %s", envsenso.ErrTimeout, m.config.Timeout)
		}
		if err := m.sleep(ctx, m.config.PollInterval); err != nil {
			return err
		}
	}
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

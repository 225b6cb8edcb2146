package ready

import (
	"context"
	"sync/atomic"
)

// LineBehaviorFunc returns the current ready state of a simulated line.
type LineBehaviorFunc func(ctx context.Context) (bool, error)

// MockLine is a ready line driven by a behavior function, usable without any
// hardware attached.
//
// Example usage:
//
//	// Always ready
//	line := NewMockLine(func(ctx context.Context) (bool, error) { return true, nil })
//
//	// Busy for the first three polls
//	line := NewBusyLine(3)
type MockLine struct {
	behavior LineBehaviorFunc
	polls    atomic.Int64
}

func NewMockLine(behavior LineBehaviorFunc) *MockLine {
	return &MockLine{behavior: behavior}
}

// NewBusyLine returns a line that reports busy for the given number of polls
// and ready afterwards.
func NewBusyLine(busyPolls int) *MockLine {
	m := &MockLine{}
	m.behavior = func(ctx context.Context) (bool, error) {
		return m.polls.Load() > int64(busyPolls), nil
	}
	return m
}

func (m *MockLine) IsReady(ctx context.Context) (bool, error) {
	m.polls.Add(1)
	return m.behavior(ctx)
}

// Polls returns how many times the line has been read.
func (m *MockLine) Polls() int {
	return int(m.polls.Load())
}

func (m *MockLine) Close() error {
	return nil
}

package order

import (
	"context"
	"sync/atomic"
	"time"
)

const DefaultSlowModeDelay = 5 * time.Second

// SlowMode delays order listing while enabled. It is safe for concurrent use.
type SlowMode struct {
	enabled atomic.Bool
	delayMS atomic.Int64
}

func NewSlowMode() *SlowMode {
	m := &SlowMode{}
	m.delayMS.Store(DefaultSlowModeDelay.Milliseconds())
	return m
}

func (m *SlowMode) Set(enabled bool, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	m.delayMS.Store(delay.Milliseconds())
	m.enabled.Store(enabled)
}

func (m *SlowMode) Get() (enabled bool, delay time.Duration) {
	return m.enabled.Load(), time.Duration(m.delayMS.Load()) * time.Millisecond
}

// Wait blocks for the configured delay when enabled, or until ctx is done.
func (m *SlowMode) Wait(ctx context.Context) error {
	enabled, delay := m.Get()
	if !enabled || delay == 0 {
		return nil
	}

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package gputest provides an in-memory gpu.Device for tests.
package gputest

import (
	"context"
	"fmt"
	"sync"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/gpu"
)

// FakeDevice is a scripted gpu.Device. Each FetchVariables call publishes
// Next (or keeps the current readings when Next is nil) unless FetchErr is
// set. Set calls are recorded in order.
type FakeDevice struct {
	DeviceID   int
	DeviceName string

	mu        sync.Mutex
	constants gpu.Constants
	vars      gpu.Variables
	next      []gpu.Variables
	fetchErr  error
	fetchHook func(ctx context.Context) error
	fetches   int
	calls     []string
	ext       map[string]int
	observers gpu.Observers
}

// NewFakeDevice creates a device with the given readings.
func NewFakeDevice(id int, name string, vars gpu.Variables) *FakeDevice {
	return &FakeDevice{DeviceID: id, DeviceName: name, vars: vars, ext: map[string]int{}}
}

// QueueVariables makes the next FetchVariables calls publish vs in order.
func (d *FakeDevice) QueueVariables(vs ...gpu.Variables) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next = append(d.next, vs...)
}

// FailFetch makes FetchVariables return err. nil clears it.
func (d *FakeDevice) FailFetch(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetchErr = err
}

// OnFetch runs hook at the start of every FetchVariables. A non-nil
// result is returned as the fetch error.
func (d *FakeDevice) OnFetch(hook func(ctx context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetchHook = hook
}

// SetConstants replaces the constant readings.
func (d *FakeDevice) SetConstants(c gpu.Constants) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants = c
}

// SetExtended stores an extension reading.
func (d *FakeDevice) SetExtended(name string, v int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ext[name] = v
}

// Fetches returns how many FetchVariables calls were made.
func (d *FakeDevice) Fetches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fetches
}

// Calls returns the recorded set calls, e.g. "fan_control=true".
func (d *FakeDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *FakeDevice) ID() int            { return d.DeviceID }
func (d *FakeDevice) Identifier() string { return gpu.Identifier(d.DeviceID) }
func (d *FakeDevice) Name() string       { return d.DeviceName }
func (d *FakeDevice) Vendor() string     { return gpu.VendorNVIDIA }

func (d *FakeDevice) FetchConstants(ctx context.Context) error { return nil }

func (d *FakeDevice) FetchVariables(ctx context.Context) error {
	d.mu.Lock()
	d.fetches++
	hook := d.fetchHook
	d.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}

	d.mu.Lock()
	if d.fetchErr != nil {
		err := d.fetchErr
		d.mu.Unlock()
		return err
	}
	if len(d.next) > 0 {
		d.vars = d.next[0]
		d.next = d.next[1:]
	}
	d.mu.Unlock()

	d.observers.Notify(d)
	return nil
}

func (d *FakeDevice) Constants() gpu.Constants {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.constants
}

func (d *FakeDevice) Variables() gpu.Variables {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vars
}

func (d *FakeDevice) FanControlAvailable() bool { return true }

func (d *FakeDevice) FanControlEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vars.FanControlEnabled
}

func (d *FakeDevice) CoreClockControlAvailable() bool   { return false }
func (d *FakeDevice) CoreClockControlEnabled() bool     { return false }
func (d *FakeDevice) MemoryClockControlAvailable() bool { return false }
func (d *FakeDevice) MemoryClockControlEnabled() bool   { return false }

func (d *FakeDevice) SetFanControlEnabled(ctx context.Context, enabled bool) error {
	d.mu.Lock()
	d.calls = append(d.calls, fmt.Sprintf("fan_control=%t", enabled))
	d.vars.FanControlEnabled = enabled
	d.mu.Unlock()
	return nil
}

func (d *FakeDevice) SetFanSpeed(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return errors.New(errors.ErrAttribute, fmt.Sprintf("Fan speed %d%% is out of range", percent), "Use a value between 0 and 100.")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.vars.FanControlEnabled {
		return nil
	}
	d.calls = append(d.calls, fmt.Sprintf("fan_speed=%d", percent))
	d.vars.FanSpeed = percent
	return nil
}

func (d *FakeDevice) Extended(name string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.ext[name]
	return v, ok
}

func (d *FakeDevice) Subscribe(fn func(gpu.Device)) func() {
	return d.observers.Subscribe(fn)
}

var _ gpu.Device = (*FakeDevice)(nil)

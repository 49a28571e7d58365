// Package tweak holds pending control edits for one device until they are
// applied or reset.
package tweak

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/gputweak/gputweak/internal/gpu"
)

// Defaults used by Reset. Clock values are placeholders until clock control
// is supported by a device.
const (
	DefaultFanSpeed    = 60
	DefaultCoreClock   = 300
	DefaultMemoryClock = 500
)

// Settings are the editable values.
type Settings struct {
	FanManual         bool
	FanSpeed          int
	CoreClockManual   bool
	CoreClock         int
	MemoryClockManual bool
	MemoryClock       int
}

// Defaults returns automatic control everywhere with placeholder values.
func Defaults() Settings {
	return Settings{
		FanSpeed:    DefaultFanSpeed,
		CoreClock:   DefaultCoreClock,
		MemoryClock: DefaultMemoryClock,
	}
}

// Pending tracks edits for one device.
type Pending struct {
	device gpu.Device

	mu       sync.Mutex
	settings Settings
	dirty    bool
}

// New starts from the device's current state: if manual fan control is
// already on, its current speed is the starting value.
func New(d gpu.Device) *Pending {
	s := Defaults()
	s.CoreClockManual = d.CoreClockControlEnabled()
	s.MemoryClockManual = d.MemoryClockControlEnabled()
	if d.FanControlEnabled() {
		s.FanManual = true
		s.FanSpeed = d.Variables().FanSpeed
	}
	return &Pending{device: d, settings: s}
}

// Device returns the edited device.
func (p *Pending) Device() gpu.Device { return p.device }

// Settings returns the pending values.
func (p *Pending) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Dirty reports whether there are unapplied edits.
func (p *Pending) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// FanEditable reports whether the fan speed value can be edited right now.
func (p *Pending) FanEditable() bool {
	if !p.device.FanControlAvailable() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings.FanManual
}

// SetFanSpeed clamps v to 0..100. It reports whether the value changed.
func (p *Pending) SetFanSpeed(v int) bool {
	v = Clamp(v)
	p.mu.Lock()
	defer p.mu.Unlock()
	if v == p.settings.FanSpeed {
		return false
	}
	p.settings.FanSpeed = v
	p.dirty = true
	return true
}

// SetFanSpeedText parses typed input the way a numeric text box does:
// anything that isn't an integer counts as 0.
func (p *Pending) SetFanSpeedText(text string) bool {
	v, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%")))
	if err != nil {
		v = 0
	}
	return p.SetFanSpeed(v)
}

// SetFanManual switches between manual and automatic fan control. It
// reports whether the value changed.
func (p *Pending) SetFanManual(manual bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if manual == p.settings.FanManual {
		return false
	}
	p.settings.FanManual = manual
	p.dirty = true
	return true
}

// Reset restores Defaults and marks the edits dirty, so applying hands fan
// control back to the driver.
func (p *Pending) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = Defaults()
	p.dirty = true
}

// Apply pushes the pending values to the device. It does nothing when
// there are no edits. On failure the edits stay pending.
func (p *Pending) Apply(ctx context.Context) error {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return nil
	}
	s := p.settings
	p.mu.Unlock()

	if p.device.FanControlAvailable() {
		if s.FanManual {
			if err := p.device.SetFanControlEnabled(ctx, true); err != nil {
				return err
			}
			if err := p.device.SetFanSpeed(ctx, s.FanSpeed); err != nil {
				return err
			}
		} else if err := p.device.SetFanControlEnabled(ctx, false); err != nil {
			return err
		}
	}

	p.mu.Lock()
	if p.settings == s {
		p.dirty = false
	}
	p.mu.Unlock()
	return nil
}

// Clamp limits a fan speed to 0..100.
func Clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

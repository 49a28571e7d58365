// Package gpu defines the vendor-neutral device abstraction: cached constant
// and variable readings, control predicates, mutators, and the change
// notification raised after each successful refresh.
package gpu

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Vendor names reported by Device.Vendor.
const (
	VendorNVIDIA = "nvidia"
)

// Extension names for Device.Extended.
const (
	ExtCUDACores = "cuda_cores"
)

// Constants are read once per device.
type Constants struct {
	DriverVersion        string
	PCIeMaxLinkWidth     int
	PCIeCurrentLinkWidth int
	PCIeGen              int
	PCIBus               int
	PCIDevice            int
	PCIFunc              int
	TotalMemoryMB        int
}

// BusType renders the link as "PCI-E x<max> Gen<gen> @ x<current>".
func (c Constants) BusType() string {
	return fmt.Sprintf("PCI-E x%d Gen%d @ x%d", c.PCIeMaxLinkWidth, c.PCIeGen, c.PCIeCurrentLinkWidth)
}

// BusID renders the PCI address as "PCI:<bus>:<device>:<function>".
func (c Constants) BusID() string {
	return fmt.Sprintf("PCI:%d:%d:%d", c.PCIBus, c.PCIDevice, c.PCIFunc)
}

// Variables are the readings replaced on every refresh.
type Variables struct {
	CoreTemp          int // °C
	FanSpeed          int // percent
	CoreClock         int // MHz
	MemoryClock       int // MHz
	CoreUse           int // percent
	MemoryUse         int // percent
	FanControlEnabled bool
	UpdatedAt         time.Time
}

// Device is one physical GPU. Implementations cache readings between
// refreshes; getters never run the external tool.
type Device interface {
	ID() int
	Identifier() string
	Name() string
	Vendor() string

	// FetchConstants loads the constant readings. It is a no-op once a load
	// has succeeded. Missing or malformed attributes store zero.
	FetchConstants(ctx context.Context) error
	// FetchVariables refreshes the variable readings and notifies
	// subscribers exactly once. When the tool cannot be run the previous
	// readings are kept, nobody is notified, and the error is returned.
	FetchVariables(ctx context.Context) error

	Constants() Constants
	Variables() Variables

	FanControlAvailable() bool
	FanControlEnabled() bool
	CoreClockControlAvailable() bool
	CoreClockControlEnabled() bool
	MemoryClockControlAvailable() bool
	MemoryClockControlEnabled() bool

	// SetFanControlEnabled switches between manual and automatic fan
	// control, then refreshes the variables.
	SetFanControlEnabled(ctx context.Context, enabled bool) error
	// SetFanSpeed sets the fan duty cycle in percent, then refreshes the
	// variables. It does nothing unless manual fan control is enabled.
	SetFanSpeed(ctx context.Context, percent int) error

	// Extended returns a vendor-specific reading such as ExtCUDACores.
	// Devices without the reading report false.
	Extended(name string) (int, bool)

	// Subscribe registers fn for change notifications and returns a
	// function that removes it.
	Subscribe(fn func(Device)) (cancel func())
}

const identifierPrefix = "gpu:"

// Identifier renders a device index as "gpu:<n>".
func Identifier(id int) string {
	return identifierPrefix + strconv.Itoa(id)
}

// ParseIdentifier accepts "3" or "gpu:3".
func ParseIdentifier(s string) (int, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(s, identifierPrefix)
	id, err := strconv.Atoi(digits)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid GPU %q: want an index like 0 or gpu:0", s)
	}
	return id, nil
}

// Find returns the device with the given index.
func Find(devices []Device, id int) (Device, bool) {
	for _, d := range devices {
		if d.ID() == id {
			return d, true
		}
	}
	return nil, false
}

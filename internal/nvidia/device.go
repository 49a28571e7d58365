package nvidia

import (
	"context"
	"fmt"
	"sync"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/gpu"
)

// GPU is a gpu.Device backed by nvidia-settings.
type GPU struct {
	adapter *Adapter
	id      int
	name    string

	mu              sync.RWMutex
	constants       gpu.Constants
	cudaCores       int
	constantsLoaded bool
	vars            gpu.Variables

	observers gpu.Observers
}

var _ gpu.Device = (*GPU)(nil)

// NewGPU creates a device without querying it.
func NewGPU(a *Adapter, id int, name string) *GPU {
	return &GPU{adapter: a, id: id, name: name}
}

func (g *GPU) ID() int            { return g.id }
func (g *GPU) Identifier() string { return gpu.Identifier(g.id) }
func (g *GPU) Name() string       { return g.name }
func (g *GPU) Vendor() string     { return gpu.VendorNVIDIA }

func (g *GPU) attr(name string) AttributePath { return GPUAttr(g.id, name) }

// FetchConstants implements gpu.Device. Attributes the GPU does not report
// read as zero. The first invocation failure aborts the load so a missing
// tool costs one timeout, not nine.
func (g *GPU) FetchConstants(ctx context.Context) error {
	g.mu.RLock()
	loaded := g.constantsLoaded
	g.mu.RUnlock()
	if loaded {
		return nil
	}

	var c gpu.Constants
	version, _, err := g.adapter.read(ctx, g.attr(AttrDriverVersion))
	if err != nil {
		return g.wrap(err, "constants")
	}
	c.DriverVersion = version

	ints := []struct {
		name string
		dst  *int
	}{
		{AttrPCIeMaxLinkWidth, &c.PCIeMaxLinkWidth},
		{AttrPCIeCurrentLinkWidth, &c.PCIeCurrentLinkWidth},
		{AttrPCIeGen, &c.PCIeGen},
		{AttrPCIBus, &c.PCIBus},
		{AttrPCIDevice, &c.PCIDevice},
		{AttrPCIFunc, &c.PCIFunc},
		{AttrTotalMemory, &c.TotalMemoryMB},
	}
	for _, f := range ints {
		if *f.dst, err = g.adapter.readInt(ctx, g.attr(f.name)); err != nil {
			return g.wrap(err, "constants")
		}
	}
	cores, err := g.adapter.readInt(ctx, g.attr(AttrCUDACores))
	if err != nil {
		return g.wrap(err, "constants")
	}

	g.mu.Lock()
	g.constants = c
	g.cudaCores = cores
	g.constantsLoaded = true
	g.mu.Unlock()
	return nil
}

// FetchVariables implements gpu.Device.
func (g *GPU) FetchVariables(ctx context.Context) error {
	a := g.adapter
	var v gpu.Variables
	var err error

	if v.CoreTemp, err = a.readInt(ctx, g.attr(AttrCoreTemp)); err != nil {
		return g.wrap(err, "readings")
	}

	freqsPath := g.attr(AttrClockFreqs)
	freqs, ok, err := a.read(ctx, freqsPath)
	if err != nil {
		return g.wrap(err, "readings")
	}
	if ok {
		v.CoreClock = a.compoundOrZero(freqsPath, freqs, KeyCoreClock)
		v.MemoryClock = a.compoundOrZero(freqsPath, freqs, KeyMemoryClock)
	}

	usePath := g.attr(AttrUtilization)
	use, ok, err := a.read(ctx, usePath)
	if err != nil {
		return g.wrap(err, "readings")
	}
	if ok {
		v.CoreUse = a.compoundOrZero(usePath, use, KeyCoreUse)
		v.MemoryUse = a.compoundOrZero(usePath, use, KeyMemoryUse)
	}

	if v.FanSpeed, err = a.readInt(ctx, FanAttr(g.id, AttrFanSpeed)); err != nil {
		return g.wrap(err, "readings")
	}

	state, err := a.readInt(ctx, g.attr(AttrFanControlState))
	if err != nil {
		return g.wrap(err, "readings")
	}
	v.FanControlEnabled = state == 1
	v.UpdatedAt = a.now()

	g.mu.Lock()
	g.vars = v
	g.mu.Unlock()

	g.observers.Notify(g)
	return nil
}

func (g *GPU) wrap(err error, what string) error {
	return errors.WrapWithCode(err, errors.CodeOrDefault(err, errors.ErrExec),
		fmt.Sprintf("Couldn't read %s %s", g.Identifier(), what),
		"Check the tool works by hand: nvidia-settings -q gpus")
}

// Constants implements gpu.Device.
func (g *GPU) Constants() gpu.Constants {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.constants
}

// Variables implements gpu.Device.
func (g *GPU) Variables() gpu.Variables {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.vars
}

// FanControlAvailable is always true: nvidia-settings does not report
// whether the board accepts manual fan control.
func (g *GPU) FanControlAvailable() bool { return true }

func (g *GPU) FanControlEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.vars.FanControlEnabled
}

// Clock offsets are not exposed through the driver yet.
func (g *GPU) CoreClockControlAvailable() bool   { return false }
func (g *GPU) CoreClockControlEnabled() bool     { return false }
func (g *GPU) MemoryClockControlAvailable() bool { return false }
func (g *GPU) MemoryClockControlEnabled() bool   { return false }

// SetFanControlEnabled implements gpu.Device. The variables are re-read
// even when the assignment fails so the cached state matches the driver.
func (g *GPU) SetFanControlEnabled(ctx context.Context, enabled bool) error {
	state := 0
	if enabled {
		state = 1
	}
	setErr := g.adapter.SetInt(ctx, g.attr(AttrFanControlState), state)
	fetchErr := g.FetchVariables(ctx)
	if setErr != nil {
		return setErr
	}
	return fetchErr
}

// SetFanSpeed implements gpu.Device. Values outside 0..100 are rejected
// before anything runs.
func (g *GPU) SetFanSpeed(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return errors.New(errors.ErrAttribute,
			fmt.Sprintf("Fan speed %d%% is out of range", percent),
			"Use a value between 0 and 100.")
	}
	if !g.FanControlEnabled() {
		return nil
	}
	setErr := g.adapter.SetInt(ctx, FanAttr(g.id, AttrFanSpeed), percent)
	fetchErr := g.FetchVariables(ctx)
	if setErr != nil {
		return setErr
	}
	return fetchErr
}

// Extended implements gpu.Device.
func (g *GPU) Extended(name string) (int, bool) {
	switch name {
	case gpu.ExtCUDACores:
		g.mu.RLock()
		defer g.mu.RUnlock()
		return g.cudaCores, g.constantsLoaded
	}
	return 0, false
}

// Subscribe implements gpu.Device.
func (g *GPU) Subscribe(fn func(gpu.Device)) func() {
	return g.observers.Subscribe(fn)
}

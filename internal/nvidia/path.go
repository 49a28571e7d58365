package nvidia

import "fmt"

// Attribute scopes understood by nvidia-settings.
const (
	ScopeGPU = "gpu"
	ScopeFan = "fan"
)

// Attribute names queried or assigned by this package.
const (
	AttrDriverVersion        = "NvidiaDriverVersion"
	AttrPCIeMaxLinkWidth     = "PCIEMaxLinkWidth"
	AttrPCIeCurrentLinkWidth = "PCIECurrentLinkWidth"
	AttrPCIeGen              = "PCIEGen"
	AttrPCIBus               = "PCIBus"
	AttrPCIDevice            = "PCIDevice"
	AttrPCIFunc              = "PCIFunc"
	AttrTotalMemory          = "TotalDedicatedGPUMemory"
	AttrCUDACores            = "CUDACores"

	AttrCoreTemp        = "GPUCoreTemp"
	AttrClockFreqs      = "GPUCurrentClockFreqsString"
	AttrUtilization     = "GPUUtilization"
	AttrFanSpeed        = "GPUCurrentFanSpeed"
	AttrFanControlState = "GPUFanControlState"
)

// Keys inside compound values.
const (
	KeyCoreClock   = "nvclock"
	KeyMemoryClock = "memclock"
	KeyCoreUse     = "graphics"
	KeyMemoryUse   = "memory"
)

// AttributePath addresses one attribute of one target, e.g. [gpu:0]/GPUCoreTemp.
type AttributePath struct {
	Scope string
	ID    int
	Name  string
}

// GPUAttr addresses a GPU-scoped attribute.
func GPUAttr(id int, name string) AttributePath {
	return AttributePath{Scope: ScopeGPU, ID: id, Name: name}
}

// FanAttr addresses a fan-scoped attribute.
func FanAttr(id int, name string) AttributePath {
	return AttributePath{Scope: ScopeFan, ID: id, Name: name}
}

func (p AttributePath) String() string {
	return fmt.Sprintf("[%s:%d]/%s", p.Scope, p.ID, p.Name)
}

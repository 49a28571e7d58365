package nvidia

import (
	"fmt"
	"time"

	"github.com/gputweak/gputweak/internal/exec/exectest"
	"github.com/gputweak/gputweak/internal/logger"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAdapter(f *exectest.FakeRunner, log logger.Logger, opts ...Option) *Adapter {
	opts = append([]Option{WithLogger(log), WithClock(func() time.Time { return testNow })}, opts...)
	return NewAdapter(f, opts...)
}

// scriptGPU answers every query a healthy device makes.
func scriptGPU(f *exectest.FakeRunner, id int) {
	q := func(name, value string) {
		f.OnQuery(GPUAttr(id, name).String(), value)
	}
	q(AttrDriverVersion, "470.82.00")
	q(AttrPCIeMaxLinkWidth, "16")
	q(AttrPCIeCurrentLinkWidth, "8")
	q(AttrPCIeGen, "3")
	q(AttrPCIBus, fmt.Sprint(id+1))
	q(AttrPCIDevice, "0")
	q(AttrPCIFunc, "0")
	q(AttrTotalMemory, "8192")
	q(AttrCUDACores, "2560")

	q(AttrCoreTemp, "54")
	q(AttrClockFreqs, clockFreqs)
	q(AttrUtilization, "graphics=37, memory=12, video=0, PCIe=1")
	q(AttrFanControlState, "0")
	f.OnQuery(FanAttr(id, AttrFanSpeed).String(), "42")
}

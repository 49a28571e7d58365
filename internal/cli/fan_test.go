package cli

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec/exectest"
	"github.com/gputweak/gputweak/internal/gpu"
	"github.com/gputweak/gputweak/internal/gpu/gputest"
	"github.com/gputweak/gputweak/internal/tweak"
)

func TestParseFanArg(t *testing.T) {
	tests := []struct {
		arg        string
		wantManual bool
		wantSpeed  int
		wantErr    bool
	}{
		{"auto", false, 0, false},
		{" AUTO ", false, 0, false},
		{"70", true, 70, false},
		{"70%", true, 70, false},
		{"0", true, 0, false},
		{"100", true, 100, false},
		{"101", false, 0, true},
		{"-5", false, 0, true},
		{"fast", false, 0, true},
		{"", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			manual, speed, err := parseFanArg(tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantManual, manual)
			assert.Equal(t, tt.wantSpeed, speed)
		})
	}
}

func TestFanCommand_NvidiaSettings(t *testing.T) {
	tests := []struct {
		name            string
		fanState        string
		manual          bool
		speed           int
		wantAssignments []string
		wantOutput      string
	}{
		{
			name:     "new speed while manual",
			fanState: "1",
			manual:   true,
			speed:    70,
			wantAssignments: []string{
				"-a [gpu:0]/GPUFanControlState=1",
				"-a [fan:0]/GPUCurrentFanSpeed=70",
			},
			wantOutput: "gpu:0 fan set to 70%",
		},
		{
			name:            "back to automatic",
			fanState:        "1",
			manual:          false,
			wantAssignments: []string{"-a [gpu:0]/GPUFanControlState=0"},
			wantOutput:      "gpu:0 fan on automatic control",
		},
		{
			name:       "already automatic",
			fanState:   "0",
			manual:     false,
			wantOutput: "gpu:0 fan is already on automatic control",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := exectest.New()
			scriptList(f, "GeForce GTX 1080")
			scriptGPU(f, 0, tt.fanState)
			s, out := newTestSession(t, f)

			d, err := s.device(context.Background(), "0")
			require.NoError(t, err)

			require.NoError(t, fanCommand(context.Background(), s, d, tt.manual, tt.speed))

			assert.Equal(t, tt.wantAssignments, f.Assignments())
			assert.Contains(t, plain(out.String()), tt.wantOutput)
		})
	}
}

func TestFanCommand_FakeDevice(t *testing.T) {
	d := gputest.NewFakeDevice(1, "GeForce RTX 3090", gpu.Variables{FanSpeed: 35})
	s, out := newTestSession(t, exectest.New())

	require.NoError(t, fanCommand(context.Background(), s, d, true, 80))

	assert.Equal(t, []string{"fan_control=true", "fan_speed=80"}, d.Calls())
	assert.Contains(t, plain(out.String()), "gpu:1 fan set to 80% (now 80%)")
}

func TestFanCommand_Errors(t *testing.T) {
	t.Run("read fails", func(t *testing.T) {
		d := gputest.NewFakeDevice(0, "GeForce GTX 1080", gpu.Variables{})
		d.FailFetch(errors.New(errors.ErrExec, "Couldn't read gpu:0 readings", ""))
		s, _ := newTestSession(t, exectest.New())

		err := fanCommand(context.Background(), s, d, true, 50)

		require.Error(t, err)
		assert.Empty(t, d.Calls())
	})

	t.Run("assignment fails", func(t *testing.T) {
		f := exectest.New()
		scriptList(f, "GeForce GTX 1080")
		scriptGPU(f, 0, "0")
		f.On("-a [gpu:0]/GPUFanControlState=1", exectest.Response{ExitCode: 1, Stderr: "ERROR: Error assigning value"})
		s, _ := newTestSession(t, f)

		d, err := s.device(context.Background(), "0")
		require.NoError(t, err)

		err = fanCommand(context.Background(), s, d, true, 50)

		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrExec))
		var structured *errors.Error
		require.True(t, stderrors.As(err, &structured))
		assert.Contains(t, structured.Suggestion, "Coolbits")
	})
}

func TestValidateFanSpeed(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"60", false},
		{" 60% ", false},
		{"0", false},
		{"100", false},
		{"150", true},
		{"-1", true},
		{"sixty", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := validateFanSpeed(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFinishTweak(t *testing.T) {
	tests := []struct {
		name       string
		vars       gpu.Variables
		choice     string
		manual     bool
		speed      string
		wantCalls  []string
		wantOutput string
	}{
		{
			name:       "apply manual speed",
			choice:     tweakApply,
			manual:     true,
			speed:      "75",
			wantCalls:  []string{"fan_control=true", "fan_speed=75"},
			wantOutput: "Applied to gpu:0: fan set to 75%",
		},
		{
			name:       "nothing changed",
			choice:     tweakApply,
			manual:     false,
			speed:      "60",
			wantOutput: "Nothing to apply.",
		},
		{
			name:       "reset hands control back",
			vars:       gpu.Variables{FanControlEnabled: true, FanSpeed: 90},
			choice:     tweakReset,
			wantCalls:  []string{"fan_control=false"},
			wantOutput: "Applied to gpu:0: fan on automatic control",
		},
		{
			name:       "cancel",
			choice:     tweakCancel,
			manual:     true,
			speed:      "75",
			wantOutput: "Cancelled.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gputest.NewFakeDevice(0, "GeForce GTX 1080", tt.vars)
			s, out := newTestSession(t, exectest.New())
			p := tweak.New(d)

			err := finishTweak(context.Background(), s, p, tt.choice, tt.manual, tt.speed)

			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, d.Calls())
			assert.Contains(t, plain(out.String()), tt.wantOutput)
		})
	}
}

func TestNewTweakForm_StartsFromDevice(t *testing.T) {
	f := exectest.New()
	scriptList(f, "GeForce GTX 1080")
	scriptGPU(f, 0, "1")
	s, _ := newTestSession(t, f)

	d, err := s.device(context.Background(), "0")
	require.NoError(t, err)
	require.NoError(t, d.FetchVariables(context.Background()))

	form, answers := newTweakForm(tweak.New(d))

	require.NotNil(t, form)
	assert.True(t, answers.manual)
	assert.Equal(t, "42", answers.speed)
	assert.Equal(t, tweakApply, answers.choice)
}

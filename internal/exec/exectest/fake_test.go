package exectest

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeRunner_ScriptedResponses(t *testing.T) {
	f := New().
		On("-q gpus", Response{Stdout: "[gpu:0] (GeForce GTX 1080)\n"}).
		OnQuery("[gpu:0]/GPUCoreTemp", "54")

	res, err := f.Run(context.Background(), "nvidia-settings", "-q", "gpus")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "GeForce GTX 1080")

	res, err = f.Run(context.Background(), "nvidia-settings", "-t", "-q", "[gpu:0]/GPUCoreTemp")
	require.NoError(t, err)
	assert.Equal(t, "54\n", res.Stdout)

	assert.Equal(t, []string{"-q gpus", "-t -q [gpu:0]/GPUCoreTemp"}, f.CallLines())
	assert.Equal(t, "nvidia-settings -q gpus", f.Calls()[0].String())
}

func TestFakeRunner_UnscriptedAndFallback(t *testing.T) {
	f := New()

	res, err := f.Run(context.Background(), "tool", "anything")
	require.NoError(t, err)
	assert.Empty(t, res.Stdout)

	boom := stderrors.New("boom")
	f.Fallback(Response{Err: boom})
	_, err = f.Run(context.Background(), "tool", "anything")
	assert.ErrorIs(t, err, boom)
}

func TestFakeRunner_HangRespectsContext(t *testing.T) {
	f := New().On("-q gpus", Response{Hang: true})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Run(ctx, "nvidia-settings", "-q", "gpus")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
}

func TestFakeRunner_Assignments(t *testing.T) {
	f := New()

	_, _ = f.Run(context.Background(), "nvidia-settings", "-t", "-q", "[gpu:0]/GPUCoreTemp")
	_, _ = f.Run(context.Background(), "nvidia-settings", "-a", "[gpu:0]/GPUFanControlState=1")
	_, _ = f.Run(context.Background(), "nvidia-settings", "-c", ":0", "-a", "[fan:0]/GPUTargetFanSpeed=70")

	assert.Equal(t, []string{
		"-a [gpu:0]/GPUFanControlState=1",
		"-c :0 -a [fan:0]/GPUTargetFanSpeed=70",
	}, f.Assignments())

	f.Reset()
	assert.Empty(t, f.Calls())
}

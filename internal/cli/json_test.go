package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/exec"
	"github.com/gputweak/gputweak/internal/nvidia"
	"github.com/gputweak/gputweak/pkg/sshutil"
)

func TestWriteJSONSuccess(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteJSONSuccess(&buf, map[string]string{"key": "value"}))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	dataMap, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", dataMap["key"])
}

func TestWriteJSONFromError(t *testing.T) {
	var buf bytes.Buffer

	err := errors.New(errors.ErrSSH, "Couldn't connect to gpu-box", "Check the host is up")
	require.NoError(t, WriteJSONFromError(&buf, err))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeSSHConnectionFail, env.Error.Code)
	assert.Equal(t, "Couldn't connect to gpu-box", env.Error.Message)
	assert.Equal(t, "Check the host is up", env.Error.Suggestion)
}

func TestErrorToJSON_Codes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config not found", errors.New(errors.ErrConfig, "Specified config file not found: x.yaml", ""), ErrCodeConfigNotFound},
		{"config invalid", errors.New(errors.ErrConfig, "poll.interval must be positive", ""), ErrCodeConfigInvalid},
		{"ssh", errors.New(errors.ErrSSH, "dial failed", ""), ErrCodeSSHConnectionFail},
		{"exec", errors.New(errors.ErrExec, "exited with status 1", ""), ErrCodeCommandFailed},
		{"timeout", errors.WrapWithCode(context.DeadlineExceeded, errors.ErrExec, "'nvidia-settings -q gpus' didn't finish after 5s", ""), ErrCodeCommandTimeout},
		{"tool missing", exec.ExitError("nvidia-settings -q gpus", exec.Result{ExitCode: 127, Stderr: "sh: nvidia-settings: command not found"}), ErrCodeToolNotFound},
		{"no gpus", nvidia.NoGPUsError("nvidia-settings"), ErrCodeNoGPUs},
		{"unknown gpu", errors.New(errors.ErrDiscovery, "There is no gpu:3 on local", "Available GPUs: gpu:0"), ErrCodeGPUNotFound},
		{"attribute", errors.New(errors.ErrAttribute, "Fan speed 120% is out of range", ""), ErrCodeAttributeInvalid},
		{"parse", errors.New(errors.ErrParse, "Expected an integer", ""), ErrCodeParseFailed},
		{"wrapped", fmt.Errorf("context: %w", errors.New(errors.ErrExec, "failed", "")), ErrCodeCommandFailed},
		{"plain", stderrors.New("boom"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorToJSON(tt.err).Code)
		})
	}
}

func TestErrorToJSON_Nil(t *testing.T) {
	assert.Nil(t, ErrorToJSON(nil))
}

func TestErrorToJSON_AttributeNotFound(t *testing.T) {
	_, err := nvidia.ParseCompound("graphics=37, memory=12", "encoder")

	got := ErrorToJSON(err)

	assert.Equal(t, ErrCodeAttributeMissing, got.Code)
	details, ok := got.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "encoder", details["key"])
	assert.Equal(t, "graphics=37, memory=12", details["value"])
}

func TestErrorToJSON_HostKeyMismatch(t *testing.T) {
	err := errors.WrapWithCode(&sshutil.HostKeyMismatchError{Hostname: "gpu-box:22", ReceivedType: "ssh-ed25519"},
		errors.ErrSSH, "Couldn't connect to gpu-box", "")

	got := ErrorToJSON(err)

	assert.Equal(t, ErrCodeSSHHostKey, got.Code)
	assert.Contains(t, got.Message, "gpu-box")
	assert.NotEmpty(t, got.Suggestion)
	details, ok := got.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "gpu-box:22", details["host"])
}

func TestJSONFailure(t *testing.T) {
	var buf bytes.Buffer
	cause := errors.New(errors.ErrDiscovery, "No GPUs", "")

	err := jsonFailure(&buf, cause)

	var silent errSilent
	require.True(t, stderrors.As(err, &silent))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, buf.String(), `"code": "NO_GPUS"`)
}

package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrSSH,
		ErrExec,
		ErrDiscovery,
		ErrAttribute,
		ErrParse,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration in .gputweak.yaml",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "discovery error",
			code:       ErrDiscovery,
			message:    "No GPUs found",
			suggestion: "Run 'gputweak doctor'",
		},
		{
			name:       "exec error",
			code:       ErrExec,
			message:    "nvidia-settings timed out",
			suggestion: "Raise tool.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
		notExpected   []string
	}{
		{
			name:          "basic error formatting",
			err:           New(ErrConfig, "Invalid configuration", "Check .gputweak.yaml syntax"),
			expectedParts: []string{"Invalid configuration", "Check .gputweak.yaml syntax"},
		},
		{
			name:          "error with failure symbol",
			err:           New(ErrSSH, "Connection failed", "Try again"),
			expectedParts: []string{"✗", "Connection failed"},
		},
		{
			name:          "error with cause",
			err:           WrapWithCode(errors.New("exit status 1"), ErrExec, "Command failed", ""),
			expectedParts: []string{"Command failed", "exit status 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()

			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part)
			}
			for _, part := range tt.notExpected {
				assert.NotContains(t, output, part)
			}
		})
	}
}

func TestErrorMessageStructure(t *testing.T) {
	err := WrapWithCode(
		errors.New("signal: killed"),
		ErrExec,
		"nvidia-settings didn't finish in time",
		"Run: gputweak doctor",
	)

	lines := strings.Split(err.Error(), "\n")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "✗"))
	assert.Contains(t, lines[0], "nvidia-settings didn't finish in time")
}

func TestWrap(t *testing.T) {
	cause := errors.New("exec: not found")
	wrapped := Wrap(cause, "Couldn't run nvidia-settings")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrExec, wrapped.Code, "Wrap should default to ErrExec code")
	assert.Equal(t, cause, wrapped.Cause)
}

func TestErrorsIsAndAs(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := WrapWithCode(cause, ErrExec, "Execution failed", "")

	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, cause, wrapped.Unwrap())

	var gtErr *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", wrapped), &gtErr))
	assert.Equal(t, ErrExec, gtErr.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrConfig, "Config error", "")

	assert.True(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(err, ErrSSH))
	assert.False(t, IsCode(errors.New("standard error"), ErrConfig))
	assert.False(t, IsCode(nil, ErrConfig))
}

func TestIsCode_SearchesChain(t *testing.T) {
	inner := New(ErrExec, "nvidia-settings timed out", "")
	outer := WrapWithCode(inner, ErrAttribute, "Couldn't read GPUCoreTemp", "")

	assert.True(t, IsCode(outer, ErrAttribute))
	assert.True(t, IsCode(outer, ErrExec))
	assert.False(t, IsCode(outer, ErrParse))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrParse, CodeOf(New(ErrParse, "bad", "")))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestCodeOrDefault(t *testing.T) {
	assert.Equal(t, ErrSSH, CodeOrDefault(New(ErrSSH, "lost", ""), ErrExec))
	assert.Equal(t, ErrExec, CodeOrDefault(errors.New("plain"), ErrExec))
}

func TestHeadline(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("  boom \n"), "boom"},
		{"structured", New(ErrExec, "Command failed", "try again"), "Command failed"},
		{
			"structured with cause",
			WrapWithCode(New(ErrExec, "timed out", ""), ErrAttribute, "Couldn't read GPUCoreTemp", ""),
			"Couldn't read GPUCoreTemp: timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Headline(tt.err))
		})
	}
}

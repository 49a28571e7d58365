package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/nvidia"
	"github.com/gputweak/gputweak/pkg/sshutil"
)

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeSSHHostKey        = "SSH_HOST_KEY"
	ErrCodeSSHConnectionFail = "SSH_CONNECTION_FAILED"
	ErrCodeCommandFailed     = "COMMAND_FAILED"
	ErrCodeCommandTimeout    = "COMMAND_TIMEOUT"
	ErrCodeToolNotFound      = "TOOL_NOT_FOUND"
	ErrCodeNoGPUs            = "NO_GPUS"
	ErrCodeGPUNotFound       = "GPU_NOT_FOUND"
	ErrCodeAttributeMissing  = "ATTRIBUTE_NOT_FOUND"
	ErrCodeAttributeInvalid  = "ATTRIBUTE_INVALID"
	ErrCodeParseFailed       = "PARSE_FAILED"
	ErrCodeUnknown           = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Error: ErrorToJSON(err)})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var hostKey *sshutil.HostKeyMismatchError
	if stderrors.As(err, &hostKey) {
		return &JSONError{
			Code:       ErrCodeSSHHostKey,
			Message:    hostKey.Error(),
			Suggestion: hostKey.Suggestion(),
			Details:    map[string]interface{}{"host": hostKey.Hostname},
		}
	}

	var missing *nvidia.AttributeNotFoundError
	if stderrors.As(err, &missing) {
		return &JSONError{
			Code:    ErrCodeAttributeMissing,
			Message: errors.Headline(err),
			Details: map[string]interface{}{"key": missing.Key, "value": missing.Value},
		}
	}

	var gtErr *errors.Error
	if stderrors.As(err, &gtErr) {
		return &JSONError{
			Code:       mapErrorCode(gtErr),
			Message:    errors.Headline(gtErr),
			Suggestion: gtErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps an internal error to a machine-readable code. A few
// codes are split further by message so scripts can tell "no GPUs at all"
// from "not that GPU".
func mapErrorCode(e *errors.Error) string {
	msg := strings.ToLower(e.Message)
	switch e.Code {
	case errors.ErrConfig:
		if strings.Contains(msg, "not found") || strings.Contains(msg, "couldn't find") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrSSH:
		return ErrCodeSSHConnectionFail
	case errors.ErrExec:
		switch {
		case stderrors.Is(e, context.DeadlineExceeded):
			return ErrCodeCommandTimeout
		case strings.Contains(msg, "isn't installed"):
			return ErrCodeToolNotFound
		}
		return ErrCodeCommandFailed
	case errors.ErrDiscovery:
		if strings.HasPrefix(msg, "there is no gpu:") {
			return ErrCodeGPUNotFound
		}
		return ErrCodeNoGPUs
	case errors.ErrAttribute:
		return ErrCodeAttributeInvalid
	case errors.ErrParse:
		return ErrCodeParseFailed
	}
	return ErrCodeUnknown
}

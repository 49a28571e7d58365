package cli

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"dev", "dev"},
		{"1.2.3", "v1.2.3"},
		{"v1.2.3", "v1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVersion(tt.in))
		})
	}
}

func TestWriteVersion(t *testing.T) {
	oldVersion, oldCommit, oldDate := version, commit, date
	defer func() { version, commit, date = oldVersion, oldCommit, oldDate }()

	SetVersionInfo("0.4.1", "abc123", "2026-10-01")

	t.Run("full", func(t *testing.T) {
		var buf bytes.Buffer
		writeVersion(&buf, false)

		out := plain(buf.String())
		assert.True(t, strings.HasPrefix(out, "gputweak v0.4.1\n"))
		assert.Contains(t, out, "commit: abc123")
		assert.Contains(t, out, "built: 2026-10-01")
		assert.Contains(t, out, "go: "+runtime.Version())
		assert.Contains(t, out, "os/arch: "+runtime.GOOS+"/"+runtime.GOARCH)
	})

	t.Run("short", func(t *testing.T) {
		var buf bytes.Buffer
		writeVersion(&buf, true)
		assert.Equal(t, "0.4.1\n", buf.String())
	})

	assert.Equal(t, "0.4.1", GetVersion())
	assert.Equal(t, "v0.4.1", rootCmd.Version)
}

func TestWriteCompletion(t *testing.T) {
	root := &cobra.Command{Use: "gputweak"}
	root.AddCommand(&cobra.Command{Use: "stats", Run: func(*cobra.Command, []string) {}})

	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "# bash completion"},
		{"zsh", "#compdef gputweak"},
		{"fish", "complete -c gputweak"},
		{"powershell", "Register-ArgumentCompleter"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeCompletion(root, &buf, tt.shell))
			assert.Contains(t, buf.String(), tt.want)
		})
	}

	t.Run("unknown shell", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeCompletion(root, &buf, "tcsh")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Supported shells")
	})
}

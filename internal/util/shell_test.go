package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"nvidia-settings", "nvidia-settings"},
		{"-q", "-q"},
		{"/usr/bin/nvidia-settings", "/usr/bin/nvidia-settings"},
		{"[gpu:0]/GPUCoreTemp", "'[gpu:0]/GPUCoreTemp'"},
		{"[fan:1]/GPUTargetFanSpeed=70", "'[fan:1]/GPUTargetFanSpeed=70'"},
		{"it's", `'it'\''s'`},
		{"two words", "'two words'"},
		{"$(reboot)", "'$(reboot)'"},
		{"", "''"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ShellQuote(tt.input))
		})
	}
}

func TestShellJoin(t *testing.T) {
	assert.Equal(t, "nvidia-settings -t -q '[gpu:0]/GPUUtilization'",
		ShellJoin("nvidia-settings", "-t", "-q", "[gpu:0]/GPUUtilization"))
	assert.Equal(t, "", ShellJoin())
}

func TestQuoteToolPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"nvidia-settings", "nvidia-settings"},
		{"~", "~"},
		{"~/bin/nvidia-settings", "~/bin/nvidia-settings"},
		{"~/my tools/nvidia-settings", "~/'my tools/nvidia-settings'"},
		{"/opt/nvidia/bin/nvidia-settings", "/opt/nvidia/bin/nvidia-settings"},
		{"~ops/bin/nvidia-settings", "'~ops/bin/nvidia-settings'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteToolPath(tt.input))
		})
	}
}

package sshutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigFile(t *testing.T) {
	path := writeSSHConfig(t, `
Host rig
    HostName 192.168.1.100
    User admin
    Port 22

Host gpu-box
    HostName gpu.example.com
    User ubuntu

Host *
    ServerAliveInterval 60

Host work-*
    User workuser
`)

	hosts, err := ParseConfigFile(path)
	require.NoError(t, err)

	require.Len(t, hosts, 2)
	assert.Equal(t, "gpu-box", hosts[0].Alias)
	assert.Equal(t, "rig", hosts[1].Alias)
	assert.Equal(t, "192.168.1.100", hosts[1].Hostname)
	assert.Equal(t, "admin", hosts[1].User)
	assert.Equal(t, "", hosts[0].Port)
}

func TestParseConfigFile_Missing(t *testing.T) {
	hosts, err := ParseConfigFile("/nonexistent/config")

	assert.NoError(t, err)
	assert.Nil(t, hosts)
}

func TestParseConfigFile_StopsAtMatch(t *testing.T) {
	path := writeSSHConfig(t, `
Host before
    HostName a.example.com

Match host *.internal
    User ops

Host after
    HostName b.example.com
`)

	hosts, err := ParseConfigFile(path)
	require.NoError(t, err)

	require.Len(t, hosts, 1)
	assert.Equal(t, "before", hosts[0].Alias)
}

func TestParseConfigFile_MultiplePatternsAndDuplicates(t *testing.T) {
	path := writeSSHConfig(t, `
Host a b
    User x

Host a
    User y
`)

	hosts, err := ParseConfigFile(path)
	require.NoError(t, err)

	require.Len(t, hosts, 2)
	assert.Equal(t, "a", hosts[0].Alias)
	assert.Equal(t, "x", hosts[0].User)
	assert.Equal(t, "b", hosts[1].Alias)
}

func TestHostEntryDescription(t *testing.T) {
	tests := []struct {
		name  string
		entry HostEntry
		want  string
	}{
		{"alias only", HostEntry{Alias: "rig"}, "rig"},
		{"hostname same as alias", HostEntry{Alias: "rig", Hostname: "rig"}, "rig"},
		{"full", HostEntry{Alias: "rig", Hostname: "10.0.0.5", User: "ops", Port: "2222"}, "10.0.0.5, user: ops, port: 2222"},
		{"default port hidden", HostEntry{Alias: "rig", User: "ops", Port: "22"}, "user: ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Description())
		})
	}
}

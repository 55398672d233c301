package command

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"bare name", "npm", false},
		{"absolute path", "/usr/local/bin/pnpm", false},
		{"dotted", "node.exe", false},
		{"empty", "", true},
		{"shell injection", "npm; rm -rf", true},
		{"starts with dash", "-npm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCommandName(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "validateCommandName(%q) = %v", tt.input, err)
		})
	}
}

func TestBuildAndTimeout(t *testing.T) {
	sb := NewSafeBuilder()

	cmd, err := sb.Build(context.Background(), "npm", "install")
	require.NoError(t, err)
	defer cmd.Cancel()
	assert.Equal(t, DefaultTimeout, cmd.Timeout())
	assert.Equal(t, "npm install", cmd.String())

	cmd.WithTimeout(context.Background(), 0)
	assert.Equal(t, DefaultTimeout, cmd.Timeout(), "zero keeps the default")

	cmd.WithTimeout(context.Background(), time.Hour)
	assert.Equal(t, MaxTimeout, cmd.Timeout())

	deadline, ok := cmd.Context().Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(MaxTimeout), deadline, time.Minute)

	execCmd := cmd.Exec()
	assert.Equal(t, []string{"npm", "install"}, execCmd.Args)

	_, err = sb.Build(context.Background(), "bad name")
	assert.Error(t, err)
}

func TestCancelStopsContext(t *testing.T) {
	cmd, err := NewSafeBuilder().Build(context.Background(), "tsc")
	require.NoError(t, err)
	cmd.Cancel()
	assert.Error(t, cmd.Context().Err())
}

func TestEnvWithout(t *testing.T) {
	env := []string{"PATH=/bin", "NODE_ENV=production", "HOME=/root", "NODE_ENVX=1"}
	assert.Equal(t, []string{"PATH=/bin", "HOME=/root", "NODE_ENVX=1"}, EnvWithout(env, "NODE_ENV"))
	assert.Len(t, env, 4, "input slice is untouched")

	t.Setenv("PMD_ENV_PROBE", "1")
	filtered := EnvWithout(nil, "PMD_ENV_PROBE")
	assert.NotContains(t, filtered, "PMD_ENV_PROBE=1")
	assert.Equal(t, "1", os.Getenv("PMD_ENV_PROBE"), "process env is never modified")
}

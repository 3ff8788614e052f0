package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pipesim", cmd.Use)
	assert.Contains(t, cmd.Long, "state machines")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "validate", "test", "trace", "graph", "scenarios"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"log-level", "config", "pipeline"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Empty(t, flag.DefValue)
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	tests := map[string]string{
		"db":             "",
		"scenario":       "",
		"speed":          "1",
		"fps":            "8",
		"duration":       "0s",
		"reduced-motion": "false",
		"headless":       "false",
	}
	for name, def := range tests {
		flag := runCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "yaml", "scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}

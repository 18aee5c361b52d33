package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "reap"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
	assert.Contains(t, output, "--env-file")
}

func TestServeCommand_MigrateFlag(t *testing.T) {
	cmd := NewServeCmd()
	flag := cmd.Flags().Lookup("migrate")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestLoadConfig_MissingRequiredEnv(t *testing.T) {
	envFile = ""
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := loadConfig()
	require.Error(t, err)
}

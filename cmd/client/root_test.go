package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	want := []string{
		"login", "logout", "status", "set", "increment", "append", "delete",
		"get", "list", "queue", "sync", "conflicts", "resolve", "retry",
		"discard", "pack", "resync", "watch", "version",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCommand_ArgsValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "set without fields", args: []string{"set", "stock_item", "bin-17"}},
		{name: "delete extra arg", args: []string{"delete", "stock_item", "bin-17", "qty=1"}},
		{name: "resolve without choice", args: []string{"resolve", "k1"}},
		{name: "bad output format", args: []string{"-o", "xml", "queue"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), "client.db")

			root := newRootCommand()
			root.SetArgs(append([]string{"--db", dbPath}, tt.args...))
			assert.Error(t, root.Execute())
		})
	}
}

func TestRootCommand_OpensLocalDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "client.db")

	root := newRootCommand()
	root.SetArgs([]string{"--db", dbPath, "--log-level", "error", "queue"})
	require.NoError(t, root.Execute())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

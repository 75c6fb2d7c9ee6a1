package register

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readServers(t *testing.T, configPath string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	var config map[string]any
	require.NoError(t, json.Unmarshal(data, &config))
	servers, ok := config["mcpServers"].(map[string]any)
	require.True(t, ok, "mcpServers not found or not an object")
	return servers
}

func Test_Register_ProjectScope(t *testing.T) {
	dir := t.TempDir()

	configPath, err := Register(Options{
		Scope:      ScopeProject,
		Directory:  dir,
		ServerName: "contentsieve",
		ServerArgs: []string{"--config", "sieve.yaml"},
		BinaryPath: "/usr/local/bin/contentsieve",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".mcp.json"), configPath)

	entry, ok := readServers(t, configPath)["contentsieve"].(map[string]any)
	require.True(t, ok)
	if runtime.GOOS != "windows" {
		assert.Equal(t, "/usr/local/bin/contentsieve", entry["command"])
		assert.Equal(t, []any{"serve", "--config", "sieve.yaml"}, entry["args"])
	}
}

func Test_Register_UnknownScope(t *testing.T) {
	_, err := Register(Options{Scope: "global", ServerName: "x", BinaryPath: "/bin/x"})
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func Test_writeConfig_UpdatesExistingEntry(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".mcp.json")
	initial := map[string]any{
		"mcpServers": map[string]any{
			"other-server": map[string]any{"command": "/usr/bin/other"},
			"myserver":     map[string]any{"command": "/old/path"},
		},
		"theme": "dark",
	}
	initialData, err := json.MarshalIndent(initial, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, initialData, 0o644))

	require.NoError(t, writeConfig(configPath, "myserver", mcpServerEntry{Command: "/new/path", Args: []string{"serve"}}))

	servers := readServers(t, configPath)
	assert.Equal(t, "/usr/bin/other", servers["other-server"].(map[string]any)["command"])
	assert.Equal(t, "/new/path", servers["myserver"].(map[string]any)["command"])

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"theme": "dark"`)
}

func Test_writeConfig_InvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".mcp.json")
	require.NoError(t, os.WriteFile(configPath, []byte("not valid json{{{"), 0o644))

	err := writeConfig(configPath, "myserver", mcpServerEntry{Command: "/usr/bin/myserver"})
	assert.Error(t, err)
}

func Test_buildEntry(t *testing.T) {
	binaryPath := "/usr/local/bin/contentsieve"

	tests := []struct {
		name       string
		serverArgs []string
		wantArgs   []string
	}{
		{"no args", nil, []string{"serve"}},
		{"forwarded args", []string{"--root", "/projects"}, []string{"serve", "--root", "/projects"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := buildEntry(binaryPath, tt.serverArgs)
			if runtime.GOOS == "windows" {
				assert.Equal(t, "cmd", entry.Command)
				assert.Equal(t, append([]string{"/C", binaryPath}, tt.wantArgs...), entry.Args)
				return
			}
			assert.Equal(t, binaryPath, entry.Command)
			assert.Equal(t, tt.wantArgs, entry.Args)
		})
	}
}

func Test_resolveConfigPath(t *testing.T) {
	got, err := resolveConfigPath(ScopeProject, "")
	require.NoError(t, err)
	absDir, err := filepath.Abs(".")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(absDir, ".mcp.json"), got)

	got, err = resolveConfigPath(ScopeUser, "")
	require.NoError(t, err)
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, ".claude.json"), got)
}

// ABOUTME: Tests for configuration loading and database path handling.
// ABOUTME: Covers defaults, precedence of flags over env over file, and validation failures.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("listen", "", "")
	fs.String("backend", "", "")
	fs.String("db", "", "")
	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "teamhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.SnapshotWait)
	assert.Equal(t, 10*time.Second, cfg.SnapshotAge)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 1024, cfg.SessionSize)
	assert.Error(t, cfg.RequireBackend())
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("TEAMHUB_BACKEND_URL", "http://backend.local/")
	t.Setenv("TEAMHUB_SNAPSHOT_WAIT", "250ms")
	t.Setenv("TEAMHUB_SNAPSHOT_MAX_AGE", "30s")
	t.Setenv("TEAMHUB_SESSION_SIZE", "64")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://backend.local", cfg.BackendURL, "trailing slash trimmed")
	assert.Equal(t, 250*time.Millisecond, cfg.SnapshotWait)
	assert.Equal(t, 30*time.Second, cfg.SnapshotAge)
	assert.Equal(t, 64, cfg.SessionSize)
	assert.NoError(t, cfg.RequireBackend())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"listen: \":9200\"",
		"backend_url: http://file.local",
		"log_format: json",
		"session_ttl: 1m",
	}, "\n"))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9200", cfg.Listen)
	assert.Equal(t, "http://file.local", cfg.BackendURL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, time.Minute, cfg.SessionTTL)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, "listen: \":9200\"\nbackend_url: http://file.local\n")
	t.Setenv("TEAMHUB_BACKEND_URL", "http://env.local")

	fs := serveFlags()
	require.NoError(t, fs.Parse([]string{"--listen", ":9300"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, ":9300", cfg.Listen, "flag beats file")
	assert.Equal(t, "http://env.local", cfg.BackendURL, "env beats file")

	fs = serveFlags()
	require.NoError(t, fs.Parse([]string{"--backend", "http://flag.local", "--db", "/tmp/x.db"}))
	cfg, err = Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "http://flag.local", cfg.BackendURL, "flag beats env")
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
}

func TestLoadUnsetFlagsKeepDefaults(t *testing.T) {
	fs := serveFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Listen)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	t.Setenv("TEAMHUB_SESSION_SIZE", "0")
	_, err = Load("", nil)
	assert.Error(t, err)
}

func TestLoadRejectsBadDurations(t *testing.T) {
	t.Setenv("TEAMHUB_HTTP_TIMEOUT", "-1s")
	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestValidateDBPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "plain file", path: "teamhub.db", want: "teamhub.db"},
		{name: "trimmed", path: "  /var/lib/teamhub.db ", want: "/var/lib/teamhub.db"},
		{name: "cleaned", path: "/var/lib//teamhub.db", want: "/var/lib/teamhub.db"},
		{name: "empty", path: "", wantErr: true},
		{name: "dot", path: ".", wantErr: true},
		{name: "root", path: "/", wantErr: true},
		{name: "traversal", path: "../teamhub.db", wantErr: true},
		{name: "git dir", path: "/repo/.git/teamhub.db", wantErr: true},
		{name: "secret dir", path: "/home/me/Secrets/teamhub.db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateDBPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultDBPathUsesXDG(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	got := DefaultDBPath()
	if got == "./"+dbFileName {
		t.Skip("teamhub.db exists in the working directory")
	}
	assert.Equal(t, filepath.Join(dataHome, "teamhub", dbFileName), got)

	info, err := os.Stat(filepath.Join(dataHome, "teamhub"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolveDBPath(t *testing.T) {
	cfg := &Config{DBPath: "/tmp/teamhub-test.db"}
	got, err := cfg.ResolveDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/teamhub-test.db", got)

	cfg = &Config{DBPath: "../escape.db"}
	_, err = cfg.ResolveDBPath()
	assert.Error(t, err)
}

package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, logs bytes.Buffer

	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(append([]string{"run", "--env-file", ""}, args...))

	err := root.Execute()
	return out.String(), logs.String(), err
}

func TestRun_Walkthrough(t *testing.T) {
	out, _, err := execute(t, "--metrics")
	require.NoError(t, err)

	assert.Contains(t, out, "App|user|email_a@x.com")
	assert.Contains(t, out, `"Ada Lovelace"`)
	assert.Contains(t, out, "list         1 of 1")
	assert.Contains(t, out, "deleted      App|user|email_a@x.com")

	assert.Contains(t, out, "refcache_repository_cache_lookups_total{result=hit,via=reference} 3")
	assert.Contains(t, out, "refcache_repository_cache_lookups_total{result=hit,via=direct} 1")
	assert.Contains(t, out, "refcache_repository_cache_reference_repairs_total 2")
}

func TestRun_Loggers(t *testing.T) {
	for _, kind := range []string{"zap", "logrus", "slog"} {
		t.Run(kind, func(t *testing.T) {
			_, logs, err := execute(t, "--log", kind, "--debug")
			require.NoError(t, err)
			assert.Contains(t, logs, "cache backend ready")
		})
	}
}

func TestRun_Backends(t *testing.T) {
	for _, kind := range []string{"sturdyc", "ristretto", "none"} {
		t.Run(kind, func(t *testing.T) {
			out, _, err := execute(t, "--backend", kind)
			require.NoError(t, err)
			assert.Contains(t, out, "deleted")
		})
	}
}

func TestRun_EnvironmentOverrides(t *testing.T) {
	t.Setenv("REFCACHE_CACHE_APP_NAME", "Demo")
	t.Setenv("REFCACHE_CACHE_UNIQUE_KEY", "|member")

	out, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Demo|member|email_a@x.com")
}

func TestRun_DisabledCache(t *testing.T) {
	t.Setenv("REFCACHE_CACHE_DISABLED", "true")

	out, _, err := execute(t, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")
	assert.NotContains(t, out, "lookups_total")
}

func TestRun_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refcache.yaml")
	content := strings.Join([]string{
		"cache:",
		"  app_name: Yaml",
		"  codec: msgpack",
		"backend: ristretto",
		"log: logrus",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, logs, err := execute(t, "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Yaml|user|email_a@x.com")
	assert.Contains(t, logs, "backend=ristretto")
}

func TestRun_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("REFCACHE_CACHE_APP_NAME=Dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("REFCACHE_CACHE_APP_NAME") })

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--env-file", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Dotenv|user|email_a@x.com")
}

func TestRun_SQLite(t *testing.T) {
	probe, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	if err := probe.Ping(); err != nil {
		t.Skipf("sqlite3 driver unavailable: %v", err)
	}
	probe.Close()

	out, _, err := execute(t, "--store", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, `"Ada Lovelace"`)
}

func TestRun_InvalidSettings(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown backend", []string{"--backend", "memcached"}},
		{"unknown store", []string{"--store", "mongo"}},
		{"unknown logger", []string{"--log", "glog"}},
		{"postgres without dsn", []string{"--store", "postgres"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args...)
			assert.Error(t, err)
		})
	}
}

func TestOpenStore_CreateTableFailureClosesDB(t *testing.T) {
	s := settings{
		Store:    "postgres",
		Postgres: dsnSettings{DSN: "postgres://refcache@127.0.0.1:1/refcache?sslmode=disable&connect_timeout=1"},
	}

	st, closeStore, err := openStore(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table")
	assert.Nil(t, st)
	assert.Nil(t, closeStore)
}

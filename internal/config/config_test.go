package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/storegrid/internal/cluster"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":5000", cfg.Coordinator.ClientAddr)
	assert.Equal(t, ":5002", cfg.Coordinator.CallbackAddr)
	assert.Equal(t, 30*time.Second, cfg.Coordinator.SearchTimeout)
	assert.Equal(t, ":7000", cfg.Aggregator.ListenAddr)
	assert.Equal(t, 2*time.Minute, cfg.Aggregator.BucketTTL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Node.AggregatorAddr)
	assert.Empty(t, cfg.Workers)
	assert.Error(t, cfg.RequireWorkers())
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storegrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
coordinator:
  client_addr: ":6000"
  search_timeout: 5s
aggregator:
  expected_shards: 2
workers:
  - host: 10.0.0.1
    port: 6001
  - host: 10.0.0.2
    port: 6002
`), 0o600))

	cfg, err := LoadConfig(path, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":6000", cfg.Coordinator.ClientAddr)
	assert.Equal(t, 5*time.Second, cfg.Coordinator.SearchTimeout)
	assert.Equal(t, ":5002", cfg.Coordinator.CallbackAddr)
	assert.Equal(t, []cluster.Worker{{Host: "10.0.0.1", Port: 6001}, {Host: "10.0.0.2", Port: 6002}}, cfg.Workers)
	n, err := cfg.ExpectedShards()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, cfg.RequireWorkers())
}

func TestExpectedShards(t *testing.T) {
	roster := []cluster.Worker{{Host: "a", Port: 1}, {Host: "b", Port: 2}}

	tests := []struct {
		name     string
		explicit int
		workers  []cluster.Worker
		want     int
		wantErr  bool
	}{
		{"roster size", 0, roster, 2, false},
		{"explicit without roster", 4, nil, 4, false},
		{"explicit matches roster", 2, roster, 2, false},
		{"explicit below roster", 1, roster, 0, true},
		{"explicit above roster", 3, roster, 0, true},
		{"negative", -1, nil, 0, true},
		{"nothing configured", 0, nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Aggregator: AggregatorConfig{ExpectedShards: tt.explicit}, Workers: tt.workers}
			n, err := cfg.ExpectedShards()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil, nil)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storegrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coordinator:\n  client_addr: \":6000\"\n"), 0o600))

	t.Setenv("STOREGRID_COORDINATOR_CLIENT_ADDR", ":7777")
	t.Setenv("STOREGRID_WORKERS", "a:1, b:2")

	cfg, err := LoadConfig(path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Coordinator.ClientAddr)
	assert.Equal(t, []cluster.Worker{{Host: "a", Port: 1}, {Host: "b", Port: 2}}, cfg.Workers)
	n, err := cfg.ExpectedShards()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STOREGRID_NODE_INDEX", "1")

	cmd := &cobra.Command{Use: "node"}
	cmd.Flags().Int("index", 0, "")
	cmd.Flags().String("aggregator", "", "")
	require.NoError(t, cmd.Flags().Parse([]string{"--index", "2"}))

	cfg, err := LoadConfig("", cmd, map[string]string{
		"node.index":           "index",
		"node.aggregator_addr": "aggregator",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Node.Index)
	// unset flag falls through to the default
	assert.Equal(t, "127.0.0.1:7000", cfg.Node.AggregatorAddr)
}

func TestUnknownFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	_, err := LoadConfig("", cmd, map[string]string{"log_level": "verbosity"})
	assert.Error(t, err)
}

func TestParseWorkers(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    []cluster.Worker
		wantErr bool
	}{
		{name: "nil", raw: nil},
		{name: "csv", raw: "h:1,h:2", want: []cluster.Worker{{Host: "h", Port: 1}, {Host: "h", Port: 2}}},
		{name: "string list", raw: []any{"h:1"}, want: []cluster.Worker{{Host: "h", Port: 1}}},
		{name: "map list", raw: []any{map[string]any{"host": "h", "port": 3}}, want: []cluster.Worker{{Host: "h", Port: 3}}},
		{name: "bad entry", raw: []any{42}, wantErr: true},
		{name: "bad address", raw: "nohost", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWorkers(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

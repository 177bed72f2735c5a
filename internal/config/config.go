package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/storegrid/internal/cluster"
)

// CoordinatorConfig holds the coordinator's listeners and timeouts.
type CoordinatorConfig struct {
	ClientAddr     string        `mapstructure:"client_addr"`
	CallbackAddr   string        `mapstructure:"callback_addr"`
	AdminAddr      string        `mapstructure:"admin_addr"`
	SearchTimeout  time.Duration `mapstructure:"search_timeout"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

// AggregatorConfig holds the aggregator's listeners and bucket eviction policy.
type AggregatorConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	CoordinatorAddr string        `mapstructure:"coordinator_addr"`
	AdminAddr       string        `mapstructure:"admin_addr"`
	BucketTTL       time.Duration `mapstructure:"bucket_ttl"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	ExpectedShards  int           `mapstructure:"expected_shards"`
}

// NodeConfig selects which roster entry a node process serves.
type NodeConfig struct {
	Index          int    `mapstructure:"index"`
	AggregatorAddr string `mapstructure:"aggregator_addr"`
}

// Config holds the application configuration
type Config struct {
	LogLevel    string            `mapstructure:"log_level"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Aggregator  AggregatorConfig  `mapstructure:"aggregator"`
	Node        NodeConfig        `mapstructure:"node"`
	Workers     []cluster.Worker  `mapstructure:"-"`
}

// EnvPrefix prefixes every environment variable, e.g. STOREGRID_COORDINATOR_CLIENT_ADDR.
const EnvPrefix = "STOREGRID"

// LoadConfig loads configuration from a YAML file, environment variables, or CLI flags.
// Priority: CLI flags > Environment variables > config file > defaults
//
// flags maps configuration keys to the names of flags on cmd that override them.
func LoadConfig(configPath string, cmd *cobra.Command, flags map[string]string) (*Config, error) {
	v, err := setupViper(configPath, cmd, flags)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	workers, err := parseWorkers(v.Get("workers"))
	if err != nil {
		return nil, err
	}
	cfg.Workers = workers
	return &cfg, nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, cmd *cobra.Command, flags map[string]string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("storegrid")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for key, name := range flags {
			f := cmd.Flags().Lookup(name)
			if f == nil {
				return nil, fmt.Errorf("no flag %q for key %s", name, key)
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("coordinator.client_addr", ":5000")
	v.SetDefault("coordinator.callback_addr", ":5002")
	v.SetDefault("coordinator.admin_addr", ":8080")
	v.SetDefault("coordinator.search_timeout", 30*time.Second)
	v.SetDefault("coordinator.dial_timeout", 5*time.Second)
	v.SetDefault("coordinator.health_interval", 5*time.Second)

	v.SetDefault("aggregator.listen_addr", ":7000")
	v.SetDefault("aggregator.coordinator_addr", "127.0.0.1:5002")
	v.SetDefault("aggregator.admin_addr", ":8090")
	v.SetDefault("aggregator.bucket_ttl", 2*time.Minute)
	v.SetDefault("aggregator.sweep_interval", 30*time.Second)
	v.SetDefault("aggregator.expected_shards", 0)

	v.SetDefault("node.index", 0)
	v.SetDefault("node.aggregator_addr", "127.0.0.1:7000")

	v.SetDefault("workers", []string{})
}

// parseWorkers accepts the roster as a YAML list of {host, port} maps, a
// list of "host:port" strings, or a comma separated string (env and flags).
func parseWorkers(raw any) ([]cluster.Worker, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return parseWorkerStrings(strings.Split(val, ","))
	case []string:
		return parseWorkerStrings(val)
	case []any:
		workers := make([]cluster.Worker, 0, len(val))
		for i, item := range val {
			w, err := parseWorkerItem(item)
			if err != nil {
				return nil, fmt.Errorf("worker %d: %w", i, err)
			}
			workers = append(workers, w)
		}
		return workers, nil
	default:
		return nil, fmt.Errorf("unsupported workers value of type %T", raw)
	}
}

func parseWorkerStrings(items []string) ([]cluster.Worker, error) {
	workers := make([]cluster.Worker, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		w, err := cluster.ParseWorker(s)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, nil
}

func parseWorkerItem(item any) (cluster.Worker, error) {
	switch val := item.(type) {
	case string:
		return cluster.ParseWorker(strings.TrimSpace(val))
	case map[string]any:
		host, _ := val["host"].(string)
		port, err := toPort(val["port"])
		if err != nil {
			return cluster.Worker{}, err
		}
		return cluster.Worker{Host: host, Port: port}, nil
	default:
		return cluster.Worker{}, fmt.Errorf("unsupported worker entry of type %T", item)
	}
}

func toPort(v any) (int, error) {
	switch p := v.(type) {
	case int:
		return p, nil
	case int64:
		return int(p), nil
	case float64:
		return int(p), nil
	case string:
		w, err := cluster.ParseWorker("x:" + p)
		return w.Port, err
	default:
		return 0, fmt.Errorf("invalid port %v", v)
	}
}

// ExpectedShards is the number of partials the aggregator waits for.
// An explicit count must agree with the roster when both are set, otherwise
// buckets would finalize before every shard has answered.
func (c *Config) ExpectedShards() (int, error) {
	n := c.Aggregator.ExpectedShards
	switch {
	case n < 0:
		return 0, fmt.Errorf("aggregator.expected_shards must not be negative, got %d", n)
	case n == 0:
		n = len(c.Workers)
	case len(c.Workers) > 0 && n != len(c.Workers):
		return 0, fmt.Errorf("aggregator.expected_shards is %d but %d workers are configured", n, len(c.Workers))
	}
	if n == 0 {
		return 0, errors.New("expected shard count unknown: set aggregator.expected_shards or workers")
	}
	return n, nil
}

// RequireWorkers reports an error when no worker roster is configured.
func (c *Config) RequireWorkers() error {
	if len(c.Workers) == 0 {
		return errors.New("no workers configured: set workers in the config file or STOREGRID_WORKERS")
	}
	return nil
}

// Command node runs one shard of a storegrid cluster.
//
// The node serves the roster entry selected by --index: it listens on that
// entry's port, owns the stores whose bucket equals the index, and pushes
// search partials to the aggregator.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/config"
	"github.com/dreamware/storegrid/internal/logging"
	"github.com/dreamware/storegrid/internal/shard"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "node",
	Short: "Serve one storegrid shard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(configPath, cmd, map[string]string{
			"log_level":            "log-level",
			"node.index":           "index",
			"node.aggregator_addr": "aggregator-addr",
			"workers":              "workers",
		})
		if err != nil {
			return err
		}
		logging.Init(cfg.LogLevel)

		n, err := start(cfg, logging.For("shard"))
		if err != nil {
			return err
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		n.close()
		return nil
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "path to a YAML config file")
	f.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	f.Int("index", 0, "position of this node in the worker roster")
	f.String("aggregator-addr", "127.0.0.1:7000", "aggregator partial listener")
	f.String("workers", "", "comma separated host:port roster, in shard order")
}

type node struct {
	shard *shard.Shard
	srv   *cluster.Server
	log   *log.Entry
}

// listenAddr binds every interface on the roster entry's port.
func listenAddr(w cluster.Worker) string {
	return net.JoinHostPort("", strconv.Itoa(w.Port))
}

func start(cfg *config.Config, logger *log.Entry) (*node, error) {
	if err := cfg.RequireWorkers(); err != nil {
		return nil, err
	}
	idx := cfg.Node.Index
	if idx < 0 || idx >= len(cfg.Workers) {
		return nil, fmt.Errorf("node index %d outside roster of %d workers", idx, len(cfg.Workers))
	}
	logger = logger.WithField("shard", idx)

	s := shard.NewShard(idx, shard.AggregatorClient{Addr: cfg.Node.AggregatorAddr})
	srv, err := cluster.Listen(listenAddr(cfg.Workers[idx]), shard.NewHandler(s, logger).Serve, logger)
	if err != nil {
		return nil, err
	}

	n := &node{shard: s, srv: srv, log: logger}
	go func() {
		logger.Infof("shard listening on %s, %d shards in roster", srv.Addr(), len(cfg.Workers))
		if err := srv.Serve(); err != nil {
			logger.WithError(err).Error("listener stopped")
		}
	}()
	return n, nil
}

func (n *node) close() {
	_ = n.srv.Close()
	info := n.shard.Info()
	n.log.WithFields(log.Fields{"stores": info.Stores, "products": info.Products}).Info("shard stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

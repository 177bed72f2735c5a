package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dreamware/storegrid/internal/aggregator"
	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/config"
	"github.com/dreamware/storegrid/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aggregator",
	Short: "Merge per-shard search partials",
	Long:  "The aggregator collects one search partial per shard, merges them and delivers the result to the coordinator.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(configPath, cmd, map[string]string{
			"log_level":                   "log-level",
			"aggregator.listen_addr":      "listen-addr",
			"aggregator.coordinator_addr": "coordinator-addr",
			"aggregator.admin_addr":       "admin-addr",
			"aggregator.bucket_ttl":       "bucket-ttl",
			"aggregator.sweep_interval":   "sweep-interval",
			"aggregator.expected_shards":  "expected-shards",
			"workers":                     "workers",
		})
		if err != nil {
			return err
		}
		logging.Init(cfg.LogLevel)

		a, err := start(cfg, logging.For("aggregator"))
		if err != nil {
			return err
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		a.close()
		return nil
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "path to a YAML config file")
	f.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	f.String("listen-addr", ":7000", "partial submission listener")
	f.String("coordinator-addr", "127.0.0.1:5002", "coordinator callback listener")
	f.String("admin-addr", ":8090", "admin HTTP listener, empty to disable")
	f.Duration("bucket-ttl", 2*time.Minute, "evict buckets that stay incomplete this long")
	f.Duration("sweep-interval", 30*time.Second, "how often stale buckets are evicted")
	f.Int("expected-shards", 0, "partials per search, 0 to use the roster size")
	f.String("workers", "", "comma separated host:port roster, in shard order")
}

type app struct {
	agg   *aggregator.Aggregator
	srv   *cluster.Server
	admin *http.Server
	log   *log.Entry
}

func start(cfg *config.Config, logger *log.Entry) (*app, error) {
	expected, err := cfg.ExpectedShards()
	if err != nil {
		return nil, err
	}
	if cfg.Aggregator.BucketTTL <= 0 || cfg.Aggregator.SweepInterval <= 0 {
		return nil, errors.New("bucket ttl and sweep interval must be positive")
	}

	agg := aggregator.New(expected, cfg.Aggregator.BucketTTL,
		aggregator.CoordinatorClient{Addr: cfg.Aggregator.CoordinatorAddr}, logger)

	srv, err := cluster.Listen(cfg.Aggregator.ListenAddr, agg.ServePartial, logger)
	if err != nil {
		return nil, err
	}

	a := &app{agg: agg, srv: srv, log: logger}
	agg.Start(context.Background(), cfg.Aggregator.SweepInterval)

	go func() {
		logger.WithField("expected_shards", expected).Infof("aggregator listening on %s", srv.Addr())
		if err := srv.Serve(); err != nil {
			logger.WithError(err).Error("listener stopped")
		}
	}()

	if cfg.Aggregator.AdminAddr != "" {
		a.admin = &http.Server{
			Addr:              cfg.Aggregator.AdminAddr,
			Handler:           agg.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Infof("admin API listening on %s", cfg.Aggregator.AdminAddr)
			if err := a.admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("admin API stopped")
			}
		}()
	}
	return a, nil
}

func (a *app) close() {
	if a.admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.admin.Shutdown(ctx)
	}
	_ = a.srv.Close()
	a.agg.Stop()

	st := a.agg.Stats()
	a.log.WithFields(log.Fields{
		"open":      st.Open,
		"finalized": st.Finalized,
		"evicted":   st.Evicted,
	}).Info("aggregator stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

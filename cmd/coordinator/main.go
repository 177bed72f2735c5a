package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/config"
	"github.com/dreamware/storegrid/internal/coordinator"
	"github.com/dreamware/storegrid/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Route client sessions to storegrid shards",
	Long:  "The coordinator accepts client sessions, routes store commands to the owning shard and runs searches across all shards.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(configPath, cmd, map[string]string{
			"log_level":                   "log-level",
			"coordinator.client_addr":     "client-addr",
			"coordinator.callback_addr":   "callback-addr",
			"coordinator.admin_addr":      "admin-addr",
			"coordinator.search_timeout":  "search-timeout",
			"coordinator.health_interval": "health-interval",
			"workers":                     "workers",
		})
		if err != nil {
			return err
		}
		logging.Init(cfg.LogLevel)
		if err := cfg.RequireWorkers(); err != nil {
			return err
		}

		a, err := start(cfg, logging.For("coordinator"))
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
	f.String("client-addr", ":5000", "client session listener")
	f.String("callback-addr", ":5002", "aggregator callback listener")
	f.String("admin-addr", ":8080", "admin HTTP listener, empty to disable")
	f.Duration("search-timeout", 30*time.Second, "how long a search waits for the aggregator")
	f.Duration("health-interval", 5*time.Second, "shard health check interval, 0 to disable")
	f.String("workers", "", "comma separated host:port roster, in shard order")
}

type app struct {
	coord     *coordinator.Coordinator
	clients   *cluster.Server
	callbacks *cluster.Server
	admin     *http.Server
	log       *log.Entry
}

func start(cfg *config.Config, logger *log.Entry) (*app, error) {
	coord, err := coordinator.New(coordinator.Config{
		Workers:       cfg.Workers,
		SearchTimeout: cfg.Coordinator.SearchTimeout,
		CallTimeout:   cfg.Coordinator.DialTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	callbacks, err := cluster.Listen(cfg.Coordinator.CallbackAddr, coord.ServeCallback, logger)
	if err != nil {
		return nil, err
	}
	clients, err := cluster.Listen(cfg.Coordinator.ClientAddr, coord.ServeClient, logger)
	if err != nil {
		callbacks.Close()
		return nil, err
	}

	a := &app{coord: coord, clients: clients, callbacks: callbacks, log: logger}
	go a.serve("callback", callbacks)
	go a.serve("client", clients)

	if cfg.Coordinator.HealthInterval > 0 {
		coord.StartHealthMonitor(cfg.Coordinator.HealthInterval)
	}

	if cfg.Coordinator.AdminAddr != "" {
		a.admin = &http.Server{
			Addr:              cfg.Coordinator.AdminAddr,
			Handler:           coord.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Infof("admin API listening on %s", cfg.Coordinator.AdminAddr)
			if err := a.admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("admin API stopped")
			}
		}()
	}

	logger.WithField("shards", coord.Registry().NumShards()).Info("coordinator started")
	return a, nil
}

func (a *app) serve(name string, srv *cluster.Server) {
	a.log.Infof("%s listener on %s", name, srv.Addr())
	if err := srv.Serve(); err != nil {
		a.log.WithError(err).Errorf("%s listener stopped", name)
	}
}

func (a *app) close() {
	a.coord.Shutdown()
	if a.admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.admin.Shutdown(ctx)
	}
	_ = a.clients.Close()
	_ = a.callbacks.Close()
	a.log.Info("coordinator stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

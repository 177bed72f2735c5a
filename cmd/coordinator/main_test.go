package main

import (
	"context"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/storegrid/internal/client"
	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/config"
	"github.com/dreamware/storegrid/internal/shard"
)

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func TestStartServesClients(t *testing.T) {
	s := shard.NewShard(0, nil)
	shardSrv, err := cluster.Listen("127.0.0.1:0", shard.NewHandler(s, quietLogger()).Serve, nil)
	require.NoError(t, err)
	go shardSrv.Serve()
	defer shardSrv.Close()

	w, err := cluster.ParseWorker(shardSrv.Addr())
	require.NoError(t, err)

	cfg := &config.Config{
		Coordinator: config.CoordinatorConfig{
			ClientAddr:     "127.0.0.1:0",
			CallbackAddr:   "127.0.0.1:0",
			SearchTimeout:  time.Second,
			DialTimeout:    time.Second,
			HealthInterval: 50 * time.Millisecond,
		},
		Workers: []cluster.Worker{w},
	}

	a, err := start(cfg, quietLogger())
	require.NoError(t, err)
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := client.Dial(ctx, a.clients.Addr())
	require.NoError(t, err)
	defer session.Close()

	var views []any
	require.NoError(t, session.Do(ctx, cluster.CmdGetAllStores, nil, &views))
	assert.Empty(t, views)

	assert.Eventually(t, func() bool {
		return s.Stats.Snapshot()[cluster.CmdPing] > 0
	}, 2*time.Second, 20*time.Millisecond, "health monitor should ping the shard")
}

func TestStartRejectsEmptyRoster(t *testing.T) {
	_, err := start(&config.Config{}, quietLogger())
	assert.Error(t, err)
}

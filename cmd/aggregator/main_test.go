package main

import (
	"context"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/config"
)

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func TestStartRequiresShardCount(t *testing.T) {
	cfg := &config.Config{Aggregator: config.AggregatorConfig{BucketTTL: time.Minute, SweepInterval: time.Second}}
	_, err := start(cfg, quietLogger())
	assert.Error(t, err)
}

func TestStartRejectsCountRosterMismatch(t *testing.T) {
	cfg := &config.Config{
		Aggregator: config.AggregatorConfig{
			ListenAddr:     "127.0.0.1:0",
			BucketTTL:      time.Minute,
			SweepInterval:  time.Second,
			ExpectedShards: 1,
		},
		Workers: []cluster.Worker{{Host: "a", Port: 1}, {Host: "b", Port: 2}},
	}
	_, err := start(cfg, quietLogger())
	assert.ErrorContains(t, err, "expected_shards")
}

func TestStartDeliversToCoordinator(t *testing.T) {
	results := make(chan cluster.SearchResult, 1)
	callback, err := cluster.Listen("127.0.0.1:0", func(conn *cluster.Conn) {
		var res cluster.SearchResult
		if conn.Receive(&res) == nil {
			results <- res
			_ = conn.Send(cluster.Ack{OK: true})
		}
	}, nil)
	require.NoError(t, err)
	go callback.Serve()
	defer callback.Close()

	cfg := &config.Config{
		Aggregator: config.AggregatorConfig{
			ListenAddr:      "127.0.0.1:0",
			CoordinatorAddr: callback.Addr(),
			BucketTTL:       time.Minute,
			SweepInterval:   time.Second,
		},
		Workers: []cluster.Worker{{Host: "a", Port: 1}, {Host: "b", Port: 2}},
	}
	a, err := start(cfg, quietLogger())
	require.NoError(t, err)
	defer a.close()
	assert.Equal(t, 2, a.agg.Expected())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for shard := 0; shard < 2; shard++ {
		require.NoError(t, cluster.Push(ctx, a.srv.Addr(), cluster.Partial{CorrelationID: "id", ShardID: shard}))
	}

	select {
	case res := <-results:
		assert.Equal(t, "id", res.CorrelationID)
	case <-ctx.Done():
		t.Fatal("no result delivered")
	}
}

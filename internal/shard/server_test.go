package shard

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/fault"
)

func startShard(t *testing.T, s *Shard) string {
	t.Helper()
	h := NewHandler(s, log.NewEntry(log.StandardLogger()))
	srv, err := cluster.Listen("127.0.0.1:0", h.Serve, nil)
	require.NoError(t, err)
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv.Addr()
}

func TestHandlerOverTheWire(t *testing.T) {
	sub := &recordingSubmitter{}
	addr := startShard(t, NewShard(0, sub))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var msg string
	require.NoError(t, cluster.Call(ctx, addr, cluster.CmdRegister, store("Olive", "Greek", 4, 6, 7), &msg))
	assert.Equal(t, "Store registered: Olive", msg)

	err := cluster.Call(ctx, addr, cluster.CmdRegister, store("Olive", "Greek", 4, 6, 7), &msg)
	assert.ErrorIs(t, err, fault.ErrAlreadyExists)

	require.NoError(t, cluster.Call(ctx, addr, cluster.CmdPurchase,
		cluster.PurchaseRequest{StoreName: "Olive", ProductName: "p1", Quantity: 2}, &msg))
	assert.Equal(t, "Purchase successful: 2x p1", msg)

	err = cluster.Call(ctx, addr, cluster.CmdPurchase,
		cluster.PurchaseRequest{StoreName: "Olive", ProductName: "p1", Quantity: 0}, &msg)
	assert.ErrorIs(t, err, fault.ErrValidation)

	var products []catalog.Product
	require.NoError(t, cluster.Call(ctx, addr, cluster.CmdSalesByProduct, "Olive", &products))
	require.Len(t, products, 2)
	assert.Equal(t, 2, products[1].UnitsSold)

	var stores []catalog.Store
	require.NoError(t, cluster.Call(ctx, addr, cluster.CmdGetAllStores, nil, &stores))
	assert.Len(t, stores, 1)

	var ack string
	criteria := catalog.Criteria{FoodCategory: "Greek", MinStars: 1, PriceCategory: catalog.TierMedium}
	require.NoError(t, cluster.Call(ctx, addr, cluster.CmdSearch,
		cluster.SearchRequest{Criteria: criteria, CorrelationID: "id-1"}, &ack))
	assert.Equal(t, "ACK", ack)
	assert.Len(t, sub.partials, 1)

	var pong string
	require.NoError(t, cluster.Call(ctx, addr, cluster.CmdPing, nil, &pong))
	assert.Equal(t, "pong", pong)

	err = cluster.Call(ctx, addr, "teleport", nil, nil)
	assert.ErrorIs(t, err, fault.ErrProtocol)

	err = cluster.Call(ctx, addr, cluster.CmdRate, "not an object", nil)
	assert.ErrorIs(t, err, fault.ErrProtocol)
}

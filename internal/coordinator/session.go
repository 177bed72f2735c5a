package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/fault"
)

// ServeClient runs one client session. Each exchange is a command, a
// payload, one reply, then a continuation token; anything other than
// cluster.Continue ends the session. exit carries an ignored payload and
// gets no reply. A failed command keeps the session
// alive; a failed read ends it.
func (c *Coordinator) ServeClient(conn *cluster.Conn) {
	session := conn.RemoteAddr()
	logger := c.log.WithField("session", session)
	logger.Info("client connected")
	defer logger.Info("client disconnected")

	for {
		var command string
		if err := conn.Receive(&command); err != nil {
			logReadError(logger, "command", err)
			return
		}
		var payload json.RawMessage
		if err := conn.Receive(&payload); err != nil {
			logReadError(logger, "payload", err)
			return
		}
		if command == cluster.CmdExit {
			return
		}

		reply := c.Execute(c.ctx, session, command, payload)
		if err := conn.Send(reply); err != nil {
			logger.WithError(err).Warn("failed to write reply")
			return
		}

		var next string
		if err := conn.Receive(&next); err != nil {
			logReadError(logger, "continuation", err)
			return
		}
		if next != cluster.Continue {
			return
		}
	}
}

func logReadError(logger *log.Entry, what string, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	logger.WithError(err).Warnf("failed to read %s", what)
}

// Execute runs one client command and returns the reply value: a status or
// report string, or a list of store views. Errors become error-shaped strings.
func (c *Coordinator) Execute(ctx context.Context, session, command string, payload json.RawMessage) any {
	reply, err := c.execute(ctx, session, command, payload)
	if err != nil {
		c.log.WithError(err).WithFields(log.Fields{
			"session": session,
			"command": command,
			"kind":    fault.Kind(err),
		}).Info("command failed")
		return fault.Reply(err)
	}
	return reply
}

func (c *Coordinator) execute(ctx context.Context, session, command string, payload json.RawMessage) (any, error) {
	switch command {
	case cluster.CmdRegister:
		var path string
		if err := decodePayload(command, payload, &path); err != nil {
			return nil, err
		}
		return c.Register(ctx, path)

	case cluster.CmdUpdate:
		var req cluster.UpdateRequest
		if err := decodePayload(command, payload, &req); err != nil {
			return nil, err
		}
		return c.status(ctx, req.StoreName, command, req)

	case cluster.CmdAddProduct:
		var req cluster.AddProductRequest
		if err := decodePayload(command, payload, &req); err != nil {
			return nil, err
		}
		return c.status(ctx, req.StoreName, command, req)

	case cluster.CmdPurchase:
		var req cluster.PurchaseRequest
		if err := decodePayload(command, payload, &req); err != nil {
			return nil, err
		}
		return c.status(ctx, req.StoreName, command, req)

	case cluster.CmdRate:
		var req cluster.RateRequest
		if err := decodePayload(command, payload, &req); err != nil {
			return nil, err
		}
		return c.status(ctx, req.StoreName, command, req)

	case cluster.CmdSalesByProduct:
		var storeName string
		if err := decodePayload(command, payload, &storeName); err != nil {
			return nil, err
		}
		var products []catalog.Product
		if err := c.routeToOwner(ctx, storeName, command, storeName, &products); err != nil {
			return nil, err
		}
		return ProductSalesReport(storeName, products), nil

	case cluster.CmdSalesByFoodCategory:
		var category string
		if err := decodePayload(command, payload, &category); err != nil {
			return nil, err
		}
		return SalesReport("Sales by Food Category: "+category, c.salesTotals(ctx, command, category)), nil

	case cluster.CmdSalesByProductType:
		var productType string
		if err := decodePayload(command, payload, &productType); err != nil {
			return nil, err
		}
		return SalesReport("Sales by Product Type: "+productType, c.salesTotals(ctx, command, productType)), nil

	case cluster.CmdGetAllStores:
		return catalog.Views(c.AllStores(ctx)), nil

	case cluster.CmdShowStores:
		var loc catalog.Location
		if err := decodePayload(command, payload, &loc); err != nil {
			return nil, err
		}
		return catalog.Views(c.ShowStores(ctx, session, loc)), nil

	case cluster.CmdSearch:
		var criteria catalog.Criteria
		if err := decodePayload(command, payload, &criteria); err != nil {
			return nil, err
		}
		stores, err := c.Search(ctx, session, criteria)
		if err != nil {
			return nil, err
		}
		return SearchReport(stores), nil

	default:
		return nil, fmt.Errorf("%w: unknown command %q", fault.ErrProtocol, command)
	}
}

func decodePayload(command string, payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return fmt.Errorf("%w: %s requires a payload", fault.ErrProtocol, command)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: malformed %s payload: %v", fault.ErrProtocol, command, err)
	}
	return nil
}

// status routes a single-store command whose reply is a status string.
func (c *Coordinator) status(ctx context.Context, storeName, command string, payload any) (string, error) {
	var msg string
	if err := c.routeToOwner(ctx, storeName, command, payload, &msg); err != nil {
		return "", err
	}
	return msg, nil
}

// Register loads the catalog file at path and stores it on its owning shard.
func (c *Coordinator) Register(ctx context.Context, path string) (string, error) {
	rec, err := c.loadStore(path)
	if err != nil {
		return "", err
	}
	return c.status(ctx, rec.Name, cluster.CmdRegister, rec)
}

// AllStores concatenates every reachable shard's stores.
func (c *Coordinator) AllStores(ctx context.Context) []catalog.Store {
	all := make([]catalog.Store, 0)
	broadcastMerge(ctx, c, cluster.CmdGetAllStores, nil, func(_ int, part []catalog.Store) {
		all = append(all, part...)
	})
	return all
}

// ShowStores records loc as the session's location and returns the stores within range of it.
func (c *Coordinator) ShowStores(ctx context.Context, session string, loc catalog.Location) []catalog.Store {
	c.locations.Set(session, loc)
	return catalog.FilterNearby(loc, c.AllStores(ctx))
}

func (c *Coordinator) salesTotals(ctx context.Context, command, key string) map[string]float64 {
	totals := make(map[string]float64)
	broadcastMerge(ctx, c, command, key, func(_ int, part map[string]float64) {
		mergeTotals(totals, part)
	})
	return totals
}

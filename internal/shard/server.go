package shard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/fault"
)

// requestTimeout bounds a single coordinator request, including the
// aggregator push a search performs.
const requestTimeout = 10 * time.Second

// AggregatorClient submits partials over the network.
type AggregatorClient struct {
	Addr string
}

// Submit pushes p and waits for the aggregator's acknowledgement.
func (a AggregatorClient) Submit(ctx context.Context, p cluster.Partial) error {
	return cluster.Push(ctx, a.Addr, p)
}

// Handler serves coordinator connections for a shard. Each connection
// carries exactly one request and one reply.
type Handler struct {
	shard *Shard
	log   *log.Entry
}

// NewHandler binds a shard to the wire protocol.
func NewHandler(s *Shard, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Handler{shard: s, log: logger.WithField("shard", s.ID)}
}

// Serve handles one connection.
func (h *Handler) Serve(conn *cluster.Conn) {
	_ = conn.SetDeadline(time.Now().Add(requestTimeout))

	var req cluster.Request
	if err := conn.Receive(&req); err != nil {
		h.log.WithError(err).WithField("remote", conn.RemoteAddr()).Warn("failed to read request")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	reply := h.dispatch(ctx, req)
	if err := conn.Send(reply); err != nil {
		h.log.WithError(err).WithField("command", req.Command).Warn("failed to write reply")
		return
	}
	h.log.WithFields(log.Fields{"command": req.Command, "ok": reply.OK}).Debug("processed request")
}

func (h *Handler) dispatch(ctx context.Context, req cluster.Request) cluster.Reply {
	s := h.shard
	switch req.Command {
	case cluster.CmdRegister:
		var rec catalog.Store
		if err := decode(req, &rec); err != nil {
			return cluster.ErrReply(err)
		}
		return status(s.Register(rec))

	case cluster.CmdUpdate:
		var u cluster.UpdateRequest
		if err := decode(req, &u); err != nil {
			return cluster.ErrReply(err)
		}
		return status(s.Update(u))

	case cluster.CmdAddProduct:
		var a cluster.AddProductRequest
		if err := decode(req, &a); err != nil {
			return cluster.ErrReply(err)
		}
		return status(s.AddProduct(a))

	case cluster.CmdPurchase:
		var p cluster.PurchaseRequest
		if err := decode(req, &p); err != nil {
			return cluster.ErrReply(err)
		}
		return status(s.Purchase(p))

	case cluster.CmdRate:
		var r cluster.RateRequest
		if err := decode(req, &r); err != nil {
			return cluster.ErrReply(err)
		}
		return status(s.Rate(r))

	case cluster.CmdSalesByProduct:
		var name string
		if err := decode(req, &name); err != nil {
			return cluster.ErrReply(err)
		}
		products, err := s.Products(name)
		if err != nil {
			return cluster.ErrReply(err)
		}
		return data(products)

	case cluster.CmdSalesByFoodCategory:
		var category string
		if err := decode(req, &category); err != nil {
			return cluster.ErrReply(err)
		}
		return data(s.SalesByFoodCategory(category))

	case cluster.CmdSalesByProductType:
		var typ string
		if err := decode(req, &typ); err != nil {
			return cluster.ErrReply(err)
		}
		return data(s.SalesByProductType(typ))

	case cluster.CmdGetAllStores:
		return data(s.AllStores())

	case cluster.CmdSearch:
		var sr cluster.SearchRequest
		if err := decode(req, &sr); err != nil {
			return cluster.ErrReply(err)
		}
		n, err := s.Search(ctx, sr)
		if err != nil {
			h.log.WithError(err).WithField("correlation_id", sr.CorrelationID).Warn("failed to submit partial")
			return cluster.ErrReply(err)
		}
		h.log.WithFields(log.Fields{"correlation_id": sr.CorrelationID, "matched": n}).Debug("partial submitted")
		return data("ACK")

	case cluster.CmdPing:
		return data(s.Ping())

	case cluster.CmdStats:
		return data(s.Info())

	default:
		return cluster.ErrReply(fmt.Errorf("%w: unknown command %q", fault.ErrProtocol, req.Command))
	}
}

func decode(req cluster.Request, v any) error {
	if len(req.Payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", fault.ErrProtocol, req.Command)
	}
	if err := json.Unmarshal(req.Payload, v); err != nil {
		return fmt.Errorf("%w: malformed %s payload: %v", fault.ErrProtocol, req.Command, err)
	}
	return nil
}

func status(msg string, err error) cluster.Reply {
	if err != nil {
		return cluster.ErrReply(err)
	}
	return data(msg)
}

func data(v any) cluster.Reply {
	reply, err := cluster.OKReply(v)
	if err != nil {
		return cluster.ErrReply(fmt.Errorf("%w: encoding reply: %v", fault.ErrProtocol, err))
	}
	return reply
}

package cluster

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/fault"
)

// Commands understood by the coordinator (from clients) and by shards.
const (
	CmdRegister            = "register"
	CmdUpdate              = "update"
	CmdAddProduct          = "add_product"
	CmdSalesByProduct      = "sales_by_product"
	CmdSalesByFoodCategory = "sales_by_food_category"
	CmdSalesByProductType  = "sales_by_product_type"
	CmdGetAllStores        = "get_all_stores"
	CmdShowStores          = "show_stores"
	CmdPurchase            = "purchase"
	CmdRate                = "rate"
	CmdSearch              = "search"
	CmdExit                = "exit"

	// Shard-only commands used by the coordinator's health monitor and admin API.
	CmdPing  = "ping"
	CmdStats = "stats"
)

// Continue is the affirmative continuation token a client sends after each reply.
const Continue = "yes"

// Worker is one entry of the shard roster. Its position in the roster is its shard id.
type Worker struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// Addr returns host:port.
func (w Worker) Addr() string {
	return net.JoinHostPort(w.Host, strconv.Itoa(w.Port))
}

// ParseWorker parses "host:port".
func ParseWorker(s string) (Worker, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Worker{}, fmt.Errorf("invalid worker address %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Worker{}, fmt.Errorf("invalid worker port %q: %w", s, err)
	}
	return Worker{Host: host, Port: port}, nil
}

// Request is what the coordinator sends to a shard, one per connection.
type Request struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply is a shard's answer to a Request.
type Reply struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Kind  string          `json:"kind,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OKReply wraps data into a successful reply.
func OKReply(data any) (Reply, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Reply{}, err
	}
	return Reply{OK: true, Data: raw}, nil
}

// ErrReply wraps err into a failed reply, keeping its taxonomy kind.
func ErrReply(err error) Reply {
	return Reply{Error: err.Error(), Kind: fault.Kind(err)}
}

// Err rebuilds the error carried by a failed reply.
func (r Reply) Err() error {
	if r.OK {
		return nil
	}
	return fault.FromKind(r.Kind, r.Error)
}

// UpdateRequest is the update command payload.
type UpdateRequest struct {
	StoreName   string   `json:"storeName"`
	ProductName string   `json:"productName"`
	Price       *float64 `json:"price,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
	Remove      bool     `json:"remove,omitempty"`
}

// AddProductRequest is the add_product command payload.
type AddProductRequest struct {
	StoreName       string  `json:"storeName"`
	ProductName     string  `json:"productName"`
	ProductType     string  `json:"productType"`
	ProductImage    string  `json:"productImage,omitempty"`
	AvailableAmount int     `json:"availableAmount"`
	Price           float64 `json:"price"`
}

// PurchaseRequest is the purchase command payload.
type PurchaseRequest struct {
	StoreName   string `json:"storeName"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// RateRequest is the rate command payload.
type RateRequest struct {
	StoreName string `json:"storeName"`
	Stars     int    `json:"stars"`
}

// SearchRequest is what the coordinator broadcasts to shards for a search.
type SearchRequest struct {
	Criteria      catalog.Criteria `json:"criteria"`
	CorrelationID string           `json:"correlationId"`
}

// Partial is one shard's contribution to a search, pushed to the aggregator.
// It repeats the criteria so the aggregator can re-check every match.
type Partial struct {
	CorrelationID string           `json:"correlationId"`
	ShardID       int              `json:"shardId"`
	Criteria      catalog.Criteria `json:"criteria"`
	Stores        []catalog.Store  `json:"stores"`
}

// SearchResult is the merged search outcome the aggregator delivers to the coordinator.
type SearchResult struct {
	CorrelationID string          `json:"correlationId"`
	Stores        []catalog.Store `json:"stores"`
}

// Ack confirms delivery of a one-way message.
type Ack struct {
	OK bool `json:"ok"`
}

// ShardStats is the stats command reply.
type ShardStats struct {
	ShardID  int               `json:"shardId"`
	Stores   int               `json:"stores"`
	Products int               `json:"products"`
	Ops      map[string]uint64 `json:"operations"`
}

package shard

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync/atomic"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/fault"
	"github.com/dreamware/storegrid/internal/storage"
)

// Bucket maps a store name to a shard id in [0, numShards).
// Returns -1 when numShards is not positive.
func Bucket(name string, numShards int) int {
	if numShards <= 0 {
		return -1
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return int(h.Sum32() % uint32(numShards))
}

// Submitter delivers a search partial to the aggregator.
type Submitter interface {
	Submit(ctx context.Context, p cluster.Partial) error
}

// OperationStats counts handled commands by name.
// The map is fixed at construction; only the counters change.
type OperationStats struct {
	counts map[string]*atomic.Uint64
}

func newOperationStats() *OperationStats {
	s := &OperationStats{counts: make(map[string]*atomic.Uint64)}
	for _, cmd := range []string{
		cluster.CmdRegister, cluster.CmdUpdate, cluster.CmdAddProduct,
		cluster.CmdPurchase, cluster.CmdRate, cluster.CmdSalesByProduct,
		cluster.CmdSalesByFoodCategory, cluster.CmdSalesByProductType,
		cluster.CmdGetAllStores, cluster.CmdSearch, cluster.CmdPing,
	} {
		s.counts[cmd] = new(atomic.Uint64)
	}
	return s
}

func (s *OperationStats) inc(cmd string) {
	if c, ok := s.counts[cmd]; ok {
		c.Add(1)
	}
}

// Snapshot returns the current counters.
func (s *OperationStats) Snapshot() map[string]uint64 {
	out := make(map[string]uint64, len(s.counts))
	for cmd, c := range s.counts {
		out[cmd] = c.Load()
	}
	return out
}

// Shard is one partition of the catalog.
type Shard struct {
	ID        int             // Position in the worker roster
	Store     storage.Store   // Owned store records
	Stats     *OperationStats // Handled command counts
	submitter Submitter
}

// NewShard creates a shard with an empty in-memory container.
// submitter may be nil for shards that never take part in searches.
func NewShard(id int, submitter Submitter) *Shard {
	return &Shard{
		ID:        id,
		Store:     storage.NewMemoryStore(),
		Stats:     newOperationStats(),
		submitter: submitter,
	}
}

// Register inserts rec if no store with that name exists on this shard.
func (s *Shard) Register(rec catalog.Store) (string, error) {
	s.Stats.inc(cluster.CmdRegister)
	if err := rec.Validate(); err != nil {
		return "", err
	}
	rec.RecomputePriceCategory()
	if err := s.Store.Insert(rec); err != nil {
		return "", err
	}
	return "Store registered: " + rec.Name, nil
}

// Update changes a product price or quantity, or deactivates the product.
func (s *Shard) Update(req cluster.UpdateRequest) (string, error) {
	s.Stats.inc(cluster.CmdUpdate)
	var removed bool
	err := s.Store.Update(req.StoreName, func(st *catalog.Store) error {
		var err error
		removed, err = st.ApplyUpdate(req.ProductName, catalog.ProductUpdate{
			Price:    req.Price,
			Quantity: req.Quantity,
			Remove:   req.Remove,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	if removed {
		return "Product deactivated successfully", nil
	}
	return "Product updated successfully", nil
}

// AddProduct appends a new product to a store.
func (s *Shard) AddProduct(req cluster.AddProductRequest) (string, error) {
	s.Stats.inc(cluster.CmdAddProduct)
	if req.ProductName == "" {
		return "", fmt.Errorf("%w: product name is required", fault.ErrValidation)
	}
	p := catalog.NewProduct(req.ProductName, req.ProductType, req.ProductImage, req.AvailableAmount, req.Price)
	err := s.Store.Update(req.StoreName, func(st *catalog.Store) error {
		return st.AddProduct(p)
	})
	if err != nil {
		return "", err
	}
	return "Product added successfully", nil
}

// Purchase sells units of a product.
func (s *Shard) Purchase(req cluster.PurchaseRequest) (string, error) {
	s.Stats.inc(cluster.CmdPurchase)
	err := s.Store.Update(req.StoreName, func(st *catalog.Store) error {
		_, err := st.Purchase(req.ProductName, req.Quantity)
		return err
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Purchase successful: %dx %s", req.Quantity, req.ProductName), nil
}

// Rate folds a rating into a store's stars.
func (s *Shard) Rate(req cluster.RateRequest) (string, error) {
	s.Stats.inc(cluster.CmdRate)
	err := s.Store.Update(req.StoreName, func(st *catalog.Store) error {
		return st.Rate(req.Stars)
	})
	if err != nil {
		return "", err
	}
	return "Rating successful for store: " + req.StoreName, nil
}

// Products returns a snapshot of a store's products. Revenue per product is
// computed by the coordinator.
func (s *Shard) Products(storeName string) ([]catalog.Product, error) {
	s.Stats.inc(cluster.CmdSalesByProduct)
	st, err := s.Store.Get(storeName)
	if err != nil {
		return nil, err
	}
	return st.Products, nil
}

// SalesByFoodCategory sums active product revenue per store of the category.
func (s *Shard) SalesByFoodCategory(category string) map[string]float64 {
	s.Stats.inc(cluster.CmdSalesByFoodCategory)
	out := make(map[string]float64)
	s.Store.Each(func(st *catalog.Store) {
		if st.FoodCategory != category {
			return
		}
		var total float64
		for _, p := range st.Products {
			if p.Active {
				total += p.Revenue()
			}
		}
		out[st.Name] = total
	})
	return out
}

// SalesByProductType sums active product revenue of the given type per store.
// Stores without such sales are omitted.
func (s *Shard) SalesByProductType(productType string) map[string]float64 {
	s.Stats.inc(cluster.CmdSalesByProductType)
	out := make(map[string]float64)
	s.Store.Each(func(st *catalog.Store) {
		var total float64
		for _, p := range st.Products {
			if p.Active && p.Type == productType {
				total += p.Revenue()
			}
		}
		if total > 0 {
			out[st.Name] = total
		}
	})
	return out
}

// AllStores returns copies of every owned store.
func (s *Shard) AllStores() []catalog.Store {
	s.Stats.inc(cluster.CmdGetAllStores)
	return s.Store.Snapshot()
}

// Search filters owned stores and pushes the matches to the aggregator.
// It returns once the aggregator has confirmed delivery.
func (s *Shard) Search(ctx context.Context, req cluster.SearchRequest) (int, error) {
	s.Stats.inc(cluster.CmdSearch)
	if req.CorrelationID == "" {
		return 0, fmt.Errorf("%w: search without correlation id", fault.ErrProtocol)
	}
	if s.submitter == nil {
		return 0, fmt.Errorf("%w: shard %d has no aggregator configured", fault.ErrUnreachable, s.ID)
	}

	matched := make([]catalog.Store, 0)
	s.Store.Each(func(st *catalog.Store) {
		if req.Criteria.Matches(st) {
			matched = append(matched, st.Clone())
		}
	})

	partial := cluster.Partial{
		CorrelationID: req.CorrelationID,
		ShardID:       s.ID,
		Criteria:      req.Criteria,
		Stores:        matched,
	}
	if err := s.submitter.Submit(ctx, partial); err != nil {
		return 0, err
	}
	return len(matched), nil
}

// Ping answers a liveness probe.
func (s *Shard) Ping() string {
	s.Stats.inc(cluster.CmdPing)
	return "pong"
}

// Info reports shard statistics.
func (s *Shard) Info() cluster.ShardStats {
	st := s.Store.Stats()
	return cluster.ShardStats{
		ShardID:  s.ID,
		Stores:   st.Stores,
		Products: st.Products,
		Ops:      s.Stats.Snapshot(),
	}
}

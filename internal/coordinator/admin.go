package coordinator

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/httpapi"
	"github.com/dreamware/storegrid/internal/pending"
)

// ShardStatus is one row of the /shards admin listing.
type ShardStatus struct {
	ShardAssignment
	Health *ShardHealth        `json:"health,omitempty"`
	Stats  *cluster.ShardStats `json:"stats,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Routes returns the admin HTTP API.
func (c *Coordinator) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpapi.Health)
	r.Get("/shards", c.handleShards)
	r.Get("/pending", c.handlePending)
	return r
}

func (c *Coordinator) handleShards(w http.ResponseWriter, r *http.Request) {
	health := c.healthMonitor()
	rows := make([]ShardStatus, 0, c.registry.NumShards())
	for _, a := range c.registry.GetAllAssignments() {
		row := ShardStatus{ShardAssignment: a}
		if health != nil {
			row.Health = health.GetShardHealth(a.ShardID)
		}
		rows = append(rows, row)
	}

	broadcastMerge(r.Context(), c, cluster.CmdStats, nil, func(id int, s cluster.ShardStats) {
		rows[id].Stats = &s
	})
	for i := range rows {
		if rows[i].Stats == nil {
			rows[i].Error = "unreachable"
		}
	}

	httpapi.WriteJSON(w, http.StatusOK, struct {
		NumShards int           `json:"numShards"`
		Shards    []ShardStatus `json:"shards"`
	}{
		NumShards: c.registry.NumShards(),
		Shards:    rows,
	})
}

func (c *Coordinator) handlePending(w http.ResponseWriter, _ *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, struct {
		Count   int            `json:"count"`
		Pending []pending.Info `json:"pending"`
	}{
		Count:   c.pending.Len(),
		Pending: c.pending.Pending(),
	})
}

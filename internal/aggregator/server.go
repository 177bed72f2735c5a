package aggregator

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/httpapi"
)

const (
	readTimeout     = 10 * time.Second
	deliveryTimeout = 10 * time.Second
)

// ServePartial handles one shard connection carrying a single partial.
// The shard is acknowledged as soon as the partial is recorded; delivery of
// a completed result to the coordinator happens afterwards.
func (a *Aggregator) ServePartial(conn *cluster.Conn) {
	_ = conn.SetDeadline(time.Now().Add(readTimeout))

	var p cluster.Partial
	if err := conn.Receive(&p); err != nil {
		a.log.WithError(err).WithField("remote", conn.RemoteAddr()).Warn("failed to read partial")
		return
	}
	if p.CorrelationID == "" {
		a.log.WithField("remote", conn.RemoteAddr()).Warn("rejecting partial without correlation id")
		_ = conn.Send(cluster.Ack{OK: false})
		return
	}

	res, done := a.Add(p)
	if err := conn.Send(cluster.Ack{OK: true}); err != nil {
		a.log.WithError(err).WithField("correlation_id", p.CorrelationID).Warn("failed to acknowledge partial")
	}
	if !done {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	_ = a.Deliver(ctx, res)
}

// Routes returns the admin HTTP API.
func (a *Aggregator) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpapi.Health)
	r.Get("/buckets", func(w http.ResponseWriter, _ *http.Request) {
		httpapi.WriteJSON(w, http.StatusOK, struct {
			Expected int          `json:"expected"`
			Stats    Stats        `json:"stats"`
			Buckets  []BucketInfo `json:"buckets"`
		}{
			Expected: a.expected,
			Stats:    a.Stats(),
			Buckets:  a.Buckets(),
		})
	})
	return r
}

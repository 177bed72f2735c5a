package coordinator

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/storegrid/internal/cluster"
)

const callbackReadTimeout = 10 * time.Second

// ServeCallback handles one aggregator delivery. The result is acknowledged
// whether or not a session was still waiting for it.
func (c *Coordinator) ServeCallback(conn *cluster.Conn) {
	_ = conn.SetDeadline(time.Now().Add(callbackReadTimeout))

	var res cluster.SearchResult
	if err := conn.Receive(&res); err != nil {
		c.log.WithError(err).WithField("remote", conn.RemoteAddr()).Warn("failed to read search result")
		return
	}

	delivered := c.CompleteSearch(res)
	c.log.WithFields(log.Fields{
		"correlation_id": res.CorrelationID,
		"stores":         len(res.Stores),
		"delivered":      delivered,
	}).Debug("search result received")

	if err := conn.Send(cluster.Ack{OK: true}); err != nil {
		c.log.WithError(err).WithField("correlation_id", res.CorrelationID).Warn("failed to acknowledge search result")
	}
}

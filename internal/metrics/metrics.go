// Package metrics declares the prometheus collectors shared across forumline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SnapshotFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumline_snapshot_fetches_total",
			Help: "Comment snapshot fetches by result (ok, error, redis).",
		}, []string{"result"})
	StaleSnapshots = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forumline_snapshot_stale_total",
			Help: "Fetched snapshots discarded because a newer one was installed.",
		})
	TreeBuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forumline_tree_builds_total",
			Help: "Comment trees rendered.",
		})
	Votes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumline_votes_total",
			Help: "Votes applied by target.",
		}, []string{"target"})
	CommentsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forumline_comments_submitted_total",
			Help: "Comments accepted by the store.",
		})
	WatchComments = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forumline_watch_comments",
			Help: "Comment count per watched publication at the last refresh.",
		}, []string{"pub"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

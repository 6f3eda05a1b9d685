package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// PostsCreated counts successfully persisted posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_posts_created_total",
		Help: "Total number of posts created",
	})

	// PostViews counts single-post reads that incremented a view counter.
	PostViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_post_views_total",
		Help: "Total number of post views recorded",
	})

	// AuthAttempts counts register and login outcomes.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_attempts_total",
		Help: "Authentication attempts by action and outcome",
	}, []string{"action", "outcome"})

	// NotificationsDelivered counts sink deliveries by sink and outcome.
	NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_notifications_total",
		Help: "Notification deliveries by sink and outcome",
	}, []string{"sink", "outcome"})

	// FeedConnections is the gauge of open websocket feed connections.
	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_feed_connections",
		Help: "Number of open websocket feed connections",
	})

	// FeedDrops counts feed messages dropped because a client buffer was full or closed.
	FeedDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_feed_drops_total",
		Help: "Total number of feed messages dropped",
	}, []string{"reason"})
)

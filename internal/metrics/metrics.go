package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Sweeps and the ledger
	SweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeps_total",
			Help: "Global due-debt sweeps by outcome",
		},
		[]string{"result"}, // ok|error
	)
	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications written to the ledger",
		},
		[]string{"source"}, // sweep|inbox
	)

	// Delivery
	PushMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_messages_total",
			Help: "Push messages by outcome",
		},
		[]string{"result"}, // sent|invalid_token|failed
	)
	PushBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_batches_total",
			Help: "Push provider calls by outcome",
		},
		[]string{"result"}, // ok|error
	)
	ChatMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Telegram messages by outcome",
		},
		[]string{"result"}, // sent|failed
	)

	// Telegram linking
	LinkCodesIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "link_codes_issued_total",
			Help: "Telegram link codes minted",
		},
	)
	LinkCodesPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "link_codes_pending",
			Help: "Link codes currently held in memory",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
	WorkerPanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_panics_total",
			Help: "Worker tasks that panicked",
		},
	)

	initOnce sync.Once
)

// /metrics endpoint handler
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			SweepsTotal,
			NotificationsCreated,
			PushMessagesTotal,
			PushBatchesTotal,
			ChatMessagesTotal,
			LinkCodesIssued,
			LinkCodesPending,
			WorkerQueueDepth,
			WorkerPanicsTotal,
		)
	})
}

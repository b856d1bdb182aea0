package metrics

import (
	"time"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

var Provider = wire.NewSet(NewRegistry, wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)), New)

const namespace = "taskflow"

// Metrics 业务指标。nil 接收者上的方法都是空操作
type Metrics struct {
	transitions    *prometheus.CounterVec
	events         *prometheus.CounterVec
	runs           *prometheus.CounterVec
	runItems       *prometheus.CounterVec
	runDuration    prometheus.Histogram
	deliveries     *prometheus.CounterVec
	pendingBacklog prometheus.Gauge
}

// NewRegistry 独立注册表，附带 go/process 采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Workflow actions by action and result.",
		}, []string{"action", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_events_total",
			Help:      "Task events created by type.",
		}, []string{"type"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_runs_total",
			Help:      "Recurring task engine runs by status.",
		}, []string{"status", "dry_run"}),
		runItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_run_items_total",
			Help:      "Per-template outcomes of the recurring task engine.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recurring_run_duration_seconds",
			Help:      "Duration of recurring task engine runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "External channel delivery attempts by result.",
		}, []string{"channel", "result"}),
		pendingBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_pending_batch",
			Help:      "Pending deliveries picked up by the last dispatch cycle.",
		}),
	}
	reg.MustRegister(m.transitions, m.events, m.runs, m.runItems, m.runDuration, m.deliveries, m.pendingBacklog)
	return m
}

// NewNop 测试用，注册到一次性注册表
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) Transition(action string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, result(err)).Inc()
}

func (m *Metrics) EventCreated(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RunFinished(status string, dryRun bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	dry := "false"
	if dryRun {
		dry = "true"
	}
	m.runs.WithLabelValues(status, dry).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RunItem(outcome string) {
	if m == nil {
		return
	}
	m.runItems.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Delivery(channel string, err error) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel, result(err)).Inc()
}

func (m *Metrics) PendingBatch(n int) {
	if m == nil {
		return
	}
	m.pendingBacklog.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

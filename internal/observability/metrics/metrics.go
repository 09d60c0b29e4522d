package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "alarmhub_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	opsTotal  *prometheus.CounterVec
	opLatency *prometheus.HistogramVec

	dueReported     *prometheus.CounterVec
	snoozesTotal    prometheus.Counter
	sweepDeleted    prometheus.Counter
	exportsTotal    *prometheus.CounterVec
	loginTotal      *prometheus.CounterVec
	recurrenceTotal *prometheus.CounterVec
)

// Init registers service metrics and DB-backed gauges. Safe to call once.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		opsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_ops_total",
				Help: "Total alarm lifecycle operations by op and result",
			},
			[]string{"op", "result"},
		)
		opLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "alarm_op_latency_seconds",
				Help:    "Alarm lifecycle operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		)
		dueReported = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "due_alarms_total",
				Help: "Due alarms seen by the periodic check, by disposition",
			},
			[]string{"disposition"},
		)
		snoozesTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "snoozes_total",
				Help: "Total snooze operations",
			},
		)
		sweepDeleted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "retention_deleted_total",
				Help: "Archived alarms removed by the retention sweep",
			},
		)
		exportsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "history_exports_total",
				Help: "History exports by format and result",
			},
			[]string{"format", "result"},
		)
		loginTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		)
		recurrenceTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "recurrence_computations_total",
				Help: "Recurrence advancements by kind",
			},
			[]string{"kind"},
		)

		prometheus.MustRegister(
			opsTotal,
			opLatency,
			dueReported,
			snoozesTotal,
			sweepDeleted,
			exportsTotal,
			loginTotal,
			recurrenceTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveOp records one lifecycle operation.
func ObserveOp(op string, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if opsTotal != nil {
		opsTotal.WithLabelValues(op, result).Inc()
	}
	if opLatency != nil {
		opLatency.WithLabelValues(op).Observe(duration.Seconds())
	}
}

// IncDue counts a due alarm by how the periodic check handled it.
func IncDue(disposition string) {
	if disposition == "" {
		disposition = "unknown"
	}
	if dueReported != nil {
		dueReported.WithLabelValues(disposition).Inc()
	}
}

// IncSnooze counts a snooze.
func IncSnooze() {
	if snoozesTotal != nil {
		snoozesTotal.Inc()
	}
}

// AddSweepDeleted adds to the retention deletion counter.
func AddSweepDeleted(count int64) {
	if count <= 0 {
		return
	}
	if sweepDeleted != nil {
		sweepDeleted.Add(float64(count))
	}
}

// IncExport counts a history export.
func IncExport(format string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if exportsTotal != nil {
		exportsTotal.WithLabelValues(format, result).Inc()
	}
}

// IncLogin counts a login attempt.
func IncLogin(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	if loginTotal != nil {
		loginTotal.WithLabelValues(result).Inc()
	}
}

// IncRecurrence counts a recurrence advancement by kind.
func IncRecurrence(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if recurrenceTotal != nil {
		recurrenceTotal.WithLabelValues(kind).Inc()
	}
}

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "active_alarms",
			Help: "Scheduled alarms currently active",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM alarms WHERE status IN ('active', 'Ativo', '0')")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "archived_alarms",
			Help: "Resolved alarms awaiting retention",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM alarms WHERE status IN ('fired', 'DisparadoVisto', '1', '2', '3')")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Triage pipeline metrics
	PatientsAdmitted    *prometheus.CounterVec
	PatientsRerouted    prometheus.Counter
	PatientsDischarged  prometheus.Counter
	PatientsTransferred prometheus.Counter
	ClassifierErrors    prometheus.Counter
	ScoringLatency      prometheus.Histogram
	QueueDepth          prometheus.Gauge
	DepartmentLoad      *prometheus.GaugeVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PatientsAdmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patients_admitted_total",
			Help:      "Total number of patients admitted through triage",
		}, []string{"risk_level"}),
		PatientsRerouted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patients_rerouted_total",
			Help:      "Total number of patients rerouted due to department overload",
		}),
		PatientsDischarged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patients_discharged_total",
			Help:      "Total number of patients discharged",
		}),
		PatientsTransferred: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patients_transferred_total",
			Help:      "Total number of patient transfers between departments",
		}),
		ClassifierErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_errors_total",
			Help:      "Total number of failed risk classifier calls",
		}),
		ScoringLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Time spent on the validate-classify-score-route pipeline",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current number of active patients in the priority queue",
		}),
		DepartmentLoad: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "department_load_percent",
			Help:      "Current load percentage per department",
		}, []string{"department"}),

		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

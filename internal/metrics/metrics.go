package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SymptomRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minirag_symptom_requests_total",
			Help: "Symptom analysis requests by outcome and urgency",
		},
		[]string{"outcome", "urgency"},
	)

	EmergencyShortCircuits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minirag_emergency_short_circuits_total",
			Help: "Requests answered by the emergency keyword check without retrieval",
		},
	)

	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minirag_processing_duration_seconds",
			Help:    "Duration of symptom processing in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"path"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minirag_retry_attempts_total",
			Help: "Retries scheduled after a failed attempt",
		},
		[]string{"operation"},
	)

	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minirag_embedding_cache_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	RetrieverReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minirag_retriever_ready",
			Help: "1 when the knowledge retriever is initialized",
		},
	)

	KnowledgeDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minirag_knowledge_documents",
			Help: "Documents in the knowledge collection",
		},
	)

	FeedbackReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minirag_feedback_total",
			Help: "Feedback submissions by rating",
		},
		[]string{"rating"},
	)
)

package analytics

import (
	"errors"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	engineOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profitlens_engine_operations_total",
		Help: "Analytic engine operations by result.",
	}, []string{"engine", "result"})

	engineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "profitlens_engine_operation_duration_seconds",
		Help:    "Duration of analytic engine operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"engine"})

	decisionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profitlens_decisions_generated_total",
		Help: "Decisions produced by the decision engine.",
	}, []string{"type"})
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrNotYetEvaluable):
		return "not_yet_evaluable"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// observe records one engine operation. Call it deferred with a pointer to the
// named error result.
func observe(engine string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	engineOperations.WithLabelValues(engine, resultLabel(err)).Inc()
	engineDuration.WithLabelValues(engine).Observe(time.Since(start).Seconds())
}

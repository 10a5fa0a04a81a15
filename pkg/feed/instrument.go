package feed

import (
	"errors"
	"time"
)

// Outcomes reported to Metrics
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDetached = "detached"
	OutcomeSkipped  = "skipped"
	OutcomeRollback = "rolled_back"
)

// Metrics receives engine measurements. internal/metrics provides the
// Prometheus implementation.
type Metrics interface {
	ObserveRequest(op, outcome string, d time.Duration)
	LikeReconciled(outcome string)
	EventDropped(kind string)
	PostsLoaded(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, string, time.Duration) {}
func (nopMetrics) LikeReconciled(string)                        {}
func (nopMetrics) EventDropped(string)                          {}
func (nopMetrics) PostsLoaded(int)                              {}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrDetached):
		return OutcomeDetached
	default:
		return OutcomeError
	}
}

package starttracker

import (
	"time"

	"github.com/bathbot/entitycache/config"
)

const (
	// MinEvaluationInterval is the minimum interval allowed between healthz evaluation
	MinEvaluationInterval = time.Second

	// MinErrorDuration is the minimum duration before healthz evaluates a pending startup as failing
	MinErrorDuration = 0 * time.Second

	// MinWarnDuration is the minimum duration before healthz evaluates a pending startup as warning
	MinWarnDuration = 0 * time.Second
)

// Validated returns a copy of the config with the minimum values enforced
func Validated(sc config.StartTracker) config.StartTracker {
	if sc.EvaluationInterval < MinEvaluationInterval {
		sc.EvaluationInterval = MinEvaluationInterval
	}
	if sc.ErrorDuration < MinErrorDuration {
		sc.ErrorDuration = MinErrorDuration
	}
	if sc.WarnDuration < MinWarnDuration {
		sc.WarnDuration = MinWarnDuration
	}
	return sc
}

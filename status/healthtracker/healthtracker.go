// Package healthtracker turns a sequence of successes and failures of an
// activity into healthz checks.
package healthtracker

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wojas/go-healthz"
	"go.uber.org/atomic"

	"github.com/bathbot/entitycache/config"
)

type HealthTracker struct {
	Config   config.HealthTracker
	sequence atomic.Uint32
	since    atomic.Time
	prefix   string
	activity string
	logger   logrus.FieldLogger
	now      func() time.Time
}

// New creates a tracker. It only affects healthz after Register is called.
func New(hc config.HealthTracker, prefix string, activity string, l logrus.FieldLogger) *HealthTracker {
	return &HealthTracker{
		Config:   Validated(hc),
		prefix:   prefix,
		activity: activity,
		logger:   l.WithField("healthtracker", prefix),
		now:      time.Now,
	}
}

// Register registers the sequence and the duration checks with healthz
func (ht *HealthTracker) Register() {
	healthz.Register(fmt.Sprintf("%s_failed_attempts", ht.prefix), ht.Config.EvaluationInterval, ht.checkSequence)
	healthz.Register(fmt.Sprintf("%s_failed_duration", ht.prefix), ht.Config.EvaluationInterval, ht.checkDuration)
	ht.logger.Info("Registered health checks")
}

func (ht *HealthTracker) checkSequence() error {
	conseqFails := ht.sequence.Load()

	if conseqFails >= ht.Config.ErrorSequence {
		ht.logger.Warnf("%d consecutive failures is violating the error threshold (%d)", conseqFails, ht.Config.ErrorSequence)
		return fmt.Errorf("failed to %s %d consecutive times", ht.activity, conseqFails)
	} else if conseqFails >= ht.Config.WarnSequence {
		ht.logger.Warnf("%d consecutive failures is violating the warning threshold (%d)", conseqFails, ht.Config.WarnSequence)
		return healthz.Warnf("failed to %s %d consecutive times", ht.activity, conseqFails)
	}
	return nil
}

func (ht *HealthTracker) checkDuration() error {
	conseqFails := ht.sequence.Load()
	if conseqFails == 0 {
		return nil
	}
	failingFor := ht.now().Sub(ht.since.Load()).Round(time.Second)

	if failingFor >= ht.Config.ErrorDuration {
		ht.logger.Warnf("failure for %s is violating the error threshold (%s)", failingFor, ht.Config.ErrorDuration)
		return fmt.Errorf("failed to %s for %s", ht.activity, failingFor)
	} else if failingFor >= ht.Config.WarnDuration {
		ht.logger.Warnf("failure for %s is violating the warning threshold (%s)", failingFor, ht.Config.WarnDuration)
		return healthz.Warnf("failed to %s for %s", ht.activity, failingFor)
	}
	return nil
}

func (ht *HealthTracker) AddFailure() {
	if ht.sequence.Load() == 0 {
		ht.since.Store(ht.now())
	}
	failures := ht.sequence.Inc()
	ht.logger.Debugf("Incremented consecutive failures to %d", failures)
}

func (ht *HealthTracker) AddSuccess() {
	if ht.sequence.Swap(0) > 0 {
		ht.logger.Debug("Tracked successful attempt, failures reset")
	}
}

// Failures returns the current number of consecutive failures
func (ht *HealthTracker) Failures() uint32 {
	return ht.sequence.Load()
}

// Package starttracker reports through healthz whether all startup stages of
// the service passed.
package starttracker

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wojas/go-healthz"
	"go.uber.org/atomic"

	"github.com/bathbot/entitycache/config"
)

// Stages of the serve command
const (
	StageStoreOpened = "store_opened"
	StageFirstStats  = "first_stats"
	StageHTTPStarted = "http_started"
)

type StartTracker struct {
	Config config.StartTracker
	since  atomic.Time
	prefix string
	logger logrus.FieldLogger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]bool
}

// New creates a tracker that waits for all given stages. It only affects
// healthz after Register is called.
func New(sc config.StartTracker, prefix string, l logrus.FieldLogger, stages ...string) *StartTracker {
	st := &StartTracker{
		Config:  Validated(sc),
		prefix:  prefix,
		logger:  l.WithField("starttracker", prefix),
		now:     time.Now,
		pending: make(map[string]bool, len(stages)),
	}
	for _, s := range stages {
		st.pending[s] = true
	}
	st.since.Store(st.now())
	return st
}

func (st *StartTracker) name() string {
	return fmt.Sprintf("%s_startup_in_progress", st.prefix)
}

// Register registers the startup check with healthz. The check deregisters
// itself once startup completed.
func (st *StartTracker) Register() {
	if st.Config.ReportMetadata {
		healthz.SetMeta("startupCompleted", false)
	}
	healthz.Register(st.name(), st.Config.EvaluationInterval, func() error {
		if err := st.check(); err != nil {
			return err
		}
		if !st.Completed() {
			return nil
		}
		if st.Config.ReportMetadata {
			healthz.SetMeta("startupCompleted", true)
		}
		healthz.Deregister(st.name())
		return nil
	})
	st.logger.Info("Registered tracker for startup phase")
}

// check returns an error if the startup is pending for too long
func (st *StartTracker) check() error {
	pending := st.Pending()
	if len(pending) == 0 || !st.Config.ReportHealthz {
		return nil
	}
	pendingFor := st.now().Sub(st.since.Load()).Round(time.Second)
	list := strings.Join(pending, ", ")
	if pendingFor >= st.Config.ErrorDuration {
		st.logger.Debugf("Startup pending after %s is violating the error threshold (%s)", pendingFor, st.Config.ErrorDuration)
		return fmt.Errorf("startup pending after %s: %s", pendingFor, list)
	} else if pendingFor >= st.Config.WarnDuration {
		st.logger.Debugf("Startup pending after %s is violating the warning threshold (%s)", pendingFor, st.Config.WarnDuration)
		return healthz.Warnf("startup pending after %s: %s", pendingFor, list)
	}
	return nil
}

// Pass marks a stage as passed
func (st *StartTracker) Pass(stage string) {
	st.mu.Lock()
	delete(st.pending, stage)
	done := len(st.pending) == 0
	st.mu.Unlock()

	st.logger.WithField("stage", stage).Debug("Tracked startup stage")
	if done {
		st.logger.Info("Startup phase completed successfully")
	}
}

// Pending returns the sorted stages that did not pass yet
func (st *StartTracker) Pending() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	var res []string
	for s := range st.pending {
		res = append(res, s)
	}
	sort.Strings(res)
	return res
}

func (st *StartTracker) Completed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.pending) == 0
}

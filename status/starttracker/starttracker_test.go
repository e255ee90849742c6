package starttracker

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/bathbot/entitycache/config"
)

func TestStartTracker(t *testing.T) {
	l, _ := test.NewNullLogger()
	now := time.Unix(1700000000, 0)
	st := New(config.StartTracker{
		ErrorDuration: time.Minute,
		WarnDuration:  10 * time.Second,
		ReportHealthz: true,
	}, "serve", l, StageStoreOpened, StageFirstStats)
	st.now = func() time.Time { return now }
	st.since.Store(now)

	assert.Equal(t, MinEvaluationInterval, st.Config.EvaluationInterval)
	assert.Equal(t, []string{StageFirstStats, StageStoreOpened}, st.Pending())
	assert.NoError(t, st.check())

	now = now.Add(20 * time.Second)
	assert.ErrorContains(t, st.check(), "startup pending after 20s: first_stats, store_opened")

	st.Pass(StageStoreOpened)
	now = now.Add(time.Minute)
	assert.ErrorContains(t, st.check(), "startup pending after 1m20s: first_stats")
	assert.False(t, st.Completed())

	st.Pass(StageFirstStats)
	assert.True(t, st.Completed())
	assert.NoError(t, st.check())
}

func TestStartTracker_noReport(t *testing.T) {
	l, _ := test.NewNullLogger()
	st := New(config.StartTracker{}, "serve", l, StageStoreOpened)
	st.since.Store(time.Unix(0, 0))
	assert.NoError(t, st.check())
}

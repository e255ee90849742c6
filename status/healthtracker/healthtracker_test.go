package healthtracker

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/bathbot/entitycache/config"
)

func TestHealthTracker(t *testing.T) {
	l, _ := test.NewNullLogger()
	now := time.Unix(1700000000, 0)
	ht := New(config.HealthTracker{
		ErrorDuration: time.Minute,
		WarnDuration:  10 * time.Second,
		ErrorSequence: 3,
		WarnSequence:  1,
	}, "store", "reach store", l)
	ht.now = func() time.Time { return now }

	assert.Equal(t, MinEvaluationInterval, ht.Config.EvaluationInterval)
	assert.NoError(t, ht.checkSequence())
	assert.NoError(t, ht.checkDuration())

	ht.AddFailure()
	assert.EqualValues(t, 1, ht.Failures())
	assert.ErrorContains(t, ht.checkSequence(), "failed to reach store 1 consecutive times")
	assert.NoError(t, ht.checkDuration())

	now = now.Add(20 * time.Second)
	assert.ErrorContains(t, ht.checkDuration(), "failed to reach store for 20s")

	ht.AddFailure()
	ht.AddFailure()
	err := ht.checkSequence()
	assert.EqualError(t, err, "failed to reach store 3 consecutive times")

	now = now.Add(time.Minute)
	assert.EqualError(t, ht.checkDuration(), "failed to reach store for 1m20s")

	ht.AddSuccess()
	assert.EqualValues(t, 0, ht.Failures())
	assert.NoError(t, ht.checkSequence())
	assert.NoError(t, ht.checkDuration())
}

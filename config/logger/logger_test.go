package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Check(t *testing.T) {
	assert.NoError(t, DefaultConfig.Check())

	tests := []struct {
		name string
		c    Config
		err  string
	}{
		{"level", Config{Level: "loud", Format: "human"}, "log.level"},
		{"format", Config{Level: "info", Format: "xml"}, "log.format"},
		{"timestamp", Config{Level: "info", Format: "json", Timestamp: "iso"}, "log.timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.c.Check(), tt.err)
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	c := DefaultConfig.Merge(Config{Level: "debug"})
	assert.Equal(t, Config{Level: "debug", Format: "human", Timestamp: "short"}, c)
}

func TestConfigure(t *testing.T) {
	l := logrus.New()
	Configure(l, Config{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	Configure(l, Config{Level: "warning", Format: "logfmt"})
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}

func TestComponentFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&ComponentFormatter{Parent: &logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
	}})

	l.WithFields(logrus.Fields{"component": "cache", "kind": "guild", "key": "guild:1"}).Info("Patched")
	out := buf.String()
	assert.Contains(t, out, `msg="[cache/guild ] Patched"`)
	assert.Contains(t, out, "key=\"guild:1\"")
	assert.NotContains(t, out, "component=")

	buf.Reset()
	l.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")

	require.IsType(t, &ComponentFormatter{}, DefaultConfig.Formatter())
}

package storage

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/bathbot/entitycache/config"
)

func TestNamespace(t *testing.T) {
	assert.Equal(t, "member", Namespace("member:1:2"))
	assert.Equal(t, "guild", Namespace("guild:10"))
	assert.Equal(t, "plain", Namespace("plain"))
	assert.Equal(t, "", Namespace(":x"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "member:1:2", Key("member", "1", "2"))
	assert.Equal(t, "current_user:self", Key("current_user", "self"))
}

func TestGetBackend(t *testing.T) {
	l := logrus.New()
	_, err := GetBackend(config.Storage{}, l)
	assert.Error(t, err)
	_, err = GetBackend(config.Storage{Type: "unknown"}, l)
	assert.Error(t, err)

	called := false
	RegisterBackend("test-backend", func(st config.Storage, l logrus.FieldLogger) (Interface, error) {
		called = true
		return nil, nil
	})
	_, err = GetBackend(config.Storage{Type: "test-backend"}, l)
	assert.NoError(t, err)
	assert.True(t, called)
}

// Package storage defines the key-value store contract the cache is built on
// and keeps the registry of backends.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bathbot/entitycache/config"
)

// UpdateFunc computes the new value from the current value. It may modify
// val in place and return it. If it returns an error, it must not have
// modified val, and nothing is stored.
type UpdateFunc func(val []byte) ([]byte, error)

// RangeFunc is called for every entry visited by Range. val is only valid
// during the call and must not be modified. Returning an error stops the
// iteration. The function must not call back into the store.
type RangeFunc func(key string, val []byte) error

// Interface defines the interface storage backends need to implement.
// Absent and expired keys are reported as os.ErrNotExist.
type Interface interface {
	// Get returns a copy of the value
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a copy of val. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Update atomically replaces the value of an existing key with the
	// result of fn. The expiration of the key is kept.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Count returns the number of unexpired keys in a namespace
	Count(ctx context.Context, namespace string) (int, error)
	// Range calls fn for every key of the namespace starting with prefix,
	// in key order. The prefix does not include the namespace.
	Range(ctx context.Context, namespace, prefix string, fn RangeFunc) error
	// Namespaces returns all namespaces holding unexpired keys, sorted
	Namespaces(ctx context.Context) ([]string, error)
	Close() error
}

// Namespace returns the namespace of a key: the part before the first colon.
func Namespace(key string) string {
	ns, _, _ := strings.Cut(key, ":")
	return ns
}

// Key joins a namespace and the parts of an id into a key
func Key(namespace string, parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

type InitFunc func(st config.Storage, l logrus.FieldLogger) (Interface, error)

var backends = make(map[string]InitFunc)

func RegisterBackend(typeName string, initFunc InitFunc) {
	backends[typeName] = initFunc
}

func GetBackend(sc config.Storage, l logrus.FieldLogger) (Interface, error) {
	if sc.Type == "" {
		return nil, fmt.Errorf("no storage.type configured")
	}
	initFunc, exists := backends[sc.Type]
	if !exists {
		return nil, fmt.Errorf("storage.type %q not found or registered", sc.Type)
	}
	return initFunc(sc, l)
}

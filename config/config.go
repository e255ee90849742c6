// Package config implements the YAML config file parser
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/bathbot/entitycache/config/logger"
	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/lmdbenv"
)

// DefaultMetricsInterval is the default interval between two cache stats
// refreshes
const DefaultMetricsInterval = 30 * time.Second

// DefaultLMDBLogStatsInterval is the default interval for logging LMDB stats
const DefaultLMDBLogStatsInterval = time.Minute

// Config is the config root object
type Config struct {
	Storage Storage       `yaml:"storage"`
	Cache   Cache         `yaml:"cache"`
	Sweeper Sweeper       `yaml:"sweeper"`
	HTTP    HTTP          `yaml:"http"`
	Health  Health        `yaml:"health"`
	Export  Export        `yaml:"export"`
	Log     logger.Config `yaml:"log"`

	// Set to current version by main
	Version string `yaml:"-"`
}

// Storage selects and configures the backing store
type Storage struct {
	Type string `yaml:"type"` // "memory" or "lmdb"
	LMDB LMDB   `yaml:"lmdb"`
}

// LMDB configures the LMDB database
type LMDB struct {
	Path             string          `yaml:"path"` // Path to directory holding data.mdb, or mdb file if NoSubdir
	Options          lmdbenv.Options `yaml:"options"`
	LogStats         bool            `yaml:"log_stats"`
	LogStatsInterval time.Duration   `yaml:"log_stats_interval"`
}

// Cache configures the cache facade
type Cache struct {
	// Ignore lists the kinds that are never cached
	Ignore          []entity.Kind `yaml:"ignore"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

// Sweeper configures the eviction of expired LMDB entries
type Sweeper struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	FirstInterval time.Duration `yaml:"first_interval"`
	// BatchSize limits the number of entries scanned per write transaction
	BatchSize int `yaml:"batch_size"`
	// LockDuration limits the time a single write transaction is held
	LockDuration time.Duration `yaml:"lock_duration"`
	// ReleaseDuration is the pause between two transactions, giving the
	// cache the opportunity to get the write lock
	ReleaseDuration time.Duration `yaml:"release_duration"`
}

// HTTP configures the HTTP server with Prometheus metrics and status page
type HTTP struct {
	Address string `yaml:"address"` // Address like ":8000"
}

// Health configures the healthz checks
type Health struct {
	// Store configures when store failures make the check fail
	Store HealthTracker `yaml:"store"`
	// Startup configures the check that fails until serve completed startup
	Startup StartTracker `yaml:"startup"`
}

type StartTracker struct {
	EvaluationInterval time.Duration `yaml:"interval"`
	ErrorDuration      time.Duration `yaml:"error_duration"`
	WarnDuration       time.Duration `yaml:"warn_duration"`
	ReportHealthz      bool          `yaml:"report_healthz"`
	ReportMetadata     bool          `yaml:"report_metadata"`
}

type HealthTracker struct {
	ErrorDuration      time.Duration `yaml:"error_duration"`
	WarnDuration       time.Duration `yaml:"warn_duration"`
	ErrorSequence      uint32        `yaml:"error_sequence"`
	WarnSequence       uint32        `yaml:"warn_sequence"`
	EvaluationInterval time.Duration `yaml:"interval"`
}

// Export configures the blob storage used by the export and import commands
type Export struct {
	Type    string                 `yaml:"type"`    // simpleblob backend, like "fs"
	Options map[string]interface{} `yaml:"options"` // simpleblob backend options
	Name    string                 `yaml:"name"`    // blob name prefix
}

var storageTypes = []string{"memory", "lmdb"}

// Check validates a Config instance
func (c Config) Check() error {
	if err := c.Log.Check(); err != nil {
		return err
	}
	if !lo.Contains(storageTypes, c.Storage.Type) {
		return fmt.Errorf("storage.type: must be one of: %v", storageTypes)
	}
	if c.Storage.Type == "lmdb" {
		l := c.Storage.LMDB
		if l.Path == "" {
			return fmt.Errorf("storage.lmdb.path: no path configured")
		}
		if l.Options.FileMask > 0777 { // decimal 511
			return fmt.Errorf("storage.lmdb.options.file_mask: too large value, possible use of decimal (%d) instead of octal (%#o)",
				l.Options.FileMask, l.Options.FileMask)
		}
		if l.Options.DirMask > 0777 { // decimal 511
			return fmt.Errorf("storage.lmdb.options.dir_mask: too large value, possible use of decimal (%d) instead of octal (%#o)",
				l.Options.DirMask, l.Options.DirMask)
		}
		if l.LogStats && l.LogStatsInterval < 100*time.Millisecond {
			return fmt.Errorf("storage.lmdb.log_stats_interval: too short interval")
		}
	}
	if dup := lo.FindDuplicates(c.Cache.Ignore); len(dup) > 0 {
		return fmt.Errorf("cache.ignore: duplicate kinds: %v", dup)
	}
	if c.Cache.MetricsInterval < 100*time.Millisecond {
		return fmt.Errorf("cache.metrics_interval: too short interval")
	}
	if c.Sweeper.Enabled {
		if c.Storage.Type != "lmdb" {
			return fmt.Errorf("sweeper: only supported with the lmdb storage")
		}
		if c.Sweeper.Interval < time.Second {
			return fmt.Errorf("sweeper.interval: too short interval")
		}
		if c.Sweeper.BatchSize < 1 {
			return fmt.Errorf("sweeper.batch_size: must be positive")
		}
	}
	if c.HTTP.Address != "" {
		if _, _, err := net.SplitHostPort(c.HTTP.Address); err != nil {
			return fmt.Errorf("http.address: %v", err)
		}
	}
	if c.Export.Type != "" && c.Export.Name == "" {
		return fmt.Errorf("export.name: required when export.type is set")
	}
	return nil
}

// String returns the config as a YAML string.
func (c Config) String() string {
	y, err := yaml.Marshal(c)
	if err != nil {
		logrus.Panicf("YAML marshal of config failed: %v", err) // Should never happen
	}
	return string(y)
}

// LoadYAML loads config from YAML. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAML(yamlContents []byte, expandEnv bool) error {
	if expandEnv {
		yamlContents = []byte(os.ExpandEnv(string(yamlContents)))
	}
	return yaml.UnmarshalStrict(yamlContents, c)
}

// LoadYAMLFile loads config from a YAML file. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAMLFile(fpath string, expandEnv bool) error {
	contents, err := os.ReadFile(fpath)
	if err != nil {
		return errors.Wrap(err, "open yaml file")
	}
	return c.LoadYAML(contents, expandEnv)
}

// Default returns a Config with default settings
func Default() Config {
	return Config{
		Storage: Storage{
			Type: "memory",
			LMDB: LMDB{
				LogStatsInterval: DefaultLMDBLogStatsInterval,
			},
		},
		Cache: Cache{
			MetricsInterval: DefaultMetricsInterval,
		},
		Sweeper: Sweeper{
			Interval:        5 * time.Minute,
			FirstInterval:   10 * time.Second,
			BatchSize:       1000,
			LockDuration:    50 * time.Millisecond,
			ReleaseDuration: 50 * time.Millisecond,
		},
		Health: Health{
			Store: HealthTracker{
				ErrorDuration:      5 * time.Minute,
				WarnDuration:       time.Minute,
				ErrorSequence:      10,
				WarnSequence:       3,
				EvaluationInterval: 5 * time.Second,
			},
			Startup: StartTracker{
				EvaluationInterval: 5 * time.Second,
				ErrorDuration:      5 * time.Minute,
				WarnDuration:       30 * time.Second,
				ReportHealthz:      true,
				ReportMetadata:     true,
			},
		},
		Export: Export{
			Name: "entitycache",
		},
		Log: logger.DefaultConfig,
	}
}

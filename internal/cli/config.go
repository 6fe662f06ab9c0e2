package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/tally/internal/logging"
	"github.com/mesh-intelligence/tally/internal/paths"
	"github.com/mesh-intelligence/tally/internal/remote"
	"github.com/mesh-intelligence/tally/internal/syncer"
	"github.com/mesh-intelligence/tally/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "TALLY"
)

// Config keys.
const (
	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeySyncStrategy  = "sqlite.sync_strategy"
	cfgKeyBatchSize     = "sqlite.batch_size"
	cfgKeyBatchInterval = "sqlite.batch_interval"
	cfgKeyLogLevel      = "log.level"
	cfgKeyLogFormat     = "log.format"
	cfgKeyLogOutput     = "log.output"
	cfgKeyRemoteDriver  = "remote.driver"
	cfgKeyRemoteURL     = "remote.url"
	cfgKeyRemoteAPIKey  = "remote.api_key"
	cfgKeyRemoteTimeout = "remote.timeout"
	cfgKeyRemoteRetries = "remote.retry_count"
	cfgKeyRemoteDSN     = "remote.dsn"
	cfgKeyRedisAddr     = "remote.redis_addr"
	cfgKeyRedisPassword = "remote.redis_password"
	cfgKeyRedisDB       = "remote.redis_db"
	cfgKeyKeyPrefix     = "remote.key_prefix"
	cfgKeySessionSecret = "session.secret"
	cfgKeyDebounce      = "sync.debounce"
	cfgKeyExitWait      = "sync.exit_wait"
	cfgKeyTags          = "tags"
	cfgKeyReportBOM     = "report.bom"
	cfgKeyReportTZ      = "report.timezone"
)

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	Backend string     `yaml:"backend"`
	DataDir string     `yaml:"data_dir,omitempty"`
	Remote  remoteFile `yaml:"remote"`
	Sync    syncFile   `yaml:"sync"`
	Tags    []string   `yaml:"tags"`
}

type remoteFile struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url,omitempty"`
}

type syncFile struct {
	Debounce string `yaml:"debounce"`
	ExitWait string `yaml:"exit_wait"`
}

// settings is the resolved configuration of one invocation.
type settings struct {
	configDir string
	dataDir   string
	store     types.Config
	log       logging.Config
	remote    remote.Config
	secret    string
	debounce  time.Duration
	exitWait  time.Duration
	tags      []string
	reportBOM bool
	reportLoc *time.Location
}

// newViper returns a viper instance with defaults and TALLY_ environment
// overrides, e.g. TALLY_REMOTE_DRIVER for remote.driver.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeySyncStrategy, types.SyncImmediate)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogFormat, "console")
	v.SetDefault(cfgKeyLogOutput, "stderr")
	v.SetDefault(cfgKeyRemoteDriver, remote.DriverNone)
	v.SetDefault(cfgKeyRemoteTimeout, 10*time.Second)
	v.SetDefault(cfgKeyRemoteRetries, 2)
	v.SetDefault(cfgKeyDebounce, syncer.DefaultDebounce)
	v.SetDefault(cfgKeyExitWait, 5*time.Second)
	v.SetDefault(cfgKeyTags, types.DefaultTags)
	v.SetDefault(cfgKeyReportBOM, true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error; defaults and environment overrides still apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := newViper()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// resolveSettings turns the loaded configuration into typed settings.
func resolveSettings(v *viper.Viper, configDir, dataDirFlag string) (settings, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}

	s := settings{
		configDir: configDir,
		dataDir:   dataDir,
		store: types.Config{
			Backend: v.GetString(cfgKeyBackend),
			DataDir: dataDir,
			SQLiteConfig: types.SQLiteConfig{
				SyncStrategy:  v.GetString(cfgKeySyncStrategy),
				BatchSize:     v.GetInt(cfgKeyBatchSize),
				BatchInterval: v.GetInt(cfgKeyBatchInterval),
			},
		},
		log: logging.Config{
			Level:  v.GetString(cfgKeyLogLevel),
			Format: v.GetString(cfgKeyLogFormat),
			Output: v.GetString(cfgKeyLogOutput),
		},
		remote: remote.Config{
			Driver:        v.GetString(cfgKeyRemoteDriver),
			URL:           v.GetString(cfgKeyRemoteURL),
			APIKey:        v.GetString(cfgKeyRemoteAPIKey),
			Timeout:       v.GetDuration(cfgKeyRemoteTimeout),
			RetryCount:    v.GetInt(cfgKeyRemoteRetries),
			DSN:           v.GetString(cfgKeyRemoteDSN),
			RedisAddr:     v.GetString(cfgKeyRedisAddr),
			RedisPassword: v.GetString(cfgKeyRedisPassword),
			RedisDB:       v.GetInt(cfgKeyRedisDB),
			KeyPrefix:     v.GetString(cfgKeyKeyPrefix),
		},
		secret:    v.GetString(cfgKeySessionSecret),
		debounce:  v.GetDuration(cfgKeyDebounce),
		exitWait:  v.GetDuration(cfgKeyExitWait),
		tags:      v.GetStringSlice(cfgKeyTags),
		reportBOM: v.GetBool(cfgKeyReportBOM),
		reportLoc: time.Local,
	}
	if tz := v.GetString(cfgKeyReportTZ); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return settings{}, fmt.Errorf("report timezone: %w", err)
		}
		s.reportLoc = loc
	}
	if err := s.store.Validate(); err != nil {
		return settings{}, fmt.Errorf("invalid store config: %w", err)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil (idempotent).
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cfg := configFile{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
		Remote:  remoteFile{Driver: remote.DriverNone},
		Sync: syncFile{
			Debounce: syncer.DefaultDebounce.String(),
			ExitWait: (5 * time.Second).String(),
		},
		Tags: types.DefaultTags,
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

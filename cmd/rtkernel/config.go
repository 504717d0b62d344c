package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envMaxTasks      = "RTKERNEL_MAX_TASKS"
	envGuardSize     = "RTKERNEL_GUARD_SIZE"
	envTickInterval  = "RTKERNEL_TICK_INTERVAL"
	envRTPriority    = "RTKERNEL_RT_PRIORITY"
	envHTTPBind      = "RTKERNEL_HTTP_ADDR"
	envAlertURL      = "RTKERNEL_ALERT_URL"
	envAlertSecret   = "RTKERNEL_ALERT_SECRET"   //nolint:gosec // env var name, not a credential
	envAlertAttempts = "RTKERNEL_ALERT_ATTEMPTS"
	envAlertBackoff  = "RTKERNEL_ALERT_BACKOFF"
	envLockPath      = "RTKERNEL_LOCK_PATH"
	envHostLoadEvery = "RTKERNEL_HOSTLOAD_INTERVAL"

	defaultMaxTasks     = 256
	defaultGuardSize    = 64
	defaultTickInterval = time.Millisecond
	// defaultRTPriority is 0, meaning PinRealtime is skipped by default:
	// SCHED_FIFO requires privilege the daemon does not assume it has.
	defaultRTPriority   = 0
	defaultHTTPBind     = ":9109"
	defaultAlertRetries = 3
	defaultAlertBackoff = 200 * time.Millisecond
	defaultLockPath     = "/var/run/rtkernel.lock"
	defaultHostLoad     = time.Second
)

type runtimeConfig struct {
	Kernel   kernelConfig
	HTTP     httpConfig
	Alert    alertConfig
	Lock     lockConfig
	HostLoad hostLoadConfig
}

type kernelConfig struct {
	MaxTasks     int
	GuardSize    int
	TickInterval time.Duration
	RTPriority   int
}

type httpConfig struct {
	Bind string
}

type alertConfig struct {
	URL      string
	Secret   string
	Attempts int
	Backoff  time.Duration
}

type lockConfig struct {
	Path string
}

type hostLoadConfig struct {
	Interval time.Duration
}

type fileConfig struct {
	Kernel   kernelFileConfig   `yaml:"kernel"`
	HTTP     httpFileConfig     `yaml:"http"`
	Alert    alertFileConfig    `yaml:"alert"`
	Lock     lockFileConfig     `yaml:"lock"`
	HostLoad hostLoadFileConfig `yaml:"hostload"`
}

type kernelFileConfig struct {
	MaxTasks     *int           `yaml:"maxTasks"`
	GuardSize    *int           `yaml:"guardSize"`
	TickInterval *time.Duration `yaml:"tickInterval"`
	RTPriority   *int           `yaml:"rtPriority"`
}

type httpFileConfig struct {
	Bind *string `yaml:"bind"`
}

type alertFileConfig struct {
	URL      *string        `yaml:"url"`
	Secret   *string        `yaml:"secret"`
	Attempts *int           `yaml:"attempts"`
	Backoff  *time.Duration `yaml:"backoff"`
}

type lockFileConfig struct {
	Path *string `yaml:"path"`
}

type hostLoadFileConfig struct {
	Interval *time.Duration `yaml:"interval"`
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Kernel: kernelConfig{
			MaxTasks:     defaultMaxTasks,
			GuardSize:    defaultGuardSize,
			TickInterval: defaultTickInterval,
			RTPriority:   defaultRTPriority,
		},
		HTTP: httpConfig{Bind: defaultHTTPBind},
		Alert: alertConfig{
			Attempts: defaultAlertRetries,
			Backoff:  defaultAlertBackoff,
		},
		Lock:     lockConfig{Path: defaultLockPath},
		HostLoad: hostLoadConfig{Interval: defaultHostLoad},
	}
}

func loadConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		applyEnvOverrides(&cfg)

		return cfg, nil
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return runtimeConfig{}, fmt.Errorf("read config file %q: %w", trimmed, err)
		}
	} else {
		var fileCfg fileConfig

		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return runtimeConfig{}, fmt.Errorf("decode config file %q: %w", trimmed, err)
		}

		mergeKernelConfig(&cfg.Kernel, fileCfg.Kernel)
		mergeHTTPConfig(&cfg.HTTP, fileCfg.HTTP)
		mergeAlertConfig(&cfg.Alert, fileCfg.Alert)
		mergeLockConfig(&cfg.Lock, fileCfg.Lock)
		assignDuration(&cfg.HostLoad.Interval, fileCfg.HostLoad.Interval)
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func mergeKernelConfig(dst *kernelConfig, src kernelFileConfig) {
	assignInt(&dst.MaxTasks, src.MaxTasks)
	assignInt(&dst.GuardSize, src.GuardSize)
	assignDuration(&dst.TickInterval, src.TickInterval)
	assignInt(&dst.RTPriority, src.RTPriority)
}

func mergeHTTPConfig(dst *httpConfig, src httpFileConfig) {
	assignString(&dst.Bind, src.Bind)
}

func mergeAlertConfig(dst *alertConfig, src alertFileConfig) {
	assignString(&dst.URL, src.URL)
	assignString(&dst.Secret, src.Secret)
	assignInt(&dst.Attempts, src.Attempts)
	assignDuration(&dst.Backoff, src.Backoff)
}

func mergeLockConfig(dst *lockConfig, src lockFileConfig) {
	assignString(&dst.Path, src.Path)
}

func applyEnvOverrides(cfg *runtimeConfig) {
	cfg.Kernel.MaxTasks = envInt(envMaxTasks, cfg.Kernel.MaxTasks)
	cfg.Kernel.GuardSize = envInt(envGuardSize, cfg.Kernel.GuardSize)
	cfg.Kernel.TickInterval = envDuration(envTickInterval, cfg.Kernel.TickInterval)
	cfg.Kernel.RTPriority = envInt(envRTPriority, cfg.Kernel.RTPriority)
	cfg.HTTP.Bind = envString(envHTTPBind, cfg.HTTP.Bind)
	cfg.Alert.URL = envString(envAlertURL, cfg.Alert.URL)
	cfg.Alert.Secret = envString(envAlertSecret, cfg.Alert.Secret)
	cfg.Alert.Attempts = envInt(envAlertAttempts, cfg.Alert.Attempts)
	cfg.Alert.Backoff = envDuration(envAlertBackoff, cfg.Alert.Backoff)
	cfg.Lock.Path = envString(envLockPath, cfg.Lock.Path)
	cfg.HostLoad.Interval = envDuration(envHostLoadEvery, cfg.HostLoad.Interval)

	if cfg.Kernel.MaxTasks <= 0 {
		cfg.Kernel.MaxTasks = defaultMaxTasks
	}

	if cfg.Kernel.GuardSize <= 0 {
		cfg.Kernel.GuardSize = defaultGuardSize
	}

	if cfg.Kernel.TickInterval <= 0 {
		cfg.Kernel.TickInterval = defaultTickInterval
	}

	if cfg.Alert.Attempts <= 0 {
		cfg.Alert.Attempts = defaultAlertRetries
	}

	if cfg.Alert.Backoff <= 0 {
		cfg.Alert.Backoff = defaultAlertBackoff
	}

	if strings.TrimSpace(cfg.Lock.Path) == "" {
		cfg.Lock.Path = defaultLockPath
	}

	if cfg.HostLoad.Interval <= 0 {
		cfg.HostLoad.Interval = defaultHostLoad
	}
}

var lookupEnv = os.LookupEnv //nolint:gochecknoglobals // overridden in tests

func assignInt(target *int, value *int) {
	if value != nil {
		*target = *value
	}
}

func assignDuration(target *time.Duration, value *time.Duration) {
	if value != nil {
		*target = *value
	}
}

func assignString(target *string, value *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

func envInt(key string, fallback int) int {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}

	duration, err := time.ParseDuration(trimmed)
	if err != nil {
		return fallback
	}

	return duration
}

func envString(key, fallback string) string {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}

	return trimmed
}

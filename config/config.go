package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendEtcd   = "etcd"
	BackendRedis  = "redis"
)

type Config struct {
	ListenAddr  string
	MetricsAddr string
	LogLevel    string

	StateBackend string
	StatePath    string

	EtcdEndpoints   []string
	EtcdKey         string
	EtcdDialTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	MonitorInterval time.Duration
	SaveRetries     int
}

func FromEnv() Config {
	return Config{
		ListenAddr:      envDefault("KTGOSSIP_LISTEN_ADDR", ":7070"),
		MetricsAddr:     os.Getenv("KTGOSSIP_METRICS_ADDR"),
		LogLevel:        envDefault("KTGOSSIP_LOG_LEVEL", "info"),
		StateBackend:    envDefault("KTGOSSIP_STATE_BACKEND", BackendFile),
		StatePath:       envDefault("KTGOSSIP_STATE_PATH", "ktgossip.state"),
		EtcdEndpoints:   envList("KTGOSSIP_ETCD_ENDPOINTS"),
		EtcdKey:         envDefault("KTGOSSIP_ETCD_KEY", "/ktgossip/trust-state"),
		EtcdDialTimeout: envDurationDefault("KTGOSSIP_ETCD_DIAL_TIMEOUT", 5*time.Second),
		RedisAddr:       os.Getenv("KTGOSSIP_REDIS_ADDR"),
		RedisPassword:   os.Getenv("KTGOSSIP_REDIS_PASSWORD"),
		RedisDB:         envIntDefault("KTGOSSIP_REDIS_DB", 0),
		RedisKey:        envDefault("KTGOSSIP_REDIS_KEY", "ktgossip:trust-state"),
		MonitorInterval: envDurationDefault("KTGOSSIP_MONITOR_INTERVAL", time.Minute),
		SaveRetries:     envIntDefault("KTGOSSIP_SAVE_RETRIES", 3),
	}
}

// Validate checks that the chosen backend has what it needs.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.MonitorInterval <= 0 {
		errs = append(errs, errors.New("monitor interval must be positive"))
	}
	switch c.StateBackend {
	case BackendMemory:
	case BackendFile:
		if c.StatePath == "" {
			errs = append(errs, errors.New("file backend needs KTGOSSIP_STATE_PATH"))
		}
	case BackendEtcd:
		if len(c.EtcdEndpoints) == 0 {
			errs = append(errs, errors.New("etcd backend needs KTGOSSIP_ETCD_ENDPOINTS"))
		}
		if c.EtcdKey == "" {
			errs = append(errs, errors.New("etcd key is empty"))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis backend needs KTGOSSIP_REDIS_ADDR"))
		}
		if c.RedisKey == "" {
			errs = append(errs, errors.New("redis key is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state backend %q", c.StateBackend))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// envIntDefault falls back on anything that isn't a non-negative int.
func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// envList splits a comma-separated value, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

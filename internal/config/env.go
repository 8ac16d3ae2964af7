package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Environment variables applied by Load after the case file.
const (
	EnvEngine    = "MVPROD_ENGINE"
	EnvLogLevel  = "MVPROD_LOG_LEVEL"
	EnvLogFormat = "MVPROD_LOG_FORMAT"
	EnvVecSize   = "MVPROD_VEC_SIZE"
)

func getenvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, errors.Wrapf(err, "invalid %s", key)
	}
	return i, nil
}

func (c *Config) applyEnvOverrides() error {
	c.Engine = getenvString(EnvEngine, c.Engine)
	c.Logging.Level = getenvString(EnvLogLevel, c.Logging.Level)
	c.Logging.Format = getenvString(EnvLogFormat, c.Logging.Format)

	n, err := getenvInt(EnvVecSize, c.Component.VecSize)
	if err != nil {
		return err
	}
	c.Component.VecSize = n
	return nil
}

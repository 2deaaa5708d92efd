package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/sirupsen/logrus"
)

// DefaultRPCTimeout bounds every request/response exchange initiated with
// Node.RPC.
const DefaultRPCTimeout = time.Second

// Config contains the settings of a Node.
type Config struct {
	RPCTimeout time.Duration `mapstructure:"timeout"`
	Logger     *logrus.Logger
}

// NewConfig ...
func NewConfig(rpcTimeout time.Duration, logger *logrus.Logger) *Config {
	return &Config{
		RPCTimeout: rpcTimeout,
		Logger:     logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		RPCTimeout: DefaultRPCTimeout,
		Logger:     logger,
	}
}

// TestConfig returns a default configuration with a logger writing to t.Log.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestLogger(t, common.TestLogLevel)
	return config
}

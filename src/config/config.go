package config

import (
	"io"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigName is the name of the optional config file in the data
	// directory, without extension.
	DefaultConfigName = "murmur"
)

// Transports.
const (
	// StdioTransport reads messages from stdin and writes them to stdout, as
	// expected by the Maelstrom harness.
	StdioTransport = "stdio"
	// TCPTransport connects the nodes listed in peers.json.
	TCPTransport = "tcp"
)

// Default configuration values.
const (
	DefaultLogLevel       = "info"
	DefaultRole           = "echo"
	DefaultTransport      = StdioTransport
	DefaultBindAddr       = "127.0.0.1:1337"
	DefaultServiceAddr    = "127.0.0.1:8000"
	DefaultRPCTimeout     = 1000 * time.Millisecond
	DefaultMaxPool        = 2
	DefaultGossipInterval = 300 * time.Millisecond
	DefaultPollBatch      = 0
	DefaultKV             = "lin-kv"
	DefaultStrictStore    = false
	DefaultStore          = false
	DefaultNoService      = false
)

// Config contains all the configuration properties of a murmur node.
type Config struct {
	// DataDir is the top-level directory containing murmur configuration and
	// data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogDir, if set, is a directory where every log level is also written to
	// its own file (murmur_info.log, murmur_debug.log, ...).
	LogDir string `mapstructure:"log-dir"`

	// Role is the algorithm run by the node: echo, unique-ids, broadcast,
	// counter, kafka, kafka-kv, txn, seq-kv or lin-kv.
	Role string `mapstructure:"role"`

	// Transport is stdio or tcp.
	Transport string `mapstructure:"transport"`

	// ID is the id of this node in a TCP cluster. It must appear in peers.json.
	// Under stdio, the id comes from the init message.
	ID string `mapstructure:"id"`

	// BindAddr is the local address:port where this node listens in a TCP
	// cluster.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// RPCTimeout bounds the wait for the reply to any request sent by the node,
	// including requests to the key-value store. It is also the TCP timeout.
	RPCTimeout time.Duration `mapstructure:"timeout"`

	// MaxPool controls how many connections are pooled per target.
	MaxPool int `mapstructure:"max-pool"`

	// GossipInterval is the period of the broadcast gossip loop.
	GossipInterval time.Duration `mapstructure:"gossip-interval"`

	// PollBatch caps the number of entries returned per key by a poll. For the
	// kafka role, 0 selects the default of 3. For the kafka-kv role, 0 means no
	// cap.
	PollBatch int `mapstructure:"poll-batch"`

	// KV is the id of the store service used by the counter and kafka-kv roles.
	KV string `mapstructure:"kv"`

	// StrictStore makes store errors fail requests instead of being read as
	// missing values.
	StrictStore bool `mapstructure:"strict-store"`

	// Store activates persistent storage for the seq-kv and lin-kv roles.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// NoService disables the HTTP API service. The service only runs in TCP
	// clusters.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Stdin and Stdout are used by the stdio transport. They default to the
	// process's.
	Stdin  io.Reader `mapstructure:"-"`
	Stdout io.Writer `mapstructure:"-"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:        DefaultDataDir(),
		LogLevel:       DefaultLogLevel,
		Role:           DefaultRole,
		Transport:      DefaultTransport,
		BindAddr:       DefaultBindAddr,
		ServiceAddr:    DefaultServiceAddr,
		RPCTimeout:     DefaultRPCTimeout,
		MaxPool:        DefaultMaxPool,
		GossipInterval: DefaultGossipInterval,
		PollBatch:      DefaultPollBatch,
		KV:             DefaultKV,
		StrictStore:    DefaultStrictStore,
		Store:          DefaultStore,
		DatabaseDir:    DefaultDatabaseDir(),
		NoService:      DefaultNoService,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level murmur directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Logger returns the logrus Logger of the node. It writes to stderr, since
// stdout carries the protocol under the stdio transport.
func (c *Config) Logger() *logrus.Logger {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Out = os.Stderr
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogDir != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				LogFiles(c.LogDir),
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger
}

// LogEntry returns a formatted logrus Entry, with prefix set to "murmur".
func (c *Config) LogEntry() *logrus.Entry {
	return c.Logger().WithField("prefix", "murmur")
}

// LogFiles maps every log level to a file in dir.
func LogFiles(dir string) lfshook.PathMap {
	pathMap := lfshook.PathMap{}
	for _, level := range logrus.AllLevels {
		pathMap[level] = filepath.Join(dir, "murmur_"+level.String()+".log")
	}
	return pathMap
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level murmur config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Murmur")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Murmur")
		} else {
			return filepath.Join(home, ".murmur")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}

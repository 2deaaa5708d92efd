package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/murmur/src/config"
	"github.com/mosaicnetworks/murmur/src/murmur"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a Murmur node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runMurmur,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runMurmur(cmd *cobra.Command, args []string) error {
	engine := murmur.NewMurmur(&_config.Murmur)

	if err := engine.Init(); err != nil {
		_config.Murmur.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	//Prepare sigCh to relay SIGINT and SIGTERM system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		_config.Murmur.Logger().Debug("Caught signal, shutting down")
		engine.Shutdown()
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Murmur.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Murmur.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-dir", _config.Murmur.LogDir, "Directory for per-level log files")

	// Role
	cmd.Flags().StringP("role", "r", _config.Murmur.Role, "echo, unique-ids, broadcast, counter, kafka, kafka-kv, txn, seq-kv, lin-kv")
	cmd.Flags().Duration("gossip-interval", _config.Murmur.GossipInterval, "Time between broadcast gossips")
	cmd.Flags().Int("poll-batch", _config.Murmur.PollBatch, "Max number of entries per key in a poll reply (0 for default)")
	cmd.Flags().String("kv", _config.Murmur.KV, "Id of the key/value service used by counter and kafka-kv")
	cmd.Flags().Bool("strict-store", _config.Murmur.StrictStore, "Fail requests instead of degrading on key/value service errors")

	// Network
	cmd.Flags().String("transport", _config.Murmur.Transport, "stdio or tcp")
	cmd.Flags().String("id", _config.Murmur.ID, "Node id, as listed in peers.json (tcp only)")
	cmd.Flags().StringP("listen", "l", _config.Murmur.BindAddr, "Listen IP:Port for murmur node")
	cmd.Flags().StringP("advertise", "a", _config.Murmur.AdvertiseAddr, "Advertise IP:Port for murmur node")
	cmd.Flags().DurationP("timeout", "t", _config.Murmur.RPCTimeout, "RPC Timeout")
	cmd.Flags().Int("max-pool", _config.Murmur.MaxPool, "Connection pool size max")

	// Service
	cmd.Flags().Bool("no-service", _config.Murmur.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Murmur.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Murmur.Store, "Use badgerDB instead of in-mem DB (seq-kv and lin-kv roles)")
	cmd.Flags().String("db", _config.Murmur.DatabaseDir, "Dabatabase directory")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Murmur.SetDataDir(_config.Murmur.DataDir)

	logFields := logrus.Fields{
		"murmur.DataDir":        _config.Murmur.DataDir,
		"murmur.LogLevel":       _config.Murmur.LogLevel,
		"murmur.Role":           _config.Murmur.Role,
		"murmur.Transport":      _config.Murmur.Transport,
		"murmur.RPCTimeout":     _config.Murmur.RPCTimeout,
		"murmur.GossipInterval": _config.Murmur.GossipInterval,
		"murmur.PollBatch":      _config.Murmur.PollBatch,
		"murmur.KV":             _config.Murmur.KV,
		"murmur.StrictStore":    _config.Murmur.StrictStore,
		"murmur.Store":          _config.Murmur.Store,
	}

	if _config.Murmur.Transport == config.TCPTransport {
		logFields["murmur.ID"] = _config.Murmur.ID
		logFields["murmur.BindAddr"] = _config.Murmur.BindAddr
		logFields["murmur.AdvertiseAddr"] = _config.Murmur.AdvertiseAddr
		logFields["murmur.MaxPool"] = _config.Murmur.MaxPool
		logFields["murmur.NoService"] = _config.Murmur.NoService
		logFields["murmur.ServiceAddr"] = _config.Murmur.ServiceAddr
	}

	if _config.Murmur.Store {
		logFields["murmur.DatabaseDir"] = _config.Murmur.DatabaseDir
	}

	_config.Murmur.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/murmur.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName) // name of config file (without extension)
	viper.AddConfigPath(_config.Murmur.DataDir)   // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Murmur.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Murmur.Logger().Debugf("No config file found in: %s", _config.Murmur.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

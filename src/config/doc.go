// Package config defines the configuration for a murmur node.
//
// Regardless of how murmur is started, directly from Go code or as a standalone
// process from the command line, it uses the Config object defined in this
// package to store and forward configuration options. Under the stdio
// transport no file is needed. A TCP cluster relies on the data directory,
// defined by Config.DataDir, where it expects to find:
//
//  peers.json   // a JSON file listing the id and address of every node.
//  murmur.toml  // (optional) configuration file (.json and .yaml also work).
package config

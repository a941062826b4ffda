// Package config loads Stagecraft configuration.
//
// Configuration is layered, lowest priority first:
//
//  1. Built-in defaults (Default)
//  2. A configuration file, TOML or YAML by extension
//  3. STAGECRAFT_* environment variables
//  4. Command-line flags, applied by the caller
//
// Example TOML:
//
//	[logging]
//	level = "debug"
//	file = "stagecraft.log"
//
//	[store]
//	backend = "sqlite"
//	path = "stagecraft.db"
//
//	[loader]
//	fetch_timeout = "10s"
//
// A Watcher reloads the file when it changes on disk and hands the new
// configuration to registered callbacks.
package config

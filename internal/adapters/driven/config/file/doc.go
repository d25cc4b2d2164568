// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with MARKETSYNC_*
//     environment overrides and live reload through Watch
package file

// Package file provides file-based configuration for talkvault.
//
// Settings live in a TOML file under the talkvault config directory.
// TALKVAULT_* environment variables override file values at load time.
package file

// Package driven defines the interfaces the core depends on: archive
// access, chat export rendering, configuration, and status delivery.
// Adapters under internal/adapters/driven implement them.
package driven

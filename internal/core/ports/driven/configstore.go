package driven

// ConfigStore provides persistent key-value configuration.
type ConfigStore interface {
	// GetString retrieves a string value, empty when unset.
	GetString(key string) string

	// GetBool retrieves a boolean value, false when unset.
	GetBool(key string) bool

	// GetInt retrieves an integer value, zero when unset.
	GetInt(key string) int

	// Set stores a value.
	Set(key string, value any)

	// Save persists the configuration.
	Save() error
}

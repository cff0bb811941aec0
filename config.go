package keeper

import "time"

// Config holds configuration for the Keeper engine.
type Config struct {
	// MaxQueryLimit caps the number of documents a single read can
	// return. Requests asking for more are clamped. Defaults to 10000.
	MaxQueryLimit int64 `json:"max_query_limit,omitempty"`

	// MaxBulkSize caps the number of documents a bulk load may carry.
	// Defaults to 10000.
	MaxBulkSize int `json:"max_bulk_size,omitempty"`

	// CacheTTL is the time-to-live for cached query results.
	// Informational for cache backends constructed from this config.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// UserCollection is the record collection holding user documents,
	// where privilege fields get extra guarding. Defaults to "users".
	UserCollection string `json:"user_collection,omitempty"`

	// ServiceCollection is the record collection holding the service
	// registry consulted during permission checks. Defaults to
	// "services".
	ServiceCollection string `json:"service_collection,omitempty"`

	// LogCreate enables audit entries for creates. Defaults to true.
	LogCreate *bool `json:"log_create,omitempty"`

	// LogUpdate enables audit entries for updates. Defaults to true.
	LogUpdate *bool `json:"log_update,omitempty"`

	// LogDelete enables audit entries for deletions. Defaults to true.
	LogDelete *bool `json:"log_delete,omitempty"`

	// LogRead enables audit entries for reads. Defaults to false.
	LogRead *bool `json:"log_read,omitempty"`

	// Messages overrides the default per-status result messages.
	Messages map[Status]string `json:"messages,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		MaxQueryLimit:     10000,
		MaxBulkSize:       10000,
		UserCollection:    "users",
		ServiceCollection: "services",
		LogCreate:         &t,
		LogUpdate:         &t,
		LogDelete:         &t,
	}
}

func (c Config) logCreate() bool { return c.LogCreate == nil || *c.LogCreate }
func (c Config) logUpdate() bool { return c.LogUpdate == nil || *c.LogUpdate }
func (c Config) logDelete() bool { return c.LogDelete == nil || *c.LogDelete }
func (c Config) logRead() bool   { return c.LogRead != nil && *c.LogRead }

func (c Config) maxQueryLimit() int64 {
	if c.MaxQueryLimit > 0 {
		return c.MaxQueryLimit
	}
	return 10000
}

func (c Config) maxBulkSize() int {
	if c.MaxBulkSize > 0 {
		return c.MaxBulkSize
	}
	return 10000
}

func (c Config) userCollection() string {
	if c.UserCollection != "" {
		return c.UserCollection
	}
	return "users"
}

func (c Config) serviceCollection() string {
	if c.ServiceCollection != "" {
		return c.ServiceCollection
	}
	return "services"
}

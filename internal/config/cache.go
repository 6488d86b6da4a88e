package config

import (
	"strings"
	"time"
)

// CacheConfig drives the Redis response cache. It is only mounted on
// static reference data such as the permission catalog; authorization
// answers are never cached.
type CacheConfig struct {
	Enabled      bool            // CACHE_ENABLED
	Methods      map[string]bool // upper-cased HTTP methods eligible for caching
	TTL          time.Duration   // lifetime of one entry
	Prefix       string          // Redis key prefix
	MaxBodyBytes int             // responses larger than this are not stored
}

// LoadCacheConfig reads the CACHE_* variables. Unset or unparsable values
// fall back to their defaults: enabled, GET only, five minutes, prefix
// "cache" and a 1 MiB body limit. CACHE_METHODS is a comma separated list
// and is case insensitive.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 5*time.Minute),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// parseMethods turns "get, head" into {"GET": true, "HEAD": true}.
func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

// Package env reads the handful of process settings consulted before or
// outside config.Load.
package env

import "os"

// First returns the value of the first non-empty variable in keys, or fallback.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return fallback
}

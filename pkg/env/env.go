package env

import "os"

// Prefix namespaces escrowdesk variables; unprefixed names are honoured as a fallback.
const Prefix = "ESCROWDESK_"

// Get returns the prefixed variable, then the bare one, then fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(Prefix + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// Package domguard provides the version information for domguard.
package domguard

// Version is the current version of domguard.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

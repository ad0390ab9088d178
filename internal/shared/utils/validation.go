package utils

import (
	"fmt"
	"regexp"
)

// MaxIDLength bounds application ids. systemd caps unit names at 255
// bytes, so longer instance names cannot exist.
const MaxIDLength = 255

// AppIDPattern matches systemd instance names: alphanumerics plus the
// characters systemd leaves unescaped, and backslash escapes
var AppIDPattern = regexp.MustCompile(`^[a-zA-Z0-9:_.\\-]+$`)

// ValidateAppID checks that id could name a unit instance
func ValidateAppID(id string) error {
	if id == "" {
		return fmt.Errorf("application id is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("application id exceeds %d characters", MaxIDLength)
	}
	if !AppIDPattern.MatchString(id) {
		return fmt.Errorf("application id %q contains invalid characters", id)
	}
	return nil
}

package handlers

import (
	"fmt"
	"strings"
)

const (
	maxNameLen     = 100
	maxMediaRefLen = 2048
	maxBatchCards  = 50
)

// validateName checks a category or card display name.
func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("name must be at most %d characters", maxNameLen)
	}
	return nil
}

// validateMediaRef checks a card image reference. Empty is allowed, the
// catalog treats missing faces as blank.
func validateMediaRef(ref string) error {
	if len(ref) > maxMediaRefLen {
		return fmt.Errorf("image reference must be at most %d characters", maxMediaRefLen)
	}
	return nil
}

// Package content loads external message resources, such as the onboarding
// text shown to new users.
package content

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissing indicates that a required message resource does not exist.
var ErrMissing = errors.New("content missing")

// Source resolves named message resources.
type Source interface {
	// Welcome returns the onboarding message text, or ErrMissing when the
	// resource is unavailable.
	Welcome() (string, error)
}

// FileSource reads message resources from disk.
type FileSource struct {
	welcomePath string
}

// NewFileSource creates a Source rooted at the configured welcome path.
func NewFileSource(welcomePath string) *FileSource {
	return &FileSource{welcomePath: welcomePath}
}

// Welcome reads the welcome message file. An absent or empty file is treated
// as missing content; commands turn this into a failure without attempting
// any side effects.
func (s *FileSource) Welcome() (string, error) {
	data, err := os.ReadFile(s.welcomePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrMissing, s.welcomePath)
		}
		return "", fmt.Errorf("read welcome message: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissing, s.welcomePath)
	}

	return text, nil
}

// Package mirror keeps one local working copy per source repository and
// synchronizes it with the remote's tracked branch.
//
// A Store owns the on-disk layout: every mirror lives at <root>/<name>. A
// Synchronizer clones a mirror on first sight of a name and, on every call,
// fetches the remote and hard-resets the worktree to origin/<branch>,
// discarding local divergence.
//
// Callers must not synchronize the same name concurrently; dispatch.Queue
// provides that guarantee for the service.
package mirror

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var (
	// ErrInvalidName indicates a repository name that is not a single safe path element.
	ErrInvalidName = errors.New("invalid repository name")

	// ErrClone indicates the initial clone of a repository failed.
	ErrClone = errors.New("clone failed")

	// ErrSync indicates an existing mirror could not be brought up to date.
	ErrSync = errors.New("sync failed")

	// ErrBranchNotFound indicates the tracked branch does not exist on the remote.
	ErrBranchNotFound = errors.New("branch not found on remote")
)

var validNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidName reports whether name can be used as a mirror directory name.
func ValidName(name string) bool {
	return name != "." && name != ".." && len(name) <= 255 && validNameRegex.MatchString(name)
}

// Store maps repository names onto mirror directories under a fixed root.
type Store struct {
	root string
}

// NewStore creates a store rooted at root. Nothing is created on disk until Setup.
func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Root returns the directory holding all mirrors.
func (s *Store) Root() string {
	return s.root
}

// Setup creates the mirror root if it does not exist.
// The host process calls it once at start-up.
func (s *Store) Setup() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("creating mirror root %s: %w", s.root, err)
	}
	return nil
}

// Path returns the mirror directory for name.
func (s *Store) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.root, name), nil
}

// Exists reports whether a mirror directory is present for name.
func (s *Store) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

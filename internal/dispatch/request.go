package dispatch

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/dvc-connector/internal/mirror"
)

var (
	// ErrMalformedRequest indicates a request without a usable name or clone URL.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrQueueFull indicates the dispatch queue cannot accept more work.
	ErrQueueFull = errors.New("dispatch queue full")

	// ErrQueueClosed indicates the dispatch queue has stopped.
	ErrQueueClosed = errors.New("dispatch queue closed")
)

// SourceRequest names a repository to synchronize.
type SourceRequest struct {
	Name string `json:"name"`
	URL  string `json:"clone_url"`
}

// ParseRequest extracts a SourceRequest from a decoded request body. Both
// "name" and "clone_url" must be present at the top level; GitHub push
// events are flattened by the webhook handler before they get here.
func ParseRequest(req map[string]any) (SourceRequest, error) {
	if req == nil {
		return SourceRequest{}, fmt.Errorf("%w: empty request", ErrMalformedRequest)
	}

	name, err := stringField(req, "name")
	if err != nil {
		return SourceRequest{}, err
	}
	url, err := stringField(req, "clone_url")
	if err != nil {
		return SourceRequest{}, err
	}

	if !mirror.ValidName(name) {
		return SourceRequest{}, fmt.Errorf("%w: %w: %q", ErrMalformedRequest, mirror.ErrInvalidName, name)
	}

	return SourceRequest{Name: name, URL: url}, nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrMalformedRequest, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string", ErrMalformedRequest, key)
	}
	if s == "" {
		return "", fmt.Errorf("%w: %q is empty", ErrMalformedRequest, key)
	}
	return s, nil
}

package comp

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownChild is returned when an action is routed to a key the
	// receiving node does not have.
	ErrUnknownChild = errors.New("unknown child key")
	// ErrUnknownVariant is returned for a discriminator value with no registered schema.
	ErrUnknownVariant = errors.New("unknown discriminator value")
	// ErrInvalidAction is returned for malformed actions.
	ErrInvalidAction = errors.New("invalid action")
	// ErrShape is returned when an input value does not fit a node's shape.
	ErrShape = errors.New("value does not match shape")
	// ErrSchema is returned for malformed schemas (empty or duplicate keys, bad defaults).
	ErrSchema = errors.New("invalid schema")
)

// RoutingError reports an action addressed to a child that does not exist.
// Path is the full path from the dispatch root up to and including Key.
type RoutingError struct {
	Path []string
	Key  string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("route /%s: %v %q", strings.Join(e.Path, "/"), ErrUnknownChild, e.Key)
}

func (e *RoutingError) Unwrap() error { return ErrUnknownChild }

func unknownChild(key string) error {
	return &RoutingError{Path: []string{key}, Key: key}
}

// within attributes an error raised below the child named key.
func within(key string, err error) error {
	var re *RoutingError
	if errors.As(err, &re) {
		return &RoutingError{Path: append([]string{key}, slices.Clone(re.Path)...), Key: re.Key}
	}
	return fmt.Errorf("%s: %w", key, err)
}

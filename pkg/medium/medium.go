package medium

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnavailable = errors.New("medium: unavailable")

var ErrInvalidKey = errors.New("medium: invalid key")

// Medium is a string-to-string durable store scoped to the client device.
type Medium interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by media holding external resources.
type Closer interface {
	Close() error
}

// ValidateKey rejects keys that cannot address a slot consistently across
// implementations.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key must not be empty", ErrInvalidKey)
	}
	if key != strings.TrimSpace(key) {
		return fmt.Errorf("%w: key %q has surrounding whitespace", ErrInvalidKey, key)
	}
	return nil
}

// Close releases m when it holds resources; other media are left untouched.
func Close(m Medium) error {
	if closer, ok := m.(Closer); ok {
		return closer.Close()
	}
	return nil
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %v", ErrUnavailable, op, key, err)
}

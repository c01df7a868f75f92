package cacheaside

import (
	"errors"
	"fmt"
)

var (
	ErrNilProvider = errors.New("cacheaside: provider is required")
	ErrEmptyKey    = errors.New("cacheaside: key must not be empty")
	ErrInvalidTTL  = errors.New("cacheaside: ttl must be positive")
	ErrNilCodec    = errors.New("cacheaside: codec is required")
)

// InvalidateError describes a key that could not be cleared.
// Invalidate joins one of these per failed key.
type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}

// FailedKeys lists the keys named by the InvalidateErrors joined into err.
func FailedKeys(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case nil:
		case *InvalidateError:
			out = append(out, x.Key)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

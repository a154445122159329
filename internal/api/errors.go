package api

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks client errors so handlers can map them to 400.
var ErrInvalidRequest = errors.New("invalid request")

func newInvalidRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}

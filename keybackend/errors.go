package keybackend

import "errors"

// ErrUnknownOracle is returned when the configured oracle type is not supported.
var ErrUnknownOracle = errors.New("unknown oracle type")

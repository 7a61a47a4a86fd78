package domain

import "errors"

// ErrSourceUnavailable marks an upstream fetch that exhausted its retries.
// Scoped to one wallet/one call; the caller degrades to empty data.
var ErrSourceUnavailable = errors.New("source unavailable")

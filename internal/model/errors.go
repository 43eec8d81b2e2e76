package model

import "errors"

// ErrDataUnavailable marks a symbol whose history could not be retrieved:
// invalid/delisted, or the provider stayed unreachable through retries.
// It excludes the symbol at stage 1, never aborts the batch.
var ErrDataUnavailable = errors.New("market data unavailable")

// ErrInsufficientHistory marks a history shorter than an indicator's lookback.
var ErrInsufficientHistory = errors.New("insufficient history")

package types

import "errors"

// Adapter and lifecycle errors.
var (
	ErrQuotaExceeded    = errors.New("flat store quota exceeded")
	ErrStoreClosed      = errors.New("store is closed")
	ErrStoreUnavailable = errors.New("store is unavailable")
	ErrKeyNotFound      = errors.New("key not found")
	ErrNotFound         = errors.New("record not found")
)

// Config validation errors.
var (
	ErrDataDirEmpty    = errors.New("data dir must not be empty")
	ErrItemCapInvalid  = errors.New("item cap must be positive")
	ErrQuotaInvalid    = errors.New("flat quota must be positive")
	ErrIntervalInvalid = errors.New("snapshot interval must be positive")
	ErrTimeoutInvalid  = errors.New("adapter timeout must be positive")
)

// Bundle errors returned by export/restore paths.
var (
	ErrBadBundle        = errors.New("malformed bundle")
	ErrBundleVersion    = errors.New("unsupported bundle version")
	ErrNothingToRestore = errors.New("bundle contains no collections")
)

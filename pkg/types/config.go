package types

import "time"

// Configuration defaults.
const (
	DefaultItemCap          = 100
	DefaultFlatQuotaBytes   = 5 << 20 // ~5MB, typical flat backend quota
	DefaultSnapshotInterval = 5 * time.Minute
	DefaultAdapterTimeout   = 5 * time.Second
)

// Config holds the parameters for opening the persistence layer.
// Zero values fall back to the defaults above; use the accessor methods
// rather than reading fields directly.
type Config struct {
	// DataDir is where the flat store file and the indexed store database
	// live. Created if it does not exist.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// OwnerTag is attached to records created without an explicit owner.
	// Defaults to "anonymous".
	OwnerTag string `json:"owner_tag" yaml:"owner_tag"`

	// ItemCap is the maximum record count per collection, enforced
	// independently by each adapter. Oldest records are evicted first.
	ItemCap int `json:"item_cap" yaml:"item_cap"`

	// FlatQuotaBytes is the serialized-size quota of the flat store.
	FlatQuotaBytes int64 `json:"flat_quota_bytes" yaml:"flat_quota_bytes"`

	// SnapshotInterval is the wall-clock period of automatic snapshots.
	SnapshotInterval time.Duration `json:"snapshot_interval" yaml:"snapshot_interval"`

	// AdapterTimeout bounds each indexed store call; on expiry the
	// operation proceeds with the remaining adapters.
	AdapterTimeout time.Duration `json:"adapter_timeout" yaml:"adapter_timeout"`
}

// Validate checks that explicitly set values are usable. Unset (zero)
// values are fine; the accessors apply defaults.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.ItemCap < 0 {
		return ErrItemCapInvalid
	}
	if c.FlatQuotaBytes < 0 {
		return ErrQuotaInvalid
	}
	if c.SnapshotInterval < 0 {
		return ErrIntervalInvalid
	}
	if c.AdapterTimeout < 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

// Owner returns the configured owner tag or "anonymous".
func (c Config) Owner() string {
	if c.OwnerTag == "" {
		return OwnerAnonymous
	}
	return c.OwnerTag
}

// Cap returns the effective per-collection item cap.
func (c Config) Cap() int {
	if c.ItemCap == 0 {
		return DefaultItemCap
	}
	return c.ItemCap
}

// Quota returns the effective flat store quota in bytes.
func (c Config) Quota() int64 {
	if c.FlatQuotaBytes == 0 {
		return DefaultFlatQuotaBytes
	}
	return c.FlatQuotaBytes
}

// Interval returns the effective snapshot interval.
func (c Config) Interval() time.Duration {
	if c.SnapshotInterval == 0 {
		return DefaultSnapshotInterval
	}
	return c.SnapshotInterval
}

// Timeout returns the effective per-adapter call timeout.
func (c Config) Timeout() time.Duration {
	if c.AdapterTimeout == 0 {
		return DefaultAdapterTimeout
	}
	return c.AdapterTimeout
}

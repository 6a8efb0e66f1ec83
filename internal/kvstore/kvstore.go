// Package kvstore defines the contract for the remote log store: a flat,
// multi-writer key-value space with named partitions and no ordering,
// transactions or deletion. The sync engine consumes it as a capability and
// treats every failure as transient.
package kvstore

import "context"

// Store is the boundary to the remote key-value store.
type Store interface {
	// Write records key -> stamp in the partition. Writing the same pair
	// twice has no additional effect; a different stamp for an existing key
	// overwrites it. The store is a map, not a log.
	Write(ctx context.Context, partition, key, stamp string) error

	// Read returns the full current snapshot of the partition. There is no
	// pagination, no delta feed and no ordering guarantee across calls.
	Read(ctx context.Context, partition string) (map[string]string, error)
}

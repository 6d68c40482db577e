// Package storage keeps the per-remote state database of sous.
//
// Each remote has one BBolt file next to its repository copy. Opening it
// read-write takes an exclusive file lock, which serialises fetches of the
// same remote across processes; the handle is the lock.
//
// Database structure uses three buckets:
//   - config: schema version, remote URL, timestamps
//   - sync: the record of the last successful fetch
//   - listing: encrypted artifacts seen per app directory, for change reports
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage

// Package checkpoint persists which VODs have already been archived.
//
// The store is a single JSON object mapping VOD IDs to entries (destination
// video ID, title, stream timestamp, archived-at timestamp). It also accepts
// the legacy bare-array-of-IDs format and migrates it to the keyed form on
// first load, before any query runs.
//
// Snapshots are written atomically (temp file, fsync, rename) and
// synchronously after every successful mutation. An entry exists if and only
// if the item has been judged handled; entries are never deleted
// automatically.
package checkpoint

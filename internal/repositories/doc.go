// Package repositories implements SQLite persistence for tracked resources and sync history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [ChannelRepository] : Tracked channels keyed by YouTube channel ID
//   - [PlaylistRepository] : Tracked playlists keyed by YouTube playlist ID
//   - [VideoRepository] : Videos, standalone or owned by a channel/playlist row
//   - [SyncRunRepository] : History of reconciliation runs with outcome counts
//
// [LocalStore] ties them together for the sync engine: it loads a resource with its videos,
// applies a [tasks.SyncResult] back to the tables, and records the run.
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
// Queries never run while another result set is open, so a single-connection pool (as used for :memory:) works.
package repositories

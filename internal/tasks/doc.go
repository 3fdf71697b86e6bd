// Package tasks reconciles locally stored YouTube resources against freshly fetched remote snapshots.
//
// # Core Operation
//
// [Engine.Sync] takes a [models.Resource] and dispatches on its variant:
//
//  1. [models.Channel] and [models.Playlist] : collection path
//     - Fetches an incremental snapshot scoped to the resource's last sync time
//     - Falls back to exactly one full fetch when the incremental list comes back empty
//     - Merges local and remote videos with [Merge]
//
//  2. [models.Video] : single-video path
//     - Fetches the current remote video
//     - Returns the remote copy only when sync is enabled and the etags differ
//
// Anything else, or a snapshot whose kind does not match the request, fails with [IncompatibleResourceError].
// Transport errors from the [Fetcher] propagate unchanged; the engine never retries.
//
// # Merge Policy
//
// For each remote video, looked up by YouTube ID in an index of local videos:
//   - no local match: the remote video is added
//   - etags equal: the local video is kept
//   - etags differ, local sync enabled: the remote video replaces the local one
//   - etags differ, local sync disabled: the local video is kept even though it is stale
//
// Local videos missing from the remote list are reported as removed. [RetainUnmatched] keeps them in the result instead.
//
// # Engine State
//
// An [Engine] holds the most recent successfully processed snapshot, readable through [Engine.Snapshot] and [Engine.RemoteID].
// A failed or no-op sync leaves it untouched. Engines are not safe for concurrent use; [SyncAll] runs one engine per resource.
//
// # Progress Reporting
//
// All operations accept an optional progress channel. Updates use select with default so reporting never blocks a sync.
package tasks

// Package models defines the domain entities reconciled by ytsync.
//
// The package contains three categories of types:
//
// 1. Local resources: what the user tracks and stores
//   - [Channel] : a channel and the videos it owns
//   - [Playlist] : a curated list of videos
//   - [Video] : a single video, standalone or owned by a collection
//
// All three implement the sealed [Resource] interface; [Channel] and [Playlist] also implement [Collection].
// The interface is sealed by an unexported method, so a type switch over the three pointer types is exhaustive.
//
// 2. Remote data: [RemoteSnapshot] is the parsed API response for one resource, carrying an ordered list of remote videos for collections.
//
// 3. Reconciliation output and history
//   - [VideoCollection] : ordered, append-only merge result with one [Outcome] per video
//   - [SyncRun] : persisted record of a single reconciliation
//
// A video's identity is its YouTube ID. Two videos with different YouTube IDs are never merged field by field.
package models

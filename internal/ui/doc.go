// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through four views:
//  1. [ResourceListView] : Browse tracked channels, playlists and videos, toggle their sync flag
//  2. [ConfirmView] : Confirm syncing the selected resource or all of them
//  3. [SyncView] : Monitor progress updates from the engine
//  4. [ResultView] : Per-resource summaries and, for a single collection, per-video outcomes
//
// Syncs run in a goroutine that applies each result to the [Store] and records a sync run.
// Progress flows through a buffered channel; the final batch arrives as a single message on a separate channel.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, a, t, esc, y/n, q) with contextual help from charmbracelet/bubbles/help.
package ui

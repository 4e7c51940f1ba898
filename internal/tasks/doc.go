// Package tasks resolves Spotify tracks to YouTube videos.
//
// # Pipeline
//
// [Resolver.ResolveTrack] turns one track into its best video:
//
//  1. [SearchQuery] builds "<song> <album> <artist> Official Audio"
//  2. [Race] searches with every pooled key at once and keeps the lowest-index usable answer
//  3. durations for all candidates are fetched concurrently, each walking the pool with [Sequential]
//  4. [BestMatch] scores candidates with [Score] and keeps the first highest
//
// The reserved placeholder video is never reported as a match.
//
// # Key Pools
//
// A [KeyPool] is built per request by [NewKeyPool]: the caller's own key (if any) first,
// then the configured keys. A call fails with shared.ErrKeysExhausted only after every key failed.
//
// # Playlists
//
// [Resolver.Playlist] resolves every track concurrently. Results keep the playlist order and a
// failed track becomes an unavailable entry instead of failing the batch. Progress is reported
// through an optional [ProgressUpdate] channel that is never blocked on.
//
// # Analytics
//
// Successful conversions are counted through an [AnalyticsRecorder], which writes to its
// [AnalyticsSink] in the background and only logs failures.
package tasks

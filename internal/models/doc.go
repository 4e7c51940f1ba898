// Package models defines domain entities for the Spotify to YouTube matching service.
//
// The package contains two categories of types:
//
// 1. Resolution types: values passed through the matching pipeline
//   - [Track] : Song metadata from the metadata provider
//   - [Candidate] : A video search result
//   - [Match] : A scored candidate
//   - [TrackResolution] and [PlaylistResolution] : Per-track outcomes
//
// 2. Counters and records: values written by analytics sinks
//   - [Analytics] : Cumulative conversion counters
//   - [Conversion] : One recorded conversion, implementing [Model]
//
// The [Repository] interface defines append-only access for persisted records.
package models

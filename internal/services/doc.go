// Package services implements the upstream providers consumed by the matching pipeline.
//
// # Track Source
//
// [SpotifyService] implements [TrackSource]. It authenticates with the client-credentials
// grant through a [TokenCache], which keeps a single bearer token and refreshes it
// ahead of expiry by a configurable buffer. Playlist pages are followed until the
// provider stops returning a next link.
//
// # Video Source
//
// [YouTubeService] implements [VideoSource] on top of the YouTube Data API v3 client.
// Each call takes the API key to use, leaving key selection and failover to the caller.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : client id or secret not configured
//   - [shared.ErrAuthFailed] : token exchange rejected
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrTrackNotFound], [shared.ErrPlaylistNotFound] : id unknown upstream
//   - [shared.ErrPlaylistEmpty] : playlist has no usable tracks
//   - [shared.ErrInvalidInput] : missing or malformed id
package services

// Package server exposes the resolver over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// Disallowed methods get a JSON 405 and OPTIONS preflights short-circuit with 204.
//
// # Endpoints
//
// [API] registers /song, /playlist, /analytics, /help and /repeat.
// [StaticHandler] serves the landing page and icon from embedded files.
//
// Every JSON body carries a "status" field of "success" or "error"; errors add a "message".
//
// # Middleware
//
// [NewHandler] installs, outermost first:
//   - [RequestLogger] : uuid request id and one log line per request
//   - [CORS] : open to any origin
//   - [RateLimit] : shared token bucket, 429 when empty
//   - [Timeout] : request deadline; work still running at the deadline is abandoned
package server

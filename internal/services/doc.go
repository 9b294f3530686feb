// Package services implements thin HTTP clients for the third-party platforms
// the gateway proxies: Spotify, a listening-insights platform, and a
// generative-language API.
//
// # Service Interface
//
// All providers implement a small common abstraction so the CLI and the tool
// server can wire them uniformly.
//
// # Spotify Implementation
//
// [SpotifyService] uses [oauth2] for authentication with automatic token
// refresh. It also validates caller-presented bearer tokens against the /me
// endpoint on behalf of the session registry; a 401 from Spotify surfaces as
// [shared.ErrInvalidCredential].
//
// # Insights Implementation
//
// [InsightsService] wraps a REST insights platform keyed by api_key query
// parameter. All operations are synchronous pass-through HTTP calls.
//
// # Generative Implementation
//
// [GenerativeService] calls a generateContent-style endpoint and extracts the
// first candidate's text.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrInvalidCredential] : upstream rejected the presented token
//   - [shared.ErrAPIRequest] : HTTP request failed
//
// Non-2xx responses surface the upstream status code and a truncated body.
package services

// package pipeline builds track recommendations from listener preferences.
//
// The core abstraction is Recommender, which runs a strictly sequential flow:
// gather context from the insights service, assemble a prompt, generate
// suggestions, and optionally materialize them as a Spotify playlist.
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package pipeline

// package services defines interface Service for interacting with HTTP APIs
//
// Spotify, listening insights, generative text
package services

import (
	"context"
)

// Service defines the shared surface of the third-party API clients.
type Service interface {
	// Authenticate performs OAuth or API key authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Preferences captures what a listener asked to hear; input to the
// recommendation pipeline and the insights lookups.
type Preferences struct {
	Genres  []string `json:"genres,omitempty"`
	Artists []string `json:"artists,omitempty"`
	Mood    string   `json:"mood,omitempty"`
	Era     string   `json:"era,omitempty"`
}

// TrackSuggestion is one recommended track within an insights or generation
// result.
type TrackSuggestion struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Reason string `json:"reason,omitempty"`
}

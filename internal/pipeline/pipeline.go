package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mixtape-sh/mixtape/internal/services"
	"github.com/mixtape-sh/mixtape/internal/shared"
)

// InsightSource supplies listening context for prompt assembly.
// [services.InsightsService] is the production implementation.
type InsightSource interface {
	SimilarArtists(ctx context.Context, artist string, limit int) ([]services.InsightArtist, error)
	TagTopTracks(ctx context.Context, tag string, limit int) ([]services.InsightTrack, error)
}

// Generator produces text from a prompt. [services.GenerativeService] is the
// production implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Catalog resolves suggested tracks against a music catalog and builds
// playlists. [services.SpotifyService] is the production implementation.
type Catalog interface {
	UserProfile(ctx context.Context) (*services.SpotifyUser, error)
	Search(ctx context.Context, query, kinds string, limit int) (*services.SpotifySearchResult, error)
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.SpotifyPlaylist, error)
	AddTracks(ctx context.Context, playlistID string, uris []string) error
}

// ResolvedTrack pairs a suggestion with its catalog lookup result.
type ResolvedTrack struct {
	Suggestion services.TrackSuggestion
	URI        string // empty when the catalog had no match
}

// RunResult contains all data from a recommendation run.
type RunResult struct {
	Preferences    services.Preferences
	SimilarArtists []services.InsightArtist
	TagTracks      []services.InsightTrack
	Prompt         string
	Suggestions    []services.TrackSuggestion
	Resolved       []ResolvedTrack
	Playlist       *services.SpotifyPlaylist
	MatchedCount   int
}

// contextLimit caps how many entries each insights lookup contributes.
const contextLimit = 8

// Recommender runs the preference-to-playlist flow.
type Recommender struct {
	insights  InsightSource
	generator Generator
	catalog   Catalog
}

// NewRecommender creates a Recommender. insights and catalog may be nil;
// the corresponding stages are skipped.
func NewRecommender(insights InsightSource, generator Generator, catalog Catalog) *Recommender {
	return &Recommender{
		insights:  insights,
		generator: generator,
		catalog:   catalog,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (rec *Recommender) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run executes the flow: gather insights context, assemble the prompt,
// generate suggestions, resolve them against the catalog, and create a
// playlist when playlistName is non-empty. Steps are sequential and each
// failure aborts the run.
func (rec *Recommender) Run(ctx context.Context, prefs services.Preferences, playlistName string, progress chan<- ProgressUpdate) (*RunResult, error) {
	if rec.generator == nil {
		return nil, fmt.Errorf("%w: generative service not configured", shared.ErrServiceUnavailable)
	}
	if len(prefs.Genres) == 0 && len(prefs.Artists) == 0 && prefs.Mood == "" {
		return nil, fmt.Errorf("%w: preferences need at least a genre, artist, or mood", shared.ErrInvalidInput)
	}

	result := &RunResult{Preferences: prefs}

	if rec.insights != nil {
		total := len(prefs.Artists) + len(prefs.Genres)
		step := 0
		for _, artist := range prefs.Artists {
			step++
			rec.sendProgress(progress, gatherUpdate(step, total, "artists similar to "+artist))
			similar, err := rec.insights.SimilarArtists(ctx, artist, contextLimit)
			if err != nil {
				return nil, fmt.Errorf("similar artist lookup for %q: %w", artist, err)
			}
			result.SimilarArtists = append(result.SimilarArtists, similar...)
		}
		for _, genre := range prefs.Genres {
			step++
			rec.sendProgress(progress, gatherUpdate(step, total, genre+" tracks"))
			tracks, err := rec.insights.TagTopTracks(ctx, genre, contextLimit)
			if err != nil {
				return nil, fmt.Errorf("tag lookup for %q: %w", genre, err)
			}
			result.TagTracks = append(result.TagTracks, tracks...)
		}
	}

	result.Prompt = assemblePrompt(prefs, result.SimilarArtists, result.TagTracks)
	rec.sendProgress(progress, promptUpdate(len(result.Prompt)))

	rec.sendProgress(progress, generateUpdate())
	raw, err := rec.generator.Generate(ctx, result.Prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	suggestions, err := parseSuggestions(raw)
	if err != nil {
		return nil, err
	}
	result.Suggestions = suggestions

	if rec.catalog == nil {
		return result, nil
	}

	result.Resolved = make([]ResolvedTrack, len(suggestions))
	uris := make([]string, 0, len(suggestions))
	for i, suggestion := range suggestions {
		rec.sendProgress(progress, resolveUpdate(i+1, len(suggestions), suggestion.Title, suggestion.Artist))

		result.Resolved[i] = ResolvedTrack{Suggestion: suggestion}
		query := fmt.Sprintf("track:%s artist:%s", suggestion.Title, suggestion.Artist)
		found, err := rec.catalog.Search(ctx, query, "track", 1)
		if err != nil {
			continue
		}
		if found.Tracks != nil && len(found.Tracks.Items) > 0 {
			result.Resolved[i].URI = found.Tracks.Items[0].URI
			result.MatchedCount++
			uris = append(uris, found.Tracks.Items[0].URI)
		}
	}

	if playlistName == "" {
		return result, nil
	}
	if len(uris) == 0 {
		return result, fmt.Errorf("no suggestions matched the catalog, playlist not created")
	}

	user, err := rec.catalog.UserProfile(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: failed to load profile: %v", shared.ErrAPIRequest, err)
	}

	description := describePreferences(prefs)
	playlist, err := rec.catalog.CreatePlaylist(ctx, user.ID, playlistName, description, false)
	if err != nil {
		return result, fmt.Errorf("%w: failed to create playlist: %v", shared.ErrAPIRequest, err)
	}
	if err := rec.catalog.AddTracks(ctx, playlist.ID, uris); err != nil {
		return result, fmt.Errorf("%w: failed to add tracks: %v", shared.ErrAPIRequest, err)
	}

	result.Playlist = playlist
	rec.sendProgress(progress, playlistUpdate(playlist.Name, playlist.ID))
	return result, nil
}

// assemblePrompt renders the generation prompt from preferences and the
// gathered insights context.
func assemblePrompt(prefs services.Preferences, artists []services.InsightArtist, tracks []services.InsightTrack) string {
	var b strings.Builder

	b.WriteString("Recommend 10 songs for a listener. Respond with a JSON array of ")
	b.WriteString(`objects shaped {"title": string, "artist": string, "reason": string} and nothing else.`)
	b.WriteString("\n\nListener preferences:\n")

	if len(prefs.Genres) > 0 {
		fmt.Fprintf(&b, "- Genres: %s\n", strings.Join(prefs.Genres, ", "))
	}
	if len(prefs.Artists) > 0 {
		fmt.Fprintf(&b, "- Favorite artists: %s\n", strings.Join(prefs.Artists, ", "))
	}
	if prefs.Mood != "" {
		fmt.Fprintf(&b, "- Mood: %s\n", prefs.Mood)
	}
	if prefs.Era != "" {
		fmt.Fprintf(&b, "- Era: %s\n", prefs.Era)
	}

	if len(artists) > 0 {
		b.WriteString("\nArtists similar to the listener's favorites:\n")
		for _, a := range artists {
			fmt.Fprintf(&b, "- %s\n", a.Name)
		}
	}
	if len(tracks) > 0 {
		b.WriteString("\nPopular tracks in the listener's genres:\n")
		for _, t := range tracks {
			fmt.Fprintf(&b, "- %s by %s\n", t.Name, t.Artist.Name)
		}
	}

	b.WriteString("\nAvoid repeating tracks listed above.")
	return b.String()
}

// parseSuggestions extracts the JSON array from a generation response,
// tolerating surrounding prose and markdown code fences.
func parseSuggestions(raw string) ([]services.TrackSuggestion, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("%w: generation response contained no JSON array", shared.ErrUnparseableResponse)
	}

	var suggestions []services.TrackSuggestion
	if err := json.Unmarshal([]byte(raw[start:end+1]), &suggestions); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnparseableResponse, err)
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("%w: generation response contained no suggestions", shared.ErrUnparseableResponse)
	}

	return suggestions, nil
}

// describePreferences produces a short playlist description.
func describePreferences(prefs services.Preferences) string {
	parts := []string{}
	if len(prefs.Genres) > 0 {
		parts = append(parts, strings.Join(prefs.Genres, "/"))
	}
	if prefs.Mood != "" {
		parts = append(parts, prefs.Mood)
	}
	if prefs.Era != "" {
		parts = append(parts, prefs.Era)
	}
	if len(parts) == 0 {
		return "Generated by mixtape"
	}
	return "Generated by mixtape: " + strings.Join(parts, ", ")
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mixtape-sh/mixtape/internal/shared"
)

func TestInsightsService(t *testing.T) {
	t.Run("Authenticate", func(t *testing.T) {
		t.Run("Stores API Key", func(t *testing.T) {
			srv := NewInsightsService("", "")
			if err := srv.Authenticate(context.Background(), map[string]string{"api_key": "k"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.apiKey != "k" {
				t.Errorf("expected stored key, got %q", srv.apiKey)
			}
		})

		t.Run("Missing API Key", func(t *testing.T) {
			srv := NewInsightsService("", "")
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("Request Without Key", func(t *testing.T) {
		srv := NewInsightsService("", "")
		_, err := srv.SimilarArtists(context.Background(), "Nirvana", 5)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("SimilarArtists", func(t *testing.T) {
		t.Run("Missing Artist", func(t *testing.T) {
			srv := NewInsightsService("", "k")
			_, err := srv.SimilarArtists(context.Background(), "", 5)
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("Parses Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("method") != "artist.getsimilar" {
					t.Errorf("unexpected method %q", q.Get("method"))
				}
				if q.Get("artist") != "Nirvana" {
					t.Errorf("unexpected artist %q", q.Get("artist"))
				}
				if q.Get("api_key") != "k" || q.Get("format") != "json" {
					t.Errorf("expected keyed json request, got %v", q)
				}

				json.NewEncoder(w).Encode(map[string]any{
					"similarartists": map[string]any{
						"artist": []map[string]string{
							{"name": "Mudhoney", "match": "0.87"},
							{"name": "Soundgarden", "match": "0.81"},
						},
					},
				})
			}))
			defer server.Close()

			srv := NewInsightsService(server.URL, "k")
			artists, err := srv.SimilarArtists(context.Background(), "Nirvana", 2)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(artists) != 2 || artists[0].Name != "Mudhoney" {
				t.Errorf("unexpected artists %+v", artists)
			}
		})
	})

	t.Run("TagTopTracks Parses Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("method"); got != "tag.gettoptracks" {
				t.Errorf("unexpected method %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"tracks": map[string]any{
					"track": []map[string]any{
						{"name": "Breathe", "artist": map[string]string{"name": "Pink Floyd"}},
					},
				},
			})
		}))
		defer server.Close()

		srv := NewInsightsService(server.URL, "k")
		tracks, err := srv.TagTopTracks(context.Background(), "psychedelic", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].Artist.Name != "Pink Floyd" {
			t.Errorf("unexpected tracks %+v", tracks)
		}
	})

	t.Run("ArtistTopTags Parses Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"toptags": map[string]any{
					"tag": []map[string]any{{"name": "grunge", "count": 100}},
				},
			})
		}))
		defer server.Close()

		srv := NewInsightsService(server.URL, "k")
		tags, err := srv.ArtistTopTags(context.Background(), "Nirvana")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tags) != 1 || tags[0].Name != "grunge" {
			t.Errorf("unexpected tags %+v", tags)
		}
	})

	t.Run("Rejected Key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		srv := NewInsightsService(server.URL, "bad")
		_, err := srv.SimilarArtists(context.Background(), "Nirvana", 5)
		if !errors.Is(err, shared.ErrInvalidCredential) {
			t.Errorf("expected ErrInvalidCredential, got %v", err)
		}
	})

	t.Run("Platform Error Message Surfaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "Invalid parameters"})
		}))
		defer server.Close()

		srv := NewInsightsService(server.URL, "k")
		_, err := srv.SimilarArtists(context.Background(), "Nirvana", 5)
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "Invalid parameters") {
			t.Errorf("expected platform message in error, got %v", err)
		}
	})
}

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

func TestGenerativeService(t *testing.T) {
	t.Run("Authenticate Missing Key", func(t *testing.T) {
		srv := NewGenerativeService("", "", "")
		err := srv.Authenticate(context.Background(), map[string]string{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Generate", func(t *testing.T) {
		t.Run("Without Key", func(t *testing.T) {
			srv := NewGenerativeService("", "", "")
			_, err := srv.Generate(context.Background(), "suggest songs")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Empty Prompt", func(t *testing.T) {
			srv := NewGenerativeService("", "k", "")
			_, err := srv.Generate(context.Background(), "")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("Success", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.URL.Path, "generateContent") {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				if r.URL.Query().Get("key") != "k" {
					t.Errorf("expected api key on query, got %q", r.URL.Query().Get("key"))
				}

				var body struct {
					Contents []struct {
						Parts []struct {
							Text string `json:"text"`
						} `json:"parts"`
					} `json:"contents"`
				}
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Fatalf("bad request body: %v", err)
				}
				if len(body.Contents) != 1 || body.Contents[0].Parts[0].Text != "suggest songs" {
					t.Errorf("unexpected request body %+v", body)
				}

				json.NewEncoder(w).Encode(map[string]any{
					"candidates": []map[string]any{
						{"content": map[string]any{"parts": []map[string]string{{"text": `[{"title":"Song"}]`}}}},
					},
				})
			}))
			defer server.Close()

			srv := NewGenerativeService(server.URL, "k", "test-model")
			text, err := srv.Generate(context.Background(), "suggest songs")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if text != `[{"title":"Song"}]` {
				t.Errorf("unexpected text %q", text)
			}
		})

		t.Run("Rejected Key", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			srv := NewGenerativeService(server.URL, "bad", "")
			_, err := srv.Generate(context.Background(), "suggest songs")
			if !errors.Is(err, shared.ErrInvalidCredential) {
				t.Errorf("expected ErrInvalidCredential, got %v", err)
			}
		})

		t.Run("Empty Candidates", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
			}))
			defer server.Close()

			srv := NewGenerativeService(server.URL, "k", "")
			_, err := srv.Generate(context.Background(), "suggest songs")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})
}

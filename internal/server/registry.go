package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mixtape-sh/mixtape/internal/shared"
)

const (
	// defaultIdleTimeout is how long a session may sit without traffic
	// before the sweeper closes it.
	defaultIdleTimeout = 30 * time.Minute

	// defaultSweepInterval is how often idle sessions are collected.
	defaultSweepInterval = 5 * time.Minute
)

// Session associates a server-assigned identifier with the caller's validated
// credential and activity timestamps.
type Session struct {
	ID         string    `json:"id"`
	User       string    `json:"user,omitempty"` // upstream profile id the credential belongs to
	Credential string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeen   time.Time `json:"last_seen"`
}

// Registry is the server-side session table. It is mutated from concurrent
// inbound requests and from the periodic sweeper, so every access holds the
// mutex.
type Registry struct {
	mu            sync.Mutex
	sessions      map[string]*Session
	idleTimeout   time.Duration
	sweepInterval time.Duration
	logger        *log.Logger
	now           func() time.Time
}

// RegistryOpts configures a [Registry]. Zero values fall back to the
// documented defaults (30 minute idle timeout, 5 minute sweep).
type RegistryOpts struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Logger        *log.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(opts RegistryOpts) *Registry {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Registry{
		sessions:      make(map[string]*Session),
		idleTimeout:   opts.IdleTimeout,
		sweepInterval: opts.SweepInterval,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// Create registers a new session for a validated credential and returns it.
func (r *Registry) Create(credential, user string) *Session {
	now := r.now()
	session := &Session{
		ID:         shared.GenerateID(),
		User:       user,
		Credential: credential,
		CreatedAt:  now,
		LastSeen:   now,
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	r.logger.Info("session created", "session_id", session.ID, "user", user)
	return session
}

// Get looks up a session and marks it active. A copy is returned so callers
// never hold registry-owned state.
func (r *Registry) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	session.LastSeen = r.now()
	return *session, nil
}

// UpdateCredential replaces a session's credential after revalidation.
// Last writer wins.
func (r *Registry) UpdateCredential(id, credential, user string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	session.Credential = credential
	session.User = user
	session.LastSeen = r.now()
	return nil
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.logger.Info("session closed", "session_id", id)
	}
}

// List returns a snapshot of every live session.
func (r *Registry) List() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		list = append(list, *session)
	}
	return list
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes every session idle past the timeout and reports how many were
// collected.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	var swept []string
	for id, session := range r.sessions {
		if session.LastSeen.Before(cutoff) {
			swept = append(swept, id)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, id := range swept {
		r.logger.Info("session swept for inactivity", "session_id", id)
	}
	return len(swept)
}

// Run sweeps idle sessions on the configured interval until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll removes every session, honoring ctx as the grace deadline.
func (r *Registry) CloseAll(ctx context.Context) int {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	closed := 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			r.logger.Warn("shutdown grace period expired", "closed", closed, "remaining", len(ids)-closed)
			return closed
		default:
		}
		r.Delete(id)
		closed++
	}
	return closed
}

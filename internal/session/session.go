// Package session holds the per-session roadmap state shared by the student
// and reviewer pages, and the stores it is kept in between requests.
package session

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Stage is the position of a session in the review workflow.
type Stage string

const (
	StageNoRoadmap     Stage = "no_roadmap"
	StagePendingReview Stage = "pending_review"
	StageEditing       Stage = "editing"
	StageFinalized     Stage = "finalized"
)

// Label returns a human-readable name for the stage.
func (s Stage) Label() string {
	switch s {
	case StageNoRoadmap:
		return "not generated"
	case StagePendingReview:
		return "pending review"
	case StageEditing:
		return "being edited"
	case StageFinalized:
		return "finalized"
	default:
		return string(s)
	}
}

// State is everything a session remembers. The zero value is a fresh session.
type State struct {
	Roadmap *string `json:"roadmap"`
	Editing bool    `json:"editing"`
	Final   bool    `json:"final"`
}

// Stage derives the workflow stage from the three fields.
func (s *State) Stage() Stage {
	switch {
	case s.Final:
		return StageFinalized
	case s.Roadmap == nil:
		return StageNoRoadmap
	case s.Editing:
		return StageEditing
	default:
		return StagePendingReview
	}
}

// HasRoadmap reports whether a roadmap has been stored, even an empty one.
func (s *State) HasRoadmap() bool {
	return s.Roadmap != nil
}

// RoadmapText returns the stored roadmap or "".
func (s *State) RoadmapText() string {
	if s.Roadmap == nil {
		return ""
	}
	return *s.Roadmap
}

// SetRoadmap stores text, replacing whatever was there.
func (s *State) SetRoadmap(text string) {
	s.Roadmap = &text
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	if s.Roadmap != nil {
		text := *s.Roadmap
		c.Roadmap = &text
	}
	return &c
}

// Store keeps session state between requests.
type Store interface {
	// Load returns the state for id, or a fresh State if id is unknown.
	Load(ctx context.Context, id string) (*State, error)
	// Save replaces the state for id.
	Save(ctx context.Context, id string, st *State) error
	// Delete forgets id. Unknown ids are not an error.
	Delete(ctx context.Context, id string) error
}

// NewID returns a new session identifier.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// ValidID reports whether id looks like an identifier produced by NewID.
func ValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// Locker serialises work on the same session id.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

// Lock blocks until id is free and returns the function that releases it.
func (l *Locker) Lock(id string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

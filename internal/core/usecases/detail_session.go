package usecases

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

// DetailSession is the lifecycle of one opened detail view:
// loading, then rendered or error, and finally closed.
type DetailSession struct {
	id       string
	objectID string
	openedAt time.Time
	done     chan struct{}

	mu      sync.Mutex
	status  domain.DetailStatus
	content *domain.DetailContent
	err     error
}

func newDetailSession(objectID string) *DetailSession {
	return &DetailSession{
		id:       uuid.NewString(),
		objectID: objectID,
		openedAt: time.Now().UTC(),
		done:     make(chan struct{}),
		status:   domain.DetailLoading,
	}
}

// ID returns the session identifier.
func (s *DetailSession) ID() string { return s.id }

// ObjectID returns the listing the session shows.
func (s *DetailSession) ObjectID() string { return s.objectID }

// Done is closed once the content load has finished and been applied.
func (s *DetailSession) Done() <-chan struct{} { return s.done }

// Status returns the lifecycle position.
func (s *DetailSession) Status() domain.DetailStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the load error, if any.
func (s *DetailSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Snapshot returns a read-only copy of the session.
func (s *DetailSession) Snapshot() *domain.DetailSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &domain.DetailSnapshot{
		SessionID: s.id,
		ObjectID:  s.objectID,
		Status:    s.status,
		OpenedAt:  s.openedAt,
	}
	if s.content != nil {
		c := *s.content
		snap.Content = &c
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

// resolve records the outcome of the content load. A closed session keeps
// its status but still stores the late result.
func (s *DetailSession) resolve(content *domain.DetailContent, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	s.err = err
	if s.status == domain.DetailClosed {
		return
	}
	if err != nil {
		s.status = domain.DetailFailed
	} else {
		s.status = domain.DetailRendered
	}
}

func (s *DetailSession) close() {
	s.mu.Lock()
	s.status = domain.DetailClosed
	s.mu.Unlock()
}

func (s *DetailSession) finish() {
	close(s.done)
}

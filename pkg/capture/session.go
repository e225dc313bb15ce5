// Package capture records bounded video-evidence segments as ordered
// in-memory chunk sequences.
package capture

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a capture session.
type Status string

const (
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
	StatusAborted  Status = "aborted"
)

// Session is one evidence-recording attempt. Chunks are kept in arrival
// order; the session is terminal once complete or aborted.
type Session struct {
	ID             string
	StartedAt      time.Time
	TargetDuration time.Duration

	status Status
	chunks [][]byte
}

func newSession(startedAt time.Time, target time.Duration) *Session {
	return &Session{
		ID:             uuid.NewString(),
		StartedAt:      startedAt,
		TargetDuration: target,
		status:         StatusActive,
	}
}

// Status returns the session's lifecycle state.
func (s *Session) Status() Status {
	return s.status
}

// Chunks returns the recorded chunk sequence in arrival order.
func (s *Session) Chunks() [][]byte {
	return s.chunks
}

// Bytes concatenates all chunks into a single artifact.
func (s *Session) Bytes() []byte {
	total := 0
	for _, c := range s.chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

// append adds a chunk; ignored once the session is terminal.
func (s *Session) append(chunk []byte) {
	if s.status != StatusActive {
		return
	}
	s.chunks = append(s.chunks, chunk)
}

// complete marks the session terminal. Idempotent; an aborted session
// stays aborted.
func (s *Session) complete() {
	if s.status == StatusActive {
		s.status = StatusComplete
	}
}

// abort marks the session terminal and releases its chunks.
// Aborted evidence is never transcoded or delivered.
func (s *Session) abort() {
	if s.status != StatusActive {
		return
	}
	s.status = StatusAborted
	s.chunks = nil
}

// Expired reports whether the target duration has elapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.StartedAt.Add(s.TargetDuration))
}

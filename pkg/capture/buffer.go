package capture

import (
	"errors"
	"sync"
	"time"
)

// ErrAlreadyCapturing is returned when a session start overlaps an
// active session. At most one session may be active system-wide.
var ErrAlreadyCapturing = errors.New("capture: session already active")

// DefaultDuration is the reference evidence-segment length.
const DefaultDuration = 10 * time.Second

// Buffer owns the single active capture session. It is a stateless
// service from the pipeline's point of view: completed sessions are
// handed back to the caller and the buffer forgets them.
type Buffer struct {
	target time.Duration

	mu     sync.Mutex
	active *Session
}

// NewBuffer creates a buffer recording segments of the given duration.
// A non-positive duration falls back to DefaultDuration.
func NewBuffer(target time.Duration) *Buffer {
	if target <= 0 {
		target = DefaultDuration
	}
	return &Buffer{target: target}
}

// Start begins a new capture session at now.
// Fails with ErrAlreadyCapturing while another session is active.
func (b *Buffer) Start(now time.Time) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil {
		return nil, ErrAlreadyCapturing
	}
	b.active = newSession(now, b.target)
	return b.active, nil
}

// Append records a chunk on the active session in arrival order.
// Chunks arriving with no active session are dropped.
func (b *Buffer) Append(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == nil {
		return
	}
	b.active.append(chunk)
}

// Expired reports whether the active session has reached its target
// duration at now. False when nothing is being captured.
func (b *Buffer) Expired(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active != nil && b.active.Expired(now)
}

// Active reports whether a session is currently recording.
func (b *Buffer) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active != nil
}

// Stop completes the active session and returns it.
// Returns nil when no session is active, so duplicate stops are no-ops.
func (b *Buffer) Stop() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.active
	if s == nil {
		return nil
	}
	s.complete()
	b.active = nil
	return s
}

// Abort discards the active session (stream ended or errored mid-capture).
// Returns the aborted session, or nil if nothing was active.
func (b *Buffer) Abort() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.active
	if s == nil {
		return nil
	}
	s.abort()
	b.active = nil
	return s
}

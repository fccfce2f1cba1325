package services

import (
	"context"
	"sync"

	"lessonapp/internal/models"
	contextutils "lessonapp/internal/utils"

	lru "github.com/hashicorp/golang-lru/v2"
)

type generationSlot struct {
	mu       sync.Mutex
	busy     bool
	sequence uint64
	cancel   context.CancelFunc
	latest   *models.GenerationResult
}

// GenerationTicket identifies one in-flight generation for a session
type GenerationTicket struct {
	SessionID string
	Sequence  uint64
	slot      *generationSlot
	cancel    context.CancelFunc
}

// GenerationTracker holds one generation slot per browser session in a bounded LRU.
// A slot allows one generation at a time and only accepts the result of its current sequence.
type GenerationTracker struct {
	mu    sync.Mutex
	slots *lru.Cache[string, *generationSlot]
}

// NewGenerationTracker creates a tracker that remembers at most maxSessions sessions
func NewGenerationTracker(maxSessions int) (*GenerationTracker, error) {
	slots, err := lru.New[string, *generationSlot](maxSessions)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrConfiguration, "invalid session capacity %d: %v", maxSessions, err)
	}
	return &GenerationTracker{slots: slots}, nil
}

func (t *GenerationTracker) slot(sessionID string, create bool) *generationSlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.slots.Get(sessionID); ok {
		return s
	}
	if !create {
		return nil
	}
	s := &generationSlot{}
	t.slots.Add(sessionID, s)
	return s
}

// Begin reserves the session's slot and returns a context that Cancel can stop.
// It fails with GenerationInProgress while another generation holds the slot.
func (t *GenerationTracker) Begin(ctx context.Context, sessionID string) (context.Context, *GenerationTicket, error) {
	s := t.slot(sessionID, true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, nil, contextutils.WrapErrorf(contextutils.ErrGenerationInProgress, "a lesson plan is already being generated for this session")
	}

	genCtx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.sequence++
	s.cancel = cancel
	return genCtx, &GenerationTicket{SessionID: sessionID, Sequence: s.sequence, slot: s, cancel: cancel}, nil
}

// Complete stores result as the session's latest document when the ticket is still current.
// A stale ticket (cancelled or superseded) is discarded and Complete reports false.
func (t *GenerationTracker) Complete(ticket *GenerationTicket, result *models.GenerationResult) bool {
	defer ticket.cancel()
	s := ticket.slot

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sequence != ticket.Sequence {
		return false
	}
	s.busy = false
	s.cancel = nil
	s.latest = result
	return true
}

// Fail releases the slot without touching the latest document
func (t *GenerationTracker) Fail(ticket *GenerationTicket) {
	defer ticket.cancel()
	s := ticket.slot

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sequence == ticket.Sequence {
		s.busy = false
		s.cancel = nil
	}
}

// Cancel stops the session's in-flight generation and invalidates its sequence so a late
// result is ignored. It reports whether anything was running.
func (t *GenerationTracker) Cancel(sessionID string) bool {
	s := t.slot(sessionID, false)
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		return false
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.sequence++
	s.busy = false
	s.cancel = nil
	return true
}

// Busy reports whether the session has a generation in flight
func (t *GenerationTracker) Busy(sessionID string) bool {
	s := t.slot(sessionID, false)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Latest returns the session's most recent completed result
func (t *GenerationTracker) Latest(sessionID string) (*models.GenerationResult, bool) {
	s := t.slot(sessionID, false)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latest != nil
}

// Len returns the number of tracked sessions
func (t *GenerationTracker) Len() int {
	return t.slots.Len()
}

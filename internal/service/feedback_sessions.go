package service

import (
	"sync"
	"time"
)

// sessionKey scopes a pending feedback session to one admin in one
// conversation so a second, unrelated admin action can never resolve it.
type sessionKey struct {
	AdminID int64
	ChatID  int64
}

type sessionEntry struct {
	SubmissionID uint
	ExpiresAt    time.Time
}

// feedbackSessions holds the transient request-revision state. Sessions live
// in memory only; a restart drops them, which is an accepted limitation.
// Expiry is checked lazily on access, so no sweeper goroutine is needed.
type feedbackSessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[sessionKey]sessionEntry
}

func newFeedbackSessions(ttl time.Duration) *feedbackSessions {
	return &feedbackSessions{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[sessionKey]sessionEntry),
	}
}

// open starts (or replaces) the session for the given admin and chat.
func (f *feedbackSessions) open(adminID, chatID int64, submissionID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[sessionKey{AdminID: adminID, ChatID: chatID}] = sessionEntry{
		SubmissionID: submissionID,
		ExpiresAt:    f.now().Add(f.ttl),
	}
}

// peek returns the open session without closing it.
func (f *feedbackSessions) peek(adminID, chatID int64) (uint, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := sessionKey{AdminID: adminID, ChatID: chatID}
	entry, ok := f.entries[key]
	if !ok {
		return 0, false
	}

	if f.now().After(entry.ExpiresAt) {
		delete(f.entries, key)
		return 0, false
	}

	return entry.SubmissionID, true
}

// close removes the session if one is open. Idempotent.
func (f *feedbackSessions) close(adminID, chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.entries, sessionKey{AdminID: adminID, ChatID: chatID})
}

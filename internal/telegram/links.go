package telegram

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/qarzdaftar/backend/internal/metrics"
)

const codeBytes = 16

type pendingLink struct {
	userID    string
	expiresAt time.Time
}

// LinkStore holds the single-use codes that pair a chat with a user. It lives
// in process memory only; a restart simply invalidates outstanding codes.
type LinkStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	codes map[string]pendingLink
}

func NewLinkStore(ttl time.Duration) *LinkStore {
	return &LinkStore{ttl: ttl, now: time.Now, codes: map[string]pendingLink{}}
}

// Issue mints a fresh code for userID and drops every expired entry.
func (s *LinkStore) Issue(userID string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	var code string
	for {
		c, err := randomCode()
		if err != nil {
			return "", time.Time{}, err
		}
		if _, taken := s.codes[c]; !taken {
			code = c
			break
		}
	}
	expiresAt := now.Add(s.ttl)
	s.codes[code] = pendingLink{userID: userID, expiresAt: expiresAt}

	metrics.LinkCodesIssued.Inc()
	metrics.LinkCodesPending.Set(float64(len(s.codes)))
	return code, expiresAt, nil
}

// Consume removes code and returns its owner if the code was still valid.
// Lookup and removal happen under one lock, so a code works at most once.
func (s *LinkStore) Consume(code string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, found := s.codes[code]
	delete(s.codes, code)
	metrics.LinkCodesPending.Set(float64(len(s.codes)))

	if !found || s.now().After(l.expiresAt) {
		return "", false
	}
	return l.userID, true
}

func (s *LinkStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func (s *LinkStore) sweepLocked(now time.Time) {
	for code, l := range s.codes {
		if now.After(l.expiresAt) {
			delete(s.codes, code)
		}
	}
}

func randomCode() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// wellFormedCode reports whether s could have come from Issue.
func wellFormedCode(s string) bool {
	if len(s) != codeBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// EventKey returns a stable dedup key for one inbound event. The socket
// envelope id wins when present, then the Events API event id. Without either
// the key is a SHA-256 over the RFC 8785 canonical form of the raw event
// JSON, so re-deliveries with reordered object keys still collide.
func EventKey(envelopeID, eventID string, rawEvent []byte) (string, error) {
	if id := strings.TrimSpace(envelopeID); id != "" {
		return "envelope:" + id, nil
	}
	if id := strings.TrimSpace(eventID); id != "" {
		return "event:" + id, nil
	}
	if len(rawEvent) == 0 {
		return "", fmt.Errorf("event payload is required")
	}
	canonical, err := jsoncanonicalizer.Transform(rawEvent)
	if err != nil {
		return "", fmt.Errorf("canonicalize event payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

type SeenSetOptions struct {
	MaxAge time.Duration
	Now    func() time.Time
}

// SeenSet remembers event keys for MaxAge so redelivered events can be
// dropped. Safe for concurrent use.
type SeenSet struct {
	mu     sync.Mutex
	maxAge time.Duration
	nowFn  func() time.Time
	seen   map[string]time.Time
}

func NewSeenSet(opts SeenSetOptions) *SeenSet {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &SeenSet{
		maxAge: maxAge,
		nowFn:  nowFn,
		seen:   make(map[string]time.Time),
	}
}

// Observe records key and reports whether it was observed for the first time.
func (s *SeenSet) Observe(key string) bool {
	key = strings.TrimSpace(key)
	if s == nil || key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = s.nowFn()
	return true
}

func (s *SeenSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Sweep drops entries older than MaxAge.
func (s *SeenSet) Sweep() {
	if s == nil {
		return
	}
	cutoff := s.nowFn().Add(-s.maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, key)
		}
	}
}

// Run sweeps on the given interval until ctx is done.
func (s *SeenSet) Run(ctx context.Context, interval time.Duration) {
	if s == nil {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

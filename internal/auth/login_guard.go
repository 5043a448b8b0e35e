package auth

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

// LoginGuardConfig holds the brute-force protection settings for password logins
type LoginGuardConfig struct {
	MaxAttempts     int           // Failures inside the window that trigger a lockout
	LockoutDuration time.Duration // Sliding window length and lockout length

	// OnLockout is called once per not-locked to locked transition, outside the guard's lock.
	OnLockout func(clientID string, until time.Time)
}

// attemptEntry is the ledger record for a single client address
type attemptEntry struct {
	failures    []time.Time // oldest first
	lockedUntil time.Time   // zero when no lockout is recorded
}

// LoginGuard tracks failed password checks per client address and locks an address out
// once MaxAttempts failures fall inside a trailing LockoutDuration window.
//
// All state lives in memory and is lost on restart. A single mutex serializes every
// operation, so prune-append-lock sequences are atomic per key.
type LoginGuard struct {
	mu      sync.Mutex
	entries map[string]*attemptEntry
	config  LoginGuardConfig
	clock   Clock
	logger  *slog.Logger
}

// NewLoginGuard creates a LoginGuard. Non-positive settings fall back to the defaults.
func NewLoginGuard(config LoginGuardConfig, clock Clock, logger *slog.Logger) *LoginGuard {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxLoginAttempts
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = DefaultLockoutDuration
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &LoginGuard{
		entries: make(map[string]*attemptEntry),
		config:  config,
		clock:   clock,
		logger:  logger,
	}
}

// IsLockedOut reports whether clientID is currently locked out and, if so, how many whole
// seconds remain (rounded up). An expired lockout is cleared together with the failure
// history of the client.
func (g *LoginGuard) IsLockedOut(clientID string) (bool, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[clientID]
	if !ok {
		return false, 0
	}

	now := g.clock.Now()

	if !entry.lockedUntil.IsZero() {
		if entry.lockedUntil.After(now) {
			return true, ceilSeconds(entry.lockedUntil.Sub(now))
		}
		delete(g.entries, clientID)
		return false, 0
	}

	g.pruneLocked(entry, now)
	if len(entry.failures) == 0 {
		delete(g.entries, clientID)
	}

	return false, 0
}

// RecordFailedAttempt records one failed credential check for clientID.
// It returns whether the client is now locked out, how many attempts remain before a
// lockout, and the lockout length in seconds when one was just set.
func (g *LoginGuard) RecordFailedAttempt(clientID string) (bool, int, int) {
	g.mu.Lock()

	now := g.clock.Now()
	entry, ok := g.entries[clientID]
	if !ok {
		entry = &attemptEntry{}
		g.entries[clientID] = entry
	}

	wasLocked := entry.lockedUntil.After(now)
	if !wasLocked && !entry.lockedUntil.IsZero() {
		// An elapsed lockout starts a fresh count, same as IsLockedOut observing it.
		entry.lockedUntil = time.Time{}
		entry.failures = entry.failures[:0]
	}

	g.pruneLocked(entry, now)
	entry.failures = append(entry.failures, now)

	// Only the newest MaxAttempts timestamps can decide a lockout.
	if len(entry.failures) > g.config.MaxAttempts {
		entry.failures = append(entry.failures[:0], entry.failures[len(entry.failures)-g.config.MaxAttempts:]...)
	}

	count := len(entry.failures)
	if count < g.config.MaxAttempts {
		g.mu.Unlock()
		return false, g.config.MaxAttempts - count, 0
	}

	entry.lockedUntil = now.Add(g.config.LockoutDuration)
	until := entry.lockedUntil
	g.mu.Unlock()

	lockoutSeconds := ceilSeconds(g.config.LockoutDuration)
	if !wasLocked {
		g.logger.Warn("client locked out after repeated login failures",
			slog.String("client_id", clientID),
			slog.Int("failed_attempts", count),
			slog.Duration("lockout_duration", g.config.LockoutDuration))
		if g.config.OnLockout != nil {
			g.config.OnLockout(clientID, until)
		}
	}

	return true, 0, lockoutSeconds
}

// ClearAttempts forgets all failures and any lockout for clientID
func (g *LoginGuard) ClearAttempts(clientID string) {
	g.mu.Lock()
	delete(g.entries, clientID)
	g.mu.Unlock()
}

// Sweep drops entries that carry no information any more: no lockout in the future and no
// failure inside the window. It returns the number of removed entries.
func (g *LoginGuard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	removed := 0
	for clientID, entry := range g.entries {
		if entry.lockedUntil.After(now) {
			continue
		}
		if !entry.lockedUntil.IsZero() {
			delete(g.entries, clientID)
			removed++
			continue
		}
		g.pruneLocked(entry, now)
		if len(entry.failures) == 0 {
			delete(g.entries, clientID)
			removed++
		}
	}

	return removed
}

// Len returns the number of tracked client addresses
func (g *LoginGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Config returns the effective guard settings
func (g *LoginGuard) Config() LoginGuardConfig {
	return g.config
}

// pruneLocked removes failures older than the window. Caller must hold g.mu.
func (g *LoginGuard) pruneLocked(entry *attemptEntry, now time.Time) {
	cutoff := now.Add(-g.config.LockoutDuration)

	i := 0
	for i < len(entry.failures) && entry.failures[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		entry.failures = append(entry.failures[:0], entry.failures[i:]...)
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

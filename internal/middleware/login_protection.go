// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// maxLockout caps the doubling lockout.
const maxLockout = 24 * time.Hour

// maxTrackedIPs bounds the per-IP limiter maps.
const maxTrackedIPs = 10000

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is POST requests per second per client IP.
	IPRateLimit float64
	// IPBurst is the per-IP burst allowance.
	IPBurst int
	// MaxFailedAttempts locks an account once reached inside AttemptWindow.
	MaxFailedAttempts int
	// LockoutDuration is the first lockout; each further lockout doubles it.
	LockoutDuration time.Duration
	// AttemptWindow is how long failures keep counting toward a lockout.
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig allows one signup or login POST every two
// seconds per IP and locks an account for 15 minutes after five failures.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

func (c LoginProtectionConfig) withDefaults() LoginProtectionConfig {
	d := DefaultLoginProtectionConfig()
	if c.IPRateLimit <= 0 {
		c.IPRateLimit = d.IPRateLimit
	}
	if c.IPBurst <= 0 {
		c.IPBurst = d.IPBurst
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = d.MaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = d.AttemptWindow
	}
	return c
}

// FailedLogin is the outcome of recording a wrong password.
type FailedLogin struct {
	// Remaining is how many more failures the account tolerates.
	Remaining int
	// LockedFor is non-zero when this failure locked the account.
	LockedFor time.Duration
}

// Locked reports whether the failure triggered a lockout.
func (f FailedLogin) Locked() bool { return f.LockedFor > 0 }

// strikes is the failure ledger of one username.
type strikes struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtection throttles credential POSTs per IP and locks usernames
// after repeated wrong passwords. Usernames are matched exactly, like the
// account store does.
type LoginProtection struct {
	cfg      LoginProtectionConfig
	limiters *limiterCache[string]

	mu     sync.Mutex
	ledger map[string]*strikes

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewLoginProtection starts a LoginProtection with a background sweep.
// Call Stop to end the sweep.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	cfg = cfg.withDefaults()
	lp := &LoginProtection{
		cfg:      cfg,
		limiters: newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		ledger:   make(map[string]*strikes),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go lp.sweepLoop(10 * time.Minute)
	return lp
}

// Stop ends the background sweep. It is safe to call more than once.
func (lp *LoginProtection) Stop() {
	lp.once.Do(func() { close(lp.stop) })
}

// AllowIP spends one token of the IP's budget.
func (lp *LoginProtection) AllowIP(ip string) bool {
	return lp.limiters.get(ip).Allow()
}

// LockedFor returns how long username stays locked, or zero.
func (lp *LoginProtection) LockedFor(username string) time.Duration {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	s, ok := lp.ledger[username]
	if !ok {
		return 0
	}
	if left := s.lockedUntil.Sub(lp.now()); left > 0 {
		return left
	}
	return 0
}

// Fail records a wrong password for username.
func (lp *LoginProtection) Fail(username string) FailedLogin {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	s, ok := lp.ledger[username]
	if !ok {
		s = &strikes{}
		lp.ledger[username] = s
	}
	if s.failures == 0 || now.Sub(s.windowStart) > lp.cfg.AttemptWindow {
		s.failures = 0
		s.windowStart = now
	}
	s.failures++

	if s.failures < lp.cfg.MaxFailedAttempts {
		return FailedLogin{Remaining: lp.cfg.MaxFailedAttempts - s.failures}
	}

	lock := lp.cfg.LockoutDuration
	for i := 0; i < s.lockouts && lock < maxLockout; i++ {
		lock *= 2
	}
	lock = min(lock, maxLockout)
	s.lockedUntil = now.Add(lock)
	s.lockouts++
	s.failures = 0

	slog.Warn("account locked after failed logins", "username", username, "lockouts", s.lockouts, "duration", lock)
	return FailedLogin{LockedFor: lock}
}

// Clear forgets the failures of username after a successful login.
func (lp *LoginProtection) Clear(username string) {
	lp.mu.Lock()
	delete(lp.ledger, username)
	lp.mu.Unlock()
}

func (lp *LoginProtection) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lp.sweep()
		case <-lp.stop:
			return
		}
	}
}

// sweep drops ledgers that are neither locked nor inside their window.
func (lp *LoginProtection) sweep() {
	if lp.limiters.clearIfExceeds(maxTrackedIPs) {
		slog.Info("cleared login IP limiters", "limit", maxTrackedIPs)
	}

	now := lp.now()
	lp.mu.Lock()
	for username, s := range lp.ledger {
		if !now.Before(s.lockedUntil) && now.Sub(s.windowStart) > lp.cfg.AttemptWindow {
			delete(lp.ledger, username)
		}
	}
	lp.mu.Unlock()
}

// Middleware rejects signup and login POSTs from IPs over their budget.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				if ip := getClientIP(r); !lp.AllowIP(ip) {
					slog.Warn("login rate limit exceeded", "ip", ip, "path", r.URL.Path)
					WriteJSONError(w, http.StatusTooManyRequests, "Too many login attempts. Please wait a moment and try again.")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

package protection

import (
	"SmartLinks-Backend/internal/domain"
	"context"
	"time"

	"go.uber.org/zap"
)

// Reason explains a rate limiter decision.
type Reason string

const (
	ReasonAllowed       Reason = "allowed"
	ReasonRateLimited   Reason = "rate_limited"
	ReasonHourlyLimited Reason = "hourly_limited"
	ReasonBurstAttack   Reason = "burst_attack"
)

// Severities recorded in the audit log for limiter hits. Burst hits are
// treated as attacks, per-minute/per-hour hits as ordinary throttling.
const (
	severityRateLimit = 2
	severityBurst     = 4
)

const burstWindow = 10 * time.Second

// CheckResult is the outcome of a single rate limit check.
type CheckResult struct {
	Allowed bool
	Reason  Reason
}

// WindowCounts holds how many requests an IP made inside each trailing window.
type WindowCounts struct {
	Burst  int // trailing 10 seconds
	Minute int // trailing 1 minute
	Hour   int // trailing 1 hour
}

// WindowStore keeps per-IP request timestamps. Implementations must prune
// entries older than one hour as part of Counts.
type WindowStore interface {
	Counts(ctx context.Context, ip string, now time.Time) (WindowCounts, error)
	Record(ctx context.Context, ip string, now time.Time) error
}

// EventSink records protection audit events.
type EventSink interface {
	SaveProtectionEvent(ctx context.Context, event *domain.ProtectionEvent) error
}

// RateLimiter is the first gate of the click pipeline: per-IP sliding-window
// counters over 10-second, 1-minute and 1-hour windows.
type RateLimiter struct {
	store  WindowStore
	events EventSink
	bypass BypassPolicy
	log    *zap.Logger
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter on top of the given window store.
func NewRateLimiter(store WindowStore, events EventSink, bypass BypassPolicy, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		events: events,
		bypass: bypass,
		log:    log,
		now:    time.Now,
	}
}

// Check decides whether a request from the given IP may proceed. The current
// request is recorded only when allowed, so the counts compared against the
// profile thresholds cover prior requests.
//
// Store failures fail open: availability wins over strict protection here,
// same as detection reads elsewhere.
func (rl *RateLimiter) Check(ctx context.Context, linkID int64, profile *domain.Profile, sig Signal) CheckResult {
	if rl.bypass.IsLoadTest(sig) {
		rl.log.Debug("load test signal, skipping rate limit", zap.String("ip", sig.IP))
		return CheckResult{Allowed: true, Reason: ReasonAllowed}
	}

	now := rl.now()

	counts, err := rl.store.Counts(ctx, sig.IP, now)
	if err != nil {
		rl.log.Warn("rate limit counts unavailable, failing open", zap.String("ip", sig.IP), zap.Error(err))
		return CheckResult{Allowed: true, Reason: ReasonAllowed}
	}

	if counts.Minute >= profile.RequestsPerIPPerMinute {
		rl.logEvent(ctx, linkID, domain.EventRateLimit, severityRateLimit, sig.IP, now)
		return CheckResult{Allowed: false, Reason: ReasonRateLimited}
	}

	if counts.Hour >= profile.RequestsPerIPPerHour {
		rl.logEvent(ctx, linkID, domain.EventRateLimit, severityRateLimit, sig.IP, now)
		return CheckResult{Allowed: false, Reason: ReasonHourlyLimited}
	}

	if counts.Burst >= profile.BurstThreshold {
		rl.logEvent(ctx, linkID, domain.EventBurstAttack, severityBurst, sig.IP, now)
		return CheckResult{Allowed: false, Reason: ReasonBurstAttack}
	}

	if err := rl.store.Record(ctx, sig.IP, now); err != nil {
		rl.log.Warn("failed to record request timestamp", zap.String("ip", sig.IP), zap.Error(err))
	}

	return CheckResult{Allowed: true, Reason: ReasonAllowed}
}

func (rl *RateLimiter) logEvent(ctx context.Context, linkID int64, eventType string, severity int, ip string, now time.Time) {
	event := &domain.ProtectionEvent{
		LinkID:          linkID,
		EventType:       eventType,
		Severity:        severity,
		IPAddress:       &ip,
		DetectedAt:      now,
		ProtectionLevel: severity,
	}
	// Audit only: a failed event write must not block the decision.
	if err := rl.events.SaveProtectionEvent(ctx, event); err != nil {
		rl.log.Warn("failed to log protection event",
			zap.Int64("link_id", linkID),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

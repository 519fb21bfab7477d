package protection

import (
	"SmartLinks-Backend/internal/domain"
	"context"
	"time"

	"go.uber.org/zap"
)

// Attack verdict reasons, highest severity first.
const (
	ReasonHighSuspicious     = "high_suspicious_activity"
	ReasonHighRequestRate    = "high_request_rate"
	ReasonModerateSuspicious = "moderate_suspicious_activity"
	ReasonNormalTraffic      = "normal"
)

// Verdict is the detector's answer for one link at one point in time.
type Verdict struct {
	IsAttack bool
	Reason   string
	Severity int
}

var verdictNormal = Verdict{IsAttack: false, Reason: ReasonNormalTraffic, Severity: 1}

// VisitCounter provides the visit aggregates the detector decides on.
type VisitCounter interface {
	CountVisitsSince(ctx context.Context, linkID int64, since time.Time) (int64, error)
	CountSuspiciousVisitsSince(ctx context.Context, linkID int64, since time.Time) (int64, error)
}

// Detector aggregates recent visit statistics for a link into an attack
// verdict. It holds no state of its own; every call re-reads the counts.
type Detector struct {
	visits VisitCounter
	bypass BypassPolicy
	log    *zap.Logger
	now    func() time.Time
}

// NewDetector creates an attack detector over the given visit counter.
func NewDetector(visits VisitCounter, bypass BypassPolicy, log *zap.Logger) *Detector {
	return &Detector{
		visits: visits,
		bypass: bypass,
		log:    log,
		now:    time.Now,
	}
}

// Detect computes the attack verdict for a link. Count read failures fail
// open to "normal": an unreachable store must not take every link down.
func (d *Detector) Detect(ctx context.Context, linkID int64, profile *domain.Profile, sig Signal) Verdict {
	if d.bypass.IsLoadTest(sig) {
		return verdictNormal
	}

	now := d.now()

	suspicious, err := d.visits.CountSuspiciousVisitsSince(ctx, linkID, now.Add(-profile.DetectionWindow()))
	if err != nil {
		d.log.Warn("suspicious visit count unavailable, failing open", zap.Int64("link_id", linkID), zap.Error(err))
		return verdictNormal
	}

	requests, err := d.visits.CountVisitsSince(ctx, linkID, now.Add(-time.Minute))
	if err != nil {
		d.log.Warn("request count unavailable, failing open", zap.Int64("link_id", linkID), zap.Error(err))
		return verdictNormal
	}

	switch {
	case suspicious > int64(profile.DDoSThreshold):
		return Verdict{IsAttack: true, Reason: ReasonHighSuspicious, Severity: 5}
	case requests > int64(profile.RequestsPerLinkPerMinute):
		return Verdict{IsAttack: true, Reason: ReasonHighRequestRate, Severity: 4}
	case suspicious > int64(profile.SuspiciousThreshold):
		return Verdict{IsAttack: true, Reason: ReasonModerateSuspicious, Severity: 3}
	default:
		return verdictNormal
	}
}

package engine

import (
	"SmartLinks-Backend/internal/domain"
	"SmartLinks-Backend/internal/metrics"
	"SmartLinks-Backend/internal/protection"
	"SmartLinks-Backend/internal/repository"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// recentVisitLimit bounds the visit window loaded for per-click decisions.
const recentVisitLimit = 20

// BlockReason explains why a click was not redirected.
type BlockReason string

const (
	BlockNone              BlockReason = ""
	BlockRateLimited       BlockReason = "rate_limited"
	BlockHourlyLimited     BlockReason = "hourly_limited"
	BlockBurstAttack       BlockReason = "burst_attack"
	BlockDisabled          BlockReason = "disabled"
	BlockTemporaryDisabled BlockReason = "temporary_disabled"
	BlockCaptchaRequired   BlockReason = "captcha_required"
	BlockLinkExpired       BlockReason = "link_expired"
	BlockLinkInactive      BlockReason = "link_inactive"
)

// ClickRequest is everything the engine needs to know about one inbound click.
type ClickRequest struct {
	Code           string
	IP             string
	SessionID      string
	UserAgent      string
	Referrer       string
	Device         string
	Region         string
	Browser        string
	OS             string
	LoadTestHeader string
	IsOwner        bool
}

// ClickResult is the engine's verdict for one click.
type ClickResult struct {
	Allowed    bool
	Reason     BlockReason
	TargetURL  string
	Tier       Tier
	Suspicious bool
	State      domain.LinkState
	Link       *domain.Link
}

// Engine runs the per-click decision pipeline: rate limiting, attack
// detection, protection escalation, behavior classification, target
// resolution and health evaluation, in that order.
type Engine struct {
	storage    repository.Storage
	limiter    *protection.RateLimiter
	detector   *protection.Detector
	machine    *protection.Machine
	classifier *Classifier
	health     *HealthEvaluator
	bypass     protection.BypassPolicy
	log        *zap.Logger
	now        func() time.Time
}

// New creates the click engine on top of the given storage and protection
// collaborators.
func New(
	storage repository.Storage,
	limiter *protection.RateLimiter,
	detector *protection.Detector,
	machine *protection.Machine,
	bypass protection.BypassPolicy,
	log *zap.Logger,
) *Engine {
	return &Engine{
		storage:    storage,
		limiter:    limiter,
		detector:   detector,
		machine:    machine,
		classifier: NewClassifier(storage, log),
		health:     NewHealthEvaluator(storage),
		bypass:     bypass,
		log:        log,
		now:        time.Now,
	}
}

// HandleClick runs the full pipeline for one inbound click. It returns
// repository.ErrCodeNotFound for unknown codes; any other error means a
// persistence write failed and the click must not be served.
func (e *Engine) HandleClick(ctx context.Context, req ClickRequest) (*ClickResult, error) {
	link, err := e.storage.GetLinkByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load link: %w", err)
	}

	now := e.now()

	if link.IsExpired(now) {
		return blocked(link, BlockLinkExpired), nil
	}

	sig := protection.Signal{
		IP:             req.IP,
		UserAgent:      req.UserAgent,
		LoadTestHeader: req.LoadTestHeader,
	}
	profile := e.resolveProfile(ctx, link)

	// Gate 1: per-IP rate limits.
	rate := e.limiter.Check(ctx, link.ID, profile, sig)
	if !rate.Allowed {
		return blocked(link, blockReasonForRate(rate.Reason)), nil
	}

	// Gate 2: link-level attack detection, escalating protection if needed.
	verdict := e.detector.Detect(ctx, link.ID, profile, sig)
	if verdict.IsAttack {
		level, escalated, err := e.machine.Escalate(ctx, link, verdict.Severity)
		if err != nil {
			return nil, err
		}
		if escalated {
			metrics.EscalationsTotal.WithLabelValues(level.String()).Inc()
			e.log.Warn("attack detected",
				zap.Int64("link_id", link.ID),
				zap.String("reason", verdict.Reason),
				zap.Int("severity", verdict.Severity))
		}
	}

	// Gate 3: active protection status (may auto-heal an aged block).
	status, err := e.machine.Status(ctx, link)
	if err != nil {
		return nil, err
	}
	if status.Blocked() {
		return blocked(link, blockReasonForStatus(status)), nil
	}

	ipHash := HashIP(req.IP)

	visits, err := e.storage.RecentVisits(ctx, link.ID, recentVisitLimit)
	if err != nil {
		// Classification degrades to first-visit defaults rather than
		// failing the click.
		e.log.Warn("recent visits unavailable", zap.Int64("link_id", link.ID), zap.Error(err))
		visits = nil
	}

	tier, sessionCount := e.classifier.Classify(ctx, link.ID, req.SessionID, visits, now, profile)

	suspicious := false
	if !e.bypass.IsLoadTest(sig) {
		suspicious = IsSuspicious(visits, ipHash, profile)
	}
	if suspicious {
		metrics.SuspiciousVisitsTotal.Inc()
	}

	targetURL := ResolveTarget(link, tier, sessionCount)

	state := link.State
	if !req.IsOwner {
		visit := &domain.Visit{
			LinkID:       link.ID,
			SessionID:    req.SessionID,
			IPHash:       ipHash,
			UserAgent:    optional(req.UserAgent),
			Ts:           now,
			Behavior:     string(tier),
			IsSuspicious: suspicious,
			TargetURL:    targetURL,
			Device:       optional(req.Device),
			Region:       optional(req.Region),
			Browser:      optional(req.Browser),
			OS:           optional(req.OS),
			Referrer:     optional(req.Referrer),
		}
		// A dropped visit row breaks downstream analytics, so this write
		// is fatal for the request.
		if err := e.storage.SaveVisit(ctx, visit); err != nil {
			return nil, fmt.Errorf("failed to persist visit: %w", err)
		}

		newState, err := e.health.Evaluate(ctx, link.ID, now, profile)
		if err != nil {
			e.log.Warn("health evaluation unavailable, keeping previous state",
				zap.Int64("link_id", link.ID), zap.Error(err))
			newState = link.State
		}
		if newState != link.State {
			if err := e.storage.UpdateLinkState(ctx, link.ID, newState); err != nil {
				return nil, fmt.Errorf("failed to persist link state: %w", err)
			}
			e.log.Info("link state changed",
				zap.Int64("link_id", link.ID),
				zap.String("from", string(link.State)),
				zap.String("to", string(newState)))
			link.State = newState
		}
		state = newState
	}

	if state == domain.StateInactive {
		return blocked(link, BlockLinkInactive), nil
	}

	return &ClickResult{
		Allowed:    true,
		TargetURL:  targetURL,
		Tier:       tier,
		Suspicious: suspicious,
		State:      state,
		Link:       link,
	}, nil
}

// resolveProfile finds the threshold profile for a link: the link's own
// profile, then the owner's default, then hard-coded defaults. Lookup
// failures are a configuration problem, never a request failure.
func (e *Engine) resolveProfile(ctx context.Context, link *domain.Link) *domain.Profile {
	if link.ProfileID != nil {
		profile, err := e.storage.GetProfile(ctx, *link.ProfileID)
		if err == nil {
			return profile
		}
		if !errors.Is(err, repository.ErrProfileNotFound) {
			e.log.Warn("link profile unavailable", zap.Int64("link_id", link.ID), zap.Error(err))
		}
	}

	profile, err := e.storage.GetDefaultProfile(ctx, link.UserID)
	if err == nil {
		return profile
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		e.log.Warn("default profile unavailable", zap.Int64("user_id", link.UserID), zap.Error(err))
	}

	return domain.DefaultProfile()
}

// HashIP returns the hex SHA-256 of an IP address. Raw IPs are never stored.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

func blocked(link *domain.Link, reason BlockReason) *ClickResult {
	return &ClickResult{
		Allowed: false,
		Reason:  reason,
		State:   link.State,
		Link:    link,
	}
}

func blockReasonForRate(reason protection.Reason) BlockReason {
	switch reason {
	case protection.ReasonBurstAttack:
		return BlockBurstAttack
	case protection.ReasonHourlyLimited:
		return BlockHourlyLimited
	default:
		return BlockRateLimited
	}
}

func blockReasonForStatus(status protection.Status) BlockReason {
	switch status {
	case protection.StatusDisabled:
		return BlockDisabled
	case protection.StatusTemporaryDisabled:
		return BlockTemporaryDisabled
	case protection.StatusCaptchaRequired:
		return BlockCaptchaRequired
	default:
		return BlockNone
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package protection

import (
	"SmartLinks-Backend/internal/domain"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultEscalationWindow is how long a level >=4 block holds before the link
// self-heals back to normal.
const DefaultEscalationWindow = time.Hour

// LinkProtectionStore persists protection level changes and audit events.
type LinkProtectionStore interface {
	UpdateLinkProtection(ctx context.Context, linkID int64, level int, autoDisabled bool, detectedAt *time.Time) error
	SaveProtectionEvent(ctx context.Context, event *domain.ProtectionEvent) error
}

// Machine owns every transition of a link's protection level. Automatic
// detection can only escalate; the level comes back down through the
// time-based auto-expiry or an explicit manual recovery.
type Machine struct {
	store  LinkProtectionStore
	window time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// NewMachine creates a protection state machine. A non-positive window falls
// back to DefaultEscalationWindow.
func NewMachine(store LinkProtectionStore, window time.Duration, log *zap.Logger) *Machine {
	if window <= 0 {
		window = DefaultEscalationWindow
	}
	return &Machine{
		store:  store,
		window: window,
		log:    log,
		now:    time.Now,
	}
}

// Escalate applies the protection level implied by a detection severity.
// A severity at or below the current level is a no-op: an active block is
// never downgraded by a weaker detection. The link struct is updated in place
// on success so callers see the new level without a re-read.
func (m *Machine) Escalate(ctx context.Context, link *domain.Link, severity int) (Level, bool, error) {
	current := Level(link.ProtectionLevel)
	target := LevelForSeverity(severity)

	if target <= current {
		return current, false, nil
	}

	now := m.now()
	var (
		autoDisabled bool
		detectedAt   *time.Time
		eventType    string
	)

	switch target {
	case LevelDisabled:
		autoDisabled = true
		detectedAt = &now
		eventType = domain.EventLinkDisabled
	case LevelTemporaryDisabled:
		autoDisabled = link.AutoDisabled
		detectedAt = &now
		eventType = domain.EventTemporaryDisable
	case LevelCaptcha:
		autoDisabled = link.AutoDisabled
		detectedAt = link.ProtectionDetectedAt
		eventType = domain.EventCaptchaRequired
	default:
		return current, false, nil
	}

	if err := m.store.UpdateLinkProtection(ctx, link.ID, int(target), autoDisabled, detectedAt); err != nil {
		return current, false, fmt.Errorf("failed to escalate protection: %w", err)
	}

	link.ProtectionLevel = int(target)
	link.AutoDisabled = autoDisabled
	link.ProtectionDetectedAt = detectedAt

	m.logEvent(ctx, link.ID, eventType, int(target), now)
	m.log.Info("protection escalated",
		zap.Int64("link_id", link.ID),
		zap.String("level", target.String()),
		zap.Int("severity", severity))

	return target, true, nil
}

// Status is the read path used before serving a click. A level >=4 block whose
// detection timestamp has aged past the escalation window is reset to normal
// on the spot (self-healing); a fresh detection can re-escalate it afterwards.
func (m *Machine) Status(ctx context.Context, link *domain.Link) (Status, error) {
	if link == nil {
		return StatusNotFound, nil
	}

	if link.AutoDisabled {
		return StatusDisabled, nil
	}

	level := Level(link.ProtectionLevel)

	if level >= LevelTemporaryDisabled {
		if link.ProtectionDetectedAt != nil && m.now().Sub(*link.ProtectionDetectedAt) > m.window {
			if err := m.reset(ctx, link); err != nil {
				return StatusTemporaryDisabled, err
			}
			m.log.Info("protection auto-expired", zap.Int64("link_id", link.ID))
			return StatusNormal, nil
		}
		return StatusTemporaryDisabled, nil
	}

	if level >= LevelCaptcha {
		return StatusCaptchaRequired, nil
	}

	return StatusNormal, nil
}

// ManualRecovery is the operator override: it unconditionally resets the link
// to normal, including from a level 5 block, and leaves an audit trail.
func (m *Machine) ManualRecovery(ctx context.Context, linkID int64) error {
	if err := m.store.UpdateLinkProtection(ctx, linkID, int(LevelNormal), false, nil); err != nil {
		return fmt.Errorf("failed to recover link: %w", err)
	}

	m.logEvent(ctx, linkID, domain.EventManualRecovery, 1, m.now())
	m.log.Info("manual recovery applied", zap.Int64("link_id", linkID))
	return nil
}

func (m *Machine) reset(ctx context.Context, link *domain.Link) error {
	if err := m.store.UpdateLinkProtection(ctx, link.ID, int(LevelNormal), false, nil); err != nil {
		return fmt.Errorf("failed to reset protection: %w", err)
	}
	link.ProtectionLevel = int(LevelNormal)
	link.AutoDisabled = false
	link.ProtectionDetectedAt = nil
	return nil
}

func (m *Machine) logEvent(ctx context.Context, linkID int64, eventType string, severity int, now time.Time) {
	event := &domain.ProtectionEvent{
		LinkID:          linkID,
		EventType:       eventType,
		Severity:        severity,
		DetectedAt:      now,
		ProtectionLevel: severity,
	}
	if err := m.store.SaveProtectionEvent(ctx, event); err != nil {
		m.log.Warn("failed to log protection event",
			zap.Int64("link_id", linkID),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

package postgres

import (
	"SmartLinks-Backend/internal/domain"
	"SmartLinks-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStorage реализует интерфейс Storage для PostgreSQL
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Link Methods ---

// SaveLink сохраняет новую ссылку
func (s *PostgresStorage) SaveLink(ctx context.Context, link *domain.Link) error {
	var existing domain.Link
	err := s.db.WithContext(ctx).Where("code = ?", link.Code).First(&existing).Error
	if err == nil {
		return repository.ErrCodeExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Error("failed to check code existence", zap.String("code", link.Code), zap.Error(err))
		return fmt.Errorf("failed to check code: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		s.log.Error("failed to save link", zap.String("code", link.Code), zap.Error(err))
		return fmt.Errorf("failed to save link: %w", err)
	}

	s.log.Info("saved new link", zap.String("code", link.Code), zap.Int64("user_id", link.UserID))
	return nil
}

// GetLinkByCode получает ссылку по коду
func (s *PostgresStorage) GetLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("code = ?", code).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCodeNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// CodeExists проверяет существование кода
func (s *PostgresStorage) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check code existence: %w", err)
	}
	return count > 0, nil
}

// ListUserLinks возвращает все ссылки пользователя
func (s *PostgresStorage) ListUserLinks(ctx context.Context, userID int64) ([]*domain.Link, error) {
	var links []*domain.Link
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&links).Error
	if err != nil {
		s.log.Error("failed to list user links", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// UpdateLinkProtection обновляет поля защиты ссылки
func (s *PostgresStorage) UpdateLinkProtection(ctx context.Context, linkID int64, level int, autoDisabled bool, detectedAt *time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).Where("id = ?", linkID).Updates(map[string]interface{}{
		"protection_level":       level,
		"auto_disabled":          autoDisabled,
		"protection_detected_at": detectedAt,
	})
	if result.Error != nil {
		s.log.Error("failed to update link protection", zap.Int64("link_id", linkID), zap.Error(result.Error))
		return fmt.Errorf("failed to update link protection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrCodeNotFound
	}
	return nil
}

// UpdateLinkState обновляет состояние ссылки
func (s *PostgresStorage) UpdateLinkState(ctx context.Context, linkID int64, state domain.LinkState) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).Where("id = ?", linkID).Update("state", state)
	if result.Error != nil {
		s.log.Error("failed to update link state", zap.Int64("link_id", linkID), zap.Error(result.Error))
		return fmt.Errorf("failed to update link state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrCodeNotFound
	}
	return nil
}

// --- Visit Methods ---

// SaveVisit сохраняет визит (append-only)
func (s *PostgresStorage) SaveVisit(ctx context.Context, visit *domain.Visit) error {
	if err := s.db.WithContext(ctx).Create(visit).Error; err != nil {
		s.log.Error("failed to save visit", zap.Int64("link_id", visit.LinkID), zap.Error(err))
		return fmt.Errorf("failed to save visit: %w", err)
	}
	return nil
}

// RecentVisits возвращает последние визиты ссылки, новые первыми
func (s *PostgresStorage) RecentVisits(ctx context.Context, linkID int64, limit int) ([]domain.Visit, error) {
	var visits []domain.Visit
	err := s.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("ts DESC").
		Limit(limit).
		Find(&visits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent visits: %w", err)
	}
	return visits, nil
}

// CountVisitsSince считает визиты ссылки начиная с указанного момента
func (s *PostgresStorage) CountVisitsSince(ctx context.Context, linkID int64, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Visit{}).
		Where("link_id = ? AND ts > ?", linkID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}

// CountSuspiciousVisitsSince считает подозрительные визиты начиная с указанного момента
func (s *PostgresStorage) CountSuspiciousVisitsSince(ctx context.Context, linkID int64, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Visit{}).
		Where("link_id = ? AND is_suspicious = ? AND ts > ?", linkID, true, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count suspicious visits: %w", err)
	}
	return count, nil
}

// CountSessionVisits считает все визиты сессии по ссылке (за все время)
func (s *PostgresStorage) CountSessionVisits(ctx context.Context, linkID int64, sessionID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Visit{}).
		Where("link_id = ? AND session_id = ?", linkID, sessionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count session visits: %w", err)
	}
	return count, nil
}

// VisitTotals возвращает агрегаты по всем визитам ссылки
func (s *PostgresStorage) VisitTotals(ctx context.Context, linkID int64) (*domain.VisitTotals, error) {
	var totals domain.VisitTotals
	err := s.db.WithContext(ctx).Model(&domain.Visit{}).
		Select(
			"COUNT(*) AS total, "+
				"COUNT(*) FILTER (WHERE is_suspicious) AS suspicious, "+
				"COUNT(*) FILTER (WHERE behavior = ?) AS engaged",
			"Highly engaged",
		).
		Where("link_id = ?", linkID).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load visit totals: %w", err)
	}
	return &totals, nil
}

// --- Profile Methods ---

// GetProfile получает профиль порогов по ID
func (s *PostgresStorage) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	var profile domain.Profile
	err := s.db.WithContext(ctx).First(&profile, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// GetDefaultProfile получает профиль по умолчанию для пользователя
func (s *PostgresStorage) GetDefaultProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var profile domain.Profile
	err := s.db.WithContext(ctx).Where("user_id = ? AND is_default = ?", userID, true).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile сохраняет профиль порогов
func (s *PostgresStorage) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		s.log.Error("failed to save profile", zap.Int64("user_id", profile.UserID), zap.Error(err))
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// --- Protection Event Methods ---

// SaveProtectionEvent пишет событие защиты в журнал аудита
func (s *PostgresStorage) SaveProtectionEvent(ctx context.Context, event *domain.ProtectionEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.log.Error("failed to save protection event",
			zap.Int64("link_id", event.LinkID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to save protection event: %w", err)
	}
	return nil
}

// ProtectionStats возвращает агрегаты журнала защиты по типам событий
func (s *PostgresStorage) ProtectionStats(ctx context.Context, linkID int64) ([]domain.ProtectionStat, error) {
	var stats []domain.ProtectionStat
	err := s.db.WithContext(ctx).Model(&domain.ProtectionEvent{}).
		Select("event_type, COUNT(*) AS count, MAX(detected_at) AS last_event").
		Where("link_id = ?", linkID).
		Group("event_type").
		Order("count DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load protection stats: %w", err)
	}
	return stats, nil
}

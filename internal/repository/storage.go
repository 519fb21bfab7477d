package repository

import (
	"SmartLinks-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrCodeNotFound    = errors.New("link code not found")
	ErrCodeExists      = errors.New("link code already exists")
	ErrProfileNotFound = errors.New("profile not found")
)

type Storage interface {
	// Link methods
	SaveLink(ctx context.Context, link *domain.Link) error
	GetLinkByCode(ctx context.Context, code string) (*domain.Link, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListUserLinks(ctx context.Context, userID int64) ([]*domain.Link, error)
	UpdateLinkProtection(ctx context.Context, linkID int64, level int, autoDisabled bool, detectedAt *time.Time) error
	UpdateLinkState(ctx context.Context, linkID int64, state domain.LinkState) error

	// Visit methods
	SaveVisit(ctx context.Context, visit *domain.Visit) error
	RecentVisits(ctx context.Context, linkID int64, limit int) ([]domain.Visit, error)
	CountVisitsSince(ctx context.Context, linkID int64, since time.Time) (int64, error)
	CountSuspiciousVisitsSince(ctx context.Context, linkID int64, since time.Time) (int64, error)
	CountSessionVisits(ctx context.Context, linkID int64, sessionID string) (int64, error)
	VisitTotals(ctx context.Context, linkID int64) (*domain.VisitTotals, error)

	// Profile methods
	GetProfile(ctx context.Context, id int64) (*domain.Profile, error)
	GetDefaultProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	SaveProfile(ctx context.Context, profile *domain.Profile) error

	// Protection event methods
	SaveProtectionEvent(ctx context.Context, event *domain.ProtectionEvent) error
	ProtectionStats(ctx context.Context, linkID int64) ([]domain.ProtectionStat, error)
}

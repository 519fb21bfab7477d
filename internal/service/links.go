package service

import (
	"SmartLinks-Backend/internal/auth"
	"SmartLinks-Backend/internal/domain"
	"SmartLinks-Backend/internal/engine"
	"SmartLinks-Backend/internal/protection"
	"SmartLinks-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"SmartLinks-Backend/pkg/random"

	"go.uber.org/zap"
)

const maxCodeRetries = 5

var (
	ErrInvalidURL       = errors.New("invalid destination url")
	ErrInvalidRule      = errors.New("unknown routing rule")
	ErrPasswordRequired = errors.New("password required")
	ErrWrongPassword    = errors.New("wrong password")
)

// LinksService создает ссылки и выполняет операторские действия над ними
type LinksService struct {
	storage    repository.Storage
	machine    *protection.Machine
	passwords  *auth.PasswordService
	codeLength int
	log        *zap.Logger
}

// NewLinksService создает новый сервис ссылок
func NewLinksService(storage repository.Storage, machine *protection.Machine, passwords *auth.PasswordService, codeLength int, log *zap.Logger) *LinksService {
	return &LinksService{
		storage:    storage,
		machine:    machine,
		passwords:  passwords,
		codeLength: codeLength,
		log:        log,
	}
}

// CreateLinkParams параметры создания ссылки
type CreateLinkParams struct {
	UserID       int64
	CustomCode   string
	PrimaryURL   string
	ReturningURL string
	CTAURL       string
	Rule         string
	Password     string
	ExpiresAt    *time.Time
	ProfileID    *int64
}

// CreateLink создает ссылку, подбирая свободный код при коллизиях
func (s *LinksService) CreateLink(ctx context.Context, params CreateLinkParams) (*domain.Link, error) {
	if err := validateURL(params.PrimaryURL); err != nil {
		return nil, err
	}

	rule := domain.RuleStandard
	if params.Rule != "" {
		rule = domain.RoutingRule(strings.ToLower(params.Rule))
		if rule != domain.RuleStandard && rule != domain.RuleProgression {
			return nil, ErrInvalidRule
		}
	}

	var code string
	if params.CustomCode != "" {
		code = params.CustomCode
		exists, err := s.storage.CodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check custom code: %w", err)
		}
		if exists {
			return nil, repository.ErrCodeExists
		}
	} else {
		var err error
		for i := 0; i < maxCodeRetries; i++ {
			code, err = random.NewRandomString(s.codeLength)
			if err != nil {
				return nil, fmt.Errorf("failed to generate code: %w", err)
			}
			exists, err := s.storage.CodeExists(ctx, code)
			if err != nil {
				return nil, fmt.Errorf("failed to check code: %w", err)
			}
			if !exists {
				break
			}
		}
	}

	link := &domain.Link{
		Code:       code,
		UserID:     params.UserID,
		PrimaryURL: params.PrimaryURL,
		Rule:       rule,
		State:      domain.StateActive,
		ExpiresAt:  params.ExpiresAt,
		ProfileID:  params.ProfileID,
	}
	if params.ReturningURL != "" {
		if err := validateURL(params.ReturningURL); err != nil {
			return nil, err
		}
		link.ReturningURL = &params.ReturningURL
	}
	if params.CTAURL != "" {
		if err := validateURL(params.CTAURL); err != nil {
			return nil, err
		}
		link.CTAURL = &params.CTAURL
	}
	if params.Password != "" {
		hash, err := s.passwords.HashPassword(params.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash link password: %w", err)
		}
		link.PasswordHash = &hash
	}

	if err := s.storage.SaveLink(ctx, link); err != nil {
		return nil, err
	}

	return link, nil
}

// GetLink возвращает ссылку по коду
func (s *LinksService) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	return s.storage.GetLinkByCode(ctx, code)
}

// ListLinks возвращает все ссылки пользователя
func (s *LinksService) ListLinks(ctx context.Context, userID int64) ([]*domain.Link, error) {
	return s.storage.ListUserLinks(ctx, userID)
}

// VerifyPassword проверяет пароль защищенной ссылки
func (s *LinksService) VerifyPassword(link *domain.Link, password string) error {
	if !link.IsPasswordProtected() {
		return nil
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if err := s.passwords.VerifyPassword(*link.PasswordHash, password); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// RecoverLink сбрасывает защиту ссылки (ручное операторское действие)
func (s *LinksService) RecoverLink(ctx context.Context, code string) error {
	link, err := s.storage.GetLinkByCode(ctx, code)
	if err != nil {
		return err
	}

	if err := s.machine.ManualRecovery(ctx, link.ID); err != nil {
		return err
	}

	s.log.Info("link recovered", zap.String("code", code), zap.Int64("link_id", link.ID))
	return nil
}

// LinkStats сводка по ссылке для операторского API
type LinkStats struct {
	Code            string                 `json:"code"`
	State           domain.LinkState       `json:"state"`
	ProtectionLevel int                    `json:"protection_level"`
	AutoDisabled    bool                   `json:"auto_disabled"`
	TrustScore      int                    `json:"trust_score"`
	VisitTotals     domain.VisitTotals     `json:"visit_totals"`
	ProtectionStats []domain.ProtectionStat `json:"protection_stats"`
}

// GetStats возвращает сводку по ссылке: trust score и статистику защиты
func (s *LinksService) GetStats(ctx context.Context, code string) (*LinkStats, error) {
	link, err := s.storage.GetLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	totals, err := s.storage.VisitTotals(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit totals: %w", err)
	}

	protStats, err := s.storage.ProtectionStats(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load protection stats: %w", err)
	}

	return &LinkStats{
		Code:            link.Code,
		State:           link.State,
		ProtectionLevel: link.ProtectionLevel,
		AutoDisabled:    link.AutoDisabled,
		TrustScore:      engine.TrustScore(*totals),
		VisitTotals:     *totals,
		ProtectionStats: protStats,
	}, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

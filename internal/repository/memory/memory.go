package memory

import (
	"SmartLinks-Backend/internal/domain"
	"SmartLinks-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

// MemStorage потокобезопасное in-memory хранилище, используется в тестах
type MemStorage struct {
	mu             sync.RWMutex
	links          map[string]*domain.Link
	linksByID      map[int64]*domain.Link
	visits         map[int64][]domain.Visit
	profiles       map[int64]*domain.Profile
	events         map[int64][]domain.ProtectionEvent
	linkCounter    int64
	visitCounter   int64
	profileCounter int64
	eventCounter   int64
}

func New() *MemStorage {
	return &MemStorage{
		links:     make(map[string]*domain.Link),
		linksByID: make(map[int64]*domain.Link),
		visits:    make(map[int64][]domain.Visit),
		profiles:  make(map[int64]*domain.Profile),
		events:    make(map[int64][]domain.ProtectionEvent),
	}
}

// --- Link Methods ---

func (s *MemStorage) SaveLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.links[link.Code]; exists {
		return repository.ErrCodeExists
	}
	if link.ID == 0 {
		s.linkCounter++
		link.ID = s.linkCounter
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	cp := *link
	s.links[link.Code] = &cp
	s.linksByID[link.ID] = &cp
	return nil
}

func (s *MemStorage) GetLinkByCode(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[code]
	if !ok {
		return nil, repository.ErrCodeNotFound
	}
	cp := *link
	return &cp, nil
}

func (s *MemStorage) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[code]
	return ok, nil
}

func (s *MemStorage) ListUserLinks(_ context.Context, userID int64) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var userLinks []*domain.Link
	for _, link := range s.links {
		if link.UserID == userID {
			cp := *link
			userLinks = append(userLinks, &cp)
		}
	}
	return userLinks, nil
}

func (s *MemStorage) UpdateLinkProtection(_ context.Context, linkID int64, level int, autoDisabled bool, detectedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.linksByID[linkID]
	if !ok {
		return repository.ErrCodeNotFound
	}
	link.ProtectionLevel = level
	link.AutoDisabled = autoDisabled
	link.ProtectionDetectedAt = detectedAt
	return nil
}

func (s *MemStorage) UpdateLinkState(_ context.Context, linkID int64, state domain.LinkState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.linksByID[linkID]
	if !ok {
		return repository.ErrCodeNotFound
	}
	link.State = state
	return nil
}

// --- Visit Methods ---

func (s *MemStorage) SaveVisit(_ context.Context, visit *domain.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitCounter++
	visit.ID = s.visitCounter
	s.visits[visit.LinkID] = append(s.visits[visit.LinkID], *visit)
	return nil
}

func (s *MemStorage) RecentVisits(_ context.Context, linkID int64, limit int) ([]domain.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.visits[linkID]
	sorted := make([]domain.Visit, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Ts.After(sorted[j].Ts)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (s *MemStorage) CountVisitsSince(_ context.Context, linkID int64, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, v := range s.visits[linkID] {
		if v.Ts.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) CountSuspiciousVisitsSince(_ context.Context, linkID int64, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, v := range s.visits[linkID] {
		if v.IsSuspicious && v.Ts.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) CountSessionVisits(_ context.Context, linkID int64, sessionID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, v := range s.visits[linkID] {
		if v.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) VisitTotals(_ context.Context, linkID int64) (*domain.VisitTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := &domain.VisitTotals{}
	for _, v := range s.visits[linkID] {
		totals.Total++
		if v.IsSuspicious {
			totals.Suspicious++
		}
		if v.Behavior == "Highly engaged" {
			totals.Engaged++
		}
	}
	return totals, nil
}

// --- Profile Methods ---

func (s *MemStorage) GetProfile(_ context.Context, id int64) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	cp := *profile
	return &cp, nil
}

func (s *MemStorage) GetDefaultProfile(_ context.Context, userID int64) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, profile := range s.profiles {
		if profile.UserID == userID && profile.IsDefault {
			cp := *profile
			return &cp, nil
		}
	}
	return nil, repository.ErrProfileNotFound
}

func (s *MemStorage) SaveProfile(_ context.Context, profile *domain.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if profile.ID == 0 {
		s.profileCounter++
		profile.ID = s.profileCounter
	}
	cp := *profile
	s.profiles[profile.ID] = &cp
	return nil
}

// --- Protection Event Methods ---

func (s *MemStorage) SaveProtectionEvent(_ context.Context, event *domain.ProtectionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventCounter++
	event.ID = s.eventCounter
	s.events[event.LinkID] = append(s.events[event.LinkID], *event)
	return nil
}

func (s *MemStorage) ProtectionStats(_ context.Context, linkID int64) ([]domain.ProtectionStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byType := make(map[string]*domain.ProtectionStat)
	for _, ev := range s.events[linkID] {
		stat, ok := byType[ev.EventType]
		if !ok {
			stat = &domain.ProtectionStat{EventType: ev.EventType}
			byType[ev.EventType] = stat
		}
		stat.Count++
		if ev.DetectedAt.After(stat.LastEvent) {
			stat.LastEvent = ev.DetectedAt
		}
	}
	stats := make([]domain.ProtectionStat, 0, len(byType))
	for _, stat := range byType {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})
	return stats, nil
}

// Events возвращает журнал событий ссылки (для проверок в тестах)
func (s *MemStorage) Events(linkID int64) []domain.ProtectionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProtectionEvent, len(s.events[linkID]))
	copy(out, s.events[linkID])
	return out
}

package domain

import "time"

// RoutingRule определяет режим выбора целевого URL
type RoutingRule string

const (
	RuleStandard    RoutingRule = "standard"    // выбор по поведенческому уровню
	RuleProgression RoutingRule = "progression" // выбор по числу визитов сессии
)

// LinkState состояние ссылки, пересчитывается по последним визитам
type LinkState string

const (
	StateActive       LinkState = "Active"
	StateHighInterest LinkState = "High Interest"
	StateDecaying     LinkState = "Decaying"
	StateInactive     LinkState = "Inactive"
)

// Link представляет умную ссылку с несколькими целевыми URL
type Link struct {
	ID                   int64       `gorm:"primaryKey;column:id" json:"id"`
	Code                 string      `gorm:"column:code;uniqueIndex;size:32;not null" json:"code"`
	UserID               int64       `gorm:"column:user_id;not null;index" json:"user_id"`
	PrimaryURL           string      `gorm:"column:primary_url;not null" json:"primary_url"`
	ReturningURL         *string     `gorm:"column:returning_url" json:"returning_url,omitempty"`
	CTAURL               *string     `gorm:"column:cta_url" json:"cta_url,omitempty"`
	Rule                 RoutingRule `gorm:"column:rule;size:20;not null;default:standard" json:"rule"`
	State                LinkState   `gorm:"column:state;size:20;not null;default:Active" json:"state"`
	ProtectionLevel      int         `gorm:"column:protection_level;not null;default:0" json:"protection_level"`
	AutoDisabled         bool        `gorm:"column:auto_disabled;not null;default:false" json:"auto_disabled"`
	ProtectionDetectedAt *time.Time  `gorm:"column:protection_detected_at" json:"protection_detected_at,omitempty"`
	ExpiresAt            *time.Time  `gorm:"column:expires_at" json:"expires_at,omitempty"`
	PasswordHash         *string     `gorm:"column:password_hash" json:"-"` // скрываем хеш в JSON
	ProfileID            *int64      `gorm:"column:profile_id;index" json:"profile_id,omitempty"`
	CreatedAt            time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relationships
	Profile *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (Link) TableName() string {
	return "links"
}

// IsExpired проверяет, истек ли срок действия ссылки
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// IsPasswordProtected проверяет, защищена ли ссылка паролем
func (l *Link) IsPasswordProtected() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// ReturningOrPrimary возвращает returning URL или primary, если returning не задан
func (l *Link) ReturningOrPrimary() string {
	if l.ReturningURL != nil && *l.ReturningURL != "" {
		return *l.ReturningURL
	}
	return l.PrimaryURL
}

// CTAOrPrimary возвращает CTA URL или primary, если CTA не задан
func (l *Link) CTAOrPrimary() string {
	if l.CTAURL != nil && *l.CTAURL != "" {
		return *l.CTAURL
	}
	return l.PrimaryURL
}

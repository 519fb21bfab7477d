package domain

import "time"

// Типы событий защиты, пишутся в журнал аудита
const (
	EventRateLimit        = "rate_limit"
	EventBurstAttack      = "burst_attack"
	EventCaptchaRequired  = "captcha_required"
	EventTemporaryDisable = "temporary_disable"
	EventLinkDisabled     = "link_disabled"
	EventManualRecovery   = "manual_recovery"
)

// ProtectionEvent запись журнала защиты (append-only, только для аудита)
type ProtectionEvent struct {
	ID              int64     `gorm:"primaryKey;column:id" json:"id"`
	LinkID          int64     `gorm:"column:link_id;not null;index" json:"link_id"`
	EventType       string    `gorm:"column:event_type;size:30;not null" json:"event_type"`
	Severity        int       `gorm:"column:severity;not null" json:"severity"`
	IPAddress       *string   `gorm:"column:ip_address;size:64" json:"ip_address,omitempty"`
	DetectedAt      time.Time `gorm:"column:detected_at;not null;index" json:"detected_at"`
	ProtectionLevel int       `gorm:"column:protection_level;not null" json:"protection_level"`

	// Relationships
	Link *Link `gorm:"foreignKey:LinkID" json:"link,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (ProtectionEvent) TableName() string {
	return "protection_events"
}

// ProtectionStat агрегат журнала по типу события
type ProtectionStat struct {
	EventType string    `json:"event_type"`
	Count     int64     `json:"count"`
	LastEvent time.Time `json:"last_event"`
}

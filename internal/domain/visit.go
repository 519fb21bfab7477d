package domain

import "time"

// Visit представляет один клик по ссылке (только не-владельцы, append-only)
type Visit struct {
	ID           int64     `gorm:"primaryKey;column:id" json:"id"`
	LinkID       int64     `gorm:"column:link_id;not null;index:idx_visits_link_ts" json:"link_id"`
	SessionID    string    `gorm:"column:session_id;size:64;not null;index" json:"session_id"`
	IPHash       string    `gorm:"column:ip_hash;size:64;not null;index" json:"ip_hash"`
	UserAgent    *string   `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	Ts           time.Time `gorm:"column:ts;not null;index:idx_visits_link_ts" json:"ts"`
	Behavior     string    `gorm:"column:behavior;size:20" json:"behavior"`
	IsSuspicious bool      `gorm:"column:is_suspicious;not null;default:false" json:"is_suspicious"`
	TargetURL    string    `gorm:"column:target_url" json:"target_url"`
	Device       *string   `gorm:"column:device;size:10" json:"device,omitempty"` // 'desktop', 'mobile', 'tablet', 'bot'
	Region       *string   `gorm:"column:region;size:100" json:"region,omitempty"`
	Browser      *string   `gorm:"column:browser;size:50" json:"browser,omitempty"`
	OS           *string   `gorm:"column:os;size:50" json:"os,omitempty"`
	Referrer     *string   `gorm:"column:referrer;size:500" json:"referrer,omitempty"`

	// Relationships
	Link *Link `gorm:"foreignKey:LinkID" json:"link,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (Visit) TableName() string {
	return "visits"
}

// VisitTotals агрегаты по всем визитам ссылки, используются для trust score
type VisitTotals struct {
	Total      int64 `json:"total"`
	Suspicious int64 `json:"suspicious"`
	Engaged    int64 `json:"engaged"`
}

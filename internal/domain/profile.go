package domain

import (
	"errors"
	"time"
)

// Значения по умолчанию, применяются когда у ссылки и владельца нет профиля
const (
	DefaultReturningWindowHours     = 48
	DefaultInterestedThreshold      = 2
	DefaultEngagedThreshold         = 3
	DefaultRequestsPerIPPerMinute   = 60
	DefaultRequestsPerIPPerHour     = 1000
	DefaultRequestsPerLinkPerMinute = 500
	DefaultBurstThreshold           = 100
	DefaultSuspiciousThreshold      = 10
	DefaultDDoSThreshold            = 50
	DefaultRapidClickLimitSeconds   = 0.3
	DefaultHealthKillSwitch         = 5
	DefaultDetectionWindowMinutes   = 5
)

var (
	ErrProfileThresholdOrder = errors.New("ddos_threshold must be greater than suspicious_threshold")
	ErrProfileTierOrder      = errors.New("engaged_threshold must be greater than interested_threshold")
)

// Profile набор порогов поведенческой классификации и защиты для ссылки или владельца
type Profile struct {
	ID                       int64     `gorm:"primaryKey;column:id" json:"id"`
	UserID                   int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	Name                     string    `gorm:"column:name;size:100;not null" json:"name"`
	IsDefault                bool      `gorm:"column:is_default;not null;default:false" json:"is_default"`
	ReturningWindowHours     int       `gorm:"column:returning_window_hours;not null;default:48" json:"returning_window_hours"`
	InterestedThreshold      int       `gorm:"column:interested_threshold;not null;default:2" json:"interested_threshold"`
	EngagedThreshold         int       `gorm:"column:engaged_threshold;not null;default:3" json:"engaged_threshold"`
	RequestsPerIPPerMinute   int       `gorm:"column:requests_per_ip_per_minute;not null;default:60" json:"requests_per_ip_per_minute"`
	RequestsPerIPPerHour     int       `gorm:"column:requests_per_ip_per_hour;not null;default:1000" json:"requests_per_ip_per_hour"`
	RequestsPerLinkPerMinute int       `gorm:"column:requests_per_link_per_minute;not null;default:500" json:"requests_per_link_per_minute"`
	BurstThreshold           int       `gorm:"column:burst_threshold;not null;default:100" json:"burst_threshold"`
	SuspiciousThreshold      int       `gorm:"column:suspicious_threshold;not null;default:10" json:"suspicious_threshold"`
	DDoSThreshold            int       `gorm:"column:ddos_threshold;not null;default:50" json:"ddos_threshold"`
	RapidClickLimitSeconds   float64   `gorm:"column:rapid_click_limit_seconds;not null;default:0.3" json:"rapid_click_limit_seconds"`
	HealthKillSwitch         int       `gorm:"column:health_kill_switch;not null;default:5" json:"health_kill_switch"`
	DetectionWindowMinutes   int       `gorm:"column:detection_window_minutes;not null;default:5" json:"detection_window_minutes"`
	CreatedAt                time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName возвращает название таблицы для GORM
func (Profile) TableName() string {
	return "profiles"
}

// DefaultProfile возвращает профиль со значениями по умолчанию
func DefaultProfile() *Profile {
	return &Profile{
		Name:                     "Standard Security",
		ReturningWindowHours:     DefaultReturningWindowHours,
		InterestedThreshold:      DefaultInterestedThreshold,
		EngagedThreshold:         DefaultEngagedThreshold,
		RequestsPerIPPerMinute:   DefaultRequestsPerIPPerMinute,
		RequestsPerIPPerHour:     DefaultRequestsPerIPPerHour,
		RequestsPerLinkPerMinute: DefaultRequestsPerLinkPerMinute,
		BurstThreshold:           DefaultBurstThreshold,
		SuspiciousThreshold:      DefaultSuspiciousThreshold,
		DDoSThreshold:            DefaultDDoSThreshold,
		RapidClickLimitSeconds:   DefaultRapidClickLimitSeconds,
		HealthKillSwitch:         DefaultHealthKillSwitch,
		DetectionWindowMinutes:   DefaultDetectionWindowMinutes,
	}
}

// Validate проверяет инварианты порогов
func (p *Profile) Validate() error {
	if p.DDoSThreshold <= p.SuspiciousThreshold {
		return ErrProfileThresholdOrder
	}
	if p.EngagedThreshold <= p.InterestedThreshold {
		return ErrProfileTierOrder
	}
	return nil
}

// ReturningWindow возвращает окно "возвращающегося" визита как Duration
func (p *Profile) ReturningWindow() time.Duration {
	return time.Duration(p.ReturningWindowHours) * time.Hour
}

// RapidClickLimit возвращает минимальный человеческий интервал между кликами
func (p *Profile) RapidClickLimit() time.Duration {
	return time.Duration(p.RapidClickLimitSeconds * float64(time.Second))
}

// DetectionWindow возвращает окно подсчета подозрительных визитов
func (p *Profile) DetectionWindow() time.Duration {
	return time.Duration(p.DetectionWindowMinutes) * time.Minute
}

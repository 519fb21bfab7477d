package domain

import "time"

// User представляет владельца ссылок.
type User struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	Username  string    `gorm:"column:username;uniqueIndex;not null" json:"username"`
	Email     *string   `gorm:"column:email;uniqueIndex" json:"email,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	IsActive  bool      `gorm:"column:is_active;default:true" json:"is_active"`

	// Relationships
	Links    []Link    `gorm:"foreignKey:UserID" json:"links,omitempty"`
	Profiles []Profile `gorm:"foreignKey:UserID" json:"profiles,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (User) TableName() string {
	return "users"
}

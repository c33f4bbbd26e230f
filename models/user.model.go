package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Login
	Username string `gorm:"unique;not null;size:50" json:"username"`
	Email    string `gorm:"unique;not null;size:100" json:"email"`
	Password string `gorm:"not null" json:"-"`

	// Profile
	FullName  string  `gorm:"size:100" json:"full_name"`
	Phone     *string `gorm:"unique;size:20" json:"phone"`
	AvatarURL string  `json:"avatar_url"`
	Rating    float64 `gorm:"default:0" json:"rating"`

	// Role & status
	Role       string `gorm:"default:'user';size:20" json:"role"` // user, admin
	IsVerified bool   `gorm:"default:false" json:"is_verified"`

	// Location snapshot shown on listings
	City       string `gorm:"size:100" json:"city"`
	Country    string `gorm:"size:100" json:"country"`
	University string `gorm:"size:150" json:"university"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// UserSummary is the projection embedded in transaction and conversation payloads.
type UserSummary struct {
	ID        uint    `json:"id"`
	Username  string  `json:"username"`
	FullName  string  `json:"full_name"`
	AvatarURL string  `json:"avatar_url"`
	Rating    float64 `json:"rating"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		Rating:    u.Rating,
	}
}

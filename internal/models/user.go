package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

// User is owned by the access-control side; chat code only reads it.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Username          string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	EmailID           string     `gorm:"column:email_id;uniqueIndex;size:255;not null" json:"email_id"`
	FirstName         string     `gorm:"size:100" json:"first_name"`
	LastName          string     `gorm:"size:100" json:"last_name"`
	Phone             *string    `gorm:"size:32" json:"phone,omitempty"`
	Role              Role       `gorm:"type:varchar(20);default:'employee';not null" json:"role"`
	Status            UserStatus `gorm:"type:varchar(20);default:'active';not null" json:"status"`
	Password          string     `gorm:"not null" json:"-"`
	LastLoginDatetime *time.Time `gorm:"column:last_login_datetime" json:"last_login_datetime,omitempty"`
	CreatedDate       time.Time  `gorm:"column:created_date;autoCreateTime" json:"created_date"`
}

func (User) TableName() string {
	return "tbl_users"
}

// FullName falls back to the username when no name parts are set.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// PublicUser is the shape returned to clients.
type PublicUser struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	EmailID   string `json:"email_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"role"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		EmailID:   u.EmailID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Role:      u.Role,
	}
}

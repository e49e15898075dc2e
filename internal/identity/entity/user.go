package entity

import "time"

// Role is the authorization role carried in tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) String() string {
	return string(r)
}

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Auth is what a successful login, registration or reset hands back.
type Auth struct {
	Token    string
	Username string
	Role     Role
	Email    string
	FullName string
}

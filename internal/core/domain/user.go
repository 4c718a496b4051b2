package domain

import "time"

const (
	RoleUser      = "user"
	RoleTeacher   = "teacher"
	RolePrincipal = "principal"
	RoleAdmin     = "admin"
)

// Roles lists every role a user can hold.
var Roles = []string{RoleUser, RoleTeacher, RolePrincipal, RoleAdmin}

// MaxPasswordBytes is the longest password bcrypt can digest.
const MaxPasswordBytes = 72

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
	StatusInactive  UserStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusInactive:
		return true
	}
	return false
}

// User is an identity record scoped to a tenant. Email is unique per tenant.
type User struct {
	ID           int64
	TenantID     int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         string
	Status       UserStatus
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserInfo is the whitelisted projection of a User returned to clients.
type UserInfo struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Info projects u onto the fields safe to expose.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}

// UserDetails is the administrative view of a user, still without the hash.
type UserDetails struct {
	UserInfo
	TenantID    int64      `json:"tenantId"`
	Status      UserStatus `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Details projects u onto the administrative view.
func (u *User) Details() UserDetails {
	return UserDetails{
		UserInfo:    u.Info(),
		TenantID:    u.TenantID,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

package domain

import "time"

// User represents an authenticated user account in the system.
type User struct {
	Syncable
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	DisplayName  string     `json:"display_name"`
	IsNew        bool       `json:"is_new"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
	LastLoginAt  time.Time  `json:"last_login_at"`
}

// Name returns the best available name to display for the user.
// Prefers DisplayName, falls back to email.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Settle clears the new-account flag.
func (u *User) Settle(now time.Time) {
	u.IsNew = false
	u.SettledAt = &now
	u.UpdatedAt = now
}

// OwnsFreshState reports whether a stored shelf state should survive the
// first access of a new account. State created before the account belongs
// to seeded or demo data and is discarded.
func (u *User) OwnsFreshState(stateCreatedAt time.Time) bool {
	if !u.IsNew {
		return true
	}
	return !stateCreatedAt.Before(u.CreatedAt)
}

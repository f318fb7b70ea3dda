package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleUser grants standard customer access.
	RoleUser Role = "user"
	// RoleGuide grants tour guide access.
	RoleGuide Role = "guide"
	// RoleLeadGuide grants lead guide access (tour management).
	RoleLeadGuide Role = "lead-guide"
	// RoleAdmin grants full administrative access.
	RoleAdmin Role = "admin"
)

// ValidRole reports whether the given role is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	Record
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	PasswordHash  string    `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	EmailVerified bool      `json:"email_verified"`
	Active        bool      `json:"active"`
	PhotoKey      string    `json:"photo_key,omitempty"` // Object-store key for the profile photo
	PhotoURL      string    `json:"photo_url,omitempty"`
	LastLoginAt   time.Time `json:"last_login_at,omitzero"`

	// PasswordChangedAt records when the credential last changed.
	// Tokens issued before this instant are rejected.
	PasswordChangedAt time.Time `json:"password_changed_at,omitzero"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ChangedPasswordAfter reports whether the credential changed after the
// given token issue time. Used to invalidate tokens on password change.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	// Truncate to seconds: token iat has second precision.
	return issuedAt.Truncate(time.Second).Before(u.PasswordChangedAt.Truncate(time.Second))
}

// SetPasswordChanged bumps PasswordChangedAt. The timestamp is backdated
// one second so a token issued in the same instant stays valid.
func (u *User) SetPasswordChanged() {
	u.PasswordChangedAt = time.Now().Add(-time.Second)
}

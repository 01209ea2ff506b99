package model

import (
	"slices"
	"time"
)

// Session represents an authenticated portal session.
type Session struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Role        UserRole  `json:"role"`
	CompanyName string    `json:"company_name"`
	ClientIDs   []string  `json:"client_ids"`
	Token       string    `json:"-"` // backend token (not exposed via JSON)
	TokenExp    time.Time `json:"-"` // zero when the backend token does not expire
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsTokenExpired reports whether the backend token has expired.
func (s *Session) IsTokenExpired() bool {
	if s.TokenExp.IsZero() {
		return false
	}
	return time.Now().After(s.TokenExp)
}

// IsAdmin reports whether the session has admin role.
func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// CanAccess reports whether the session may read or modify the given client's record.
func (s *Session) CanAccess(clientID string) bool {
	if s.IsAdmin() {
		return true
	}
	return slices.Contains(s.ClientIDs, clientID)
}

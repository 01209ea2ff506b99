package model

// UserRole represents the role of a portal user.
type UserRole string

const (
	// RolePartner is a partner-company user bound to its own onboarding records.
	RolePartner UserRole = "partner"
	// RoleAdmin is internal staff with access to every onboarding record.
	RoleAdmin UserRole = "admin"
)

// Identity is the result of a successful OTP verification against the backend.
type Identity struct {
	Email       string   `json:"email"`
	Token       string   `json:"token"`
	Role        UserRole `json:"role"`
	CompanyName string   `json:"company_name"`
	ClientIDs   []string `json:"client_ids"`
	ExpiresAt   int64    `json:"expires_at"` // unix seconds, 0 when the backend sets no expiry
}

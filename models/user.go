package models

// User is the session blob persisted for a logged-in customer or admin.
// Like orders, the backend serializes the identifier as `_id` while older
// payloads use `id`.
type User struct {
	ID       string `json:"_id,omitempty"`
	LegacyID string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Roles recognized by the storefront.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// ResolvedID returns the canonical user identifier.
func (u *User) ResolvedID() string {
	if u.ID != "" {
		return u.ID
	}
	return u.LegacyID
}

// IsAdmin reports whether the session belongs to the admin console.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

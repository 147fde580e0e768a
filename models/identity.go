package models

// Roles known to the backend. Only admins may open the settings page;
// inspectors get the regular reporting views.
const (
	RoleAdmin     = "admin"
	RoleInspector = "inspector"
)

// Identity is the operator resolved from the session. It is immutable for
// the lifetime of a request and decides which sections render.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the backend's answer to a successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the identity may manage settings and users.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Resolved reports whether the session actually carried an identity.
func (i Identity) Resolved() bool {
	return i.Username != ""
}

package models

import "time"

// UserItem is one row of the backend user collection. The console never
// patches rows locally; after every mutation the full collection is
// re-fetched, so this struct is read-only display state.
type UserItem struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// UserList is the envelope returned by GET /users.
type UserList struct {
	Users []UserItem `json:"users"`
}

// UserCreate is the body for POST /users.
type UserCreate struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserPatch is a partial update for PATCH /users/{id}. Nil fields are
// omitted from the wire so the backend only touches what was sent.
type UserPatch struct {
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Password *string `json:"password,omitempty"`
}

// ResetLink is the response of POST /users/{id}/reset-link.
type ResetLink struct {
	ResetURL string `json:"reset_url"`
}

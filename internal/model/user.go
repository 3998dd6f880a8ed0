package model

type AuthClaims struct {
	UserID  string `json:"sub"`
	Role    string `json:"role"`
	Type    string `json:"typ"`
	TokenID string `json:"jti"`
}

// Actor identifies who triggered an operation, for logs and events.
type Actor struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	IP     string `json:"ip,omitempty"`
}

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

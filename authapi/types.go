package authapi

// Remote auth endpoint paths, relative to the backend base URL
const (
	PathToken        = "/api/token/"
	PathTokenRefresh = "/api/token/refresh/"
	PathRegister     = "/api/register/"
)

// TokenRequest is the body of POST /api/token/.
// Email and Username carry the same identifier: backends differ in which one they read.
type TokenRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by the token and refresh endpoints.
// Refresh is nil when a backend does not rotate refresh tokens.
type TokenResponse struct {
	Access  string  `json:"access"`
	Refresh *string `json:"refresh,omitempty"`
}

// RefreshRequest is the body of POST /api/token/refresh/
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RegisterRequest is the body of POST /api/register/
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RegisterResponse carries tokens when the backend signs the new account straight in,
// otherwise a message such as "check your email".
type RegisterResponse struct {
	Access  *string `json:"access,omitempty"`
	Refresh *string `json:"refresh,omitempty"`
	Message string  `json:"message,omitempty"`
}

// AutoSignedIn reports whether the registration response includes an access token
func (r RegisterResponse) AutoSignedIn() bool {
	return r.Access != nil && *r.Access != ""
}

// ErrorResponse is the body the storefront backend uses for failures
type ErrorResponse struct {
	Detail string `json:"detail"`
}

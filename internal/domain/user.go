package domain

// UserContext is the caller identity injected into request handlers when a
// valid token accompanies the request.
type UserContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

package dto

import "github.com/sistempim/pimserver/internal/app/models"

// SuccessResponse represents a standard success response for API endpoints
type SuccessResponse struct {
	Message string `json:"message"`
}

// ChangedResponse reports whether an idempotent operation changed state.
// Re-following an already followed user succeeds with changed=false.
type ChangedResponse struct {
	Changed bool `json:"changed"`
}

// TokenResponse carries the credentials issued on login/register.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	TokenType    string `json:"tokenType" example:"Bearer"`
}

// SessionResponse identifies a two-party chat session.
type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

// UnreadCountResponse carries the current unread notification count.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// AuthResponse carries the signed-in profile and its credentials.
type AuthResponse struct {
	User   models.UserProfile `json:"user"`
	Tokens TokenResponse      `json:"tokens"`
}

// FollowingResponse reports a follow edge check.
type FollowingResponse struct {
	Following bool `json:"following"`
}

// MarkedResponse reports how many notifications a bulk read marked.
type MarkedResponse struct {
	Marked int `json:"marked"`
}

// CreatedResponse carries the id of a freshly created resource.
type CreatedResponse struct {
	ID string `json:"id"`
}

// LikedResponse reports the resulting like state after a toggle.
type LikedResponse struct {
	Liked bool `json:"liked"`
}

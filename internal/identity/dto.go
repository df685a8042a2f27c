package identity

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type oauthExchangeRequest struct {
	IDToken string `json:"idToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResult carries the tokens and identity returned by the auth endpoints.
type AuthResult struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int64     `json:"expiresIn"`
	UserID       uuid.UUID `json:"userId"`
	Username     string    `json:"username"`
}

// UserProfile mirrors the user service's profile representation.
type UserProfile struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Age             *int      `json:"age,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Experience      string    `json:"experience,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	LinkedinURL     string    `json:"linkedinUrl,omitempty"`
	GithubURL       string    `json:"githubUrl,omitempty"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// UpdateProfileRequest carries the editable profile fields; nil fields
// are omitted so the remote service applies a partial update.
type UpdateProfileRequest struct {
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	Age             *int    `json:"age,omitempty"`
	Bio             *string `json:"bio,omitempty"`
	Experience      *string `json:"experience,omitempty"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`
	LinkedinURL     *string `json:"linkedinUrl,omitempty"`
	GithubURL       *string `json:"githubUrl,omitempty"`
}

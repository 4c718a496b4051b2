package domain

import "time"

// TokenType distinguishes short-lived access tokens from long-lived refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Token is a persisted, signed credential. UserID is nil for service tokens
// that are not bound to a user.
type Token struct {
	ID        int64
	Token     string
	Type      TokenType
	UserID    *int64
	CreatedAt time.Time
}

// AccessAndRefreshToken is the pair handed back to the caller after issuance.
type AccessAndRefreshToken struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginOutput is the envelope returned by signup and login.
type LoginOutput struct {
	AccessAndRefreshToken AccessAndRefreshToken `json:"accessAndRefreshToken"`
	UserInfo              UserInfo              `json:"userInfo"`
}

// DecodedIdentity is derived from a verified token and lives for one request.
type DecodedIdentity struct {
	SubjectID int64     `json:"subjectId"`
	Email     string    `json:"email"`
	TokenType TokenType `json:"tokenType"`
	TenantID  int64     `json:"tenantId"`
	Role      string    `json:"role"`
	TokenID   string    `json:"tokenId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
